package lcp

import "math"

// PGSSolver solves the boxed LCP by projected Gauss-Seidel: repeatedly sweep
// every row, solve it holding the others fixed, and clamp into its box. For
// a friction-coupled row (findex[i] >= 0) the box is recomputed each sweep
// from the current magnitude of x[findex[i]], which is exactly what makes
// PGS a natural fit for this problem: unlike a one-shot pivoting method, it
// already revisits every row every iteration, so the coupled bound simply
// uses the latest available estimate.
type PGSSolver struct {
	MaxIterations int
	Tolerance     float64
}

func NewPGSSolver() *PGSSolver {
	return &PGSSolver{MaxIterations: 100, Tolerance: 1e-10}
}

func (s *PGSSolver) Solve(n int, a []float64, x, b, lo, hi []float64, findex []int, earlyTermination bool) bool {
	if n == 0 {
		return true
	}
	if len(a) != n*n {
		return false
	}

	maxIter := s.MaxIterations
	if maxIter <= 0 {
		maxIter = 100
	}
	tol := s.Tolerance
	if tol <= 0 {
		tol = 1e-10
	}

	for i := range x {
		x[i] = 0
	}

	for iter := 0; iter < maxIter; iter++ {
		maxDelta := 0.0

		for i := 0; i < n; i++ {
			diag := a[i*n+i]
			if math.Abs(diag) < 1e-14 {
				continue
			}

			sum := b[i]
			for j := 0; j < n; j++ {
				if j == i {
					continue
				}
				sum -= a[i*n+j] * x[j]
			}
			unclamped := sum / diag

			rowLo, rowHi := lo[i], hi[i]
			if findex[i] >= 0 {
				bound := math.Abs(hi[i] * x[findex[i]])
				rowLo, rowHi = -bound, bound
			}

			clamped := math.Max(rowLo, math.Min(rowHi, unclamped))

			delta := math.Abs(clamped - x[i])
			if delta > maxDelta {
				maxDelta = delta
			}
			x[i] = clamped
		}

		if earlyTermination && maxDelta < tol {
			break
		}
	}

	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
