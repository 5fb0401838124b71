package lcp

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// DantzigSolver is a direct, active-set pivoting boxed LCP solver: at each
// outer iteration it solves the linear system restricted to the current
// "clamping" rows exactly (via gonum's LU solve), clamps any row that
// leaves its box back onto that box, and pulls back in any row whose
// residual violates complementarity, repeating until the active set
// stabilizes. Friction-coupled rows (findex[i] >= 0) have their effective
// bound recomputed from the other row's latest magnitude every outer
// iteration, the same freeze-and-resolve treatment DART's own Dantzig
// solver relies on its underlying ODE routine for.
//
// Mirrors the DantzigBoxedLcpSolver contract: any internal failure
// (singular active system, non-finite result) is reported by returning
// false rather than panicking, so callers can fall back to another solver.
type DantzigSolver struct {
	MaxOuterIterations int
}

func NewDantzigSolver() *DantzigSolver {
	return &DantzigSolver{MaxOuterIterations: 20}
}

func (s *DantzigSolver) Solve(n int, a []float64, x, b, lo, hi []float64, findex []int, earlyTermination bool) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	if n == 0 {
		return true
	}
	if len(a) != n*n {
		return false
	}

	maxOuter := s.MaxOuterIterations
	if maxOuter <= 0 {
		maxOuter = 20
	}

	for i := range x {
		x[i] = 0
	}

	active := make([]bool, n)
	for i := range active {
		active[i] = true
	}

	effLo := make([]float64, n)
	effHi := make([]float64, n)

	for outer := 0; outer < maxOuter; outer++ {
		for i := 0; i < n; i++ {
			if findex[i] >= 0 {
				bound := math.Abs(hi[i] * x[findex[i]])
				effLo[i], effHi[i] = -bound, bound
			} else {
				effLo[i], effHi[i] = lo[i], hi[i]
			}
		}

		changed := true
		for pass := 0; pass < n+1 && changed; pass++ {
			changed = false

			activeIdx := make([]int, 0, n)
			for i := 0; i < n; i++ {
				if active[i] {
					activeIdx = append(activeIdx, i)
				}
			}

			if len(activeIdx) > 0 {
				if !solveActiveSubsystem(n, a, x, b, activeIdx) {
					return false
				}

				for _, i := range activeIdx {
					if x[i] < effLo[i] {
						x[i] = effLo[i]
						active[i] = false
						changed = true
					} else if x[i] > effHi[i] {
						x[i] = effHi[i]
						active[i] = false
						changed = true
					}
				}
			}

			w := residual(n, a, x, b)
			for i := 0; i < n; i++ {
				if active[i] {
					continue
				}
				atLower := x[i] <= effLo[i]+1e-12
				if atLower && w[i] < -1e-9 {
					active[i] = true
					changed = true
				} else if !atLower && w[i] > 1e-9 {
					active[i] = true
					changed = true
				}
			}
		}
	}

	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// solveActiveSubsystem solves A[active,active] * x[active] = b[active] -
// A[active,inactive]*x[inactive], leaving inactive entries of x untouched.
func solveActiveSubsystem(n int, a []float64, x, b []float64, activeIdx []int) bool {
	m := len(activeIdx)
	sub := mat.NewDense(m, m, nil)
	rhs := mat.NewVecDense(m, nil)

	for ri, i := range activeIdx {
		sum := b[i]
		for j := 0; j < n; j++ {
			isActive := false
			for _, k := range activeIdx {
				if k == j {
					isActive = true
					break
				}
			}
			if !isActive {
				sum -= a[i*n+j] * x[j]
			}
		}
		rhs.SetVec(ri, sum)

		for ci, j := range activeIdx {
			sub.Set(ri, ci, a[i*n+j])
		}
	}

	var solution mat.VecDense
	if err := solution.SolveVec(sub, rhs); err != nil {
		return false
	}

	for ri, i := range activeIdx {
		x[i] = solution.AtVec(ri)
	}
	return true
}

func residual(n int, a []float64, x, b []float64) []float64 {
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := -b[i]
		for j := 0; j < n; j++ {
			sum += a[i*n+j] * x[j]
		}
		w[i] = sum
	}
	return w
}
