// Package lcp provides boxed linear-complementarity-problem solvers: the
// black-box numerical routine the constraint layer hands a system to and
// gets back an impulse vector plus an active-set classification. The
// interface and failure contract are treated as fixed externally-specified
// behavior; the solver itself is free to be swapped (Dantzig, projected
// Gauss-Seidel) without the caller noticing.
package lcp

// BoxedLcpSolver solves the boxed LCP
//
//	w = A*x - b
//	lo[i] <= x[i] <= hi[i]
//	w[i] > 0  => x[i] == lo[i]
//	w[i] < 0  => x[i] == hi[i]
//	w[i] == 0 => lo[i] <= x[i] <= hi[i]
//
// with mixed bounds: findex[i] == -1 means row i has fixed bounds lo[i]/hi[i];
// findex[i] == j >= 0 means row i's bounds are scaled by |x[j]| (friction
// coupling to a normal-force row). Solve writes the solution into x and
// reports whether it succeeded; on any internal failure it returns false
// rather than panicking, so callers can fall back to another solver.
type BoxedLcpSolver interface {
	Solve(n int, a []float64, x, b, lo, hi []float64, findex []int, earlyTermination bool) bool
}

// RowType classifies one row of a solved LCP by which side of its box
// constraint holds.
type RowType int

const (
	Clamping   RowType = iota // lo[i] < x[i] < hi[i]: the complementarity slack is zero, row is active
	UpperBound                // x[i] == hi[i]: saturated at its upper bound
	LowerBound                // x[i] == lo[i]: saturated at its lower bound
)

// Classify derives each row's RowType from a solved x against its bounds.
// A small tolerance treats values extremely close to a bound as saturated,
// matching the LCP solver's own numerical slack.
func Classify(x, lo, hi []float64) []RowType {
	const tol = 1e-9
	types := make([]RowType, len(x))
	for i := range x {
		switch {
		case hi[i]-x[i] <= tol:
			types[i] = UpperBound
		case x[i]-lo[i] <= tol:
			types[i] = LowerBound
		default:
			types[i] = Clamping
		}
	}
	return types
}
