package constraint

import (
	"github.com/lindqvist/diffphys/collision"
	"github.com/lindqvist/diffphys/lcp"
	"github.com/lindqvist/diffphys/skeleton"
)

// Solver resolves a frame's contacts against a skeleton: assemble the
// boxed LCP, solve it, and write the resulting velocity change back into
// skel.QDot. It tries the primary solver first and falls back to the
// secondary on failure, degrading from Dantzig's exact pivot to PGS when
// the active set is singular or fails to converge.
type Solver struct {
	Primary   lcp.BoxedLcpSolver
	Secondary lcp.BoxedLcpSolver
}

// NewSolver returns the default solver pairing: Dantzig's exact active-set
// pivot first, projected Gauss-Seidel as the fallback when it fails to
// converge or hits a singular active subsystem.
func NewSolver() *Solver {
	return &Solver{
		Primary:   lcp.NewDantzigSolver(),
		Secondary: lcp.NewPGSSolver(),
	}
}

// Resolve builds the LCP for the given contacts, solves it, and applies the
// resulting impulses to the group's skeletons' QDot. It reports the
// assembled system (useful for a differentiator to inspect which rows
// clamped) and whether the primary solver succeeded: the bool is false both
// when the secondary solver had to be used and when both solvers failed (in
// which case no impulses are applied).
func (s *Solver) Resolve(group *skeleton.Group, contacts []collision.Contact) (*System, bool, error) {
	sys, err := BuildSystem(group, contacts)
	if err != nil {
		return nil, false, err
	}
	if sys.N == 0 {
		return sys, true, nil
	}

	usedPrimary := true
	ok := s.Primary.Solve(sys.N, sys.A, sys.X, sys.B, sys.Lo, sys.Hi, sys.Findex, true)
	if !ok {
		usedPrimary = false
		for i := range sys.X {
			sys.X[i] = 0
		}
		ok = s.Secondary.Solve(sys.N, sys.A, sys.X, sys.B, sys.Lo, sys.Hi, sys.Findex, true)
	}
	if !ok {
		return sys, false, nil
	}

	sys.ApplyImpulses(group)
	return sys, usedPrimary, nil
}

// ApplyImpulses advances the group's generalized velocity by Minv * J^T *
// x, the velocity change produced by the solved row impulses, then clamps
// away residual jitter below the resting-contact threshold.
func (sys *System) ApplyImpulses(group *skeleton.Group) {
	n := group.NumDofs()
	delta := make([]float64, n)
	for i, x := range sys.X {
		if x == 0 {
			continue
		}
		contribution := mulMatVec(sys.minv, sys.jacobians[i])
		for k := 0; k < n; k++ {
			delta[k] += x * contribution[k]
		}
	}
	qdot := group.QDot()
	for k := 0; k < n; k++ {
		qdot[k] += delta[k]
	}
	clampSmallVelocities(qdot)
	group.SetQDot(qdot)
}
