package skeleton

import (
	"github.com/lindqvist/diffphys/spatial"
)

// Joint is a single edge of the skeleton's kinematic tree: a parameterized
// relative transform between a parent body and a child body, plus the local
// screw axis for each of its degrees of freedom. Joints own no state beyond
// their own geometry (axis, offsets) — generalized coordinates live in the
// skeleton's flat Q/QDot arrays.
type Joint interface {
	Name() string
	NumDofs() int
	ParentBodyIndex() int
	ChildBodyIndex() int

	// RelativeTransform returns the transform from the parent body frame to
	// the child body frame, given this joint's slice of q.
	RelativeTransform(q []float64) Transform

	// LocalScrewAxis returns the i-th column of the joint's relative
	// Jacobian, expressed in the child body's local frame, at configuration
	// q. For single-DOF joints this is constant in q.
	LocalScrewAxis(q []float64, i int) spatial.Twist

	// LocalScrewAxisGradient differentiates LocalScrewAxis(q, i) with
	// respect to q[wrt]. Zero for joints whose axes don't depend on q.
	LocalScrewAxisGradient(q []float64, i int, wrt int) spatial.Twist
}

// jointBase carries the fields common to every joint implementation.
type jointBase struct {
	name       string
	parentBody int
	childBody  int
}

func (j *jointBase) Name() string          { return j.name }
func (j *jointBase) ParentBodyIndex() int  { return j.parentBody }
func (j *jointBase) ChildBodyIndex() int   { return j.childBody }
