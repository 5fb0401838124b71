package skeleton

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/lindqvist/diffphys/spatial"
)

// PrismaticJoint slides the child body along a fixed axis, expressed in the
// parent body's frame, through the joint's single displacement q[0].
type PrismaticJoint struct {
	jointBase
	Axis         mgl64.Vec3
	ParentOffset mgl64.Vec3
	ChildOffset  mgl64.Vec3
}

func NewPrismaticJoint(name string, parentBody, childBody int, axis, parentOffset, childOffset mgl64.Vec3) *PrismaticJoint {
	return &PrismaticJoint{
		jointBase:    jointBase{name: name, parentBody: parentBody, childBody: childBody},
		Axis:         axis.Normalize(),
		ParentOffset: parentOffset,
		ChildOffset:  childOffset,
	}
}

func (j *PrismaticJoint) NumDofs() int { return 1 }

func (j *PrismaticJoint) RelativeTransform(q []float64) Transform {
	childOriginInParent := j.ParentOffset.Add(j.Axis.Mul(q[0])).Sub(j.ChildOffset)
	return Transform{
		Position:        childOriginInParent,
		Rotation:        mgl64.QuatIdent(),
		InverseRotation: mgl64.QuatIdent(),
	}
}

// LocalScrewAxis is constant: the axis is fixed in the parent frame and the
// joint never rotates the child, so the local and parent representations of
// the axis coincide for all q.
func (j *PrismaticJoint) LocalScrewAxis(q []float64, i int) spatial.Twist {
	return spatial.Twist{Angular: mgl64.Vec3{0, 0, 0}, Linear: j.Axis}
}

func (j *PrismaticJoint) LocalScrewAxisGradient(q []float64, i int, wrt int) spatial.Twist {
	return spatial.Twist{}
}
