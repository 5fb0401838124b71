package skeleton

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/lindqvist/diffphys/spatial"
)

// RevoluteJoint rotates the child body about a fixed axis, expressed in the
// parent body's frame, through the joint's single angle q[0].
type RevoluteJoint struct {
	jointBase
	Axis          mgl64.Vec3 // unit axis, in the parent frame
	ChildOffset   mgl64.Vec3 // child-frame offset from joint pivot to child origin
	ParentOffset  mgl64.Vec3 // parent-frame offset from parent origin to joint pivot
}

func NewRevoluteJoint(name string, parentBody, childBody int, axis, parentOffset, childOffset mgl64.Vec3) *RevoluteJoint {
	return &RevoluteJoint{
		jointBase:    jointBase{name: name, parentBody: parentBody, childBody: childBody},
		Axis:         axis.Normalize(),
		ParentOffset: parentOffset,
		ChildOffset:  childOffset,
	}
}

func (j *RevoluteJoint) NumDofs() int { return 1 }

func (j *RevoluteJoint) RelativeTransform(q []float64) Transform {
	rotation := mgl64.QuatRotate(q[0], j.Axis)
	pivotInParent := j.ParentOffset
	// child origin in parent frame: pivot + R(q) * (-childOffset rotated back)
	childOriginInParent := pivotInParent.Sub(rotation.Rotate(j.ChildOffset))
	return Transform{
		Position:        childOriginInParent,
		Rotation:        rotation,
		InverseRotation: rotation.Inverse(),
	}
}

// LocalScrewAxis is constant: rotating about your own axis never changes
// that axis's representation in your own local frame.
func (j *RevoluteJoint) LocalScrewAxis(q []float64, i int) spatial.Twist {
	return spatial.Twist{Angular: j.Axis, Linear: mgl64.Vec3{0, 0, 0}}
}

func (j *RevoluteJoint) LocalScrewAxisGradient(q []float64, i int, wrt int) spatial.Twist {
	return spatial.Twist{}
}
