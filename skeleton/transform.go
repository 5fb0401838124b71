package skeleton

import "github.com/go-gl/mathgl/mgl64"

// Transform is a world pose: a rotation and a position. Bodies carry one of
// these, recomputed every forward-kinematics pass from the skeleton's joint
// tree rather than integrated independently.
type Transform struct {
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	InverseRotation mgl64.Quat
}

// NewTransform creates an identity transform.
func NewTransform() Transform {
	return Transform{
		Position: mgl64.Vec3{0, 0, 0},
		Rotation: mgl64.QuatIdent(),
	}
}
