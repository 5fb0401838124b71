package spatial

import "github.com/go-gl/mathgl/mgl64"

// GradientWrtTheta returns the instantaneous world-frame velocity of the
// world point under a unit rate of the DOF whose world screw axis is twist.
// A spatial twist expressed about the world origin gives the velocity of any
// world point p as Linear + Angular x p; this is exactly that formula,
// evaluated at theta=0 (the only configuration the differentiator ever
// needs, since it always operates on the current pose).
func GradientWrtTheta(twist Twist, point mgl64.Vec3) mgl64.Vec3 {
	return twist.Linear.Add(twist.Angular.Cross(point))
}

// GradientWrtThetaPureRotation returns the derivative of a pure direction
// (a normal, an edge direction — anything with no translational part) under
// rotation by the given angular velocity, evaluated at theta=0.
func GradientWrtThetaPureRotation(angular mgl64.Vec3, direction mgl64.Vec3) mgl64.Vec3 {
	return angular.Cross(direction)
}

// NormalizeGradient differentiates v.Normalize() given v and its gradient dv.
func NormalizeGradient(v, dv mgl64.Vec3) mgl64.Vec3 {
	norm := v.Len()
	if norm < 1e-12 {
		return mgl64.Vec3{}
	}
	return dv.Mul(1.0 / norm).Sub(v.Mul(v.Dot(dv) / (norm * norm * norm)))
}
