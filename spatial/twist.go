// Package spatial provides the screw-theory primitives (twists, wrenches,
// adjoint actions, and their gradients) shared by the kinematics layer and
// the contact differentiator: small, self-contained value types built on
// mgl64 rather than a general tensor library.
package spatial

import "github.com/go-gl/mathgl/mgl64"

// Twist is a 6D spatial velocity (or, dually, a screw axis): an angular part
// and a linear part, both expressed in the same frame.
type Twist struct {
	Angular mgl64.Vec3
	Linear  mgl64.Vec3
}

// Wrench is a 6D spatial force: a torque part and a force part.
type Wrench struct {
	Torque mgl64.Vec3
	Force  mgl64.Vec3
}

func (t Twist) Add(o Twist) Twist {
	return Twist{Angular: t.Angular.Add(o.Angular), Linear: t.Linear.Add(o.Linear)}
}

func (t Twist) Sub(o Twist) Twist {
	return Twist{Angular: t.Angular.Sub(o.Angular), Linear: t.Linear.Sub(o.Linear)}
}

func (t Twist) Mul(s float64) Twist {
	return Twist{Angular: t.Angular.Mul(s), Linear: t.Linear.Mul(s)}
}

// Dot is the natural pairing of a twist with a wrench: torque*angular + force*linear.
func (t Twist) Dot(w Wrench) float64 {
	return t.Angular.Dot(w.Torque) + t.Linear.Dot(w.Force)
}

// Skew returns the 3x3 skew-symmetric (cross-product) matrix [v]x such that
// [v]x * u == v.Cross(u).
func Skew(v mgl64.Vec3) mgl64.Mat3 {
	return mgl64.Mat3{
		0, v.Z(), -v.Y(),
		-v.Z(), 0, v.X(),
		v.Y(), -v.X(), 0,
	}
}

// AdT applies the adjoint action of the rigid transform (rotation R, position p)
// to a twist expressed at the transform's own origin, producing the twist
// expressed in the frame T maps into (world, when T is a body's world transform).
//
//	w' = R*w
//	v' = R*v + p x (R*w)
func AdT(rotation mgl64.Quat, position mgl64.Vec3, local Twist) Twist {
	worldAngular := rotation.Rotate(local.Angular)
	worldLinear := rotation.Rotate(local.Linear).Add(position.Cross(worldAngular))
	return Twist{Angular: worldAngular, Linear: worldLinear}
}

// Ad is the Lie bracket (small adjoint) of two twists: ad(a, b) = [a, b].
// This is the rate of change of twist b under an infinitesimal motion along a,
// i.e. how a descendant screw axis is transported when an ancestor joint rotates.
func Ad(a, b Twist) Twist {
	return Twist{
		Angular: a.Angular.Cross(b.Angular),
		Linear:  a.Angular.Cross(b.Linear).Add(a.Linear.Cross(b.Angular)),
	}
}
