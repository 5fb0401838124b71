package skeleton

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lindqvist/diffphys/spatial"
)

// Material holds per-body contact parameters: restitution and friction
// coefficients consumed when assembling the LCP rows for a contact
// touching this body, and linear/angular damping applied every step.
type Material struct {
	Restitution     float64
	StaticFriction  float64
	DynamicFriction float64
	LinearDamping   float64
	AngularDamping  float64
}

// Body is one link of the skeleton's kinematic tree. A Body does not
// integrate its own transform: its world pose and spatial velocity are
// recomputed every forward-kinematics pass from the skeleton's joint tree
// and generalized coordinates.
type Body struct {
	Name string

	Skel             *Skeleton // the skeleton this body was added to, set by AddBody
	ParentJointIndex int       // index into Skeleton.Joints, -1 for a root body
	Index            int       // this body's own index into Skeleton.Bodies

	Mass         float64
	InertiaLocal mgl64.Mat3

	Material Material
	Shape    Shape

	// Computed by Skeleton.ForwardKinematics, world frame.
	Transform       Transform
	SpatialVelocity spatial.Twist
}

func NewBody(name string, shape Shape, mass float64, material Material) *Body {
	b := &Body{
		Name:             name,
		ParentJointIndex: -1,
		Mass:             mass,
		Material:         material,
		Shape:            shape,
		Transform:        NewTransform(),
	}
	b.InertiaLocal = shape.ComputeInertia(mass)
	return b
}

// IsStatic reports whether the body has infinite mass (used for the world
// ground plane and other immovable anchors).
func (b *Body) IsStatic() bool {
	return math.IsInf(b.Mass, 1)
}

// SupportWorld maps a world-space direction into the body's local frame,
// asks its shape for the local support point, and maps the result back out
// to world space. The fundamental per-body query GJK/EPA build on.
func (b *Body) SupportWorld(direction mgl64.Vec3) mgl64.Vec3 {
	localDirection := b.Transform.InverseRotation.Rotate(direction)
	localSupport := b.Shape.Support(localDirection)
	return b.Transform.Position.Add(b.Transform.Rotation.Rotate(localSupport))
}

// SpatialInertia returns the 6x6 spatial inertia of the body about the
// world origin, in the block form
//
//	[ Ic + m(|c|^2 I - c c^T)   m [c]x ]
//	[      -m [c]x                m I  ]
//
// where c is the body's world-frame center of mass (assumed coincident
// with its origin) and Ic is its inertia about that point expressed in the
// world frame. Used by Skeleton.MassMatrix to assemble the generalized
// mass matrix via composite rigid-body summation.
func (b *Body) SpatialInertia() (topLeft, topRight, bottomLeft, bottomRight mgl64.Mat3) {
	R := b.Transform.Rotation.Mat4().Mat3()
	Ic := R.Mul3(b.InertiaLocal).Mul3(R.Transpose())

	c := b.Transform.Position
	cx := spatial.Skew(c)
	m := b.Mass

	cNormSq := c.Dot(c)
	outer := mgl64.Mat3{
		c.X() * c.X(), c.X() * c.Y(), c.X() * c.Z(),
		c.Y() * c.X(), c.Y() * c.Y(), c.Y() * c.Z(),
		c.Z() * c.X(), c.Z() * c.Y(), c.Z() * c.Z(),
	}
	scaledIdent := mgl64.Ident3()
	var parallelAxis mgl64.Mat3
	for i := 0; i < 9; i++ {
		parallelAxis[i] = m * (cNormSq*scaledIdent[i] - outer[i])
	}

	var mcx mgl64.Mat3
	for i := 0; i < 9; i++ {
		mcx[i] = m * cx[i]
	}
	var negMcx mgl64.Mat3
	for i := 0; i < 9; i++ {
		negMcx[i] = -mcx[i]
	}

	var topLeftOut mgl64.Mat3
	for i := 0; i < 9; i++ {
		topLeftOut[i] = Ic[i] + parallelAxis[i]
	}

	identScaled := mgl64.Ident3()
	for i := 0; i < 9; i++ {
		identScaled[i] *= m
	}

	return topLeftOut, mcx, negMcx, identScaled
}
