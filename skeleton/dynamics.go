package skeleton

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/lindqvist/diffphys/spatial"
)

// AffectingDofs returns the indices, into s.Dofs, of every dof whose joint
// lies on the path from the tree root down to body b — the dofs whose
// motion contributes to b's spatial velocity.
func (s *Skeleton) AffectingDofs(bodyIndex int) []int {
	var result []int
	for i, dof := range s.Dofs {
		joint := s.Joints[dof.JointIndex]
		if s.IsAncestorOfBody(joint.ChildBodyIndex(), bodyIndex) {
			result = append(result, i)
		}
	}
	return result
}

// PointVelocityJacobian returns, for every dof affecting bodyIndex, the
// sensitivity of the world-frame linear velocity of the material point
// currently at world position `point` to that dof's qdot. Each screw axis is
// anchored at its own joint's child body origin, so shifting it to `point`
// uses the rigid-velocity-field reference-point formula v(x) = v(O) +
// omega x (x - O).
func (s *Skeleton) PointVelocityJacobian(bodyIndex int, point mgl64.Vec3) ([]int, []mgl64.Vec3) {
	affecting := s.AffectingDofs(bodyIndex)
	columns := make([]mgl64.Vec3, len(affecting))
	for idx, i := range affecting {
		dof := s.Dofs[i]
		joint := s.Joints[dof.JointIndex]
		origin := s.Bodies[joint.ChildBodyIndex()].Transform.Position
		axis := s.WorldScrewAxis(dof)
		columns[idx] = axis.Linear.Add(axis.Angular.Cross(point.Sub(origin)))
	}
	return affecting, columns
}

// MassMatrix assembles the generalized mass matrix M(q) by composite
// rigid-body summation: M_ij = sum over bodies b of axis_i . (I_O_b * axis_j),
// where axis_i/axis_j are the world-frame screw axes of dofs i and j and
// I_O_b is body b's spatial inertia about the world origin. Call
// ForwardKinematics first so body transforms reflect the current Q.
func (s *Skeleton) MassMatrix() [][]float64 {
	n := len(s.Dofs)
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}

	worldAxis := make([]spatial.Twist, n)
	for i, dof := range s.Dofs {
		worldAxis[i] = s.WorldScrewAxis(dof)
	}

	for bodyIndex, body := range s.Bodies {
		if body.IsStatic() {
			continue
		}
		affecting := s.AffectingDofs(bodyIndex)
		if len(affecting) == 0 {
			continue
		}

		topLeft, topRight, bottomLeft, bottomRight := body.SpatialInertia()

		for _, i := range affecting {
			ai := worldAxis[i]
			wrench := spatial.Wrench{
				Torque: topLeft.Mul3x1(ai.Angular).Add(topRight.Mul3x1(ai.Linear)),
				Force:  bottomLeft.Mul3x1(ai.Angular).Add(bottomRight.Mul3x1(ai.Linear)),
			}
			for _, j := range affecting {
				m[i][j] += worldAxis[j].Dot(wrench)
			}
		}
	}

	return m
}

// BiasForce computes the Coriolis/centrifugal generalized force C(q, qdot)
// via Christoffel symbols of the mass matrix:
//
//	C_k = sum_ij Gamma_ijk qdot_i qdot_j
//	Gamma_ijk = 1/2 (dM_kj/dq_i + dM_ki/dq_j - dM_ij/dq_k)
//
// dM/dq is obtained by central finite difference rather than an analytical
// derivative: the mass matrix's q-dependence routes through every joint's
// RelativeTransform and LocalScrewAxis, and a closed-form chain rule through
// the full composite-rigid-body sum buys little over a numerical derivative
// here, since this term is not one the contact differentiator back-props
// through.
func (s *Skeleton) BiasForce() []float64 {
	n := len(s.Dofs)
	c := make([]float64, n)
	if n == 0 {
		return c
	}

	const eps = 1e-6
	savedQ := append([]float64{}, s.Q...)

	dM := make([][][]float64, n) // dM[k] = dM/dq_k
	for k := 0; k < n; k++ {
		s.Q[k] = savedQ[k] + eps
		s.ForwardKinematics()
		mPlus := s.MassMatrix()

		s.Q[k] = savedQ[k] - eps
		s.ForwardKinematics()
		mMinus := s.MassMatrix()

		s.Q[k] = savedQ[k]

		d := make([][]float64, n)
		for i := 0; i < n; i++ {
			d[i] = make([]float64, n)
			for j := 0; j < n; j++ {
				d[i][j] = (mPlus[i][j] - mMinus[i][j]) / (2 * eps)
			}
		}
		dM[k] = d
	}
	s.ForwardKinematics()

	for k := 0; k < n; k++ {
		var sum float64
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				gamma := 0.5 * (dM[i][k][j] + dM[j][k][i] - dM[k][i][j])
				sum += gamma * s.QDot[i] * s.QDot[j]
			}
		}
		c[k] = sum
	}

	return c
}

// GravityForce returns the generalized force that gravity applies to each
// dof: the sum, over bodies, of the dof's world screw axis dotted with the
// body's weight wrench acting at the body origin.
func (s *Skeleton) GravityForce() []float64 {
	n := len(s.Dofs)
	g := make([]float64, n)

	for bodyIndex, body := range s.Bodies {
		if body.IsStatic() {
			continue
		}
		weight := s.Gravity.Mul(body.Mass)
		torque := body.Transform.Position.Cross(weight)

		for _, i := range s.AffectingDofs(bodyIndex) {
			axis := s.WorldScrewAxis(s.Dofs[i])
			g[i] += axis.Angular.Dot(torque) + axis.Linear.Dot(weight)
		}
	}
	return g
}
