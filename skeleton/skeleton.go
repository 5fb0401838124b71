package skeleton

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/lindqvist/diffphys/spatial"
)

// Skeleton is a kinematic tree of bodies connected by joints, parameterized
// by a single flat vector of generalized coordinates Q and velocities QDot.
// Forward kinematics walks the tree once per step to recompute every body's
// world transform and spatial velocity from Q/QDot.
type Skeleton struct {
	Name    string
	Bodies  []*Body
	Joints  []Joint
	Dofs    []*DegreeOfFreedom
	Q       []float64
	QDot    []float64
	Gravity mgl64.Vec3
}

// NewSkeleton creates an empty skeleton with the given gravity vector.
func NewSkeleton(name string, gravity mgl64.Vec3) *Skeleton {
	return &Skeleton{Name: name, Gravity: gravity}
}

// AddBody appends a root body with no parent joint.
func (s *Skeleton) AddBody(b *Body) int {
	b.Skel = s
	b.Index = len(s.Bodies)
	b.ParentJointIndex = -1
	s.Bodies = append(s.Bodies, b)
	return b.Index
}

// AddJoint registers a joint connecting an already-added parent body to an
// already-added child body, and extends Q/QDot/Dofs by the joint's dof
// count. Initial generalized coordinates and velocities are zero.
func (s *Skeleton) AddJoint(j Joint) int {
	jointIndex := len(s.Joints)
	s.Joints = append(s.Joints, j)
	s.Bodies[j.ChildBodyIndex()].ParentJointIndex = jointIndex

	for i := 0; i < j.NumDofs(); i++ {
		dofIndex := len(s.Q)
		s.Q = append(s.Q, 0)
		s.QDot = append(s.QDot, 0)
		s.Dofs = append(s.Dofs, &DegreeOfFreedom{
			Skel:         s,
			Index:        dofIndex,
			JointIndex:   jointIndex,
			IndexInJoint: i,
		})
	}
	return jointIndex
}

// qSliceForJoint returns the subslice of q belonging to the given joint.
func (s *Skeleton) qSliceForJoint(jointIndex int, q []float64) []float64 {
	offset := 0
	for i := 0; i < jointIndex; i++ {
		offset += s.Joints[i].NumDofs()
	}
	n := s.Joints[jointIndex].NumDofs()
	return q[offset : offset+n]
}

// DofOffsetForJoint returns the index into Q of a joint's first dof.
func (s *Skeleton) DofOffsetForJoint(jointIndex int) int {
	offset := 0
	for i := 0; i < jointIndex; i++ {
		offset += s.Joints[i].NumDofs()
	}
	return offset
}

// ForwardKinematics recomputes every body's world Transform and
// SpatialVelocity from Q/QDot, walking bodies in index order. Bodies must be
// added in an order where a parent always precedes its children — true for
// any skeleton built by successive AddBody/AddJoint calls along the tree.
func (s *Skeleton) ForwardKinematics() {
	for _, body := range s.Bodies {
		if body.ParentJointIndex == -1 {
			body.Transform = NewTransform()
			body.SpatialVelocity = spatial.Twist{}
			continue
		}

		joint := s.Joints[body.ParentJointIndex]
		parent := s.Bodies[joint.ParentBodyIndex()]
		qJoint := s.qSliceForJoint(body.ParentJointIndex, s.Q)
		qDotJoint := s.qSliceForJoint(body.ParentJointIndex, s.QDot)

		relative := joint.RelativeTransform(qJoint)

		worldRotation := parent.Transform.Rotation.Mul(relative.Rotation)
		worldPosition := parent.Transform.Position.Add(parent.Transform.Rotation.Rotate(relative.Position))

		body.Transform = Transform{
			Position:        worldPosition,
			Rotation:        worldRotation,
			InverseRotation: worldRotation.Inverse(),
		}

		// Spatial velocity: parent's velocity transported to the child's
		// origin, plus the joint's own contribution from each local dof,
		// each screw axis transformed into world frame via AdT at the
		// child's pose.
		velocity := spatial.AdT(parent.Transform.Rotation, body.Transform.Position.Sub(parent.Transform.Position), parent.SpatialVelocity)
		for i := 0; i < joint.NumDofs(); i++ {
			localAxis := joint.LocalScrewAxis(qJoint, i)
			worldAxis := spatial.AdT(body.Transform.Rotation, mgl64.Vec3{}, localAxis)
			velocity = velocity.Add(worldAxis.Mul(qDotJoint[i]))
		}
		body.SpatialVelocity = velocity

		body.Shape.ComputeAABB(body.Transform)
	}
}

// WorldScrewAxis returns the world-frame screw axis of a degree of freedom:
// the joint's local screw axis transported to the child body's pose.
func (s *Skeleton) WorldScrewAxis(dof *DegreeOfFreedom) spatial.Twist {
	joint := s.Joints[dof.JointIndex]
	body := s.Bodies[joint.ChildBodyIndex()]
	qJoint := s.qSliceForJoint(dof.JointIndex, s.Q)
	local := joint.LocalScrewAxis(qJoint, dof.IndexInJoint)
	return spatial.AdT(body.Transform.Rotation, mgl64.Vec3{}, local)
}

// IsAncestorOfBody reports whether ancestorIndex is bodyIndex itself or the
// index of any of bodyIndex's ancestors up the joint tree.
func (s *Skeleton) IsAncestorOfBody(ancestorIndex, bodyIndex int) bool {
	for idx := bodyIndex; idx != -1; {
		if idx == ancestorIndex {
			return true
		}
		body := s.Bodies[idx]
		if body.ParentJointIndex == -1 {
			return false
		}
		idx = s.Joints[body.ParentJointIndex].ParentBodyIndex()
	}
	return false
}

// IsAncestorOfDof reports whether dof's screw axis is affected by motion of
// ancestorBody — i.e. whether ancestorBody is an ancestor of (or equal to)
// the joint's child body.
func (s *Skeleton) IsAncestorOfDof(ancestorBodyIndex int, dof *DegreeOfFreedom) bool {
	joint := s.Joints[dof.JointIndex]
	return s.IsAncestorOfBody(ancestorBodyIndex, joint.ChildBodyIndex())
}

// DofIsParentOfDof reports whether dofA's configuration can influence
// dofB's world screw axis: true when dofA's joint is a strict ancestor of
// dofB's joint, or when they share the same joint but have different
// indices within it (multi-DOF joints couple their own axes to each other).
func (s *Skeleton) DofIsParentOfDof(dofA, dofB *DegreeOfFreedom) bool {
	if dofA.JointIndex == dofB.JointIndex {
		return dofA.IndexInJoint != dofB.IndexInJoint
	}
	jointA := s.Joints[dofA.JointIndex]
	return s.IsAncestorOfBody(jointA.ChildBodyIndex(), s.Joints[dofB.JointIndex].ParentBodyIndex()) ||
		jointA.ChildBodyIndex() == s.Joints[dofB.JointIndex].ParentBodyIndex()
}
