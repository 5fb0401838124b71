package skeleton

import "github.com/go-gl/mathgl/mgl64"

// Group is an ordered collection of skeletons presented as a single flat
// generalized-coordinate system: Dofs, Q and QDot concatenate each
// skeleton's own in registration order, the same way a multi-skeleton world
// assembles its mass matrix and contact Jacobians. Building a Group copies
// nothing — every read or write routes through the owning skeleton via
// each DegreeOfFreedom's own Skel/Index, so a Group is just a view; mutating
// it mutates the skeletons it was built from.
type Group struct {
	Skels []*Skeleton

	dofs   []*DegreeOfFreedom
	offset map[*Skeleton]int
}

// NewGroup registers skels in the given order and precomputes the
// concatenated dof list and each skeleton's starting offset into it.
func NewGroup(skels ...*Skeleton) *Group {
	g := &Group{
		Skels:  skels,
		offset: make(map[*Skeleton]int, len(skels)),
	}
	off := 0
	for _, s := range skels {
		g.offset[s] = off
		g.dofs = append(g.dofs, s.Dofs...)
		off += len(s.Dofs)
	}
	return g
}

// NumDofs is the total dof count across every skeleton in the group.
func (g *Group) NumDofs() int { return len(g.dofs) }

// Dofs is the concatenated dof list in registration order.
func (g *Group) Dofs() []*DegreeOfFreedom { return g.dofs }

// Bodies is the concatenated body list in registration order, the flat list
// collision detection runs broad/narrow phase over.
func (g *Group) Bodies() []*Body {
	var out []*Body
	for _, s := range g.Skels {
		out = append(out, s.Bodies...)
	}
	return out
}

// Q is a fresh copy of the concatenated generalized coordinates.
func (g *Group) Q() []float64 {
	out := make([]float64, 0, len(g.dofs))
	for _, s := range g.Skels {
		out = append(out, s.Q...)
	}
	return out
}

// QDot is a fresh copy of the concatenated generalized velocities.
func (g *Group) QDot() []float64 {
	out := make([]float64, 0, len(g.dofs))
	for _, s := range g.Skels {
		out = append(out, s.QDot...)
	}
	return out
}

// SetQ scatters q back into each skeleton's own Q slice.
func (g *Group) SetQ(q []float64) {
	off := 0
	for _, s := range g.Skels {
		copy(s.Q, q[off:off+len(s.Q)])
		off += len(s.Q)
	}
}

// SetQDot scatters qdot back into each skeleton's own QDot slice.
func (g *Group) SetQDot(qdot []float64) {
	off := 0
	for _, s := range g.Skels {
		copy(s.QDot, qdot[off:off+len(s.QDot)])
		off += len(s.QDot)
	}
}

// QAt reads the global dof index i's generalized coordinate through its
// owning skeleton.
func (g *Group) QAt(i int) float64 {
	dof := g.dofs[i]
	return dof.Skel.Q[dof.Index]
}

// SetQAt writes the global dof index i's generalized coordinate through its
// owning skeleton.
func (g *Group) SetQAt(i int, v float64) {
	dof := g.dofs[i]
	dof.Skel.Q[dof.Index] = v
}

// ForwardKinematics recomputes every skeleton's body transforms in
// registration order. Skeletons are independent trees, so order between
// them does not matter.
func (g *Group) ForwardKinematics() {
	for _, s := range g.Skels {
		s.ForwardKinematics()
	}
}

// MassMatrix assembles the block-diagonal world mass matrix: skeletons
// share no generalized coordinates, so the off-diagonal blocks between two
// different skeletons are exactly zero, not an approximation.
func (g *Group) MassMatrix() [][]float64 {
	n := g.NumDofs()
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	off := 0
	for _, s := range g.Skels {
		sub := s.MassMatrix()
		for i := range sub {
			copy(m[off+i][off:off+len(sub)], sub[i])
		}
		off += len(sub)
	}
	return m
}

// BiasForce concatenates each skeleton's own Coriolis/centrifugal bias
// force in registration order.
func (g *Group) BiasForce() []float64 {
	out := make([]float64, 0, len(g.dofs))
	for _, s := range g.Skels {
		out = append(out, s.BiasForce()...)
	}
	return out
}

// GravityForce concatenates each skeleton's own gravity generalized force
// in registration order.
func (g *Group) GravityForce() []float64 {
	out := make([]float64, 0, len(g.dofs))
	for _, s := range g.Skels {
		out = append(out, s.GravityForce()...)
	}
	return out
}

// DofOffset is the global dof index s's own dof 0 lands at.
func (g *Group) DofOffset(s *Skeleton) int { return g.offset[s] }

// PointVelocityJacobian is skeleton.PointVelocityJacobian lifted to the
// group's flat dof space: body.Skel resolves which skeleton owns body, and
// its local affecting-dof indices are shifted by that skeleton's offset
// into the group. A contact between bodies of two different skeletons is
// handled automatically: the two Jacobians simply touch disjoint index
// ranges.
func (g *Group) PointVelocityJacobian(body *Body, point mgl64.Vec3) ([]int, []mgl64.Vec3) {
	local, cols := body.Skel.PointVelocityJacobian(body.Index, point)
	off := g.offset[body.Skel]
	global := make([]int, len(local))
	for i, idx := range local {
		global[i] = off + idx
	}
	return global, cols
}
