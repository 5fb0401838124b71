package neural

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/lindqvist/diffphys/collision"
	"github.com/lindqvist/diffphys/skeleton"
	"github.com/lindqvist/diffphys/spatial"
)

// DifferentiableContactConstraint represents one (contact point, friction
// basis direction) pair: the unit a world-level Jacobian is built one column
// at a time from. Contact is value-copied at construction so later collision
// detection can never alias it, matching the immutable-snapshot invariant
// the forward pass depends on.
type DifferentiableContactConstraint struct {
	Contact    collision.Contact
	PointIndex int
	Basis      int // 0 = normal, 1/2 = the two ODE tangent directions

	IsUpperBoundConstraint bool
	OffsetIntoWorld        int
}

// NewDifferentiableContactConstraint copies contact by value, so later
// mutation of the collision detector's output cannot affect this
// constraint's readings.
func NewDifferentiableContactConstraint(contact collision.Contact, pointIndex, basis int) *DifferentiableContactConstraint {
	return &DifferentiableContactConstraint{Contact: contact, PointIndex: pointIndex, Basis: basis}
}

// ContactWorldPosition is the world position of this constraint's contact
// point.
func (c *DifferentiableContactConstraint) ContactWorldPosition() mgl64.Vec3 {
	return c.Contact.Points[c.PointIndex].Position
}

// ContactWorldNormal is the contact's shared normal direction.
func (c *DifferentiableContactConstraint) ContactWorldNormal() mgl64.Vec3 {
	return c.Contact.Normal
}

// ContactWorldForceDirection is the direction this row's impulse acts
// along: the normal itself for basis 0, or one of the two ODE tangent
// columns otherwise.
func (c *DifferentiableContactConstraint) ContactWorldForceDirection() mgl64.Vec3 {
	if c.Basis == 0 {
		return c.Contact.Normal
	}
	t1, t2 := spatial.TangentBasisODE(c.Contact.Normal)
	if c.Basis == 1 {
		return t1
	}
	return t2
}

// WorldForce is the pure-force wrench this constraint's unit impulse applies
// at the contact point: [point x dir; dir].
func (c *DifferentiableContactConstraint) WorldForce() spatial.Wrench {
	point := c.ContactWorldPosition()
	dir := c.ContactWorldForceDirection()
	return spatial.Wrench{Torque: point.Cross(dir), Force: dir}
}

// GetDofContactType classifies dof against this constraint's contact.
func (c *DifferentiableContactConstraint) GetDofContactType(dof *skeleton.DegreeOfFreedom) DofContactType {
	return Classify(dof, &c.Contact)
}

// ForceMultiple returns +1 if dof is an ancestor of BodyA only, -1 if it is
// an ancestor of BodyB only, and 0 for self-collision (the internal force
// cancels through the shared ancestor) or for dofs unrelated to the
// contact. This is the sign convention generalized-constraint-force
// assembly and every Jacobian in this package is built on.
func (c *DifferentiableContactConstraint) ForceMultiple(dof *skeleton.DegreeOfFreedom) float64 {
	ancestorA := isAncestorOfBody(dof, c.Contact.BodyA)
	ancestorB := isAncestorOfBody(dof, c.Contact.BodyB)
	switch {
	case ancestorA && ancestorB:
		return 0
	case ancestorA:
		return 1
	case ancestorB:
		return -1
	default:
		return 0
	}
}

// worldScrewAxis looks up dof's world screw axis through its own skeleton.
func worldScrewAxis(dof *skeleton.DegreeOfFreedom) spatial.Twist {
	return dof.Skel.WorldScrewAxis(dof)
}

// ConstraintForce is the scalar generalized force this constraint's unit
// impulse applies to dof: multiple(dof) * (worldScrewAxis(dof) . worldForce).
func (c *DifferentiableContactConstraint) ConstraintForce(dof *skeleton.DegreeOfFreedom) float64 {
	multiple := c.ForceMultiple(dof)
	if multiple == 0 {
		return 0
	}
	return worldScrewAxis(dof).Dot(c.WorldForce()) * multiple
}

// ConstraintForces returns the generalized force vector over dofs, in the
// order given. Passing a single skeleton's Dofs or a world's concatenated
// dof list both work; the (skeleton | world) overloads DART exposes
// separately collapse to this one slice-taking signature in Go.
func (c *DifferentiableContactConstraint) ConstraintForces(dofs []*skeleton.DegreeOfFreedom) []float64 {
	out := make([]float64, len(dofs))
	for i, dof := range dofs {
		out[i] = c.ConstraintForce(dof)
	}
	return out
}

// ContactPositionGradient is d(contact point)/d(qd), dispatched on dof's
// DofContactType.
func (c *DifferentiableContactConstraint) ContactPositionGradient(dof *skeleton.DegreeOfFreedom) mgl64.Vec3 {
	switch c.GetDofContactType(dof) {
	case ContactTypeFace, ContactTypeNone, ContactTypeUnsupported:
		return mgl64.Vec3{}
	case ContactTypeVertex, ContactTypeVertexFaceSelfCollision, ContactTypeEdgeEdgeSelfCollision:
		return spatial.GradientWrtTheta(worldScrewAxis(dof), c.ContactWorldPosition())
	case ContactTypeEdgeA:
		twist := worldScrewAxis(dof)
		dPointA := spatial.GradientWrtTheta(twist, c.Contact.EdgeAPoint)
		dDirA := spatial.GradientWrtThetaPureRotation(twist.Angular, c.Contact.EdgeADir)
		return spatial.ContactPointGradient(
			c.Contact.EdgeAPoint, dPointA, c.Contact.EdgeADir, dDirA,
			c.Contact.EdgeBPoint, mgl64.Vec3{}, c.Contact.EdgeBDir, mgl64.Vec3{})
	case ContactTypeEdgeB:
		twist := worldScrewAxis(dof)
		dPointB := spatial.GradientWrtTheta(twist, c.Contact.EdgeBPoint)
		dDirB := spatial.GradientWrtThetaPureRotation(twist.Angular, c.Contact.EdgeBDir)
		return spatial.ContactPointGradient(
			c.Contact.EdgeAPoint, mgl64.Vec3{}, c.Contact.EdgeADir, mgl64.Vec3{},
			c.Contact.EdgeBPoint, dPointB, c.Contact.EdgeBDir, dDirB)
	default:
		return mgl64.Vec3{}
	}
}

// ContactNormalGradient is d(normal)/d(qd).
func (c *DifferentiableContactConstraint) ContactNormalGradient(dof *skeleton.DegreeOfFreedom) mgl64.Vec3 {
	switch c.GetDofContactType(dof) {
	case ContactTypeVertex, ContactTypeNone, ContactTypeUnsupported:
		return mgl64.Vec3{}
	case ContactTypeFace, ContactTypeVertexFaceSelfCollision, ContactTypeEdgeEdgeSelfCollision:
		return spatial.GradientWrtThetaPureRotation(worldScrewAxis(dof).Angular, c.Contact.Normal)
	case ContactTypeEdgeA:
		dDirA := spatial.GradientWrtThetaPureRotation(worldScrewAxis(dof).Angular, c.Contact.EdgeADir)
		return dDirA.Cross(c.Contact.EdgeBDir)
	case ContactTypeEdgeB:
		dDirB := spatial.GradientWrtThetaPureRotation(worldScrewAxis(dof).Angular, c.Contact.EdgeBDir)
		return c.Contact.EdgeADir.Cross(dDirB)
	default:
		return mgl64.Vec3{}
	}
}

// ContactForceGradient is d(force direction)/d(qd): the normal gradient
// itself for basis 0, otherwise its image through the ODE tangent basis'
// own gradient. Short-circuits to zero when the normal gradient is
// negligible, avoiding a spurious tangent-frame rotation at machine noise.
func (c *DifferentiableContactConstraint) ContactForceGradient(dof *skeleton.DegreeOfFreedom) mgl64.Vec3 {
	switch c.GetDofContactType(dof) {
	case ContactTypeVertex, ContactTypeNone, ContactTypeUnsupported:
		return mgl64.Vec3{}
	}

	normalGrad := c.ContactNormalGradient(dof)
	if c.Basis == 0 || normalGrad.Dot(normalGrad) <= 1e-12 {
		return normalGrad
	}
	dt1, dt2 := spatial.TangentBasisODEGradient(c.Contact.Normal, normalGrad)
	if c.Basis == 1 {
		return dt1
	}
	return dt2
}

// ContactWorldForceGradient is d(worldForce)/d(qd): product rule on
// [point x dir; dir].
func (c *DifferentiableContactConstraint) ContactWorldForceGradient(dof *skeleton.DegreeOfFreedom) spatial.Wrench {
	position := c.ContactWorldPosition()
	dir := c.ContactWorldForceDirection()
	forceGrad := c.ContactForceGradient(dof)
	positionGrad := c.ContactPositionGradient(dof)
	return spatial.Wrench{
		Torque: position.Cross(forceGrad).Add(positionGrad.Cross(dir)),
		Force:  forceGrad,
	}
}

// EdgeData holds the gradients of an edge-edge contact's two fixed points
// and two directions with respect to a single dof; every field is zero
// except the pair belonging to whichever edge that dof's DofContactType
// says moves.
type EdgeData struct {
	EdgeAPoint, EdgeADir mgl64.Vec3
	EdgeBPoint, EdgeBDir mgl64.Vec3
}

// EdgeGradient returns the edge-edge gradient data for dof, populated only
// for EDGE_A, EDGE_B, and EDGE_EDGE_SELF_COLLISION dof-contact types.
func (c *DifferentiableContactConstraint) EdgeGradient(dof *skeleton.DegreeOfFreedom) EdgeData {
	var data EdgeData
	typ := c.GetDofContactType(dof)
	if typ != ContactTypeEdgeA && typ != ContactTypeEdgeB && typ != ContactTypeEdgeEdgeSelfCollision {
		return data
	}

	twist := worldScrewAxis(dof)
	if typ == ContactTypeEdgeA || typ == ContactTypeEdgeEdgeSelfCollision {
		data.EdgeAPoint = spatial.GradientWrtTheta(twist, c.Contact.EdgeAPoint)
		data.EdgeADir = spatial.GradientWrtThetaPureRotation(twist.Angular, c.Contact.EdgeADir)
	}
	if typ == ContactTypeEdgeB || typ == ContactTypeEdgeEdgeSelfCollision {
		data.EdgeBPoint = spatial.GradientWrtTheta(twist, c.Contact.EdgeBPoint)
		data.EdgeBDir = spatial.GradientWrtThetaPureRotation(twist.Angular, c.Contact.EdgeBDir)
	}
	return data
}

// ScrewAxisGradient is d(screw(screwDof))/d(q of rotateDof): zero unless
// rotateDof is an ancestor of screwDof, in which case rotating rotateDof
// transports screwDof's axis by the Lie bracket of the two world screws.
func (c *DifferentiableContactConstraint) ScrewAxisGradient(screwDof, rotateDof *skeleton.DegreeOfFreedom) spatial.Twist {
	if rotateDof.Skel != screwDof.Skel || !rotateDof.Skel.DofIsParentOfDof(rotateDof, screwDof) {
		return spatial.Twist{}
	}
	return spatial.Ad(worldScrewAxis(rotateDof), worldScrewAxis(screwDof))
}

// ContactPositionJacobian is the 3xN Jacobian of the contact position with
// respect to every dof in dofs.
func (c *DifferentiableContactConstraint) ContactPositionJacobian(dofs []*skeleton.DegreeOfFreedom) [][]float64 {
	jac := newMatrix(3, len(dofs))
	for col, dof := range dofs {
		setColumn3(jac, col, c.ContactPositionGradient(dof))
	}
	return jac
}

// ContactForceDirectionJacobian is the 3xN Jacobian of the force direction.
func (c *DifferentiableContactConstraint) ContactForceDirectionJacobian(dofs []*skeleton.DegreeOfFreedom) [][]float64 {
	jac := newMatrix(3, len(dofs))
	for col, dof := range dofs {
		setColumn3(jac, col, c.ContactForceGradient(dof))
	}
	return jac
}

// ContactForceJacobian is the 6xN Jacobian of the full [torque; force]
// wrench: rows 0-2 from the product rule on point x dir, rows 3-5 the force
// direction Jacobian.
func (c *DifferentiableContactConstraint) ContactForceJacobian(dofs []*skeleton.DegreeOfFreedom) [][]float64 {
	pos := c.ContactWorldPosition()
	dir := c.ContactWorldForceDirection()
	posJac := c.ContactPositionJacobian(dofs)
	dirJac := c.ContactForceDirectionJacobian(dofs)

	jac := newMatrix(6, len(dofs))
	for col := range dofs {
		posGrad := column3(posJac, col)
		dirGrad := column3(dirJac, col)
		torqueGrad := pos.Cross(dirGrad).Add(posGrad.Cross(dir))
		setColumn3(jac, col, torqueGrad)
		jac[3][col], jac[4][col], jac[5][col] = dirGrad.X(), dirGrad.Y(), dirGrad.Z()
	}
	return jac
}

// ConstraintForceDerivative is d(constraintForce(dof))/d(q of wrt), the
// full product rule on multiple(dof) * (screw(dof) . worldForce).
func (c *DifferentiableContactConstraint) ConstraintForceDerivative(dof, wrt *skeleton.DegreeOfFreedom) float64 {
	multiple := c.ForceMultiple(dof)
	if multiple == 0 {
		return 0
	}
	worldForce := c.WorldForce()
	forceGrad := c.ContactWorldForceGradient(wrt)
	screwGrad := c.ScrewAxisGradient(dof, wrt)
	twist := worldScrewAxis(dof)
	return (twist.Dot(forceGrad) + screwGrad.Dot(worldForce)) * multiple
}

// ConstraintForcesJacobian is the len(rowDofs) x len(wrtDofs) Jacobian of
// the generalized constraint force on rowDofs with respect to wrtDofs. The
// skeleton/world/multi-skeleton overloads of the original all reduce to
// this one signature: callers pass whichever dof slice they need rows or
// columns over.
func (c *DifferentiableContactConstraint) ConstraintForcesJacobian(rowDofs, wrtDofs []*skeleton.DegreeOfFreedom) [][]float64 {
	forceJac := c.ContactForceJacobian(wrtDofs)
	force := c.WorldForce()

	result := newMatrix(len(rowDofs), len(wrtDofs))
	for row, rowDof := range rowDofs {
		axis := worldScrewAxis(rowDof)
		multiple := c.ForceMultiple(rowDof)
		for col, wrtDof := range wrtDofs {
			screwGrad := c.ScrewAxisGradient(rowDof, wrtDof)
			forceGrad := spatial.Wrench{
				Torque: mgl64.Vec3{forceJac[0][col], forceJac[1][col], forceJac[2][col]},
				Force:  mgl64.Vec3{forceJac[3][col], forceJac[4][col], forceJac[5][col]},
			}
			result[row][col] = multiple * (screwGrad.Dot(force) + axis.Dot(forceGrad))
		}
	}
	return result
}

// SetOffsetIntoWorld records where this constraint sits in its owning
// BackpropSnapshot's clamping or upper-bound list, so a perturbed re-run can
// find the matching constraint by PeerConstraint.
func (c *DifferentiableContactConstraint) SetOffsetIntoWorld(offset int, isUpperBound bool) {
	c.OffsetIntoWorld = offset
	c.IsUpperBoundConstraint = isUpperBound
}

// PeerConstraint looks up the constraint in snapshot occupying this
// constraint's recorded offset and clamping/upper-bound slot — the
// mechanism the finite-difference validator uses to compare the same
// logical contact row across a perturbed re-run.
func (c *DifferentiableContactConstraint) PeerConstraint(snapshot *BackpropSnapshot) *DifferentiableContactConstraint {
	if c.IsUpperBoundConstraint {
		if c.OffsetIntoWorld >= len(snapshot.UpperBoundConstraints) {
			return nil
		}
		return snapshot.UpperBoundConstraints[c.OffsetIntoWorld]
	}
	if c.OffsetIntoWorld >= len(snapshot.ClampingConstraints) {
		return nil
	}
	return snapshot.ClampingConstraints[c.OffsetIntoWorld]
}

func newMatrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

func setColumn3(m [][]float64, col int, v mgl64.Vec3) {
	m[0][col], m[1][col], m[2][col] = v.X(), v.Y(), v.Z()
}

func column3(m [][]float64, col int) mgl64.Vec3 {
	return mgl64.Vec3{m[0][col], m[1][col], m[2][col]}
}
