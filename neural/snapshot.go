package neural

import (
	"math"

	"github.com/lindqvist/diffphys/collision"
	"github.com/lindqvist/diffphys/constraint"
	"github.com/lindqvist/diffphys/skeleton"
)

// ActiveSet is the LCP's three-way partition of a constraint row after a
// solve: CLAMPING rows carry a freely-solved force strictly inside their
// box, UPPER_BOUND rows sit pinned at their (possibly friction-coupled)
// bound, and NOT_CLAMPING rows carry zero force and a strictly positive
// complementary residual.
type ActiveSet int

const (
	NotClamping ActiveSet = iota
	Clamping
	UpperBound
)

// ClassifiedConstraint pairs a differentiable contact row with the active
// set it fell into after the step's LCP solve.
type ClassifiedConstraint struct {
	Constraint *DifferentiableContactConstraint
	Set        ActiveSet
	Impulse    float64
}

// BackpropSnapshot captures everything needed to reconstruct the five
// canonical step-to-step Jacobians: the pre/post step state, the mass
// matrix at the pre-step pose, and the differentiable constraints generated
// that step, already classified into their active set.
type BackpropSnapshot struct {
	Group  *skeleton.Group
	DeltaT float64

	PreStepQ, PreStepQDot, PreStepTorques, PreConstraintVelocities []float64
	PostStepQ, PostStepQDot, PostStepTorques                       []float64

	MassMatrix, InvMassMatrix [][]float64

	ClampingConstraints    []*DifferentiableContactConstraint
	UpperBoundConstraints  []*DifferentiableContactConstraint
	NotClampingConstraints []*DifferentiableContactConstraint

	clampingImpulses []float64
	upperImpulses    []float64

	UnsupportedRows []int
	Degraded        bool

	// Workers bounds the goroutine fan-out constrainedForceGradient uses to
	// build each row's n x n ConstraintForcesJacobian concurrently. Zero
	// means sequential. World sets this to its own worker count after
	// construction; tests and other direct callers leave it at zero.
	Workers int
}

func (snap *BackpropSnapshot) workerCount() int {
	if snap.Workers < 1 {
		return 1
	}
	return snap.Workers
}

// NewBackpropSnapshot builds a snapshot from a solved constraint.System: it
// walks the system's rows, builds one DifferentiableContactConstraint per
// row, classifies it by where its solved impulse landed relative to its
// box, and records its offset into the clamping/upper-bound list so a later
// perturbed re-run's peer constraint can be found by PeerConstraint.
func NewBackpropSnapshot(group *skeleton.Group, sys *constraint.System, deltaT float64, preQ, preQDot, preTorques, preConstraintVelocities []float64, converged bool) *BackpropSnapshot {
	current := group.Q()
	group.SetQ(preQ)
	group.ForwardKinematics()
	preMass := group.MassMatrix()
	group.SetQ(current)
	group.ForwardKinematics()

	snap := &BackpropSnapshot{
		Group:                   group,
		DeltaT:                  deltaT,
		PreStepQ:                append([]float64{}, preQ...),
		PreStepQDot:             append([]float64{}, preQDot...),
		PreStepTorques:          append([]float64{}, preTorques...),
		PreConstraintVelocities: append([]float64{}, preConstraintVelocities...),
		MassMatrix:              preMass,
		Degraded:                !converged,
	}
	snap.InvMassMatrix, _ = invert(snap.MassMatrix)

	if sys == nil {
		return snap
	}

	for i, row := range sys.Rows {
		c := NewDifferentiableContactConstraint(*row.Contact, row.PointIndex, row.Basis)
		if row.Contact.Type == collision.ContactUnsupported {
			snap.UnsupportedRows = append(snap.UnsupportedRows, i)
		}

		lo, hi := sys.Lo[i], sys.Hi[i]
		if i < len(sys.Findex) && sys.Findex[i] >= 0 {
			// Friction row: the solver's box is the coefficient scaled by
			// the coupled normal row's impulse magnitude.
			scale := math.Abs(sys.X[sys.Findex[i]])
			lo, hi = lo*scale, hi*scale
		}
		switch classifyRow(sys.X[i], lo, hi) {
		case Clamping:
			c.SetOffsetIntoWorld(len(snap.ClampingConstraints), false)
			snap.ClampingConstraints = append(snap.ClampingConstraints, c)
			snap.clampingImpulses = append(snap.clampingImpulses, sys.X[i])
		case UpperBound:
			c.SetOffsetIntoWorld(len(snap.UpperBoundConstraints), true)
			snap.UpperBoundConstraints = append(snap.UpperBoundConstraints, c)
			snap.upperImpulses = append(snap.upperImpulses, sys.X[i])
		default:
			snap.NotClampingConstraints = append(snap.NotClampingConstraints, c)
		}
	}

	return snap
}

const activeSetEps = 1e-9

// classifyRow reproduces the LCP's own complementarity test: a row with
// zero solved force is not clamping; a row strictly inside its box is
// clamping; anything else has saturated a bound.
func classifyRow(x, lo, hi float64) ActiveSet {
	if x == 0 {
		return NotClamping
	}
	if x > lo+activeSetEps && x < hi-activeSetEps {
		return Clamping
	}
	return UpperBound
}

// RecordPostStep fills in the integrated state a completed step produced.
func (snap *BackpropSnapshot) RecordPostStep(postQ, postQDot, postTorques []float64) {
	snap.PostStepQ = append([]float64{}, postQ...)
	snap.PostStepQDot = append([]float64{}, postQDot...)
	snap.PostStepTorques = append([]float64{}, postTorques...)
}

// clampingJacobian is the n_clamp x n contact Jacobian: row i is clamping
// constraint i's generalized constraint force direction over every dof.
func (snap *BackpropSnapshot) clampingJacobian() [][]float64 {
	dofs := snap.Group.Dofs()
	jac := newMatrix(len(snap.ClampingConstraints), len(dofs))
	for i, c := range snap.ClampingConstraints {
		copy(jac[i], c.ConstraintForces(dofs))
	}
	return jac
}

func (snap *BackpropSnapshot) upperBoundJacobian() [][]float64 {
	dofs := snap.Group.Dofs()
	jac := newMatrix(len(snap.UpperBoundConstraints), len(dofs))
	for i, c := range snap.UpperBoundConstraints {
		copy(jac[i], c.ConstraintForces(dofs))
	}
	return jac
}

// projector returns I - Minv*J^T*(J*Minv*J^T)^-1*J for the clamping
// Jacobian J, or plain identity when there are no clamping rows: the LCP
// contributed nothing and the full velocity passes through unconstrained.
func (snap *BackpropSnapshot) projector() ([][]float64, error) {
	n := snap.Group.NumDofs()
	if len(snap.ClampingConstraints) == 0 {
		return identity(n), nil
	}

	j := snap.clampingJacobian()
	jt := transpose(j)
	minvJt := matMul(snap.InvMassMatrix, jt)
	delassus := matMul(j, minvJt)

	delassusInv, err := invert(delassus)
	if err != nil {
		return nil, err
	}

	reaction := matMul(minvJt, matMul(delassusInv, j))
	return matSub(identity(n), reaction), nil
}

// VelVelJacobian is d(qdot_{k+1})/d(qdot_k).
func (snap *BackpropSnapshot) VelVelJacobian() ([][]float64, error) {
	return snap.projector()
}

// ForceVelJacobian is d(qdot_{k+1})/d(tau_k) = dt * VelVel * Minv.
func (snap *BackpropSnapshot) ForceVelJacobian() ([][]float64, error) {
	proj, err := snap.projector()
	if err != nil {
		return nil, err
	}
	return matScale(matMul(proj, snap.InvMassMatrix), snap.DeltaT), nil
}

// VelPosJacobian is d(q_{k+1})/d(qdot_k) = dt * VelVel.
func (snap *BackpropSnapshot) VelPosJacobian() ([][]float64, error) {
	velVel, err := snap.VelVelJacobian()
	if err != nil {
		return nil, err
	}
	return matScale(velVel, snap.DeltaT), nil
}

// PosPosJacobian is d(q_{k+1})/d(q_k) = I + dt * PosVel.
func (snap *BackpropSnapshot) PosPosJacobian() ([][]float64, error) {
	posVel, err := snap.PosVelJacobian()
	if err != nil {
		return nil, err
	}
	n := snap.Group.NumDofs()
	return matAdd(identity(n), matScale(posVel, snap.DeltaT)), nil
}

// PosVelJacobian is d(qdot_{k+1})/d(q_k), the sum of two terms: the
// constrained-force term, computed analytically by composing the clamping
// and upper-bound rows' position-dependent Jacobians (Component C) through
// Minv * d(J^T)/dq * impulse; and the unconstrained term, the sensitivity of the free
// pre-constraint velocity q_dot* to q, obtained by central finite
// difference over the mass matrix and generalized bias/gravity force
// (Component A), the same numerical route skeleton.BiasForce already takes
// for its own q-derivative. The omitted term — how perturbing q changes the
// LCP's solved impulse itself, i.e. d(f_c)/dq through d(b)/dq — is treated
// as a second-order correction and dropped; see DESIGN.md.
func (snap *BackpropSnapshot) PosVelJacobian() ([][]float64, error) {
	n := snap.Group.NumDofs()
	jac := newMatrix(n, n)

	unconstrained, err := snap.unconstrainedVelocityGradient()
	if err != nil {
		return nil, err
	}
	for i := range jac {
		copy(jac[i], unconstrained[i])
	}

	constrained := snap.constrainedForceGradient()
	return matAdd(jac, constrained), nil
}

// constrainedRow pairs a clamping or upper-bound constraint with its solved
// impulse for constrainedForceGradient's fan-out.
type constrainedRow struct {
	index      int
	constraint *DifferentiableContactConstraint
	impulse    float64
}

// constrainedForceGradient is Minv * sum_rows d(J_row^T)/dq * impulse_row,
// summed over both clamping rows (freely solved) and upper-bound rows
// (fixed magnitude, but still q-dependent direction). Each row's n x n
// ConstraintForcesJacobian only reads contact/dof geometry and the
// skeleton's current pose, never writing Q or QDot, so the per-row builds are run concurrently across
// snap.Workers goroutines and only summed into accum afterward.
func (snap *BackpropSnapshot) constrainedForceGradient() [][]float64 {
	dofs := snap.Group.Dofs()
	n := len(dofs)

	rows := make([]constrainedRow, 0, len(snap.ClampingConstraints)+len(snap.UpperBoundConstraints))
	for i, c := range snap.ClampingConstraints {
		rows = append(rows, constrainedRow{index: len(rows), constraint: c, impulse: snap.clampingImpulses[i]})
	}
	for i, c := range snap.UpperBoundConstraints {
		rows = append(rows, constrainedRow{index: len(rows), constraint: c, impulse: snap.upperImpulses[i]})
	}

	contributions := make([][][]float64, len(rows))
	parallelFor(snap.workerCount(), rows, func(r constrainedRow) {
		dJ := r.constraint.ConstraintForcesJacobian(dofs, dofs) // n x n, [row][wrt]
		scaled := newMatrix(n, n)
		for row := 0; row < n; row++ {
			for wrt := 0; wrt < n; wrt++ {
				scaled[row][wrt] = dJ[row][wrt] * r.impulse
			}
		}
		contributions[r.index] = scaled
	})

	accum := newMatrix(n, n)
	for _, contribution := range contributions {
		for row := 0; row < n; row++ {
			for wrt := 0; wrt < n; wrt++ {
				accum[row][wrt] += contribution[row][wrt]
			}
		}
	}

	return matMul(snap.InvMassMatrix, accum)
}

const posVelFdEps = 1e-6

// unconstrainedVelocityGradient finite-differences q_dot* = qdot_k + dt *
// Minv(q) * (tau_k - C(q, qdot_k) + G(q)) with respect to q, holding qdot_k
// and tau_k fixed at their pre-step values. G(q) is skeleton.GravityForce,
// already the signed generalized force gravity contributes, so it adds
// rather than subtracts.
func (snap *BackpropSnapshot) unconstrainedVelocityGradient() ([][]float64, error) {
	group := snap.Group
	n := group.NumDofs()
	jac := newMatrix(n, n)
	if n == 0 {
		return jac, nil
	}

	savedQ := group.Q()
	savedQDot := group.QDot()
	defer func() {
		group.SetQ(savedQ)
		group.SetQDot(savedQDot)
		group.ForwardKinematics()
	}()
	group.SetQDot(snap.PreStepQDot)

	evaluate := func() ([]float64, error) {
		group.ForwardKinematics()
		minv, err := invert(group.MassMatrix())
		if err != nil {
			return nil, err
		}
		bias := group.BiasForce()
		gravity := group.GravityForce()
		net := make([]float64, n)
		for i := range net {
			net[i] = snap.PreStepTorques[i] - bias[i] + gravity[i]
		}
		return matVec(minv, net), nil
	}

	baseQ := snap.PreStepQ
	for k := 0; k < n; k++ {
		group.SetQ(baseQ)
		group.SetQAt(k, baseQ[k]+posVelFdEps)
		plus, err := evaluate()
		if err != nil {
			return nil, err
		}

		group.SetQ(baseQ)
		group.SetQAt(k, baseQ[k]-posVelFdEps)
		minus, err := evaluate()
		if err != nil {
			return nil, err
		}

		for row := 0; row < n; row++ {
			jac[row][k] = snap.DeltaT * (plus[row] - minus[row]) / (2 * posVelFdEps)
		}
	}

	return jac, nil
}
