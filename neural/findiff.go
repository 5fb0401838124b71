package neural

import "github.com/lindqvist/diffphys/skeleton"

// FiniteDifferenceValidator is the brute-force reference path every
// analytical Jacobian in this package is checked against: perturb one
// coordinate, re-run the forward pass, divide by the perturbation. It exists
// only for tests — nothing in the forward simulation depends on it.
//
// Rerun re-detects collisions, rebuilds and solves the LCP, and returns a
// fresh snapshot at the skeleton's *current* Q/QDot; the validator owns
// perturbing Q and restoring it, not the collision/LCP machinery, which
// belongs to the world layer above this package.
type FiniteDifferenceValidator struct {
	Group *skeleton.Group
	Rerun func() (*BackpropSnapshot, error)
}

func NewFiniteDifferenceValidator(group *skeleton.Group, rerun func() (*BackpropSnapshot, error)) *FiniteDifferenceValidator {
	return &FiniteDifferenceValidator{Group: group, Rerun: rerun}
}

// positionEps is the perturbation size for every Jacobian taken with
// respect to a generalized coordinate.
const positionEps = 1e-6

// constraintForceEps is the (tighter) perturbation size used specifically
// for the constraint-force Jacobian, matching the asymmetry the source
// validator uses between position-level and force-level probes.
const constraintForceEps = 1e-7

// ContactPositionJacobian brute-forces d(contact point)/dq by perturbing
// each dof of Group.Dofs(), re-running the forward pass, and locating c's
// peer constraint in the fresh snapshot. A perturbation that changes
// active-set or feature membership invalidates the peer; that column is
// left at zero and the caller should not trust it as a check.
func (v *FiniteDifferenceValidator) ContactPositionJacobian(c *DifferentiableContactConstraint) ([][]float64, error) {
	base := c.ContactWorldPosition()
	return v.probe(c, positionEps, func(peer *DifferentiableContactConstraint) []float64 {
		d := peer.ContactWorldPosition().Sub(base)
		return []float64{d.X(), d.Y(), d.Z()}
	}, 3)
}

// ContactForceDirectionJacobian brute-forces d(force direction)/dq.
func (v *FiniteDifferenceValidator) ContactForceDirectionJacobian(c *DifferentiableContactConstraint) ([][]float64, error) {
	base := c.ContactWorldForceDirection()
	return v.probe(c, positionEps, func(peer *DifferentiableContactConstraint) []float64 {
		d := peer.ContactWorldForceDirection().Sub(base)
		return []float64{d.X(), d.Y(), d.Z()}
	}, 3)
}

// ContactForceJacobian brute-forces d(worldForce)/dq, the full 6-vector.
func (v *FiniteDifferenceValidator) ContactForceJacobian(c *DifferentiableContactConstraint) ([][]float64, error) {
	base := c.WorldForce()
	return v.probe(c, positionEps, func(peer *DifferentiableContactConstraint) []float64 {
		w := peer.WorldForce()
		return []float64{
			w.Torque.X() - base.Torque.X(), w.Torque.Y() - base.Torque.Y(), w.Torque.Z() - base.Torque.Z(),
			w.Force.X() - base.Force.X(), w.Force.Y() - base.Force.Y(), w.Force.Z() - base.Force.Z(),
		}
	}, 6)
}

// ConstraintForcesJacobian brute-forces d(constraintForces)/dq at the
// tighter constraint-force epsilon.
func (v *FiniteDifferenceValidator) ConstraintForcesJacobian(c *DifferentiableContactConstraint) ([][]float64, error) {
	dofs := v.Group.Dofs()
	base := c.ConstraintForces(dofs)
	return v.probe(c, constraintForceEps, func(peer *DifferentiableContactConstraint) []float64 {
		vals := peer.ConstraintForces(dofs)
		out := make([]float64, len(vals))
		for i := range vals {
			out[i] = vals[i] - base[i]
		}
		return out
	}, len(dofs))
}

// probe is the shared perturb-rerun-diff loop: for each dof, bump Q by eps,
// rerun the forward pass, find c's peer constraint, and record delta/eps as
// one column. Rows not supplied by delta (peer missing) stay zero.
func (v *FiniteDifferenceValidator) probe(c *DifferentiableContactConstraint, eps float64, delta func(peer *DifferentiableContactConstraint) []float64, rows int) ([][]float64, error) {
	snapshot := NewRestorableSnapshot(v.Group)
	defer snapshot.Restore()

	n := v.Group.NumDofs()
	jac := newMatrix(rows, n)
	savedQ := v.Group.Q()

	for i := 0; i < n; i++ {
		v.Group.SetQ(savedQ)
		v.Group.SetQAt(i, savedQ[i]+eps)
		v.Group.ForwardKinematics()

		peerSnapshot, err := v.Rerun()
		if err != nil {
			return nil, err
		}
		peer := c.PeerConstraint(peerSnapshot)
		if peer == nil {
			continue
		}

		d := delta(peer)
		for row := 0; row < rows; row++ {
			jac[row][i] = d[row] / eps
		}
	}

	return jac, nil
}

// StepRerunner re-runs one full step from a perturbed pre-step state and
// reports the post-step position/velocity it produced. Used to brute-force
// the five snapshot-level Jacobians, which perturb state, not a single
// contact's geometry.
type StepRerunner func(q, qdot, tau []float64) (postQ, postQDot []float64, err error)

// FiniteDifferenceVelVelJacobian brute-forces d(qdot_{k+1})/d(qdot_k) by
// perturbing each entry of the snapshot's pre-step velocity and re-running
// the step through rerun, holding q_k and tau_k fixed.
func (snap *BackpropSnapshot) FiniteDifferenceVelVelJacobian(rerun StepRerunner) ([][]float64, error) {
	return snap.probeStep(rerun, snap.PreStepQDot, func(qdot []float64) ([]float64, []float64, []float64) {
		return snap.PreStepQ, qdot, snap.PreStepTorques
	}, func(_, postQDot []float64) []float64 { return postQDot })
}

// FiniteDifferenceForceVelJacobian brute-forces d(qdot_{k+1})/d(tau_k).
func (snap *BackpropSnapshot) FiniteDifferenceForceVelJacobian(rerun StepRerunner) ([][]float64, error) {
	return snap.probeStep(rerun, snap.PreStepTorques, func(tau []float64) ([]float64, []float64, []float64) {
		return snap.PreStepQ, snap.PreStepQDot, tau
	}, func(_, postQDot []float64) []float64 { return postQDot })
}

// FiniteDifferencePosPosJacobian brute-forces d(q_{k+1})/d(q_k).
func (snap *BackpropSnapshot) FiniteDifferencePosPosJacobian(rerun StepRerunner) ([][]float64, error) {
	return snap.probeStep(rerun, snap.PreStepQ, func(q []float64) ([]float64, []float64, []float64) {
		return q, snap.PreStepQDot, snap.PreStepTorques
	}, func(postQ, _ []float64) []float64 { return postQ })
}

// FiniteDifferenceVelPosJacobian brute-forces d(q_{k+1})/d(qdot_k).
func (snap *BackpropSnapshot) FiniteDifferenceVelPosJacobian(rerun StepRerunner) ([][]float64, error) {
	return snap.probeStep(rerun, snap.PreStepQDot, func(qdot []float64) ([]float64, []float64, []float64) {
		return snap.PreStepQ, qdot, snap.PreStepTorques
	}, func(postQ, _ []float64) []float64 { return postQ })
}

// probeStep perturbs each entry of `base` by posVelFdEps, assembles the
// (q, qdot, tau) triple via compose, reruns the step, and extracts whichever
// post-step vector `extract` asks for, dividing the difference from the
// unperturbed baseline by the perturbation size.
func (snap *BackpropSnapshot) probeStep(
	rerun StepRerunner,
	base []float64,
	compose func(perturbed []float64) (q, qdot, tau []float64),
	extract func(postQ, postQDot []float64) []float64,
) ([][]float64, error) {
	n := len(base)
	baseQ, baseQDot, baseTau := compose(base)
	basePostQ, basePostQDot, err := rerun(baseQ, baseQDot, baseTau)
	if err != nil {
		return nil, err
	}
	baseOut := extract(basePostQ, basePostQDot)

	jac := newMatrix(len(baseOut), n)
	perturbed := append([]float64{}, base...)
	for i := 0; i < n; i++ {
		copy(perturbed, base)
		perturbed[i] += posVelFdEps
		q, qdot, tau := compose(perturbed)
		postQ, postQDot, err := rerun(q, qdot, tau)
		if err != nil {
			return nil, err
		}
		out := extract(postQ, postQDot)
		for row := range out {
			jac[row][i] = (out[row] - baseOut[row]) / posVelFdEps
		}
	}
	return jac, nil
}
