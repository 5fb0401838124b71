// Package diffphys assembles the skeleton, collision, constraint, lcp and
// neural packages into a steppable differentiable rigid-body simulation.
package diffphys

import (
	"fmt"

	"github.com/lindqvist/diffphys/collision"
	"github.com/lindqvist/diffphys/constraint"
	"github.com/lindqvist/diffphys/neural"
	"github.com/lindqvist/diffphys/skeleton"
)

// DefaultWorkers is the worker-pool size used when a World's Workers field
// is left at zero.
const DefaultWorkers = 1

// World owns every skeleton in the scene and steps them forward together
// under gravity, contact and applied generalized forces, producing a
// BackpropSnapshot every step. Skeletons share no generalized coordinates,
// but a contact between bodies of two different skeletons is resolved by
// the same LCP as a contact within one skeleton: Group presents them as a
// single flat coordinate system.
type World struct {
	Skels   []*skeleton.Skeleton
	Group   *skeleton.Group
	Solver  *constraint.Solver
	Grid    *collision.Grid
	Workers int
}

// NewWorld wires a set of skeletons and a spatial grid into a
// solver-equipped World, using the default Dantzig-then-PGS solver
// pairing. Skeletons are registered in the order given; that order fixes
// the world's flat coordinate vector q.
func NewWorld(skels []*skeleton.Skeleton, grid *collision.Grid) *World {
	return &World{
		Skels:   skels,
		Group:   skeleton.NewGroup(skels...),
		Solver:  constraint.NewSolver(),
		Grid:    grid,
		Workers: DefaultWorkers,
	}
}

func (w *World) workerCount() int {
	return max(DefaultWorkers, w.Workers)
}

// Step advances the world by dt under generalized torques (nil means no
// applied torque this step): integrate unconstrained forces, detect
// contacts, solve and apply the boxed LCP, integrate positions, and return
// a BackpropSnapshot capturing everything a caller needs to differentiate
// through the step.
func (w *World) Step(dt float64, torques []float64) (*neural.BackpropSnapshot, error) {
	group := w.Group
	n := group.NumDofs()
	if torques == nil {
		torques = make([]float64, n)
	}
	if len(torques) != n {
		return nil, fmt.Errorf("diffphys: torques has length %d, want %d", len(torques), n)
	}

	group.ForwardKinematics()
	preQ := group.Q()
	preQDot := group.QDot()
	preTorques := append([]float64{}, torques...)

	if err := w.integrateForces(dt, torques); err != nil {
		return nil, err
	}
	w.applyDamping(dt)
	preConstraintVelocities := group.QDot()

	contacts := w.detectCollisions()

	sys, converged, err := w.Solver.Resolve(group, contacts)
	if err != nil {
		return nil, err
	}

	q := group.Q()
	qdot := group.QDot()
	for i := range q {
		q[i] += dt * qdot[i]
	}
	group.SetQ(q)
	group.ForwardKinematics()

	snap := neural.NewBackpropSnapshot(group, sys, dt, preQ, preQDot, preTorques, preConstraintVelocities, converged)
	snap.Workers = w.workerCount()
	snap.RecordPostStep(group.Q(), group.QDot(), torques)
	return snap, nil
}

// integrateForces applies the unconstrained Newton-Euler acceleration
// Minv(q) * (tau - C(q, qdot) + G(q)) to qdot over dt, the semi-implicit
// Euler half of the step that the boxed LCP then corrects for contacts.
func (w *World) integrateForces(dt float64, torques []float64) error {
	group := w.Group
	n := group.NumDofs()
	if n == 0 {
		return nil
	}

	minv, err := invertMassMatrix(group.MassMatrix())
	if err != nil {
		return fmt.Errorf("diffphys: mass matrix inversion failed: %w", err)
	}
	bias := group.BiasForce()
	gravity := group.GravityForce()

	net := make([]float64, n)
	for i := 0; i < n; i++ {
		net[i] = torques[i] - bias[i] + gravity[i]
	}
	accel := mulMatVec(minv, net)
	qdot := group.QDot()
	for i := 0; i < n; i++ {
		qdot[i] += dt * accel[i]
	}
	group.SetQDot(qdot)
	return nil
}

// applyDamping exponentially decays each body's generalized velocity by its
// own material's linear or angular damping coefficient, run one body per
// goroutine since each body owns a disjoint slice of its own skeleton's dof
// array (and different skeletons never share a dof at all).
func (w *World) applyDamping(dt float64) {
	parallelFor(w.workerCount(), w.Group.Bodies(), func(body *skeleton.Body) {
		if body.ParentJointIndex == -1 {
			return
		}
		skel := body.Skel
		joint := skel.Joints[body.ParentJointIndex]
		offset := skel.DofOffsetForJoint(body.ParentJointIndex)
		for i := 0; i < joint.NumDofs(); i++ {
			damping := body.Material.LinearDamping
			if isAngularDof(joint, i) {
				damping = body.Material.AngularDamping
			}
			skel.QDot[offset+i] /= 1.0 + damping*dt
		}
	})
}

// isAngularDof classifies a joint's i-th local dof as angular or linear, the
// distinction applyDamping needs to pick which of a body's two damping
// coefficients applies. FreeJoint is the only multi-dof joint in the
// package, so it is the only case requiring a per-index split.
func isAngularDof(joint skeleton.Joint, i int) bool {
	switch joint.(type) {
	case *skeleton.FreeJoint:
		return i < 3
	case *skeleton.RevoluteJoint:
		return true
	case *skeleton.PrismaticJoint:
		return false
	default:
		return false
	}
}

func (w *World) detectCollisions() []collision.Contact {
	pairs := collision.BroadPhase(w.Grid, w.Group.Bodies(), w.workerCount())
	return collision.NarrowPhase(pairs, w.workerCount())
}
