package neural

import "github.com/lindqvist/diffphys/skeleton"

// RestorableSnapshot is a scoped capture of a group's generalized
// coordinates and velocities, restored on demand rather than via a stack:
// callers that nest perturbations (one RestorableSnapshot taken inside
// another's perturbed window) each get their own independent copy to return
// to, and nothing requires them to unwind in LIFO order.
//
// Generalized torque is not captured here: a skeleton never holds torque as
// persistent state, it is a per-Step argument (see World.Step), so there is
// nothing on the group for a snapshot to own or restore. Callers that
// perturb torque (BackpropSnapshot.probeStep and friends) thread it through
// explicitly alongside their own Q/QDot perturbation.
type RestorableSnapshot struct {
	group *skeleton.Group
	q     []float64
	qdot  []float64
}

// NewRestorableSnapshot captures group's current Q/QDot.
func NewRestorableSnapshot(group *skeleton.Group) *RestorableSnapshot {
	return &RestorableSnapshot{
		group: group,
		q:     group.Q(),
		qdot:  group.QDot(),
	}
}

// Restore writes the captured Q/QDot back into the group's skeletons and
// recomputes forward kinematics so Transform/SpatialVelocity agree with the
// restored pose.
func (r *RestorableSnapshot) Restore() {
	r.group.SetQ(r.q)
	r.group.SetQDot(r.qdot)
	r.group.ForwardKinematics()
}
