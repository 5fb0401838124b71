package neural

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"

	"github.com/lindqvist/diffphys/collision"
	"github.com/lindqvist/diffphys/constraint"
	"github.com/lindqvist/diffphys/skeleton"
)

// ballOnPlaneScene builds a static ground plane and one free sphere resting
// exactly on it, with a given tangential (x-axis) velocity. The sphere sits
// at the plane's surface (y = radius) so the resulting contact is genuinely
// resting, not falling, letting the friction row's active set depend only
// on tangentVelocity.
func ballOnPlaneScene(tangentVelocity float64) (skel *skeleton.Skeleton, ground, ball *skeleton.Body) {
	skel = skeleton.NewSkeleton("incline", mgl64.Vec3{0, -9.8, 0})

	ground = skeleton.NewBody("ground", &skeleton.Plane{Normal: mgl64.Vec3{0, 1, 0}, Distance: 0},
		math.Inf(1), skeleton.Material{StaticFriction: 0.5, DynamicFriction: 0.5})
	skel.AddBody(ground)

	ball = skeleton.NewBody("ball", &skeleton.Sphere{Radius: 1},
		1, skeleton.Material{Restitution: 0, StaticFriction: 0.5, DynamicFriction: 0.5})
	skel.AddBody(ball)
	skel.AddJoint(skeleton.NewFreeJoint("ball_joint", ground.Index, ball.Index))

	skel.Q[4] = 1.0                // y-translation: resting exactly on the plane
	skel.QDot[3] = tangentVelocity // x-translation rate

	skel.ForwardKinematics()
	return skel, ground, ball
}

// ballPlaneContact builds a VertexFace contact whose point tracks ball's
// world position rigidly, the same closed-form-friendly construction
// findiff_test.go's bodyOriginContact uses.
func ballPlaneContact(ground, ball *skeleton.Body) collision.Contact {
	return collision.Contact{
		BodyA:  ground,
		BodyB:  ball,
		Normal: mgl64.Vec3{0, 1, 0},
		Type:   collision.ContactVertexFace,
		Points: []collision.ContactPoint{{Position: ball.Transform.Position, Penetration: 0}},
	}
}

// stepScene runs one full forward step from (q, qdot, tau): integrate
// unconstrained forces, resolve contacts' LCP, and integrate position,
// returning the post-step state and the snapshot the step produced. It
// mirrors the root package's World.Step, inlined here to avoid an import
// cycle back into this package.
func stepScene(group *skeleton.Group, contacts []collision.Contact, dt float64, q, qdot, tau []float64) (postQ, postQDot []float64, snap *BackpropSnapshot, err error) {
	group.SetQ(q)
	group.SetQDot(qdot)
	group.ForwardKinematics()

	preQ := group.Q()
	preQDot := group.QDot()

	n := group.NumDofs()
	minv, err := invert(group.MassMatrix())
	if err != nil {
		return nil, nil, nil, err
	}
	bias := group.BiasForce()
	gravity := group.GravityForce()
	net := make([]float64, n)
	for i := 0; i < n; i++ {
		net[i] = tau[i] - bias[i] + gravity[i]
	}
	accel := matVec(minv, net)
	unconstrainedQDot := append([]float64{}, preQDot...)
	for i := 0; i < n; i++ {
		unconstrainedQDot[i] += dt * accel[i]
	}
	group.SetQDot(unconstrainedQDot)

	solver := constraint.NewSolver()
	sys, converged, err := solver.Resolve(group, contacts)
	if err != nil {
		return nil, nil, nil, err
	}

	qAfter := group.Q()
	qdotAfter := group.QDot()
	for i := range qAfter {
		qAfter[i] += dt * qdotAfter[i]
	}
	group.SetQ(qAfter)
	group.ForwardKinematics()

	snap = NewBackpropSnapshot(group, sys, dt, preQ, preQDot, tau, unconstrainedQDot, converged)
	snap.RecordPostStep(group.Q(), group.QDot(), tau)
	return group.Q(), group.QDot(), snap, nil
}

// TestSnapshotDistinguishesSlidingFromArrestedFriction checks the two
// regimes a contact's friction row goes through: a tangential velocity far
// beyond what one step's friction cone can arrest (bound = dynamicFriction
// * normalImpulse) survives the step mostly unchanged, while a tangential
// velocity small enough to fit inside that cone gets fully absorbed. Both
// scenarios clamp their normal row, since the ball is resting on, not
// falling through, the plane.
func TestSnapshotDistinguishesSlidingFromArrestedFriction(t *testing.T) {
	skelSliding, groundSliding, ballSliding := ballOnPlaneScene(5.0)
	groupSliding := skeleton.NewGroup(skelSliding)
	_, postQDotSliding, slidingSnap, err := stepScene(groupSliding, []collision.Contact{ballPlaneContact(groundSliding, ballSliding)},
		0.01, skelSliding.Q, skelSliding.QDot, make([]float64, groupSliding.NumDofs()))
	if err != nil {
		t.Fatalf("stepScene(sliding) error = %v", err)
	}

	skelResting, groundResting, ballResting := ballOnPlaneScene(0.02)
	groupResting := skeleton.NewGroup(skelResting)
	_, postQDotResting, restingSnap, err := stepScene(groupResting, []collision.Contact{ballPlaneContact(groundResting, ballResting)},
		0.01, skelResting.Q, skelResting.QDot, make([]float64, groupResting.NumDofs()))
	if err != nil {
		t.Fatalf("stepScene(resting) error = %v", err)
	}

	if len(slidingSnap.ClampingConstraints) == 0 {
		t.Errorf("expected the normal row to clamp while the ball slides, got none")
	}
	if len(restingSnap.ClampingConstraints) == 0 {
		t.Errorf("expected the normal row to clamp while the ball rests, got none")
	}

	if got := postQDotSliding[3]; got < 4.0 {
		t.Errorf("expected the fast tangential slide to mostly survive one step's limited friction impulse, post-step x-velocity = %v, want close to 5.0", got)
	}
	if got := postQDotResting[3]; math.Abs(got) > 1e-6 {
		t.Errorf("expected the slow tangential velocity to be fully absorbed within the friction cone, post-step x-velocity = %v, want ~0", got)
	}
}

// freeFallingPairScene builds two free-floating, non-colliding bodies under
// gravity with nonzero initial angular and linear velocity, so BiasForce's
// Coriolis terms are actually exercised. With no contacts, PosPosJacobian
// and PosVelJacobian reduce exactly to their finite-differenced
// unconstrained term (constrainedForceGradient is exactly zero when there
// are no clamping or upper-bound rows), making a full perturb-and-rerun
// comparison a test of that FD machinery's internal consistency rather than
// of the contact terms, including the impulse-sensitivity term the package's
// own docs note is dropped as a second-order correction.
func freeFallingPairScene() (group *skeleton.Group, q, qdot, tau []float64) {
	skel, _, _, _ := twoFreeBodies()
	group = skeleton.NewGroup(skel)
	n := group.NumDofs()

	qdot = make([]float64, n)
	qdot[0], qdot[1] = 0.3, -0.2
	qdot[9] = 0.5

	tau = make([]float64, n)
	return group, append([]float64{}, skel.Q...), qdot, tau
}

// TestPosPosJacobianMatchesFiniteDifference checks PosPosJacobian against a
// full finite-difference rerun of the step.
func TestPosPosJacobianMatchesFiniteDifference(t *testing.T) {
	dt := 0.01
	group, q, qdot, tau := freeFallingPairScene()

	_, _, snap, err := stepScene(group, nil, dt, q, qdot, tau)
	if err != nil {
		t.Fatalf("stepScene() error = %v", err)
	}

	analytical, err := snap.PosPosJacobian()
	if err != nil {
		t.Fatalf("PosPosJacobian() error = %v", err)
	}

	rerun := func(rq, rqdot, rtau []float64) (postQ, postQDot []float64, err error) {
		postQ, postQDot, _, err = stepScene(group, nil, dt, rq, rqdot, rtau)
		return postQ, postQDot, err
	}

	brute, err := snap.FiniteDifferencePosPosJacobian(rerun)
	if err != nil {
		t.Fatalf("FiniteDifferencePosPosJacobian() error = %v", err)
	}

	n := group.NumDofs()
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			assert.InDelta(t, brute[row][col], analytical[row][col], 1e-5,
				"PosPosJacobian[%d][%d]", row, col)
		}
	}
}

// TestPosVelJacobianMatchesFiniteDifference is the velocity-level sibling of
// the above, brute-forcing d(qdot_{k+1})/d(q_k) directly by perturbing the
// pre-step q and re-running the whole step.
func TestPosVelJacobianMatchesFiniteDifference(t *testing.T) {
	dt := 0.01
	group, q, qdot, tau := freeFallingPairScene()

	_, _, snap, err := stepScene(group, nil, dt, q, qdot, tau)
	if err != nil {
		t.Fatalf("stepScene() error = %v", err)
	}

	analytical, err := snap.PosVelJacobian()
	if err != nil {
		t.Fatalf("PosVelJacobian() error = %v", err)
	}

	rerun := func(rq, rqdot, rtau []float64) (postQ, postQDot []float64, err error) {
		postQ, postQDot, _, err = stepScene(group, nil, dt, rq, rqdot, rtau)
		return postQ, postQDot, err
	}

	n := group.NumDofs()
	baseQ := append([]float64{}, snap.PreStepQ...)

	const eps = 1e-6
	for col := 0; col < n; col++ {
		qPlus := append([]float64{}, baseQ...)
		qPlus[col] += eps
		_, postQDotPlus, err := rerun(qPlus, snap.PreStepQDot, snap.PreStepTorques)
		if err != nil {
			t.Fatalf("rerun(+eps) error = %v", err)
		}

		qMinus := append([]float64{}, baseQ...)
		qMinus[col] -= eps
		_, postQDotMinus, err := rerun(qMinus, snap.PreStepQDot, snap.PreStepTorques)
		if err != nil {
			t.Fatalf("rerun(-eps) error = %v", err)
		}

		for row := 0; row < n; row++ {
			want := (postQDotPlus[row] - postQDotMinus[row]) / (2 * eps)
			assert.InDelta(t, want, analytical[row][col], 1e-5, "PosVelJacobian[%d][%d]", row, col)
		}
	}
}
