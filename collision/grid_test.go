package collision

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lindqvist/diffphys/skeleton"
)

func drainPairs(ch <-chan Pair) []Pair {
	var pairs []Pair
	for p := range ch {
		pairs = append(pairs, p)
	}
	return pairs
}

// TestGridInsertRoutesPlaneToUnbounded checks that a ground plane's
// near-infinite AABB is kept out of the cell buckets rather than looped
// over cell-by-cell, which would otherwise span billions of cells.
func TestGridInsertRoutesPlaneToUnbounded(t *testing.T) {
	ground := skeleton.NewBody("ground", &skeleton.Plane{Normal: mgl64.Vec3{0, 1, 0}, Distance: 0}, math.Inf(1), skeleton.Material{})
	ground.Shape.ComputeAABB(ground.Transform)

	grid := NewGrid(1.0, 64)
	grid.Insert(0, ground)

	if len(grid.unbounded) != 1 || grid.unbounded[0] != 0 {
		t.Fatalf("unbounded = %v, want [0]", grid.unbounded)
	}
	for i, c := range grid.cells {
		if len(c.bodyIndices) != 0 {
			t.Fatalf("cell %d got body indices %v, want none for an unbounded body", i, c.bodyIndices)
		}
	}
}

// TestBroadPhaseFindsPlaneBodyPair checks that BroadPhase still reports the
// ground/ball pair despite the ground's AABB never entering a cell bucket.
func TestBroadPhaseFindsPlaneBodyPair(t *testing.T) {
	ground := skeleton.NewBody("ground", &skeleton.Plane{Normal: mgl64.Vec3{0, 1, 0}, Distance: 0}, math.Inf(1), skeleton.Material{})
	ball := skeleton.NewBody("ball", &skeleton.Sphere{Radius: 1}, 1, skeleton.Material{})
	ball.Transform.Position = mgl64.Vec3{0, 0.5, 0}

	bodies := []*skeleton.Body{ground, ball}
	for _, b := range bodies {
		b.Shape.ComputeAABB(b.Transform)
	}

	grid := NewGrid(1.0, 64)
	pairs := drainPairs(BroadPhase(grid, bodies, 2))

	if len(pairs) != 1 {
		t.Fatalf("got %d pairs, want 1", len(pairs))
	}
	if pairs[0].BodyA != ground || pairs[0].BodyB != ball {
		t.Errorf("pair = (%s, %s), want (ground, ball)", pairs[0].BodyA.Name, pairs[0].BodyB.Name)
	}
}

// TestBroadPhaseSkipsFarAwayBallAgainstPlane checks the AABB overlap test
// still screens out a ball far above the ground, even though the ground's
// AABB bound on that axis is a large finite sentinel rather than a true
// bound.
func TestBroadPhaseSkipsFarAwayBallAgainstPlane(t *testing.T) {
	ground := skeleton.NewBody("ground", &skeleton.Plane{Normal: mgl64.Vec3{0, 1, 0}, Distance: 0}, math.Inf(1), skeleton.Material{})
	ball := skeleton.NewBody("ball", &skeleton.Sphere{Radius: 1}, 1, skeleton.Material{})
	ball.Transform.Position = mgl64.Vec3{0, 1000, 0}

	bodies := []*skeleton.Body{ground, ball}
	for _, b := range bodies {
		b.Shape.ComputeAABB(b.Transform)
	}

	grid := NewGrid(1.0, 64)
	pairs := drainPairs(BroadPhase(grid, bodies, 1))

	if len(pairs) != 0 {
		t.Fatalf("got %d pairs, want 0 for a ball far above the ground plane's thin vertical AABB", len(pairs))
	}
}

func TestBroadPhaseSkipsTwoStaticBodies(t *testing.T) {
	groundA := skeleton.NewBody("groundA", &skeleton.Plane{Normal: mgl64.Vec3{0, 1, 0}, Distance: 0}, math.Inf(1), skeleton.Material{})
	groundB := skeleton.NewBody("groundB", &skeleton.Plane{Normal: mgl64.Vec3{0, 1, 0}, Distance: 0}, math.Inf(1), skeleton.Material{})

	bodies := []*skeleton.Body{groundA, groundB}
	for _, b := range bodies {
		b.Shape.ComputeAABB(b.Transform)
	}

	grid := NewGrid(1.0, 64)
	pairs := drainPairs(BroadPhase(grid, bodies, 1))

	if len(pairs) != 0 {
		t.Fatalf("got %d pairs, want 0 for two static planes", len(pairs))
	}
}
