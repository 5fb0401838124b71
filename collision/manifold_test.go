package collision

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lindqvist/diffphys/skeleton"
)

func newPlaneBody(position mgl64.Vec3, normal mgl64.Vec3, distance float64) *skeleton.Body {
	body := skeleton.NewBody("plane", &skeleton.Plane{Normal: normal, Distance: distance}, 1.0, skeleton.Material{})
	body.Transform.Position = position
	return body
}

// classify is exercised directly with literal feature arrays below because
// Box and Plane's GetContactFeature always return a 4-point face (never a
// lone vertex or a 2-point edge) — real box/box and box/plane bodies can
// never drive classify into its vertex-face or edge-edge branches. Only a
// sphere's single-point feature reaches vertex-face through real geometry.

func TestClassifyVertexFace(t *testing.T) {
	featureA := []mgl64.Vec3{{0, 1, 0}}
	featureB := []mgl64.Vec3{{-1, 0, 1}, {-1, 0, -1}, {1, 0, -1}, {1, 0, 1}}

	c := classify(featureA, featureB)

	if c.Type != ContactVertexFace {
		t.Errorf("classify() = %v, want ContactVertexFace", c.Type)
	}
}

func TestClassifyFaceVertex(t *testing.T) {
	featureA := []mgl64.Vec3{{-1, 0, 1}, {-1, 0, -1}, {1, 0, -1}, {1, 0, 1}}
	featureB := []mgl64.Vec3{{0, 1, 0}}

	c := classify(featureA, featureB)

	if c.Type != ContactFaceVertex {
		t.Errorf("classify() = %v, want ContactFaceVertex", c.Type)
	}
}

func TestClassifyEdgeEdge(t *testing.T) {
	// Two perpendicular edges crossing near the origin, the classic
	// crossed-sticks configuration.
	featureA := []mgl64.Vec3{{-1, 0, 0}, {1, 0, 0}}
	featureB := []mgl64.Vec3{{0, 0, -1}, {0, 0, 1}}

	c := classify(featureA, featureB)

	if c.Type != ContactEdgeEdge {
		t.Fatalf("classify() = %v, want ContactEdgeEdge", c.Type)
	}
	if c.EdgeAPoint != featureA[0] {
		t.Errorf("EdgeAPoint = %v, want %v", c.EdgeAPoint, featureA[0])
	}
	if c.EdgeBPoint != featureB[0] {
		t.Errorf("EdgeBPoint = %v, want %v", c.EdgeBPoint, featureB[0])
	}

	wantDirA := mgl64.Vec3{1, 0, 0}
	wantDirB := mgl64.Vec3{0, 0, 1}
	if !vec3ApproxEqual(c.EdgeADir, wantDirA, 1e-9) {
		t.Errorf("EdgeADir = %v, want %v", c.EdgeADir, wantDirA)
	}
	if !vec3ApproxEqual(c.EdgeBDir, wantDirB, 1e-9) {
		t.Errorf("EdgeBDir = %v, want %v", c.EdgeBDir, wantDirB)
	}
	if math.Abs(c.EdgeADir.Len()-1.0) > 1e-9 {
		t.Errorf("EdgeADir is not normalized: %v", c.EdgeADir)
	}
}

func TestClassifyUnsupportedFaceFace(t *testing.T) {
	// Box.GetContactFeature and Plane.GetContactFeature both always return
	// a 4-point face, so a real box-vs-box or box-vs-plane contact lands
	// here rather than in ContactVertexFace/ContactEdgeEdge.
	featureA := []mgl64.Vec3{{-1, 1, -1}, {-1, 1, 1}, {1, 1, 1}, {1, 1, -1}}
	featureB := []mgl64.Vec3{{-1, -1, -1}, {-1, -1, 1}, {1, -1, 1}, {1, -1, -1}}

	c := classify(featureA, featureB)

	if c.Type != ContactUnsupported {
		t.Errorf("classify() = %v, want ContactUnsupported for two 4-point faces", c.Type)
	}
}

func TestClassifyUnsupportedMismatchedArities(t *testing.T) {
	featureA := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}}
	featureB := []mgl64.Vec3{{0, 1, 0}, {1, 1, 0}, {1, 1, 1}}

	c := classify(featureA, featureB)

	if c.Type != ContactUnsupported {
		t.Errorf("classify() = %v, want ContactUnsupported for a 2-point vs 3-point feature pair", c.Type)
	}
}

func TestGenerateManifoldSphereSphereSinglePoint(t *testing.T) {
	a := newSphereBody(mgl64.Vec3{0, 0, 0}, 1.0)
	b := newSphereBody(mgl64.Vec3{1.5, 0, 0}, 1.0)
	normal := mgl64.Vec3{1, 0, 0}
	const depth = 0.5

	points, contactType, _ := GenerateManifold(a, b, normal, depth)

	// Two spheres each present a single support point, so classify sees a
	// 1-vs-1 arity pair — a combination it has no case for — and falls
	// through to ContactUnsupported. GenerateManifold still produces a
	// correct single-point manifold via its own len(incident)==1 shortcut.
	if contactType != ContactUnsupported {
		t.Errorf("contactType = %v, want ContactUnsupported for a vertex-vertex sphere pair", contactType)
	}
	if len(points) != 1 {
		t.Fatalf("len(points) = %d, want 1 for a sphere-sphere contact", len(points))
	}
	if points[0].Penetration != depth {
		t.Errorf("Penetration = %v, want %v", points[0].Penetration, depth)
	}
}

func TestGenerateManifoldBoxBoxStacked(t *testing.T) {
	a := newBoxBody(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	b := newBoxBody(mgl64.Vec3{0, 1.8, 0}, mgl64.Vec3{1, 1, 1})
	normal := mgl64.Vec3{0, 1, 0}
	const depth = 0.2

	points, contactType, _ := GenerateManifold(a, b, normal, depth)

	if contactType != ContactUnsupported {
		t.Errorf("contactType = %v, want ContactUnsupported (box/box always presents two 4-point faces)", contactType)
	}
	if len(points) == 0 {
		t.Fatal("expected at least one contact point between stacked boxes")
	}
	for _, p := range points {
		if p.Penetration != depth {
			t.Errorf("Penetration = %v, want %v", p.Penetration, depth)
		}
		// The manifold is built from the incident body's feature (the
		// smaller-or-equal-arity one, here bodyB's bottom face at y=0.8),
		// clipped against bodyA's top face, not the reference face itself.
		if math.Abs(p.Position.Y()-0.8) > 1e-6 {
			t.Errorf("contact point %v not on bodyB's bottom face plane y=0.8", p.Position)
		}
	}
}

func TestGenerateManifoldBoxOnPlane(t *testing.T) {
	plane := newPlaneBody(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 1, 0}, 0)
	box := newBoxBody(mgl64.Vec3{0, 0.9, 0}, mgl64.Vec3{1, 1, 1})
	normal := mgl64.Vec3{0, 1, 0}
	const depth = 0.1

	points, contactType, _ := GenerateManifold(plane, box, normal, depth)

	if contactType != ContactUnsupported {
		t.Errorf("contactType = %v, want ContactUnsupported (plane and box both present 4-point faces)", contactType)
	}
	if len(points) != 4 {
		t.Fatalf("len(points) = %d, want 4 for a box resting flush on a plane", len(points))
	}
	for _, p := range points {
		if math.Abs(p.Position.Y()-(-0.1)) > 1e-6 {
			t.Errorf("contact point %v should lie on the box's bottom face at y=-0.1", p.Position)
		}
		if p.Penetration != depth {
			t.Errorf("Penetration = %v, want %v", p.Penetration, depth)
		}
	}
}
