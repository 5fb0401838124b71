package spatial

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// TestClosestPointBetweenLinesSkewPerpendicular hand-computes the midpoint
// of the shortest segment between the x-axis and a vertical line offset by
// (0,1,1): the closest points are the origin and (0,1,0), so the contact
// point is their midpoint (0, 0.5, 0).
func TestClosestPointBetweenLinesSkewPerpendicular(t *testing.T) {
	pointA := mgl64.Vec3{0, 0, 0}
	dirA := mgl64.Vec3{1, 0, 0}
	pointB := mgl64.Vec3{0, 1, 1}
	dirB := mgl64.Vec3{0, 0, 1}

	got := ClosestPointBetweenLines(pointA, dirA, pointB, dirB)
	want := mgl64.Vec3{0, 0.5, 0}
	vec3ApproxEqual(t, got, want, 1e-12, "ClosestPointBetweenLines")
}

func TestClosestPointBetweenLinesParallelLinesFallBackToFixedPoints(t *testing.T) {
	pointA := mgl64.Vec3{0, 0, 0}
	dirA := mgl64.Vec3{1, 0, 0}
	pointB := mgl64.Vec3{0, 2, 0}
	dirB := mgl64.Vec3{1, 0, 0}

	// denom == a*c - b*b == 0 for parallel lines, so s = t = 0 and the
	// result is just the midpoint of the two fixed points.
	got := ClosestPointBetweenLines(pointA, dirA, pointB, dirB)
	want := mgl64.Vec3{0, 1, 0}
	vec3ApproxEqual(t, got, want, 1e-12, "ClosestPointBetweenLines(parallel)")
}

// TestContactPointGradientHandComputedCase uses the same perpendicular skew
// configuration as TestClosestPointBetweenLinesSkewPerpendicular, perturbing
// only pointA along y. Since dirA and dirB have no y-component, the y
// perturbation of pointA leaves both d and e in ClosestPointBetweenLines's
// linear system unchanged, so s and t do not move at all: the contact point
// gradient is exactly half the perturbation.
func TestContactPointGradientHandComputedCase(t *testing.T) {
	pointA := mgl64.Vec3{0, 0, 0}
	dirA := mgl64.Vec3{1, 0, 0}
	pointB := mgl64.Vec3{0, 1, 1}
	dirB := mgl64.Vec3{0, 0, 1}

	dPointA := mgl64.Vec3{0, 1, 0}

	got := ContactPointGradient(
		pointA, dPointA, dirA, mgl64.Vec3{},
		pointB, mgl64.Vec3{}, dirB, mgl64.Vec3{},
	)
	want := mgl64.Vec3{0, 0.5, 0}
	vec3ApproxEqual(t, got, want, 1e-12, "ContactPointGradient")
}

// TestContactPointGradientMatchesFiniteDifference checks the analytical
// gradient against a central finite difference of ClosestPointBetweenLines
// itself, for a generic (non-perpendicular) skew configuration where s and
// t both move under the perturbation.
func TestContactPointGradientMatchesFiniteDifference(t *testing.T) {
	pointA := mgl64.Vec3{0.3, -0.1, 0.2}
	dirA := mgl64.Vec3{1, 0.4, 0}
	pointB := mgl64.Vec3{-0.2, 0.5, 1.1}
	dirB := mgl64.Vec3{0.1, 0, 1}

	dPointA := mgl64.Vec3{0.7, -0.3, 0.2}
	dDirA := mgl64.Vec3{0.1, 0.2, -0.1}

	got := ContactPointGradient(
		pointA, dPointA, dirA, dDirA,
		pointB, mgl64.Vec3{}, dirB, mgl64.Vec3{},
	)

	eps := 1e-6
	plus := ClosestPointBetweenLines(pointA.Add(dPointA.Mul(eps)), dirA.Add(dDirA.Mul(eps)), pointB, dirB)
	minus := ClosestPointBetweenLines(pointA.Sub(dPointA.Mul(eps)), dirA.Sub(dDirA.Mul(eps)), pointB, dirB)
	want := plus.Sub(minus).Mul(1 / (2 * eps))

	vec3ApproxEqual(t, got, want, 1e-4, "ContactPointGradient vs finite difference")
}

func TestContactPointGradientZeroWhenNothingMoves(t *testing.T) {
	pointA := mgl64.Vec3{1, 2, 3}
	dirA := mgl64.Vec3{1, 0, 0}
	pointB := mgl64.Vec3{0, 1, 0}
	dirB := mgl64.Vec3{0, 0, 1}

	got := ContactPointGradient(
		pointA, mgl64.Vec3{}, dirA, mgl64.Vec3{},
		pointB, mgl64.Vec3{}, dirB, mgl64.Vec3{},
	)
	if got.Len() > 1e-12 {
		t.Errorf("ContactPointGradient with all zero rates = %v, want zero vector", got)
	}
}
