package spatial

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestGradientWrtThetaIsRigidBodyVelocityFormula(t *testing.T) {
	twist := Twist{Angular: mgl64.Vec3{0, 0, 1}, Linear: mgl64.Vec3{1, 0, 0}}
	point := mgl64.Vec3{2, 0, 0}

	got := GradientWrtTheta(twist, point)
	want := twist.Linear.Add(twist.Angular.Cross(point))
	vec3ApproxEqual(t, got, want, 1e-12, "GradientWrtTheta")
}

func TestGradientWrtThetaPureRotationMatchesCross(t *testing.T) {
	angular := mgl64.Vec3{0, 1, 0}
	direction := mgl64.Vec3{1, 0, 0}

	got := GradientWrtThetaPureRotation(angular, direction)
	want := angular.Cross(direction)
	vec3ApproxEqual(t, got, want, 1e-12, "GradientWrtThetaPureRotation")
}

func TestNormalizeGradientMatchesFiniteDifference(t *testing.T) {
	v := mgl64.Vec3{3, 4, 0}
	dv := mgl64.Vec3{1, -2, 0.5}

	got := NormalizeGradient(v, dv)

	eps := 1e-6
	plus := v.Add(dv.Mul(eps)).Normalize()
	minus := v.Sub(dv.Mul(eps)).Normalize()
	want := plus.Sub(minus).Mul(1 / (2 * eps))

	vec3ApproxEqual(t, got, want, 1e-6, "NormalizeGradient")
}

func TestNormalizeGradientZeroVectorIsZero(t *testing.T) {
	got := NormalizeGradient(mgl64.Vec3{}, mgl64.Vec3{1, 2, 3})
	if got.Len() > 1e-12 {
		t.Errorf("NormalizeGradient(0, dv) = %v, want zero vector", got)
	}
}

func TestNormalizeGradientOrthogonalToTheVectorItself(t *testing.T) {
	// d/dt ||v||==1 constraint implies the gradient of a unit vector's own
	// normalization in the direction of v itself is always zero.
	v := mgl64.Vec3{1, 2, 2}
	got := NormalizeGradient(v, v)
	if math.Abs(got.Len()) > 1e-9 {
		t.Errorf("NormalizeGradient(v, v) = %v, want zero (normalizing along its own direction doesn't rotate the unit vector)", got)
	}
}
