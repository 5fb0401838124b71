package spatial

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestTangentBasisODEIsOrthonormalRightHanded(t *testing.T) {
	normals := []mgl64.Vec3{
		{0, 1, 0},
		{1, 0, 0},
		{0, 0, 1},
		mgl64.Vec3{1, 1, 1}.Normalize(),
	}
	for _, n := range normals {
		t1, t2 := TangentBasisODE(n)

		if math.Abs(t1.Dot(n)) > 1e-9 {
			t.Errorf("t1 not orthogonal to normal %v: t1.n = %v", n, t1.Dot(n))
		}
		if math.Abs(t2.Dot(n)) > 1e-9 {
			t.Errorf("t2 not orthogonal to normal %v: t2.n = %v", n, t2.Dot(n))
		}
		if math.Abs(t1.Dot(t2)) > 1e-9 {
			t.Errorf("t1, t2 not orthogonal for normal %v: t1.t2 = %v", n, t1.Dot(t2))
		}
		if math.Abs(t1.Len()-1) > 1e-9 || math.Abs(t2.Len()-1) > 1e-9 {
			t.Errorf("basis vectors not unit length for normal %v: |t1|=%v |t2|=%v", n, t1.Len(), t2.Len())
		}

		cross := n.Cross(t1)
		vec3ApproxEqual(t, cross, t2, 1e-9, "n x t1 (right-handed basis check)")
	}
}

func TestTangentBasisODEGradientMatchesFiniteDifference(t *testing.T) {
	normal := mgl64.Vec3{0, 1, 0}
	normalGrad := mgl64.Vec3{0.3, 0, -0.4}

	dt1, dt2 := TangentBasisODEGradient(normal, normalGrad)

	eps := 1e-6
	t1Plus, t2Plus := TangentBasisODE(normal.Add(normalGrad.Mul(eps)).Normalize())
	t1Minus, t2Minus := TangentBasisODE(normal.Sub(normalGrad.Mul(eps)).Normalize())

	wantDt1 := t1Plus.Sub(t1Minus).Mul(1 / (2 * eps))
	wantDt2 := t2Plus.Sub(t2Minus).Mul(1 / (2 * eps))

	vec3ApproxEqual(t, dt1, wantDt1, 1e-4, "TangentBasisODEGradient dt1")
	vec3ApproxEqual(t, dt2, wantDt2, 1e-4, "TangentBasisODEGradient dt2")
}
