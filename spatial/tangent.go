package spatial

import "math"
import "github.com/go-gl/mathgl/mgl64"

// TangentBasisODE builds the fixed two-vector ODE-style tangent frame for a
// unit normal: pick the world x axis, or the y axis when the normal's x
// component exceeds 0.9 in magnitude, project it into the tangent plane,
// then complete the right-handed basis
// with a cross product.
func TangentBasisODE(normal mgl64.Vec3) (t1, t2 mgl64.Vec3) {
	var axis mgl64.Vec3
	if math.Abs(normal.X()) > 0.9 {
		axis = mgl64.Vec3{0, 1, 0}
	} else {
		axis = mgl64.Vec3{1, 0, 0}
	}

	t1 = axis.Sub(normal.Mul(axis.Dot(normal))).Normalize()
	t2 = normal.Cross(t1).Normalize()
	return t1, t2
}

// TangentBasisODEGradient differentiates TangentBasisODE with respect to a
// DOF, given the normal's gradient under that DOF. The reference axis choice
// is treated as locally constant (it only changes at a measure-zero set of
// normals exactly aligned with a coordinate axis).
func TangentBasisODEGradient(normal, normalGrad mgl64.Vec3) (dt1, dt2 mgl64.Vec3) {
	var axis mgl64.Vec3
	if math.Abs(normal.X()) > 0.9 {
		axis = mgl64.Vec3{0, 1, 0}
	} else {
		axis = mgl64.Vec3{1, 0, 0}
	}

	raw1 := axis.Sub(normal.Mul(axis.Dot(normal)))
	dRaw1 := normalGrad.Mul(-axis.Dot(normal)).Sub(normal.Mul(axis.Dot(normalGrad)))
	t1 := raw1.Normalize()
	dt1 = NormalizeGradient(raw1, dRaw1)

	raw2 := normal.Cross(t1)
	dRaw2 := normalGrad.Cross(t1).Add(normal.Cross(dt1))
	dt2 = NormalizeGradient(raw2, dRaw2)
	return dt1, dt2
}
