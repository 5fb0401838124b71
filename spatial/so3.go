package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ExpSO3 is the matrix exponential of the skew-symmetric matrix [w]x,
// i.e. Rodrigues' rotation formula, used to turn a free joint's rotational
// exponential coordinates into a rotation.
func ExpSO3(w mgl64.Vec3) mgl64.Quat {
	theta := w.Len()
	if theta < 1e-12 {
		return mgl64.QuatIdent()
	}
	axis := w.Mul(1.0 / theta)
	return mgl64.QuatRotate(theta, axis)
}

// RightJacobianSO3 is the right Jacobian of the SO(3) exponential map: it
// maps a rate of change of exponential coordinates w to the body-frame
// angular velocity of Exp(w), i.e. omega_body = RightJacobianSO3(w) * wDot.
// Uses the standard closed form with a small-angle Taylor fallback.
func RightJacobianSO3(w mgl64.Vec3) mgl64.Mat3 {
	theta := w.Len()
	k := Skew(w)
	k2 := k.Mul3(k)

	var a, b float64
	if theta < 1e-8 {
		a = 0.5
		b = 1.0 / 6.0
		return combine3(mgl64.Ident3(), k, k2, -a, b)
	}

	a = (1 - math.Cos(theta)) / (theta * theta)
	b = (theta - math.Sin(theta)) / (theta * theta * theta)
	return combine3(mgl64.Ident3(), k, k2, -a, b)
}

// combine3 returns m0 + ka*m1 + kb*m2, elementwise, avoiding reliance on
// matrix Add/scalar-Mul methods that mgl64 doesn't expose for Mat3.
func combine3(m0, m1, m2 mgl64.Mat3, ka, kb float64) mgl64.Mat3 {
	var out mgl64.Mat3
	for i := 0; i < 9; i++ {
		out[i] = m0[i] + ka*m1[i] + kb*m2[i]
	}
	return out
}
