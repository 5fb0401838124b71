package skeleton

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/lindqvist/diffphys/spatial"
)

// FreeJoint gives the child body all six degrees of freedom relative to its
// parent: q[0:3] are exponential coordinates of the relative rotation, q[3:6]
// are the relative translation in the parent frame. Unlike Revolute and
// Prismatic, its rotational screw axes depend on q — the columns of the SO(3)
// exponential map's right Jacobian change as the accumulated rotation grows.
type FreeJoint struct {
	jointBase
}

func NewFreeJoint(name string, parentBody, childBody int) *FreeJoint {
	return &FreeJoint{jointBase: jointBase{name: name, parentBody: parentBody, childBody: childBody}}
}

func (j *FreeJoint) NumDofs() int { return 6 }

func (j *FreeJoint) RelativeTransform(q []float64) Transform {
	w := mgl64.Vec3{q[0], q[1], q[2]}
	translation := mgl64.Vec3{q[3], q[4], q[5]}
	rotation := spatial.ExpSO3(w)
	return Transform{
		Position:        translation,
		Rotation:        rotation,
		InverseRotation: rotation.Inverse(),
	}
}

// LocalScrewAxis returns, for rotational dofs (i < 3), the i-th column of
// the right Jacobian of Exp at w=q[0:3]; for translational dofs (i >= 3), the
// constant unit basis vector along the corresponding parent axis.
func (j *FreeJoint) LocalScrewAxis(q []float64, i int) spatial.Twist {
	if i >= 3 {
		linear := mgl64.Vec3{}
		linear[i-3] = 1.0
		return spatial.Twist{Linear: linear}
	}

	w := mgl64.Vec3{q[0], q[1], q[2]}
	jr := spatial.RightJacobianSO3(w)
	col := mgl64.Vec3{jr.At(0, i), jr.At(1, i), jr.At(2, i)}
	return spatial.Twist{Angular: col}
}

// LocalScrewAxisGradient differentiates LocalScrewAxis(q, i) with respect to
// q[wrt]. Translational axes are constant so their gradient is always zero;
// the rotational axes' dependence on w is differentiated by central finite
// difference of the right Jacobian rather than an analytical second
// derivative, mirroring the pragmatic finite-difference treatment used
// elsewhere for second-order quantities.
func (j *FreeJoint) LocalScrewAxisGradient(q []float64, i int, wrt int) spatial.Twist {
	if i >= 3 || wrt >= 3 {
		return spatial.Twist{}
	}

	const eps = 1e-6
	qPlus := append([]float64{}, q...)
	qMinus := append([]float64{}, q...)
	qPlus[wrt] += eps
	qMinus[wrt] -= eps

	axisPlus := j.LocalScrewAxis(qPlus, i)
	axisMinus := j.LocalScrewAxis(qMinus, i)

	return spatial.Twist{
		Angular: axisPlus.Angular.Sub(axisMinus.Angular).Mul(1.0 / (2 * eps)),
		Linear:  axisPlus.Linear.Sub(axisMinus.Linear).Mul(1.0 / (2 * eps)),
	}
}
