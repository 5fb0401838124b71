package constraint

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"

	"github.com/lindqvist/diffphys/collision"
	"github.com/lindqvist/diffphys/skeleton"
	"github.com/lindqvist/diffphys/spatial"
)

// Row is one row of the assembled boxed LCP: either a contact normal or one
// of its two Coulomb friction directions, expressed as a sparse Jacobian
// over the skeleton's generalized velocities.
type Row struct {
	Contact    *collision.Contact
	PointIndex int
	Basis      int // 0 = normal, 1/2 = the two ODE tangent directions
	DofIndices []int
	DofCoeffs  []float64
}

func (r Row) jacobian(n int) []float64 {
	j := make([]float64, n)
	for k, dof := range r.DofIndices {
		j[dof] = r.DofCoeffs[k]
	}
	return j
}

// System is a fully assembled boxed LCP ready for an lcp.BoxedLcpSolver,
// plus the bookkeeping needed to turn a solved impulse vector back into a
// qdot update.
type System struct {
	N      int
	A      []float64 // row-major N x N Delassus operator J*Minv*J^T
	X      []float64
	B      []float64
	Lo     []float64
	Hi     []float64
	Findex []int
	Rows   []Row

	minv      [][]float64
	jacobians [][]float64
}

// BuildSystem assembles one normal row and two friction rows per contact
// point, over the group's flat dof space. collision.Contact's normal points
// from BodyA into BodyB, so each row's relative velocity is taken as
// v(BodyB) - v(BodyA) along that row's direction: a non-negative solved
// normal impulse separates the bodies. Friction rows are findex-coupled to
// their own contact point's normal row.
func BuildSystem(group *skeleton.Group, contacts []collision.Contact) (*System, error) {
	n := group.NumDofs()

	minv, err := invertMassMatrix(group.MassMatrix())
	if err != nil {
		return nil, err
	}
	qdot := group.QDot()

	var rows []Row
	var bias []float64
	var lo, hi []float64
	var findex []int

	for ci := range contacts {
		c := &contacts[ci]
		restitution := ComputeRestitution(c.BodyA.Material, c.BodyB.Material)
		dynamicFriction := ComputeDynamicFriction(c.BodyA.Material, c.BodyB.Material)
		t1, t2 := spatial.TangentBasisODE(c.Normal)

		for pi, pt := range c.Points {
			normalRow := buildRow(group, c, pi, 0, c.Normal)
			normalJac := normalRow.jacobian(n)
			normalVel := dot(normalJac, qdot)

			target := 0.0
			if normalVel < 0 {
				target = -restitution * normalVel
			}

			normalIndex := len(rows)
			rows = append(rows, normalRow)
			bias = append(bias, target-normalVel)
			lo = append(lo, 0)
			hi = append(hi, math.MaxFloat64)
			findex = append(findex, -1)

			for basisIdx, dir := range [2]mgl64.Vec3{t1, t2} {
				row := buildRow(group, c, pi, basisIdx+1, dir)
				jac := row.jacobian(n)
				relVel := dot(jac, qdot)

				rows = append(rows, row)
				bias = append(bias, -relVel)
				lo = append(lo, -dynamicFriction)
				hi = append(hi, dynamicFriction)
				findex = append(findex, normalIndex)
			}

			_ = pt.Penetration // penetration feeds position-level bias correction, not modeled at this contract-only layer
		}
	}

	nRows := len(rows)
	jacobians := make([][]float64, nRows)
	for i, r := range rows {
		jacobians[i] = r.jacobian(n)
	}

	a := delassusOperator(jacobians, minv, n)

	return &System{
		N:         nRows,
		A:         a,
		X:         make([]float64, nRows),
		B:         bias,
		Lo:        lo,
		Hi:        hi,
		Findex:    findex,
		Rows:      rows,
		minv:      minv,
		jacobians: jacobians,
	}, nil
}

// buildRow derives one row's sparse Jacobian: direction `dir` dotted with
// the B-relative-to-A sensitivity of the contact point's world velocity to
// every dof affecting either body, in the group's flat dof indexing.
func buildRow(group *skeleton.Group, c *collision.Contact, pointIndex, basis int, dir mgl64.Vec3) Row {
	point := c.Points[pointIndex].Position

	dofCoeffs := make(map[int]float64)

	dofsA, colsA := group.PointVelocityJacobian(c.BodyA, point)
	for k, dof := range dofsA {
		dofCoeffs[dof] -= dir.Dot(colsA[k])
	}

	dofsB, colsB := group.PointVelocityJacobian(c.BodyB, point)
	for k, dof := range dofsB {
		dofCoeffs[dof] += dir.Dot(colsB[k])
	}

	indices := make([]int, 0, len(dofCoeffs))
	coeffs := make([]float64, 0, len(dofCoeffs))
	for dof, coeff := range dofCoeffs {
		indices = append(indices, dof)
		coeffs = append(coeffs, coeff)
	}

	return Row{Contact: c, PointIndex: pointIndex, Basis: basis, DofIndices: indices, DofCoeffs: coeffs}
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// toDense flattens a row-major [][]float64 of known column width into a
// gonum Dense matrix.
func toDense(m [][]float64, cols int) *mat.Dense {
	rows := len(m)
	flat := make([]float64, rows*cols)
	for i := range m {
		copy(flat[i*cols:(i+1)*cols], m[i])
	}
	return mat.NewDense(rows, cols, flat)
}

func mulMatVec(m [][]float64, v []float64) []float64 {
	if len(m) == 0 {
		return nil
	}
	vec := mat.NewVecDense(len(v), v)
	var out mat.VecDense
	out.MulVec(toDense(m, len(v)), vec)

	result := make([]float64, out.Len())
	for i := range result {
		result[i] = out.AtVec(i)
	}
	return result
}

// delassusOperator computes the nRows x nRows Delassus operator
// J*Minv*J^T as a row-major flat slice: jacobians holds one length-n row
// per LCP row, minv is the n x n inverted generalized mass matrix.
func delassusOperator(jacobians, minv [][]float64, n int) []float64 {
	nRows := len(jacobians)
	if nRows == 0 {
		return nil
	}

	j := toDense(jacobians, n)
	minvDense := toDense(minv, n)

	var jMinv mat.Dense
	jMinv.Mul(j, minvDense)

	var a mat.Dense
	a.Mul(&jMinv, j.T())

	out := make([]float64, nRows*nRows)
	for i := 0; i < nRows; i++ {
		for k := 0; k < nRows; k++ {
			out[i*nRows+k] = a.At(i, k)
		}
	}
	return out
}

// invertMassMatrix computes the dense inverse of the generalized mass
// matrix via gonum's LU decomposition. The skeletons this package builds
// always have a positive-definite mass matrix, so this is the exact
// operation needed, not an approximation.
func invertMassMatrix(m [][]float64) ([][]float64, error) {
	n := len(m)
	if n == 0 {
		return nil, nil
	}
	var inv mat.Dense
	if err := inv.Inverse(toDense(m, n)); err != nil {
		return nil, err
	}

	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			out[i][j] = inv.At(i, j)
		}
	}
	return out, nil
}
