package neural

import "gonum.org/v1/gonum/mat"

// Small dense-matrix helpers shared by the Jacobian assembly in snapshot.go.
// The public API stays in plain [][]float64/[]float64 so the rest of the
// package reads as ordinary Go, but every actual linear-algebra operation
// routes through gonum's mat.Dense rather than a hand-rolled loop: convert
// in with toDense, let gonum do the multiply/add/sub/scale/transpose/solve,
// convert back out with fromDense.

func identity(n int) [][]float64 {
	m := newMatrix(n, n)
	for i := 0; i < n; i++ {
		m[i][i] = 1
	}
	return m
}

func zeros(rows, cols int) [][]float64 {
	return newMatrix(rows, cols)
}

// toDense flattens m (row-major) into a gonum Dense matrix.
func toDense(m [][]float64) *mat.Dense {
	rows := len(m)
	if rows == 0 {
		return mat.NewDense(0, 0, nil)
	}
	cols := len(m[0])
	flat := make([]float64, rows*cols)
	for i := range m {
		copy(flat[i*cols:(i+1)*cols], m[i])
	}
	return mat.NewDense(rows, cols, flat)
}

// fromDense reads a gonum Matrix back out into [][]float64.
func fromDense(d mat.Matrix) [][]float64 {
	rows, cols := d.Dims()
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			out[i][j] = d.At(i, j)
		}
	}
	return out
}

func transpose(m [][]float64) [][]float64 {
	if len(m) == 0 {
		return nil
	}
	var out mat.Dense
	out.CloneFrom(toDense(m).T())
	return fromDense(&out)
}

func matMul(a, b [][]float64) [][]float64 {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	var out mat.Dense
	out.Mul(toDense(a), toDense(b))
	return fromDense(&out)
}

func matSub(a, b [][]float64) [][]float64 {
	var out mat.Dense
	out.Sub(toDense(a), toDense(b))
	return fromDense(&out)
}

func matAdd(a, b [][]float64) [][]float64 {
	var out mat.Dense
	out.Add(toDense(a), toDense(b))
	return fromDense(&out)
}

func matScale(a [][]float64, s float64) [][]float64 {
	var out mat.Dense
	out.Scale(s, toDense(a))
	return fromDense(&out)
}

func matVec(m [][]float64, v []float64) []float64 {
	if len(m) == 0 {
		return nil
	}
	vec := mat.NewVecDense(len(v), v)
	var out mat.VecDense
	out.MulVec(toDense(m), vec)
	result := make([]float64, out.Len())
	for i := range result {
		result[i] = out.AtVec(i)
	}
	return result
}

// invert computes the dense inverse of a square matrix via gonum's LU
// decomposition, the same route the constraint package's mass-matrix
// inverse takes.
func invert(m [][]float64) ([][]float64, error) {
	n := len(m)
	if n == 0 {
		return nil, nil
	}
	var inv mat.Dense
	if err := inv.Inverse(toDense(m)); err != nil {
		return nil, err
	}
	return fromDense(&inv), nil
}
