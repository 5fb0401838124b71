package diffphys

import "gonum.org/v1/gonum/mat"

// invertMassMatrix and mulMatVec mirror constraint/row.go's own copies:
// each package that needs a one-off dense inverse or matrix-vector product
// keeps its own tiny gonum-backed helper rather than exporting gonum types
// across package boundaries.

func invertMassMatrix(m [][]float64) ([][]float64, error) {
	n := len(m)
	if n == 0 {
		return nil, nil
	}
	flat := make([]float64, n*n)
	for i := range m {
		copy(flat[i*n:(i+1)*n], m[i])
	}
	dense := mat.NewDense(n, n, flat)

	var inv mat.Dense
	if err := inv.Inverse(dense); err != nil {
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

func mulMatVec(m [][]float64, v []float64) []float64 {
	rows := len(m)
	if rows == 0 {
		return nil
	}
	cols := len(v)
	flat := make([]float64, rows*cols)
	for i := range m {
		copy(flat[i*cols:(i+1)*cols], m[i])
	}
	dense := mat.NewDense(rows, cols, flat)
	vec := mat.NewVecDense(cols, v)

	var out mat.VecDense
	out.MulVec(dense, vec)

	result := make([]float64, rows)
	for i := range result {
		result[i] = out.AtVec(i)
	}
	return result
}
