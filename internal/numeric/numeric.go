// Package numeric holds the scalar and matrix helpers shared by the Boltzmann machines.
package numeric

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Sigmoid returns the logistic function of x.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// Softplus returns log(1+exp(x)) without overflowing for large x.
func Softplus(x float64) float64 {
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}

// LogSigmoid returns log(Sigmoid(x)).
func LogSigmoid(x float64) float64 { return -Softplus(-x) }

// XLogX returns x·log(x), taking 0·log(0) to be 0.
func XLogX(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return x * math.Log(x)
}

// ApplySigmoid replaces every entry of a with its logistic function.
func ApplySigmoid(a *mat.Dense) {
	a.Apply(func(_, _ int, v float64) float64 { return Sigmoid(v) }, a)
}

// AddVec adds v to every column of a.
func AddVec(a *mat.Dense, v mat.Vector) {
	r, _ := a.Dims()
	for i := 0; i < r; i++ {
		floats.AddConst(v.AtVec(i), a.RawRowView(i))
	}
}

// ColSums returns the sum of every column of a.
func ColSums(a mat.Matrix) []float64 {
	r, c := a.Dims()
	retVal := make([]float64, c)
	for i := 0; i < r; i++ {
		for j := range retVal {
			retVal[j] += a.At(i, j)
		}
	}
	return retVal
}

// RowMeans returns the mean of every row of a as a column vector.
func RowMeans(a *mat.Dense) *mat.VecDense {
	r, c := a.Dims()
	retVal := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		retVal.SetVec(i, floats.Sum(a.RawRowView(i))/float64(c))
	}
	return retVal
}

// ZeroDiag sets the diagonal of the square matrix a to zero.
func ZeroDiag(a *mat.Dense) {
	r, _ := a.Dims()
	for i := 0; i < r; i++ {
		a.Set(i, i, 0)
	}
}

// Symmetrize replaces the square matrix a with (a + aᵀ)/2.
func Symmetrize(a *mat.Dense) {
	r, _ := a.Dims()
	for i := 0; i < r; i++ {
		for j := i + 1; j < r; j++ {
			v := (a.At(i, j) + a.At(j, i)) / 2
			a.Set(i, j, v)
			a.Set(j, i, v)
		}
	}
}

// Bernoulli draws a binary matrix whose entries are 1 with the probabilities in p.
func Bernoulli(r *rand.Rand, p *mat.Dense) *mat.Dense {
	rows, cols := p.Dims()
	retVal := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		pi := p.RawRowView(i)
		xi := retVal.RawRowView(i)
		for j := range pi {
			if r.Float64() < pi[j] {
				xi[j] = 1
			}
		}
	}
	return retVal
}

// LogSumExp reduces a along axis. Axis 0 collapses the rows and returns a 1×c
// matrix, axis 1 collapses the columns and returns an r×1 matrix.
func LogSumExp(a mat.Matrix, axis int) *mat.Dense {
	r, c := a.Dims()
	switch axis {
	case 0:
		retVal := mat.NewDense(1, c, nil)
		col := make([]float64, r)
		for j := 0; j < c; j++ {
			retVal.Set(0, j, floats.LogSumExp(mat.Col(col, j, a)))
		}
		return retVal
	case 1:
		retVal := mat.NewDense(r, 1, nil)
		row := make([]float64, c)
		for i := 0; i < r; i++ {
			retVal.Set(i, 0, floats.LogSumExp(mat.Row(row, i, a)))
		}
		return retVal
	}
	panic("numeric: axis must be 0 or 1")
}
