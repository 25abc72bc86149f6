package semirbm

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

// FromTensor copies a 2-D float64 or float32 tensor into a matrix, so that
// batches prepared with gorgonia can be fed to a SemiRBM. Rows are units and
// columns are data points. Non-finite float32 values are rejected.
func FromTensor(t *tensor.Dense) (*mat.Dense, error) {
	if t == nil {
		return nil, errors.Wrap(ErrShape, "tensor is nil")
	}
	if t.Dims() != 2 {
		return nil, errors.Wrapf(ErrShape, "expected a matrix, got a tensor of shape %v", t.Shape())
	}
	if t.IsMaterializable() {
		t = t.Materialize().(*tensor.Dense)
	}
	shape := t.Shape()
	rows, cols := shape[0], shape[1]
	if rows == 0 || cols == 0 {
		return nil, errors.Wrapf(ErrShape, "tensor of shape %v is empty", shape)
	}

	backing := make([]float64, rows*cols)
	switch data := t.Data().(type) {
	case []float64:
		copy(backing, data)
	case []float32:
		for i, v := range data[:len(backing)] {
			if math32.IsNaN(v) || math32.IsInf(v, 0) {
				return nil, errors.Errorf("Non-finite value %v at index %d", v, i)
			}
			backing[i] = float64(v)
		}
	default:
		return nil, errors.Errorf("Unsupported dtype %v", t.Dtype())
	}
	return mat.NewDense(rows, cols, backing), nil
}

// ToTensor copies a into a new float64 tensor of the same shape.
func ToTensor(a mat.Matrix) *tensor.Dense {
	rows, cols := a.Dims()
	backing := make([]float64, rows*cols)
	mat.NewDense(rows, cols, backing).Copy(a)
	return tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(backing))
}
