package semirbm

import (
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Fit is a basic trainer. Every epoch it shuffles the columns of data and
// calls Train on consecutive batches of batchSize columns. Columns that do
// not fill a whole batch are left out of that epoch.
func Fit(m *SemiRBM, data *mat.Dense, batchSize, epochs int) error {
	if err := m.CheckVisible(data); err != nil {
		return err
	}
	_, n := data.Dims()
	if batchSize < 1 || batchSize > n {
		return errors.Errorf("Batch size must be between 1 and %d. Got %d", n, batchSize)
	}
	batches := n / batchSize

	shuffled := mat.DenseCopyOf(data)
	r := rand.New(rand.NewSource(m.Rand.Int63()))
	for i := 0; i < epochs; i++ {
		shuffleColumns(shuffled, r)
		for bat := 0; bat < batches; bat++ {
			batchStart := bat * batchSize
			batchEnd := batchStart + batchSize
			batch := mat.DenseCopyOf(shuffled.Slice(0, m.NumVisibles, batchStart, batchEnd))
			if err := m.Train(batch); err != nil {
				return errors.WithMessagef(err, "epoch %d, batch %d", i, bat)
			}
		}
		if m.Logger != nil {
			ulogprobs, err := m.ULogProbVis(data)
			if err != nil {
				return err
			}
			m.Logger.Printf("Epoch %d\tmean unnormalized log-probability %v", i, floats.Sum(ulogprobs.RawRowView(0))/float64(n))
		}
	}
	return nil
}

// shuffleColumns shuffles the columns of a in place.
func shuffleColumns(a *mat.Dense, r *rand.Rand) {
	rows, cols := a.Dims()
	colI := make([]float64, rows)
	colJ := make([]float64, rows)
	for i := cols - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		mat.Col(colI, i, a)
		mat.Col(colJ, j, a)
		a.SetCol(i, colJ)
		a.SetCol(j, colI)
	}
}
