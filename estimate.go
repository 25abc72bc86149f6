package semirbm

import (
	"math"

	"github.com/gorgonia/semirbm/internal/numeric"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrNoImportanceSamples is returned by ULogProbHid when no importance samples are attached.
var ErrNoImportanceSamples = errors.New("no importance samples attached; ULogProbHid needs samples and log-weights from annealed importance sampling")

// maxCrossElements bounds the size of the samples × hidden states table ULogProbHid builds per batch.
var maxCrossElements = 1e7

// ImportanceSamples are visible states and their log importance weights, as
// produced by annealed importance sampling.
type ImportanceSamples struct {
	Samples    *mat.Dense // one visible state per column
	LogWeights []float64  // one weight per column of Samples
}

// SetImportanceSamples attaches importance samples used by ULogProbHid.
func (m *SemiRBM) SetImportanceSamples(is *ImportanceSamples) error {
	if is == nil {
		return errors.New("importance samples are nil")
	}
	if err := m.CheckVisible(is.Samples); err != nil {
		return err
	}
	if _, c := is.Samples.Dims(); c != len(is.LogWeights) {
		return errors.Wrapf(ErrShape, "%d importance samples but %d log-weights", c, len(is.LogWeights))
	}
	m.importance = is
	return nil
}

// ClearImportanceSamples detaches the importance samples.
func (m *SemiRBM) ClearImportanceSamples() { m.importance = nil }

// ULogProb computes the unnormalized joint log-probabilities
//
//	bᵀx + cᵀy + ½·xᵀLx + xᵀWy
//
// of the columns of X and Y. If allPairs is false X and Y must have the same
// number of columns and a 1×N matrix is returned. Otherwise element (i, j) of
// the returned matrix belongs to column i of X and column j of Y.
func (m *SemiRBM) ULogProb(X, Y *mat.Dense, allPairs bool) (*mat.Dense, error) {
	if err := m.CheckVisible(X); err != nil {
		return nil, err
	}
	if err := m.CheckHidden(Y); err != nil {
		return nil, err
	}
	_, nx := X.Dims()
	_, ny := Y.Dims()

	var xb, cy mat.VecDense
	xb.MulVec(X.T(), m.B)
	cy.MulVec(Y.T(), m.C)
	lateral := m.lateralTerm(X)

	var wy mat.Dense
	wy.Mul(m.W, Y)

	if allPairs {
		retVal := mat.NewDense(nx, ny, nil)
		retVal.Mul(X.T(), &wy)
		for i := 0; i < nx; i++ {
			row := retVal.RawRowView(i)
			floats.AddConst(xb.AtVec(i)+lateral[i], row)
			for j := range row {
				row[j] += cy.AtVec(j)
			}
		}
		return retVal, nil
	}

	if nx != ny {
		return nil, errors.Wrapf(ErrShape, "%d visible states paired with %d hidden states", nx, ny)
	}
	wy.MulElem(X, &wy)
	xwy := numeric.ColSums(&wy)
	retVal := mat.NewDense(1, nx, nil)
	for j := 0; j < nx; j++ {
		retVal.Set(0, j, xb.AtVec(j)+cy.AtVec(j)+lateral[j]+xwy[j])
	}
	return retVal, nil
}

// ULogProbVis computes the unnormalized marginal log-probabilities of the
// visible states X, with the hidden units summed out analytically.
func (m *SemiRBM) ULogProbVis(X *mat.Dense) (*mat.Dense, error) {
	if err := m.CheckVisible(X); err != nil {
		return nil, err
	}
	_, n := X.Dims()

	var xb mat.VecDense
	xb.MulVec(X.T(), m.B)
	lateral := m.lateralTerm(X)

	act := mat.NewDense(m.NumHiddens, n, nil)
	act.Mul(m.W.T(), X)
	numeric.AddVec(act, m.C)
	act.Apply(func(_, _ int, v float64) float64 { return numeric.Softplus(v) }, act)
	softplus := numeric.ColSums(act)

	retVal := mat.NewDense(1, n, nil)
	for j := 0; j < n; j++ {
		retVal.Set(0, j, xb.AtVec(j)+softplus[j]+lateral[j])
	}
	return retVal, nil
}

// ULogProbHid estimates the unnormalized marginal log-probabilities of the
// hidden states Y using the attached importance samples. Y is processed in
// batches so that no intermediate table grows beyond 1e7 elements.
func (m *SemiRBM) ULogProbHid(Y *mat.Dense) (*mat.Dense, error) {
	if m.importance == nil {
		return nil, errors.WithStack(ErrNoImportanceSamples)
	}
	if err := m.CheckHidden(Y); err != nil {
		return nil, err
	}
	samples := m.importance.Samples
	logWeights := m.importance.LogWeights
	numSamples := len(logWeights)
	_, n := Y.Dims()

	// data will be split into batches of size maxCols
	maxCols := int(maxCrossElements / float64(numSamples))
	if maxCols < 1 {
		maxCols = 1
	}
	if maxCols > n {
		maxCols = n
	}

	logNumSamples := math.Log(float64(numSamples))
	retVal := mat.NewDense(1, n, nil)
	for start := 0; start < n; start += maxCols {
		end := start + maxCols
		if end > n {
			end = n
		}
		batch := Y.Slice(0, m.NumHiddens, start, end).(*mat.Dense)
		cross, err := m.CLogProbHidVis(samples, batch, true)
		if err != nil {
			return nil, err
		}
		for k, lw := range logWeights {
			floats.AddConst(lw, cross.RawRowView(k))
		}

		// sum over importance samples
		sums := numeric.LogSumExp(cross, 0)
		for j := start; j < end; j++ {
			retVal.Set(0, j, sums.At(0, j-start)-logNumSamples)
		}
	}
	return retVal, nil
}

// CLogProbHidVis computes the conditional log-probabilities of the hidden
// states Y given the visible states X. allPairs behaves as in ULogProb.
func (m *SemiRBM) CLogProbHidVis(X, Y *mat.Dense, allPairs bool) (*mat.Dense, error) {
	if err := m.CheckVisible(X); err != nil {
		return nil, err
	}
	if err := m.CheckHidden(Y); err != nil {
		return nil, err
	}
	_, nx := X.Dims()
	_, ny := Y.Dims()

	act := mat.NewDense(m.NumHiddens, nx, nil)
	act.Mul(m.W.T(), X)
	numeric.AddVec(act, m.C)

	if allPairs {
		// log Q and log(1 - Q)
		logQ := mat.NewDense(m.NumHiddens, nx, nil)
		logQ.Apply(func(_, _ int, v float64) float64 { return numeric.LogSigmoid(v) }, act)
		log1mQ := mat.NewDense(m.NumHiddens, nx, nil)
		log1mQ.Apply(func(_, _ int, v float64) float64 { return numeric.LogSigmoid(-v) }, act)

		oneMinusY := mat.NewDense(m.NumHiddens, ny, nil)
		oneMinusY.Apply(func(_, _ int, v float64) float64 { return 1 - v }, Y)

		var retVal, off mat.Dense
		retVal.Mul(logQ.T(), Y)
		off.Mul(log1mQ.T(), oneMinusY)
		retVal.Add(&retVal, &off)
		return &retVal, nil
	}

	if nx != ny {
		return nil, errors.Wrapf(ErrShape, "%d visible states paired with %d hidden states", nx, ny)
	}
	numeric.ApplySigmoid(act)
	retVal := mat.NewDense(1, nx, nil)
	for i := 0; i < m.NumHiddens; i++ {
		qi := act.RawRowView(i)
		for j := 0; j < nx; j++ {
			q, y := qi[j], Y.At(i, j)
			// q for y = 1 and 1 - q for y = 0, without branching
			retVal.Set(0, j, retVal.At(0, j)+math.Log(2*q*y-y-(q-1)))
		}
	}
	return retVal, nil
}

// CEntropyHidVis computes the entropy of the hidden units given each column
// of X. It samples the hidden units as a side effect, overwriting the cached
// hidden state.
func (m *SemiRBM) CEntropyHidVis(X *mat.Dense) (*mat.Dense, error) {
	// compute probabilities of hidden units
	if _, err := m.Forward(X); err != nil {
		return nil, err
	}

	_, n := m.Q.Dims()
	retVal := mat.NewDense(1, n, nil)
	for i := 0; i < m.NumHiddens; i++ {
		for j, q := range m.Q.RawRowView(i) {
			retVal.Set(0, j, retVal.At(0, j)-numeric.XLogX(q)-numeric.XLogX(1-q))
		}
	}
	return retVal, nil
}

// lateralTerm computes ½·xᵀLx for every column x of X.
func (m *SemiRBM) lateralTerm(X *mat.Dense) []float64 {
	var lx mat.Dense
	lx.Mul(m.L, X)
	lx.MulElem(X, &lx)
	retVal := numeric.ColSums(&lx)
	floats.Scale(0.5, retVal)
	return retVal
}
