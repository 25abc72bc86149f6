package semirbm

import (
	"github.com/gorgonia/semirbm/internal/numeric"
	"github.com/gorgonia/semirbm/rbm"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Forward, HiddenProbs and the other hidden unit methods are inherited from
// rbm.RBM: hidden units have no lateral connections.

// Backward conditionally samples the visible units given the hidden states Y
// using either sequential Gibbs sampling or parallel mean field updates.
//
// If Y is nil the cached hidden samples are used. X is the initial state of
// the visible units; if it is nil, the chain starts at zero. P and X are
// cached and a copy of the new visible states is returned.
func (m *SemiRBM) Backward(Y, X *mat.Dense) (*mat.Dense, error) {
	if Y == nil {
		Y = m.Y
	}
	X, err := m.initialVisible(Y, X)
	if err != nil {
		return nil, err
	}

	// constant input coming from the hidden units
	bias := m.dynamicBias(Y)

	switch m.SamplingMethod {
	case rbm.MeanField:
		m.P = m.meanField(bias, X)
		m.X = numeric.Bernoulli(m.Rand, m.P)
	case rbm.Gibbs:
		m.P, m.X = m.gibbs(bias, X)
	default:
		return nil, errors.Errorf("Unknown sampling method %v", m.SamplingMethod)
	}
	return mat.DenseCopyOf(m.X), nil
}

// VisibleProbs returns the mean field approximation of the visible
// activation probabilities given Y, starting the relaxation at X (or at zero
// if X is nil). Unlike Backward it draws no samples and leaves the model's
// state untouched.
func (m *SemiRBM) VisibleProbs(Y, X *mat.Dense) (*mat.Dense, error) {
	X, err := m.initialVisible(Y, X)
	if err != nil {
		return nil, err
	}
	return m.meanField(m.dynamicBias(Y), X), nil
}

// initialVisible validates Y and returns a private copy of X, or zeros of the
// matching shape.
func (m *SemiRBM) initialVisible(Y, X *mat.Dense) (*mat.Dense, error) {
	if err := m.CheckHidden(Y); err != nil {
		return nil, err
	}
	_, n := Y.Dims()
	if X == nil {
		return mat.NewDense(m.NumVisibles, n, nil), nil
	}
	if err := m.CheckVisible(X); err != nil {
		return nil, err
	}
	if _, c := X.Dims(); c != n {
		return nil, errors.Wrapf(ErrShape, "visible states have %d columns, hidden states have %d", c, n)
	}
	return mat.DenseCopyOf(X), nil
}

// dynamicBias computes W Y + b.
func (m *SemiRBM) dynamicBias(Y *mat.Dense) *mat.Dense {
	_, n := Y.Dims()
	retVal := mat.NewDense(m.NumVisibles, n, nil)
	retVal.Mul(m.W, Y)
	numeric.AddVec(retVal, m.B)
	return retVal
}

func (m *SemiRBM) meanField(bias, X *mat.Dense) *mat.Dense {
	r, c := bias.Dims()
	P := mat.NewDense(r, c, nil)
	P.Mul(m.L, X)
	P.Add(P, bias)
	numeric.ApplySigmoid(P)

	// parallel mean field updates
	act := mat.NewDense(r, c, nil)
	for k := 0; k < m.NumLateralUpdates; k++ {
		m.meanFieldStep(bias, P, act)
	}
	return P
}

// meanFieldStep performs P ← damping·P + (1−damping)·sigmoid(bias + L P) in
// place. act is scratch space of the same shape as P.
func (m *SemiRBM) meanFieldStep(bias, P, act *mat.Dense) {
	act.Mul(m.L, P)
	act.Add(act, bias)
	numeric.ApplySigmoid(act)
	act.Scale(1-m.Damping, act)
	P.Scale(m.Damping, P)
	P.Add(P, act)
}

// gibbs runs NumLateralUpdates+1 sweeps over the visible units, each in a new
// random order. Every unit is resampled given the current state of all
// others, so updates take effect immediately within a sweep. X is modified in
// place.
func (m *SemiRBM) gibbs(bias, X *mat.Dense) (P, retX *mat.Dense) {
	nv, n := X.Dims()
	P = mat.NewDense(nv, n, nil)
	lx := make([]float64, n)
	for k := 0; k <= m.NumLateralUpdates; k++ {
		for _, i := range m.Rand.Perm(nv) {
			for j := range lx {
				lx[j] = 0
			}
			for u, w := range m.L.RawRowView(i) {
				if w != 0 {
					floats.AddScaled(lx, w, X.RawRowView(u))
				}
			}

			bi := bias.RawRowView(i)
			pi := P.RawRowView(i)
			xi := X.RawRowView(i)
			for j := range pi {
				pi[j] = numeric.Sigmoid(bi[j] + lx[j])
				if m.Rand.Float64() < pi[j] {
					xi[j] = 1
				} else {
					xi[j] = 0
				}
			}
		}
	}
	return P, X
}

// Sample draws numSamples visible states from the model by running as many
// independent chains for burnIn+1 rounds of alternating sampling, starting
// from zero hidden states.
func (m *SemiRBM) Sample(numSamples, burnIn int) (*mat.Dense, error) {
	if numSamples < 1 {
		return nil, errors.Errorf("Need at least one sample. Got %d", numSamples)
	}
	if burnIn < 0 {
		return nil, errors.Errorf("Burn in must not be negative. Got %d", burnIn)
	}
	Y := mat.NewDense(m.NumHiddens, numSamples, nil)
	var X *mat.Dense
	var err error
	for t := 0; t <= burnIn; t++ {
		if X, err = m.Backward(Y, nil); err != nil {
			return nil, err
		}
		if Y, err = m.Forward(X); err != nil {
			return nil, err
		}
	}
	return X, nil
}
