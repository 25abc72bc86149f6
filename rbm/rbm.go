// Package rbm implements the restricted Boltzmann machine that richer machines build upon.
//
// An RBM owns the visible-hidden weights W, the visible and hidden biases b
// and c, their momentum accumulators, and the state of the most recent
// sampling calls. Matrices hold one column per data point or chain.
package rbm

import (
	"log"
	"math/rand"
	"time"

	"github.com/gorgonia/semirbm/internal/numeric"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrShape is the cause of every error returned for a matrix of the wrong size.
var ErrShape = errors.New("shape mismatch")

// Sampler is anything that can sample hidden units given visible units and back.
//
// TrainWith drives its negative phase through a Sampler, so a machine that
// embeds an RBM can substitute its own conditional distributions.
type Sampler interface {
	Forward(X *mat.Dense) (*mat.Dense, error)
	Backward(Y, X *mat.Dense) (*mat.Dense, error)
}

// State holds the results of the most recent sampling calls.
type State struct {
	X, Y *mat.Dense // visible and hidden samples
	P, Q *mat.Dense // visible and hidden activation probabilities
}

// RBM is a restricted Boltzmann machine with binary units.
type RBM struct {
	Config
	State

	NumVisibles, NumHiddens int

	W, DW        *mat.Dense
	B, C, DB, DC *mat.VecDense

	// persistent chains, nil until the first persistent training call
	PX, PY *mat.Dense

	Rand   *rand.Rand
	Logger *log.Logger
}

// New returns an RBM with small random weights and zero biases. If r is nil a
// time seeded source is used.
func New(numVisibles, numHiddens int, conf Config, r *rand.Rand) (*RBM, error) {
	if numVisibles < 1 || numHiddens < 1 {
		return nil, errors.Errorf("Need at least one visible and one hidden unit. Got %d visible and %d hidden", numVisibles, numHiddens)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	scale := 1 / float64(numVisibles+numHiddens)
	w := mat.NewDense(numVisibles, numHiddens, nil)
	w.Apply(func(_, _ int, _ float64) float64 { return r.NormFloat64() * scale }, w)

	return &RBM{
		Config:      conf,
		NumVisibles: numVisibles,
		NumHiddens:  numHiddens,
		W:           w,
		DW:          mat.NewDense(numVisibles, numHiddens, nil),
		B:           mat.NewVecDense(numVisibles, nil),
		C:           mat.NewVecDense(numHiddens, nil),
		DB:          mat.NewVecDense(numVisibles, nil),
		DC:          mat.NewVecDense(numHiddens, nil),
		State: State{
			X: mat.NewDense(numVisibles, 1, nil),
			Y: mat.NewDense(numHiddens, 1, nil),
		},
		Rand: r,
	}, nil
}

// CheckVisible returns an error unless X has one row per visible unit.
func (m *RBM) CheckVisible(X *mat.Dense) error {
	if X == nil {
		return errors.Wrap(ErrShape, "visible states are nil")
	}
	if r, _ := X.Dims(); r != m.NumVisibles {
		return errors.Wrapf(ErrShape, "visible states have %d rows, expected %d", r, m.NumVisibles)
	}
	return nil
}

// CheckHidden returns an error unless Y has one row per hidden unit.
func (m *RBM) CheckHidden(Y *mat.Dense) error {
	if Y == nil {
		return errors.Wrap(ErrShape, "hidden states are nil")
	}
	if r, _ := Y.Dims(); r != m.NumHiddens {
		return errors.Wrapf(ErrShape, "hidden states have %d rows, expected %d", r, m.NumHiddens)
	}
	return nil
}

// HiddenProbs computes sigmoid(Wᵀ X + c). It does not touch the sampler state.
func (m *RBM) HiddenProbs(X *mat.Dense) (*mat.Dense, error) {
	if err := m.CheckVisible(X); err != nil {
		return nil, err
	}
	_, n := X.Dims()
	Q := mat.NewDense(m.NumHiddens, n, nil)
	Q.Mul(m.W.T(), X)
	numeric.AddVec(Q, m.C)
	numeric.ApplySigmoid(Q)
	return Q, nil
}

// VisibleProbs computes sigmoid(W Y + b). It does not touch the sampler state.
func (m *RBM) VisibleProbs(Y *mat.Dense) (*mat.Dense, error) {
	if err := m.CheckHidden(Y); err != nil {
		return nil, err
	}
	_, n := Y.Dims()
	P := mat.NewDense(m.NumVisibles, n, nil)
	P.Mul(m.W, Y)
	numeric.AddVec(P, m.B)
	numeric.ApplySigmoid(P)
	return P, nil
}

// Forward samples the hidden units given X, or given the cached visible
// samples if X is nil. Q and Y are cached and a copy of Y is returned.
func (m *RBM) Forward(X *mat.Dense) (*mat.Dense, error) {
	if X == nil {
		X = m.X
	}
	Q, err := m.HiddenProbs(X)
	if err != nil {
		return nil, err
	}
	m.Q = Q
	m.Y = numeric.Bernoulli(m.Rand, Q)
	return mat.DenseCopyOf(m.Y), nil
}

// Backward samples the visible units given Y, or given the cached hidden
// samples if Y is nil. Without lateral connections the visible units are
// independent, so the initial visible state is not needed.
func (m *RBM) Backward(Y, _ *mat.Dense) (*mat.Dense, error) {
	if Y == nil {
		Y = m.Y
	}
	P, err := m.VisibleProbs(Y)
	if err != nil {
		return nil, err
	}
	m.P = P
	m.X = numeric.Bernoulli(m.Rand, P)
	return mat.DenseCopyOf(m.X), nil
}

// Train performs one CD-k (or persistent CD) update on the batch X.
func (m *RBM) Train(X *mat.Dense) error { return m.TrainWith(m, X) }

// TrainWith performs one CD-k (or persistent CD) update of W, b and c on the
// batch X, running the negative phase through s. The sampler must share this
// RBM's State, which is the case for m itself and for any type embedding m.
func (m *RBM) TrainWith(s Sampler, X *mat.Dense) error {
	if err := m.CheckVisible(X); err != nil {
		return err
	}

	// positive phase
	if _, err := s.Forward(X); err != nil {
		return errors.WithMessage(err, "positive phase")
	}
	Q := mat.DenseCopyOf(m.Q)

	_, n := X.Dims()
	if m.Persistent {
		m.LoadPersistent(n)
	}

	// negative phase
	for t := 0; t < m.CDSteps; t++ {
		if _, err := s.Backward(nil, nil); err != nil {
			return errors.WithMessagef(err, "negative phase step %d", t)
		}
		if _, err := s.Forward(nil); err != nil {
			return errors.WithMessagef(err, "negative phase step %d", t)
		}
	}

	if m.Persistent {
		m.SavePersistent()
	}

	m.ApplyGradients(X, Q, m.X, m.Q)
	return nil
}

// LoadPersistent makes the persistent chains the current sampler state. The
// chains are reset to zero when their number differs from n.
func (m *RBM) LoadPersistent(n int) {
	if m.PX == nil {
		m.resetPersistent(n)
	} else if _, c := m.PX.Dims(); c != n {
		m.resetPersistent(n)
	}
	m.X = m.PX
	m.Y = m.PY
}

func (m *RBM) resetPersistent(n int) {
	m.logf("Resetting %d persistent chains", n)
	m.PX = mat.NewDense(m.NumVisibles, n, nil)
	m.PY = mat.NewDense(m.NumHiddens, n, nil)
}

// SavePersistent stores the current sampler state as the persistent chains.
func (m *RBM) SavePersistent() {
	m.PX = mat.DenseCopyOf(m.X)
	m.PY = mat.DenseCopyOf(m.Y)
}

// ApplyGradients applies the momentum and weight decay updates
//
//	dW = lr·(Xd Qdᵀ − Xm Ymᵀ)/N − lr·decay·W + momentum·dW
//	db = lr·mean(Xd − Xm) + momentum·db
//	dc = lr·mean(Qd − Ym) + momentum·dc
//
// where the d matrices hold data statistics and the m matrices model statistics.
func (m *RBM) ApplyGradients(Xd, Qd, Xm, Ym *mat.Dense) {
	_, n := Xd.Dims()

	var grad, neg mat.Dense
	grad.Mul(Xd, Qd.T())
	neg.Mul(Xm, Ym.T())
	grad.Sub(&grad, &neg)
	grad.Scale(m.LearningRate/float64(n), &grad)

	var decay mat.Dense
	decay.Scale(m.LearningRate*m.WeightDecay, m.W)

	m.DW.Scale(m.Momentum, m.DW)
	m.DW.Add(m.DW, &grad)
	m.DW.Sub(m.DW, &decay)

	var diff mat.Dense
	diff.Sub(Xd, Xm)
	m.DB.ScaleVec(m.Momentum, m.DB)
	m.DB.AddScaledVec(m.DB, m.LearningRate, numeric.RowMeans(&diff))

	diff.Reset()
	diff.Sub(Qd, Ym)
	m.DC.ScaleVec(m.Momentum, m.DC)
	m.DC.AddScaledVec(m.DC, m.LearningRate, numeric.RowMeans(&diff))

	m.W.Add(m.W, m.DW)
	m.B.AddVec(m.B, m.DB)
	m.C.AddVec(m.C, m.DC)
}

// Clone returns a deep copy of m drawing from r.
func (m *RBM) Clone(r *rand.Rand) *RBM {
	retVal := &RBM{
		Config:      m.Config,
		NumVisibles: m.NumVisibles,
		NumHiddens:  m.NumHiddens,
		W:           mat.DenseCopyOf(m.W),
		DW:          mat.DenseCopyOf(m.DW),
		B:           mat.VecDenseCopyOf(m.B),
		C:           mat.VecDenseCopyOf(m.C),
		DB:          mat.VecDenseCopyOf(m.DB),
		DC:          mat.VecDenseCopyOf(m.DC),
		State: State{
			X: copyOrNil(m.X),
			Y: copyOrNil(m.Y),
			P: copyOrNil(m.P),
			Q: copyOrNil(m.Q),
		},
		PX:     copyOrNil(m.PX),
		PY:     copyOrNil(m.PY),
		Rand:   r,
		Logger: m.Logger,
	}
	return retVal
}

func (m *RBM) logf(format string, args ...interface{}) {
	if m.Logger != nil {
		m.Logger.Printf(format, args...)
	}
}

func copyOrNil(a *mat.Dense) *mat.Dense {
	if a == nil {
		return nil
	}
	return mat.DenseCopyOf(a)
}
