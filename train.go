package semirbm

import (
	"github.com/gorgonia/semirbm/internal/numeric"
	"github.com/gorgonia/semirbm/rbm"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Train performs one contrastive divergence update of all parameters on the
// batch X, which holds one data point per column. With Persistent set the
// negative phase continues the chains of the previous call.
//
// With Gibbs sampling W, b and c are updated by rbm.RBM.TrainWith, and L is
// updated afterwards from the chain state that call leaves behind.
func (m *SemiRBM) Train(X *mat.Dense) error {
	if err := m.CheckVisible(X); err != nil {
		return err
	}
	switch m.SamplingMethod {
	case rbm.MeanField:
		return m.trainMeanField(X)
	case rbm.Gibbs:
		// update RBM parameters
		if err := m.RBM.TrainWith(m, X); err != nil {
			return err
		}
		// update lateral connections
		m.updateLateral(X, m.X)
		return nil
	}
	return errors.Errorf("Unknown sampling method %v", m.SamplingMethod)
}

func (m *SemiRBM) trainMeanField(X *mat.Dense) error {
	// positive phase
	if _, err := m.Forward(X); err != nil {
		return errors.WithMessage(err, "positive phase")
	}

	// store posterior probabilities
	Q := mat.DenseCopyOf(m.Q)

	_, n := X.Dims()
	if m.Persistent {
		m.LoadPersistent(n)
	}

	// negative phase
	for t := 0; t < m.CDSteps; t++ {
		if _, err := m.Backward(nil, nil); err != nil {
			return errors.WithMessagef(err, "negative phase step %d", t)
		}
		if _, err := m.Forward(nil); err != nil {
			return errors.WithMessagef(err, "negative phase step %d", t)
		}
	}

	if m.Persistent {
		m.SavePersistent()
	}

	// the visible probabilities stand in for visible samples
	m.ApplyGradients(X, Q, m.P, m.Y)
	m.updateLateral(X, m.P)
	return nil
}

// updateLateral applies
//
//	dL = lr·(Xd Xdᵀ − Xm Xmᵀ)/N − lr·decay·L + momentum·dL
//
// with the diagonal of dL cleared, and adds dL to L.
func (m *SemiRBM) updateLateral(Xd, Xm *mat.Dense) {
	_, n := Xd.Dims()

	var grad, neg mat.Dense
	grad.Mul(Xd, Xd.T())
	neg.Mul(Xm, Xm.T())
	grad.Sub(&grad, &neg)
	grad.Scale(m.LearningRateLateral/float64(n), &grad)

	var decay mat.Dense
	decay.Scale(m.LearningRateLateral*m.WeightDecayLateral, m.L)

	m.DL.Scale(m.MomentumLateral, m.DL)
	m.DL.Add(m.DL, &grad)
	m.DL.Sub(m.DL, &decay)
	numeric.Symmetrize(m.DL)
	numeric.ZeroDiag(m.DL)

	m.L.Add(m.L, m.DL)
}
