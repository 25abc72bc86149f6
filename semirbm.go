// Package semirbm implements the semi-restricted Boltzmann machine.
//
// In contrast to a restricted Boltzmann machine, a SemiRBM also has
// symmetric lateral connections between its visible units. Given the hidden
// units the visible units are therefore no longer independent, and are
// sampled either with damped parallel mean field updates or with sequential
// Gibbs sampling in random order.
//
// Reference: Osindero, S. and Hinton, G.E. (2008). Modeling image patches
// with a directed hierarchy of Markov random fields.
//
// A SemiRBM is not safe for concurrent use. Clone a model to run independent
// chains in parallel.
package semirbm

import (
	"math/rand"
	"time"

	"github.com/gorgonia/semirbm/rbm"
	"gonum.org/v1/gonum/mat"
)

// ErrShape is the cause of every error returned for a matrix of the wrong size.
var ErrShape = rbm.ErrShape

// SemiRBM is a semi-restricted Boltzmann machine with binary units.
type SemiRBM struct {
	rbm.RBM
	Lateral

	// L connects the visible units. It is symmetric with a zero diagonal.
	L, DL *mat.Dense

	seed       int64
	importance *ImportanceSamples
}

// New creates a SemiRBM with small random weights.
func New(numVisibles, numHiddens int, conf Config) (*SemiRBM, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	seed := conf.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(seed))

	base, err := rbm.New(numVisibles, numHiddens, conf.Config, r)
	if err != nil {
		return nil, err
	}

	// small values keep the early mean field dynamics stable
	scale := 1 / float64(numVisibles) / 200
	L := mat.NewDense(numVisibles, numVisibles, nil)
	for i := 0; i < numVisibles; i++ {
		for j := i + 1; j < numVisibles; j++ {
			w := r.NormFloat64() * scale
			L.Set(i, j, w)
			L.Set(j, i, w)
		}
	}

	return &SemiRBM{
		RBM:     *base,
		Lateral: conf.Lateral,
		L:       L,
		DL:      mat.NewDense(numVisibles, numVisibles, nil),
		seed:    seed,
	}, nil
}

// Conf returns the current configuration of the model.
func (m *SemiRBM) Conf() Config {
	return Config{
		Config:  m.Config,
		Lateral: m.Lateral,
		Seed:    m.seed,
	}
}

// Clone returns a deep copy of m. The clone owns a new random stream seeded
// from m's, so both can sample independently.
func (m *SemiRBM) Clone() *SemiRBM {
	seed := m.Rand.Int63()
	return &SemiRBM{
		RBM:        *m.RBM.Clone(rand.New(rand.NewSource(seed))),
		Lateral:    m.Lateral,
		L:          mat.DenseCopyOf(m.L),
		DL:         mat.DenseCopyOf(m.DL),
		seed:       seed,
		importance: m.importance,
	}
}
