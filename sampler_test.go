package semirbm

import (
	"math"
	"math/rand"
	"testing"

	"github.com/gorgonia/semirbm/internal/numeric"
	"github.com/gorgonia/semirbm/rbm"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func assertProbabilities(t *testing.T, a *mat.Dense) {
	t.Helper()
	r, c := a.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := a.At(i, j)
			if !(v >= 0 && v <= 1) {
				t.Fatalf("Entry (%d, %d) = %v is not a probability", i, j, v)
			}
		}
	}
}

func TestProbabilityRange(t *testing.T) {
	for _, method := range []rbm.SamplingMethod{rbm.MeanField, rbm.Gibbs} {
		t.Run(method.String(), func(t *testing.T) {
			m := newTestModel(t, 6, 4, 5, func(c *Config) { c.SamplingMethod = method })
			X := randomBinary(rand.New(rand.NewSource(6)), 6, 12, 0.5)

			_, err := m.Forward(X)
			require.NoError(t, err)
			_, err = m.Backward(nil, nil)
			require.NoError(t, err)
			assertProbabilities(t, m.Q)
			assertProbabilities(t, m.P)

			// saturating parameters
			m.W.Scale(1000, m.W)
			m.L.Scale(1000, m.L)
			_, err = m.Forward(X)
			require.NoError(t, err)
			_, err = m.Backward(nil, X)
			require.NoError(t, err)
			assertProbabilities(t, m.Q)
			assertProbabilities(t, m.P)
		})
	}
}

func TestReproducible(t *testing.T) {
	for _, method := range []rbm.SamplingMethod{rbm.MeanField, rbm.Gibbs} {
		t.Run(method.String(), func(t *testing.T) {
			opt := func(c *Config) { c.SamplingMethod = method }
			a := newTestModel(t, 5, 3, 2021, opt)
			b := newTestModel(t, 5, 3, 2021, opt)
			X := randomBinary(rand.New(rand.NewSource(1)), 5, 20, 0.5)

			Ya, err := a.Forward(X)
			require.NoError(t, err)
			Yb, err := b.Forward(X)
			require.NoError(t, err)
			assert.True(t, mat.Equal(Ya, Yb))

			Xa, err := a.Backward(Ya, nil)
			require.NoError(t, err)
			Xb, err := b.Backward(Yb, nil)
			require.NoError(t, err)
			assert.True(t, mat.Equal(Xa, Xb))
		})
	}
}

// replicate returns n copies of the single column a.
func replicate(a *mat.Dense, n int) *mat.Dense {
	r, _ := a.Dims()
	retVal := mat.NewDense(r, n, nil)
	col := mat.Col(nil, 0, a)
	for j := 0; j < n; j++ {
		retVal.SetCol(j, col)
	}
	return retVal
}

// assertEmpiricalMeans checks every row mean of the binary samples against
// the probability in the first column of probs, within 4 standard errors.
func assertEmpiricalMeans(t *testing.T, samples, probs *mat.Dense) {
	t.Helper()
	r, n := samples.Dims()
	for i := 0; i < r; i++ {
		p := probs.At(i, 0)
		mean := stat.Mean(samples.RawRowView(i), nil)
		se := math.Sqrt(p * (1 - p) / float64(n))
		assert.InDelta(t, p, mean, 4*se+1e-9, "unit %d", i)
	}
}

func TestEmpiricalMeans(t *testing.T) {
	const draws = 10000
	m := newTestModel(t, 4, 3, 77)
	m.W.Apply(func(i, j int, _ float64) float64 { return 0.5 * float64(i-j) }, m.W)
	m.C.SetVec(1, -0.3)
	m.L.Set(0, 1, 0.4)
	m.L.Set(1, 0, 0.4)

	X := replicate(mat.NewDense(4, 1, []float64{1, 0, 1, 1}), draws)
	Y, err := m.Forward(X)
	require.NoError(t, err)
	assertEmpiricalMeans(t, Y, m.Q)

	Y = replicate(mat.NewDense(3, 1, []float64{1, 0, 1}), draws)
	Xs, err := m.Backward(Y, nil)
	require.NoError(t, err)
	assertEmpiricalMeans(t, Xs, m.P)
}

func TestMeanFieldConvergence(t *testing.T) {
	m := newTestModel(t, 4, 2, 3)
	signs := []float64{1, -1, 1, -1, 1, -1}
	var k int
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			m.L.Set(i, j, 0.8*signs[k])
			m.L.Set(j, i, 0.8*signs[k])
			k++
		}
	}
	m.B.SetVec(0, 1)
	m.B.SetVec(3, -2)

	for _, damping := range []float64{0.1, 0.2, 0.5, 0.9} {
		m.Damping = damping
		Y := mat.NewDense(2, 3, []float64{1, 0, 1, 0, 1, 1})
		bias := m.dynamicBias(Y)

		P := mat.NewDense(4, 3, nil)
		P.Mul(m.L, mat.NewDense(4, 3, nil))
		P.Add(P, bias)
		numeric.ApplySigmoid(P)
		act := mat.NewDense(4, 3, nil)

		var residuals []float64
		prev := mat.DenseCopyOf(P)
		for it := 0; it < 300; it++ {
			m.meanFieldStep(bias, P, act)
			var diff mat.Dense
			diff.Sub(P, prev)
			residuals = append(residuals, mat.Norm(&diff, 2))
			prev.Copy(P)
		}
		for it := 2; it < len(residuals); it++ {
			assert.True(t, residuals[it] <= residuals[it-1]+1e-12,
				"damping %v: residual grew from %v to %v at iteration %d", damping, residuals[it-1], residuals[it], it)
		}
		assert.True(t, residuals[len(residuals)-1] < 1e-4, "damping %v did not converge", damping)
	}
}

func TestGibbsExactness(t *testing.T) {
	const chains = 20000
	m := newTestModel(t, 3, 2, 11, withGibbs)
	m.NumLateralUpdates = 20
	m.W.Copy(mat.NewDense(3, 2, []float64{
		0.5, -1,
		-0.5, 0.3,
		1, 0.2,
	}))
	m.B.SetVec(0, -0.2)
	m.B.SetVec(1, 0.4)
	m.B.SetVec(2, -0.6)
	lateral := [][3]float64{{0, 1, 1.2}, {0, 2, -0.8}, {1, 2, 0.9}}
	for _, l := range lateral {
		i, j := int(l[0]), int(l[1])
		m.L.Set(i, j, l[2])
		m.L.Set(j, i, l[2])
	}

	y := mat.NewDense(2, 1, []float64{1, 0})
	Xs, err := m.Backward(replicate(y, chains), nil)
	require.NoError(t, err)

	// exact conditional distribution by enumeration
	states := allStates(3)
	logp, err := m.ULogProb(states, replicate(y, 8), false)
	require.NoError(t, err)
	var z float64
	exact := make([]float64, 8)
	for s := range exact {
		exact[s] = math.Exp(logp.At(0, s))
		z += exact[s]
	}

	counts := make([]float64, 8)
	for j := 0; j < chains; j++ {
		var s int
		for i := 0; i < 3; i++ {
			if Xs.At(i, j) == 1 {
				s |= 1 << uint(i)
			}
		}
		counts[s]++
	}

	for s := range exact {
		p := exact[s] / z
		se := math.Sqrt(p * (1 - p) / chains)
		assert.InDelta(t, p, counts[s]/chains, 4*se+1e-3, "state %03b", s)
	}
}

func TestBackwardInitialState(t *testing.T) {
	m := newTestModel(t, 4, 2, 8, withGibbs)
	Y := mat.NewDense(2, 3, []float64{1, 0, 1, 0, 1, 1})

	// the shape of the chain is inferred from Y
	X, err := m.Backward(Y, nil)
	require.NoError(t, err)
	r, c := X.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 3, c)

	// explicit initial states are not modified
	init := mat.NewDense(4, 3, []float64{1, 1, 1, 0, 0, 0, 1, 0, 1, 0, 1, 0})
	orig := mat.DenseCopyOf(init)
	_, err = m.Backward(Y, init)
	require.NoError(t, err)
	assert.True(t, mat.Equal(orig, init))

	_, err = m.Backward(Y, mat.NewDense(4, 2, nil))
	assert.Equal(t, ErrShape, errors.Cause(err))
	_, err = m.Backward(mat.NewDense(3, 3, nil), nil)
	assert.Equal(t, ErrShape, errors.Cause(err))
	_, err = m.Forward(mat.NewDense(5, 1, nil))
	assert.Equal(t, ErrShape, errors.Cause(err))
}

func TestVisibleProbsIsPure(t *testing.T) {
	m := newTestModel(t, 4, 2, 9)
	Y := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	_, err := m.Backward(Y, nil)
	require.NoError(t, err)
	P, X := mat.DenseCopyOf(m.P), mat.DenseCopyOf(m.X)

	probs, err := m.VisibleProbs(Y, nil)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(P, probs, 1e-12), "mean field is deterministic")
	assert.True(t, mat.Equal(P, m.P))
	assert.True(t, mat.Equal(X, m.X))
}

func TestSample(t *testing.T) {
	m := newTestModel(t, 5, 3, 10)
	X, err := m.Sample(7, 3)
	require.NoError(t, err)
	r, c := X.Dims()
	assert.Equal(t, 5, r)
	assert.Equal(t, 7, c)
	for _, v := range X.RawMatrix().Data {
		assert.True(t, v == 0 || v == 1)
	}

	_, err = m.Sample(0, 3)
	assert.Error(t, err)
	_, err = m.Sample(3, -1)
	assert.Error(t, err)
}
