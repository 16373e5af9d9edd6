package distribution

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
)

func newTestDiagGaussian(t *testing.T, g *G.ExprGraph,
	rows [][]float64) *DiagGaussian {
	d, err := FromLogits(KindDiagGaussian, matrix(g, "logits", rows),
		unitBox(t, len(rows[0])/2), DefaultConfig())
	require.NoError(t, err)
	return d.(*DiagGaussian)
}

// referenceGaussian returns the reference distribution of a row of
// [mean, log std] parameters
func referenceGaussian(t *testing.T, row []float64) *distmv.Normal {
	d := len(row) / 2
	sigma := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		sigma.SetSym(i, i, math.Exp(2*row[d+i]))
	}

	n, ok := distmv.NewNormal(row[:d], sigma, nil)
	require.True(t, ok)
	return n
}

func TestDiagGaussian_scenario(t *testing.T) {
	g := G.NewGraph()
	p := newTestDiagGaussian(t, g, [][]float64{{0, 0}})
	same := newTestDiagGaussian(t, g, [][]float64{{0, 0}})
	shifted := newTestDiagGaussian(t, g, [][]float64{{1, 0}})

	klSame, err := p.KL(same)
	require.NoError(t, err)
	klShifted, err := p.KL(shifted)
	require.NoError(t, err)
	h, err := p.Entropy()
	require.NoError(t, err)

	var r reader
	sameVal := r.read(klSame)
	shiftedVal := r.read(klShifted)
	hVal := r.read(h)
	run(t, g)

	assert.InDelta(t, 0.0, data(t, sameVal)[0], 1e-12)
	assert.InDelta(t, 0.5, data(t, shiftedVal)[0], 1e-12)
	assert.InDelta(t, 0.5*math.Log(2*math.Pi*math.E), data(t, hVal)[0], 1e-12)
}

func TestDiagGaussian_reference(t *testing.T) {
	pRows := [][]float64{
		{0.5, -1, 0.2, -0.3},
		{-2, 3, 1, 0.7},
	}
	qRows := [][]float64{
		{0, 0, 0, 0},
		{1, 1, -0.5, 0.1},
	}
	values := []float64{
		0.1, 0.2,
		-1.5, 4,
	}

	g := G.NewGraph()
	p := newTestDiagGaussian(t, g, pRows)
	q := newTestDiagGaussian(t, g, qRows)
	assert.Equal(t, 2, p.Dims())

	h, err := p.Entropy()
	require.NoError(t, err)
	kl, err := p.KL(q)
	require.NoError(t, err)
	lp, err := p.LogProb(input(g, "value", values, 2, 2))
	require.NoError(t, err)

	var r reader
	hVal := r.read(h)
	klVal := r.read(kl)
	lpVal := r.read(lp)
	run(t, g)

	var divergence distmv.KullbackLeibler
	for row := range pRows {
		pRef := referenceGaussian(t, pRows[row])
		qRef := referenceGaussian(t, qRows[row])

		assert.InDelta(t, pRef.Entropy(), data(t, hVal)[row], 1e-9)
		assert.InDelta(t, divergence.DistNormal(pRef, qRef),
			data(t, klVal)[row], 1e-9)
		assert.InDelta(t, pRef.LogProb(values[2*row:2*row+2]),
			data(t, lpVal)[row], 1e-9)
		assert.GreaterOrEqual(t, data(t, klVal)[row], 0.0)
	}
}

func TestDiagGaussian_sampleRoundTrip(t *testing.T) {
	rows := [][]float64{{0.5, -1, 0.2, -0.3}, {0, 0, 0, 0}}

	for _, reparameterized := range []bool{false, true} {
		g := G.NewGraph()
		d := newTestDiagGaussian(t, g, rows)

		cfg := SampleConfig{
			Shape:         []int{7},
			ReturnLogProb: true,
			Source:        rand.NewSource(5),
		}
		sample := d.Sample
		if reparameterized {
			sample = d.Rsample
		}
		value, lp, err := sample(cfg)
		require.NoError(t, err)
		assert.Equal(t, []int{7, 2, 2}, []int(value.Shape()))
		assert.Equal(t, []int{7, 2}, []int(lp.Shape()))

		var r reader
		valueVal := r.read(value)
		lpVal := r.read(lp)
		run(t, g)

		// Score the sampled values again on a fresh graph
		g2 := G.NewGraph()
		d2 := newTestDiagGaussian(t, g2, rows)
		lp2, err := d2.LogProb(input(g2, "value", data(t, valueVal), 7, 2, 2))
		require.NoError(t, err)

		var r2 reader
		lp2Val := r2.read(lp2)
		run(t, g2)

		assert.InDeltaSlice(t, data(t, lpVal), data(t, lp2Val), 1e-12)
	}
}

func TestDiagGaussian_sampleMoments(t *testing.T) {
	const samples = 5000
	rows := [][]float64{{1.5, -2, math.Log(0.5), math.Log(2)}}

	for _, reparameterized := range []bool{false, true} {
		g := G.NewGraph()
		d := newTestDiagGaussian(t, g, rows)

		cfg := SampleConfig{Shape: []int{samples}, Source: rand.NewSource(9)}
		sample := d.Sample
		if reparameterized {
			sample = d.Rsample
		}
		value, _, err := sample(cfg)
		require.NoError(t, err)

		var r reader
		valueVal := r.read(value)
		run(t, g)

		v := data(t, valueVal)
		for dim, want := range []distuv.Normal{
			{Mu: 1.5, Sigma: 0.5},
			{Mu: -2, Sigma: 2},
		} {
			var mean, sq float64
			for i := 0; i < samples; i++ {
				x := v[2*i+dim]
				mean += x / samples
				sq += x * x / samples
			}
			std := math.Sqrt(sq - mean*mean)

			assert.InDelta(t, want.Mean(), mean, 4*want.StdDev()/
				math.Sqrt(samples))
			assert.InDelta(t, want.StdDev(), std, 0.05*want.StdDev())
		}
	}
}

// rsampleCost builds a graph computing Σ rsample(logits)² with a fixed
// noise seed and returns the cost and, if requested, its gradient
// w.r.t. the logits
func rsampleCost(t *testing.T, logits []float64, withGrad bool) (float64,
	[]float64) {
	g := G.NewGraph()
	logitsNode := input(g, "logits", logits, 2, 4)

	d, err := FromLogits(KindDiagGaussian, logitsNode, unitBox(t, 2),
		DefaultConfig())
	require.NoError(t, err)

	value, _, err := d.Rsample(SampleConfig{
		Shape:  []int{3},
		Source: rand.NewSource(17),
	})
	require.NoError(t, err)
	cost := G.Must(G.Sum(G.Must(G.Square(value))))

	var r reader
	costVal := r.read(cost)

	var gradVal *G.Value
	if withGrad {
		grads, err := G.Grad(cost, logitsNode)
		require.NoError(t, err)
		gradVal = r.read(grads[0])
	}

	run(t, g)

	var grad []float64
	if withGrad {
		grad = data(t, gradVal)
	}
	return data(t, costVal)[0], grad
}

func TestDiagGaussian_rsampleGradient(t *testing.T) {
	const h = 1e-6
	logits := []float64{
		0.3, -0.2, -0.5, 0.1,
		1.0, 0.4, 0.2, -1.0,
	}

	_, grad := rsampleCost(t, logits, true)
	require.Len(t, grad, len(logits))

	for i := range logits {
		plus := append([]float64(nil), logits...)
		minus := append([]float64(nil), logits...)
		plus[i] += h
		minus[i] -= h

		fPlus, _ := rsampleCost(t, plus, false)
		fMinus, _ := rsampleCost(t, minus, false)
		want := (fPlus - fMinus) / (2 * h)

		assert.InDelta(t, want, grad[i], 1e-4*math.Max(1, math.Abs(want)),
			"logit %d", i)
	}
}

func TestDiagGaussian_logStdClamp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinLogStd, cfg.MaxLogStd = -1, 1

	g := G.NewGraph()
	logits := matrix(g, "logits", [][]float64{{0, 0, -5, 5}})
	d, err := FromLogits(KindDiagGaussian, logits, unitBox(t, 2), cfg)
	require.NoError(t, err)

	var r reader
	logStdVal := r.read(d.(*DiagGaussian).LogStd())
	run(t, g)

	assert.Equal(t, []float64{-1, 1}, data(t, logStdVal))
}

func TestDiagGaussian_errors(t *testing.T) {
	g := G.NewGraph()
	d := newTestDiagGaussian(t, g, [][]float64{{0, 0}})

	_, err := d.LogProb(input(g, "value", []float64{math.Inf(1)}, 1, 1))
	assert.True(t, errors.Is(err, ErrDomain))

	_, err = d.LogProb(input(g, "value", []float64{0, 0}, 1, 2))
	assert.True(t, errors.Is(err, ErrUnsupportedShape))

	_, _, err = d.Rsample(SampleConfig{Shape: []int{-1}})
	assert.True(t, errors.Is(err, ErrUnsupportedShape))

	mean := matrix(g, "mean", [][]float64{{0, 1}})
	_, err = NewDiagGaussian(mean, matrix(g, "logStd", [][]float64{{0}}),
		DefaultConfig())
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	_, err = NewDiagGaussian(mean, matrix(g, "logStd",
		[][]float64{{0, math.NaN()}}), DefaultConfig())
	assert.True(t, errors.Is(err, ErrInvalidParameter))

	_, err = NewDiagGaussian(mean, matrix(g, "logStd", [][]float64{{0, 0}}),
		Config{})
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}
