package actdist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func noiseValues(t *testing.T, seed uint64) []float64 {
	g := G.NewGraph()
	template := newInput(g, "template", []int{100, 4}, make([]float64, 400))

	noise, err := UniformNoise(template, rand.NewSource(seed))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{100, 4}, noise.Shape())

	var noiseVal G.Value
	G.Read(noise, &noiseVal)
	runGraph(t, g)

	return values(t, noiseVal)
}

func TestUniformNoise(t *testing.T) {
	a := noiseValues(t, 42)
	b := noiseValues(t, 42)
	c := noiseValues(t, 43)

	assert.Equal(t, a, b, "equal seeds should give equal noise")
	assert.NotEqual(t, a, c)

	var mean float64
	for _, u := range a {
		assert.Greater(t, u, 0.0)
		assert.Less(t, u, 1.0)
		mean += u / float64(len(a))
	}
	assert.InDelta(t, 0.5, mean, 0.05)
}

func TestUniformNoise_distinctNodes(t *testing.T) {
	g := G.NewGraph()
	template := newInput(g, "template", []int{8}, make([]float64, 8))

	src := rand.NewSource(1)
	n1, err := UniformNoise(template, src)
	require.NoError(t, err)
	n2, err := UniformNoise(template, src)
	require.NoError(t, err)

	assert.NotEqual(t, n1.ID(), n2.ID())
}

func TestUniformNoise_invalid(t *testing.T) {
	_, err := newUniformNoiseOp(tensor.Int, rand.NewSource(1))
	assert.Error(t, err)

	_, err = newUniformNoiseOp(tensor.Float64, nil)
	assert.Error(t, err)
}

// highSource returns the largest possible draw a fixed number of times
// before returning ½
type highSource struct {
	high int
}

func (s *highSource) Uint64() uint64 {
	if s.high > 0 {
		s.high--
		return ^uint64(0)
	}
	return 1 << 52
}

func (s *highSource) Seed(uint64) {}

func TestUniformNoise_float32OpenInterval(t *testing.T) {
	// The largest float64 draw below 1 rounds to 1 as a float32
	op, err := newUniformNoiseOp(tensor.Float32, &highSource{high: 3})
	require.NoError(t, err)

	v, err := op.Do(tensor.New(tensor.WithShape(4), tensor.WithBacking(
		make([]float32, 4))))
	require.NoError(t, err)
	out, err := Float32s(v)
	require.NoError(t, err)
	for _, u := range out {
		assert.Greater(t, u, float32(0))
		assert.Less(t, u, float32(1))
	}
	assert.Equal(t, float32(0.5), out[0])

	op, err = newUniformNoiseOp(tensor.Float32, &highSource{high: 2})
	require.NoError(t, err)
	v, err = op.Do(G.NewF32(0))
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), float32(*v.(*G.F32)))
}
