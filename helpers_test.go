package actdist

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// randInt returns a slice of n ints in [min, max)
func randInt(n, min, max int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = min + rand.Intn(max-min)
	}
	return out
}

// randF64 returns a slice of n float64s in [min, max)
func randF64(n int, min, max float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = min + rand.Float64()*(max-min)
	}
	return out
}

// randShape returns a random shape with between minDims and maxDims
// dimensions, each of size in [1, maxDimSize)
func randShape(minDims, maxDims, maxDimSize int) []int {
	return randInt(minDims+rand.Intn(maxDims-minDims), 1, maxDimSize)
}

func newInput(g *G.ExprGraph, name string, shape []int,
	backing []float64) *G.Node {
	return G.NewTensor(
		g,
		tensor.Float64,
		len(shape),
		G.WithName(Unique(name)),
		G.WithValue(tensor.New(
			tensor.WithShape(shape...),
			tensor.WithBacking(backing),
		)),
	)
}

func runGraph(t *testing.T, g *G.ExprGraph, opts ...G.VMOpt) {
	t.Helper()

	vm := G.NewTapeMachine(g, opts...)
	defer vm.Close()
	require.NoError(t, vm.RunAll())
}

func values(t *testing.T, v G.Value) []float64 {
	t.Helper()

	data, err := Float64s(v)
	require.NoError(t, err)
	return data
}
