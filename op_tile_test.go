package actdist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func TestTile(t *testing.T) {
	g := G.NewGraph()
	in := newInput(g, "in", []int{2, 3}, []float64{1, 2, 3, 4, 5, 6})

	tiled, err := Tile(in, 3)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2, 3}, tiled.Shape())

	var tiledVal G.Value
	G.Read(tiled, &tiledVal)

	// d/dx Σ_i w_i * tile(x)_i = Σ_i w_i, with w_i = i+1
	weights := make([]float64, 18)
	for i := range weights {
		weights[i] = float64(i/6 + 1)
	}
	w := newInput(g, "w", []int{3, 2, 3}, weights)
	cost := G.Must(G.Sum(G.Must(G.HadamardProd(tiled, w))))

	grads, err := G.Grad(cost, in)
	require.NoError(t, err)
	var gradVal G.Value
	G.Read(grads[0], &gradVal)

	runGraph(t, g)

	want := []float64{1, 2, 3, 4, 5, 6}
	got := values(t, tiledVal)
	for i := 0; i < 3; i++ {
		assert.Equal(t, want, got[i*6:(i+1)*6])
	}

	assert.Equal(t, []float64{6, 6, 6, 6, 6, 6}, values(t, gradVal))
	assert.True(t, gradVal.Shape().Eq(tensor.Shape{2, 3}))
}

func TestTile_invalid(t *testing.T) {
	_, err := newTileOp(0, 2)
	assert.Error(t, err)

	_, err = newTileOp(2, 0)
	assert.Error(t, err)
}
