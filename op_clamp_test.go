package actdist

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func TestClamp(t *testing.T) {
	const numTests int = 15 // The number of random tests to run
	const scale float64 = 5 // Values are clamped based on scale
	rand.Seed(2)

	for i := 0; i < numTests; i++ {
		min := scale * (rand.Float64() - 1) // Random in [-scale, 0)
		max := scale * rand.Float64()       // Random in [0, scale)

		shape := randShape(1, 4, 10)
		backing := randF64(tensor.ProdInts(shape), min*2, max*2)

		for _, passGradient := range []bool{false, true} {
			g := G.NewGraph()
			in := newInput(g, "in", shape, backing)

			c, err := Clamp(in, min, max, passGradient)
			require.NoError(t, err)
			var cVal G.Value
			G.Read(c, &cVal)

			grads, err := G.Grad(G.Must(G.Sum(c)), in)
			require.NoError(t, err)
			var gradVal G.Value
			G.Read(grads[0], &gradVal)

			runGraph(t, g)

			out := values(t, cVal)
			grad := values(t, gradVal)
			for j, x := range backing {
				assert.GreaterOrEqual(t, out[j], min)
				assert.LessOrEqual(t, out[j], max)

				switch {
				case passGradient || (x >= min && x <= max):
					assert.Equal(t, 1.0, grad[j])
					if x >= min && x <= max {
						assert.Equal(t, x, out[j])
					}
				default:
					assert.Equal(t, 0.0, grad[j])
				}
			}
		}
	}
}

func TestClamp_invalidBounds(t *testing.T) {
	g := G.NewGraph()
	in := newInput(g, "in", []int{2}, []float64{0, 1})

	_, err := Clamp(in, 1.0, -1.0, false)
	assert.Error(t, err)

	_, err = Clamp(in, 1, 2, false)
	assert.Error(t, err, "int bounds should be rejected")
}
