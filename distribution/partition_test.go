package distribution

import (
	"testing"

	"github.com/samuelfneumann/actdist/space"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
)

// evaluate returns the entropy of each row of logits and the
// log-probability of each row of values
func evaluate(t *testing.T, kind Kind, s space.Space, logits,
	values [][]float64) (entropy, logProb []float64) {
	g := G.NewGraph()
	d, err := FromLogits(kind, matrix(g, "logits", logits), s,
		DefaultConfig())
	require.NoError(t, err)

	var value *G.Node
	if len(values[0]) == 1 && kind == KindCategorical {
		flat := make([]float64, len(values))
		for i, v := range values {
			flat[i] = v[0]
		}
		value = input(g, "value", flat, len(values))
	} else {
		value = matrix(g, "value", values)
	}

	h, err := d.Entropy()
	require.NoError(t, err)
	lp, err := d.LogProb(value)
	require.NoError(t, err)

	var r reader
	hVal := r.read(h)
	lpVal := r.read(lp)
	run(t, g)

	return data(t, hVal), data(t, lpVal)
}

// Evaluating a batch gives the same results as evaluating each of its
// rows on its own
func TestBatchPartition(t *testing.T) {
	tests := []struct {
		kind   Kind
		space  space.Space
		logits [][]float64
		values [][]float64
	}{
		{
			kind:   KindCategorical,
			space:  mustDiscrete(t, 3),
			logits: [][]float64{{1, 2, 3}, {0, 0, 0}, {-5, 5, 0}},
			values: [][]float64{{2}, {0}, {1}},
		},
		{
			kind:  KindMultiCategorical,
			space: mustMultiDiscrete(t, 2, 3),
			logits: [][]float64{
				{0.5, -0.5, 1, 2, 3},
				{0, 0, 0, 0, 0},
				{3, -3, -1, 4, 0},
			},
			values: [][]float64{{1, 2}, {0, 0}, {1, 1}},
		},
		{
			kind:  KindDiagGaussian,
			space: unitBox(t, 2),
			logits: [][]float64{
				{0.5, -1, 0.2, -0.3},
				{0, 0, 0, 0},
				{3, 2, -2, 1},
			},
			values: [][]float64{{0.1, 0.2}, {-1, 1}, {2.5, 2}},
		},
		{
			kind:  KindSquashedGaussian,
			space: unitBox(t, 2),
			logits: [][]float64{
				{0.5, -0.2, 0, -1},
				{0, 0, 0, 0},
				{3, 2, -2, 1},
			},
			values: [][]float64{{0.1, 0.2}, {-1, 1}, {0.99, -0.5}},
		},
	}

	for _, test := range tests {
		t.Run(string(test.kind), func(t *testing.T) {
			h, lp := evaluate(t, test.kind, test.space, test.logits,
				test.values)
			require.Len(t, h, len(test.logits))
			require.Len(t, lp, len(test.logits))

			for i := range test.logits {
				hRow, lpRow := evaluate(t, test.kind, test.space,
					test.logits[i:i+1], test.values[i:i+1])

				assert.InDelta(t, hRow[0], h[i], 1e-12, "row %d", i)
				assert.InDelta(t, lpRow[0], lp[i], 1e-12, "row %d", i)
			}
		})
	}
}
