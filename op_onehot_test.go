package actdist

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

var errTestDomain = errors.New("test: out of domain")

func TestOneHot(t *testing.T) {
	g := G.NewGraph()
	in := newInput(g, "indices", []int{2, 2}, []float64{0, 2, 1, 1})

	oh, err := OneHot(in, 3, errTestDomain)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2, 3}, oh.Shape())

	var ohVal G.Value
	G.Read(oh, &ohVal)
	runGraph(t, g)

	want := []float64{
		1, 0, 0,
		0, 0, 1,
		0, 1, 0,
		0, 1, 0,
	}
	assert.Equal(t, want, values(t, ohVal))
}

func TestOneHot_outOfRange(t *testing.T) {
	op, err := newOneHotOp(3, 1, errTestDomain)
	require.NoError(t, err)

	for _, bad := range []float64{-1, 3, 0.5} {
		in := tensor.New(
			tensor.WithShape(2),
			tensor.WithBacking([]float64{0, bad}),
		)
		_, err := op.Do(in)
		assert.True(t, errors.Is(err, errTestDomain), "index %v", bad)
	}
}

func TestOneHot_invalid(t *testing.T) {
	_, err := newOneHotOp(0, 1, nil)
	assert.Error(t, err)

	_, err = newOneHotOp(2, 0, nil)
	assert.Error(t, err)
}
