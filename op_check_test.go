package actdist

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func TestCheck_passThrough(t *testing.T) {
	g := G.NewGraph()
	in := newInput(g, "in", []int{3}, []float64{1, 2, 3})

	checked, err := Check(in, "finite", finite, errTestDomain)
	require.NoError(t, err)

	var checkedVal G.Value
	G.Read(checked, &checkedVal)

	cost := G.Must(G.Sum(G.Must(G.Square(checked))))
	grads, err := G.Grad(cost, in)
	require.NoError(t, err)
	var gradVal G.Value
	G.Read(grads[0], &gradVal)

	runGraph(t, g)

	assert.Equal(t, []float64{1, 2, 3}, values(t, checkedVal))
	assert.InDeltaSlice(t, []float64{2, 4, 6}, values(t, gradVal), 1e-12)
}

func TestCheck_fails(t *testing.T) {
	op := newCheckOp("finite", finite, errTestDomain)

	in := tensor.New(
		tensor.WithShape(2),
		tensor.WithBacking([]float64{0, math.Inf(1)}),
	)
	_, err := op.Do(in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errTestDomain))
	assert.Contains(t, err.Error(), "finite")

	// Failures surface from the graph as well
	g := G.NewGraph()
	x := newInput(g, "x", []int{2}, []float64{1, math.NaN()})
	_, err = Check(x, "finite", finite, errTestDomain)
	require.NoError(t, err)

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	assert.ErrorContains(t, vm.RunAll(), errTestDomain.Error())
}
