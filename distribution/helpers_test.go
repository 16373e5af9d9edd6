package distribution

import (
	"testing"

	"github.com/samuelfneumann/actdist"
	"github.com/samuelfneumann/actdist/space"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// matrix returns a named [len(rows), len(rows[0])] input node
func matrix(g *G.ExprGraph, name string, rows [][]float64) *G.Node {
	cols := len(rows[0])
	backing := make([]float64, 0, len(rows)*cols)
	for _, r := range rows {
		backing = append(backing, r...)
	}
	return input(g, name, backing, len(rows), cols)
}

// input returns a named input node with the given value
func input(g *G.ExprGraph, name string, backing []float64,
	shape ...int) *G.Node {
	return G.NewTensor(
		g,
		tensor.Float64,
		len(shape),
		G.WithShape(shape...),
		G.WithName(actdist.Unique(name)),
		G.WithValue(tensor.New(
			tensor.WithShape(shape...),
			tensor.WithBacking(append([]float64(nil), backing...)),
		)),
	)
}

// reader collects the values of nodes when the graph runs
type reader struct {
	values []*G.Value
}

func (r *reader) read(n *G.Node) *G.Value {
	v := new(G.Value)
	G.Read(n, v)
	r.values = append(r.values, v)
	return v
}

func run(t *testing.T, g *G.ExprGraph, opts ...G.VMOpt) {
	t.Helper()

	vm := G.NewTapeMachine(g, opts...)
	defer vm.Close()
	require.NoError(t, vm.RunAll())
}

func data(t *testing.T, v *G.Value) []float64 {
	t.Helper()

	require.NotNil(t, *v)
	out, err := actdist.Float64s(*v)
	require.NoError(t, err)
	return append([]float64(nil), out...)
}

func mustDiscrete(t *testing.T, n int) space.Space {
	s, err := space.NewDiscrete(n)
	require.NoError(t, err)
	return s
}

func mustBox(t *testing.T, low, high []float64) space.Space {
	s, err := space.NewBox(low, high)
	require.NoError(t, err)
	return s
}

func mustMultiDiscrete(t *testing.T, nvec ...int) space.Space {
	s, err := space.NewMultiDiscrete(nvec...)
	require.NoError(t, err)
	return s
}

// unitBox returns the box [-1, 1]^d
func unitBox(t *testing.T, d int) space.Space {
	low := make([]float64, d)
	high := make([]float64, d)
	for i := range low {
		low[i], high[i] = -1, 1
	}
	return mustBox(t, low, high)
}
