package distribution

import (
	"math"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/actdist"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// sampleCount returns the number of draws per row for a sample shape
func sampleCount(shape []int) (int, error) {
	n := 1
	for _, s := range shape {
		if s <= 0 {
			return 0, errors.Wrapf(ErrUnsupportedShape, "sample shape %v "+
				"must be positive", shape)
		}
		n *= s
	}
	return n, nil
}

func concatInts(parts ...[]int) []int {
	var out []int
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// reshape reshapes x unless it already has the given shape
func reshape(x *G.Node, shape ...int) (*G.Node, error) {
	if x.Shape().Eq(tensor.Shape(shape)) {
		return x, nil
	}
	return G.Reshape(x, shape)
}

// flatten reshapes a value of shape S ++ [batch] ++ event to
// [n, batch] ++ event, where n is the number of elements of S, and
// returns S
func flatten(value *G.Node, batch int, event []int) (*G.Node, []int,
	error) {
	shape := value.Shape()
	trailing := concatInts([]int{batch}, event)

	if len(shape) < len(trailing) ||
		!tensor.Shape(shape[len(shape)-len(trailing):]).Eq(trailing) {
		return nil, nil, errors.Wrapf(ErrUnsupportedShape, "value shape %v "+
			"does not end in %v", shape, trailing)
	}

	lead := append([]int(nil), shape[:len(shape)-len(trailing)]...)
	n, err := sampleCount(lead)
	if err != nil {
		return nil, nil, err
	}

	flat, err := reshape(value, concatInts([]int{n}, trailing)...)
	if err != nil {
		return nil, nil, errors.Wrapf(ErrUnsupportedShape, "%v", err)
	}
	return flat, lead, nil
}

// checkStatic validates the elements of x when x already holds a
// value, so that bad inputs are reported when the graph is built
// rather than when it is run
func checkStatic(x *G.Node, name string, pred actdist.CheckFunc,
	sentinel error) error {
	if x.Value() == nil {
		return nil
	}

	data, err := actdist.Float64s(x.Value())
	if err != nil {
		return errors.Wrapf(ErrUnsupportedDtype, "%s: %v", name, err)
	}

	for i, v := range data {
		if !pred(v) {
			return errors.Wrapf(sentinel, "%s: element %v at position %d",
				name, v, i)
		}
	}
	return nil
}

// validate checks x statically if possible and adds a Check to the
// graph for the values x takes when it is run
func validate(x *G.Node, name string, pred actdist.CheckFunc,
	sentinel error) (*G.Node, error) {
	if err := checkStatic(x, name, pred, sentinel); err != nil {
		return nil, err
	}

	return actdist.Check(x, name, pred, sentinel)
}

// constant returns a constant node of the given shape holding backing
func constant(g *G.ExprGraph, backing []float64, shape ...int) *G.Node {
	return g.Constant(tensor.New(
		tensor.WithShape(shape...),
		tensor.WithBacking(backing),
	))
}

// tileRows returns a constant [n, batch, len(row)] node whose every
// row is row
func tileRows(g *G.ExprGraph, row []float64, n, batch int) *G.Node {
	backing := make([]float64, 0, n*batch*len(row))
	for i := 0; i < n*batch; i++ {
		backing = append(backing, row...)
	}
	return constant(g, backing, n, batch, len(row))
}

func checkFloat64(nodes ...*G.Node) error {
	for _, n := range nodes {
		if n.Dtype() != tensor.Float64 {
			return errors.Wrapf(ErrUnsupportedDtype, "expected %v but got %v",
				tensor.Float64, n.Dtype())
		}
	}
	return nil
}

func sameGraph(a, b *G.Node) bool {
	return a.Graph() == b.Graph()
}
