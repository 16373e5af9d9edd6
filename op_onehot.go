package actdist

import (
	"fmt"
	"hash"
	"math"

	"github.com/chewxy/hm"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// oneHotOp turns float64 category indices into one-hot rows
type oneHotOp struct {
	k        int
	dims     int
	sentinel error
}

func newOneHotOp(k, dims int, sentinel error) (*oneHotOp, error) {
	if k < 1 {
		return nil, fmt.Errorf("number of categories must be positive, "+
			"got %v", k)
	}
	if dims < 1 {
		return nil, fmt.Errorf("indices must have at least one dimension")
	}
	if sentinel == nil {
		sentinel = fmt.Errorf("index out of range")
	}

	return &oneHotOp{k: k, dims: dims, sentinel: sentinel}, nil
}

func (o *oneHotOp) Arity() int { return 1 }

func (o *oneHotOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	in := G.TensorType{Dims: o.dims, Of: a}
	out := G.TensorType{Dims: o.dims + 1, Of: a}

	return hm.NewFnType(in, out)
}

func (o *oneHotOp) InferShape(inputs ...G.DimSizer) (tensor.Shape, error) {
	if err := CheckArity(o, len(inputs)); err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	if inputs[0] == nil {
		return nil, fmt.Errorf("inferShape: nil input")
	}

	in := inputs[0].(tensor.Shape)
	out := make(tensor.Shape, 0, len(in)+1)
	out = append(out, in...)

	return append(out, o.k), nil
}

func (o *oneHotOp) Do(values ...G.Value) (G.Value, error) {
	if err := CheckArity(o, len(values)); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	indices, err := Float64s(values[0])
	if err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	out := make([]float64, len(indices)*o.k)
	for i, ind := range indices {
		if ind != math.Trunc(ind) || ind < 0 || ind >= float64(o.k) {
			return nil, errors.Wrapf(o.sentinel, "index %v at position %d "+
				"not in [0, %d)", ind, i, o.k)
		}
		out[i*o.k+int(ind)] = 1.0
	}

	shape := append(valueShape(values[0]), o.k)
	return tensor.New(
		tensor.WithShape(shape...),
		tensor.WithBacking(out),
	), nil
}

func (o *oneHotOp) ReturnsPtr() bool { return false }

func (o *oneHotOp) CallsExtern() bool { return false }

func (o *oneHotOp) OverwritesInput() int { return -1 }

func (o *oneHotOp) WriteHash(h hash.Hash) { fmt.Fprint(h, o.String()) }

func (o *oneHotOp) Hashcode() uint32 { return SimpleHash(o) }

func (o *oneHotOp) String() string {
	return fmt.Sprintf("OneHot{k=%d, dims=%d}()", o.k, o.dims)
}

func (o *oneHotOp) DiffWRT(inputs int) []bool {
	return make([]bool, inputs)
}

func (o *oneHotOp) SymDiff(inputs G.Nodes, output,
	grad *G.Node) (G.Nodes, error) {
	return nil, fmt.Errorf("symDiff: %v is not differentiable", o)
}
