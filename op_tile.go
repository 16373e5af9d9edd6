package actdist

import (
	"fmt"
	"hash"

	"github.com/chewxy/hm"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// tileOp replicates its input along a new leading axis
type tileOp struct {
	n    int
	dims int // Dimensions of the input
}

func newTileOp(n, dims int) (*tileOp, error) {
	if n <= 0 {
		return nil, fmt.Errorf("expected n to be > 0, got %v", n)
	}
	if dims <= 0 {
		return nil, fmt.Errorf("cannot tile a scalar")
	}

	return &tileOp{
		n:    n,
		dims: dims,
	}, nil
}

func (t *tileOp) Arity() int { return 1 }

func (t *tileOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	in := G.TensorType{Dims: t.dims, Of: a}
	out := G.TensorType{Dims: t.dims + 1, Of: a}

	return hm.NewFnType(in, out)
}

func (t *tileOp) OverwritesInput() int { return -1 }

func (t *tileOp) ReturnsPtr() bool { return false }

func (t *tileOp) CallsExtern() bool { return false }

func (t *tileOp) String() string {
	return fmt.Sprintf("Tile{n=%v, dims=%v}()", t.n, t.dims)
}

func (t *tileOp) WriteHash(h hash.Hash) { fmt.Fprint(h, t.String()) }

func (t *tileOp) Hashcode() uint32 { return SimpleHash(t) }

func (t *tileOp) InferShape(in ...G.DimSizer) (tensor.Shape, error) {
	if err := CheckArity(t, len(in)); err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}

	shape, ok := in[0].(tensor.Shape)
	if !ok {
		return nil, fmt.Errorf("inferShape: expected a shape but got %T",
			in[0])
	}

	return append(tensor.Shape{t.n}, shape.Clone()...), nil
}

func (t *tileOp) DiffWRT(inputs int) []bool { return []bool{true} }

// SymDiff sums the incoming gradient over the tiled axis
func (t *tileOp) SymDiff(inputs G.Nodes, output, grad *G.Node) (G.Nodes,
	error) {
	if err := CheckArity(t, len(inputs)); err != nil {
		return nil, fmt.Errorf("symDiff: %v", err)
	}

	sum, err := G.Sum(grad, 0)
	if err != nil {
		return nil, fmt.Errorf("symDiff: %v", err)
	}

	// Reductions may drop unit dimensions, restore the input shape
	sum, err = G.Reshape(sum, inputs[0].Shape().Clone())
	if err != nil {
		return nil, fmt.Errorf("symDiff: %v", err)
	}

	return G.Nodes{sum}, nil
}

func (t *tileOp) Do(inputs ...G.Value) (G.Value, error) {
	if err := t.checkInputs(inputs...); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	in := inputs[0].(tensor.Tensor)
	shape := append(tensor.Shape{t.n}, in.Shape().Clone()...)

	switch in.Dtype() {
	case tensor.Float64:
		data, err := Float64s(in)
		if err != nil {
			return nil, fmt.Errorf("do: %v", err)
		}
		out := make([]float64, 0, len(data)*t.n)
		for i := 0; i < t.n; i++ {
			out = append(out, data...)
		}
		return tensor.New(tensor.WithShape(shape...),
			tensor.WithBacking(out)), nil

	case tensor.Float32:
		data, err := Float32s(in)
		if err != nil {
			return nil, fmt.Errorf("do: %v", err)
		}
		out := make([]float32, 0, len(data)*t.n)
		for i := 0; i < t.n; i++ {
			out = append(out, data...)
		}
		return tensor.New(tensor.WithShape(shape...),
			tensor.WithBacking(out)), nil
	}

	return nil, fmt.Errorf("do: dtype %v not supported", in.Dtype())
}

func (t *tileOp) checkInputs(inputs ...G.Value) error {
	if err := CheckArity(t, len(inputs)); err != nil {
		return err
	}

	in, ok := inputs[0].(tensor.Tensor)
	if !ok {
		return fmt.Errorf("expected tensor, received %T", inputs[0])
	} else if in == nil {
		return fmt.Errorf("cannot tile nil tensor")
	} else if in.Size() == 0 {
		return fmt.Errorf("cannot tile empty tensor")
	} else if in.Dims() != t.dims {
		return fmt.Errorf("expected %v dimensions but got shape %v",
			t.dims, in.Shape())
	}

	return nil
}
