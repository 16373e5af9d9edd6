package actdist

import (
	"fmt"
	"hash"

	"github.com/chewxy/hm"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// checkOp is an identity op which validates every element of its
// input on the forward pass
type checkOp struct {
	name     string
	pred     CheckFunc
	sentinel error
}

func newCheckOp(name string, pred CheckFunc, sentinel error) *checkOp {
	if sentinel == nil {
		sentinel = fmt.Errorf("check failed")
	}
	return &checkOp{name: name, pred: pred, sentinel: sentinel}
}

func (c *checkOp) Arity() int { return 1 }

func (c *checkOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a)
}

func (c *checkOp) InferShape(inputs ...G.DimSizer) (tensor.Shape, error) {
	if err := CheckArity(c, len(inputs)); err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	if inputs[0] == nil {
		return nil, fmt.Errorf("inferShape: nil input")
	}

	return inputs[0].(tensor.Shape).Clone(), nil
}

func (c *checkOp) Do(values ...G.Value) (G.Value, error) {
	if err := CheckArity(c, len(values)); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	var elems []float64
	if f32, err := Float32s(values[0]); err == nil {
		elems = make([]float64, len(f32))
		for i := range f32 {
			elems[i] = float64(f32[i])
		}
	} else if elems, err = Float64s(values[0]); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	for i, x := range elems {
		if !c.pred(x) {
			return nil, errors.Wrapf(c.sentinel, "%s: element %v at "+
				"position %d", c.name, x, i)
		}
	}

	return unary(values[0], identity64, identity32)
}

func (c *checkOp) ReturnsPtr() bool { return false }

func (c *checkOp) CallsExtern() bool { return false }

func (c *checkOp) OverwritesInput() int { return -1 }

func (c *checkOp) WriteHash(h hash.Hash) { fmt.Fprint(h, c.String()) }

func (c *checkOp) Hashcode() uint32 { return SimpleHash(c) }

func (c *checkOp) String() string { return fmt.Sprintf("Check{%s}()", c.name) }

func (c *checkOp) DiffWRT(inputs int) []bool {
	if inputs != 1 {
		panic(fmt.Sprintf("check operator only supports one input, got %d "+
			"instead", inputs))
	}
	return []bool{true}
}

// SymDiff passes the gradient through unchanged
func (c *checkOp) SymDiff(inputs G.Nodes, output,
	grad *G.Node) (G.Nodes, error) {
	if err := CheckArity(c, len(inputs)); err != nil {
		return nil, fmt.Errorf("symDiff: %v", err)
	}

	return G.Nodes{grad}, nil
}

func identity64(x float64) float64 { return x }

func identity32(x float32) float32 { return x }
