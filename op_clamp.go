package actdist

import (
	"fmt"
	"hash"

	"github.com/chewxy/hm"
	"github.com/samuelfneumann/top"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

type clampOp struct {
	min, max     interface{}
	passGradient bool
}

func newClampOp(min, max interface{}, passGradient bool) (*clampOp, error) {
	switch lo := min.(type) {
	case float64:
		hi, ok := max.(float64)
		if !ok {
			return nil, fmt.Errorf("min has type %T but max has type %T",
				min, max)
		}
		if lo > hi {
			return nil, fmt.Errorf("min %v > max %v", lo, hi)
		}

	case float32:
		hi, ok := max.(float32)
		if !ok {
			return nil, fmt.Errorf("min has type %T but max has type %T",
				min, max)
		}
		if lo > hi {
			return nil, fmt.Errorf("min %v > max %v", lo, hi)
		}

	default:
		return nil, fmt.Errorf("bounds of type %T not supported", min)
	}

	return &clampOp{
		min:          min,
		max:          max,
		passGradient: passGradient,
	}, nil
}

func (c *clampOp) DiffWRT(inputs int) []bool {
	return []bool{true}
}

func (c *clampOp) SymDiff(inputs G.Nodes, output, grad *G.Node) (G.Nodes,
	error) {
	err := CheckArity(c, len(inputs))
	if err != nil {
		return nil, fmt.Errorf("symDiff: %v", err)
	}

	if c.passGradient {
		return G.Nodes{grad}, nil
	}

	diffOp := &clampDiffOp{c}
	nodes := make(G.Nodes, 1)

	nodes[0], err = G.ApplyOp(diffOp, inputs[0], grad)

	return nodes, err
}

func (c *clampOp) Arity() int { return 1 }

func (c *clampOp) Type() hm.Type {
	a := hm.TypeVariable('a')

	return hm.NewFnType(a, a)
}

func (c *clampOp) InferShape(inputs ...G.DimSizer) (tensor.Shape, error) {
	if err := CheckArity(c, len(inputs)); err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	return inputs[0].(tensor.Shape).Clone(), nil
}

func (c *clampOp) ReturnsPtr() bool { return false }

func (c *clampOp) CallsExtern() bool { return false }

func (c *clampOp) OverwritesInput() int { return -1 }

func (c *clampOp) String() string {
	return fmt.Sprintf("Clamp{min=%v, max=%v, pass=%v}()", c.min, c.max,
		c.passGradient)
}

// WriteHash writes the hash of the receiver to a hash struct
func (c *clampOp) WriteHash(h hash.Hash) { fmt.Fprint(h, c.String()) }

// Hashcode returns the hash code of the receiver
func (c *clampOp) Hashcode() uint32 { return SimpleHash(c) }

func (c *clampOp) Do(inputs ...G.Value) (G.Value, error) {
	if err := c.checkInputs(inputs...); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	in := inputs[0].(tensor.Tensor)

	// tensor.Clamp allocates its result, leaving the input untouched
	cl, err := tensor.Clamp(in, c.min, c.max)
	if err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	return cl, nil
}

func (c *clampOp) checkInputs(inputs ...G.Value) error {
	err := CheckArity(c, len(inputs))
	if err != nil {
		return err
	}

	t, okTensor := inputs[0].(tensor.Tensor)

	if !okTensor {
		return fmt.Errorf("expected a tensor to clamp but got %T", inputs[0])
	} else if t == nil {
		return fmt.Errorf("cannot clamp nil tensor")
	} else if t.Size() == 0 {
		return fmt.Errorf("tensor must have more than 1 row per "+
			"dimension but got shape %v", t.Shape())
	}

	return nil
}

// clampDiffOp computes the gradient of a clampOp, which zeroes the
// incoming gradient wherever the input was clamped
type clampDiffOp struct {
	op *clampOp
}

func (c *clampDiffOp) Arity() int { return 2 }

func (c *clampDiffOp) Type() hm.Type {
	a := hm.TypeVariable('a')

	return hm.NewFnType(a, a, a)
}

func (c *clampDiffOp) InferShape(inputs ...G.DimSizer) (tensor.Shape, error) {
	if err := CheckArity(c, len(inputs)); err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	return inputs[0].(tensor.Shape).Clone(), nil
}

func (c *clampDiffOp) ReturnsPtr() bool { return false }

func (c *clampDiffOp) CallsExtern() bool { return false }

func (c *clampDiffOp) OverwritesInput() int { return -1 }

// WriteHash writes the hash of the receiver to a hash struct
func (c *clampDiffOp) WriteHash(h hash.Hash) { fmt.Fprint(h, c.String()) }

// Hashcode returns the hash code of the receiver
func (c *clampDiffOp) Hashcode() uint32 { return SimpleHash(c) }

func (c *clampDiffOp) String() string {
	return fmt.Sprintf("ClampDiff{min=%v, max=%v}()", c.op.min, c.op.max)
}

func (c *clampDiffOp) Do(inputs ...G.Value) (G.Value, error) {
	err := c.checkInputs(inputs...)
	if err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	in := inputs[0].(tensor.Tensor)
	grad := inputs[1].(tensor.Tensor)

	// Mask of 1 where the input lies in [min, max], 0 elsewhere
	mask, err := top.ClampB(in, c.op.min, c.op.max)
	if err != nil {
		return nil, fmt.Errorf("do: could not compute clamp mask: %v", err)
	}

	return tensor.Mul(mask, grad)
}

func (c *clampDiffOp) checkInputs(inputs ...G.Value) error {
	err := CheckArity(c, len(inputs))
	if err != nil {
		return err
	}

	t, okTensor := inputs[0].(tensor.Tensor)
	g, okGrad := inputs[1].(tensor.Tensor)

	if !okTensor {
		return fmt.Errorf("expected a tensor to clamp but got %T", inputs[0])
	} else if !okGrad {
		return fmt.Errorf("expected a tensor gradient but got %T", inputs[1])
	} else if !t.Shape().Eq(g.Shape()) {
		return fmt.Errorf("input has shape %v but gradient has shape %v",
			t.Shape(), g.Shape())
	}

	return nil
}
