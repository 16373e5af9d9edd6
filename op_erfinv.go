package actdist

import (
	"fmt"
	"hash"
	"math"

	"github.com/chewxy/hm"
	"github.com/samuelfneumann/math32"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// erfinvOp is the element-wise inverse error function
type erfinvOp struct{}

// newErfinvOp returns a new erfinvOp
func newErfinvOp() G.Op {
	return &erfinvOp{}
}

// Arity returns the number of elements this operation takes
func (e *erfinvOp) Arity() int { return 1 }

// Type returns the type of the operation
func (e *erfinvOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a)
}

// Do runs the erfinv operation
func (e *erfinvOp) Do(values ...G.Value) (G.Value, error) {
	if err := CheckArity(e, len(values)); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}
	if values[0] == nil {
		return nil, fmt.Errorf("do: no input")
	}

	out, err := unary(values[0], math.Erfinv, math32.Erfinv)
	if err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	return out, nil
}

// ReturnsPtr indicates whether this Op returns a pointer to its
// output value
func (e *erfinvOp) ReturnsPtr() bool { return false }

// CallsExtern returns whether this Op calls any external functions
func (e *erfinvOp) CallsExtern() bool { return false }

// OverwritesInput returns the index of the input that this op
// will overwrite
func (e *erfinvOp) OverwritesInput() int { return -1 }

// String returns the string representation of the struct
func (e *erfinvOp) String() string { return "Erfinv()" }

// InferShape returns the output shape as a function of the inputs
func (e *erfinvOp) InferShape(inputs ...G.DimSizer) (tensor.Shape, error) {
	err := CheckArity(e, len(inputs))
	if err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	if inputs[0] == nil {
		return nil, fmt.Errorf("inferShape: nil input")
	}

	return inputs[0].(tensor.Shape).Clone(), nil
}

// WriteHash writes the hash of the receiver to a hash struct
func (e *erfinvOp) WriteHash(h hash.Hash) { fmt.Fprint(h, e.String()) }

// Hashcode returns the hash code of the receiver
func (e *erfinvOp) Hashcode() uint32 { return SimpleHash(e) }

// SymDiff returns the gradient of erfinv
func (e *erfinvOp) SymDiff(inputs G.Nodes, output,
	grad *G.Node) (G.Nodes, error) {
	err := CheckArity(e, len(inputs))
	if err != nil {
		return nil, fmt.Errorf("symDiff: %v", err)
	}

	nodes := make(G.Nodes, 1)
	nodes[0], err = G.ApplyOp(&erfinvDiffOp{}, inputs[0], grad)

	return nodes, err
}

// DiffWRT returns which inputs erfinv is differentiable with respect
// to
func (e *erfinvOp) DiffWRT(inputs int) []bool {
	if inputs != 1 {
		panic(fmt.Sprintf("erfinv operator only supports one input, got %d "+
			"instead", inputs))
	}
	return []bool{true}
}

// erfinvDiffOp computes grad * d/dx erfinv(x)
// = grad * √π/2 * exp(erfinv(x)²)
type erfinvDiffOp struct{}

func (e *erfinvDiffOp) Arity() int { return 2 }

func (e *erfinvDiffOp) ReturnsPtr() bool { return false }

func (e *erfinvDiffOp) CallsExtern() bool { return false }

func (e *erfinvDiffOp) WriteHash(h hash.Hash) { fmt.Fprint(h, e.String()) }

func (e *erfinvDiffOp) Hashcode() uint32 { return SimpleHash(e) }

func (e *erfinvDiffOp) String() string { return "ErfinvDiff()" }

func (e *erfinvDiffOp) InferShape(inputs ...G.DimSizer) (tensor.Shape,
	error) {
	err := CheckArity(e, len(inputs))
	if err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	if inputs[0] == nil {
		return nil, fmt.Errorf("inferShape: nil input")
	}

	return inputs[0].(tensor.Shape).Clone(), nil
}

func (e *erfinvDiffOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a, a)
}

func (e *erfinvDiffOp) OverwritesInput() int { return -1 }

func (e *erfinvDiffOp) Do(inputs ...G.Value) (G.Value, error) {
	if err := CheckArity(e, len(inputs)); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	out, err := binary(inputs[0], inputs[1], erfinvGrad64, erfinvGrad32)
	if err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	return out, nil
}

func erfinvGrad64(x, grad float64) float64 {
	return grad * math.Sqrt(math.Pi) / 2 * math.Exp(math.Pow(math.Erfinv(x), 2))
}

func erfinvGrad32(x, grad float32) float32 {
	scale := math32.Sqrt(math32.Pi) / float32(2.0)
	return grad * scale * math32.Exp(math32.Pow(math32.Erfinv(x), 2))
}
