package actdist

import (
	"fmt"
	"hash"
	"math"

	"github.com/chewxy/hm"
	"github.com/chewxy/math32"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// erfOp is the element-wise error function
type erfOp struct{}

func newErfOp() G.Op {
	return &erfOp{}
}

func (e *erfOp) Arity() int { return 1 }

func (e *erfOp) Type() hm.Type {
	// All pointwise unary operations have this type:
	// op :: (Arithable a) => a -> a
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a)
}

func (e *erfOp) Do(values ...G.Value) (G.Value, error) {
	if err := e.checkInputs(values...); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	out, err := unary(values[0], math.Erf, f32Erf)
	if err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	return out, nil
}

func (e *erfOp) ReturnsPtr() bool { return false }

func (e *erfOp) CallsExtern() bool { return false }

func (e *erfOp) OverwritesInput() int { return -1 }

func (e *erfOp) String() string { return "Erf()" }

// InferShape returns the output shape as a function of the inputs
func (e *erfOp) InferShape(inputs ...G.DimSizer) (tensor.Shape, error) {
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
func (e *erfOp) WriteHash(h hash.Hash) { fmt.Fprint(h, e.String()) }

// Hashcode returns the hash code of the receiver
func (e *erfOp) Hashcode() uint32 { return SimpleHash(e) }

func (e *erfOp) SymDiff(inputs G.Nodes, output,
	grad *G.Node) (G.Nodes, error) {
	err := CheckArity(e, len(inputs))
	if err != nil {
		return nil, fmt.Errorf("symDiff: %v", err)
	}

	nodes := make(G.Nodes, 1)
	nodes[0], err = G.ApplyOp(&erfDiffOp{}, inputs[0], grad)

	return nodes, err
}

func (e *erfOp) DiffWRT(inputs int) []bool {
	if inputs != 1 {
		panic(fmt.Sprintf("erf operator only supports one input, got %d "+
			"instead", inputs))
	}
	return []bool{true}
}

// checkInputs returns an error if the input to this Op is invalid
func (e *erfOp) checkInputs(inputs ...G.Value) error {
	if err := CheckArity(e, len(inputs)); err != nil {
		return err
	}

	_, okF64 := inputs[0].(*G.F64)
	_, okF32 := inputs[0].(*G.F32)
	_, okTensor := inputs[0].(tensor.Tensor)

	if !(okF64 || okF32 || okTensor) {
		return fmt.Errorf("expected input to be a tensor, got %T", inputs[0])
	}

	return nil
}

// erfDiffOp computes grad * d/dx erf(x) = grad * 2/√π * exp(-x²)
type erfDiffOp struct{}

func (e *erfDiffOp) Arity() int { return 2 }

func (e *erfDiffOp) ReturnsPtr() bool { return false }

func (e *erfDiffOp) CallsExtern() bool { return false }

func (e *erfDiffOp) WriteHash(h hash.Hash) { fmt.Fprint(h, e.String()) }

func (e *erfDiffOp) Hashcode() uint32 { return SimpleHash(e) }

func (e *erfDiffOp) String() string { return "ErfDiff()" }

func (e *erfDiffOp) InferShape(inputs ...G.DimSizer) (tensor.Shape, error) {
	err := CheckArity(e, len(inputs))
	if err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	if inputs[0] == nil {
		return nil, fmt.Errorf("inferShape: nil input")
	}

	return inputs[0].(tensor.Shape).Clone(), nil
}

func (e *erfDiffOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a, a)
}

func (e *erfDiffOp) OverwritesInput() int { return -1 }

func (e *erfDiffOp) Do(inputs ...G.Value) (G.Value, error) {
	if err := CheckArity(e, len(inputs)); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	out, err := binary(inputs[0], inputs[1], erfGrad64, erfGrad32)
	if err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	return out, nil
}

func erfGrad64(x, grad float64) float64 {
	return grad * 2 / math.Sqrt(math.Pi) * math.Exp(-x*x)
}

func erfGrad32(x, grad float32) float32 {
	scale := float32(2.0 / math.Sqrt(math.Pi))
	return grad * scale * math32.Exp(-math32.Pow(x, 2))
}

// f32Erf computes the erf on a float32 input value
func f32Erf(val float32) float32 {
	return float32(math.Erf(float64(val)))
}
