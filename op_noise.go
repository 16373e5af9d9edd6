package actdist

import (
	"fmt"
	"hash"

	"github.com/chewxy/hm"
	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// uniformNoiseOp draws U(0, 1) noise shaped like its input. Each op
// has its own id so that two noise nodes on the same template are
// never merged by the graph.
type uniformNoiseOp struct {
	id    uint64
	dtype tensor.Dtype
	rng   *rand.Rand
}

func newUniformNoiseOp(dt tensor.Dtype, src rand.Source) (*uniformNoiseOp,
	error) {
	if dt != tensor.Float64 && dt != tensor.Float32 {
		return nil, fmt.Errorf("dtype %v not supported", dt)
	}
	if src == nil {
		return nil, fmt.Errorf("nil source")
	}

	return &uniformNoiseOp{
		id:    nextID(),
		dtype: dt,
		rng:   rand.New(src),
	}, nil
}

func (u *uniformNoiseOp) Arity() int { return 1 }

func (u *uniformNoiseOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a)
}

func (u *uniformNoiseOp) InferShape(inputs ...G.DimSizer) (tensor.Shape,
	error) {
	if err := CheckArity(u, len(inputs)); err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	if inputs[0] == nil {
		return nil, fmt.Errorf("inferShape: nil input")
	}

	return inputs[0].(tensor.Shape).Clone(), nil
}

// draw returns a sample from U(0, 1), never 0
func (u *uniformNoiseOp) draw() float64 {
	for {
		if x := u.rng.Float64(); x > 0 {
			return x
		}
	}
}

// draw32 returns a sample from U(0, 1) which stays inside the open
// interval after rounding to float32
func (u *uniformNoiseOp) draw32() float32 {
	for {
		if x := float32(u.draw()); x > 0 && x < 1 {
			return x
		}
	}
}

func (u *uniformNoiseOp) Do(values ...G.Value) (G.Value, error) {
	if err := CheckArity(u, len(values)); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	switch values[0].(type) {
	case *G.F64:
		return G.NewF64(u.draw()), nil
	case *G.F32:
		return G.NewF32(u.draw32()), nil
	}

	shape := valueShape(values[0])
	size := shape.TotalSize()

	switch u.dtype {
	case tensor.Float64:
		out := make([]float64, size)
		for i := range out {
			out[i] = u.draw()
		}
		return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(out)),
			nil

	default:
		out := make([]float32, size)
		for i := range out {
			out[i] = u.draw32()
		}
		return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(out)),
			nil
	}
}

func (u *uniformNoiseOp) ReturnsPtr() bool { return false }

func (u *uniformNoiseOp) CallsExtern() bool { return false }

func (u *uniformNoiseOp) OverwritesInput() int { return -1 }

func (u *uniformNoiseOp) WriteHash(h hash.Hash) { fmt.Fprint(h, u.String()) }

func (u *uniformNoiseOp) Hashcode() uint32 { return SimpleHash(u) }

func (u *uniformNoiseOp) String() string {
	return fmt.Sprintf("UniformNoise_%d()", u.id)
}

func (u *uniformNoiseOp) DiffWRT(inputs int) []bool {
	return make([]bool, inputs)
}

func (u *uniformNoiseOp) SymDiff(inputs G.Nodes, output,
	grad *G.Node) (G.Nodes, error) {
	return nil, fmt.Errorf("symDiff: %v is not differentiable", u)
}
