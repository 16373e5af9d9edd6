package distribution

import (
	"fmt"
	"hash"
	"math"

	"github.com/chewxy/hm"
	"github.com/samuelfneumann/actdist"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// categoricalSampleOp draws category indices from the rows of a matrix
// of log-probabilities
type categoricalSampleOp struct {
	id         string
	src        rand.Source
	batch, k   int
	numSamples int
}

func newCategoricalSampleOp(src rand.Source, numSamples int,
	shape ...int) (*categoricalSampleOp, error) {
	if len(shape) != 2 {
		return nil, fmt.Errorf("newCategoricalSampleOp: expected a matrix "+
			"shape but got %v", shape)
	}
	if numSamples <= 0 {
		return nil, fmt.Errorf("newCategoricalSampleOp: expected a "+
			"positive number of samples but got %v", numSamples)
	}
	if src == nil {
		return nil, fmt.Errorf("newCategoricalSampleOp: nil source")
	}

	return &categoricalSampleOp{
		id:         actdist.Unique("CategoricalSample"),
		src:        src,
		batch:      shape[0],
		k:          shape[1],
		numSamples: numSamples,
	}, nil
}

func (c *categoricalSampleOp) Arity() int { return 1 }

func (c *categoricalSampleOp) Type() hm.Type {
	tt := G.TensorType{Dims: 2, Of: tensor.Float64}
	return hm.NewFnType(tt, tt)
}

func (c *categoricalSampleOp) InferShape(...G.DimSizer) (tensor.Shape,
	error) {
	return tensor.Shape{c.numSamples, c.batch}, nil
}

func (c *categoricalSampleOp) ReturnsPtr() bool { return false }

func (c *categoricalSampleOp) CallsExtern() bool { return false }

func (c *categoricalSampleOp) OverwritesInput() int { return -1 }

func (c *categoricalSampleOp) String() string {
	return fmt.Sprintf("%v{samples=%v, shape=(%v, %v)}()", c.id,
		c.numSamples, c.batch, c.k)
}

func (c *categoricalSampleOp) WriteHash(h hash.Hash) {
	fmt.Fprint(h, c.String())
}

func (c *categoricalSampleOp) Hashcode() uint32 {
	return actdist.SimpleHash(c)
}

func (c *categoricalSampleOp) DiffWRT(inputs int) []bool {
	return make([]bool, inputs)
}

func (c *categoricalSampleOp) SymDiff(inputs G.Nodes, output,
	grad *G.Node) (G.Nodes, error) {
	return nil, fmt.Errorf("symDiff: sampling is not differentiable")
}

func (c *categoricalSampleOp) Do(inputs ...G.Value) (G.Value, error) {
	if err := actdist.CheckArity(c, len(inputs)); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	logProbs, err := actdist.Float64s(inputs[0])
	if err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}
	if len(logProbs) != c.batch*c.k {
		return nil, fmt.Errorf("do: expected %v log-probabilities but got %v",
			c.batch*c.k, len(logProbs))
	}

	out := make([]float64, c.numSamples*c.batch)
	weights := make([]float64, c.k)
	for row := 0; row < c.batch; row++ {
		for j := range weights {
			weights[j] = math.Exp(logProbs[row*c.k+j])
		}

		dist := distuv.NewCategorical(weights, c.src)
		for s := 0; s < c.numSamples; s++ {
			out[s*c.batch+row] = dist.Rand()
		}
	}

	return tensor.New(
		tensor.WithShape(c.numSamples, c.batch),
		tensor.WithBacking(out),
	), nil
}

// argmaxOp returns the float64 index of the largest element of each
// row of a matrix
type argmaxOp struct{}

func (a *argmaxOp) Arity() int { return 1 }

func (a *argmaxOp) Type() hm.Type {
	return hm.NewFnType(
		G.TensorType{Dims: 2, Of: tensor.Float64},
		G.TensorType{Dims: 1, Of: tensor.Float64},
	)
}

func (a *argmaxOp) InferShape(inputs ...G.DimSizer) (tensor.Shape, error) {
	if err := actdist.CheckArity(a, len(inputs)); err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}

	shape, ok := inputs[0].(tensor.Shape)
	if !ok || len(shape) != 2 {
		return nil, fmt.Errorf("inferShape: expected a matrix shape but "+
			"got %v", inputs[0])
	}
	return tensor.Shape{shape[0]}, nil
}

func (a *argmaxOp) ReturnsPtr() bool { return false }

func (a *argmaxOp) CallsExtern() bool { return false }

func (a *argmaxOp) OverwritesInput() int { return -1 }

func (a *argmaxOp) String() string { return "ArgmaxF64()" }

func (a *argmaxOp) WriteHash(h hash.Hash) { fmt.Fprint(h, a.String()) }

func (a *argmaxOp) Hashcode() uint32 { return actdist.SimpleHash(a) }

func (a *argmaxOp) DiffWRT(inputs int) []bool { return make([]bool, inputs) }

func (a *argmaxOp) SymDiff(inputs G.Nodes, output,
	grad *G.Node) (G.Nodes, error) {
	return nil, fmt.Errorf("symDiff: argmax is not differentiable")
}

func (a *argmaxOp) Do(inputs ...G.Value) (G.Value, error) {
	if err := actdist.CheckArity(a, len(inputs)); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	shape := inputs[0].Shape()
	if len(shape) != 2 {
		return nil, fmt.Errorf("do: expected a matrix but got shape %v",
			shape)
	}
	data, err := actdist.Float64s(inputs[0])
	if err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	rows, cols := shape[0], shape[1]
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		best := 0
		for j := 1; j < cols; j++ {
			if data[i*cols+j] > data[i*cols+best] {
				best = j
			}
		}
		out[i] = float64(best)
	}

	return tensor.New(tensor.WithShape(rows), tensor.WithBacking(out)), nil
}
