package distribution

import (
	"fmt"
	"hash"

	"github.com/chewxy/hm"
	"github.com/samuelfneumann/actdist"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

type normalSampleOp struct {
	id         string
	dt         tensor.Dtype
	shape      tensor.Shape
	dist       distuv.Normal
	numSamples int
}

func newNormalSampleOp(dt tensor.Dtype, src rand.Source, numSamples int,
	shape ...int) (*normalSampleOp, error) {
	if dt != tensor.Float64 {
		return nil, fmt.Errorf("newNormalSampleOp: dtype %v not supported",
			dt)
	}
	if numSamples <= 0 {
		return nil, fmt.Errorf("newNormalSampleOp: expected a positive "+
			"number of samples but got %v", numSamples)
	}
	if src == nil {
		return nil, fmt.Errorf("newNormalSampleOp: nil source")
	}

	return &normalSampleOp{
		id:    actdist.Unique("NormalSample"),
		dt:    dt,
		shape: tensor.Shape(shape).Clone(),
		dist: distuv.Normal{
			Mu:    0.0,
			Sigma: 1.0,
			Src:   src,
		},
		numSamples: numSamples,
	}, nil
}

func (n *normalSampleOp) Arity() int { return 2 }

func (n *normalSampleOp) Type() hm.Type {
	in := G.TensorType{
		Dims: n.shape.Dims(),
		Of:   n.dt,
	}
	out := G.TensorType{
		Dims: n.shape.Dims() + 1,
		Of:   n.dt,
	}

	return hm.NewFnType(in, in, out)
}

func (n *normalSampleOp) InferShape(...G.DimSizer) (tensor.Shape, error) {
	return append(tensor.Shape{n.numSamples}, n.shape...), nil
}

func (n *normalSampleOp) ReturnsPtr() bool { return false }

func (n *normalSampleOp) CallsExtern() bool { return false }

func (n *normalSampleOp) OverwritesInput() int { return -1 }

func (n *normalSampleOp) String() string {
	return fmt.Sprintf("%v{samples=%v, shape=%v}()", n.id, n.numSamples,
		n.shape)
}

func (n *normalSampleOp) WriteHash(h hash.Hash) {
	fmt.Fprint(h, n.String())
}

func (n *normalSampleOp) Hashcode() uint32 {
	return actdist.SimpleHash(n)
}

func (n *normalSampleOp) DiffWRT(inputs int) []bool {
	return make([]bool, inputs)
}

func (n *normalSampleOp) SymDiff(inputs G.Nodes, output,
	grad *G.Node) (G.Nodes, error) {
	return nil, fmt.Errorf("symDiff: sampling is not differentiable")
}

func (n *normalSampleOp) Do(inputs ...G.Value) (G.Value, error) {
	if err := n.checkInputs(inputs...); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	mean, err := actdist.Float64s(inputs[0])
	if err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}
	std, err := actdist.Float64s(inputs[1])
	if err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	// Sample j of element i lives at j*size + i
	size := len(mean)
	out := make([]float64, n.numSamples*size)
	for i := range mean {
		n.dist.Mu = mean[i]
		n.dist.Sigma = std[i]

		for j := 0; j < n.numSamples; j++ {
			out[j*size+i] = n.dist.Rand()
		}
	}

	return tensor.New(
		tensor.WithShape(append([]int{n.numSamples}, n.shape...)...),
		tensor.WithBacking(out),
	), nil
}

func (n *normalSampleOp) checkInputs(inputs ...G.Value) error {
	if err := actdist.CheckArity(n, len(inputs)); err != nil {
		return err
	}

	mean, ok := inputs[0].(tensor.Tensor)
	if !ok || mean == nil {
		return fmt.Errorf("cannot sample from mean of type %T", inputs[0])
	} else if mean.Size() == 0 {
		return fmt.Errorf("cannot sample from empty mean tensor")
	} else if !mean.Shape().Eq(n.shape) {
		return fmt.Errorf("expected mean to have shape %v but got %v",
			n.shape, mean.Shape())
	}

	stddev, ok := inputs[1].(tensor.Tensor)
	if !ok || stddev == nil {
		return fmt.Errorf("cannot sample from stddev of type %T", inputs[1])
	} else if !stddev.Shape().Eq(n.shape) {
		return fmt.Errorf("expected stddev to have shape %v but got %v",
			n.shape, stddev.Shape())
	}

	return nil
}
