package distribution

import (
	"fmt"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Elementwise is a tensor of independent univariate distributions,
// such as a Normal
type Elementwise interface {
	LogProb(x *G.Node) (*G.Node, error)
	Entropy() (*G.Node, error)
	KL(other Elementwise) (*G.Node, error)
	Shape() tensor.Shape
}

// Independent reinterprets the trailing dims dimensions of an
// Elementwise distribution as a single event. Log-probabilities,
// entropies and divergences are summed over the event dimensions.
type Independent struct {
	Elementwise
	dims int // The number of trailing dimensions to interpret as events
}

// NewIndependent returns a new Independent
func NewIndependent(d Elementwise, dims int) (*Independent, error) {
	if dims < 0 || dims > len(d.Shape()) {
		return nil, errors.Wrapf(ErrShapeMismatch, "newIndependent: cannot "+
			"use %d event dimensions for shape %v", dims, d.Shape())
	}
	return &Independent{d, dims}, nil
}

// EventShape returns the trailing event shape
func (i *Independent) EventShape() []int {
	shape := i.Elementwise.Shape()
	return append([]int(nil), shape[len(shape)-i.dims:]...)
}

// reduce sums x over its trailing event dimensions
func (i *Independent) reduce(x *G.Node) (*G.Node, error) {
	var err error
	for j := 0; j < i.dims; j++ {
		shape := x.Shape().Clone()
		x, err = G.Sum(x, len(shape)-1)
		if err != nil {
			return nil, err
		}

		// Sums over a single row may collapse to a scalar
		x, err = reshape(x, shape[:len(shape)-1]...)
		if err != nil {
			return nil, err
		}
	}

	return x, nil
}

// LogProb returns the log-probability of each event in x
func (i *Independent) LogProb(x *G.Node) (*G.Node, error) {
	x, err := i.Elementwise.LogProb(x)
	if err != nil {
		return nil, fmt.Errorf("logProb: %w", err)
	}

	x, err = i.reduce(x)
	if err != nil {
		return nil, fmt.Errorf("logProb: could not combine event dims: %v",
			err)
	}
	return x, nil
}

// Entropy returns the entropy of each event
func (i *Independent) Entropy() (*G.Node, error) {
	x, err := i.Elementwise.Entropy()
	if err != nil {
		return nil, fmt.Errorf("entropy: could not take entropy of each "+
			"independent variable: %w", err)
	}

	x, err = i.reduce(x)
	if err != nil {
		return nil, fmt.Errorf("entropy: could not combine event dims: %v",
			err)
	}
	return x, nil
}

// KL returns the divergence of each event from the receiver to other
func (i *Independent) KL(other *Independent) (*G.Node, error) {
	if i.dims != other.dims {
		return nil, errors.Wrapf(ErrIncompatibleDistribution, "kl: %d "+
			"event dimensions but other has %d", i.dims, other.dims)
	}

	x, err := i.Elementwise.KL(other.Elementwise)
	if err != nil {
		return nil, fmt.Errorf("kl: %w", err)
	}

	x, err = i.reduce(x)
	if err != nil {
		return nil, fmt.Errorf("kl: could not combine event dims: %v", err)
	}
	return x, nil
}
