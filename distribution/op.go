package distribution

import (
	"fmt"

	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
)

// NormalRand returns a node of shape [numSamples] ++ mean.Shape()
// holding draws from 𝒩(mean, stddev) element-wise. New values are
// drawn each time the graph is run. NormalRand is not differentiable.
func NormalRand(mean, stddev *G.Node, numSamples int,
	src rand.Source) (*G.Node, error) {
	if mean.Dtype() != stddev.Dtype() {
		return nil, fmt.Errorf("normalRand: mean and stddev should have "+
			"same dtype but got %v and %v", mean.Dtype(), stddev.Dtype())
	}

	if !mean.Shape().Eq(stddev.Shape()) {
		return nil, fmt.Errorf("normalRand: mean and stddev should have "+
			"same shape but got %v and %v", mean.Shape(), stddev.Shape())
	}

	n, err := newNormalSampleOp(mean.Dtype(), src, numSamples,
		mean.Shape()...)
	if err != nil {
		return nil, fmt.Errorf("normalRand: %v", err)
	}

	return G.ApplyOp(n, mean, stddev)
}

// CategoricalRand returns a node of shape [numSamples, batch] holding
// category indices drawn from the rows of the [batch, k] matrix of
// log-probabilities logProbs. CategoricalRand is not differentiable.
func CategoricalRand(logProbs *G.Node, numSamples int,
	src rand.Source) (*G.Node, error) {
	if logProbs.Dims() != 2 {
		return nil, fmt.Errorf("categoricalRand: expected a matrix but "+
			"got shape %v", logProbs.Shape())
	}

	op, err := newCategoricalSampleOp(src, numSamples, logProbs.Shape()...)
	if err != nil {
		return nil, fmt.Errorf("categoricalRand: %v", err)
	}

	return G.ApplyOp(op, logProbs)
}

// Argmax returns the float64 column index of the largest element of
// each row of a matrix. Ties resolve to the lowest index.
func Argmax(x *G.Node) (*G.Node, error) {
	if x.Dims() != 2 {
		return nil, fmt.Errorf("argmax: expected a matrix but got shape %v",
			x.Shape())
	}

	return G.ApplyOp(&argmaxOp{}, x)
}
