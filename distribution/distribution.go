// Package distribution turns the raw output of a model into action
// distributions built on Gorgonia expression graphs.
//
// Every operation adds nodes to the graph that holds the distribution
// parameters and returns the resulting node. Values are available once
// a VM runs the graph, and gradients are taken with gorgonia.Grad.
// All results are per row of the batch: rows never interact, so
// evaluating a batch in one pass or in several partitions gives the
// same per-row values.
package distribution

import (
	"time"

	"github.com/samuelfneumann/actdist/space"
	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
)

// Kind names a distribution variant
type Kind string

const (
	KindCategorical      Kind = "categorical"
	KindMultiCategorical Kind = "multi_categorical"
	KindDiagGaussian     Kind = "diag_gaussian"
	KindSquashedGaussian Kind = "squashed_gaussian"
)

// SampleConfig controls sampling
type SampleConfig struct {
	// Shape is the sample shape S. Sampled values have shape
	// S ++ [batch] ++ event. A nil Shape draws one value per row.
	Shape []int

	// ReturnLogProb requests the log-probability of the sampled value,
	// computed by LogProb on the sampled node
	ReturnLogProb bool

	// Source of randomness. If nil, a source seeded with the current
	// time is used.
	Source rand.Source
}

func (s SampleConfig) source() rand.Source {
	if s.Source != nil {
		return s.Source
	}
	return rand.NewSource(uint64(time.Now().UnixNano()))
}

// Distribution is a batch of independent action distributions, one
// per row of the model output. Distributions are immutable.
type Distribution interface {
	// Kind returns the variant of the distribution
	Kind() Kind

	// BatchSize returns the number of rows
	BatchSize() int

	// Sample returns a node that draws new values each time the graph
	// is run. No gradient flows through the draw. If requested,
	// logProb is the log-probability of value, otherwise it is nil.
	Sample(SampleConfig) (value, logProb *G.Node, err error)

	// Rsample is like Sample, but expresses the draw as a
	// differentiable function of the parameters and independent
	// noise. Variants without such a function return an error
	// wrapping ErrNotReparameterizable.
	Rsample(SampleConfig) (value, logProb *G.Node, err error)

	// LogProb returns the log-probability (mass or density) of value,
	// which must have shape S ++ [batch] ++ event for some possibly
	// empty S. The result has shape S ++ [batch].
	LogProb(value *G.Node) (*G.Node, error)

	// KL returns the per-row Kullback-Leibler divergence from the
	// receiver to other
	KL(other Distribution) (*G.Node, error)

	// Entropy returns the per-row entropy
	Entropy() (*G.Node, error)

	// RequiredModelOutputShape returns the shape of the raw parameter
	// row a model must output for this variant
	RequiredModelOutputShape(space.Space, Config) ([]int, error)

	// HasRsample returns whether Rsample is supported
	HasRsample() bool
}
