package distribution

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/actdist"
	"github.com/samuelfneumann/actdist/space"
	G "gorgonia.org/gorgonia"
)

func init() {
	mustRegister(Variant{
		Kind:   KindCategorical,
		Layout: categoricalLayout,
		New: func(params []*G.Node, _ space.Space, _ Config) (Distribution,
			error) {
			if err := checkParamCount(KindCategorical, params, 1); err != nil {
				return nil, err
			}
			return NewCategorical(params[0])
		},
	})
}

func categoricalLayout(s space.Space, _ Config) (Layout, error) {
	if s.Kind() != space.Discrete {
		return nil, errors.Wrapf(ErrUnsupportedSpace, "%v needs a discrete "+
			"space but got %v", KindCategorical, s)
	}
	return Layout{{Name: "logits", Width: s.Categories()[0]}}, nil
}

// Categorical is a batch of distributions over {0, ..., k-1}, one per
// row of a [batch, k] matrix of logits. Values are float64 category
// indices.
type Categorical struct {
	logits   *G.Node
	logProbs *G.Node // Row-wise log-softmax of the logits
	batch, k int
}

// NewCategorical returns a new Categorical. The logits must be finite.
func NewCategorical(logits *G.Node) (*Categorical, error) {
	if err := checkFloat64(logits); err != nil {
		return nil, fmt.Errorf("newCategorical: %w", err)
	}
	if logits.Dims() != 2 {
		return nil, errors.Wrapf(ErrShapeMismatch, "newCategorical: "+
			"expected logits of shape [batch, k] but got %v", logits.Shape())
	}
	shape := logits.Shape()
	if shape[0] <= 0 || shape[1] <= 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "newCategorical: empty "+
			"logits of shape %v", shape)
	}

	logits, err := validate(logits, "finite logits", finite,
		ErrInvalidParameter)
	if err != nil {
		return nil, fmt.Errorf("newCategorical: %w", err)
	}

	logProbs, err := actdist.LogSoftmax(logits)
	if err != nil {
		return nil, fmt.Errorf("newCategorical: %v", err)
	}

	return &Categorical{
		logits:   logits,
		logProbs: logProbs,
		batch:    shape[0],
		k:        shape[1],
	}, nil
}

func (c *Categorical) Kind() Kind { return KindCategorical }

func (c *Categorical) BatchSize() int { return c.batch }

// Categories returns the number of categories k
func (c *Categorical) Categories() int { return c.k }

func (c *Categorical) HasRsample() bool { return false }

func (c *Categorical) RequiredModelOutputShape(s space.Space,
	cfg Config) ([]int, error) {
	return RequiredModelOutputShape(KindCategorical, s, cfg)
}

// Logits returns the validated logits
func (c *Categorical) Logits() *G.Node { return c.logits }

// LogProbs returns the [batch, k] log-probabilities of each category
func (c *Categorical) LogProbs() *G.Node { return c.logProbs }

// Probs returns the [batch, k] probabilities of each category
func (c *Categorical) Probs() (*G.Node, error) {
	return G.Exp(c.logProbs)
}

// Mode returns the [batch] most likely category of each row
func (c *Categorical) Mode() (*G.Node, error) {
	return Argmax(c.logits)
}

func (c *Categorical) Sample(cfg SampleConfig) (value, logProb *G.Node,
	err error) {
	n, err := sampleCount(cfg.Shape)
	if err != nil {
		return nil, nil, fmt.Errorf("sample: %w", err)
	}

	value, err = CategoricalRand(c.logProbs, n, cfg.source())
	if err != nil {
		return nil, nil, fmt.Errorf("sample: %v", err)
	}
	value, err = reshape(value, concatInts(cfg.Shape, []int{c.batch})...)
	if err != nil {
		return nil, nil, fmt.Errorf("sample: %v", err)
	}

	if cfg.ReturnLogProb {
		logProb, err = c.LogProb(value)
		if err != nil {
			return nil, nil, fmt.Errorf("sample: %w", err)
		}
	}
	return value, logProb, nil
}

func (c *Categorical) Rsample(SampleConfig) (*G.Node, *G.Node, error) {
	return nil, nil, errors.Wrapf(ErrNotReparameterizable, "rsample: %v "+
		"has discrete support", KindCategorical)
}

// LogProb returns the log-probability of the category indices in
// value, which has shape S ++ [batch]. Indices that are not integers
// in [0, k) are reported with an error wrapping ErrDomain.
func (c *Categorical) LogProb(value *G.Node) (*G.Node, error) {
	if err := checkFloat64(value); err != nil {
		return nil, fmt.Errorf("logProb: %w", err)
	}
	flat, lead, err := flatten(value, c.batch, nil)
	if err != nil {
		return nil, fmt.Errorf("logProb: %w", err)
	}

	inSupport := func(x float64) bool {
		return x == math.Trunc(x) && x >= 0 && x < float64(c.k)
	}
	if err := checkStatic(value, "category index", inSupport,
		ErrDomain); err != nil {
		return nil, fmt.Errorf("logProb: %w", err)
	}

	n := flat.Shape()[0]
	oneHot, err := actdist.OneHot(flat, c.k, ErrDomain)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}
	logProbs, err := actdist.Tile(c.logProbs, n)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}

	lp := G.Must(G.HadamardProd(oneHot, logProbs))
	lp = G.Must(G.Sum(lp, 2))

	lp, err = reshape(lp, concatInts(lead, []int{c.batch})...)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}
	return lp, nil
}

// Entropy returns -Σ p log p for each row
func (c *Categorical) Entropy() (*G.Node, error) {
	probs := G.Must(G.Exp(c.logProbs))
	h := G.Must(G.HadamardProd(probs, c.logProbs))
	h = G.Must(G.Sum(h, 1))
	h = G.Must(G.Neg(h))

	return reshape(h, c.batch)
}

// KL returns Σ p (log p - log q) for each row
func (c *Categorical) KL(other Distribution) (*G.Node, error) {
	o, ok := other.(*Categorical)
	if !ok {
		return nil, errors.Wrapf(ErrIncompatibleDistribution, "kl: cannot "+
			"compare %v with %T", KindCategorical, other)
	}
	if err := c.compatible(o); err != nil {
		return nil, fmt.Errorf("kl: %w", err)
	}

	probs := G.Must(G.Exp(c.logProbs))
	kl := G.Must(G.Sub(c.logProbs, o.logProbs))
	kl = G.Must(G.HadamardProd(probs, kl))
	kl = G.Must(G.Sum(kl, 1))

	return reshape(kl, c.batch)
}

func (c *Categorical) compatible(o *Categorical) error {
	if c.k != o.k || c.batch != o.batch {
		return errors.Wrapf(ErrIncompatibleDistribution, "shape [%d, %d] "+
			"differs from [%d, %d]", c.batch, c.k, o.batch, o.k)
	}
	if !sameGraph(c.logits, o.logits) {
		return errors.Wrap(ErrIncompatibleDistribution, "distributions are "+
			"on different graphs")
	}
	return nil
}
