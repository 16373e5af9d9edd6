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
		Kind:   KindMultiCategorical,
		Layout: multiCategoricalLayout,
		New: func(params []*G.Node, s space.Space, _ Config) (Distribution,
			error) {
			err := checkParamCount(KindMultiCategorical, params, s.Dims())
			if err != nil {
				return nil, err
			}
			return NewMultiCategorical(params...)
		},
	})
}

func multiCategoricalLayout(s space.Space, _ Config) (Layout, error) {
	if s.Kind() != space.MultiDiscrete {
		return nil, errors.Wrapf(ErrUnsupportedSpace, "%v needs a "+
			"multi-discrete space but got %v", KindMultiCategorical, s)
	}

	nvec := s.Categories()
	layout := make(Layout, len(nvec))
	for i, n := range nvec {
		layout[i] = Segment{Name: fmt.Sprintf("logits_%d", i), Width: n}
	}
	return layout, nil
}

// MultiCategorical is a batch of m independent Categoricals per row.
// Values have shape [batch, m], holding one category index per
// component.
type MultiCategorical struct {
	components []*Categorical
	batch      int
}

// NewMultiCategorical returns a MultiCategorical with one component
// per [batch, k_i] logits node
func NewMultiCategorical(logits ...*G.Node) (*MultiCategorical, error) {
	if len(logits) == 0 {
		return nil, errors.Wrap(ErrShapeMismatch, "newMultiCategorical: no "+
			"components")
	}

	components := make([]*Categorical, len(logits))
	for i, l := range logits {
		c, err := NewCategorical(l)
		if err != nil {
			return nil, fmt.Errorf("newMultiCategorical: component %d: %w",
				i, err)
		}
		if i > 0 && c.batch != components[0].batch {
			return nil, errors.Wrapf(ErrShapeMismatch, "newMultiCategorical: "+
				"component %d has batch size %d but component 0 has %d", i,
				c.batch, components[0].batch)
		}
		if i > 0 && !sameGraph(l, logits[0]) {
			return nil, errors.Wrapf(ErrShapeMismatch, "newMultiCategorical: "+
				"component %d is on a different graph", i)
		}
		components[i] = c
	}

	return &MultiCategorical{
		components: components,
		batch:      components[0].batch,
	}, nil
}

func (m *MultiCategorical) Kind() Kind { return KindMultiCategorical }

func (m *MultiCategorical) BatchSize() int { return m.batch }

func (m *MultiCategorical) HasRsample() bool { return false }

// Components returns the Categorical of each action component
func (m *MultiCategorical) Components() []*Categorical {
	return append([]*Categorical(nil), m.components...)
}

func (m *MultiCategorical) RequiredModelOutputShape(s space.Space,
	cfg Config) ([]int, error) {
	return RequiredModelOutputShape(KindMultiCategorical, s, cfg)
}

// stack concatenates m nodes of shape [n, batch] into [n, batch, m]
func (m *MultiCategorical) stack(nodes []*G.Node) (*G.Node, error) {
	cols := make(G.Nodes, len(nodes))
	for i, n := range nodes {
		var err error
		cols[i], err = reshape(n, n.Shape()[0], m.batch, 1)
		if err != nil {
			return nil, err
		}
	}

	if len(cols) == 1 {
		return cols[0], nil
	}
	return G.Concat(2, cols...)
}

// Mode returns the [batch, m] most likely index of each component
func (m *MultiCategorical) Mode() (*G.Node, error) {
	modes := make([]*G.Node, len(m.components))
	for i, c := range m.components {
		mode, err := c.Mode()
		if err != nil {
			return nil, fmt.Errorf("mode: %v", err)
		}
		modes[i], err = reshape(mode, 1, m.batch)
		if err != nil {
			return nil, fmt.Errorf("mode: %v", err)
		}
	}

	mode, err := m.stack(modes)
	if err != nil {
		return nil, fmt.Errorf("mode: %v", err)
	}
	return reshape(mode, m.batch, len(m.components))
}

func (m *MultiCategorical) Sample(cfg SampleConfig) (value,
	logProb *G.Node, err error) {
	n, err := sampleCount(cfg.Shape)
	if err != nil {
		return nil, nil, fmt.Errorf("sample: %w", err)
	}

	src := cfg.source()
	draws := make([]*G.Node, len(m.components))
	for i, c := range m.components {
		draws[i], err = CategoricalRand(c.logProbs, n, src)
		if err != nil {
			return nil, nil, fmt.Errorf("sample: %v", err)
		}
	}

	value, err = m.stack(draws)
	if err != nil {
		return nil, nil, fmt.Errorf("sample: %v", err)
	}
	value, err = reshape(value, concatInts(cfg.Shape,
		[]int{m.batch, len(m.components)})...)
	if err != nil {
		return nil, nil, fmt.Errorf("sample: %v", err)
	}

	if cfg.ReturnLogProb {
		logProb, err = m.LogProb(value)
		if err != nil {
			return nil, nil, fmt.Errorf("sample: %w", err)
		}
	}
	return value, logProb, nil
}

func (m *MultiCategorical) Rsample(SampleConfig) (*G.Node, *G.Node,
	error) {
	return nil, nil, errors.Wrapf(ErrNotReparameterizable, "rsample: %v "+
		"has discrete support", KindMultiCategorical)
}

// LogProb returns the sum of the component log-probabilities of
// value, which has shape S ++ [batch, m]
func (m *MultiCategorical) LogProb(value *G.Node) (*G.Node, error) {
	flat, lead, err := flatten(value, m.batch, []int{len(m.components)})
	if err != nil {
		return nil, fmt.Errorf("logProb: %w", err)
	}
	if err := m.checkStatic(value); err != nil {
		return nil, fmt.Errorf("logProb: %w", err)
	}

	var total *G.Node
	for i, c := range m.components {
		col, err := G.Slice(flat, nil, nil, G.S(i))
		if err != nil {
			return nil, fmt.Errorf("logProb: %v", err)
		}
		col, err = reshape(col, flat.Shape()[0], m.batch)
		if err != nil {
			return nil, fmt.Errorf("logProb: %v", err)
		}

		lp, err := c.LogProb(col)
		if err != nil {
			return nil, fmt.Errorf("logProb: component %d: %w", i, err)
		}

		if total == nil {
			total = lp
		} else {
			total = G.Must(G.Add(total, lp))
		}
	}

	return reshape(total, concatInts(lead, []int{m.batch})...)
}

// Entropy returns the sum of the component entropies
func (m *MultiCategorical) Entropy() (*G.Node, error) {
	var total *G.Node
	for i, c := range m.components {
		h, err := c.Entropy()
		if err != nil {
			return nil, fmt.Errorf("entropy: component %d: %w", i, err)
		}

		if total == nil {
			total = h
		} else {
			total = G.Must(G.Add(total, h))
		}
	}
	return total, nil
}

// KL returns the sum of the component divergences
func (m *MultiCategorical) KL(other Distribution) (*G.Node, error) {
	o, ok := other.(*MultiCategorical)
	if !ok {
		return nil, errors.Wrapf(ErrIncompatibleDistribution, "kl: cannot "+
			"compare %v with %T", KindMultiCategorical, other)
	}
	if len(o.components) != len(m.components) {
		return nil, errors.Wrapf(ErrIncompatibleDistribution, "kl: %d "+
			"components but other has %d", len(m.components),
			len(o.components))
	}

	var total *G.Node
	for i, c := range m.components {
		kl, err := c.KL(o.components[i])
		if err != nil {
			return nil, fmt.Errorf("kl: component %d: %w", i, err)
		}

		if total == nil {
			total = kl
		} else {
			total = G.Must(G.Add(total, kl))
		}
	}
	return total, nil
}

// checkStatic reports out-of-support indices of a value node that
// already holds a value
func (m *MultiCategorical) checkStatic(value *G.Node) error {
	if value.Value() == nil {
		return nil
	}

	data, err := actdist.Float64s(value.Value())
	if err != nil {
		return errors.Wrapf(ErrUnsupportedDtype, "%v", err)
	}

	for i, x := range data {
		k := m.components[i%len(m.components)].k
		if x != math.Trunc(x) || x < 0 || x >= float64(k) {
			return errors.Wrapf(ErrDomain, "category index: element %v at "+
				"position %d not in [0, %d)", x, i, k)
		}
	}
	return nil
}
