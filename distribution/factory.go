package distribution

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/actdist/space"
	G "gorgonia.org/gorgonia"
)

// Segment is a named, contiguous group of columns of the model output
type Segment struct {
	Name  string
	Width int
}

// Layout is the ordered list of segments a variant splits the model
// output into
type Layout []Segment

// Width returns the total number of columns of the layout
func (l Layout) Width() int {
	w := 0
	for _, s := range l {
		w += s.Width
	}
	return w
}

// Variant describes how to build one kind of distribution from a
// model output
type Variant struct {
	Kind Kind

	// Layout returns the segments the model output is split into for
	// an action space
	Layout func(space.Space, Config) (Layout, error)

	// New constructs the distribution from one [batch, width] node per
	// segment, in layout order
	New func(params []*G.Node, s space.Space, cfg Config) (Distribution,
		error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[Kind]Variant)
)

// Register adds a variant, replacing any variant of the same kind
func Register(v Variant) error {
	if v.Kind == "" || v.Layout == nil || v.New == nil {
		return errors.Wrapf(ErrInvalidVariant, "register: incomplete variant "+
			"%q", v.Kind)
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	registry[v.Kind] = v
	return nil
}

func mustRegister(v Variant) {
	if err := Register(v); err != nil {
		panic(err)
	}
}

// Kinds returns the registered kinds in lexical order
func Kinds() []Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()

	kinds := make([]Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func lookup(kind Kind) (Variant, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	v, ok := registry[kind]
	if !ok {
		return Variant{}, errors.Wrapf(ErrUnknownKind, "%q", kind)
	}
	return v, nil
}

// LayoutFor returns the layout of a kind of distribution over s
func LayoutFor(kind Kind, s space.Space, cfg Config) (Layout, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, errors.Wrapf(ErrUnsupportedSpace, "%v", err)
	}

	v, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	return v.Layout(s, cfg)
}

// RequiredModelOutputShape returns the shape of the parameter row a
// model must output so that FromLogits can build a distribution of
// the given kind over s
func RequiredModelOutputShape(kind Kind, s space.Space,
	cfg Config) ([]int, error) {
	layout, err := LayoutFor(kind, s, cfg)
	if err != nil {
		return nil, err
	}
	return []int{layout.Width()}, nil
}

// FromLogits splits a [batch, width] node of model outputs into the
// segments of the variant's layout and constructs the distribution.
// The width must equal RequiredModelOutputShape(kind, s, cfg).
func FromLogits(kind Kind, logits *G.Node, s space.Space,
	cfg Config) (Distribution, error) {
	layout, err := LayoutFor(kind, s, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "fromLogits")
	}

	if err := checkFloat64(logits); err != nil {
		return nil, errors.Wrap(err, "fromLogits")
	}
	shape := logits.Shape()
	if len(shape) != 2 {
		return nil, errors.Wrapf(ErrShapeMismatch, "fromLogits: expected "+
			"logits of shape [batch, %d] but got %v", layout.Width(), shape)
	}
	if shape[1] != layout.Width() {
		return nil, errors.Wrapf(ErrShapeMismatch, "fromLogits: %v requires "+
			"%d columns but logits have shape %v", kind, layout.Width(),
			shape)
	}
	if shape[0] <= 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "fromLogits: empty "+
			"batch in shape %v", shape)
	}

	err = checkStatic(logits, "finite logits", finite, ErrInvalidParameter)
	if err != nil {
		return nil, errors.Wrap(err, "fromLogits")
	}

	batch := shape[0]
	params := make([]*G.Node, len(layout))
	start := 0
	for i, seg := range layout {
		if len(layout) == 1 {
			params[i] = logits
			break
		}

		p, err := G.Slice(logits, nil, G.S(start, start+seg.Width))
		if err != nil {
			return nil, errors.Wrapf(err, "fromLogits: segment %q", seg.Name)
		}

		// Slicing a single column drops the column axis
		params[i], err = reshape(p, batch, seg.Width)
		if err != nil {
			return nil, errors.Wrapf(err, "fromLogits: segment %q", seg.Name)
		}
		start += seg.Width
	}

	v, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	d, err := v.New(params, s, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "fromLogits")
	}

	pkgLogger().Debug().
		Str("kind", string(kind)).
		Int("batch", batch).
		Int("width", layout.Width()).
		Msg("built distribution from logits")

	return d, nil
}

func checkParamCount(kind Kind, params []*G.Node, want int) error {
	if len(params) != want {
		return errors.Wrapf(ErrShapeMismatch, "%v expects %d parameter "+
			"nodes but got %d", kind, want, len(params))
	}
	return nil
}
