package distribution

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/actdist"
	"github.com/samuelfneumann/actdist/space"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
)

const (
	// squashEpsilon keeps atanh finite at the bounds of the box and
	// the log-Jacobian finite where tanh saturates
	squashEpsilon = 1e-6
)

func init() {
	mustRegister(Variant{
		Kind:   KindSquashedGaussian,
		Layout: gaussianLayout(KindSquashedGaussian, true),
		New: func(params []*G.Node, s space.Space, cfg Config) (Distribution,
			error) {
			err := checkParamCount(KindSquashedGaussian, params, 2)
			if err != nil {
				return nil, err
			}
			return NewSquashedGaussian(params[0], params[1], s.Low(),
				s.High(), cfg)
		},
	})
}

// SquashedGaussian is a DiagGaussian pushed through tanh and rescaled
// to a bounded box:
//
//		a = low + (tanh(u) + 1)(high - low)/2,	u ~ 𝒩(μ, σ)
//
// Entropy has no closed form and is estimated from
// Config.MonteCarloSamples reparameterized draws seeded by
// Config.Seed.
type SquashedGaussian struct {
	base      *DiagGaussian
	low, high []float64
	mid, half []float64 // Centre and half-width of each dimension
	cfg       Config
}

// NewSquashedGaussian returns a new SquashedGaussian over the box
// [low, high]. Bounds must be finite with low < high.
func NewSquashedGaussian(mean, logStd *G.Node, low, high []float64,
	cfg Config) (*SquashedGaussian, error) {
	base, err := NewDiagGaussian(mean, logStd, cfg)
	if err != nil {
		return nil, fmt.Errorf("newSquashedGaussian: %w", err)
	}

	if len(low) != base.dims || len(high) != base.dims {
		return nil, errors.Wrapf(ErrShapeMismatch, "newSquashedGaussian: "+
			"%d-dimensional actions but bounds of length %d and %d",
			base.dims, len(low), len(high))
	}

	mid := make([]float64, base.dims)
	half := make([]float64, base.dims)
	for i := range low {
		if !finite(low[i]) || !finite(high[i]) || low[i] >= high[i] {
			return nil, errors.Wrapf(ErrInvalidParameter, "newSquashed"+
				"Gaussian: bounds [%v, %v] at dimension %d", low[i], high[i], i)
		}
		mid[i] = (low[i] + high[i]) / 2
		half[i] = (high[i] - low[i]) / 2
	}

	return &SquashedGaussian{
		base: base,
		low:  append([]float64(nil), low...),
		high: append([]float64(nil), high...),
		mid:  mid,
		half: half,
		cfg:  cfg,
	}, nil
}

func (s *SquashedGaussian) Kind() Kind { return KindSquashedGaussian }

func (s *SquashedGaussian) BatchSize() int { return s.base.batch }

func (s *SquashedGaussian) HasRsample() bool { return true }

func (s *SquashedGaussian) RequiredModelOutputShape(sp space.Space,
	cfg Config) ([]int, error) {
	return RequiredModelOutputShape(KindSquashedGaussian, sp, cfg)
}

// Base returns the Gaussian before squashing
func (s *SquashedGaussian) Base() *DiagGaussian { return s.base }

// Low returns the lower bounds of the box
func (s *SquashedGaussian) Low() []float64 {
	return append([]float64(nil), s.low...)
}

// High returns the upper bounds of the box
func (s *SquashedGaussian) High() []float64 {
	return append([]float64(nil), s.high...)
}

func (s *SquashedGaussian) graph() *G.ExprGraph { return s.base.mean.Graph() }

// squash maps [n, batch, d] pre-activations into the box
func (s *SquashedGaussian) squash(u *G.Node) (*G.Node, error) {
	n := u.Shape()[0]
	mid := tileRows(s.graph(), s.mid, n, s.base.batch)
	half := tileRows(s.graph(), s.half, n, s.base.batch)

	a, err := G.Tanh(u)
	if err != nil {
		return nil, err
	}
	a = G.Must(G.HadamardProd(a, half))
	return G.Add(a, mid)
}

func (s *SquashedGaussian) Sample(cfg SampleConfig) (value,
	logProb *G.Node, err error) {
	n, err := sampleCount(cfg.Shape)
	if err != nil {
		return nil, nil, fmt.Errorf("sample: %w", err)
	}

	u, err := s.base.normal.Sample(n, cfg.source())
	if err != nil {
		return nil, nil, fmt.Errorf("sample: %v", err)
	}
	return s.finishSample(u, cfg)
}

func (s *SquashedGaussian) Rsample(cfg SampleConfig) (value,
	logProb *G.Node, err error) {
	n, err := sampleCount(cfg.Shape)
	if err != nil {
		return nil, nil, fmt.Errorf("rsample: %w", err)
	}

	u, err := s.base.normal.Rsample(n, cfg.source())
	if err != nil {
		return nil, nil, fmt.Errorf("rsample: %v", err)
	}
	return s.finishSample(u, cfg)
}

func (s *SquashedGaussian) finishSample(u *G.Node, cfg SampleConfig) (
	*G.Node, *G.Node, error) {
	value, err := s.squash(u)
	if err != nil {
		return nil, nil, err
	}
	value, err = reshape(value, concatInts(cfg.Shape,
		[]int{s.base.batch, s.base.dims})...)
	if err != nil {
		return nil, nil, err
	}

	if !cfg.ReturnLogProb {
		return value, nil, nil
	}

	logProb, err := s.LogProb(value)
	if err != nil {
		return nil, nil, err
	}
	return value, logProb, nil
}

// inBox reports whether a value normalized to [-1, 1] lies in the box,
// allowing for rounding in the squashing transform
func inBox(y float64) bool {
	return !math.IsNaN(y) && math.Abs(y) <= 1+squashEpsilon
}

// LogProb returns the log-density of value, which has shape
// S ++ [batch, d]:
//
//		Σ log 𝒩(atanh(y); μ, σ) - log(1 - y² + ε) - log((high - low)/2)
//
// where y = (a - (low + high)/2) / ((high - low)/2) is clipped to
// [-1+ε, 1-ε]. Values outside [low, high] are reported with an error
// wrapping ErrDomain.
func (s *SquashedGaussian) LogProb(value *G.Node) (*G.Node, error) {
	if err := checkFloat64(value); err != nil {
		return nil, fmt.Errorf("logProb: %w", err)
	}
	flat, lead, err := flatten(value, s.base.batch, []int{s.base.dims})
	if err != nil {
		return nil, fmt.Errorf("logProb: %w", err)
	}
	if err := s.checkStatic(value); err != nil {
		return nil, fmt.Errorf("logProb: %w", err)
	}

	n := flat.Shape()[0]
	mid := tileRows(s.graph(), s.mid, n, s.base.batch)
	half := tileRows(s.graph(), s.half, n, s.base.batch)

	y := G.Must(G.Sub(flat, mid))
	y = G.Must(G.HadamardDiv(y, half))
	y, err = actdist.Check(y, "squashed support", inBox, ErrDomain)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}
	y, err = actdist.Clamp(y, -1+squashEpsilon, 1-squashEpsilon, false)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}

	// atanh(y) = ½(log(1 + y) - log(1 - y))
	u := G.Must(G.Sub(G.Must(G.Log1p(y)), G.Must(G.Log1p(G.Must(G.Neg(y))))))
	u = G.Must(G.HadamardProd(s.base.normal.constant(0.5), u))

	lp, err := s.base.normal.LogProb(u)
	if err != nil {
		return nil, fmt.Errorf("logProb: %w", err)
	}

	one := s.base.normal.constant(1.0 + squashEpsilon)
	jacobian := G.Must(G.Log(G.Must(G.Sub(one, G.Must(G.Square(y))))))
	lp = G.Must(G.Sub(lp, jacobian))
	lp = G.Must(G.Sum(lp, 2))

	logScale := 0.0
	for _, h := range s.half {
		logScale += math.Log(h)
	}
	lp = G.Must(G.Sub(lp, s.base.normal.constant(logScale)))

	return reshape(lp, concatInts(lead, []int{s.base.batch})...)
}

// checkStatic reports out-of-box elements of a value node that already
// holds a value
func (s *SquashedGaussian) checkStatic(value *G.Node) error {
	if value.Value() == nil {
		return nil
	}

	data, err := actdist.Float64s(value.Value())
	if err != nil {
		return errors.Wrapf(ErrUnsupportedDtype, "%v", err)
	}

	for i, a := range data {
		j := i % s.base.dims
		if !inBox((a - s.mid[j]) / s.half[j]) {
			return errors.Wrapf(ErrDomain, "squashed support: element %v at "+
				"position %d not in [%v, %v]", a, i, s.low[j], s.high[j])
		}
	}
	return nil
}

// monteCarlo draws Config.MonteCarloSamples reparameterized values
// with their log-probabilities. The standard normal noise is drawn
// once from a source seeded by Config.Seed and shared by every row, so
// the estimate of a row depends only on that row's parameters.
func (s *SquashedGaussian) monteCarlo(what string) (value,
	logProb *G.Node, err error) {
	pkgLogger().Warn().
		Str("kind", string(KindSquashedGaussian)).
		Int("samples", s.cfg.MonteCarloSamples).
		Msgf("no closed form, estimating %v by Monte-Carlo", what)

	n, batch, dims := s.cfg.MonteCarloSamples, s.base.batch, s.base.dims
	template := constant(s.graph(), make([]float64, n*dims), n, dims)
	eps, err := standardNoise(template, rand.NewSource(s.cfg.Seed))
	if err != nil {
		return nil, nil, err
	}

	// [n, d] -> [batch, n, d] -> [n, batch, d]
	eps, err = actdist.Tile(eps, batch)
	if err != nil {
		return nil, nil, err
	}
	eps, err = G.Transpose(eps, 1, 0, 2)
	if err != nil {
		return nil, nil, err
	}

	u, err := s.base.normal.reparameterize(eps)
	if err != nil {
		return nil, nil, err
	}
	value, err = s.squash(u)
	if err != nil {
		return nil, nil, err
	}

	logProb, err = s.LogProb(value)
	if err != nil {
		return nil, nil, err
	}
	return value, logProb, nil
}

// Entropy returns the Monte-Carlo estimate -mean(log p(a)) of each row
func (s *SquashedGaussian) Entropy() (*G.Node, error) {
	_, logProb, err := s.monteCarlo("entropy")
	if err != nil {
		return nil, fmt.Errorf("entropy: %w", err)
	}

	h, err := G.Mean(logProb, 0)
	if err != nil {
		return nil, fmt.Errorf("entropy: %v", err)
	}
	h = G.Must(G.Neg(h))
	return reshape(h, s.base.batch)
}

// KL returns the divergence of each row from the receiver to other.
// Both distributions push their base Gaussian through the same
// bijection onto the same box, so the divergence equals the closed
// form divergence of the base Gaussians.
func (s *SquashedGaussian) KL(other Distribution) (*G.Node, error) {
	o, ok := other.(*SquashedGaussian)
	if !ok {
		return nil, errors.Wrapf(ErrIncompatibleDistribution, "kl: cannot "+
			"compare %v with %T", KindSquashedGaussian, other)
	}
	if err := s.base.compatible(o.base); err != nil {
		return nil, fmt.Errorf("kl: %w", err)
	}
	if !floats.Equal(s.low, o.low) || !floats.Equal(s.high, o.high) {
		return nil, errors.Wrapf(ErrIncompatibleDistribution, "kl: box "+
			"[%v, %v] differs from [%v, %v]", s.low, s.high, o.low, o.high)
	}

	return s.base.KL(o.base)
}
