package distribution

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/actdist"
	"github.com/samuelfneumann/actdist/space"
	G "gorgonia.org/gorgonia"
)

func init() {
	mustRegister(Variant{
		Kind:   KindDiagGaussian,
		Layout: gaussianLayout(KindDiagGaussian, false),
		New: func(params []*G.Node, _ space.Space, cfg Config) (Distribution,
			error) {
			if err := checkParamCount(KindDiagGaussian, params, 2); err != nil {
				return nil, err
			}
			return NewDiagGaussian(params[0], params[1], cfg)
		},
	})
}

// gaussianLayout returns the [mean, log_std] layout over a Box
func gaussianLayout(kind Kind, bounded bool) func(space.Space, Config) (
	Layout, error) {
	return func(s space.Space, _ Config) (Layout, error) {
		if s.Kind() != space.Box {
			return nil, errors.Wrapf(ErrUnsupportedSpace, "%v needs a box "+
				"space but got %v", kind, s)
		}
		if bounded && !s.Bounded() {
			return nil, errors.Wrapf(ErrUnsupportedSpace, "%v needs a "+
				"bounded box but got %v", kind, s)
		}

		return Layout{
			{Name: "mean", Width: s.Dims()},
			{Name: "log_std", Width: s.Dims()},
		}, nil
	}
}

// DiagGaussian is a batch of multivariate Gaussians with diagonal
// covariance over ℝ^d, parameterized by [batch, d] means and log
// standard deviations. The log standard deviation is clamped to
// [MinLogStd, MaxLogStd] of the Config, passing gradients through
// the clamp.
type DiagGaussian struct {
	mean, logStd *G.Node
	normal       *Normal
	dist         *Independent
	batch, dims  int
}

// NewDiagGaussian returns a new DiagGaussian. Parameters must be
// finite.
func NewDiagGaussian(mean, logStd *G.Node, cfg Config) (*DiagGaussian,
	error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("newDiagGaussian: %w", err)
	}
	if err := checkFloat64(mean, logStd); err != nil {
		return nil, fmt.Errorf("newDiagGaussian: %w", err)
	}
	if mean.Dims() != 2 || !mean.Shape().Eq(logStd.Shape()) {
		return nil, errors.Wrapf(ErrShapeMismatch, "newDiagGaussian: "+
			"expected mean and log std of shape [batch, d] but got %v and %v",
			mean.Shape(), logStd.Shape())
	}
	shape := mean.Shape()
	if shape[0] <= 0 || shape[1] <= 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "newDiagGaussian: empty "+
			"parameters of shape %v", shape)
	}

	mean, err := validate(mean, "finite mean", finite, ErrInvalidParameter)
	if err != nil {
		return nil, fmt.Errorf("newDiagGaussian: %w", err)
	}
	logStd, err = validate(logStd, "finite log std", finite,
		ErrInvalidParameter)
	if err != nil {
		return nil, fmt.Errorf("newDiagGaussian: %w", err)
	}
	logStd, err = actdist.Clamp(logStd, cfg.MinLogStd, cfg.MaxLogStd, true)
	if err != nil {
		return nil, fmt.Errorf("newDiagGaussian: %v", err)
	}

	normal, err := newNormalLogStd(mean, logStd)
	if err != nil {
		return nil, fmt.Errorf("newDiagGaussian: %w", err)
	}
	dist, err := NewIndependent(normal, 1)
	if err != nil {
		return nil, fmt.Errorf("newDiagGaussian: %w", err)
	}

	return &DiagGaussian{
		mean:   mean,
		logStd: logStd,
		normal: normal,
		dist:   dist,
		batch:  shape[0],
		dims:   shape[1],
	}, nil
}

func (d *DiagGaussian) Kind() Kind { return KindDiagGaussian }

func (d *DiagGaussian) BatchSize() int { return d.batch }

// Dims returns the dimension of the action vectors
func (d *DiagGaussian) Dims() int { return d.dims }

func (d *DiagGaussian) HasRsample() bool { return true }

func (d *DiagGaussian) RequiredModelOutputShape(s space.Space,
	cfg Config) ([]int, error) {
	return RequiredModelOutputShape(KindDiagGaussian, s, cfg)
}

// Mean returns the [batch, d] means, which are also the modes
func (d *DiagGaussian) Mean() *G.Node { return d.mean }

// LogStd returns the clamped [batch, d] log standard deviations
func (d *DiagGaussian) LogStd() *G.Node { return d.logStd }

// StdDev returns the [batch, d] standard deviations
func (d *DiagGaussian) StdDev() *G.Node { return d.normal.StdDev() }

// Normal returns the element-wise Normal the receiver is built on
func (d *DiagGaussian) Normal() *Normal { return d.normal }

func (d *DiagGaussian) Sample(cfg SampleConfig) (value, logProb *G.Node,
	err error) {
	n, err := sampleCount(cfg.Shape)
	if err != nil {
		return nil, nil, fmt.Errorf("sample: %w", err)
	}

	value, err = d.normal.Sample(n, cfg.source())
	if err != nil {
		return nil, nil, fmt.Errorf("sample: %v", err)
	}
	return d.finishSample(value, cfg)
}

// Rsample draws mean + std·ε with ε = √2·erfinv(2u - 1), u ~ U(0, 1),
// so that gradients flow to the mean and log standard deviation
func (d *DiagGaussian) Rsample(cfg SampleConfig) (value, logProb *G.Node,
	err error) {
	n, err := sampleCount(cfg.Shape)
	if err != nil {
		return nil, nil, fmt.Errorf("rsample: %w", err)
	}

	value, err = d.normal.Rsample(n, cfg.source())
	if err != nil {
		return nil, nil, fmt.Errorf("rsample: %v", err)
	}
	return d.finishSample(value, cfg)
}

// finishSample reshapes [n, batch, d] draws to the sample shape and
// computes their log-probability if requested
func (d *DiagGaussian) finishSample(value *G.Node, cfg SampleConfig) (
	*G.Node, *G.Node, error) {
	value, err := reshape(value, concatInts(cfg.Shape,
		[]int{d.batch, d.dims})...)
	if err != nil {
		return nil, nil, err
	}

	if !cfg.ReturnLogProb {
		return value, nil, nil
	}

	logProb, err := d.LogProb(value)
	if err != nil {
		return nil, nil, err
	}
	return value, logProb, nil
}

// LogProb returns the log-density of value, which has shape
// S ++ [batch, d]. Non-finite values are reported with an error
// wrapping ErrDomain.
func (d *DiagGaussian) LogProb(value *G.Node) (*G.Node, error) {
	if err := checkFloat64(value); err != nil {
		return nil, fmt.Errorf("logProb: %w", err)
	}
	flat, lead, err := flatten(value, d.batch, []int{d.dims})
	if err != nil {
		return nil, fmt.Errorf("logProb: %w", err)
	}
	flat, err = validate(flat, "finite value", finite, ErrDomain)
	if err != nil {
		return nil, fmt.Errorf("logProb: %w", err)
	}

	lp, err := d.dist.LogProb(flat)
	if err != nil {
		return nil, fmt.Errorf("logProb: %w", err)
	}
	return reshape(lp, concatInts(lead, []int{d.batch})...)
}

// Entropy returns Σ ½ + ½log(2π) + log σ for each row
func (d *DiagGaussian) Entropy() (*G.Node, error) {
	h, err := d.dist.Entropy()
	if err != nil {
		return nil, err
	}
	return reshape(h, d.batch)
}

// KL returns the closed-form divergence
// Σ log(σ₂/σ₁) + (σ₁² + (μ₁ - μ₂)²)/(2σ₂²) - ½ for each row
func (d *DiagGaussian) KL(other Distribution) (*G.Node, error) {
	o, ok := other.(*DiagGaussian)
	if !ok {
		return nil, errors.Wrapf(ErrIncompatibleDistribution, "kl: cannot "+
			"compare %v with %T", KindDiagGaussian, other)
	}
	if err := d.compatible(o); err != nil {
		return nil, fmt.Errorf("kl: %w", err)
	}

	kl, err := d.dist.KL(o.dist)
	if err != nil {
		return nil, err
	}
	return reshape(kl, d.batch)
}

func (d *DiagGaussian) compatible(o *DiagGaussian) error {
	if d.batch != o.batch || d.dims != o.dims {
		return errors.Wrapf(ErrIncompatibleDistribution, "shape [%d, %d] "+
			"differs from [%d, %d]", d.batch, d.dims, o.batch, o.dims)
	}
	if !sameGraph(d.mean, o.mean) {
		return errors.Wrap(ErrIncompatibleDistribution, "distributions are "+
			"on different graphs")
	}
	return nil
}
