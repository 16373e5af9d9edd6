package distribution

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/actdist"
	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Normal is a tensor of independent univariate normal distributions.
// The mean and standard deviation nodes have equal shapes, and each of
// their elements defines a different distribution element-wise. For
// example, if the mean and standard deviation are vectors:
//
//		mean   := [m_1, m_2, ..., m_N]
//		stddev := [s_1, s_2, ..., s_N]
//
// then the Normal holds the following distributions:
//
//		[𝒩(m_1, s_1), 𝒩(m_2, s_2), ..., 𝒩(m_N, s_N)]
//
// The shape of the mean and standard deviation constitutes the shape
// of the Normal. Any input to any method of the Normal must have
// either the shape of the Normal, or the shape of the Normal with one
// extra leading sample dimension:
//
// 1. (n_1, n_2, ..., n_M)
// 2. (a, n_1, n_2, ..., n_M) for ∀a ∈ ℕ-{0}
//
// In the second case, the method is run on each of the a samples and
// the output has the same leading dimension.
//
// Normal supports the following data types:
// - tensor.Float64
type Normal struct {
	mean   *G.Node
	stddev *G.Node
	logStd *G.Node
}

// NewNormal returns a new Normal. Standard deviations must be
// positive: stddev nodes holding a value are checked immediately, and
// all others when the graph is run.
func NewNormal(mean, stddev *G.Node) (*Normal, error) {
	if err := checkNormalParams(mean, stddev); err != nil {
		return nil, fmt.Errorf("newNormal: %w", err)
	}

	stddev, err := validate(stddev, "positive stddev", func(x float64) bool {
		return x > 0 && !math.IsInf(x, 1)
	}, ErrInvalidParameter)
	if err != nil {
		return nil, fmt.Errorf("newNormal: %w", err)
	}

	return &Normal{
		mean:   mean,
		stddev: stddev,
		logStd: G.Must(G.Log(stddev)),
	}, nil
}

// newNormalLogStd returns a Normal parameterized by the log of its
// standard deviation. Keeping log σ avoids computing log(exp(log σ))
// in log-densities and entropies.
func newNormalLogStd(mean, logStd *G.Node) (*Normal, error) {
	if err := checkNormalParams(mean, logStd); err != nil {
		return nil, fmt.Errorf("newNormal: %w", err)
	}

	return &Normal{
		mean:   mean,
		stddev: G.Must(G.Exp(logStd)),
		logStd: logStd,
	}, nil
}

func checkNormalParams(mean, scale *G.Node) error {
	if !mean.Shape().Eq(scale.Shape()) {
		return errors.Wrapf(ErrShapeMismatch, "expected mean and scale to "+
			"have the same shape but got %v and %v", mean.Shape(),
			scale.Shape())
	}
	if mean.IsScalar() {
		return errors.Wrap(ErrShapeMismatch, "parameters must not be scalars")
	}
	if !sameGraph(mean, scale) {
		return errors.Wrap(ErrShapeMismatch, "mean and scale are on "+
			"different graphs")
	}

	return checkFloat64(mean, scale)
}

// params returns the mean, standard deviation, and log standard
// deviation tiled to match the shape of x
func (n *Normal) params(x *G.Node) (mean, stddev, logStd *G.Node,
	err error) {
	shape := n.Shape()
	xShape := x.Shape()

	if xShape.Eq(shape) {
		return n.mean, n.stddev, n.logStd, nil
	}

	if len(xShape) != len(shape)+1 || !tensor.Shape(xShape[1:]).Eq(shape) {
		return nil, nil, nil, errors.Wrapf(ErrUnsupportedShape, "expected "+
			"shape %v with an optional leading sample dimension but got %v",
			shape, xShape)
	}

	samples := xShape[0]
	if mean, err = actdist.Tile(n.mean, samples); err != nil {
		return nil, nil, nil, err
	}
	if stddev, err = actdist.Tile(n.stddev, samples); err != nil {
		return nil, nil, nil, err
	}
	if logStd, err = actdist.Tile(n.logStd, samples); err != nil {
		return nil, nil, nil, err
	}

	return mean, stddev, logStd, nil
}

func (n *Normal) constant(v float64) *G.Node {
	return n.mean.Graph().Constant(G.NewF64(v))
}

// Prob calculates the probability density of x
func (n *Normal) Prob(x *G.Node) (*G.Node, error) {
	logProb, err := n.LogProb(x)
	if err != nil {
		return nil, fmt.Errorf("prob: %w", err)
	}

	return G.Exp(logProb)
}

// LogProb calculates the log probability density of x:
//
//		-½((x - μ) / σ)² - log σ - log √(2π)
func (n *Normal) LogProb(x *G.Node) (*G.Node, error) {
	_, _, logStd, err := n.params(x)
	if err != nil {
		return nil, fmt.Errorf("logProb: %w", err)
	}
	z, err := n.standardize(x)
	if err != nil {
		return nil, fmt.Errorf("logProb: %w", err)
	}

	negativeHalf := n.constant(-0.5)
	lnRootTwoPi := n.constant(0.5 * math.Log(2*math.Pi))

	z = G.Must(G.Square(z))
	z = G.Must(G.HadamardProd(negativeHalf, z))
	z = G.Must(G.Sub(z, logStd))
	z = G.Must(G.Sub(z, lnRootTwoPi))

	return z, nil
}

// standardize returns (x - μ) / σ
func (n *Normal) standardize(x *G.Node) (*G.Node, error) {
	mean, stddev, _, err := n.params(x)
	if err != nil {
		return nil, err
	}

	z := G.Must(G.Sub(x, mean))
	return G.HadamardDiv(z, stddev)
}

// Cdf computes the cumulative distribution function of x:
//
//		½(1 + erf((x - μ) / (σ√2)))
func (n *Normal) Cdf(x *G.Node) (*G.Node, error) {
	z, err := n.standardize(x)
	if err != nil {
		return nil, fmt.Errorf("cdf: %w", err)
	}

	rootTwo := n.constant(math.Sqrt2)
	one := n.constant(1.0)
	half := n.constant(0.5)

	z = G.Must(G.HadamardDiv(z, rootTwo))
	z, err = actdist.Erf(z)
	if err != nil {
		return nil, fmt.Errorf("cdf: %v", err)
	}
	z = G.Must(G.Add(one, z))
	z = G.Must(G.HadamardProd(half, z))

	return z, nil
}

// Quantile computes the inverse cumulative distribution function at
// probability p:
//
//		μ + σ√2 erfinv(2p - 1)
func (n *Normal) Quantile(p *G.Node) (*G.Node, error) {
	mean, stddev, _, err := n.params(p)
	if err != nil {
		return nil, fmt.Errorf("quantile: %w", err)
	}

	rootTwo := n.constant(math.Sqrt2)
	one := n.constant(1.0)
	two := n.constant(2.0)

	p = G.Must(G.HadamardProd(two, p))
	p = G.Must(G.Sub(p, one))
	p, err = actdist.Erfinv(p)
	if err != nil {
		return nil, fmt.Errorf("quantile: %v", err)
	}
	p = G.Must(G.HadamardProd(p, rootTwo))
	p = G.Must(G.HadamardProd(p, stddev))
	p = G.Must(G.Add(mean, p))

	return p, nil
}

// Shape returns the shape of the tensor of distributions
func (n *Normal) Shape() tensor.Shape {
	return n.mean.Shape().Clone()
}

// Variance returns the variance of the distributions
func (n *Normal) Variance() *G.Node {
	return G.Must(G.Square(n.stddev))
}

// StdDev returns the standard deviation of the distributions
func (n *Normal) StdDev() *G.Node {
	return n.stddev
}

// Mean returns the mean of the distributions
func (n *Normal) Mean() *G.Node {
	return n.mean
}

// Entropy returns the element-wise entropy ½ + ½log(2π) + log σ
func (n *Normal) Entropy() (*G.Node, error) {
	c := n.constant(0.5 + 0.5*math.Log(2*math.Pi))
	return G.Add(c, n.logStd)
}

// KL returns the element-wise Kullback-Leibler divergence from the
// receiver to other:
//
//		log(σ₂/σ₁) + (σ₁² + (μ₁ - μ₂)²) / (2σ₂²) - ½
func (n *Normal) KL(other Elementwise) (*G.Node, error) {
	o, ok := other.(*Normal)
	if !ok {
		return nil, errors.Wrapf(ErrIncompatibleDistribution, "kl: cannot "+
			"compare a Normal with %T", other)
	}
	if !n.Shape().Eq(o.Shape()) {
		return nil, errors.Wrapf(ErrIncompatibleDistribution, "kl: shapes "+
			"%v and %v differ", n.Shape(), o.Shape())
	}
	if !sameGraph(n.mean, o.mean) {
		return nil, errors.Wrap(ErrIncompatibleDistribution, "kl: "+
			"distributions are on different graphs")
	}

	two := n.constant(2.0)
	half := n.constant(0.5)

	diff := G.Must(G.Sub(n.mean, o.mean))
	num := G.Must(G.Add(G.Must(G.Square(n.stddev)), G.Must(G.Square(diff))))
	den := G.Must(G.HadamardProd(two, G.Must(G.Square(o.stddev))))

	kl := G.Must(G.Sub(o.logStd, n.logStd))
	kl = G.Must(G.Add(kl, G.Must(G.HadamardDiv(num, den))))
	kl = G.Must(G.Sub(kl, half))

	return kl, nil
}

// HasRsample returns true, the Normal supports reparameterized
// sampling
func (n *Normal) HasRsample() bool { return true }

// Sample returns a node of shape [samples] ++ Shape() holding new
// draws each time the graph is run
func (n *Normal) Sample(samples int, src rand.Source) (*G.Node, error) {
	return NormalRand(n.mean, n.stddev, samples, src)
}

// Rsample returns a node of shape [samples] ++ Shape() holding
// reparameterized draws μ + σε with ε = √2 erfinv(2u - 1) and
// u ~ U(0, 1). Gradients flow to the mean and standard deviation.
func (n *Normal) Rsample(samples int, src rand.Source) (*G.Node, error) {
	template, err := actdist.Tile(n.mean, samples)
	if err != nil {
		return nil, fmt.Errorf("rsample: %v", err)
	}

	eps, err := standardNoise(template, src)
	if err != nil {
		return nil, fmt.Errorf("rsample: %v", err)
	}
	return n.reparameterize(eps)
}

// reparameterize returns μ + σε for standard normal noise eps of shape
// [samples] ++ Shape()
func (n *Normal) reparameterize(eps *G.Node) (*G.Node, error) {
	shape := eps.Shape()
	if len(shape) != len(n.Shape())+1 ||
		!tensor.Shape(shape[1:]).Eq(n.Shape()) {
		return nil, errors.Wrapf(ErrUnsupportedShape, "reparameterize: "+
			"expected noise of shape [samples] ++ %v but got %v", n.Shape(),
			shape)
	}

	mean, err := actdist.Tile(n.mean, shape[0])
	if err != nil {
		return nil, fmt.Errorf("reparameterize: %v", err)
	}
	stddev, err := actdist.Tile(n.stddev, shape[0])
	if err != nil {
		return nil, fmt.Errorf("reparameterize: %v", err)
	}

	out := G.Must(G.HadamardProd(stddev, eps))
	return G.Add(mean, out)
}

// standardNoise returns draws ε = √2 erfinv(2u - 1) from 𝒩(0, 1),
// shaped like template, with u ~ U(0, 1) taken from src
func standardNoise(template *G.Node, src rand.Source) (*G.Node, error) {
	u, err := actdist.UniformNoise(template, src)
	if err != nil {
		return nil, err
	}

	g := template.Graph()
	two := g.Constant(G.NewF64(2.0))
	one := g.Constant(G.NewF64(1.0))
	rootTwo := g.Constant(G.NewF64(math.Sqrt2))

	eps := G.Must(G.HadamardProd(two, u))
	eps = G.Must(G.Sub(eps, one))
	eps, err = actdist.Erfinv(eps)
	if err != nil {
		return nil, err
	}
	return G.HadamardProd(rootTwo, eps)
}
