package distribution

import "github.com/pkg/errors"

// Error categories. Every error returned by this package wraps exactly
// one of these, so callers can branch on the category with errors.Is.
var (
	// ErrShapeMismatch: a logits or parameter node does not have the
	// shape the distribution requires
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrUnsupportedShape: a sample shape or value shape is not
	// compatible with the batch and event shape of the distribution
	ErrUnsupportedShape = errors.New("unsupported shape")

	// ErrNotReparameterizable: Rsample called on a distribution
	// without a reparameterized sampler
	ErrNotReparameterizable = errors.New("not reparameterizable")

	// ErrDomain: a value lies outside the support of the distribution
	ErrDomain = errors.New("value outside support")

	// ErrIncompatibleDistribution: KL called with a distribution over a
	// different support, event shape, batch size, or graph
	ErrIncompatibleDistribution = errors.New("incompatible distribution")

	// ErrInvalidParameter: malformed parameters, such as non-finite
	// logits. Wraps ErrDomain.
	ErrInvalidParameter = errors.Wrap(ErrDomain, "invalid parameter")

	// ErrUnknownKind: no variant is registered for a kind
	ErrUnknownKind = errors.New("unknown distribution kind")

	// ErrInvalidVariant: a Variant passed to Register is missing its
	// kind, layout, or constructor
	ErrInvalidVariant = errors.New("invalid variant")

	// ErrUnsupportedSpace: the action space has the wrong family for a
	// variant
	ErrUnsupportedSpace = errors.New("unsupported action space")

	// ErrInvalidConfig: a Config failed validation
	ErrInvalidConfig = errors.New("invalid config")

	// ErrUnsupportedDtype: parameters are not float64
	ErrUnsupportedDtype = errors.New("unsupported dtype")
)
