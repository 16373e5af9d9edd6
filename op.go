// Package actdist provides the extended Gorgonia operations that the
// action distributions in package distribution are built from.
package actdist

import (
	"fmt"

	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
)

// CheckFunc reports whether a single element is valid
type CheckFunc func(float64) bool

// Tile replicates x n times along a new leading axis, so that a node
// of shape (a, b) becomes a node of shape (n, a, b). The gradient of
// the output w.r.t. x sums over the new axis.
func Tile(x *G.Node, n int) (*G.Node, error) {
	op, err := newTileOp(n, x.Dims())
	if err != nil {
		return nil, fmt.Errorf("tile: %v", err)
	}

	return G.ApplyOp(op, x)
}

// Clamp clamps a node's values to be between min and max. The bounds
// must have the same type as the elements of x. If passGradient is
// true, then the gradient is passed through the clamping operation:
//
//         { 1 if min <= x <= max
// grad =  {
//         { 1 otherwise
//
// Otherwise, the regular clamp gradient is used:
//
//         { 1 if min <= x <= max
// grad =  {
//         { 0 otherwise
func Clamp(x *G.Node, min, max interface{}, passGradient bool) (*G.Node,
	error) {
	op, err := newClampOp(min, max, passGradient)
	if err != nil {
		return nil, fmt.Errorf("clamp: %v", err)
	}

	return G.ApplyOp(op, x)
}

// Erf computes the element-wise error function
func Erf(x *G.Node) (*G.Node, error) {
	return G.ApplyOp(newErfOp(), x)
}

// Erfc computes the element-wise complementary error function
func Erfc(x *G.Node) (*G.Node, error) {
	retVal, err := G.ApplyOp(newErfOp(), x)
	if err != nil {
		return nil, fmt.Errorf("erfc: %v", err)
	}

	var one *G.Node
	switch x.Dtype() {
	case G.Float64:
		one = x.Graph().Constant(G.NewF64(1.0))
	case G.Float32:
		one = x.Graph().Constant(G.NewF32(1.0))
	default:
		return nil, fmt.Errorf("erfc: dtype %v not supported", x.Dtype())
	}

	return G.Sub(one, retVal)
}

// Erfinv computes the element-wise inverse error function
func Erfinv(x *G.Node) (*G.Node, error) {
	return G.ApplyOp(newErfinvOp(), x)
}

// OneHot converts a node of float64 category indices into one-hot
// rows of width k, adding a trailing axis. An index that is not an
// integer in [0, k) makes the op fail at execution time with an error
// wrapping sentinel. OneHot is not differentiable.
func OneHot(indices *G.Node, k int, sentinel error) (*G.Node, error) {
	op, err := newOneHotOp(k, indices.Dims(), sentinel)
	if err != nil {
		return nil, fmt.Errorf("oneHot: %v", err)
	}

	return G.ApplyOp(op, indices)
}

// Check returns a node equal to x which fails at execution time with
// an error wrapping sentinel if any element of x does not satisfy
// pred. The name identifies the check in error messages and in the
// graph; checks with equal names must use equal predicates. Gradients
// pass through a Check unchanged.
func Check(x *G.Node, name string, pred CheckFunc,
	sentinel error) (*G.Node, error) {
	op := newCheckOp(name, pred, sentinel)

	return G.ApplyOp(op, x)
}

// UniformNoise returns a node with the shape and dtype of template
// which holds i.i.d. draws from U(0, 1), excluding 0, taken from src.
// Each execution of the graph draws new values. The template only
// determines the shape, so no gradient flows through UniformNoise.
func UniformNoise(template *G.Node, src rand.Source) (*G.Node, error) {
	op, err := newUniformNoiseOp(template.Dtype(), src)
	if err != nil {
		return nil, fmt.Errorf("uniformNoise: %v", err)
	}

	return G.ApplyOp(op, template)
}

// LogSumExp calculates the log of the summation of exponentials of
// all logits along the given axis of a matrix.
//
// Use this in place of Gorgonia's LogSumExp, which has the final sum
// and log interchanged, which is incorrect.
func LogSumExp(logits *G.Node, along int) (*G.Node, error) {
	if logits.Dims() != 2 {
		return nil, fmt.Errorf("logSumExp: expected a matrix but got "+
			"shape %v", logits.Shape())
	}
	if along < 0 || along > 1 {
		return nil, fmt.Errorf("logSumExp: axis %v out of range for "+
			"shape %v", along, logits.Shape())
	}

	// Reductions of a single row or column may collapse to a scalar,
	// keep every reduced node a vector
	reduced := []int{logits.Shape()[1-along]}

	max, err := G.Max(logits, along)
	if err != nil {
		return nil, fmt.Errorf("logSumExp: could not compute max: %v", err)
	}
	max, err = G.Reshape(max, reduced)
	if err != nil {
		return nil, fmt.Errorf("logSumExp: %v", err)
	}

	exponent, err := G.BroadcastSub(logits, max, nil, []byte{byte(along)})
	if err != nil {
		return nil, fmt.Errorf("logSumExp: could not shift logits: %v", err)
	}
	exponent = G.Must(G.Exp(exponent))

	sum := G.Must(G.Sum(exponent, along))
	sum, err = G.Reshape(sum, reduced)
	if err != nil {
		return nil, fmt.Errorf("logSumExp: %v", err)
	}
	log := G.Must(G.Log(sum))

	return G.Add(max, log)
}

// LogSoftmax computes the row-wise log softmax of a matrix of logits,
// log(exp(x_ij) / Σ_k exp(x_ik)), without exponentiating unshifted
// logits.
func LogSoftmax(logits *G.Node) (*G.Node, error) {
	lse, err := LogSumExp(logits, 1)
	if err != nil {
		return nil, fmt.Errorf("logSoftmax: %v", err)
	}

	return G.BroadcastSub(logits, lse, nil, []byte{1})
}
