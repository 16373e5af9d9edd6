package actdist

import (
	"fmt"
	"hash/fnv"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// SimpleHash constructs the 32-bit FNV-1a hash of a Gorgonia Op.
// Taken from Gorgonia.
func SimpleHash(op G.Op) uint32 {
	h := fnv.New32a()
	op.WriteHash(h)
	return h.Sum32()
}

// CheckArity returns an error if op cannot be applied to the given
// number of inputs
func CheckArity(op G.Op, inputs int) error {
	if inputs != op.Arity() && op.Arity() >= 0 {
		return fmt.Errorf("%v has an arity of %d. Got %d instead", op,
			op.Arity(), inputs)
	}
	return nil
}

// Float64s returns the float64 elements of a value in row-major order.
// Views are materialized first, so the returned slice always lines up
// with the value's shape. The returned slice must not be modified.
func Float64s(v G.Value) ([]float64, error) {
	switch t := v.(type) {
	case *G.F64:
		return []float64{float64(*t)}, nil

	case tensor.Tensor:
		if view, ok := t.(tensor.View); ok && view.IsMaterializable() {
			t = view.Materialize()
		}

		switch data := t.Data().(type) {
		case []float64:
			return data, nil
		case float64:
			return []float64{data}, nil
		}
		return nil, fmt.Errorf("expected float64 data but got %v", t.Dtype())
	}

	return nil, fmt.Errorf("expected a float64 value but got %T", v)
}

// Float32s is the float32 counterpart of Float64s
func Float32s(v G.Value) ([]float32, error) {
	switch t := v.(type) {
	case *G.F32:
		return []float32{float32(*t)}, nil

	case tensor.Tensor:
		if view, ok := t.(tensor.View); ok && view.IsMaterializable() {
			t = view.Materialize()
		}

		switch data := t.Data().(type) {
		case []float32:
			return data, nil
		case float32:
			return []float32{data}, nil
		}
		return nil, fmt.Errorf("expected float32 data but got %v", t.Dtype())
	}

	return nil, fmt.Errorf("expected a float32 value but got %T", v)
}

// valueShape returns the shape of a value, treating scalars as
// shape ()
func valueShape(v G.Value) tensor.Shape {
	if t, ok := v.(tensor.Tensor); ok {
		return t.Shape().Clone()
	}
	return tensor.Shape{}
}

// unary applies one of two element-wise kernels to a float64 or
// float32 value, depending on its type, and returns the result as a
// new value of the same shape.
func unary(v G.Value, f64 func(float64) float64,
	f32 func(float32) float32) (G.Value, error) {
	switch v.(type) {
	case *G.F64:
		return G.NewF64(f64(float64(*v.(*G.F64)))), nil

	case *G.F32:
		return G.NewF32(f32(float32(*v.(*G.F32)))), nil
	}

	t, ok := v.(tensor.Tensor)
	if !ok {
		return nil, fmt.Errorf("expected a tensor, got %T", v)
	}

	switch t.Dtype() {
	case tensor.Float64:
		in, err := Float64s(t)
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(in))
		for i, x := range in {
			out[i] = f64(x)
		}
		return tensor.New(
			tensor.WithShape(valueShape(t)...),
			tensor.WithBacking(out),
		), nil

	case tensor.Float32:
		in, err := Float32s(t)
		if err != nil {
			return nil, err
		}
		out := make([]float32, len(in))
		for i, x := range in {
			out[i] = f32(x)
		}
		return tensor.New(
			tensor.WithShape(valueShape(t)...),
			tensor.WithBacking(out),
		), nil
	}

	return nil, fmt.Errorf("dtype %v not supported", t.Dtype())
}

// binary applies one of two element-wise kernels to a pair of values
// x and grad of the same shape, usually an op's input and the
// gradient flowing into the op.
func binary(x, grad G.Value, f64 func(x, g float64) float64,
	f32 func(x, g float32) float32) (G.Value, error) {
	switch x.(type) {
	case *G.F64:
		g, ok := grad.(*G.F64)
		if !ok {
			return nil, fmt.Errorf("expected gradient of type %T, got %T",
				x, grad)
		}
		return G.NewF64(f64(float64(*x.(*G.F64)), float64(*g))), nil

	case *G.F32:
		g, ok := grad.(*G.F32)
		if !ok {
			return nil, fmt.Errorf("expected gradient of type %T, got %T",
				x, grad)
		}
		return G.NewF32(f32(float32(*x.(*G.F32)), float32(*g))), nil
	}

	t, ok := x.(tensor.Tensor)
	if !ok {
		return nil, fmt.Errorf("expected a tensor, got %T", x)
	}

	switch t.Dtype() {
	case tensor.Float64:
		in, err := Float64s(x)
		if err != nil {
			return nil, err
		}
		g, err := Float64s(grad)
		if err != nil {
			return nil, err
		}
		if len(in) != len(g) {
			return nil, fmt.Errorf("input has %d elements but gradient "+
				"has %d", len(in), len(g))
		}
		out := make([]float64, len(in))
		for i := range in {
			out[i] = f64(in[i], g[i])
		}
		return tensor.New(
			tensor.WithShape(valueShape(t)...),
			tensor.WithBacking(out),
		), nil

	case tensor.Float32:
		in, err := Float32s(x)
		if err != nil {
			return nil, err
		}
		g, err := Float32s(grad)
		if err != nil {
			return nil, err
		}
		if len(in) != len(g) {
			return nil, fmt.Errorf("input has %d elements but gradient "+
				"has %d", len(in), len(g))
		}
		out := make([]float32, len(in))
		for i := range in {
			out[i] = f32(in[i], g[i])
		}
		return tensor.New(
			tensor.WithShape(valueShape(t)...),
			tensor.WithBacking(out),
		), nil
	}

	return nil, fmt.Errorf("dtype %v not supported", t.Dtype())
}
