// Package space describes the action spaces that distributions are
// defined over: a single discrete choice, several independent
// discrete choices, or a box of continuous values.
package space

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidSpace is returned when a space has no dimensions, a
// non-positive number of categories, or a lower bound above its upper
// bound
var ErrInvalidSpace = errors.New("space: invalid space")

// Kind is the family of an action space
type Kind int

const (
	// Discrete is a single index in {0, ..., n-1}
	Discrete Kind = iota + 1

	// MultiDiscrete is a vector of independent indices, the ith of
	// which lies in {0, ..., nvec[i]-1}
	MultiDiscrete

	// Box is a vector of real values, each between a lower and upper
	// bound, which may be infinite
	Box
)

func (k Kind) String() string {
	switch k {
	case Discrete:
		return "discrete"
	case MultiDiscrete:
		return "multidiscrete"
	case Box:
		return "box"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Space is an immutable action space descriptor. The zero Space is
// invalid.
type Space struct {
	kind Kind
	nvec []int

	// Bounds of a Box
	low, high *mat.VecDense
}

// NewDiscrete returns a space of a single action in {0, ..., n-1}
func NewDiscrete(n int) (Space, error) {
	s := Space{kind: Discrete, nvec: []int{n}}
	if err := s.Validate(); err != nil {
		return Space{}, err
	}
	return s, nil
}

// NewMultiDiscrete returns a space of len(nvec) independent actions
func NewMultiDiscrete(nvec ...int) (Space, error) {
	s := Space{kind: MultiDiscrete, nvec: append([]int(nil), nvec...)}
	if err := s.Validate(); err != nil {
		return Space{}, err
	}
	return s, nil
}

// NewBox returns a continuous space with the given element-wise
// bounds. Use math.Inf for unbounded dimensions.
func NewBox(low, high []float64) (Space, error) {
	if len(low) != len(high) {
		return Space{}, errors.Wrapf(ErrInvalidSpace, "%d lower bounds "+
			"but %d upper bounds", len(low), len(high))
	}
	if len(low) == 0 {
		return Space{}, errors.Wrap(ErrInvalidSpace, "box has no dimensions")
	}

	s := Space{
		kind: Box,
		low:  mat.NewVecDense(len(low), append([]float64(nil), low...)),
		high: mat.NewVecDense(len(high), append([]float64(nil), high...)),
	}
	if err := s.Validate(); err != nil {
		return Space{}, err
	}
	return s, nil
}

// Kind returns the family of the space
func (s Space) Kind() Kind { return s.kind }

// Validate returns an error wrapping ErrInvalidSpace if the space is
// malformed
func (s Space) Validate() error {
	switch s.kind {
	case Discrete, MultiDiscrete:
		if len(s.nvec) == 0 {
			return errors.Wrapf(ErrInvalidSpace, "%v space has no "+
				"dimensions", s.kind)
		}
		for i, n := range s.nvec {
			if n <= 0 {
				return errors.Wrapf(ErrInvalidSpace, "dimension %d has %d "+
					"categories", i, n)
			}
		}
		return nil

	case Box:
		if s.low == nil || s.high == nil || s.low.Len() == 0 {
			return errors.Wrap(ErrInvalidSpace, "box has no dimensions")
		}
		for i := 0; i < s.low.Len(); i++ {
			lo, hi := s.low.AtVec(i), s.high.AtVec(i)
			if math.IsNaN(lo) || math.IsNaN(hi) {
				return errors.Wrapf(ErrInvalidSpace, "NaN bound at "+
					"dimension %d", i)
			}
			if lo > hi {
				return errors.Wrapf(ErrInvalidSpace, "low %v > high %v at "+
					"dimension %d", lo, hi, i)
			}
		}
		return nil
	}

	return errors.Wrapf(ErrInvalidSpace, "unknown kind %v", s.kind)
}

// Dims returns the number of action components: 1 for Discrete,
// len(nvec) for MultiDiscrete, and the box dimension for Box
func (s Space) Dims() int {
	switch s.kind {
	case Discrete, MultiDiscrete:
		return len(s.nvec)
	case Box:
		if s.low == nil {
			return 0
		}
		return s.low.Len()
	}
	return 0
}

// Categories returns the number of choices of each discrete
// component, or nil for a Box
func (s Space) Categories() []int {
	if s.kind == Box {
		return nil
	}
	return append([]int(nil), s.nvec...)
}

// Cardinality returns the number of distinct actions in a discrete
// space, or 0 for a Box
func (s Space) Cardinality() int {
	if s.kind == Box || len(s.nvec) == 0 {
		return 0
	}

	card := 1
	for _, n := range s.nvec {
		card *= n
	}
	return card
}

// Bounded returns whether every dimension of the space has finite
// bounds. Discrete spaces are always bounded.
func (s Space) Bounded() bool {
	if s.kind != Box {
		return s.kind != 0
	}

	for i := 0; i < s.low.Len(); i++ {
		if math.IsInf(s.low.AtVec(i), 0) || math.IsInf(s.high.AtVec(i), 0) {
			return false
		}
	}
	return true
}

// Low returns the element-wise lower bounds of the space. For discrete
// spaces this is 0 for each component.
func (s Space) Low() []float64 {
	if s.kind == Box {
		return mat.Col(nil, 0, s.low)
	}
	return make([]float64, len(s.nvec))
}

// High returns the element-wise upper bounds of the space. For
// discrete spaces this is the largest index of each component.
func (s Space) High() []float64 {
	if s.kind == Box {
		return mat.Col(nil, 0, s.high)
	}

	high := make([]float64, len(s.nvec))
	for i, n := range s.nvec {
		high[i] = float64(n - 1)
	}
	return high
}

// Contains returns whether x is an action in the space
func (s Space) Contains(x []float64) bool {
	if len(x) != s.Dims() || s.Dims() == 0 {
		return false
	}

	low, high := s.Low(), s.High()
	for i, v := range x {
		if math.IsNaN(v) || v < low[i] || v > high[i] {
			return false
		}
		if s.kind != Box && v != math.Trunc(v) {
			return false
		}
	}
	return true
}

// String returns the space in the syntax accepted by Parse
func (s Space) String() string {
	switch s.kind {
	case Discrete:
		return fmt.Sprintf("discrete:%d", s.nvec[0])

	case MultiDiscrete:
		parts := make([]string, len(s.nvec))
		for i, n := range s.nvec {
			parts[i] = fmt.Sprint(n)
		}
		return "multidiscrete:" + strings.Join(parts, ",")

	case Box:
		parts := make([]string, s.low.Len())
		for i := range parts {
			parts[i] = fmt.Sprintf("%v:%v", formatBound(s.low.AtVec(i)),
				formatBound(s.high.AtVec(i)))
		}
		return "box:" + strings.Join(parts, ",")
	}

	return "invalid"
}

func formatBound(b float64) string {
	switch {
	case math.IsInf(b, 1):
		return "inf"
	case math.IsInf(b, -1):
		return "-inf"
	}
	return fmt.Sprint(b)
}
