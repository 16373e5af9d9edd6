package space

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Parse reads a space written as one of
//
//	discrete:N
//	multidiscrete:N1,N2,...
//	box:LOW1:HIGH1,LOW2:HIGH2,...
//
// Box bounds may be inf or -inf.
func Parse(text string) (Space, error) {
	kind, args, ok := strings.Cut(strings.TrimSpace(text), ":")
	if !ok || args == "" {
		return Space{}, errors.Wrapf(ErrInvalidSpace, "malformed space %q",
			text)
	}

	switch strings.ToLower(kind) {
	case "discrete":
		n, err := strconv.Atoi(args)
		if err != nil {
			return Space{}, errors.Wrapf(ErrInvalidSpace, "discrete: %v", err)
		}
		return NewDiscrete(n)

	case "multidiscrete":
		fields := strings.Split(args, ",")
		nvec := make([]int, len(fields))
		for i, f := range fields {
			n, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return Space{}, errors.Wrapf(ErrInvalidSpace,
					"multidiscrete: %v", err)
			}
			nvec[i] = n
		}
		return NewMultiDiscrete(nvec...)

	case "box":
		fields := strings.Split(args, ",")
		low := make([]float64, len(fields))
		high := make([]float64, len(fields))
		for i, f := range fields {
			lo, hi, ok := strings.Cut(strings.TrimSpace(f), ":")
			if !ok {
				return Space{}, errors.Wrapf(ErrInvalidSpace, "box: bound %q "+
					"is not of the form low:high", f)
			}

			var err error
			if low[i], err = strconv.ParseFloat(lo, 64); err != nil {
				return Space{}, errors.Wrapf(ErrInvalidSpace, "box: %v", err)
			}
			if high[i], err = strconv.ParseFloat(hi, 64); err != nil {
				return Space{}, errors.Wrapf(ErrInvalidSpace, "box: %v", err)
			}
		}
		return NewBox(low, high)
	}

	return Space{}, errors.Wrapf(ErrInvalidSpace, "unknown space kind %q", kind)
}
