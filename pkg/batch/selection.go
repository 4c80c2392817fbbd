package batch

import (
	"errors"
	"strconv"
	"strings"
)

// ErrSelection reports an episode selection that cannot be parsed.
var ErrSelection = errors.New("invalid episode selection")

// ParseSelection resolves a selection expression against episodes and
// returns the chosen subset in source order.
//
// Accepted forms:
//
//	"0"    every episode
//	"A-B"  the 1-based inclusive range A..B, clipped to the list
//	"N"    the single 1-based episode N; out of range selects nothing
//
// Whitespace around the expression is ignored. Anything else is an
// [ErrSelection].
func ParseSelection[T any](expr string, episodes []T) ([]T, error) {
	expr = strings.TrimSpace(expr)

	if lo, hi, ok := strings.Cut(expr, "-"); ok {
		a, err1 := strconv.Atoi(strings.TrimSpace(lo))
		b, err2 := strconv.Atoi(strings.TrimSpace(hi))
		if err1 != nil || err2 != nil {
			return nil, ErrSelection
		}
		start := max(a-1, 0)
		end := min(b, len(episodes))
		if start >= end {
			return nil, nil
		}
		return episodes[start:end], nil
	}

	n, err := strconv.Atoi(expr)
	if err != nil {
		return nil, ErrSelection
	}
	if n == 0 {
		return episodes, nil
	}
	if n < 1 || n > len(episodes) {
		return nil, nil
	}
	return episodes[n-1 : n], nil
}
