package traversal

import "algojudge/internal/judging/jsonval"

const (
	// MaxListSize bounds list and level-order outputs. A cyclic linked
	// structure serializes until it hits this ceiling.
	MaxListSize = 10000

	// RepeatWindow is the run of identical consecutive values treated as a
	// cycle signature.
	RepeatWindow = 50
)

// WithinSafeBounds reports whether values fits under MaxListSize.
func WithinSafeBounds(values []any) bool {
	return len(values) <= MaxListSize
}

// HasRepeatingRun reports whether values contains window or more identical
// consecutive elements.
func HasRepeatingRun(values []any, window int) bool {
	if window <= 1 {
		return len(values) > 0
	}
	if len(values) < window {
		return false
	}
	run := 1
	for i := 1; i < len(values); i++ {
		if !jsonval.Equal(values[i], values[i-1]) {
			run = 1
			continue
		}
		run++
		if run >= window {
			return true
		}
	}
	return false
}
