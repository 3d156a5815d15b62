package bisect

import (
	"context"
	"math/bits"
)

// Step describes one probe of an elimination.
type Step struct {
	Iteration int
	// Low and High bound the answer still possible; High may be the
	// not-found sentinel.
	Low  int
	High int
	// Mid is the last candidate index of the prefix under test.
	Mid int
}

// ProbeFunc tests the candidate prefix [0..step.Mid] and reports whether the
// failure reproduced.
type ProbeFunc func(ctx context.Context, step Step) (bool, error)

// MaxProbes returns the most probes Eliminate makes for n candidates.
func MaxProbes(n int) int {
	if n <= 0 {
		return 0
	}
	return bits.Len(uint(n))
}

// Eliminate returns the index of the first candidate whose prefix reproduces
// the failure, or n if no prefix does. It probes at most MaxProbes(n) times,
// which is ceil(log2(n+1)). That is one probe more than ceil(log2 n) whenever n
// is a power of two, because "the last candidate" and "not found" each need a
// probe of their own. A probe error stops the search and is returned as is.
func Eliminate(ctx context.Context, n int, probe ProbeFunc) (int, error) {
	low, high := 0, n
	for i := 0; low < high; i++ {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		mid := low + (high-low)/2
		reproduced, err := probe(ctx, Step{Iteration: i, Low: low, High: high, Mid: mid})
		if err != nil {
			return n, err
		}
		if reproduced {
			high = mid
		} else {
			low = mid + 1
		}
	}
	return low, nil
}
