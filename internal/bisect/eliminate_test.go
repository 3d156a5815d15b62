package bisect

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEliminate_MonotonicStep(t *testing.T) {
	for n := 1; n <= 40; n++ {
		for k0 := 0; k0 <= n; k0++ {
			t.Run(fmt.Sprintf("n=%d/k0=%d", n, k0), func(t *testing.T) {
				calls := 0
				got, err := Eliminate(context.Background(), n, func(_ context.Context, step Step) (bool, error) {
					calls++
					require.GreaterOrEqual(t, step.Mid, 0)
					require.Less(t, step.Mid, n, "the full prefix is the longest one ever probed")
					return step.Mid >= k0, nil
				})
				require.NoError(t, err)
				assert.Equal(t, k0, got)
				assert.LessOrEqual(t, calls, MaxProbes(n))
				assert.LessOrEqual(t, calls, int(math.Ceil(math.Log2(float64(n+1)))))
			})
		}
	}
}

func TestMaxProbes(t *testing.T) {
	// For n that is not a power of two this equals ceil(log2 n).
	testCases := map[int]int{0: 0, 1: 1, 2: 2, 3: 2, 5: 3, 7: 3, 8: 4, 100: 7, 1000: 10}
	for n, want := range testCases {
		assert.Equal(t, want, MaxProbes(n), "n=%d", n)
	}
	for _, n := range []int{3, 5, 6, 7, 100, 1000} {
		assert.Equal(t, int(math.Ceil(math.Log2(float64(n)))), MaxProbes(n), "n=%d", n)
	}
}

func TestEliminate_PowerOfTwoTakesOneExtraProbe(t *testing.T) {
	calls := 0
	got, err := Eliminate(context.Background(), 4, func(context.Context, Step) (bool, error) {
		calls++
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, MaxProbes(4), calls)
	assert.Equal(t, int(math.Log2(4))+1, calls)
}

func TestEliminate_MiddleClusterNeverFirst(t *testing.T) {
	sizes := []int{3, 2, 5}
	got, err := Eliminate(context.Background(), len(sizes), func(_ context.Context, step Step) (bool, error) {
		return step.Mid >= 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestEliminate_NotFoundSentinel(t *testing.T) {
	got, err := Eliminate(context.Background(), 6, func(context.Context, Step) (bool, error) {
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 6, got)

	got, err = Eliminate(context.Background(), 0, func(context.Context, Step) (bool, error) {
		t.Fatal("no candidates means no probes")
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestEliminate_ProbeError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Eliminate(context.Background(), 10, func(context.Context, Step) (bool, error) {
		return false, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestEliminate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Eliminate(ctx, 100, func(context.Context, Step) (bool, error) {
		calls++
		cancel()
		return true, nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
