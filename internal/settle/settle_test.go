package settle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll_CollectsEveryOutcome(t *testing.T) {
	boom := errors.New("boom")
	results := All(context.Background(), []string{"AAPL", "MSFT", "GOOG"}, func(_ context.Context, k string) (int, error) {
		if k == "MSFT" {
			return 0, boom
		}
		return len(k), nil
	})

	require.Len(t, results, 3)
	assert.True(t, results["AAPL"].OK())
	assert.Equal(t, 4, results["AAPL"].Value)
	assert.ErrorIs(t, results["MSFT"].Err, boom)
	assert.Equal(t, 4, results["GOOG"].Value)
}

func TestAll_WaitsForSlowTasks(t *testing.T) {
	// A fast failure must not cut the slow success short.
	results := All(context.Background(), []int{1, 2}, func(_ context.Context, k int) (string, error) {
		if k == 1 {
			return "", errors.New("fast failure")
		}
		time.Sleep(50 * time.Millisecond)
		return "slow", nil
	})

	assert.Error(t, results[1].Err)
	assert.Equal(t, "slow", results[2].Value)
}

func TestAll_RunsConcurrently(t *testing.T) {
	var inFlight, peak int32
	release := make(chan struct{})
	done := make(chan map[int]Result[int])

	go func() {
		done <- All(context.Background(), []int{1, 2, 3}, func(_ context.Context, k int) (int, error) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			<-release
			atomic.AddInt32(&inFlight, -1)
			return k, nil
		})
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&peak) == 3 }, time.Second, 5*time.Millisecond)
	close(release)

	results := <-done
	assert.Len(t, results, 3)
}

func TestAll_DeduplicatesKeys(t *testing.T) {
	var calls int32
	results := All(context.Background(), []string{"AAPL", "AAPL", "MSFT"}, func(_ context.Context, k string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return k, nil
	})

	assert.Len(t, results, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestAll_EmptyKeys(t *testing.T) {
	results := All(context.Background(), nil, func(_ context.Context, k string) (string, error) {
		t.Fatal("fn must not be called")
		return "", nil
	})
	assert.Empty(t, results)
}

func TestAll_PanicSettlesAsError(t *testing.T) {
	results := All(context.Background(), []string{"ok", "bad"}, func(_ context.Context, k string) (string, error) {
		if k == "bad" {
			panic("nil quote")
		}
		return k, nil
	})

	assert.True(t, results["ok"].OK())
	assert.ErrorContains(t, results["bad"].Err, "panicked")
}

func TestAll_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := All(ctx, []string{"AAPL"}, func(_ context.Context, k string) (string, error) {
		return k, nil
	})

	assert.ErrorIs(t, results["AAPL"].Err, context.Canceled)
}
