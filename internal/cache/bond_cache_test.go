package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegisteredBondCacheRescansWhenStale(t *testing.T) {
	var calls int32
	c := NewRegisteredBondCache(10*time.Millisecond, func(ctx context.Context) (map[string]struct{}, error) {
		atomic.AddInt32(&calls, 1)
		return map[string]struct{}{"SU26207RMFS9": {}}, nil
	})

	got, err := c.Get(context.Background())
	assert.NoError(t, err)
	assert.Contains(t, got, "SU26207RMFS9")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// Still fresh: no second rescan.
	_, err = c.Get(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	time.Sleep(15 * time.Millisecond)
	_, err = c.Get(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRegisteredBondCacheCollapsesConcurrentRescans(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	c := NewRegisteredBondCache(time.Hour, func(ctx context.Context) (map[string]struct{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return map[string]struct{}{"SU26207RMFS9": {}}, nil
	})

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(context.Background())
			assert.NoError(t, err)
		}()
	}

	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRegisteredBondCacheFailedRescanDoesNotPoison(t *testing.T) {
	var attempt int32
	c := NewRegisteredBondCache(time.Hour, func(ctx context.Context) (map[string]struct{}, error) {
		n := atomic.AddInt32(&attempt, 1)
		if n == 1 {
			return nil, fmt.Errorf("rpc burst failed")
		}
		return map[string]struct{}{"SU26207RMFS9": {}}, nil
	})

	_, err := c.Get(context.Background())
	assert.Error(t, err)

	got, err := c.Get(context.Background())
	assert.NoError(t, err)
	assert.Contains(t, got, "SU26207RMFS9")
}
