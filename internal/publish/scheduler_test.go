package publish

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type slowDiscoverer struct {
	delay   time.Duration
	started int32
	done    int32
}

func (d *slowDiscoverer) RegisteredSecids(ctx context.Context) (map[string]struct{}, error) {
	atomic.AddInt32(&d.started, 1)
	time.Sleep(d.delay)
	atomic.AddInt32(&d.done, 1)
	return map[string]struct{}{}, nil
}

func TestSchedulerTickDropsOverlappingRun(t *testing.T) {
	disc := &slowDiscoverer{delay: 100 * time.Millisecond}
	cycle := NewCycle(disc, fakeRegistryLookup{}, fakeSignedPriceFetcher{}, nil, 0.5, zerolog.Nop())
	s := NewScheduler(cycle, 1, 5*time.Second, zerolog.Nop())

	ctx := context.Background()
	go s.tick(ctx)
	time.Sleep(10 * time.Millisecond) // let the first tick grab the run-guard
	s.tick(ctx)                       // should be dropped, not a second concurrent run

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&disc.started))
	assert.Equal(t, int32(1), atomic.LoadInt32(&disc.done))
}

func TestSchedulerTickRunsAgainAfterPreviousCompletes(t *testing.T) {
	disc := &slowDiscoverer{delay: 10 * time.Millisecond}
	cycle := NewCycle(disc, fakeRegistryLookup{}, fakeSignedPriceFetcher{}, nil, 0.5, zerolog.Nop())
	s := NewScheduler(cycle, 1, 5*time.Second, zerolog.Nop())

	ctx := context.Background()
	s.tick(ctx)
	s.tick(ctx)

	assert.Equal(t, int32(2), atomic.LoadInt32(&disc.started))
}
