package orchestrator

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// DefaultPoolWidth is the default number of concurrent leaf/group executions
// a single orchestration run allows (spec §4.8: "default width 32-64").
const DefaultPoolWidth = 48

// pool is the single bounded worker pool shared by every parallel group in
// one task tree execution. Its lifetime is exactly the duration of one
// Runner.Run call (spec §4.8), unlike scale.WorkerPool in the teacher repo
// which is a long-lived, auto-scaling service component; here the pool only
// needs to gate concurrency, so it is expressed as a weighted semaphore
// rather than a channel-fed goroutine farm.
type pool struct {
	sem *semaphore.Weighted
}

func newPool(width int) *pool {
	if width <= 0 {
		width = DefaultPoolWidth
	}
	return &pool{sem: semaphore.NewWeighted(int64(width))}
}

// run acquires a pool slot (blocking until one is free or ctx is done),
// executes fn, and releases the slot. The acquire itself can fail only if
// ctx is cancelled first.
func (p *pool) run(ctx context.Context, fn func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	fn()
	return nil
}
