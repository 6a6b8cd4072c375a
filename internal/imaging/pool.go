package imaging

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many preprocessing jobs run at once. Resizing and mask
// compositing are CPU-bound, so without a cap a burst of requests could
// starve the goroutines serving in-flight provider calls.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool creates a pool with the given concurrency; size <= 0 defaults to
// GOMAXPROCS.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Prepare runs Prepare under the concurrency cap.
func (p *Pool) Prepare(ctx context.Context, data []byte, maxSide int, mode ColorMode) (*Asset, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)
	return Prepare(data, maxSide, mode)
}

// PrepareMask runs PrepareMask under the concurrency cap.
func (p *Pool) PrepareMask(ctx context.Context, data []byte, targetWidth, targetHeight, featherRadius int) (*Asset, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)
	return PrepareMask(data, targetWidth, targetHeight, featherRadius)
}
