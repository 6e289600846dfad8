package services

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// WorkerPoolConfig configures the search-key worker pool.
type WorkerPoolConfig struct {
	MaxConcurrent int // Maximum concurrent discovery runs (default: 1)
}

// WorkerPool runs independent work items with bounded parallelism. A
// semaphore limits outstanding items; results are returned in submission
// order so output files and history keep the example order.
type WorkerPool struct {
	config WorkerPoolConfig
	logger *zap.Logger
}

// NewWorkerPool creates a worker pool. MaxConcurrent below 1 means sequential.
func NewWorkerPool(config WorkerPoolConfig, logger *zap.Logger) *WorkerPool {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = 1
	}
	return &WorkerPool{
		config: config,
		logger: logger.Named("worker-pool"),
	}
}

// WorkItem represents a unit of work to be processed.
type WorkItem[T any] struct {
	ID      string                               // For logging/tracking
	Execute func(ctx context.Context) (T, error) // The work to be executed
}

// WorkResult represents the result of a work item.
type WorkResult[T any] struct {
	ID     string
	Result T
	Err    error
}

// Process executes all work items and returns one result per item, in the
// order the items were given. Items start in submission order; with
// MaxConcurrent 1 they run inline one after another. It continues past
// failed items; items not yet started when ctx is cancelled report ctx.Err().
func Process[T any](
	ctx context.Context,
	pool *WorkerPool,
	items []WorkItem[T],
	onProgress func(completed, total int),
) []WorkResult[T] {
	if len(items) == 0 {
		return nil
	}

	results := make([]WorkResult[T], len(items))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
	)
	finish := func(i int, res WorkResult[T]) {
		if res.Err != nil {
			pool.logger.Debug("Work item failed", zap.String("id", res.ID), zap.Error(res.Err))
		}
		mu.Lock()
		defer mu.Unlock()
		results[i] = res
		completed++
		if onProgress != nil {
			onProgress(completed, len(items))
		}
	}

	if pool.config.MaxConcurrent == 1 {
		for i, item := range items {
			res := WorkResult[T]{ID: item.ID}
			if err := ctx.Err(); err != nil {
				res.Err = err
			} else {
				res.Result, res.Err = item.Execute(ctx)
			}
			finish(i, res)
		}
		return results
	}

	sem := make(chan struct{}, pool.config.MaxConcurrent)
	for i, item := range items {
		// Acquire the slot here so items start in submission order.
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			finish(i, WorkResult[T]{ID: item.ID, Err: ctx.Err()})
			continue
		}

		wg.Add(1)
		go func(i int, item WorkItem[T]) {
			defer wg.Done()
			defer func() { <-sem }()

			res := WorkResult[T]{ID: item.ID}
			res.Result, res.Err = item.Execute(ctx)
			finish(i, res)
		}(i, item)
	}

	wg.Wait()
	return results
}
