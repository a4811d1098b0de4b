// Package local runs enrichment tasks in-process on a pool of workers.
package local

import (
	"context"
	"errors"
	"sync"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/retro-booth/internal/model"
)

var (
	ErrQueueFull   = errors.New("enrichment queue is full")
	ErrQueueClosed = errors.New("enrichment queue is closed")
)

// taskHandler runs one enrichment task.
type taskHandler interface {
	HandleTask(ctx context.Context, task model.EnrichTask) error
}

// Queue is a bounded channel drained by a fixed number of workers.
type Queue struct {
	tasks   chan model.EnrichTask
	handler taskHandler
	workers int

	mu     sync.RWMutex
	closed bool
}

// New creates a queue holding up to buffer pending tasks.
func New(handler taskHandler, workers, buffer int) *Queue {
	if workers < 1 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	return &Queue{
		tasks:   make(chan model.EnrichTask, buffer),
		handler: handler,
		workers: workers,
	}
}

// Enqueue adds a task without blocking. A full queue rejects the task.
func (q *Queue) Enqueue(ctx context.Context, task model.EnrichTask) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Consume runs the workers until ctx is canceled, then drains what is already queued.
func (q *Queue) Consume(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	zlog.Logger.Info().Int("workers", q.workers).Msg("starting enrichment workers")

	var workers sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			q.work()
		}()
	}

	<-ctx.Done()
	zlog.Logger.Info().Msg("shutdown signal received, stopping enrichment workers")

	q.mu.Lock()
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	workers.Wait()
	zlog.Logger.Info().Msg("enrichment workers stopped")
}

func (q *Queue) work() {
	// Tasks run detached from the shutdown signal so queued photos still get their crop.
	ctx := context.Background()
	for task := range q.tasks {
		if err := q.handler.HandleTask(ctx, task); err != nil {
			zlog.Logger.Err(err).Str("photo_id", task.PhotoID).Msg("failed to enrich photo")
		}
	}
}
