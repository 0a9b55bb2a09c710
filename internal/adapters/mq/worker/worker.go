// Package worker applies queued commits to the history store and the
// contributor leaderboard.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/connecthub/internal/domain/model"
	"github.com/okian/connecthub/pkg/logger"
	"github.com/okian/connecthub/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Queue defines how workers receive commits.
type Queue interface {
	Dequeue() <-chan model.Commit
	Close() error
}

// HistoryStore is the subset of the repository workers write to.
type HistoryStore interface {
	UpsertContributor(ctx context.Context, name, email string, ts int64) (model.Contributor, error)
	AddFeature(ctx context.Context, f model.Feature, files []model.FileStat) (bool, error)
}

// Ranker receives a bump for every newly stored feature.
type Ranker interface {
	Increment(ctx context.Context, contributorID string, delta int) int
}

// Worker drains the queue until it is closed or ctx is cancelled.
type Worker struct {
	queue  Queue
	store  HistoryStore
	ranker Ranker
	name   string
	logger logger.Logger

	onFailure func(ctx context.Context, c model.Commit, err error)

	processed *atomic.Int64
	done      chan struct{}
}

// NewWorker creates a worker with configuration options.
func NewWorker(q Queue, store HistoryStore, ranker Ranker, opts ...Option) *Worker {
	w := &Worker{
		queue:     q,
		store:     store,
		ranker:    ranker,
		name:      "worker",
		processed: &atomic.Int64{},
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes commits until the queue closes or ctx is done.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	commits := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-commits:
			if !ok {
				return
			}
			if err := w.Apply(ctx, c); err != nil {
				w.logger.Error(ctx, "error applying commit",
					logger.String("hash", c.Hash),
					logger.Error(err),
				)
				if w.onFailure != nil {
					w.onFailure(ctx, c, err)
				}
			}
		}
	}
}

// Apply stores one commit: the contributor is upserted, the commit becomes a
// feature with its files, and the leaderboard is bumped when the feature is
// new.
func (w *Worker) Apply(ctx context.Context, c model.Commit) error {
	contributor, err := w.store.UpsertContributor(ctx, c.Contributor.Name, c.Contributor.Email, c.Timestamp)
	if err != nil {
		metrics.RecordWorkerError("contributor")
		return fmt.Errorf("upsert contributor %s: %w", c.Contributor.Email, err)
	}

	inserted, err := w.store.AddFeature(ctx, model.Feature{
		Title:         c.Message,
		Description:   c.Message,
		Hash:          c.Hash,
		Timestamp:     c.Timestamp,
		ContributorID: contributor.ID,
	}, c.Files)
	if err != nil {
		metrics.RecordWorkerError("feature")
		return fmt.Errorf("add feature %s: %w", c.Hash, err)
	}

	if inserted {
		w.ranker.Increment(ctx, contributor.ID, 1)
	} else {
		w.logger.Debug(ctx, "commit already stored", logger.String("hash", c.Hash))
	}
	w.processed.Add(1)
	metrics.RecordWorkerProcessed()
	return nil
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers   []*Worker
	queue     Queue
	processed atomic.Int64
	logger    logger.Logger
	wg        sync.WaitGroup
}

// NewPool creates workerCount workers. workerCount < 1 means runtime.NumCPU().
// opts are applied to every worker.
func NewPool(workerCount int, q Queue, store HistoryStore, ranker Ranker, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*Worker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		w := NewWorker(q, store, ranker, append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)...)
		w.processed = &p.processed
		p.workers[i] = w
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns how many commits the pool has applied.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	select {
	case <-done:
		return nil
	case <-shutdownCtx.Done():
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
}
