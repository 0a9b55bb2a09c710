package ingestclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	service "github.com/okian/connecthub/internal/app"
	"github.com/okian/connecthub/internal/domain/model"
	"github.com/okian/connecthub/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// ErrIncomplete is returned when some commits could not be delivered.
var ErrIncomplete = errors.New("ingestclient: push incomplete")

// Runner uploads commits in concurrent batches.
type Runner struct {
	cfg    Config
	client *Client
	log    logger.Logger
}

// NewRunner creates a runner for cfg.
func NewRunner(cfg Config) *Runner {
	cfg = cfg.withDefaults()
	c := NewClient(cfg.BaseURL, cfg.Timeout)
	c.SetToken(cfg.Token)
	return &Runner{cfg: cfg, client: c, log: logger.Named("ingestclient")}
}

// Client returns the underlying HTTP client.
func (r *Runner) Client() *Client { return r.client }

// Prepare checks the server is up and logs in when credentials were given
// without a token.
func (r *Runner) Prepare(ctx context.Context) error {
	if err := r.client.Health(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}
	if r.cfg.Token == "" && r.cfg.Email != "" {
		if _, err := r.client.Login(ctx, r.cfg.Email, r.cfg.Password); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		r.log.Info(ctx, "logged in", logger.String("email", r.cfg.Email))
	}
	return nil
}

// Push uploads commits and reports how the server handled them. A non-nil
// error wrapping ErrIncomplete comes with stats counting what did land.
func (r *Runner) Push(ctx context.Context, commits []model.Commit) (Stats, error) {
	start := time.Now()
	stats := Stats{Commits: len(commits)}
	if len(commits) == 0 {
		return stats, nil
	}

	batches := chunk(commits, r.cfg.BatchSize)
	stats.Batches = len(batches)
	r.log.Info(ctx, "pushing commits",
		logger.Int("commits", len(commits)),
		logger.Int("batches", len(batches)),
		logger.Int("workers", r.cfg.Workers))

	var (
		mu   sync.Mutex
		errs []error
	)
	g := new(errgroup.Group)
	g.SetLimit(r.cfg.Workers)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			res, retries, err := r.sendBatch(ctx, batch)

			mu.Lock()
			defer mu.Unlock()
			stats.Accepted += res.Accepted
			stats.Duplicates += res.Duplicates
			stats.Retries += retries
			if err != nil {
				stats.Failed += len(batch) - res.Accepted - res.Duplicates
				errs = append(errs, fmt.Errorf("batch %d: %w", i, err))
				r.log.Warn(ctx, "batch failed", logger.Int("batch", i), logger.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.Duration = time.Since(start)
	r.log.Info(ctx, "push finished",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("failed", stats.Failed),
		logger.Int("retries", stats.Retries),
		logger.Duration("duration", stats.Duration))

	if len(errs) > 0 {
		return stats, fmt.Errorf("%w: %d of %d commits failed: %w", ErrIncomplete, stats.Failed, stats.Commits, errors.Join(errs...))
	}
	return stats, nil
}

// sendBatch posts batch, resending the part the server did not take while
// it answers 429 or 503.
func (r *Runner) sendBatch(ctx context.Context, batch []model.Commit) (service.IngestResult, int, error) {
	var total service.IngestResult
	for attempt := 0; ; attempt++ {
		res, err := r.client.PostCommits(ctx, batch)
		taken := min(max(res.Accepted+res.Duplicates, 0), len(batch))
		total.Accepted += res.Accepted
		total.Duplicates += res.Duplicates
		if err == nil {
			return total, attempt, nil
		}

		var se *StatusError
		if !errors.As(err, &se) || !se.Retryable() || attempt >= r.cfg.MaxRetries {
			return total, attempt, err
		}
		batch = batch[taken:]
		if len(batch) == 0 {
			return total, attempt, nil
		}

		wait := se.RetryAfter
		if wait <= 0 {
			wait = r.cfg.RetryWait
		}
		r.log.Debug(ctx, "server pushed back, retrying",
			logger.Int("status", se.Status),
			logger.Int("remaining", len(batch)),
			logger.Duration("wait", wait))

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return total, attempt, ctx.Err()
		case <-t.C:
		}
	}
}

// Seed posts every employee and project of seed. Employees whose email is
// already taken are skipped.
func (r *Runner) Seed(ctx context.Context, seed service.Seed) (SeedStats, error) {
	var stats SeedStats
	for _, e := range seed.Employees {
		if _, err := r.client.PostEmployee(ctx, e); err != nil {
			if IsStatus(err, http.StatusConflict) {
				stats.Skipped++
				r.log.Debug(ctx, "employee exists", logger.String("email", e.Email))
				continue
			}
			return stats, fmt.Errorf("seed employee %s: %w", e.Email, err)
		}
		stats.Employees++
	}
	for _, p := range seed.Projects {
		if _, err := r.client.PostProject(ctx, p); err != nil {
			return stats, fmt.Errorf("seed project %s: %w", p.Name, err)
		}
		stats.Projects++
	}
	r.log.Info(ctx, "seed uploaded",
		logger.Int("employees", stats.Employees),
		logger.Int("projects", stats.Projects),
		logger.Int("skipped", stats.Skipped))
	return stats, nil
}

func chunk(commits []model.Commit, size int) [][]model.Commit {
	out := make([][]model.Commit, 0, (len(commits)+size-1)/size)
	for start := 0; start < len(commits); start += size {
		out = append(out, commits[start:min(start+size, len(commits))])
	}
	return out
}
