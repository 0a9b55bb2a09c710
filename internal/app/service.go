// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	commitqueue "github.com/okian/connecthub/internal/adapters/mq/queue"
	workerpool "github.com/okian/connecthub/internal/adapters/mq/worker"
	"github.com/okian/connecthub/internal/adapters/ranking"
	"github.com/okian/connecthub/internal/adapters/repository"
	"github.com/okian/connecthub/internal/auth"
	"github.com/okian/connecthub/internal/config"
	"github.com/okian/connecthub/internal/domain/dedupe"
	"github.com/okian/connecthub/internal/domain/model"
	"github.com/okian/connecthub/pkg/logger"
	"github.com/okian/connecthub/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Service implements the API dependencies for ConnectHub.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	board   *ranking.Board
	deduper dedupe.Deduper
	queue   commitqueue.Queue
	pool    *workerpool.Pool
	hasher  *auth.Hasher
	tokens  *auth.Tokens

	// Configuration
	workerCount   int
	queueSize     int
	dedupeSize    int
	storeDriver   string
	sqlitePath    string
	matchLimit    int
	maxMatchLimit int
	seedFile      string
	ownsStore     bool

	// State
	started bool
	cancel  context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the commit queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the commit-hash cache. Zero or less means
// unbounded.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		s.dedupeSize = size
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore injects a store. The service does not close injected stores.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithStoreDriver selects the store opened by Start when none is injected.
func WithStoreDriver(driver, sqlitePath string) Option {
	return func(s *Service) {
		if driver != "" {
			s.storeDriver = driver
		}
		if sqlitePath != "" {
			s.sqlitePath = sqlitePath
		}
	}
}

// WithMatchLimits sets the default and maximum number of match results.
func WithMatchLimits(def, maxLimit int) Option {
	return func(s *Service) {
		if def > 0 {
			s.matchLimit = def
		}
		if maxLimit >= s.matchLimit {
			s.maxMatchLimit = maxLimit
		}
	}
}

// WithAuth enables session tokens signed with secret.
func WithAuth(secret string, ttl time.Duration) Option {
	return func(s *Service) {
		s.tokens = auth.NewTokens(secret, ttl)
	}
}

// WithTokens sets a preconfigured token service.
func WithTokens(tokens *auth.Tokens) Option {
	return func(s *Service) {
		if tokens != nil {
			s.tokens = tokens
		}
	}
}

// WithHasher sets the password hasher.
func WithHasher(h *auth.Hasher) Option {
	return func(s *Service) {
		if h != nil {
			s.hasher = h
		}
	}
}

// WithSeedFile names a YAML file of employees and projects loaded by Start.
func WithSeedFile(path string) Option {
	return func(s *Service) {
		s.seedFile = path
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU(),
		queueSize:     10_000,
		dedupeSize:    100_000,
		storeDriver:   config.DriverMemory,
		sqlitePath:    "connecthub.db",
		matchLimit:    5,
		maxMatchLimit: 50,
		hasher:        auth.NewHasher(),
		tokens:        auth.NewTokens("", 0),
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromConfig maps a loaded configuration onto service options.
func FromConfig(cfg *config.Config) []Option {
	return []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithStoreDriver(cfg.StoreDriver, cfg.SQLitePath),
		WithMatchLimits(cfg.MatchLimit, cfg.MaxMatchLimit),
		WithAuth(cfg.AuthSecret, time.Duration(cfg.TokenTTLHours)*time.Hour),
		WithSeedFile(cfg.SeedFile),
	}
}

// Start opens the store, rebuilds the in-memory indexes from it, loads the
// seed file and starts the ingestion workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting connecthub service...")

	if s.store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			return err
		}
		s.store = store
		s.ownsStore = true
	}

	s.board = ranking.NewBoard()
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	if err := s.rebuild(ctx); err != nil {
		s.closeStore(ctx)
		return err
	}

	if s.seedFile != "" {
		if err := s.loadSeed(ctx, s.seedFile); err != nil {
			s.closeStore(ctx)
			return err
		}
	}

	// Workers outlive the start context; Stop cancels them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.queue = commitqueue.NewInMemoryQueue(commitqueue.WithCapacity(s.queueSize))
	// A commit that fails to apply is forgotten so a resubmission is not
	// answered as a duplicate.
	deduper := s.deduper
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.store, s.board,
		workerpool.WithFailureHandler(func(ctx context.Context, c model.Commit, _ error) {
			deduper.Unrecord(ctx, c.Hash)
		}),
	)
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "connecthub service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("store", s.storeDriver),
		logger.Bool("auth", s.tokens.Enabled()),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch s.storeDriver {
	case config.DriverSQLite:
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.sqlitePath))
		store, err := repository.OpenSQLite(ctx, s.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case config.DriverMemory, "":
		s.logger.Info(ctx, "using memory store")
		return repository.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", s.storeDriver)
	}
}

// rebuild restores the leaderboard and the commit-hash cache from the store.
func (s *Service) rebuild(ctx context.Context) error {
	var (
		counts map[string]int
		hashes []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.store.FeatureCounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		hashes, err = s.store.FeatureHashes(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("rebuild from store: %w", err)
	}

	s.board.Reset(ctx, counts)
	s.deduper.Preload(ctx, hashes)
	s.logger.Info(ctx, "restored commit history",
		logger.Int("contributors", len(counts)),
		logger.Int("features", len(hashes)),
	)
	return nil
}

func (s *Service) closeStore(ctx context.Context) {
	if !s.ownsStore || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "error closing store", logger.Error(err))
	}
	s.store = nil
	s.ownsStore = false
}

// Stop drains the ingestion queue and releases the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping connecthub service...")

	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Error(ctx, "error stopping worker pool", logger.Error(err))
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.closeStore(ctx)

	s.started = false
	s.logger.Info(ctx, "connecthub service stopped")
}

// components is a snapshot of the parts a request needs.
type components struct {
	store   repository.Store
	board   *ranking.Board
	deduper dedupe.Deduper
	queue   commitqueue.Queue
}

// running returns the live components, or ErrNotStarted.
func (s *Service) running() (components, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return components{}, ErrNotStarted
	}
	return components{store: s.store, board: s.board, deduper: s.deduper, queue: s.queue}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"dedupeSize":    s.dedupeSize,
		"storeDriver":   s.storeDriver,
		"matchLimit":    s.matchLimit,
		"maxMatchLimit": s.maxMatchLimit,
		"authEnabled":   s.tokens.Enabled(),
	}

	if s.started {
		queueLen := s.queue.Len()
		contributors := s.board.Count(ctx)

		stats["queueLength"] = queueLen
		stats["contributors"] = contributors
		stats["processedCommits"] = s.pool.Processed()
		stats["knownCommits"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateContributorCount(contributors)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}

// Size returns the current number of hashes in the deduper.
func (s *Service) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Processed returns how many commits the workers have applied.
func (s *Service) Processed() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pool == nil {
		return 0
	}
	return s.pool.Processed()
}
