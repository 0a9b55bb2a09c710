package worker_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/okian/connecthub/internal/adapters/mq/queue"
	"github.com/okian/connecthub/internal/adapters/mq/worker"
	"github.com/okian/connecthub/internal/adapters/ranking"
	"github.com/okian/connecthub/internal/adapters/repository"
	"github.com/okian/connecthub/internal/domain/model"
	logging "github.com/okian/connecthub/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type failingStore struct {
	contributorErr error
	featureErr     error
}

func (f *failingStore) UpsertContributor(_ context.Context, name, email string, ts int64) (model.Contributor, error) {
	if f.contributorErr != nil {
		return model.Contributor{}, f.contributorErr
	}
	return model.Contributor{ID: "c-1", Name: name, Email: email}, nil
}

func (f *failingStore) AddFeature(context.Context, model.Feature, []model.FileStat) (bool, error) {
	return false, f.featureErr
}

func commit(hash, email string, ts int64) model.Commit {
	return model.Commit{
		Hash:        hash,
		Message:     "feat: " + hash,
		Timestamp:   ts,
		Contributor: model.CommitAuthor{Name: email, Email: email},
		Files:       []model.FileStat{{FilePath: hash + ".go", LinesAdded: 3, LinesDeleted: 1}},
	}
}

func TestWorkerApply(t *testing.T) {
	convey.Convey("Given a worker over a memory store and a board", t, func() {
		_ = logging.Init(logging.WithWriter(io.Discard))
		ctx := context.Background()
		store := repository.NewMemoryStore()
		board := ranking.NewBoard()
		q := queue.NewInMemoryQueue()
		w := worker.NewWorker(q, store, board, worker.WithName("test"), worker.WithLogger(logging.Nop()))

		convey.Convey("When a new commit is applied", func() {
			err := w.Apply(ctx, commit("h1", "ada@example.com", 1_000))

			convey.Convey("Then contributor, feature, files and rank are recorded", func() {
				convey.So(err, convey.ShouldBeNil)
				features, _ := store.ListFeatures(ctx, "")
				convey.So(features, convey.ShouldHaveLength, 1)
				convey.So(features[0].Title, convey.ShouldEqual, "feat: h1")
				convey.So(features[0].Description, convey.ShouldEqual, "feat: h1")
				convey.So(features[0].Files, convey.ShouldHaveLength, 1)

				entry, err := board.Rank(ctx, features[0].ContributorID)
				convey.So(err, convey.ShouldBeNil)
				convey.So(entry.FeatureCount, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the same commit is applied twice", func() {
			_ = w.Apply(ctx, commit("h1", "ada@example.com", 1_000))
			err := w.Apply(ctx, commit("h1", "ada@example.com", 1_000))

			convey.Convey("Then the feature and rank are counted once", func() {
				convey.So(err, convey.ShouldBeNil)
				totals, _ := store.Totals(ctx)
				convey.So(totals.Features, convey.ShouldEqual, 1)
				top, _ := board.TopN(ctx, 1)
				convey.So(top[0].FeatureCount, convey.ShouldEqual, 1)
			})
		})
	})

	convey.Convey("Given a store that fails", t, func() {
		ctx := context.Background()
		board := ranking.NewBoard()
		q := queue.NewInMemoryQueue()

		convey.Convey("When the contributor cannot be stored", func() {
			w := worker.NewWorker(q, &failingStore{contributorErr: errors.New("disk full")}, board, worker.WithLogger(logging.Nop()))
			err := w.Apply(ctx, commit("h1", "ada@example.com", 1))

			convey.Convey("Then the error is returned and nothing is ranked", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "disk full")
				convey.So(board.Count(ctx), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the feature cannot be stored", func() {
			w := worker.NewWorker(q, &failingStore{featureErr: errors.New("locked")}, board, worker.WithLogger(logging.Nop()))
			err := w.Apply(ctx, commit("h1", "ada@example.com", 1))

			convey.Convey("Then the error names the commit", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "h1")
				convey.So(board.Count(ctx), convey.ShouldEqual, 0)
			})
		})
	})
}

func TestWorker_FailureHandler(t *testing.T) {
	convey.Convey("Given a worker whose store rejects features", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue()
		failed := make(chan string, 1)
		w := worker.NewWorker(q, &failingStore{featureErr: errors.New("locked")}, ranking.NewBoard(),
			worker.WithLogger(logging.Nop()),
			worker.WithFailureHandler(func(_ context.Context, c model.Commit, err error) {
				failed <- c.Hash + ": " + err.Error()
			}),
		)
		go w.Run(ctx)

		convey.Convey("When a commit is dequeued", func() {
			convey.So(q.Enqueue(ctx, commit("h9", "ada@example.com", 1)), convey.ShouldBeNil)

			convey.Convey("Then the handler receives the commit and the error", func() {
				select {
				case msg := <-failed:
					convey.So(msg, convey.ShouldStartWith, "h9: ")
					convey.So(msg, convey.ShouldContainSubstring, "locked")
				case <-time.After(2 * time.Second):
					convey.So("handler not called", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of workers", t, func() {
		_ = logging.Init(logging.WithWriter(io.Discard))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		store := repository.NewMemoryStore()
		board := ranking.NewBoard()
		q := queue.NewInMemoryQueue(queue.WithCapacity(500))
		pool := worker.NewPool(4, q, store, board)
		pool.Start(ctx)

		convey.Convey("When commits are enqueued and the pool shuts down", func() {
			for i := 0; i < 300; i++ {
				email := fmt.Sprintf("dev%d@example.com", i%3)
				convey.So(q.Enqueue(ctx, commit(fmt.Sprintf("h%d", i), email, int64(i))), convey.ShouldBeNil)
			}
			err := pool.Shutdown(ctx)

			convey.Convey("Then every commit is drained and applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pool.Size(), convey.ShouldEqual, 4)
				convey.So(pool.Processed(), convey.ShouldEqual, 300)

				totals, _ := store.Totals(ctx)
				convey.So(totals.Features, convey.ShouldEqual, 300)
				convey.So(totals.Contributors, convey.ShouldEqual, 3)

				top, _ := board.TopN(ctx, 3)
				for _, e := range top {
					convey.So(e.FeatureCount, convey.ShouldEqual, 100)
					convey.So(e.Rank, convey.ShouldEqual, 1)
				}
			})
		})
	})

	convey.Convey("Given a pool with a non-positive size", t, func() {
		_ = logging.Init(logging.WithWriter(io.Discard))
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), repository.NewMemoryStore(), ranking.NewBoard())

		convey.Convey("Then it defaults to at least one worker", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})

	convey.Convey("Given a started pool and a cancelled context", t, func() {
		_ = logging.Init(logging.WithWriter(io.Discard))
		ctx, cancel := context.WithCancel(context.Background())
		pool := worker.NewPool(2, queue.NewInMemoryQueue(), repository.NewMemoryStore(), ranking.NewBoard())
		pool.Start(ctx)
		cancel()

		convey.Convey("Then shutdown still returns promptly", func() {
			sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer scancel()
			convey.So(pool.Shutdown(sctx), convey.ShouldBeNil)
		})
	})
}
