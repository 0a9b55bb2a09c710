package service

import (
	"context"
	"errors"
	"fmt"

	commitqueue "github.com/okian/connecthub/internal/adapters/mq/queue"
	"github.com/okian/connecthub/internal/domain/model"
	"github.com/okian/connecthub/pkg/logger"
	"github.com/okian/connecthub/pkg/metrics"
)

// IngestResult counts how a batch of commits was handled.
type IngestResult struct {
	Accepted   int `json:"accepted"`
	Duplicates int `json:"duplicates"`
	Rejected   int `json:"rejected,omitempty"`
}

// Ingest queues every commit whose hash has not been seen before. When the
// queue refuses a commit its hash is forgotten again, the rest of the batch
// is rejected and ErrBackpressure is returned with the counts so far.
func (s *Service) Ingest(ctx context.Context, commits []model.Commit) (IngestResult, error) {
	c, err := s.running()
	if err != nil {
		return IngestResult{}, err
	}

	var res IngestResult
	defer func() {
		metrics.RecordCommitsAccepted(res.Accepted)
		metrics.RecordCommitsDuplicate(res.Duplicates)
		metrics.RecordCommitsRejected(res.Rejected)
		metrics.UpdateQueueSize(c.queue.Len())
	}()

	for i, commit := range commits {
		if c.deduper.SeenAndRecord(ctx, commit.Hash) {
			res.Duplicates++
			continue
		}
		if err := c.queue.Enqueue(ctx, commit); err != nil {
			c.deduper.Unrecord(ctx, commit.Hash)
			res.Rejected = len(commits) - i
			s.logger.Warn(ctx, "commit queue refused batch",
				logger.Int("accepted", res.Accepted),
				logger.Int("rejected", res.Rejected),
				logger.Error(err),
			)
			if errors.Is(err, commitqueue.ErrFull) || errors.Is(err, commitqueue.ErrClosed) {
				return res, fmt.Errorf("%w: %w", ErrBackpressure, err)
			}
			return res, err
		}
		res.Accepted++
	}

	s.logger.Debug(ctx, "ingested commits",
		logger.Int("accepted", res.Accepted),
		logger.Int("duplicates", res.Duplicates),
	)
	return res, nil
}
