package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/okian/connecthub/internal/adapters/ranking"
	"github.com/okian/connecthub/internal/domain/model"
	"github.com/okian/connecthub/internal/domain/types"
	"golang.org/x/sync/errgroup"
)

const (
	summaryTopContributors = 5
	summaryRecentFeatures  = 5
)

// Summary is the contributor analysis overview.
type Summary struct {
	Totals          model.Totals     `json:"summary"`
	TopContributors []TopContributor `json:"topContributors"`
	RecentFeatures  []RecentFeature  `json:"recentFeatures"`
}

// TopContributor is one leaderboard row in a Summary.
type TopContributor struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	FeatureCount int    `json:"featureCount"`
}

// RecentFeature is one of the newest features in a Summary.
type RecentFeature struct {
	Title     string `json:"title"`
	Hash      string `json:"hash"`
	Timestamp string `json:"timestamp"`
}

// ListContributors returns every known contributor.
func (s *Service) ListContributors(ctx context.Context) ([]model.Contributor, error) {
	c, err := s.running()
	if err != nil {
		return nil, err
	}
	return c.store.ListContributors(ctx)
}

// ListFeatures returns the features of one contributor, or all features when
// contributorID is empty.
func (s *Service) ListFeatures(ctx context.Context, contributorID string) ([]model.FeatureWithFiles, error) {
	c, err := s.running()
	if err != nil {
		return nil, err
	}
	return c.store.ListFeatures(ctx, contributorID)
}

// ContributorRank returns a contributor's leaderboard entry.
func (s *Service) ContributorRank(ctx context.Context, contributorID string) (types.Entry, error) {
	c, err := s.running()
	if err != nil {
		return types.Entry{}, err
	}
	entry, err := c.board.Rank(ctx, contributorID)
	if errors.Is(err, ranking.ErrNotFound) {
		return types.Entry{}, fmt.Errorf("contributor %s: %w", contributorID, ErrNotFound)
	}
	if err != nil {
		return types.Entry{}, err
	}
	return s.withContributor(ctx, c, entry)
}

// TopContributors returns the n contributors with the most features.
func (s *Service) TopContributors(ctx context.Context, n int) ([]types.Entry, error) {
	c, err := s.running()
	if err != nil {
		return nil, err
	}
	entries, err := c.board.TopN(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	for i := range entries {
		if entries[i], err = s.withContributor(ctx, c, entries[i]); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (s *Service) withContributor(ctx context.Context, c components, e types.Entry) (types.Entry, error) {
	contributor, err := c.store.GetContributor(ctx, e.ContributorID)
	if err != nil {
		return types.Entry{}, fmt.Errorf("contributor %s: %w", e.ContributorID, err)
	}
	e.Name = contributor.Name
	e.Email = contributor.Email
	return e, nil
}

// Summary gathers totals, the top contributors and the newest features.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var (
		out      Summary
		top      []types.Entry
		features []model.FeatureWithFiles
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.running()
		if err != nil {
			return err
		}
		out.Totals, err = c.store.Totals(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		top, err = s.TopContributors(gctx, summaryTopContributors)
		return err
	})
	g.Go(func() error {
		var err error
		features, err = s.ListFeatures(gctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	out.TopContributors = make([]TopContributor, 0, len(top))
	for _, e := range top {
		out.TopContributors = append(out.TopContributors, TopContributor{
			Name:         e.Name,
			Email:        e.Email,
			FeatureCount: e.FeatureCount,
		})
	}

	sort.SliceStable(features, func(i, j int) bool {
		return features[i].Timestamp > features[j].Timestamp
	})
	if len(features) > summaryRecentFeatures {
		features = features[:summaryRecentFeatures]
	}
	out.RecentFeatures = make([]RecentFeature, 0, len(features))
	for _, f := range features {
		out.RecentFeatures = append(out.RecentFeatures, RecentFeature{
			Title:     f.Title,
			Hash:      f.Hash,
			Timestamp: model.MillisToTime(f.Timestamp).Format(time.RFC3339),
		})
	}
	return out, nil
}
