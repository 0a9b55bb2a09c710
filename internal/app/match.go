package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/connecthub/internal/domain/matching"
	"github.com/okian/connecthub/internal/domain/model"
	"github.com/okian/connecthub/pkg/logger"
	"github.com/okian/connecthub/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// MatchRequest asks for candidates to fill a role. ProjectID is optional;
// without it only the role and keywords drive the score.
type MatchRequest struct {
	ProjectID   string `json:"project_id"`
	MissingRole string `json:"missing_role" validate:"max=200"`
	Keywords    string `json:"keywords" validate:"max=500"`
	Limit       int    `json:"limit" validate:"gte=0"`
}

// MatchResponse is the ranked candidate list for a request.
type MatchResponse struct {
	ProjectID  string            `json:"projectId,omitempty"`
	Eligible   int               `json:"eligible"`
	Candidates []matching.Result `json:"candidates"`
}

// limitFor clamps a requested limit to [1, maxMatchLimit]; zero means default.
func (s *Service) limitFor(requested int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case requested <= 0:
		return s.matchLimit
	case requested > s.maxMatchLimit:
		return s.maxMatchLimit
	default:
		return requested
	}
}

// Match loads the employee pool and the optional project concurrently and
// scores the pool against the request.
func (s *Service) Match(ctx context.Context, req MatchRequest) (MatchResponse, error) {
	c, err := s.running()
	if err != nil {
		return MatchResponse{}, err
	}

	var (
		pool    []model.Employee
		project model.Project
	)
	projectID := strings.TrimSpace(req.ProjectID)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pool, err = c.store.ListEmployees(gctx)
		if err != nil {
			return fmt.Errorf("list employees: %w", err)
		}
		return nil
	})
	if projectID != "" {
		g.Go(func() error {
			var err error
			project, err = c.store.GetProject(gctx, projectID)
			if err != nil {
				return fmt.Errorf("project %s: %w", projectID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.RecordMatchError()
		return MatchResponse{}, err
	}

	q := matching.Query{MissingRole: req.MissingRole, Keywords: req.Keywords}
	if projectID != "" {
		q = matching.QueryForProject(project, req.MissingRole, req.Keywords)
	}

	start := time.Now()
	// Score the whole pool first so the eligible count is known, then cut.
	ranked := matching.NewScorer(matching.WithLimit(len(pool))).Score(pool, q)
	limit := s.limitFor(req.Limit)
	eligible := len(ranked)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	latency := float64(time.Since(start).Microseconds()) / 1000
	metrics.RecordMatch(latency, eligible, len(ranked))

	s.logger.Debug(ctx, "scored candidate pool",
		logger.String("projectId", projectID),
		logger.String("missingRole", req.MissingRole),
		logger.Int("pool", len(pool)),
		logger.Int("eligible", eligible),
		logger.Int("returned", len(ranked)),
		logger.Float64("latencyMs", latency),
	)

	return MatchResponse{ProjectID: projectID, Eligible: eligible, Candidates: ranked}, nil
}
