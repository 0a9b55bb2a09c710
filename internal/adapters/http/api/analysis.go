package api

import (
	"context"
	"net/http"

	service "github.com/okian/connecthub/internal/app"
	"github.com/okian/connecthub/internal/domain/model"
	"github.com/okian/connecthub/internal/domain/types"
)

// AnalysisDependencies exposes the contributor history.
type AnalysisDependencies interface {
	ListContributors(ctx context.Context) ([]model.Contributor, error)
	ListFeatures(ctx context.Context, contributorID string) ([]model.FeatureWithFiles, error)
	ContributorRank(ctx context.Context, contributorID string) (types.Entry, error)
	Summary(ctx context.Context) (service.Summary, error)
}

// AnalysisHandler handles contributor analysis requests.
type AnalysisHandler struct {
	deps AnalysisDependencies
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(deps AnalysisDependencies) *AnalysisHandler {
	return &AnalysisHandler{deps: deps}
}

// HandleContributors handles GET /contributors.
func (h *AnalysisHandler) HandleContributors(w http.ResponseWriter, r *http.Request) {
	const op = "api.contributors"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	list, err := h.deps.ListContributors(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleRank handles GET /contributors/rank/{id}.
func (h *AnalysisHandler) HandleRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.contributor_rank"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := pathID(r, "/contributors/rank/")
	if id == "" {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	entry, err := h.deps.ContributorRank(r.Context(), id)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleFeatures handles GET /features?contributor_id=.
func (h *AnalysisHandler) HandleFeatures(w http.ResponseWriter, r *http.Request) {
	const op = "api.features"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	features, err := h.deps.ListFeatures(r.Context(), r.URL.Query().Get("contributor_id"))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, features)
}

// HandleSummary handles GET /analysis/summary.
func (h *AnalysisHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.summary"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	sum, err := h.deps.Summary(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
