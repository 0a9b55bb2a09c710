package api

import (
	"context"
	"errors"
	"net/http"

	service "github.com/okian/connecthub/internal/app"
	"github.com/okian/connecthub/internal/domain/model"
)

// IngestDependencies accepts commit batches for asynchronous processing.
type IngestDependencies interface {
	Ingest(ctx context.Context, commits []model.Commit) (service.IngestResult, error)
}

// ingestRequest is the body of POST /ingest.
type ingestRequest struct {
	Commits []model.Commit `json:"commits" validate:"required,min=1,max=5000,dive"`
}

// backpressureResponse reports how far a batch got before the queue filled.
type backpressureResponse struct {
	errorResponse
	service.IngestResult
}

// IngestHandler handles commit ingestion requests.
type IngestHandler struct {
	deps IngestDependencies
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(deps IngestDependencies) *IngestHandler {
	return &IngestHandler{deps: deps}
}

// HandleIngest handles POST /ingest requests.
func (h *IngestHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	const op = "api.ingest"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req ingestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.Ingest(r.Context(), req.Commits)
	if errors.Is(err, service.ErrBackpressure) {
		writeJSON(w, http.StatusTooManyRequests, backpressureResponse{
			errorResponse: errorResponse{Code: "backpressure", Message: Wrap(op, err).Error()},
			IngestResult:  res,
		})
		return
	}
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}
