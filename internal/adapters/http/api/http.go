// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"golang.org/x/time/rate"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	DirectoryDependencies
	MatchDependencies
	IngestDependencies
	AnalysisDependencies
	LoginDependencies
	Authenticator
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithRateLimit guards /match and /ingest with token buckets refilled at rps.
// rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		if rps <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.matchLimiter = rate.NewLimiter(rate.Limit(rps), burst)
		s.ingestLimiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	employeesHandler *EmployeesHandler
	projectsHandler  *ProjectsHandler
	matchHandler     *MatchHandler
	ingestHandler    *IngestHandler
	analysisHandler  *AnalysisHandler
	loginHandler     *LoginHandler

	matchLimiter  *rate.Limiter
	ingestLimiter *rate.Limiter
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		employeesHandler: NewEmployeesHandler(deps),
		projectsHandler:  NewProjectsHandler(deps),
		matchHandler:     NewMatchHandler(deps),
		ingestHandler:    NewIngestHandler(deps),
		analysisHandler:  NewAnalysisHandler(deps),
		loginHandler:     NewLoginHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux, authn Authenticator) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("/employees", MetricsMiddleware(AuthMiddleware(s.employeesHandler.HandleCollection, authn), "employees"))
	mux.HandleFunc("/employees/", MetricsMiddleware(s.employeesHandler.HandleGet, "employee"))
	mux.HandleFunc("/projects", MetricsMiddleware(AuthMiddleware(s.projectsHandler.HandleCollection, authn), "projects"))
	mux.HandleFunc("/projects/", MetricsMiddleware(s.projectsHandler.HandleGet, "project"))

	mux.HandleFunc("/match", MetricsMiddleware(RateLimitMiddleware(s.matchHandler.HandleMatch, "match", s.matchLimiter), "match"))
	mux.HandleFunc("/ingest", MetricsMiddleware(
		RateLimitMiddleware(AuthMiddleware(s.ingestHandler.HandleIngest, authn), "ingest", s.ingestLimiter), "ingest"))

	mux.HandleFunc("/contributors", MetricsMiddleware(s.analysisHandler.HandleContributors, "contributors"))
	mux.HandleFunc("/contributors/rank/", MetricsMiddleware(s.analysisHandler.HandleRank, "contributor_rank"))
	mux.HandleFunc("/features", MetricsMiddleware(s.analysisHandler.HandleFeatures, "features"))
	mux.HandleFunc("/analysis/summary", MetricsMiddleware(s.analysisHandler.HandleSummary, "summary"))

	mux.HandleFunc("/login", MetricsMiddleware(s.loginHandler.HandleLogin, "login"))
}
