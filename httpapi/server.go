// Package httpapi exposes the benchmark command surface over HTTP: run
// creation and inspection, artifact retrieval, reference scripts and the
// dashboard aggregates.
package httpapi

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/AltairaLabs/speechbench/aggregate"
	"github.com/AltairaLabs/speechbench/artifact"
	"github.com/AltairaLabs/speechbench/engine"
	"github.com/AltairaLabs/speechbench/repository"
)

// Server binds the HTTP handlers to the engine, repository, artifact store
// and aggregation service.
type Server struct {
	engine    *engine.Engine
	store     *repository.Store
	artifacts *artifact.Store
	agg       *aggregate.Service
}

// New builds the API server. All collaborators are required.
func New(eng *engine.Engine, store *repository.Store, artifacts *artifact.Store, agg *aggregate.Service) *Server {
	return &Server{
		engine:    eng,
		store:     store,
		artifacts: artifacts,
		agg:       agg,
	}
}

// Handler returns the routed handler wrapped with OTel HTTP instrumentation.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/runs", s.handleCreateRun)
	mux.HandleFunc("POST /api/runs/quick", s.handleQuickRun)
	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	mux.HandleFunc("DELETE /api/runs/{id}", s.handleDeleteRun)
	mux.HandleFunc("GET /api/files/{kind}/{filename}", s.handleGetFile)
	mux.HandleFunc("GET /api/scripts", s.handleListScripts)
	mux.HandleFunc("GET /api/subjective-metrics", s.handleListSubjectiveMetrics)
	mux.HandleFunc("GET /api/subjective-metrics/{service_type}", s.handleListSubjectiveMetrics)
	mux.HandleFunc("POST /api/user-ratings", s.handleSubmitRatings)
	mux.HandleFunc("GET /api/user-ratings/{run_item_id}", s.handleItemRatings)
	mux.HandleFunc("GET /api/user-ratings/{run_item_id}/user/{user_name}", s.handleUserItemRatings)
	mux.HandleFunc("GET /api/dashboard/stats", s.handleStats)
	mux.HandleFunc("GET /api/dashboard/insights", s.handleInsights)
	mux.HandleFunc("GET /api/dashboard/latency_percentiles", s.handleLatencyPercentiles)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	return otelhttp.NewHandler(mux, "httpapi")
}
