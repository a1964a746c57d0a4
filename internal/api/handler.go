// Package api exposes the HTTP surface: the chat endpoint, the dashboard and
// catalog read models, health and metrics.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/suppbot/server/internal/catalog"
	"github.com/suppbot/server/internal/dashboard"
	"github.com/suppbot/server/internal/model"
	"github.com/suppbot/server/internal/observability"
	"github.com/suppbot/server/internal/pipeline"
	logx "github.com/suppbot/server/pkg/logger"
)

const maxQuestionBytes = 8 << 10

// Handler bundles the service dependencies behind the HTTP routes.
type Handler struct {
	pipeline  *pipeline.Pipeline
	dashboard *dashboard.Service
	catalog   *catalog.Catalog
	db        *sql.DB
}

func NewHandler(p *pipeline.Pipeline, d *dashboard.Service, c *catalog.Catalog, db *sql.DB) *Handler {
	return &Handler{pipeline: p, dashboard: d, catalog: c, db: db}
}

// Routes assembles the mux with logging and metrics middleware applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", h.handleChat)
	mux.HandleFunc("GET /dashboard", h.handleDashboard)
	mux.HandleFunc("GET /catalog", h.handleCatalog)
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	return observability.LoggingMiddleware(observability.MetricsMiddleware(mux))
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var input model.ChatInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQuestionBytes)).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(input.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	result := h.pipeline.Ask(r.Context(), input)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboard.Summary(r.Context())
	if err != nil {
		logx.Error().Err(err).Msg("dashboard summary failed")
		writeError(w, http.StatusBadGateway, "dashboard is temporarily unavailable")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	tables, err := h.catalog.Tables(r.Context())
	if err != nil {
		logx.Error().Err(err).Msg("catalog lookup failed")
		writeError(w, http.StatusBadGateway, "catalog is temporarily unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "down"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logx.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
