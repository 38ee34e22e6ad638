package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brightpath/campaign-monitor/internal/analysis"
	"github.com/brightpath/campaign-monitor/internal/domain"
	"github.com/brightpath/campaign-monitor/internal/pkg/logger"
)

// Analyzer triggers an analysis run. Implemented by analysis.Service.
type Analyzer interface {
	AnalyzeWithRetry(ctx context.Context, req analysis.AnalyzeRequest) (*analysis.Summary, error)
}

// Handlers contains the HTTP handlers for the monitor API.
type Handlers struct {
	analyzer Analyzer
	results  analysis.ResultStore
	cache    *AlertCache
	db       *sql.DB
}

// NewHandlers creates the handler set. db and cache may be nil; the health
// endpoint then reports those components as not configured.
func NewHandlers(analyzer Analyzer, results analysis.ResultStore, cache *AlertCache, db *sql.DB) *Handlers {
	return &Handlers{analyzer: analyzer, results: results, cache: cache, db: db}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// RunAnalysis triggers an analysis run and returns its summary.
// POST /api/analysis/run
func (h *Handlers) RunAnalysis(w http.ResponseWriter, r *http.Request) {
	var req analysis.AnalyzeRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	summary, err := h.analyzer.AnalyzeWithRetry(r.Context(), req)
	if err != nil {
		if errors.Is(err, analysis.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error("analysis run failed", "error", err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// alertResponse is the JSON projection of a persisted alert.
type alertResponse struct {
	ID              string            `json:"id"`
	CampaignID      int64             `json:"campaign_id"`
	AnalysisType    string            `json:"analysis_type"`
	DateDetected    time.Time         `json:"date_detected"`
	Severity        string            `json:"severity"`
	MetricAffected  string            `json:"metric_affected"`
	Description     string            `json:"description"`
	Recommendations []string          `json:"recommendations"`
	MetricData      domain.MetricData `json:"metric_data"`
	CreatedAt       time.Time         `json:"created_at"`
}

func toAlertResponse(r domain.AnalysisResult) alertResponse {
	return alertResponse{
		ID:              r.ID,
		CampaignID:      r.CampaignID,
		AnalysisType:    string(r.Kind),
		DateDetected:    r.DateDetected,
		Severity:        string(r.Severity),
		MetricAffected:  r.Metric,
		Description:     r.Description,
		Recommendations: r.Recommendations,
		MetricData:      r.MetricData,
		CreatedAt:       r.CreatedAt,
	}
}

// ListAlerts returns persisted alerts, filtered and cached briefly.
// GET /api/alerts?campaign_id=&severity=&type=&limit=&offset=
func (h *Handlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := analysis.ListFilter{
		Severity: q.Get("severity"),
		Kind:     q.Get("type"),
	}
	if v := q.Get("campaign_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "campaign_id must be an integer")
			return
		}
		filter.CampaignID = &id
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filter.Offset = n
		}
	}

	key := cacheKey(filter)
	if payload, ok := h.cache.Get(r.Context(), key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(payload)
		return
	}

	results, err := h.results.List(r.Context(), filter)
	if err != nil {
		logger.Error("alert listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "listing alerts failed")
		return
	}

	alerts := make([]alertResponse, 0, len(results))
	for _, res := range results {
		alerts = append(alerts, toAlertResponse(res))
	}
	body, err := json.Marshal(map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encoding alerts failed")
		return
	}
	h.cache.Set(r.Context(), key, body)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func cacheKey(f analysis.ListFilter) string {
	id := int64(0)
	if f.CampaignID != nil {
		id = *f.CampaignID
	}
	return fmt.Sprintf("alerts:%d:%s:%s:%d:%d", id, f.Severity, f.Kind, f.Limit, f.Offset)
}

// GetAlert returns one alert by ID.
// GET /api/alerts/{id}
func (h *Handlers) GetAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.results.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, analysis.ErrNotFound) {
			writeError(w, http.StatusNotFound, "alert not found")
			return
		}
		logger.Error("alert lookup failed", "alert_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "alert lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, toAlertResponse(*res))
}

// HealthCheck reports component status.
// GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	components := map[string]string{}
	status := http.StatusOK

	if h.db == nil {
		components["database"] = "not_configured"
	} else if err := h.db.PingContext(r.Context()); err != nil {
		components["database"] = "unreachable"
		status = http.StatusServiceUnavailable
	} else {
		components["database"] = "ok"
	}

	if h.cache == nil {
		components["cache"] = "not_configured"
	} else if err := h.cache.Ping(r.Context()); err != nil {
		// Cache outage degrades reads, it does not take the service down.
		components["cache"] = "unreachable"
	} else {
		components["cache"] = "ok"
	}

	body := map[string]interface{}{
		"status":     "ok",
		"components": components,
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	writeJSON(w, status, body)
}
