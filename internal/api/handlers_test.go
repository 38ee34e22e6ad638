package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/campaign-monitor/internal/analysis"
	"github.com/brightpath/campaign-monitor/internal/domain"
)

type fakeAnalyzer struct {
	summary *analysis.Summary
	err     error
	lastReq analysis.AnalyzeRequest
}

func (f *fakeAnalyzer) AnalyzeWithRetry(ctx context.Context, req analysis.AnalyzeRequest) (*analysis.Summary, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.summary, nil
}

type stubResults struct {
	results    []domain.AnalysisResult
	err        error
	listCalls  int
	lastFilter analysis.ListFilter
}

func (s *stubResults) Create(ctx context.Context, r *domain.AnalysisResult) error { return nil }

func (s *stubResults) List(ctx context.Context, f analysis.ListFilter) ([]domain.AnalysisResult, error) {
	s.listCalls++
	s.lastFilter = f
	return s.results, s.err
}

func (s *stubResults) Get(ctx context.Context, id string) (*domain.AnalysisResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, r := range s.results {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, analysis.ErrNotFound
}

func sampleAlert() domain.AnalysisResult {
	return domain.AnalysisResult{
		ID:              "a-1",
		CampaignID:      1,
		Kind:            domain.FindingCTRDrop,
		DateDetected:    time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		Severity:        domain.SeverityHigh,
		Metric:          "ctr",
		Description:     "CTR dropped by 80.0% - possible ad fatigue or audience saturation",
		Recommendations: []string{"Refresh ad creative to combat ad fatigue"},
		CreatedAt:       time.Date(2026, 8, 30, 1, 0, 0, 0, time.UTC),
	}
}

func newTestRouter(analyzer Analyzer, results analysis.ResultStore, cache *AlertCache) http.Handler {
	return NewRouter(NewHandlers(analyzer, results, cache, nil), "")
}

func TestRunAnalysis(t *testing.T) {
	fa := &fakeAnalyzer{summary: &analysis.Summary{
		Status:            "completed",
		CampaignsAnalyzed: 3,
		AlertsGenerated:   1,
		AlertDetails:      []analysis.AlertDetail{{Campaign: "Summer Sale", Severity: domain.SeverityHigh, Metric: "ctr"}},
	}}
	router := newTestRouter(fa, &stubResults{}, nil)

	body := bytes.NewBufferString(`{"campaign_id": 7, "days_back": 5}`)
	req := httptest.NewRequest(http.MethodPost, "/api/analysis/run", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, fa.lastReq.CampaignID)
	assert.Equal(t, int64(7), *fa.lastReq.CampaignID)
	assert.Equal(t, 5, fa.lastReq.DaysBack)

	var got analysis.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.CampaignsAnalyzed)
	assert.Equal(t, 1, got.AlertsGenerated)
}

func TestRunAnalysisEmptyBody(t *testing.T) {
	fa := &fakeAnalyzer{summary: &analysis.Summary{Status: "completed"}}
	router := newTestRouter(fa, &stubResults{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/analysis/run", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, fa.lastReq.CampaignID)
}

func TestRunAnalysisInvalidInput(t *testing.T) {
	fa := &fakeAnalyzer{err: fmt.Errorf("%w: days_back must be at least 3", analysis.ErrInvalidInput)}
	router := newTestRouter(fa, &stubResults{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/analysis/run", bytes.NewBufferString(`{"days_back": 1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunAnalysisFailure(t *testing.T) {
	fa := &fakeAnalyzer{err: errors.New("analysis failed after 3 attempts: db down")}
	router := newTestRouter(fa, &stubResults{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/analysis/run", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListAlerts(t *testing.T) {
	store := &stubResults{results: []domain.AnalysisResult{sampleAlert()}}
	router := newTestRouter(&fakeAnalyzer{}, store, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/alerts?campaign_id=1&severity=high&type=ctr_drop&limit=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, store.lastFilter.CampaignID)
	assert.Equal(t, int64(1), *store.lastFilter.CampaignID)
	assert.Equal(t, "high", store.lastFilter.Severity)
	assert.Equal(t, "ctr_drop", store.lastFilter.Kind)
	assert.Equal(t, 10, store.lastFilter.Limit)

	var got struct {
		Alerts []alertResponse `json:"alerts"`
		Count  int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Count)
	require.Len(t, got.Alerts, 1)
	assert.Equal(t, "ctr_drop", got.Alerts[0].AnalysisType)
	assert.Equal(t, "high", got.Alerts[0].Severity)
}

func TestListAlertsBadCampaignID(t *testing.T) {
	router := newTestRouter(&fakeAnalyzer{}, &stubResults{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/alerts?campaign_id=abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAlert(t *testing.T) {
	store := &stubResults{results: []domain.AnalysisResult{sampleAlert()}}
	router := newTestRouter(&fakeAnalyzer{}, store, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/alerts/a-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got alertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "a-1", got.ID)
	assert.Equal(t, []string{"Refresh ad creative to combat ad fatigue"}, got.Recommendations)
}

func TestGetAlertNotFound(t *testing.T) {
	router := newTestRouter(&fakeAnalyzer{}, &stubResults{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/alerts/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthCheckUnconfigured(t *testing.T) {
	router := newTestRouter(&fakeAnalyzer{}, &stubResults{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, "not_configured", got.Components["database"])
	assert.Equal(t, "not_configured", got.Components["cache"])
}

func TestListAlertsCached(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := &AlertCache{
		client: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		ttl:    30 * time.Second,
	}
	store := &stubResults{results: []domain.AnalysisResult{sampleAlert()}}
	router := newTestRouter(&fakeAnalyzer{}, store, cache)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/alerts?severity=high", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 1, store.listCalls, "second request must be served from cache")
}

func TestListAlertsCacheDownDegrades(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := &AlertCache{
		client: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		ttl:    30 * time.Second,
	}
	mr.Close()

	store := &stubResults{results: []domain.AnalysisResult{sampleAlert()}}
	router := newTestRouter(&fakeAnalyzer{}, store, cache)

	req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, store.listCalls, "cache outage degrades to a direct read")
}
