package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/campaign-monitor/internal/domain"
	"github.com/brightpath/campaign-monitor/internal/notify"
	"github.com/brightpath/campaign-monitor/internal/recommend"
)

// In-memory stores for service tests.

type memCampaigns struct {
	campaigns []domain.Campaign
	err       error
	failures  int // fail this many Active calls before succeeding
	calls     int
}

func (m *memCampaigns) Active(ctx context.Context, id *int64) ([]domain.Campaign, error) {
	m.calls++
	if m.failures > 0 {
		m.failures--
		return nil, errors.New("db connection reset")
	}
	if m.err != nil {
		return nil, m.err
	}
	if id == nil {
		return m.campaigns, nil
	}
	var out []domain.Campaign
	for _, c := range m.campaigns {
		if c.ID == *id {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCampaigns) Get(ctx context.Context, id int64) (*domain.Campaign, error) {
	for _, c := range m.campaigns {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, ErrNoCampaign
}

type memMetrics struct {
	windows map[int64][]domain.DailyMetric
	err     error
}

func (m *memMetrics) Window(ctx context.Context, campaignID int64, from, to time.Time) ([]domain.DailyMetric, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.windows[campaignID], nil
}

type memResults struct {
	mu      sync.Mutex
	created []*domain.AnalysisResult
	err     error
}

func (m *memResults) Create(ctx context.Context, r *domain.AnalysisResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, r)
	return nil
}

func (m *memResults) List(ctx context.Context, f ListFilter) ([]domain.AnalysisResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AnalysisResult, 0, len(m.created))
	for _, r := range m.created {
		out = append(out, *r)
	}
	return out, nil
}

func (m *memResults) Get(ctx context.Context, id string) (*domain.AnalysisResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.created {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, ErrNotFound
}

type fakeEnricher struct {
	result recommend.Result
	calls  int
}

func (f *fakeEnricher) Recommendations(ctx context.Context, c domain.Campaign, fd domain.Finding) recommend.Result {
	f.calls++
	return f.result
}

type fakePublisher struct {
	published []notify.Notification
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, n notify.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, n)
	return nil
}

// ctrWindow builds a newest-first metric window from CTR values.
func ctrWindow(values ...float64) []domain.DailyMetric {
	window := make([]domain.DailyMetric, len(values))
	for i, v := range values {
		window[i] = domain.DailyMetric{CTR: v, Clicks: 100, Impressions: 10000}
	}
	return window
}

func healthyCampaign() domain.Campaign {
	return domain.Campaign{
		ID:          1,
		Name:        "Summer Sale",
		Platform:    domain.PlatformFacebook,
		BudgetCents: 300000,
		Status:      domain.CampaignActive,
		OwnerEmail:  "owner@example.com",
	}
}

func newTestService(campaigns *memCampaigns, metrics *memMetrics, results *memResults, enricher Enricher, pub Publisher) *Service {
	s := NewService(campaigns, metrics, results, enricher, pub, Config{
		DaysBack:     7,
		MaxAttempts:  3,
		Backoff:      time.Minute,
		DashboardURL: "https://dashboard.brightpath.io",
	})
	s.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return s
}

func TestAnalyzeGeneratesAlert(t *testing.T) {
	campaigns := &memCampaigns{campaigns: []domain.Campaign{healthyCampaign()}}
	// Recent CTR collapsed from a stable 10 to 2: an 80% drop.
	metrics := &memMetrics{windows: map[int64][]domain.DailyMetric{
		1: ctrWindow(2, 10, 10, 10),
	}}
	results := &memResults{}
	pub := &fakePublisher{}

	s := newTestService(campaigns, metrics, results, nil, pub)
	summary, err := s.Analyze(context.Background(), AnalyzeRequest{})
	require.NoError(t, err)

	assert.Equal(t, "completed", summary.Status)
	assert.Equal(t, 1, summary.CampaignsAnalyzed)
	assert.Equal(t, 1, summary.AlertsGenerated)
	require.Len(t, summary.AlertDetails, 1)
	assert.Equal(t, "Summer Sale", summary.AlertDetails[0].Campaign)
	assert.Equal(t, domain.SeverityHigh, summary.AlertDetails[0].Severity)

	require.Len(t, results.created, 1)
	created := results.created[0]
	assert.Equal(t, domain.FindingCTRDrop, created.Kind)
	assert.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.Recommendations)

	require.Len(t, pub.published, 1)
	assert.Equal(t, "owner@example.com", pub.published[0].ToEmail)
	assert.Equal(t, "Campaign Alert: HIGH - Summer Sale", pub.published[0].Subject)
}

func TestAnalyzeQuietCampaign(t *testing.T) {
	campaigns := &memCampaigns{campaigns: []domain.Campaign{healthyCampaign()}}
	metrics := &memMetrics{windows: map[int64][]domain.DailyMetric{
		1: ctrWindow(10, 10, 10, 10),
	}}
	results := &memResults{}

	s := newTestService(campaigns, metrics, results, nil, nil)
	summary, err := s.Analyze(context.Background(), AnalyzeRequest{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.CampaignsAnalyzed)
	assert.Equal(t, 0, summary.AlertsGenerated)
	assert.Empty(t, results.created)
}

func TestAnalyzeSkipsCampaignWithShortHistory(t *testing.T) {
	c := healthyCampaign()
	c.Platform = domain.PlatformGoogle
	campaigns := &memCampaigns{campaigns: []domain.Campaign{c}}
	// A single day breaching every Google threshold. Without history there
	// is no baseline, so even the threshold check must not fire.
	metrics := &memMetrics{windows: map[int64][]domain.DailyMetric{
		1: {{CTR: 0.5, CPA: 90, ROAS: 0.1, Clicks: 10, Impressions: 2000}},
	}}
	results := &memResults{}

	s := newTestService(campaigns, metrics, results, nil, nil)
	summary, err := s.Analyze(context.Background(), AnalyzeRequest{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.CampaignsAnalyzed, "skipped campaigns still count as analyzed")
	assert.Equal(t, 0, summary.AlertsGenerated)
	assert.Empty(t, results.created)
}

func TestAnalyzeScopedToCampaign(t *testing.T) {
	other := healthyCampaign()
	other.ID = 2
	other.Name = "Q3 Launch"
	campaigns := &memCampaigns{campaigns: []domain.Campaign{healthyCampaign(), other}}
	metrics := &memMetrics{windows: map[int64][]domain.DailyMetric{
		1: ctrWindow(2, 10, 10, 10),
		2: ctrWindow(2, 10, 10, 10),
	}}
	results := &memResults{}

	s := newTestService(campaigns, metrics, results, nil, nil)
	id := int64(2)
	summary, err := s.Analyze(context.Background(), AnalyzeRequest{CampaignID: &id})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.CampaignsAnalyzed)
	require.Len(t, results.created, 1)
	assert.Equal(t, int64(2), results.created[0].CampaignID)
}

func TestAnalyzeInsufficientWindow(t *testing.T) {
	s := newTestService(&memCampaigns{}, &memMetrics{}, &memResults{}, nil, nil)
	_, err := s.Analyze(context.Background(), AnalyzeRequest{DaysBack: 2})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAnalyzeCampaignSelectionFailureAborts(t *testing.T) {
	campaigns := &memCampaigns{err: errors.New("db down")}
	s := newTestService(campaigns, &memMetrics{}, &memResults{}, nil, nil)

	_, err := s.Analyze(context.Background(), AnalyzeRequest{})
	assert.Error(t, err)
}

func TestAnalyzeMetricFailureAborts(t *testing.T) {
	campaigns := &memCampaigns{campaigns: []domain.Campaign{healthyCampaign()}}
	metrics := &memMetrics{err: errors.New("db down")}
	s := newTestService(campaigns, metrics, &memResults{}, nil, nil)

	_, err := s.Analyze(context.Background(), AnalyzeRequest{})
	assert.Error(t, err)
}

func TestAnalyzePersistenceFailureIsolated(t *testing.T) {
	healthy := healthyCampaign()
	second := healthyCampaign()
	second.ID = 2
	second.Name = "Q3 Launch"
	campaigns := &memCampaigns{campaigns: []domain.Campaign{healthy, second}}
	metrics := &memMetrics{windows: map[int64][]domain.DailyMetric{
		1: ctrWindow(2, 10, 10, 10),
		2: ctrWindow(2, 10, 10, 10),
	}}
	results := &memResults{err: errors.New("insert failed")}

	s := newTestService(campaigns, metrics, results, nil, nil)
	summary, err := s.Analyze(context.Background(), AnalyzeRequest{})
	require.NoError(t, err, "persistence failures must not abort the run")

	assert.Equal(t, 2, summary.CampaignsAnalyzed)
	assert.Equal(t, 0, summary.AlertsGenerated)
}

func TestAnalyzeWithRetryRecovers(t *testing.T) {
	campaigns := &memCampaigns{
		campaigns: []domain.Campaign{healthyCampaign()},
		failures:  2,
	}
	metrics := &memMetrics{windows: map[int64][]domain.DailyMetric{
		1: ctrWindow(10, 10, 10, 10),
	}}

	var slept int
	s := newTestService(campaigns, metrics, &memResults{}, nil, nil)
	s.sleep = func(ctx context.Context, d time.Duration) error {
		slept++
		assert.Equal(t, time.Minute, d)
		return nil
	}

	summary, err := s.AnalyzeWithRetry(context.Background(), AnalyzeRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.CampaignsAnalyzed)
	assert.Equal(t, 3, campaigns.calls)
	assert.Equal(t, 2, slept)
}

func TestAnalyzeWithRetryExhausts(t *testing.T) {
	campaigns := &memCampaigns{failures: 10}
	s := newTestService(campaigns, &memMetrics{}, &memResults{}, nil, nil)

	_, err := s.AnalyzeWithRetry(context.Background(), AnalyzeRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, campaigns.calls)
}

func TestAnalyzeWithRetrySkipsValidationErrors(t *testing.T) {
	campaigns := &memCampaigns{}
	s := newTestService(campaigns, &memMetrics{}, &memResults{}, nil, nil)

	_, err := s.AnalyzeWithRetry(context.Background(), AnalyzeRequest{DaysBack: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 0, campaigns.calls, "invalid input must not be retried")
}
