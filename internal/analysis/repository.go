package analysis

import (
	"context"
	"time"

	"github.com/brightpath/campaign-monitor/internal/domain"
	"github.com/brightpath/campaign-monitor/internal/notify"
	"github.com/brightpath/campaign-monitor/internal/recommend"
)

// CampaignStore provides the campaigns under analysis.
// Implementations must be safe for concurrent use.
type CampaignStore interface {
	// Active returns active campaigns, optionally narrowed to one ID.
	// A missing ID is not an error; the result is simply empty.
	Active(ctx context.Context, id *int64) ([]domain.Campaign, error)

	// Get returns a single campaign. Returns ErrNoCampaign if it doesn't exist.
	Get(ctx context.Context, id int64) (*domain.Campaign, error)
}

// MetricStore provides daily performance metrics.
type MetricStore interface {
	// Window returns metrics for the campaign in [from, to], newest first.
	Window(ctx context.Context, campaignID int64, from, to time.Time) ([]domain.DailyMetric, error)
}

// ResultStore persists and queries analysis results.
type ResultStore interface {
	// Create atomically inserts a result with its recommendation list.
	Create(ctx context.Context, r *domain.AnalysisResult) error

	// List returns results matching the filter, ordered by created_at DESC.
	List(ctx context.Context, f ListFilter) ([]domain.AnalysisResult, error)

	// Get returns a single result. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.AnalysisResult, error)
}

// ListFilter narrows a result listing. Zero values mean "no constraint".
type ListFilter struct {
	CampaignID *int64
	Severity   string
	Kind       string
	Limit      int
	Offset     int
}

// Enricher produces optimization recommendations for a finding. It never
// fails the caller: unavailability is reported in the Result.
type Enricher interface {
	Recommendations(ctx context.Context, c domain.Campaign, f domain.Finding) recommend.Result
}

// Publisher enqueues a notification on the durable alert queue.
type Publisher interface {
	Publish(ctx context.Context, n notify.Notification) error
}
