package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brightpath/campaign-monitor/internal/detect"
	"github.com/brightpath/campaign-monitor/internal/domain"
	"github.com/brightpath/campaign-monitor/internal/pkg/logger"
)

// Config tunes the analysis run and its retry envelope.
type Config struct {
	DaysBack     int           // metric window size, default 7, minimum 3
	MaxAttempts  int           // retry budget for AnalyzeWithRetry, default 3
	Backoff      time.Duration // fixed delay between attempts, default 60s
	DashboardURL string        // linked from alert emails
}

// minMetricDays is the least metric history worth analyzing: one recent
// value plus two baseline days.
const minMetricDays = 3

func (c Config) withDefaults() Config {
	if c.DaysBack < 3 {
		c.DaysBack = 7
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 60 * time.Second
	}
	return c
}

// Service runs the detection pipeline over active campaigns. All public
// methods are safe for concurrent use if the stores are concurrency-safe.
type Service struct {
	campaigns CampaignStore
	metrics   MetricStore
	results   ResultStore
	enricher  Enricher
	publisher Publisher
	cfg       Config

	// sleep is swapped in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewService creates an analysis service. Enricher and publisher may be nil;
// alerts are then created without enrichment or without a queued
// notification respectively.
func NewService(campaigns CampaignStore, metrics MetricStore, results ResultStore, enricher Enricher, publisher Publisher, cfg Config) *Service {
	return &Service{
		campaigns: campaigns,
		metrics:   metrics,
		results:   results,
		enricher:  enricher,
		publisher: publisher,
		cfg:       cfg.withDefaults(),
		sleep:     sleepCtx,
	}
}

// AnalyzeRequest scopes one analysis run.
type AnalyzeRequest struct {
	CampaignID *int64 `json:"campaign_id,omitempty"`
	DaysBack   int    `json:"days_back,omitempty"`
}

// AlertDetail is one generated alert in a run summary.
type AlertDetail struct {
	Campaign    string          `json:"campaign"`
	Severity    domain.Severity `json:"severity"`
	Metric      string          `json:"metric"`
	Description string          `json:"description"`
}

// Summary reports the outcome of one analysis run.
type Summary struct {
	Status            string        `json:"status"`
	CampaignsAnalyzed int           `json:"campaigns_analyzed"`
	AlertsGenerated   int           `json:"alerts_generated"`
	AlertDetails      []AlertDetail `json:"alert_details"`
}

// Analyze runs the detectors over every active campaign (or the one
// requested) and creates alerts for medium-or-worse findings.
//
// Failure handling is two-tier: errors selecting campaigns or reading a
// metric window are infrastructure failures and abort the run; everything
// downstream of a fetched window (detectors, enrichment, persistence,
// publishing) is isolated per campaign and never fails the run.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*Summary, error) {
	daysBack := req.DaysBack
	if daysBack <= 0 {
		daysBack = s.cfg.DaysBack
	}
	if daysBack < 3 {
		return nil, fmt.Errorf("%w: days_back must be at least 3", ErrInvalidInput)
	}

	campaigns, err := s.campaigns.Active(ctx, req.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("selecting campaigns: %w", err)
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -daysBack)

	summary := &Summary{Status: "completed", AlertDetails: []AlertDetail{}}
	for _, c := range campaigns {
		window, err := s.metrics.Window(ctx, c.ID, from, now)
		if err != nil {
			return nil, fmt.Errorf("loading metrics for campaign %d: %w", c.ID, err)
		}
		summary.CampaignsAnalyzed++

		// No detector can form a baseline from fewer than 3 days.
		if len(window) < minMetricDays {
			logger.Debug("insufficient metric history, skipping campaign",
				"campaign_id", c.ID, "days", len(window))
			continue
		}

		for _, f := range s.runDetectors(window, c) {
			if !f.Severity.AtLeast(domain.SeverityMedium) {
				logger.Debug("finding below alert threshold",
					"campaign_id", c.ID, "type", f.Kind, "severity", f.Severity)
				continue
			}
			if err := s.CreateAlert(ctx, c, f, now); err != nil {
				logger.Error("alert creation failed",
					"campaign_id", c.ID, "type", f.Kind, "error", err)
				continue
			}
			summary.AlertsGenerated++
			summary.AlertDetails = append(summary.AlertDetails, AlertDetail{
				Campaign:    c.Name,
				Severity:    f.Severity,
				Metric:      f.Metric,
				Description: f.Description,
			})
		}
	}

	logger.Info("analysis run completed",
		"campaigns_analyzed", summary.CampaignsAnalyzed,
		"alerts_generated", summary.AlertsGenerated)
	return summary, nil
}

// runDetectors isolates detector panics so one campaign's bad data cannot
// take down the batch.
func (s *Service) runDetectors(window []domain.DailyMetric, c domain.Campaign) (findings []domain.Finding) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("detector panic", "campaign_id", c.ID, "panic", r)
			findings = nil
		}
	}()
	return detect.Run(window, c)
}

// AnalyzeWithRetry re-runs Analyze after infrastructure failures with a
// fixed backoff, up to the configured attempt budget. Validation failures
// are not retried.
func (s *Service) AnalyzeWithRetry(ctx context.Context, req AnalyzeRequest) (*Summary, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		summary, err := s.Analyze(ctx, req)
		if err == nil {
			return summary, nil
		}
		if errors.Is(err, ErrInvalidInput) {
			return nil, err
		}
		lastErr = err
		logger.Warn("analysis attempt failed",
			"attempt", attempt, "max_attempts", s.cfg.MaxAttempts, "error", err)

		if attempt == s.cfg.MaxAttempts {
			break
		}
		if err := s.sleep(ctx, s.cfg.Backoff); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("analysis failed after %d attempts: %w", s.cfg.MaxAttempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
