package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brightpath/campaign-monitor/internal/domain"
	"github.com/brightpath/campaign-monitor/internal/notify"
	"github.com/brightpath/campaign-monitor/internal/pkg/logger"
)

// builtinRecommendations are always attached to an alert, ahead of any
// enriched ones, so owners get actionable advice even when the
// recommendation service is down.
var builtinRecommendations = map[domain.FindingKind][]string{
	domain.FindingCTRDrop: {
		"Refresh ad creative to combat ad fatigue",
		"Review audience targeting for saturation",
	},
	domain.FindingCPCSpike: {
		"Review bidding strategy and keyword competition",
		"Pause underperforming placements",
	},
	domain.FindingSpendSpike: {
		"Verify budget pacing settings",
		"Check for unintended audience expansion",
	},
	domain.FindingConversionDrop: {
		"Check landing page health and load time",
		"Verify conversion tracking is firing",
	},
	domain.FindingThreshold: {
		"Compare settings against platform benchmarks",
	},
}

var issueLabels = map[domain.FindingKind]string{
	domain.FindingCTRDrop:        "CTR Drop",
	domain.FindingCPCSpike:       "CPC Spike",
	domain.FindingSpendSpike:     "Spend Spike",
	domain.FindingConversionDrop: "Conversion Drop",
	domain.FindingThreshold:      "Performance Threshold",
}

// CreateAlert persists a finding as an alert and notifies the campaign
// owner. The result row commits atomically with its recommendations; the
// notification publish happens after the commit and its failure is logged,
// never rolled back, so an alert may exist with no email on the queue.
func (s *Service) CreateAlert(ctx context.Context, c domain.Campaign, f domain.Finding, date time.Time) error {
	recs := append([]string{}, builtinRecommendations[f.Kind]...)
	if s.enricher != nil {
		enriched := s.enricher.Recommendations(ctx, c, f)
		if enriched.Unavailable {
			logger.Warn("recommendation service unavailable, using built-in advice",
				"campaign_id", c.ID, "type", f.Kind)
		}
		recs = append(recs, enriched.Recommendations...)
	}

	result := &domain.AnalysisResult{
		ID:              uuid.New().String(),
		CampaignID:      c.ID,
		Kind:            f.Kind,
		DateDetected:    date,
		Severity:        f.Severity,
		Metric:          f.Metric,
		Description:     f.Description,
		Recommendations: recs,
		MetricData:      f.MetricData,
	}
	if err := s.results.Create(ctx, result); err != nil {
		return fmt.Errorf("persisting alert: %w", err)
	}
	logger.Info("alert created",
		"alert_id", result.ID, "campaign_id", c.ID,
		"type", f.Kind, "severity", f.Severity)

	if s.publisher == nil || c.OwnerEmail == "" {
		return nil
	}
	n := s.buildNotification(c, result)
	if err := s.publisher.Publish(ctx, n); err != nil {
		logger.Error("notification publish failed, alert persisted without delivery",
			"alert_id", result.ID, "campaign_id", c.ID, "error", err)
	}
	return nil
}

func (s *Service) buildNotification(c domain.Campaign, r *domain.AnalysisResult) notify.Notification {
	label := issueLabels[r.Kind]
	if label == "" {
		label = string(r.Kind)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Campaign: %s\n", c.Name)
	fmt.Fprintf(&b, "Platform: %s\n", c.Platform)
	fmt.Fprintf(&b, "Issue Type: %s\n", label)
	fmt.Fprintf(&b, "Metric: %s\n", r.Metric)
	fmt.Fprintf(&b, "Severity: %s\n\n", strings.ToUpper(string(r.Severity)))
	fmt.Fprintf(&b, "%s\n\n", r.Description)
	if len(r.Recommendations) > 0 {
		b.WriteString("Recommended actions:\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
		b.WriteString("\n")
	}
	if s.cfg.DashboardURL != "" {
		fmt.Fprintf(&b, "View details: %s/campaigns/%d\n", s.cfg.DashboardURL, c.ID)
	}

	return notify.Notification{
		ToEmail: c.OwnerEmail,
		Subject: fmt.Sprintf("Campaign Alert: %s - %s", strings.ToUpper(string(r.Severity)), c.Name),
		Body:    b.String(),
	}
}
