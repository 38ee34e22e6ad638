package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brightpath/campaign-monitor/internal/domain"
)

// MetricRepo implements analysis.MetricStore against PostgreSQL.
type MetricRepo struct{ db *sql.DB }

// NewMetricRepo creates a Postgres-backed metric store.
func NewMetricRepo(db *sql.DB) *MetricRepo { return &MetricRepo{db: db} }

// Window returns the campaign's daily metrics in [from, to], newest first.
// The detectors rely on that ordering.
func (r *MetricRepo) Window(ctx context.Context, campaignID int64, from, to time.Time) ([]domain.DailyMetric, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT campaign_id, date, impressions, clicks, conversions, spend_cents,
		       ctr, cpc, cpa, roas,
		       COALESCE(device_breakdown, '{}'), COALESCE(geography, '{}')
		FROM daily_metrics
		WHERE campaign_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date DESC
	`, campaignID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query metric window: %w", err)
	}
	defer rows.Close()

	var out []domain.DailyMetric
	for rows.Next() {
		var m domain.DailyMetric
		var devices, geo []byte
		if err := rows.Scan(
			&m.CampaignID, &m.Date, &m.Impressions, &m.Clicks, &m.Conversions,
			&m.SpendCents, &m.CTR, &m.CPC, &m.CPA, &m.ROAS, &devices, &geo,
		); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		if err := json.Unmarshal(devices, &m.DeviceBreakdown); err != nil {
			return nil, fmt.Errorf("decode device breakdown: %w", err)
		}
		if err := json.Unmarshal(geo, &m.Geography); err != nil {
			return nil, fmt.Errorf("decode geography: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
