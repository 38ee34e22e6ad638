package domain

import "time"

// DailyMetric is one day of performance data for a campaign.
// Rows are immutable once written and unique per (campaign, date).
// Spend is stored in integer cents; the rate columns are derived by the
// ingestion pipeline and read back as-is.
type DailyMetric struct {
	ID          int64
	CampaignID  int64
	Date        time.Time
	Impressions int64
	Clicks      int64
	Conversions int64
	SpendCents  int64
	CTR         float64 // clicks / impressions * 100
	CPC         float64 // spend / clicks
	CPA         float64 // spend / conversions
	ROAS        float64 // revenue / spend

	// Opaque breakdown maps, carried through from ingestion (JSONB).
	DeviceBreakdown map[string]int64
	Geography       map[string]int64
}

// Spend returns the day's spend in dollars.
func (m DailyMetric) Spend() float64 {
	return float64(m.SpendCents) / 100
}

// ConversionRate returns conversions/clicks as a percentage, and false
// when the day had no clicks.
func (m DailyMetric) ConversionRate() (float64, bool) {
	if m.Clicks == 0 {
		return 0, false
	}
	return float64(m.Conversions) / float64(m.Clicks) * 100, true
}
