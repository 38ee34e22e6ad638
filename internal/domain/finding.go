package domain

import "time"

// FindingKind classifies what a detector found.
type FindingKind string

const (
	FindingCTRDrop        FindingKind = "ctr_drop"
	FindingCPCSpike       FindingKind = "cpc_spike"
	FindingSpendSpike     FindingKind = "spend_spike"
	FindingConversionDrop FindingKind = "conversion_drop"
	FindingThreshold      FindingKind = "performance_threshold"
)

// Severity ranks how serious a finding is. The order is
// low < medium < high < critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// AtLeast reports whether s is at least as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return severityRank[s] >= severityRank[other]
}

// MetricData carries the evidence behind a finding, kept for audit and fed
// verbatim into the enrichment prompt. Only the fields relevant to the
// finding's kind are populated.
type MetricData struct {
	RecentValue      float64   `json:"recent_value"`
	BaselineValue    float64   `json:"baseline_value,omitempty"`
	ChangePercent    float64   `json:"change_percent,omitempty"`
	HistoricalValues []float64 `json:"historical_values,omitempty"`

	// Spend-spike extras.
	DailyBudget       float64 `json:"daily_budget,omitempty"`
	BudgetUtilization float64 `json:"budget_utilization,omitempty"`

	// Conversion-drop extras (most recent day).
	Clicks      int64 `json:"clicks,omitempty"`
	Conversions int64 `json:"conversions,omitempty"`

	// Threshold-check extras.
	Platform      string             `json:"platform,omitempty"`
	Thresholds    map[string]float64 `json:"thresholds,omitempty"`
	CurrentValues map[string]float64 `json:"current_values,omitempty"`
}

// Finding is an in-memory detection result before persistence.
type Finding struct {
	Kind        FindingKind
	Severity    Severity
	Metric      string
	Description string
	MetricData  MetricData
}

// AnalysisResult is a persisted, user-visible alert. Immutable after
// creation; the recommendation list is written in the same transaction
// as the row itself.
type AnalysisResult struct {
	ID              string
	CampaignID      int64
	Kind            FindingKind
	DateDetected    time.Time
	Severity        Severity
	Metric          string
	Description     string
	Recommendations []string
	MetricData      MetricData
	CreatedAt       time.Time
}
