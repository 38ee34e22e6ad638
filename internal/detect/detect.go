// Package detect implements the anomaly detectors that turn a campaign's
// recent metric window into classified findings.
//
// Every detector is a pure function of a window ordered newest-first.
// A detector that cannot form a baseline (fewer than 3 usable days)
// returns nil, which callers treat as "insufficient data", not an error.
package detect

import (
	"fmt"

	"github.com/brightpath/campaign-monitor/internal/domain"
)

// minWindow is the smallest number of usable data points a detector needs:
// one recent value plus at least two baseline days.
const minWindow = 3

// Run executes all five detectors against the window and returns the
// findings that fired, in a stable order.
func Run(window []domain.DailyMetric, c domain.Campaign) []domain.Finding {
	var out []domain.Finding
	for _, f := range []*domain.Finding{
		CTRDrop(window),
		CPCSpike(window),
		SpendSpike(window, c),
		ConversionDrop(window),
		Thresholds(window, c),
	} {
		if f != nil {
			out = append(out, *f)
		}
	}
	return out
}

// CTRDrop fires when the most recent CTR falls below 60% of the mean of the
// trailing days. Severity is high when the drop exceeds 60%, else medium.
func CTRDrop(window []domain.DailyMetric) *domain.Finding {
	values := positiveValues(window, func(m domain.DailyMetric) float64 { return m.CTR })
	if len(values) < minWindow {
		return nil
	}

	recent := values[0]
	baseline := mean(values[1:])
	if recent >= baseline*0.6 {
		return nil
	}

	dropPct := (baseline - recent) / baseline * 100
	severity := domain.SeverityMedium
	if dropPct > 60 {
		severity = domain.SeverityHigh
	}

	return &domain.Finding{
		Kind:        domain.FindingCTRDrop,
		Severity:    severity,
		Metric:      "ctr",
		Description: fmt.Sprintf("CTR dropped by %.1f%% - possible ad fatigue or audience saturation", dropPct),
		MetricData: domain.MetricData{
			RecentValue:      recent,
			BaselineValue:    baseline,
			ChangePercent:    dropPct,
			HistoricalValues: values,
		},
	}
}

// CPCSpike fires when the most recent CPC exceeds 1.5x the trailing mean.
// Severity is critical when the increase exceeds 100%, else medium.
func CPCSpike(window []domain.DailyMetric) *domain.Finding {
	values := positiveValues(window, func(m domain.DailyMetric) float64 { return m.CPC })
	if len(values) < minWindow {
		return nil
	}

	recent := values[0]
	baseline := mean(values[1:])
	if recent <= baseline*1.5 {
		return nil
	}

	increasePct := (recent - baseline) / baseline * 100
	severity := domain.SeverityMedium
	if increasePct > 100 {
		severity = domain.SeverityCritical
	}

	return &domain.Finding{
		Kind:        domain.FindingCPCSpike,
		Severity:    severity,
		Metric:      "cpc",
		Description: fmt.Sprintf("CPC increased by %.1f%% - competition surge or bidding issues", increasePct),
		MetricData: domain.MetricData{
			RecentValue:      recent,
			BaselineValue:    baseline,
			ChangePercent:    increasePct,
			HistoricalValues: values,
		},
	}
}

// SpendSpike fires when the most recent day's spend exceeds either 2x the
// trailing mean or 1.5x the campaign's approximate daily budget.
func SpendSpike(window []domain.DailyMetric, c domain.Campaign) *domain.Finding {
	values := positiveValues(window, func(m domain.DailyMetric) float64 { return m.Spend() })
	if len(values) < minWindow {
		return nil
	}

	recent := values[0]
	baseline := mean(values[1:])
	dailyBudget := c.DailyBudget()
	if recent <= baseline*2 && recent <= dailyBudget*1.5 {
		return nil
	}

	md := domain.MetricData{
		RecentValue:      recent,
		BaselineValue:    baseline,
		DailyBudget:      dailyBudget,
		HistoricalValues: values,
	}
	if dailyBudget > 0 {
		md.BudgetUtilization = recent / dailyBudget * 100
	}

	return &domain.Finding{
		Kind:        domain.FindingSpendSpike,
		Severity:    domain.SeverityHigh,
		Metric:      "spend",
		Description: fmt.Sprintf("Daily spend of $%.2f is unusually high (baseline: $%.2f)", recent, baseline),
		MetricData:  md,
	}
}

// ConversionDrop fires when the most recent conversion rate falls below half
// the trailing mean. Days without clicks are excluded, and a baseline at or
// below 1% is ignored to keep noise on tiny rates from paging anyone.
func ConversionDrop(window []domain.DailyMetric) *domain.Finding {
	var rates []float64
	for _, m := range window {
		if rate, ok := m.ConversionRate(); ok {
			rates = append(rates, rate)
		}
	}
	if len(rates) < minWindow {
		return nil
	}

	recent := rates[0]
	baseline := mean(rates[1:])
	if recent >= baseline*0.5 || baseline <= 1 {
		return nil
	}

	dropPct := (baseline - recent) / baseline * 100

	return &domain.Finding{
		Kind:        domain.FindingConversionDrop,
		Severity:    domain.SeverityCritical,
		Metric:      "conversion_rate",
		Description: fmt.Sprintf("Conversion rate dropped by %.1f%% - landing page or tracking issues suspected", dropPct),
		MetricData: domain.MetricData{
			RecentValue:      recent,
			BaselineValue:    baseline,
			ChangePercent:    dropPct,
			HistoricalValues: rates,
			Clicks:           window[0].Clicks,
			Conversions:      window[0].Conversions,
		},
	}
}

// positiveValues extracts a metric from the window keeping only positive
// values, preserving the newest-first order.
func positiveValues(window []domain.DailyMetric, get func(domain.DailyMetric) float64) []float64 {
	out := make([]float64, 0, len(window))
	for _, m := range window {
		if v := get(m); v > 0 {
			out = append(out, v)
		}
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
