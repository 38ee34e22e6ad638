package detect

import (
	"fmt"
	"strings"

	"github.com/brightpath/campaign-monitor/internal/domain"
)

// PlatformThresholds holds the minimum acceptable performance for a platform.
type PlatformThresholds struct {
	MinCTR  float64
	MaxCPA  float64
	MinROAS float64
}

// platformThresholds is the fixed per-platform table. Unknown platforms fall
// back to the Facebook row.
var platformThresholds = map[domain.Platform]PlatformThresholds{
	domain.PlatformFacebook:  {MinCTR: 1.0, MaxCPA: 50, MinROAS: 2.0},
	domain.PlatformGoogle:    {MinCTR: 2.0, MaxCPA: 40, MinROAS: 3.0},
	domain.PlatformInstagram: {MinCTR: 1.2, MaxCPA: 45, MinROAS: 2.5},
	domain.PlatformLinkedIn:  {MinCTR: 0.8, MaxCPA: 100, MinROAS: 2.0},
	domain.PlatformYouTube:   {MinCTR: 3.0, MaxCPA: 30, MinROAS: 2.5},
}

// ThresholdsFor returns the threshold row for a platform, defaulting to
// Facebook's for platforms not in the table.
func ThresholdsFor(p domain.Platform) PlatformThresholds {
	if t, ok := platformThresholds[p]; ok {
		return t
	}
	return platformThresholds[domain.PlatformFacebook]
}

// Thresholds compares only the most recent day's ctr/cpa/roas against the
// campaign platform's minima/maxima. Every breach is collected into one
// combined finding of medium severity.
func Thresholds(window []domain.DailyMetric, c domain.Campaign) *domain.Finding {
	if len(window) == 0 {
		return nil
	}

	latest := window[0]
	t := ThresholdsFor(c.Platform)

	var issues []string
	if latest.CTR < t.MinCTR {
		issues = append(issues, fmt.Sprintf("CTR (%g%%) below threshold (%g%%)", latest.CTR, t.MinCTR))
	}
	if latest.CPA > t.MaxCPA {
		issues = append(issues, fmt.Sprintf("CPA ($%g) above threshold ($%g)", latest.CPA, t.MaxCPA))
	}
	if latest.ROAS < t.MinROAS {
		issues = append(issues, fmt.Sprintf("ROAS (%g) below threshold (%g)", latest.ROAS, t.MinROAS))
	}
	if len(issues) == 0 {
		return nil
	}

	return &domain.Finding{
		Kind:        domain.FindingThreshold,
		Severity:    domain.SeverityMedium,
		Metric:      "multiple",
		Description: "Performance below thresholds: " + strings.Join(issues, "; "),
		MetricData: domain.MetricData{
			Platform: string(c.Platform),
			Thresholds: map[string]float64{
				"min_ctr":  t.MinCTR,
				"max_cpa":  t.MaxCPA,
				"min_roas": t.MinROAS,
			},
			CurrentValues: map[string]float64{
				"ctr":  latest.CTR,
				"cpa":  latest.CPA,
				"roas": latest.ROAS,
			},
		},
	}
}
