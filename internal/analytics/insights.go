package analytics

import (
	"fmt"

	"abpulse/pkg/contracts/domain"
)

type comparedMetric struct {
	key       string
	label     string
	direction domain.Direction
	value     func(domain.Metrics) *float64
	format    func(*float64) string
}

func count(n int64) *float64 {
	v := float64(n)
	return &v
}

var comparedMetrics = []comparedMetric{
	{"views", "Views", domain.HigherBetter, func(m domain.Metrics) *float64 { return count(m.Impressions) }, FormatOptionalCount},
	{"clicks", "Clicks", domain.HigherBetter, func(m domain.Metrics) *float64 { return count(m.Clicks) }, FormatOptionalCount},
	{"conversions", "Conversions", domain.HigherBetter, func(m domain.Metrics) *float64 { return count(m.Conversions) }, FormatOptionalCount},
	{"ctr", "CTR", domain.HigherBetter, func(m domain.Metrics) *float64 { return m.CTR }, FormatPercent},
	{"conversion_rate", "Conv Rate", domain.HigherBetter, func(m domain.Metrics) *float64 { return m.ConversionRate }, FormatPercent},
	{"cpc", "CPC", domain.LowerBetter, func(m domain.Metrics) *float64 { return m.CPC }, FormatCurrency},
}

// Compare builds the Facebook vs AdWords insight block for a summary.
// A platform absent from the summary compares as undefined.
func Compare(s domain.Summary) domain.Insights {
	fb, fbOK := s.Platform(domain.PlatformFacebook)
	aw, awOK := s.Platform(domain.PlatformAdWords)

	insights := domain.Insights{Comparisons: make([]domain.Comparison, 0, len(comparedMetrics))}
	for _, cm := range comparedMetrics {
		var fv, av *float64
		if fbOK {
			fv = cm.value(fb.Metrics)
		}
		if awOK {
			av = cm.value(aw.Metrics)
		}
		insights.Comparisons = append(insights.Comparisons, domain.Comparison{
			Metric:       cm.key,
			Label:        cm.label,
			Direction:    cm.direction,
			Facebook:     fv,
			AdWords:      av,
			FacebookText: cm.format(fv),
			AdWordsText:  cm.format(av),
			Winner:       winner(fv, av, cm.direction),
		})
	}

	var fbRate, awRate *float64
	if fbOK {
		fbRate = fb.ConversionRate
	}
	if awOK {
		awRate = aw.ConversionRate
	}
	insights.BestPlatform = winner(fbRate, awRate, domain.HigherBetter)
	if insights.BestPlatform != nil {
		insights.Message = fmt.Sprintf("Overall, %s is performing better in conversions.", *insights.BestPlatform)
	} else {
		insights.Message = "Neither platform leads on conversion rate for the selected filters."
	}
	return insights
}

func winner(fb, aw *float64, dir domain.Direction) *domain.Platform {
	if fb == nil || aw == nil || *fb == *aw {
		return nil
	}
	p := domain.PlatformAdWords
	if (dir == domain.HigherBetter) == (*fb > *aw) {
		p = domain.PlatformFacebook
	}
	return &p
}
