package analytics

import (
	"abpulse/pkg/contracts/domain"
)

// accumulator sums the additive columns of a group
type accumulator struct {
	records     int
	spend       float64
	impressions int64
	clicks      int64
	conversions int64
}

func (a *accumulator) add(r domain.CampaignRecord) {
	a.records++
	a.spend += r.Spend
	a.impressions += r.Impressions
	a.clicks += r.Clicks
	a.conversions += r.Conversions
}

func (a *accumulator) merge(b accumulator) {
	a.records += b.records
	a.spend += b.spend
	a.impressions += b.impressions
	a.clicks += b.clicks
	a.conversions += b.conversions
}

func (a accumulator) metrics() domain.Metrics {
	n := float64(a.records)
	return domain.Metrics{
		Records:     a.records,
		Spend:       a.spend,
		Impressions: a.impressions,
		Clicks:      a.clicks,
		Conversions: a.conversions,

		AvgSpend:       Ratio(a.spend, n),
		AvgImpressions: Ratio(float64(a.impressions), n),
		AvgClicks:      Ratio(float64(a.clicks), n),
		AvgConversions: Ratio(float64(a.conversions), n),

		CPC:               Ratio(a.spend, float64(a.clicks)),
		CTR:               Percent(float64(a.clicks), float64(a.impressions)),
		ConversionRate:    Percent(float64(a.conversions), float64(a.clicks)),
		CostPerConversion: Ratio(a.spend, float64(a.conversions)),
	}
}

// Summarize aggregates the records matching f by platform.
// Total is the merge of the platform groups, so an All summary equals the
// sum of the per-platform summaries exactly. An empty selection yields an
// empty summary rather than an error.
func Summarize(records []domain.CampaignRecord, f domain.Filter) domain.Summary {
	f = Normalize(f)

	groups := make(map[domain.Platform]*accumulator, len(domain.Platforms))
	for _, r := range records {
		if !Match(r, f) {
			continue
		}
		acc, ok := groups[r.Platform]
		if !ok {
			acc = &accumulator{}
			groups[r.Platform] = acc
		}
		acc.add(r)
	}

	summary := domain.Summary{
		Filter:    f,
		Platforms: make([]domain.PlatformSummary, 0, len(groups)),
	}

	var total accumulator
	for _, p := range domain.Platforms {
		acc, ok := groups[p]
		if !ok {
			continue
		}
		total.merge(*acc)
		summary.Platforms = append(summary.Platforms, domain.PlatformSummary{
			Platform: p,
			Metrics:  acc.metrics(),
		})
	}

	summary.Total = total.metrics()
	summary.Empty = total.records == 0
	return summary
}
