package exporter

import (
	"abpulse/internal/analytics"
	"abpulse/pkg/contracts/domain"
)

// Table is one exportable grid. Cells keeps typed values for spreadsheets;
// Rows is the same grid as text for CSV.
type Table struct {
	Name    string
	Headers []string
	Cells   [][]interface{}
	Rows    [][]string
}

func (t *Table) add(cells []interface{}, row []string) {
	t.Cells = append(t.Cells, cells)
	t.Rows = append(t.Rows, row)
}

var metricHeaders = []string{
	"records", "spend", "impressions", "clicks", "conversions",
	"avg_spend", "avg_impressions", "avg_clicks", "avg_conversions",
	"cpc", "ctr_percent", "conversion_rate_percent", "cost_per_conversion",
}

func metricCells(m domain.Metrics) []interface{} {
	return []interface{}{
		m.Records, m.Spend, m.Impressions, m.Clicks, m.Conversions,
		cellOptional(m.AvgSpend), cellOptional(m.AvgImpressions),
		cellOptional(m.AvgClicks), cellOptional(m.AvgConversions),
		cellOptional(m.CPC), cellOptional(m.CTR),
		cellOptional(m.ConversionRate), cellOptional(m.CostPerConversion),
	}
}

func metricRow(m domain.Metrics) []string {
	return []string{
		formatInt(int64(m.Records)), formatFloat(m.Spend),
		formatInt(m.Impressions), formatInt(m.Clicks), formatInt(m.Conversions),
		formatOptional(m.AvgSpend), formatOptional(m.AvgImpressions),
		formatOptional(m.AvgClicks), formatOptional(m.AvgConversions),
		formatOptional(m.CPC), formatOptional(m.CTR),
		formatOptional(m.ConversionRate), formatOptional(m.CostPerConversion),
	}
}

// SummaryTable has one row per platform present plus a Total row
func SummaryTable(s domain.Summary) Table {
	t := Table{Name: "Summary", Headers: append([]string{"platform"}, metricHeaders...)}
	for _, p := range s.Platforms {
		t.add(append([]interface{}{string(p.Platform)}, metricCells(p.Metrics)...),
			append([]string{string(p.Platform)}, metricRow(p.Metrics)...))
	}
	t.add(append([]interface{}{"Total"}, metricCells(s.Total)...),
		append([]string{"Total"}, metricRow(s.Total)...))
	return t
}

// SeriesTable has one row per bucket and platform
func SeriesTable(s domain.Series) Table {
	t := Table{Name: "TimeSeries", Headers: append([]string{"bucket_start", "platform"}, metricHeaders...)}
	for _, pt := range s.Points {
		start := pt.Start.Format(analytics.DateLayout)
		t.add(append([]interface{}{start, string(pt.Platform)}, metricCells(pt.Metrics)...),
			append([]string{start, string(pt.Platform)}, metricRow(pt.Metrics)...))
	}
	return t
}

// RecordsTable lists records in the long layout the loader accepts
func RecordsTable(records []domain.CampaignRecord) Table {
	t := Table{Name: "Records", Headers: []string{"date", "platform", "spend", "impressions", "clicks", "conversions"}}
	for _, r := range records {
		d := r.Date.Format(analytics.DateLayout)
		t.add(
			[]interface{}{d, string(r.Platform), r.Spend, r.Impressions, r.Clicks, r.Conversions},
			[]string{d, string(r.Platform), formatFloat(r.Spend), formatInt(r.Impressions), formatInt(r.Clicks), formatInt(r.Conversions)},
		)
	}
	return t
}

// InsightsTable lists the head-to-head comparisons and the overall verdict
func InsightsTable(in domain.Insights) Table {
	t := Table{Name: "Insights", Headers: []string{"metric", "label", "facebook", "adwords", "winner"}}
	for _, c := range in.Comparisons {
		winner := ""
		if c.Winner != nil {
			winner = string(*c.Winner)
		}
		t.add(
			[]interface{}{c.Metric, c.Label, c.FacebookText, c.AdWordsText, winner},
			[]string{c.Metric, c.Label, c.FacebookText, c.AdWordsText, winner},
		)
	}
	t.add([]interface{}{"verdict", in.Message}, []string{"verdict", in.Message, "", "", ""})
	return t
}
