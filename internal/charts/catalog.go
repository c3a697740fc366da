package charts

import (
	"errors"

	"abpulse/pkg/contracts/domain"
)

// ErrUnknownChart is returned for names missing from the catalog
var ErrUnknownChart = errors.New("unknown chart")

// Kind is the chart family
type Kind string

const (
	KindBar  Kind = "bar"
	KindLine Kind = "line"
)

// Definition describes one chart the dashboard can draw
type Definition struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Kind  Kind   `json:"kind"`
	Unit  string `json:"unit,omitempty"`

	value func(domain.Metrics) *float64
}

func total(n int64) *float64 {
	v := float64(n)
	return &v
}

func spend(m domain.Metrics) *float64 { v := m.Spend; return &v }

var catalog = []Definition{
	{Name: "views", Title: "Total Views by Platform", Kind: KindBar, value: func(m domain.Metrics) *float64 { return total(m.Impressions) }},
	{Name: "clicks", Title: "Total Clicks by Platform", Kind: KindBar, value: func(m domain.Metrics) *float64 { return total(m.Clicks) }},
	{Name: "spend", Title: "Total Spend by Platform", Kind: KindBar, Unit: "$", value: spend},
	{Name: "cpc", Title: "Cost per Click by Platform", Kind: KindBar, Unit: "$", value: func(m domain.Metrics) *float64 { return m.CPC }},
	{Name: "ctr", Title: "Click-Through Rate by Platform", Kind: KindBar, Unit: "%", value: func(m domain.Metrics) *float64 { return m.CTR }},
	{Name: "conversion_rate", Title: "Conversion Rate by Platform", Kind: KindBar, Unit: "%", value: func(m domain.Metrics) *float64 { return m.ConversionRate }},

	{Name: "daily_views", Title: "Views Over Time", Kind: KindLine, value: func(m domain.Metrics) *float64 { return total(m.Impressions) }},
	{Name: "daily_clicks", Title: "Clicks Over Time", Kind: KindLine, value: func(m domain.Metrics) *float64 { return total(m.Clicks) }},
	{Name: "daily_conversion_rate", Title: "Conversion Rate Over Time", Kind: KindLine, Unit: "%", value: func(m domain.Metrics) *float64 { return m.ConversionRate }},
	{Name: "daily_ctr", Title: "Click-Through Rate Over Time", Kind: KindLine, Unit: "%", value: func(m domain.Metrics) *float64 { return m.CTR }},
	{Name: "daily_cpc", Title: "Cost per Click Over Time", Kind: KindLine, Unit: "$", value: func(m domain.Metrics) *float64 { return m.CPC }},
	{Name: "daily_spend", Title: "Spend Over Time", Kind: KindLine, Unit: "$", value: spend},
}

// Catalog lists every chart in display order
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// Names lists the chart names of a kind, or all names when kind is empty
func Names(kind Kind) []string {
	var out []string
	for _, d := range catalog {
		if kind == "" || d.Kind == kind {
			out = append(out, d.Name)
		}
	}
	return out
}

// Lookup finds a chart by name
func Lookup(name string) (Definition, bool) {
	for _, d := range catalog {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}
