package charts

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"abpulse/internal/analytics"
	"abpulse/pkg/contracts/domain"
)

// Missing is the ECharts placeholder for an absent data point. Lines
// break at it instead of dropping to zero.
const Missing = "-"

// DefaultAssetsHost serves the ECharts script referenced by rendered pages
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// Builder turns summaries and series into go-echarts charts
type Builder struct {
	assetsHost string
	width      string
	height     string
}

// Option configures a Builder
type Option func(*Builder)

// WithAssetsHost overrides where the ECharts script is loaded from
func WithAssetsHost(host string) Option {
	return func(b *Builder) { b.assetsHost = host }
}

// WithSize sets the CSS width and height of each chart
func WithSize(width, height string) Option {
	return func(b *Builder) {
		b.width = width
		b.height = height
	}
}

// NewBuilder creates a builder sized for the dashboard grid; options
// override the assets host and chart size
func NewBuilder(options ...Option) *Builder {
	b := &Builder{
		assetsHost: DefaultAssetsHost,
		width:      "100%",
		height:     "380px",
	}
	for _, o := range options {
		o(b)
	}
	return b
}

// AssetsHost reports the script host so callers can allow it in CSP
func (b *Builder) AssetsHost() string { return b.assetsHost }

// Build returns the chart named name. Bar charts read the summary, line
// charts read the series.
func (b *Builder) Build(name string, summary domain.Summary, series domain.Series) (components.Charter, error) {
	def, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChart, name)
	}
	if def.Kind == KindBar {
		return b.bar(def, summary), nil
	}
	return b.line(def, series), nil
}

// Render writes a standalone HTML page holding one chart
func (b *Builder) Render(w io.Writer, name string, summary domain.Summary, series domain.Series) error {
	c, err := b.Build(name, summary, series)
	if err != nil {
		return err
	}
	return c.(renderer).Render(w)
}

type renderer interface {
	Render(w io.Writer) error
}

// RenderBoard writes every catalog chart into one page
func (b *Builder) RenderBoard(w io.Writer, summary domain.Summary, series domain.Series) error {
	page := components.NewPage()
	page.PageTitle = "A/B Testing Dashboard"
	page.AssetsHost = b.assetsHost
	for _, def := range catalog {
		c, err := b.Build(def.Name, summary, series)
		if err != nil {
			return err
		}
		page.AddCharts(c)
	}
	return page.Render(w)
}

func (b *Builder) init(def Definition) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		PageTitle:  def.Title,
		Width:      b.width,
		Height:     b.height,
		ChartID:    "chart_" + def.Name,
		AssetsHost: b.assetsHost,
	})
}

func (b *Builder) bar(def Definition, summary domain.Summary) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		b.init(def),
		charts.WithTitleOpts(opts.Title{Title: def.Title, Subtitle: subtitle(summary.Filter, "")}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: def.Unit}),
	)

	x := make([]string, 0, len(summary.Platforms))
	data := make([]opts.BarData, 0, len(summary.Platforms))
	for _, p := range summary.Platforms {
		x = append(x, string(p.Platform))
		data = append(data, opts.BarData{Name: string(p.Platform), Value: point(def.value(p.Metrics))})
	}
	bar.SetXAxis(x).AddSeries(def.Title, data)
	return bar
}

func (b *Builder) line(def Definition, series domain.Series) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		b.init(def),
		charts.WithTitleOpts(opts.Title{Title: def.Title, Subtitle: subtitle(series.Filter, series.Bucket)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: def.Unit}),
	)

	x := make([]string, len(series.Buckets))
	index := make(map[string]int, len(series.Buckets))
	for i, start := range series.Buckets {
		label := start.Format(analytics.DateLayout)
		x[i] = label
		index[label] = i
	}
	line.SetXAxis(x)

	for _, p := range analytics.SeriesPlatforms(series) {
		data := make([]opts.LineData, len(x))
		for i := range data {
			data[i] = opts.LineData{Value: Missing}
		}
		for _, pt := range series.Points {
			if pt.Platform != p {
				continue
			}
			if i, ok := index[pt.Start.Format(analytics.DateLayout)]; ok {
				data[i] = opts.LineData{Value: point(def.value(pt.Metrics))}
			}
		}
		line.AddSeries(string(p), data)
	}
	return line
}

// point converts an aggregate into a chart value, Missing when undefined
func point(v *float64) interface{} {
	if v == nil {
		return Missing
	}
	return *v
}

func subtitle(f domain.Filter, bucket domain.Bucket) string {
	s := string(f.Platform)
	if s == "" {
		s = string(domain.PlatformAll)
	}
	if !f.Start.IsZero() || !f.End.IsZero() {
		start, end := "…", "…"
		if !f.Start.IsZero() {
			start = f.Start.Format(analytics.DateLayout)
		}
		if !f.End.IsZero() {
			end = f.End.Format(analytics.DateLayout)
		}
		s += fmt.Sprintf(" | %s to %s", start, end)
	}
	if bucket != "" && bucket != domain.BucketDay {
		s += " | per " + string(bucket)
	}
	return s
}
