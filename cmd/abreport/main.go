// Command abreport prints the Facebook vs AdWords comparison for a dataset
// and optionally writes CSV or XLSX exports, without starting a server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"text/tabwriter"

	"abpulse/internal/analytics"
	"abpulse/internal/config"
	"abpulse/internal/dataset"
	"abpulse/internal/exporter"
	"abpulse/internal/infrastructure"
	"abpulse/pkg/contracts/domain"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	source   string
	sheet    string
	platform string
	start    string
	end      string
	bucket   string
	kind     string
	csvPath  string
	xlsxPath string
	logLevel string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("abreport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.source, "source", config.DefaultDatasetSource, "dataset path or Google Sheets URL")
	fs.StringVar(&o.sheet, "sheet", "", "worksheet name for xlsx or Google Sheets sources")
	fs.StringVar(&o.platform, "platform", "", "Facebook, AdWords or All")
	fs.StringVar(&o.start, "start", "", "first day to include (YYYY-MM-DD)")
	fs.StringVar(&o.end, "end", "", "last day to include (YYYY-MM-DD)")
	fs.StringVar(&o.bucket, "bucket", "", "time series interval: day, week or month")
	fs.StringVar(&o.kind, "kind", "summary", "table written by -csv: summary, timeseries, records or insights")
	fs.StringVar(&o.csvPath, "csv", "", "write the -kind table as CSV to this path")
	fs.StringVar(&o.xlsxPath, "xlsx", "", "write the full workbook to this path")
	fs.StringVar(&o.logLevel, "log-level", "warn", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	logger, err := infrastructure.NewLogger(config.LoggingConfig{Level: o.logLevel, Format: "json", Output: "console"}, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	f, err := analytics.ParseFilter(url.Values{
		"platform": {o.platform},
		"start":    {o.start},
		"end":      {o.end},
	})
	if err != nil {
		fmt.Fprintf(stderr, "invalid filter: %v\n", err)
		return exitFailure
	}
	bucket, err := analytics.ParseBucket(o.bucket)
	if err != nil {
		fmt.Fprintf(stderr, "invalid filter: %v\n", err)
		return exitFailure
	}
	kind, err := exporter.ParseKind(o.kind)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	loadOpts := []dataset.Option{dataset.WithLogger(logger)}
	if o.sheet != "" {
		loadOpts = append(loadOpts, dataset.WithSheet(o.sheet))
	}
	table, err := dataset.Load(ctx, o.source, loadOpts...)
	if err != nil {
		fmt.Fprintf(stderr, "data unavailable: %v\n", err)
		return exitFailure
	}

	records := table.View()
	report := exporter.Report{
		Summary: analytics.Summarize(records, f),
		Series:  analytics.TimeSeries(records, f, bucket),
		Records: analytics.Apply(records, f),
	}
	report.Insights = analytics.Compare(report.Summary)

	printReport(stdout, table.Info(), f, report)

	if o.csvPath != "" {
		if err := exporter.WriteFile(o.csvPath, func(w io.Writer) error {
			return exporter.Write(w, exporter.FormatCSV, kind, report)
		}); err != nil {
			fmt.Fprintf(stderr, "csv export: %v\n", err)
			return exitFailure
		}
		fmt.Fprintf(stdout, "\nwrote %s\n", o.csvPath)
	}
	if o.xlsxPath != "" {
		if err := exporter.WriteFile(o.xlsxPath, func(w io.Writer) error {
			return exporter.Write(w, exporter.FormatXLSX, kind, report)
		}); err != nil {
			fmt.Fprintf(stderr, "xlsx export: %v\n", err)
			return exitFailure
		}
		fmt.Fprintf(stdout, "\nwrote %s\n", o.xlsxPath)
	}

	logger.Info("report generated",
		slog.String("source", o.source),
		slog.Int("records", len(report.Records)),
		slog.String("filter", analytics.Query(f).Encode()))
	return exitOK
}

func printReport(w io.Writer, info domain.DatasetInfo, f domain.Filter, r exporter.Report) {
	fmt.Fprintf(w, "Dataset: %s (%d records, %s)\n", info.Source, info.Records, info.Fingerprint)
	if q := analytics.Query(f).Encode(); q != "" {
		fmt.Fprintf(w, "Filter:  %s\n", q)
	}
	fmt.Fprintln(w)

	if r.Summary.Empty {
		fmt.Fprintln(w, "No data for the selected filters")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Platform\tDays\tSpend\tViews\tClicks\tConversions\tCPC\tCTR\tConv. rate\t")
	row := func(name string, m domain.Metrics) {
		spend := m.Spend
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			name, m.Records,
			analytics.FormatCurrency(&spend),
			analytics.FormatCount(float64(m.Impressions)),
			analytics.FormatCount(float64(m.Clicks)),
			analytics.FormatCount(float64(m.Conversions)),
			analytics.FormatCurrency(m.CPC),
			analytics.FormatPercent(m.CTR),
			analytics.FormatPercent(m.ConversionRate))
	}
	for _, p := range r.Summary.Platforms {
		row(string(p.Platform), p.Metrics)
	}
	row("Total", r.Summary.Total)
	tw.Flush()

	fmt.Fprintln(w)
	for _, c := range r.Insights.Comparisons {
		fmt.Fprintf(w, "%-24s Facebook %-12s AdWords %s\n", c.Label+":", c.FacebookText, c.AdWordsText)
	}
	fmt.Fprintf(w, "\n%s\n", r.Insights.Message)
}
