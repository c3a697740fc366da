package exporter

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"abpulse/pkg/contracts/domain"
)

// ErrUnsupportedFormat is returned for unknown export formats and tables
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Formats lists the supported formats
func Formats() []string {
	return []string{string(FormatCSV), string(FormatXLSX)}
}

// ParseFormat accepts csv or xlsx, case-insensitively; empty means csv
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType returns the media type of f
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Kind selects the table a CSV export holds; XLSX exports hold them all
type Kind string

const (
	KindSummary    Kind = "summary"
	KindTimeSeries Kind = "timeseries"
	KindRecords    Kind = "records"
	KindInsights   Kind = "insights"
)

// ParseKind accepts a table name; empty means summary
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindSummary, nil
	case KindSummary, KindTimeSeries, KindRecords, KindInsights:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown table %q", ErrUnsupportedFormat, s)
}

// Report is everything an export can contain for one filter
type Report struct {
	Summary  domain.Summary
	Insights domain.Insights
	Series   domain.Series
	Records  []domain.CampaignRecord
}

// Table returns the grid for kind
func (r Report) Table(kind Kind) (Table, error) {
	switch kind {
	case KindSummary:
		return SummaryTable(r.Summary), nil
	case KindTimeSeries:
		return SeriesTable(r.Series), nil
	case KindRecords:
		return RecordsTable(r.Records), nil
	case KindInsights:
		return InsightsTable(r.Insights), nil
	}
	return Table{}, fmt.Errorf("%w: unknown table %q", ErrUnsupportedFormat, kind)
}

// FileName suggests a download name such as abpulse_summary.csv
func FileName(format Format, kind Kind) string {
	if format == FormatXLSX {
		return "abpulse_report.xlsx"
	}
	return fmt.Sprintf("abpulse_%s.csv", kind)
}

// Write exports r to w. CSV writes the kind table; XLSX writes a workbook
// with the summary, insights, series and records sheets.
func Write(w io.Writer, format Format, kind Kind, r Report) error {
	switch format {
	case FormatCSV:
		t, err := r.Table(kind)
		if err != nil {
			return err
		}
		return WriteCSV(w, WriteOptions{Headers: t.Headers, Records: t.Rows, BOMPrefix: true})
	case FormatXLSX:
		return WriteXLSX(w,
			SummaryTable(r.Summary),
			InsightsTable(r.Insights),
			SeriesTable(r.Series),
			RecordsTable(r.Records),
		)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}
