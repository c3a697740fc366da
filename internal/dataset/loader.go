package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
	"google.golang.org/api/option"

	"abpulse/pkg/contracts/domain"
)

// SheetsScheme prefixes Google Sheets sources: sheets://<spreadsheetID>/<A1 range>
const SheetsScheme = "sheets://"

type options struct {
	sheet         string
	credentials   string
	apiKey        string
	clientOptions []option.ClientOption
	now           func() time.Time
	logger        *slog.Logger
}

// Option configures Load
type Option func(*options)

// WithSheet selects the worksheet of an XLSX source. The first sheet is used otherwise.
func WithSheet(name string) Option {
	return func(o *options) { o.sheet = name }
}

// WithCredentialsFile authenticates Sheets requests with a service account JSON file
func WithCredentialsFile(path string) Option {
	return func(o *options) { o.credentials = path }
}

// WithAPIKey authenticates Sheets requests with an API key
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithClientOptions passes extra options to the Sheets client
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(o *options) { o.clientOptions = append(o.clientOptions, opts...) }
}

// WithClock overrides the LoadedAt timestamp source
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger used for load diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Load reads source into a Table. Every failure matches ErrDataUnavailable.
// Load has no side effects beyond reading and never retries.
func Load(ctx context.Context, source string, opts ...Option) (*Table, error) {
	o := options{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if strings.TrimSpace(source) == "" {
		return nil, loadErr(source, "no source configured", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, loadErr(source, "load cancelled", err)
	}

	start := time.Now()
	format := DetectFormat(source)

	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatSheets:
		rows, err = readSheets(ctx, source, o)
	case FormatXLSX:
		rows, err = readXLSX(source, o.sheet)
	default:
		rows, err = readCSVFile(source)
	}
	if err != nil {
		return nil, err
	}

	records, layout, err := parseRows(source, rows)
	if err != nil {
		return nil, err
	}

	t := NewTable(source, format, records, o.now())
	t.layout = layout

	o.logger.InfoContext(ctx, "dataset loaded",
		slog.String("source", source),
		slog.String("format", string(format)),
		slog.String("layout", string(layout)),
		slog.Int("records", t.Len()),
		slog.String("fingerprint", t.Fingerprint()),
		slog.Duration("duration", time.Since(start)))

	return t, nil
}

// DetectFormat picks the reader for a source from its scheme or extension
func DetectFormat(source string) Format {
	if strings.HasPrefix(source, SheetsScheme) {
		return FormatSheets
	}
	switch strings.ToLower(filepath.Ext(source)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// Parse reads CSV content from r. It backs Load for files and is
// exported for callers holding the data in memory.
func Parse(source string, r io.Reader, now time.Time) (*Table, error) {
	rows, err := readCSV(source, r)
	if err != nil {
		return nil, err
	}
	records, layout, err := parseRows(source, rows)
	if err != nil {
		return nil, err
	}
	t := NewTable(source, FormatCSV, records, now)
	t.layout = layout
	return t, nil
}

func parseRows(source string, rows [][]string) ([]domain.CampaignRecord, Layout, error) {
	// skip leading blank lines before the header
	for len(rows) > 0 && blank(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, "", nil
	}

	s, missing := detectSchema(rows[0])
	if s == nil {
		return nil, "", loadErr(source,
			fmt.Sprintf("schema mismatch: missing columns %s", strings.Join(missing, ", ")), nil)
	}

	records, err := s.records(source, rows[1:], 2)
	if err != nil {
		return nil, "", err
	}
	if err := checkTotals(source, records); err != nil {
		return nil, "", err
	}
	return records, s.layout, nil
}

func readCSVFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, loadErr(path, "file not found", err)
		}
		return nil, loadErr(path, "cannot open file", err)
	}
	defer f.Close()
	return readCSV(path, f)
}

func readCSV(source string, r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, &LoadError{Source: source, Row: perr.Line, Reason: "malformed csv", Err: perr.Err}
		}
		return nil, loadErr(source, "cannot read csv", err)
	}
	return rows, nil
}

func readXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, loadErr(path, "file not found", err)
		}
		return nil, loadErr(path, "cannot open workbook", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, loadErr(path, "workbook has no sheets", nil)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, loadErr(path, fmt.Sprintf("cannot read sheet %q", sheet), err)
	}
	return rows, nil
}

var validate = validator.New()

func validateRecord(source string, row int, r domain.CampaignRecord) error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return cellErr(source, row, strings.ToLower(fe.Field()), fmt.Sprintf("failed %s validation", fe.Tag()))
	}
	return &LoadError{Source: source, Row: row, Reason: "invalid record", Err: err}
}

// checkTotals rejects datasets whose column sums cannot be represented,
// so every summary over the table stays finite
func checkTotals(source string, records []domain.CampaignRecord) error {
	var (
		spend  float64
		counts [3]int64
	)
	names := [3]string{"impressions", "clicks", "conversions"}
	for _, r := range records {
		spend += r.Spend
		if math.IsInf(spend, 0) {
			return &LoadError{Source: source, Column: "spend", Reason: "column total overflows"}
		}
		for i, v := range [3]int64{r.Impressions, r.Clicks, r.Conversions} {
			if counts[i] > math.MaxInt64-v {
				return &LoadError{Source: source, Column: names[i], Reason: "column total overflows"}
			}
			counts[i] += v
		}
	}
	return nil
}
