package dataset

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"google.golang.org/api/option"

	"abpulse/pkg/contracts/domain"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func TestLoad_WideCSVReshapesToLong(t *testing.T) {
	table, err := Load(context.Background(), "testdata/campaigns_wide.csv", WithClock(fixedClock))
	require.NoError(t, err)

	assert.Equal(t, FormatCSV, table.Format())
	assert.Equal(t, LayoutWide, table.Layout())
	assert.Equal(t, 6, table.Len())
	assert.Equal(t, fixedClock(), table.LoadedAt())

	records := table.Records()
	assert.Equal(t, domain.CampaignRecord{
		Platform:    domain.PlatformFacebook,
		Date:        day("2019-01-01"),
		Spend:       126,
		Impressions: 2116,
		Clicks:      18,
		Conversions: 8,
	}, records[0])
	assert.Equal(t, domain.CampaignRecord{
		Platform:    domain.PlatformAdWords,
		Date:        day("2019-01-01"),
		Spend:       194,
		Impressions: 4984,
		Clicks:      59,
		Conversions: 5,
	}, records[1])

	first, last, ok := table.DateRange()
	require.True(t, ok)
	assert.Equal(t, day("2019-01-01"), first)
	assert.Equal(t, day("2019-01-03"), last)
	assert.Equal(t, []domain.Platform{domain.PlatformFacebook, domain.PlatformAdWords}, table.Platforms())
}

func TestLoad_LongCSVWithAliases(t *testing.T) {
	table, err := Load(context.Background(), "testdata/campaigns_long.csv")
	require.NoError(t, err)

	assert.Equal(t, LayoutLong, table.Layout())
	require.Equal(t, 3, table.Len())

	records := table.Records()
	// sorted by date then platform
	assert.Equal(t, day("2019-01-01"), records[0].Date)
	assert.Equal(t, domain.PlatformFacebook, records[0].Platform)
	assert.Equal(t, domain.PlatformFacebook, records[1].Platform)
	assert.Equal(t, 1200.50, records[1].Spend)
	assert.Equal(t, domain.PlatformAdWords, records[2].Platform)
	assert.Equal(t, day("2019-01-02"), records[2].Date)
	assert.Equal(t, int64(8000), records[2].Impressions)
}

func TestLoad_Failures(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		wantRow    int
		wantColumn string
		wantReason string
	}{
		{name: "missing file", source: "testdata/does_not_exist.csv", wantReason: "file not found"},
		{name: "unparsable cell", source: "testdata/malformed.csv", wantRow: 3, wantColumn: "spend"},
		{name: "schema mismatch", source: "testdata/wrong_schema.csv", wantReason: "schema mismatch"},
		{name: "empty source", source: "", wantReason: "no source configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Load(context.Background(), tt.source)
			require.Error(t, err)
			assert.Nil(t, table)
			assert.True(t, errors.Is(err, ErrDataUnavailable))

			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.wantRow, le.Row)
			assert.Equal(t, tt.wantColumn, le.Column)
			if tt.wantReason != "" {
				assert.Contains(t, le.Reason, tt.wantReason)
			}
		})
	}
}

func TestLoad_MissingFileUnwrapsToNotExist(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_SchemaMismatchNamesColumns(t *testing.T) {
	_, err := Load(context.Background(), "testdata/wrong_schema.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "platform")
	assert.Contains(t, err.Error(), "clicks")
}

func TestLoad_HeaderOnlyAndEmptyFiles(t *testing.T) {
	table, err := Load(context.Background(), "testdata/header_only.csv")
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	_, _, ok := table.DateRange()
	assert.False(t, ok)

	empty := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	table, err = Load(context.Background(), empty)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Nil(t, table.Info().FirstDate)
}

func TestLoad_NegativeCountRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neg.csv")
	content := "platform,date,spend,impressions,clicks,conversions\nFacebook,2019-01-01,10,100,-1,0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(context.Background(), path)
	require.Error(t, err)
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 2, le.Row)
	assert.Equal(t, "clicks", le.Column)
}

func TestLoad_ColumnLimits(t *testing.T) {
	header := "platform,date,spend,impressions,clicks,conversions\n"
	tests := []struct {
		name       string
		rows       string
		wantColumn string
		wantRow    int
		wantReason string
	}{
		{
			name:       "spend total overflows",
			rows:       "Facebook,2019-01-01,1e308,100,1,0\nAdWords,2019-01-01,1e308,100,1,0\n",
			wantColumn: "spend",
			wantReason: "column total overflows",
		},
		{
			name:       "impressions total overflows",
			rows:       "Facebook,2019-01-01,1,9223372036854775000,1,0\nAdWords,2019-01-01,1,1000,1,0\n",
			wantColumn: "impressions",
			wantReason: "column total overflows",
		},
		{
			name:       "count beyond int64",
			rows:       "Facebook,2019-01-01,1,9223372036854775808,1,0\n",
			wantColumn: "impressions",
			wantRow:    2,
			wantReason: "out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("inline", strings.NewReader(header+tt.rows), fixedClock())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDataUnavailable)

			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.wantColumn, le.Column)
			assert.Equal(t, tt.wantRow, le.Row)
			assert.Contains(t, le.Error(), tt.wantReason)
		})
	}
}

func TestLoad_LargeCountsAreExact(t *testing.T) {
	content := "platform,date,spend,impressions,clicks,conversions\n" +
		"Facebook,2019-01-01,1,9223372036854775807,9007199254740993,12.0\n"

	table, err := Parse("inline", strings.NewReader(content), fixedClock())
	require.NoError(t, err)

	r := table.Records()[0]
	assert.Equal(t, int64(math.MaxInt64), r.Impressions)
	assert.Equal(t, int64(9007199254740993), r.Clicks)
	assert.Equal(t, int64(12), r.Conversions)
}

func TestLoad_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campaigns.xlsx")

	f := excelize.NewFile()
	sheet := "Campaigns"
	_, err := f.NewSheet(sheet)
	require.NoError(t, err)
	require.NoError(t, f.DeleteSheet("Sheet1"))
	rows := [][]interface{}{
		{"platform", "date", "spend", "impressions", "clicks", "conversions"},
		{"AdWords", "2019-03-01", 50.5, 5000, 25, 5},
		{"Facebook", "2019-03-01", 40, 2000, 20, 4},
	}
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellRef, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, table.Format())
	require.Equal(t, 2, table.Len())
	records := table.Records()
	assert.Equal(t, domain.PlatformFacebook, records[0].Platform)
	assert.Equal(t, 50.5, records[1].Spend)

	_, err = Load(context.Background(), path, WithSheet("Missing"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDataUnavailable))
}

func TestLoad_Sheets(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"range": "Data!A1:F3",
			"majorDimension": "ROWS",
			"values": [
				["platform", "date", "spend", "impressions", "clicks", "conversions"],
				["Facebook", "2019-01-01", "100", "1000", "10", "1"],
				["AdWords", "2019-01-01", "200", "2000", "20", "2"]
			]
		}`))
	}))
	defer srv.Close()

	table, err := Load(context.Background(), "sheets://sheet123/Data!A1:F3",
		WithClientOptions(option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication()))
	require.NoError(t, err)

	assert.Equal(t, FormatSheets, table.Format())
	assert.Equal(t, 2, table.Len())
	assert.True(t, strings.Contains(gotPath, "sheet123"), gotPath)
}

func TestLoad_SheetsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), "sheets://missing/A:F",
		WithClientOptions(option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDataUnavailable))
}

func TestParseSheetsSource(t *testing.T) {
	id, rng, err := ParseSheetsSource("sheets://abc/Sheet1!A1:Q200")
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
	assert.Equal(t, "Sheet1!A1:Q200", rng)

	id, rng, err = ParseSheetsSource("sheets://abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
	assert.Equal(t, "A:Z", rng)

	_, _, err = ParseSheetsSource("sheets:///A:B")
	assert.Error(t, err)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatCSV, DetectFormat("data/ab.csv"))
	assert.Equal(t, FormatCSV, DetectFormat("data/ab.txt"))
	assert.Equal(t, FormatXLSX, DetectFormat("data/AB.XLSX"))
	assert.Equal(t, FormatSheets, DetectFormat("sheets://id/A:F"))
}

func TestLoad_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, "testdata/campaigns_wide.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDataUnavailable))
	assert.True(t, errors.Is(err, context.Canceled))
}
