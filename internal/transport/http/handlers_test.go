package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"abpulse/internal/analytics"
	"abpulse/internal/charts"
	"abpulse/internal/dataset"
	apierrors "abpulse/internal/errors"
	"abpulse/internal/services"
	ws "abpulse/internal/websocket"
	"abpulse/pkg/contracts/domain"
)

type mockReader struct {
	mock.Mock
}

func (m *mockReader) Summary(ctx context.Context, f domain.Filter) (domain.Summary, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(domain.Summary), args.Error(1)
}

func (m *mockReader) TimeSeries(ctx context.Context, f domain.Filter, b domain.Bucket) (domain.Series, error) {
	args := m.Called(ctx, f, b)
	return args.Get(0).(domain.Series), args.Error(1)
}

func (m *mockReader) Insights(ctx context.Context, f domain.Filter) (domain.Insights, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(domain.Insights), args.Error(1)
}

func (m *mockReader) Records(ctx context.Context, f domain.Filter, limit int) ([]domain.CampaignRecord, error) {
	args := m.Called(ctx, f, limit)
	records, _ := args.Get(0).([]domain.CampaignRecord)
	return records, args.Error(1)
}

func (m *mockReader) Info(ctx context.Context) (domain.DatasetInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.DatasetInfo), args.Error(1)
}

func (m *mockReader) Dashboard(ctx context.Context, f domain.Filter, b domain.Bucket) (*services.DashboardView, error) {
	args := m.Called(ctx, f, b)
	view, _ := args.Get(0).(*services.DashboardView)
	return view, args.Error(1)
}

var errNotLoaded = fmt.Errorf("%w: dataset not loaded", dataset.ErrDataUnavailable)

func day(s string) time.Time {
	t, err := time.Parse(analytics.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleRecords() []domain.CampaignRecord {
	return []domain.CampaignRecord{
		{Platform: domain.PlatformFacebook, Date: day("2019-01-01"), Spend: 100, Impressions: 2000, Clicks: 10, Conversions: 2},
		{Platform: domain.PlatformAdWords, Date: day("2019-01-01"), Spend: 200, Impressions: 4000, Clicks: 20, Conversions: 3},
		{Platform: domain.PlatformFacebook, Date: day("2019-01-02"), Spend: 50, Impressions: 1000, Clicks: 5, Conversions: 1},
	}
}

func sampleInfo() domain.DatasetInfo {
	first, last := day("2019-01-01"), day("2019-01-02")
	return domain.DatasetInfo{
		Source:      "data/ab.csv",
		Format:      "csv",
		Records:     3,
		Platforms:   domain.Platforms,
		FirstDate:   &first,
		LastDate:    &last,
		Fingerprint: "abc123",
	}
}

func sampleView(f domain.Filter, b domain.Bucket) *services.DashboardView {
	records := sampleRecords()
	summary := analytics.Summarize(records, f)
	preview := analytics.Apply(records, f)
	return &services.DashboardView{
		Filter:   summary.Filter,
		Bucket:   b,
		Summary:  summary,
		Series:   analytics.TimeSeries(records, f, b),
		Insights: analytics.Compare(summary),
		Preview:  preview,
		Dataset:  sampleInfo(),
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newErrorHandler() *apierrors.ErrorHandler {
	return apierrors.NewErrorHandler(quietLogger(), false)
}

func serve(h http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func problemType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, apierrors.ContentType, rec.Header().Get("Content-Type"))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	typ, _ := body["type"].(string)
	return typ
}

func dataRouter(svc DashboardReader) http.Handler {
	r := chi.NewRouter()
	r.Mount("/api", NewDataHandler(svc, quietLogger(), newErrorHandler()).Routes())
	return r
}

func TestDataHandler_Summary(t *testing.T) {
	svc := new(mockReader)
	svc.On("Info", mock.Anything).Return(sampleInfo(), nil)
	fb := domain.Filter{Platform: domain.PlatformFacebook}
	svc.On("Summary", mock.Anything, fb).Return(analytics.Summarize(sampleRecords(), fb), nil).Once()
	h := dataRouter(svc)

	rec := serve(h, http.MethodGet, "/api/summary?platform=facebook", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tag := rec.Header().Get("ETag")
	assert.True(t, strings.HasPrefix(tag, `"abc123-`), tag)

	var got domain.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 150.0, got.Total.Spend)
	assert.Equal(t, int64(15), got.Total.Clicks)

	// same query, same dataset
	rec = serve(h, http.MethodGet, "/api/summary?platform=Facebook", http.Header{"If-None-Match": {tag}})
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Equal(t, 0, rec.Body.Len())

	// a different query gets a different tag
	svc.On("Summary", mock.Anything, domain.Filter{Platform: domain.PlatformAll}).Return(analytics.Summarize(sampleRecords(), domain.Filter{}), nil)
	rec = serve(h, http.MethodGet, "/api/summary", http.Header{"If-None-Match": {tag}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, tag, rec.Header().Get("ETag"))

	svc.AssertExpectations(t)
}

func TestDataHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		setup      func(svc *mockReader)
		wantStatus int
		wantType   string
	}{
		{
			name:       "unknown platform",
			target:     "/api/summary?platform=tiktok",
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "end before start",
			target:     "/api/insights?start=2019-02-01&end=2019-01-01",
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "bad bucket",
			target:     "/api/timeseries?bucket=hour",
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "bad limit",
			target:     "/api/records?limit=-4",
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:   "dataset not loaded",
			target: "/api/summary",
			setup: func(svc *mockReader) {
				svc.On("Info", mock.Anything).Return(domain.DatasetInfo{}, errNotLoaded)
			},
			wantStatus: http.StatusServiceUnavailable,
			wantType:   apierrors.TypeDataUnavailable,
		},
		{
			name:   "dataset info not loaded",
			target: "/api/dataset",
			setup: func(svc *mockReader) {
				svc.On("Info", mock.Anything).Return(domain.DatasetInfo{}, errNotLoaded)
			},
			wantStatus: http.StatusServiceUnavailable,
			wantType:   apierrors.TypeDataUnavailable,
		},
		{
			name:       "unsupported export",
			target:     "/api/export/summary.pdf",
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeUnsupportedExport,
		},
		{
			name:       "export without extension",
			target:     "/api/export/summary",
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeUnsupportedExport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockReader)
			if tt.setup != nil {
				tt.setup(svc)
			}
			rec := serve(dataRouter(svc), http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantType, problemType(t, rec))
			svc.AssertExpectations(t)
		})
	}
}

func TestDataHandler_TimeSeriesRecordsAndDataset(t *testing.T) {
	svc := new(mockReader)
	svc.On("Info", mock.Anything).Return(sampleInfo(), nil)
	all := domain.Filter{Platform: domain.PlatformAll}
	svc.On("TimeSeries", mock.Anything, all, domain.BucketWeek).
		Return(analytics.TimeSeries(sampleRecords(), all, domain.BucketWeek), nil)
	svc.On("Records", mock.Anything, all, 2).Return(sampleRecords()[:2], nil)
	h := dataRouter(svc)

	rec := serve(h, http.MethodGet, "/api/timeseries?bucket=week", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var series domain.Series
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	assert.Equal(t, domain.BucketWeek, series.Bucket)

	rec = serve(h, http.MethodGet, "/api/records?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var records struct {
		Count int `json:"count"`
		Limit int `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	assert.Equal(t, 2, records.Count)
	assert.Equal(t, 2, records.Limit)

	rec = serve(h, http.MethodGet, "/api/dataset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"abc123"`, rec.Header().Get("ETag"))
	rec = serve(h, http.MethodGet, "/api/dataset", http.Header{"If-None-Match": {`W/"abc123"`}})
	assert.Equal(t, http.StatusNotModified, rec.Code)

	svc.AssertExpectations(t)
}

func TestDataHandler_Export(t *testing.T) {
	all := domain.Filter{Platform: domain.PlatformAll}

	t.Run("summary csv", func(t *testing.T) {
		svc := new(mockReader)
		svc.On("Dashboard", mock.Anything, all, domain.BucketDay).Return(sampleView(all, domain.BucketDay), nil)

		rec := serve(dataRouter(svc), http.MethodGet, "/api/export/summary.csv", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "abpulse_summary.csv")
		assert.Contains(t, rec.Body.String(), "Facebook")
		assert.Contains(t, rec.Body.String(), "Total")
		svc.AssertNotCalled(t, "Records", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("timeseries xlsx loads every record", func(t *testing.T) {
		svc := new(mockReader)
		svc.On("Dashboard", mock.Anything, all, domain.BucketDay).Return(sampleView(all, domain.BucketDay), nil)
		svc.On("Records", mock.Anything, all, 0).Return(sampleRecords(), nil)

		rec := serve(dataRouter(svc), http.MethodGet, "/api/export/timeseries.xlsx", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
		assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"), "xlsx is a zip archive")
		svc.AssertExpectations(t)
	})

	t.Run("data unavailable", func(t *testing.T) {
		svc := new(mockReader)
		svc.On("Dashboard", mock.Anything, all, domain.BucketDay).Return(nil, errNotLoaded)

		rec := serve(dataRouter(svc), http.MethodGet, "/api/export/summary.csv", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, apierrors.TypeDataUnavailable, problemType(t, rec))
	})
}

func chartRouter(svc DashboardReader) http.Handler {
	r := chi.NewRouter()
	r.Mount("/charts", NewChartHandler(svc, charts.NewBuilder(charts.WithAssetsHost("/assets/")), quietLogger(), newErrorHandler()).Routes())
	return r
}

func TestChartHandler(t *testing.T) {
	fb := domain.Filter{Platform: domain.PlatformFacebook}

	t.Run("single chart", func(t *testing.T) {
		svc := new(mockReader)
		svc.On("Dashboard", mock.Anything, fb, domain.BucketDay).Return(sampleView(fb, domain.BucketDay), nil)

		rec := serve(chartRouter(svc), http.MethodGet, "/charts/clicks?platform=facebook", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Body.String(), "chart_clicks")
		svc.AssertExpectations(t)
	})

	t.Run("board", func(t *testing.T) {
		svc := new(mockReader)
		all := domain.Filter{Platform: domain.PlatformAll}
		svc.On("Dashboard", mock.Anything, all, domain.BucketMonth).Return(sampleView(all, domain.BucketMonth), nil)

		rec := serve(chartRouter(svc), http.MethodGet, "/charts?bucket=month", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		for _, name := range charts.Names("") {
			assert.Contains(t, rec.Body.String(), "chart_"+name)
		}
	})

	t.Run("unknown chart skips the service", func(t *testing.T) {
		svc := new(mockReader)
		rec := serve(chartRouter(svc), http.MethodGet, "/charts/pie", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, apierrors.TypeChartNotFound, problemType(t, rec))
		svc.AssertNotCalled(t, "Dashboard", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("catalog", func(t *testing.T) {
		rec := serve(chartRouter(new(mockReader)), http.MethodGet, "/charts/catalog", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var defs []charts.Definition
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &defs))
		assert.Len(t, defs, len(charts.Names("")))
	})
}

func TestDashboardHandler_Page(t *testing.T) {
	all := domain.Filter{Platform: domain.PlatformAll}
	empty := domain.Filter{Platform: domain.PlatformAll, Start: day("2020-01-01")}

	tests := []struct {
		name       string
		target     string
		setup      func(svc *mockReader)
		wantStatus int
		contains   []string
		excludes   []string
	}{
		{
			name:   "full page",
			target: "/",
			setup: func(svc *mockReader) {
				svc.On("Dashboard", mock.Anything, all, domain.BucketDay).Return(sampleView(all, domain.BucketDay), nil)
			},
			wantStatus: http.StatusOK,
			contains: []string{
				DashboardTitle,
				`id="insights"`,
				`src="/charts/daily_clicks?"`,
				"$350.00",
				`min="2019-01-01"`,
				"/api/export/summary.xlsx",
			},
			excludes: []string{"No data for the selected filters", `role="alert"`},
		},
		{
			name:   "empty selection",
			target: "/?start=2020-01-01",
			setup: func(svc *mockReader) {
				svc.On("Dashboard", mock.Anything, empty, domain.BucketDay).Return(sampleView(empty, domain.BucketDay), nil)
			},
			wantStatus: http.StatusOK,
			contains:   []string{"No data for the selected filters"},
			excludes:   []string{"<iframe", `id="insights"`},
		},
		{
			name:   "invalid filter falls back to all data",
			target: "/?platform=myspace",
			setup: func(svc *mockReader) {
				svc.On("Dashboard", mock.Anything, domain.Filter{}, domain.BucketDay).Return(sampleView(all, domain.BucketDay), nil)
			},
			wantStatus: http.StatusOK,
			contains:   []string{`role="alert"`, "Invalid platform", "<iframe"},
		},
		{
			name:   "data unavailable",
			target: "/",
			setup: func(svc *mockReader) {
				svc.On("Dashboard", mock.Anything, all, domain.BucketDay).
					Return(nil, &dataset.LoadError{Source: "data/ab.csv", Row: 3, Column: "spend", Reason: "not a number"})
			},
			wantStatus: http.StatusServiceUnavailable,
			contains:   []string{`id="data-unavailable"`, "not a number"},
			excludes:   []string{"<iframe"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockReader)
			tt.setup(svc)
			h, err := NewDashboardHandler(svc, quietLogger(), newErrorHandler())
			require.NoError(t, err)

			rec := serve(http.HandlerFunc(h.Page), http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
			body := rec.Body.String()
			for _, s := range tt.contains {
				assert.Contains(t, body, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, body, s)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestClientLogHandler(t *testing.T) {
	h := NewClientLogHandler(quietLogger(), newErrorHandler())

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "valid entry", body: `{"level":"warn","message":"websocket connection failed","source":"dashboard"}`, wantStatus: http.StatusAccepted},
		{name: "unknown level", body: `{"level":"loud","message":"hi"}`, wantStatus: http.StatusAccepted},
		{name: "missing message", body: `{"level":"info"}`, wantStatus: http.StatusBadRequest},
		{name: "not json", body: `level=info`, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/client-log", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Handle(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
	assert.Equal(t, slog.LevelInfo, clientLevel("loud"))
	assert.Equal(t, slog.LevelWarn, clientLevel("WARNING"))
}

func TestMetricsHandler(t *testing.T) {
	rec := serve(NewMetricsHandler(nil, newErrorHandler()), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	exporter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "# HELP up\n")
	})
	rec = serve(NewMetricsHandler(exporter, newErrorHandler()), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# HELP")
}

func TestETag(t *testing.T) {
	a := etag("fp", domain.Filter{Platform: domain.PlatformFacebook}, "summary")
	b := etag("fp", domain.Filter{Platform: domain.PlatformFacebook}, "summary")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, etag("fp", domain.Filter{Platform: domain.PlatformFacebook}, "insights"))
	assert.NotEqual(t, a, etag("fp2", domain.Filter{Platform: domain.PlatformFacebook}, "summary"))
	assert.Equal(t, etag("fp", domain.Filter{}), etag("fp", domain.Filter{Platform: domain.PlatformAll}))
}

func TestWebSocketHandler_Problems(t *testing.T) {
	t.Run("plain request is rejected by the upgrader", func(t *testing.T) {
		hub := ws.NewHub(new(mockReader), quietLogger())
		h := NewWebSocketHandler(hub, 1024, 1024, nil, quietLogger(), newErrorHandler())

		rec := serve(h, http.MethodGet, "/ws", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apierrors.TypeWebSocketUpgrade, problemType(t, rec))
	})

	t.Run("hub stopped", func(t *testing.T) {
		hub := ws.NewHub(new(mockReader), quietLogger())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.NoError(t, hub.Run(ctx))
		h := NewWebSocketHandler(hub, 1024, 1024, nil, quietLogger(), newErrorHandler())

		rec := serve(h, http.MethodGet, "/ws", nil)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, apierrors.TypeServiceDown, problemType(t, rec))
	})
}
