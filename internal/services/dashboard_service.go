package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/singleflight"

	"abpulse/internal/analytics"
	"abpulse/internal/dataset"
	"abpulse/internal/infrastructure"
	"abpulse/pkg/contracts/domain"
)

// Loader reads a dataset source into a snapshot
type Loader func(ctx context.Context, source string, opts ...dataset.Option) (*dataset.Table, error)

// ReloadListener is told about every snapshot that replaces the served one
type ReloadListener func(ctx context.Context, info domain.DatasetInfo)

// DashboardView bundles everything the dashboard page renders for one filter
type DashboardView struct {
	Filter   domain.Filter
	Bucket   domain.Bucket
	Summary  domain.Summary
	Series   domain.Series
	Insights domain.Insights
	Preview  []domain.CampaignRecord
	Dataset  domain.DatasetInfo
}

// DashboardService serves aggregations over the current dataset snapshot.
// Reads never lock: the snapshot is an immutable table behind an atomic
// pointer and a reload swaps the whole table.
type DashboardService struct {
	source      string
	loadOpts    []dataset.Option
	load        Loader
	previewRows int

	snapshot atomic.Pointer[dataset.Table]
	lastErr  atomic.Value // loadFailure
	reloads  singleflight.Group

	listenersMu sync.RWMutex
	listeners   []ReloadListener

	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

type loadFailure struct {
	err error
	at  time.Time
}

// DashboardOption configures a DashboardService
type DashboardOption func(*DashboardService)

// WithLoadOptions passes options to every dataset load
func WithLoadOptions(opts ...dataset.Option) DashboardOption {
	return func(s *DashboardService) { s.loadOpts = append(s.loadOpts, opts...) }
}

// WithLoader replaces dataset.Load, mainly for tests
func WithLoader(l Loader) DashboardOption {
	return func(s *DashboardService) { s.load = l }
}

// WithPreviewRows sets how many records the dashboard preview shows
func WithPreviewRows(n int) DashboardOption {
	return func(s *DashboardService) { s.previewRows = n }
}

// WithTracer sets the tracer used for service spans
func WithTracer(t trace.Tracer) DashboardOption {
	return func(s *DashboardService) { s.tracer = t }
}

// WithMetrics sets the business metrics recorder
func WithMetrics(m *infrastructure.BusinessMetrics) DashboardOption {
	return func(s *DashboardService) { s.metrics = m }
}

// WithLogger sets the service logger
func WithLogger(l *slog.Logger) DashboardOption {
	return func(s *DashboardService) { s.logger = l }
}

// NewDashboardService creates a service for source. Nothing is loaded
// until Reload is called.
func NewDashboardService(source string, opts ...DashboardOption) *DashboardService {
	s := &DashboardService{
		source:      source,
		load:        dataset.Load,
		previewRows: 5,
		tracer:      noop.NewTracerProvider().Tracer("abpulse/services"),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "dashboard_service"))
	return s
}

// Source returns the configured dataset source
func (s *DashboardService) Source() string { return s.source }

// OnReload registers a listener for successful reloads
func (s *DashboardService) OnReload(l ReloadListener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Reload loads the source and swaps the snapshot on success. Concurrent
// calls share one load. On failure the previous snapshot keeps serving.
func (s *DashboardService) Reload(ctx context.Context) (*dataset.Table, error) {
	v, err, shared := s.reloads.Do("reload", func() (interface{}, error) {
		return s.reload(ctx)
	})
	if shared {
		s.logger.DebugContext(ctx, "reload coalesced")
	}
	if err != nil {
		return nil, err
	}
	return v.(*dataset.Table), nil
}

func (s *DashboardService) reload(ctx context.Context) (*dataset.Table, error) {
	ctx, span := s.tracer.Start(ctx, "DashboardService.Reload",
		trace.WithAttributes(attribute.String("dataset.source", s.source)))
	defer span.End()

	start := time.Now()
	table, err := s.load(ctx, s.source, s.loadOpts...)
	duration := time.Since(start)

	if err != nil {
		infrastructure.RecordDatasetLoad(ctx, s.metrics, s.source, duration, 0, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.lastErr.Store(loadFailure{err: err, at: time.Now()})

		attrs := []any{slog.String("source", s.source), slog.String("error", err.Error())}
		if s.snapshot.Load() != nil {
			attrs = append(attrs, slog.Bool("kept_previous_snapshot", true))
		}
		s.logger.ErrorContext(ctx, "dataset load failed", attrs...)
		return nil, fmt.Errorf("reload %s: %w", s.source, err)
	}

	infrastructure.RecordDatasetLoad(ctx, s.metrics, s.source, duration, table.Len(), nil)
	s.lastErr.Store(loadFailure{})

	prev := s.snapshot.Swap(table)
	changed := prev == nil || prev.Fingerprint() != table.Fingerprint()
	span.SetAttributes(
		attribute.Int("dataset.records", table.Len()),
		attribute.Bool("dataset.changed", changed),
	)

	s.logger.InfoContext(ctx, "dataset snapshot swapped",
		slog.Int("records", table.Len()),
		slog.String("fingerprint", table.Fingerprint()),
		slog.Bool("changed", changed),
		slog.Duration("duration", duration))

	if changed {
		info := table.Info()
		s.listenersMu.RLock()
		listeners := append([]ReloadListener(nil), s.listeners...)
		s.listenersMu.RUnlock()
		for _, l := range listeners {
			l(ctx, info)
		}
	}
	return table, nil
}

// Snapshot returns the served table or an error matching ErrDataUnavailable
func (s *DashboardService) Snapshot() (*dataset.Table, error) {
	if t := s.snapshot.Load(); t != nil {
		return t, nil
	}
	if f, ok := s.lastErr.Load().(loadFailure); ok && f.err != nil {
		return nil, f.err
	}
	return nil, fmt.Errorf("%w: dataset not loaded", ErrDataUnavailable)
}

// Ready reports whether a snapshot is being served
func (s *DashboardService) Ready() bool {
	return s.snapshot.Load() != nil
}

// LastError returns the most recent load failure, nil after a success
func (s *DashboardService) LastError() error {
	if f, ok := s.lastErr.Load().(loadFailure); ok {
		return f.err
	}
	return nil
}

// Summary aggregates the snapshot for f
func (s *DashboardService) Summary(ctx context.Context, f domain.Filter) (domain.Summary, error) {
	table, err := s.prepare(f)
	if err != nil {
		return domain.Summary{}, err
	}
	ctx, span := s.tracer.Start(ctx, "DashboardService.Summary")
	defer span.End()

	start := time.Now()
	summary := analytics.Summarize(table.View(), f)
	infrastructure.RecordAggregation(ctx, s.metrics, "summary", time.Since(start))
	span.SetAttributes(attribute.Int("summary.records", summary.Total.Records))
	return summary, nil
}

// TimeSeries buckets the snapshot for f
func (s *DashboardService) TimeSeries(ctx context.Context, f domain.Filter, b domain.Bucket) (domain.Series, error) {
	table, err := s.prepare(f)
	if err != nil {
		return domain.Series{}, err
	}
	ctx, span := s.tracer.Start(ctx, "DashboardService.TimeSeries",
		trace.WithAttributes(attribute.String("series.bucket", string(b))))
	defer span.End()

	start := time.Now()
	series := analytics.TimeSeries(table.View(), f, b)
	infrastructure.RecordAggregation(ctx, s.metrics, "timeseries", time.Since(start))
	return series, nil
}

// Insights compares the platforms for f
func (s *DashboardService) Insights(ctx context.Context, f domain.Filter) (domain.Insights, error) {
	summary, err := s.Summary(ctx, f)
	if err != nil {
		return domain.Insights{}, err
	}
	return analytics.Compare(summary), nil
}

// Records returns at most limit records matching f; limit <= 0 means all
func (s *DashboardService) Records(ctx context.Context, f domain.Filter, limit int) ([]domain.CampaignRecord, error) {
	table, err := s.prepare(f)
	if err != nil {
		return nil, err
	}
	records := analytics.Apply(table.View(), f)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Info describes the served snapshot
func (s *DashboardService) Info(ctx context.Context) (domain.DatasetInfo, error) {
	table, err := s.Snapshot()
	if err != nil {
		return domain.DatasetInfo{}, err
	}
	return table.Info(), nil
}

// Dashboard computes the whole page for one filter in a single pass over
// the same snapshot, so every panel agrees.
func (s *DashboardService) Dashboard(ctx context.Context, f domain.Filter, b domain.Bucket) (*DashboardView, error) {
	table, err := s.prepare(f)
	if err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "DashboardService.Dashboard")
	defer span.End()

	start := time.Now()
	records := table.View()
	summary := analytics.Summarize(records, f)
	view := &DashboardView{
		Filter:   summary.Filter,
		Bucket:   b,
		Summary:  summary,
		Series:   analytics.TimeSeries(records, f, b),
		Insights: analytics.Compare(summary),
		Dataset:  table.Info(),
	}
	preview := analytics.Apply(records, f)
	if len(preview) > s.previewRows {
		preview = preview[:s.previewRows]
	}
	view.Preview = preview
	infrastructure.RecordAggregation(ctx, s.metrics, "dashboard", time.Since(start))
	return view, nil
}

// prepare validates f and returns the current snapshot
func (s *DashboardService) prepare(f domain.Filter) (*dataset.Table, error) {
	if err := analytics.ValidateFilter(f); err != nil {
		return nil, err
	}
	return s.Snapshot()
}
