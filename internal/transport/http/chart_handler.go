package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"abpulse/internal/charts"
	apierrors "abpulse/internal/errors"
	"abpulse/pkg/contracts/domain"
)

// ChartHandler renders go-echarts pages for the current query
type ChartHandler struct {
	service      DashboardReader
	builder      *charts.Builder
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewChartHandler creates a chart handler
func NewChartHandler(service DashboardReader, builder *charts.Builder, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ChartHandler {
	return &ChartHandler{
		service:      service,
		builder:      builder,
		logger:       logger.With(slog.String("component", "chart_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the chart routes
func (h *ChartHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Board)
	r.Get("/catalog", h.Catalog)
	r.Get("/{chart}", h.Chart)
	return r
}

// Chart handles GET /charts/{chart}
func (h *ChartHandler) Chart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "chart")
	if _, ok := charts.Lookup(name); !ok {
		h.errorHandler.HandleError(w, r, fmt.Errorf("%w: %q", charts.ErrUnknownChart, name))
		return
	}
	h.render(w, r, func(buf *bytes.Buffer, view viewData) error {
		return h.builder.Render(buf, name, view.summary, view.series)
	})
}

// Board handles GET /charts with every chart on one page
func (h *ChartHandler) Board(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, func(buf *bytes.Buffer, view viewData) error {
		return h.builder.RenderBoard(buf, view.summary, view.series)
	})
}

// Catalog handles GET /charts/catalog
func (h *ChartHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, charts.Catalog())
}

type viewData struct {
	summary domain.Summary
	series  domain.Series
}

func (h *ChartHandler) render(w http.ResponseWriter, r *http.Request, draw func(*bytes.Buffer, viewData) error) {
	f, err := parseFilter(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	bucket, err := parseBucket(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	view, err := h.service.Dashboard(r.Context(), f, bucket)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := draw(&buf, viewData{summary: view.Summary, series: view.Series}); err != nil {
		h.errorHandler.HandleError(w, r, fmt.Errorf("render chart: %w", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
