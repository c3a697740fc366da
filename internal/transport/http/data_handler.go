package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"abpulse/internal/analytics"
	apierrors "abpulse/internal/errors"
	"abpulse/internal/exporter"
	"abpulse/internal/middleware"
	"abpulse/pkg/contracts/domain"
)

// DataHandler serves the JSON data API and file exports
type DataHandler struct {
	service      DashboardReader
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDataHandler creates a new data handler with RFC 7807 error handling
func NewDataHandler(service DashboardReader, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DataHandler {
	return &DataHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "data_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the data routes
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/summary", h.GetSummary)
		r.Get("/timeseries", h.GetTimeSeries)
		r.Get("/insights", h.GetInsights)
		r.Get("/records", h.GetRecords)
		r.Get("/dataset", h.GetDataset)
	})

	r.Get("/export/{file}", h.Export)
	return r
}

// cached answers 304 when the client already holds the response for
// this dataset and query. It returns false when the caller must respond.
func (h *DataHandler) cached(w http.ResponseWriter, r *http.Request, f domain.Filter, extra ...string) (bool, error) {
	info, err := h.service.Info(r.Context())
	if err != nil {
		return false, err
	}
	return notModified(w, r, etag(info.Fingerprint, f, extra...)), nil
}

// GetSummary handles GET /api/summary
func (h *DataHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if done, err := h.cached(w, r, f, "summary"); err != nil || done {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summary, err := h.service.Summary(r.Context(), f)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// GetTimeSeries handles GET /api/timeseries?bucket=
func (h *DataHandler) GetTimeSeries(w http.ResponseWriter, r *http.Request) {
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
	if done, err := h.cached(w, r, f, "timeseries", string(bucket)); err != nil || done {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	series, err := h.service.TimeSeries(r.Context(), f, bucket)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, series)
}

// GetInsights handles GET /api/insights
func (h *DataHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if done, err := h.cached(w, r, f, "insights"); err != nil || done {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	insights, err := h.service.Insights(r.Context(), f)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, insights)
}

// GetRecords handles GET /api/records?limit=
func (h *DataHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if done, err := h.cached(w, r, f, "records", strconv.Itoa(limit)); err != nil || done {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	records, err := h.service.Records(r.Context(), f, limit)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"records": records,
		"count":   len(records),
		"limit":   limit,
	})
}

// GetDataset handles GET /api/dataset
func (h *DataHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Info(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if notModified(w, r, `"`+info.Fingerprint+`"`) {
		return
	}
	render.JSON(w, r, info)
}

// Export handles GET /api/export/{kind}.{format}, for example
// summary.csv or timeseries.xlsx. The xlsx workbook carries every table.
func (h *DataHandler) Export(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	ext := path.Ext(file)
	format, err := exporter.ParseFormat(strings.TrimPrefix(ext, "."))
	if err != nil || ext == "" {
		h.errorHandler.HandleError(w, r, fmt.Errorf("%w: %q", exporter.ErrUnsupportedFormat, file))
		return
	}
	kind, err := exporter.ParseKind(strings.TrimSuffix(file, ext))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
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
	report := exporter.Report{
		Summary:  view.Summary,
		Insights: view.Insights,
		Series:   view.Series,
	}
	if kind == exporter.KindRecords || format == exporter.FormatXLSX {
		if report.Records, err = h.service.Records(r.Context(), f, 0); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
	}

	// buffered so a failed export still gets a problem response
	var buf bytes.Buffer
	if err := exporter.Write(&buf, format, kind, report); err != nil {
		h.errorHandler.HandleError(w, r, fmt.Errorf("export %s: %w", file, err))
		return
	}

	h.logger.InfoContext(r.Context(), "export generated",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("format", string(format)),
		slog.String("kind", string(kind)),
		slog.String("filter", analytics.Query(f).Encode()),
		slog.Int("bytes", buf.Len()),
	)

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exporter.FileName(format, kind)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
