package http

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"abpulse/internal/analytics"
	"abpulse/internal/charts"
	"abpulse/internal/dataset"
	apierrors "abpulse/internal/errors"
	"abpulse/internal/services"
	"abpulse/pkg/contracts"
	"abpulse/pkg/contracts/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// DashboardTitle heads the page
const DashboardTitle = "A/B Testing Dashboard: Facebook vs AdWords"

var templateFuncs = template.FuncMap{
	"count":    func(n int64) string { return analytics.FormatCount(float64(n)) },
	"money":    func(v float64) string { return analytics.FormatCurrency(&v) },
	"currency": analytics.FormatCurrency,
	"percent":  analytics.FormatPercent,
	"decimal":  analytics.FormatDecimal,
	"date":     formatDate,
	"wins": func(c domain.Comparison, p domain.Platform) bool {
		return c.Winner != nil && *c.Winner == p
	},
}

// ParseTemplates parses the embedded page templates
func ParseTemplates() (*template.Template, error) {
	return template.New("pages").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
}

// DashboardHandler renders the HTML dashboard
type DashboardHandler struct {
	service      DashboardReader
	templates    *template.Template
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates the page handler; it fails only when the
// embedded templates do not parse
func NewDashboardHandler(service DashboardReader, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) (*DashboardHandler, error) {
	tmpl, err := ParseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &DashboardHandler{
		service:      service,
		templates:    tmpl,
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
	}, nil
}

type selectOption struct {
	Value    string
	Label    string
	Selected bool
}

type pageData struct {
	Title   string
	Version string
	Error   string

	View  *services.DashboardView
	Query template.URL

	PlatformOptions []selectOption
	BucketOptions   []selectOption
	Start, End      string
	MinDate         string
	MaxDate         string

	Charts []charts.Definition
}

type unavailableData struct {
	Title   string
	Message string
}

// Page handles GET /. An invalid filter is reported above the form and
// the unfiltered view is shown instead.
func (h *DashboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := pageData{Title: DashboardTitle, Version: contracts.Version}

	f, err := parseFilter(r)
	if err != nil {
		data.Error = filterMessage(err)
		f = domain.Filter{}
	}
	bucket, err := parseBucket(r)
	if err != nil {
		if data.Error == "" {
			data.Error = filterMessage(err)
		}
		bucket = domain.BucketDay
	}

	view, err := h.service.Dashboard(ctx, f, bucket)
	if err != nil {
		if errors.Is(err, dataset.ErrDataUnavailable) {
			h.logger.WarnContext(ctx, "dashboard requested without data", slog.String("error", err.Error()))
			h.write(w, r, http.StatusServiceUnavailable, "unavailable.html", unavailableData{
				Title:   DashboardTitle,
				Message: "The dataset could not be loaded: " + err.Error(),
			})
			return
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	data.View = view
	data.Query = template.URL(pageQuery(view.Filter, bucket).Encode())
	data.PlatformOptions = platformOptions(view.Filter.Platform)
	data.BucketOptions = bucketOptions(bucket)
	data.Start = formatDate(view.Filter.Start)
	data.End = formatDate(view.Filter.End)
	if view.Dataset.FirstDate != nil {
		data.MinDate = formatDate(*view.Dataset.FirstDate)
	}
	if view.Dataset.LastDate != nil {
		data.MaxDate = formatDate(*view.Dataset.LastDate)
	}
	data.Charts = charts.Catalog()

	h.write(w, r, http.StatusOK, "dashboard.html", data)
}

// write renders into a buffer first so template failures become problems
func (h *DashboardHandler) write(w http.ResponseWriter, r *http.Request, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.errorHandler.HandleError(w, r, fmt.Errorf("render %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func filterMessage(err error) string {
	var fe *analytics.FieldError
	if errors.As(err, &fe) {
		return fmt.Sprintf("Invalid %s: %s. Showing all data instead.", fe.Field, fe.Message)
	}
	return "Invalid filter. Showing all data instead."
}

func pageQuery(f domain.Filter, b domain.Bucket) url.Values {
	q := analytics.Query(f)
	if b != domain.BucketDay {
		q.Set("bucket", string(b))
	}
	return q
}

func platformOptions(selected domain.Platform) []selectOption {
	if selected == "" {
		selected = domain.PlatformAll
	}
	opts := []selectOption{{Value: string(domain.PlatformAll), Label: "All platforms", Selected: selected == domain.PlatformAll}}
	for _, p := range domain.Platforms {
		opts = append(opts, selectOption{Value: string(p), Label: string(p), Selected: selected == p})
	}
	return opts
}

func bucketOptions(selected domain.Bucket) []selectOption {
	labels := []struct {
		b     domain.Bucket
		label string
	}{
		{domain.BucketDay, "Daily"},
		{domain.BucketWeek, "Weekly"},
		{domain.BucketMonth, "Monthly"},
	}
	opts := make([]selectOption, 0, len(labels))
	for _, l := range labels {
		opts = append(opts, selectOption{Value: string(l.b), Label: l.label, Selected: l.b == selected})
	}
	return opts
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(analytics.DateLayout)
}
