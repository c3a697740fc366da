package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"abpulse/internal/charts"
	"abpulse/internal/config"
	"abpulse/internal/dataset"
	apierrors "abpulse/internal/errors"
	"abpulse/internal/infrastructure"
	customMiddleware "abpulse/internal/middleware"
	"abpulse/internal/services"
	handlers "abpulse/internal/transport/http"
	ws "abpulse/internal/websocket"
	"abpulse/pkg/contracts"
)

// AppName is shown in startup logs
const AppName = "AB Pulse"

// compressionLevel is the gzip level for HTML, JSON and CSV responses
const compressionLevel = 5

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Dashboard     *services.DashboardService
	Health        *services.HealthService
	Hub           *ws.Hub
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics

	errorHandler *apierrors.ErrorHandler
	runtimeReg   metric.Registration
}

// NewApplication wires every component from cfg. The dataset is not read
// here; call Load before Run. Extra options are applied to the dashboard
// service after the ones derived from cfg.
func NewApplication(cfg *config.Config, logger *slog.Logger, opts ...services.DashboardOption) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("nil configuration")
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		errorHandler:  apierrors.NewErrorHandler(logger, cfg.Telemetry.Environment == "development"),
	}

	reg, err := infrastructure.RegisterRuntimeMetrics(otelProviders.Meter, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to register runtime metrics: %w", err)
	}
	app.runtimeReg = reg

	if err := app.initializeServices(opts); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}

	app.createServer()
	return app, nil
}

func (a *Application) initializeServices(extra []services.DashboardOption) error {
	ds := a.Config.Dataset

	loadOpts := []dataset.Option{dataset.WithLogger(a.Logger)}
	if ds.Sheet != "" {
		loadOpts = append(loadOpts, dataset.WithSheet(ds.Sheet))
	}
	if ds.CredentialsFile != "" {
		loadOpts = append(loadOpts, dataset.WithCredentialsFile(ds.CredentialsFile))
	}
	if ds.APIKey != "" {
		loadOpts = append(loadOpts, dataset.WithAPIKey(ds.APIKey))
	}

	opts := []services.DashboardOption{
		services.WithLoadOptions(loadOpts...),
		services.WithPreviewRows(ds.PreviewRows),
		services.WithTracer(a.OTelProviders.Tracer),
		services.WithMetrics(a.Metrics),
		services.WithLogger(a.Logger),
	}
	a.Dashboard = services.NewDashboardService(ds.Source, append(opts, extra...)...)

	a.Hub = ws.NewHub(a.Dashboard, a.Logger,
		ws.WithOptions(ws.OptionsFrom(a.Config.WebSocket)),
		ws.WithMetrics(a.Metrics))
	a.Dashboard.OnReload(a.Hub.BroadcastReload)

	a.Health = services.NewHealthService(contracts.Version, contracts.BuildTime, a.Dashboard, a.Hub, a.Logger)
	return nil
}

func (a *Application) setupRouter() error {
	r := chi.NewRouter()
	sec := a.Config.Security

	// RequestID → RealIP → OTel → Logger → Recoverer on every route. These
	// keep http.Hijacker intact so /ws can upgrade.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.errorHandler))

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	corsConfig := a.getCORSConfig()
	var allowOrigin func(string) bool
	if sec.EnableCORS {
		allowOrigin = corsConfig.OriginAllowed
	}
	r.Handle("/ws", handlers.NewWebSocketHandler(a.Hub,
		a.Config.WebSocket.ReadBufferSize, a.Config.WebSocket.WriteBufferSize,
		allowOrigin, a.Logger, a.errorHandler))
	r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.errorHandler))

	dashboardHandler, err := handlers.NewDashboardHandler(a.Dashboard, a.Logger, a.errorHandler)
	if err != nil {
		return err
	}
	dataHandler := handlers.NewDataHandler(a.Dashboard, a.Logger, a.errorHandler)
	chartHandler := handlers.NewChartHandler(a.Dashboard,
		charts.NewBuilder(charts.WithAssetsHost(sec.ChartAssetsHost)), a.Logger, a.errorHandler)
	healthHandler := handlers.NewHealthHandler(a.Health, a.Logger)
	clientLogHandler := handlers.NewClientLogHandler(a.Logger, a.errorHandler)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewSecureHeaders(sec.ChartAssetsHost).Handler)
		if sec.EnableCORS {
			r.Use(customMiddleware.CORS(corsConfig))
		}
		if sec.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(sec.RateLimit.RPS, sec.RateLimit.Burst, a.Logger).Handler)
		}
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
		r.Use(customMiddleware.Compress(compressionLevel))

		r.Get("/", dashboardHandler.Page)
		r.Mount("/charts", chartHandler.Routes())

		api := dataHandler.Routes()
		healthHandler.Routes(api)
		api.Post("/client-log", clientLogHandler.Handle)
		r.Mount("/api", api)
	})

	a.Router = r
	return nil
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", "If-None-Match"},
		ExposedHeaders: []string{"X-Request-ID", "ETag", "Retry-After"},
		MaxAge:         300,
		Logger:         a.Logger,
	}
}

func (a *Application) createServer() {
	s := a.Config.Server
	a.Server = &http.Server{
		Addr:           s.Addr(),
		Handler:        a.Router,
		ReadTimeout:    s.ReadTimeout,
		WriteTimeout:   s.WriteTimeout,
		IdleTimeout:    s.IdleTimeout,
		MaxHeaderBytes: s.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(a.Logger.Handler(), slog.LevelWarn),
	}
}

// Load reads the dataset for the first time. A failure here is fatal for
// the dashboard command; later reload failures keep the previous snapshot.
func (a *Application) Load(ctx context.Context) error {
	table, err := a.Dashboard.Reload(ctx)
	if err != nil {
		return err
	}
	a.Logger.InfoContext(ctx, "Dataset loaded",
		slog.String("source", a.Config.Dataset.Source),
		slog.Int("records", table.Len()),
		slog.String("fingerprint", table.Fingerprint()))
	return nil
}

// Run serves until ctx is cancelled or the listener fails, then shuts the
// server, hub and telemetry down. It returns nil after a clean shutdown.
func (a *Application) Run(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("address", a.Server.Addr),
		slog.String("dataset", a.Config.Dataset.Source))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Hub.Run(gctx)
	})

	if a.Config.Dataset.Watch {
		watcher, err := dataset.NewWatcher(a.Config.Dataset.Source, a.Config.Dataset.WatchDebounce, a.reload,
			infrastructure.WithComponent(a.Logger, "dataset_watcher"))
		switch {
		case errors.Is(err, dataset.ErrNotWatchable):
			a.Logger.WarnContext(ctx, "Dataset watch disabled",
				slog.String("source", a.Config.Dataset.Source),
				slog.String("reason", err.Error()))
		case err != nil:
			return fmt.Errorf("watch dataset: %w", err)
		default:
			g.Go(func() error {
				return watcher.Run(gctx)
			})
		}
	}

	g.Go(func() error {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.WithoutCancel(ctx))
	})

	return g.Wait()
}

// Stop gracefully stops the HTTP server and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if a.runtimeReg != nil {
		if err := a.runtimeReg.Unregister(); err != nil {
			a.Logger.WarnContext(ctx, "Error unregistering runtime metrics", slog.String("error", err.Error()))
		}
	}

	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// reload is the watcher callback; each reload gets its own trace ID
func (a *Application) reload(ctx context.Context) {
	ctx = infrastructure.EnsureTraceID(ctx)
	if _, err := a.Dashboard.Reload(ctx); err != nil {
		infrastructure.WithError(a.Logger, err).WarnContext(ctx, "Dataset reload failed, previous snapshot kept",
			slog.String("source", a.Config.Dataset.Source))
	}
}
