package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"abpulse/internal/app"
	"abpulse/internal/config"
	"abpulse/internal/infrastructure"
)

func main() {
	configFile := flag.String("config", "", "YAML config file (defaults to ABPULSE_CONFIG_FILE or ./config.yaml)")
	source := flag.String("source", "", "dataset path or Google Sheets URL, overrides the configured source")
	port := flag.Int("port", 0, "listen port, overrides the configured port")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configFile != "" {
		cfg, err = config.LoadFile(*configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *source != "" {
		cfg.Dataset.Source = *source
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// without a first snapshot there is nothing to serve
	if err := application.Load(ctx); err != nil {
		logger.Error("Failed to load dataset",
			slog.String("source", cfg.Dataset.Source),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
