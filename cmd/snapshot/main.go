// Command snapshot saves a full-page screenshot of a running dashboard.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"abpulse/internal/config"
	"abpulse/internal/infrastructure"
	"abpulse/internal/snapshot"
)

func main() {
	def := snapshot.DefaultOptions()
	target := flag.String("url", def.URL, "dashboard URL including any filter query")
	out := flag.String("out", "dashboard.png", "output image path")
	timeout := flag.Duration("timeout", def.Timeout, "overall capture timeout")
	settle := flag.Duration("settle", def.Settle, "extra wait for charts after the page is visible")
	width := flag.Int64("width", def.Width, "viewport width")
	height := flag.Int64("height", def.Height, "viewport height")
	headful := flag.Bool("headful", false, "show the browser window")
	flag.Parse()

	logger, err := infrastructure.NewLogger(config.LoggingConfig{Level: "info", Output: "console"}, os.Stderr)
	if err != nil {
		slog.Error("Failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := def
	opts.URL = *target
	opts.Timeout = *timeout
	opts.Settle = *settle
	opts.Width = *width
	opts.Height = *height
	opts.Headless = !*headful

	if err := snapshot.Save(ctx, opts, *out, logger); err != nil {
		logger.Error("Snapshot failed", slog.String("url", opts.URL), slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
	logger.Info("Snapshot saved", slog.String("path", *out))
}
