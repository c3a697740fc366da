// Package snapshot captures the rendered dashboard with a headless Chrome.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// ErrInvalidURL is returned for targets that are not absolute http(s) URLs
var ErrInvalidURL = errors.New("invalid snapshot url")

// Options configures one capture
type Options struct {
	URL     string
	Timeout time.Duration

	// WaitSelector must be visible before the page is captured
	WaitSelector string

	// Settle gives the chart frames time to draw after the page is ready
	Settle time.Duration

	Width  int64
	Height int64

	// Quality 100 produces a PNG, anything lower a JPEG
	Quality int

	Headless bool
}

// DefaultOptions captures http://localhost:8080/ at 1440x900
func DefaultOptions() Options {
	return Options{
		URL:          "http://localhost:8080/",
		Timeout:      30 * time.Second,
		WaitSelector: "body",
		Settle:       2 * time.Second,
		Width:        1440,
		Height:       900,
		Quality:      100,
		Headless:     true,
	}
}

// Validate checks the target URL and fills zero values from DefaultOptions
func (o *Options) Validate() error {
	u, err := url.Parse(o.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, o.URL)
	}
	def := DefaultOptions()
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	if o.WaitSelector == "" {
		o.WaitSelector = def.WaitSelector
	}
	if o.Width <= 0 || o.Height <= 0 {
		o.Width, o.Height = def.Width, def.Height
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = def.Quality
	}
	if o.Settle < 0 {
		o.Settle = 0
	}
	return nil
}

// Capture loads the page and returns a full-page PNG
func Capture(ctx context.Context, opts Options, logger *slog.Logger) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(int(opts.Width), int(opts.Height)),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancel := context.WithTimeout(browserCtx, opts.Timeout)
	defer cancel()

	var buf []byte
	start := time.Now()
	if err := chromedp.Run(runCtx, Tasks(opts, &buf, logger)); err != nil {
		return nil, fmt.Errorf("capture %s: %w", opts.URL, err)
	}
	logger.InfoContext(ctx, "dashboard captured",
		slog.String("url", opts.URL),
		slog.Int("bytes", len(buf)),
		slog.Duration("duration", time.Since(start)))
	return buf, nil
}

// Tasks is the browser script of a capture
func Tasks(opts Options, buf *[]byte, logger *slog.Logger) chromedp.Tasks {
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(opts.Width, opts.Height),
		timedAction("navigate", chromedp.Navigate(opts.URL), logger),
		timedAction("wait", chromedp.WaitVisible(opts.WaitSelector, chromedp.ByQuery), logger),
	}
	if opts.Settle > 0 {
		tasks = append(tasks, chromedp.Sleep(opts.Settle))
	}
	return append(tasks, timedAction("screenshot", chromedp.FullScreenshot(buf, opts.Quality), logger))
}

// Save captures the page and writes it to path, creating parent directories
func Save(ctx context.Context, opts Options, path string, logger *slog.Logger) error {
	png, err := Capture(ctx, opts, logger)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func timedAction(name string, act chromedp.Action, logger *slog.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		start := time.Now()
		err := act.Do(ctx)
		if logger != nil {
			logger.DebugContext(ctx, "browser step",
				slog.String("step", name),
				slog.Duration("duration", time.Since(start)),
				slog.Bool("ok", err == nil))
		}
		return err
	})
}
