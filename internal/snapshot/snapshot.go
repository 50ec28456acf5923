// Package snapshot renders HTML documents to PNG with headless Chrome, for
// share images and report previews.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Default viewport matches the common og:image size.
const (
	DefaultWidth  = 1200
	DefaultHeight = 630
)

// Options configures a capture.
type Options struct {
	Width    int
	Height   int
	FullPage bool

	// RemoteURL is the DevTools WebSocket URL of a running Chrome. Empty
	// launches a local headless instance for the capture.
	RemoteURL string

	// Timeout bounds the whole capture. Default: 30s.
	Timeout time.Duration

	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// HTML renders the given document and returns a PNG.
func HTML(ctx context.Context, src string, opts Options) ([]byte, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("snapshot: empty document")
	}
	return capture(ctx, opts, func(page *rod.Page) error {
		if err := page.SetDocumentContent(src); err != nil {
			return fmt.Errorf("set content: %w", err)
		}
		return nil
	})
}

// URL navigates to pageURL and returns a PNG of it.
func URL(ctx context.Context, pageURL string, opts Options) ([]byte, error) {
	if pageURL == "" {
		return nil, fmt.Errorf("snapshot: empty url")
	}
	return capture(ctx, opts, func(page *rod.Page) error {
		if err := page.Navigate(pageURL); err != nil {
			return fmt.Errorf("navigate: %w", err)
		}
		return nil
	})
}

func capture(ctx context.Context, opts Options, load func(*rod.Page) error) ([]byte, error) {
	opts.defaults()
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	browser, closeBrowser, err := connect(opts)
	if err != nil {
		return nil, err
	}
	defer closeBrowser()

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("snapshot: open page: %w", err)
	}
	defer page.Close()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("snapshot: viewport: %w", err)
	}
	if err := load(page); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("snapshot: wait load: %w", err)
	}

	start := time.Now()
	png, err := page.Screenshot(opts.FullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: screenshot: %w", err)
	}
	opts.Logger.Info("snapshot captured",
		"width", opts.Width,
		"height", opts.Height,
		"bytes", len(png),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return png, nil
}

func connect(opts Options) (*rod.Browser, func(), error) {
	wsURL := opts.RemoteURL
	var l *launcher.Launcher
	if wsURL == "" {
		l = launcher.New().Headless(true).NoSandbox(true)
		u, err := l.Launch()
		if err != nil {
			return nil, nil, fmt.Errorf("snapshot: launch: %w", err)
		}
		wsURL = u
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if l != nil {
			l.Kill()
		}
		return nil, nil, fmt.Errorf("snapshot: connect: %w", err)
	}
	return b, func() {
		if l == nil {
			return
		}
		if err := b.Close(); err != nil {
			opts.Logger.Warn("snapshot: close browser", "error", err)
		}
		l.Cleanup()
	}, nil
}
