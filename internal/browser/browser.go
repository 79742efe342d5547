// Package browser drives headless Chrome sessions for page capture. One
// Browser owns a single Chrome process for the whole run; each capture
// attempt opens and closes its own Session (tab).
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/sathishvj/site-to-pdf/internal/config"
)

// Session is one browser tab scoped to a single capture attempt.
type Session interface {
	// Navigate loads the URL and waits for network quiescence, bounded by
	// the configured navigation deadline.
	Navigate(ctx context.Context, rawURL string) error
	// InjectStyle appends a stylesheet to the current document.
	InjectStyle(ctx context.Context, css string) error
	// RenderToPDF prints the current document to a fixed-format PDF file.
	RenderToPDF(ctx context.Context, path string) error
	// ExtractLinks returns every resolved absolute anchor URL under the
	// given CSS selector scope.
	ExtractLinks(ctx context.Context, scope string) ([]string, error)
	// Close releases the tab. Safe to call more than once.
	Close() error
}

// Browser opens sessions against a shared rendering process.
type Browser interface {
	NewSession(ctx context.Context) (Session, error)
	Close() error
}

// Chrome is the chromedp-backed Browser.
type Chrome struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	opts        config.BrowserConfig
	logger      *slog.Logger
}

// NewChrome launches the Chrome allocator that all sessions share.
func NewChrome(ctx context.Context, opts config.BrowserConfig, logger *slog.Logger) (*Chrome, error) {
	if logger == nil {
		logger = slog.Default()
	}

	headless := !opts.DisableHeadless
	execOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	execOpts = append(execOpts,
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	)
	if ua := strings.TrimSpace(opts.UserAgent); ua != "" {
		execOpts = append(execOpts, chromedp.UserAgent(ua))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOpts...)

	// Start the process eagerly so a missing Chrome binary fails the run
	// before any jobs are attempted.
	probe, probeCancel := chromedp.NewContext(allocCtx)
	defer probeCancel()
	if err := chromedp.Run(probe); err != nil {
		allocCancel()
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	return &Chrome{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		opts:        opts,
		logger:      logger,
	}, nil
}

// NewSession opens a fresh tab.
func (c *Chrome) NewSession(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tabCtx, tabCancel := chromedp.NewContext(c.allocCtx)
	return &chromeSession{
		ctx:    tabCtx,
		cancel: tabCancel,
		opts:   c.opts,
		logger: c.logger,
	}, nil
}

// Close shuts down the shared Chrome process.
func (c *Chrome) Close() error {
	c.allocCancel()
	return nil
}
