package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sathishvj/site-to-pdf/internal/browser"
	"github.com/sathishvj/site-to-pdf/internal/capture"
	"github.com/sathishvj/site-to-pdf/internal/config"
	"github.com/sathishvj/site-to-pdf/internal/history"
	"github.com/sathishvj/site-to-pdf/internal/links"
	"github.com/sathishvj/site-to-pdf/internal/merge"
	"github.com/sathishvj/site-to-pdf/internal/robots"
	"github.com/sathishvj/site-to-pdf/internal/store"
	"github.com/sathishvj/site-to-pdf/pkg/types"
)

const usage = `usage: site-to-pdf [-s] [-config path] <input-file|base-url> <output>.pdf

  <input-file>   file with one seed URL per line; -s also captures pages
                 linked from each seed
  <base-url>     capture every navigation link under this URL instead
  <output>.pdf   merged output document
`

func main() {
	inv, err := parseInvocation(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "site-to-pdf: %v\n%s", err, usage)
		os.Exit(1)
	}

	cfg := config.Default()
	if inv.configPath != "" {
		loaded, err := config.Load(inv.configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "site-to-pdf: failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = *loaded
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "site-to-pdf: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, inv, cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "site-to-pdf: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, inv *invocation, cfg config.Config, logger *slog.Logger) error {
	// Read seeds before any browser work so bad input fails fast.
	var seeds []string
	if inv.mode == modeSeeds {
		var err error
		seeds, err = readSeeds(inv.inputPath)
		if err != nil {
			return err
		}
	}

	chrome, err := browser.NewChrome(ctx, cfg.Browser, logger)
	if err != nil {
		return err
	}
	// The rendering host process is closed on every exit path below.
	defer chrome.Close()

	// One limiter is shared between discovery and capture so politeness
	// spans every visit to a host, whichever phase makes it.
	limiter := capture.NewDomainLimiter(cfg.Capture.PerDomainDelay.Duration, cfg.Capture.RateLimit)

	var sourceLimiter links.Limiter
	if limiter != nil {
		sourceLimiter = limiter
	}
	source := links.NewSource(chrome, cfg.Links, sourceLimiter, logger)

	var urls []string
	switch inv.mode {
	case modeSeeds:
		urls, err = source.FromSeeds(ctx, seeds, inv.expand)
	case modeDiscover:
		urls, err = source.Discover(ctx, inv.baseURL)
	}
	if err != nil {
		return err
	}
	logger.Info("capture list ready", "pages", len(urls))

	artifacts := store.New(cfg.Store.Dir)
	runner := &capture.Runner{
		Browser:  chrome,
		Store:    artifacts,
		Ctrl:     capture.NewController(capture.PolicyFromConfig(cfg.Capture), logger),
		Limiter:  limiter,
		WidenCSS: cfg.Browser.WidenCSS,
		Logger:   logger,
	}
	if cfg.Robots.Respect {
		runner.Robots = robots.NewAgent(cfg.Robots, &http.Client{Timeout: 10 * time.Second})
	}

	outcomes, err := runner.Run(ctx, urls)
	if err != nil {
		return err
	}

	recordHistory(ctx, cfg, logger, outcomes)

	paths := merge.ArtifactPaths(outcomes)
	if err := merge.Merge(paths, inv.output); err != nil {
		return err
	}
	logger.Info("merged output written", "output", inv.output, "pages", len(paths))

	if promptYesNo(os.Stdin, os.Stdout, fmt.Sprintf("Delete temporary directory %s?", artifacts.Dir())) {
		if err := artifacts.Remove(); err != nil {
			// Cleanup failure never fails a run whose merge succeeded.
			logger.Warn("cleanup failed", "error", err)
		}
	}
	return nil
}

// recordHistory journals the run when a history DSN is configured. Journal
// failures are logged and never fail the run.
func recordHistory(ctx context.Context, cfg config.Config, logger *slog.Logger, outcomes []types.Outcome) {
	if !cfg.History.Enabled() {
		return
	}
	journal, err := history.Open(cfg.History)
	if err != nil {
		logger.Warn("history journal unavailable", "error", err)
		return
	}
	defer journal.Close()

	runID := time.Now().UTC().Format("20060102T150405Z")
	if err := journal.RecordRun(ctx, runID, outcomes); err != nil {
		logger.Warn("history record failed", "run_id", runID, "error", err)
		return
	}
	logger.Debug("history recorded", "run_id", runID, "outcomes", len(outcomes))
}

func buildLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unsupported log level %q", cfg.Level)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Structured {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler), nil
}
