package capture

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/sathishvj/site-to-pdf/internal/browser"
	"github.com/sathishvj/site-to-pdf/internal/robots"
	"github.com/sathishvj/site-to-pdf/internal/store"
	"github.com/sathishvj/site-to-pdf/pkg/types"
)

// Runner resolves jobs strictly sequentially: one job runs through all its
// attempts before the next begins.
type Runner struct {
	Browser  browser.Browser
	Store    *store.Store
	Ctrl     *Controller
	Limiter  *DomainLimiter
	Robots   *robots.Agent
	WidenCSS string
	Logger   *slog.Logger
}

// Run captures every URL in order and returns one outcome per job, in job
// order. A job's permanent failure never aborts the run; partial success is
// the expected steady state against flaky targets.
func (r *Runner) Run(ctx context.Context, urls []string) ([]types.Outcome, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := r.Store.Ensure(); err != nil {
		return nil, err
	}

	outcomes := make([]types.Outcome, 0, len(urls))
	for i, raw := range urls {
		job := types.CaptureJob{URL: raw, Sequence: i}

		if skipped, ok := r.checkRobots(ctx, job); ok {
			logger.Warn("blocked by robots", "url", raw)
			outcomes = append(outcomes, skipped)
			continue
		}

		outcomes = append(outcomes, r.Ctrl.Run(ctx, job, r.attempt))
	}

	summarise(logger, outcomes)
	return outcomes, nil
}

// attempt performs one capture: fresh session, navigate with quiescence
// wait, widen layout, print to the index-derived artifact path. The session
// is released on every exit path before the next attempt begins.
func (r *Runner) attempt(ctx context.Context, job types.CaptureJob) (string, error) {
	if r.Limiter != nil {
		if u, err := url.Parse(job.URL); err == nil {
			if err := r.Limiter.Wait(ctx, u.Hostname()); err != nil {
				return "", err
			}
		}
	}

	session, err := r.Browser.NewSession(ctx)
	if err != nil {
		return "", err
	}
	defer session.Close()

	if err := session.Navigate(ctx, job.URL); err != nil {
		return "", err
	}
	if err := session.InjectStyle(ctx, r.WidenCSS); err != nil {
		return "", err
	}

	path := r.Store.PagePath(job.Sequence)
	if err := session.RenderToPDF(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}

func (r *Runner) checkRobots(ctx context.Context, job types.CaptureJob) (types.Outcome, bool) {
	if r.Robots == nil {
		return types.Outcome{}, false
	}
	u, err := url.Parse(job.URL)
	if err != nil {
		return types.Outcome{}, false
	}
	if r.Robots.Allowed(ctx, u) {
		return types.Outcome{}, false
	}
	return types.Outcome{
		Job:        job,
		State:      types.StateSkipped,
		FinishedAt: time.Now(),
	}, true
}

func summarise(logger *slog.Logger, outcomes []types.Outcome) {
	var succeeded, exhausted, skipped int
	for _, o := range outcomes {
		switch o.State {
		case types.StateSucceeded:
			succeeded++
		case types.StateExhausted:
			exhausted++
		case types.StateSkipped:
			skipped++
		}
	}
	logger.Info("capture run complete",
		"jobs", len(outcomes),
		"succeeded", succeeded,
		"exhausted", exhausted,
		"skipped", skipped,
	)
}
