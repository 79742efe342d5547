// Package capture resolves capture jobs one at a time: each job runs through
// a bounded-retry state machine around single rendering attempts.
package capture

import (
	"context"
	"log/slog"
	"time"

	"github.com/sathishvj/site-to-pdf/internal/config"
	"github.com/sathishvj/site-to-pdf/pkg/types"
)

// Policy bounds the retry state machine.
type Policy struct {
	MaxAttempts     int
	TimeoutBackoff  time.Duration
	SuccessCooldown time.Duration
}

// PolicyFromConfig maps capture configuration onto a Policy.
func PolicyFromConfig(cfg config.CaptureConfig) Policy {
	return Policy{
		MaxAttempts:     cfg.MaxAttempts,
		TimeoutBackoff:  cfg.TimeoutBackoff.Duration,
		SuccessCooldown: cfg.SuccessCooldown.Duration,
	}
}

// Sleeper blocks for d or until the context ends. Injected so tests can
// observe delays without wall-clock time.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AttemptFunc performs one capture attempt for the job and returns the
// artifact path on success. The attempt owns its rendering session; release
// must happen on every exit path inside the attempt.
type AttemptFunc func(ctx context.Context, job types.CaptureJob) (string, error)

// Controller drives the per-job state machine
// Pending -> Attempting -> {Succeeded | Attempting | Exhausted}.
type Controller struct {
	policy Policy
	sleep  Sleeper
	logger *slog.Logger
}

// NewController builds a Controller with the real clock.
func NewController(policy Policy, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	return &Controller{policy: policy, sleep: sleepContext, logger: logger}
}

// WithSleeper replaces the delay function. Used by tests.
func (c *Controller) WithSleeper(s Sleeper) *Controller {
	c.sleep = s
	return c
}

// Run resolves one job to a terminal outcome. Timeout failures wait out the
// backoff before the next attempt; other failures retry immediately. A
// successful attempt is followed by the fixed cooldown to bound request rate
// against the target origin. Exhaustion is terminal and never aborts the run.
func (c *Controller) Run(ctx context.Context, job types.CaptureJob, attempt AttemptFunc) types.Outcome {
	var lastErr error

	for job.Attempts < c.policy.MaxAttempts {
		job.Attempts++

		artifact, err := attempt(ctx, job)
		if err == nil {
			c.logger.Info("page captured",
				"url", job.URL,
				"sequence", job.Sequence,
				"attempt", job.Attempts,
			)
			if err := c.sleep(ctx, c.policy.SuccessCooldown); err != nil {
				c.logger.Warn("success cooldown interrupted", "error", err)
			}
			return types.Outcome{
				Job:        job,
				State:      types.StateSucceeded,
				Attempts:   job.Attempts,
				Artifact:   artifact,
				FinishedAt: time.Now(),
			}
		}

		lastErr = err
		kind := types.Classify(err)
		c.logger.Warn("capture attempt failed",
			"url", job.URL,
			"attempt", job.Attempts,
			"max_attempts", c.policy.MaxAttempts,
			"kind", string(kind),
			"error", err,
		)

		if job.Attempts >= c.policy.MaxAttempts {
			break
		}
		if kind == types.FailureTimeout {
			if err := c.sleep(ctx, c.policy.TimeoutBackoff); err != nil {
				lastErr = err
				break
			}
		}
	}

	c.logger.Error("retries exhausted", "url", job.URL, "attempts", job.Attempts, "error", lastErr)
	return types.Outcome{
		Job:        job,
		State:      types.StateExhausted,
		Attempts:   job.Attempts,
		Err:        lastErr,
		FinishedAt: time.Now(),
	}
}
