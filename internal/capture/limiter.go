package capture

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sathishvj/site-to-pdf/internal/config"
)

// DomainLimiter enforces per-domain politeness: a fixed delay between visits
// to the same host, optionally combined with a token-bucket rate limit.
// Execution is strictly sequential, so no locking is needed.
type DomainLimiter struct {
	delay       time.Duration
	rateCfg     config.RateLimitConfig
	rateEnabled bool

	last     map[string]time.Time
	limiters map[string]*rate.Limiter
}

// NewDomainLimiter creates a limiter. A nil result means no limits apply.
func NewDomainLimiter(delay time.Duration, rateCfg config.RateLimitConfig) *DomainLimiter {
	if delay <= 0 && !rateCfg.Enabled() {
		return nil
	}
	l := &DomainLimiter{
		delay: delay,
		last:  make(map[string]time.Time),
	}
	if rateCfg.Enabled() {
		l.rateEnabled = true
		l.rateCfg = rateCfg
		l.limiters = make(map[string]*rate.Limiter)
	}
	return l
}

// Wait blocks until politeness constraints for the host are satisfied.
func (d *DomainLimiter) Wait(ctx context.Context, host string) error {
	if d == nil || host == "" {
		return nil
	}
	host = strings.ToLower(host)

	if d.delay > 0 {
		if last, ok := d.last[host]; ok {
			if rest := time.Until(last.Add(d.delay)); rest > 0 {
				timer := time.NewTimer(rest)
				defer timer.Stop()
				select {
				case <-timer.C:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}

	if d.rateEnabled {
		if err := d.limiter(host).Wait(ctx); err != nil {
			return err
		}
	}

	d.last[host] = time.Now()
	return nil
}

func (d *DomainLimiter) limiter(host string) *rate.Limiter {
	if l, ok := d.limiters[host]; ok {
		return l
	}
	interval := d.rateCfg.Window.Duration / time.Duration(d.rateCfg.Requests)
	if interval <= 0 {
		interval = time.Millisecond
	}
	l := rate.NewLimiter(rate.Every(interval), d.rateCfg.Requests)
	d.limiters[host] = l
	return l
}
