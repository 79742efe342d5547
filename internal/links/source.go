// Package links produces the ordered, deduplicated list of target URLs to
// capture, either from an explicit seed list or by discovering navigation
// links under a base URL.
package links

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/sathishvj/site-to-pdf/internal/browser"
	"github.com/sathishvj/site-to-pdf/internal/config"
)

// Limiter gates page visits per host. Satisfied by capture.DomainLimiter.
type Limiter interface {
	Wait(ctx context.Context, host string) error
}

// Set is an insertion-idempotent collection of URLs. It is owned by the
// discovery phase and converted exactly once to an ordered sequence.
type Set map[string]struct{}

// NewSet returns an empty Set.
func NewSet() Set {
	return make(Set)
}

// Add inserts a URL. Re-adding is a no-op.
func (s Set) Add(u string) {
	s[u] = struct{}{}
}

// Has reports membership.
func (s Set) Has(u string) bool {
	_, ok := s[u]
	return ok
}

// Sorted returns the members in lexicographic order. Content-based ordering
// keeps reruns against unchanged sites deterministic.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for u := range s {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Source builds target URL sequences through rendering sessions.
type Source struct {
	browser browser.Browser
	scopes  config.LinksConfig
	limiter Limiter
	logger  *slog.Logger
}

// NewSource constructs a Source. limiter may be nil when no politeness
// limits are configured.
func NewSource(b browser.Browser, scopes config.LinksConfig, limiter Limiter, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{browser: b, scopes: scopes, limiter: limiter, logger: logger}
}

// FromSeeds returns the capture sequence for an explicit seed list.
//
// Without expansion the seed order is preserved verbatim, duplicates
// included. With expansion every seed page is visited, its anchors are
// collected into a Set alongside the seeds, and the result is deduplicated
// and lexicographically sorted. The asymmetry (dedup only when expanding) is
// deliberate and covered by tests.
func (s *Source) FromSeeds(ctx context.Context, seeds []string, expand bool) ([]string, error) {
	if !expand {
		out := make([]string, len(seeds))
		copy(out, seeds)
		return out, nil
	}

	set := NewSet()
	for _, seed := range seeds {
		set.Add(seed)
	}

	for _, seed := range seeds {
		found, err := s.visit(ctx, seed, s.scopes.ExpandScope)
		if err != nil {
			// A broken seed page loses only its own sublinks.
			s.logger.Warn("sublink expansion failed", "seed", seed, "error", err)
			continue
		}
		for _, u := range found {
			set.Add(u)
		}
		s.logger.Debug("expanded seed", "seed", seed, "links", len(found))
	}

	return set.Sorted(), nil
}

// Discover returns the capture sequence for base-URL discovery mode: every
// navigation-scoped anchor on the base page whose URL sits under the base
// URL prefix, deduplicated and sorted. Failure here is fatal for the run.
func (s *Source) Discover(ctx context.Context, baseURL string) ([]string, error) {
	found, err := s.visit(ctx, baseURL, s.scopes.NavScope)
	if err != nil {
		return nil, fmt.Errorf("discover links under %s: %w", baseURL, err)
	}

	set := NewSet()
	for _, u := range found {
		if !strings.HasPrefix(u, baseURL) {
			continue
		}
		set.Add(u)
	}

	urls := set.Sorted()
	s.logger.Info("discovery complete", "base", baseURL, "pages", len(urls))
	return urls, nil
}

func (s *Source) visit(ctx context.Context, rawURL, scope string) ([]string, error) {
	if s.limiter != nil {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("parse url %q: %w", rawURL, err)
		}
		if err := s.limiter.Wait(ctx, u.Hostname()); err != nil {
			return nil, err
		}
	}

	session, err := s.browser.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer session.Close()

	if err := session.Navigate(ctx, rawURL); err != nil {
		return nil, err
	}
	return session.ExtractLinks(ctx, scope)
}
