package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/sathishvj/site-to-pdf/internal/config"
	"github.com/sathishvj/site-to-pdf/pkg/types"
)

// Paper dimensions in inches for PrintToPDF.
var paperSizes = map[string][2]float64{
	"A4":     {8.27, 11.69},
	"LETTER": {8.5, 11},
}

type chromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   config.BrowserConfig
	logger *slog.Logger

	closeOnce sync.Once
}

// Navigate loads the URL and waits until no network requests have been in
// flight for the idle window, or fails with a timeout once the navigation
// deadline elapses.
func (s *chromeSession) Navigate(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	navCtx, cancel := context.WithTimeout(s.ctx, s.opts.NavTimeout.Duration)
	defer cancel()

	var inflight atomic.Int64
	var lastEvent atomic.Int64
	lastEvent.Store(time.Now().UnixNano())

	chromedp.ListenTarget(navCtx, func(ev any) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			inflight.Add(1)
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			inflight.Add(-1)
		default:
			return
		}
		lastEvent.Store(time.Now().UnixNano())
	})

	start := time.Now()
	if err := chromedp.Run(navCtx, network.Enable(), chromedp.Navigate(rawURL)); err != nil {
		return classifyNav(navCtx, rawURL, err)
	}

	idle := s.opts.IdleWindow.Duration
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-navCtx.Done():
			return classifyNav(navCtx, rawURL, navCtx.Err())
		case <-ticker.C:
			quietFor := time.Since(time.Unix(0, lastEvent.Load()))
			if inflight.Load() <= 0 && quietFor >= idle {
				s.logger.Debug("navigation settled",
					"url", rawURL,
					"latency_ms", time.Since(start).Milliseconds(),
				)
				return nil
			}
		}
	}
}

func classifyNav(navCtx context.Context, rawURL string, err error) error {
	kind := types.FailureOther
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(navCtx.Err(), context.DeadlineExceeded) {
		kind = types.FailureTimeout
	}
	return &types.CaptureError{
		Kind: kind,
		Err:  fmt.Errorf("navigate %s: %w", rawURL, err),
	}
}

// InjectStyle appends a <style> element with the given CSS to the document
// head so print capture is not constrained by screen layout rules.
func (s *chromeSession) InjectStyle(ctx context.Context, css string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(css) == "" {
		return nil
	}
	script, err := styleInjectionScript(css)
	if err != nil {
		return &types.CaptureError{Kind: types.FailureOther, Err: err}
	}
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(script, nil)); err != nil {
		return &types.CaptureError{Kind: types.FailureOther, Err: fmt.Errorf("inject style: %w", err)}
	}
	return nil
}

// styleInjectionScript embeds css in a JavaScript string literal via JSON
// encoding. Go's %q verb is not usable here: it writes \U escapes for runes
// outside the basic multilingual plane, which JavaScript rejects.
func styleInjectionScript(css string) (string, error) {
	encoded, err := json.Marshal(css)
	if err != nil {
		return "", fmt.Errorf("encode style: %w", err)
	}
	return fmt.Sprintf(
		`(() => { const el = document.createElement('style'); el.textContent = %s; document.head.appendChild(el); })()`,
		encoded,
	), nil
}

// RenderToPDF prints the current document to path. On failure no file is
// left behind.
func (s *chromeSession) RenderToPDF(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	size, ok := paperSizes[strings.ToUpper(s.opts.PageFormat)]
	if !ok {
		size = paperSizes["A4"]
	}

	var buf []byte
	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(cctx context.Context) error {
		data, _, err := page.PrintToPDF().
			WithPaperWidth(size[0]).
			WithPaperHeight(size[1]).
			WithPrintBackground(true).
			Do(cctx)
		if err != nil {
			return err
		}
		buf = data
		return nil
	}))
	if err != nil {
		return &types.CaptureError{Kind: types.FailureOther, Err: fmt.Errorf("print to pdf: %w", err)}
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		_ = os.Remove(path)
		return &types.CaptureError{Kind: types.FailureOther, Err: fmt.Errorf("write artifact: %w", err)}
	}
	return nil
}

// ExtractLinks pulls every resolved anchor URL under the selector scope from
// the rendered document, in document order, deduplicated.
func (s *chromeSession) ExtractLinks(ctx context.Context, scope string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var html, location string
	err := chromedp.Run(s.ctx,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	base, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parse location %q: %w", location, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return ResolveAnchors(doc, base, scope), nil
}

// ResolveAnchors extracts absolute http(s) anchor targets scoped by selector,
// resolving relative hrefs against base and stripping fragments.
func ResolveAnchors(doc *goquery.Document, base *url.URL, scope string) []string {
	seen := make(map[string]struct{})
	var links []string

	doc.Find(scope).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}
		u, err := base.Parse(href)
		if err != nil {
			return
		}
		u.Fragment = ""
		scheme := strings.ToLower(u.Scheme)
		if scheme != "http" && scheme != "https" {
			return
		}
		key := u.String()
		if _, exists := seen[key]; exists {
			return
		}
		seen[key] = struct{}{}
		links = append(links, key)
	})

	return links
}

// Close releases the tab. Idempotent; errors from Chrome teardown are not
// surfaced because release is best-effort on every attempt exit path.
func (s *chromeSession) Close() error {
	s.closeOnce.Do(s.cancel)
	return nil
}
