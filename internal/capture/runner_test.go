package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sathishvj/site-to-pdf/internal/browser"
	"github.com/sathishvj/site-to-pdf/internal/store"
	"github.com/sathishvj/site-to-pdf/pkg/types"
)

// scriptedBrowser serves canned per-attempt results keyed by URL: each
// attempt pops the next error from the queue, nil meaning success.
type scriptedBrowser struct {
	attempts map[string][]error
	opened   []*scriptedSession
}

func (b *scriptedBrowser) NewSession(_ context.Context) (browser.Session, error) {
	s := &scriptedSession{b: b}
	b.opened = append(b.opened, s)
	return s, nil
}

func (b *scriptedBrowser) Close() error { return nil }

type scriptedSession struct {
	b       *scriptedBrowser
	current string
	closed  int
}

func (s *scriptedSession) Navigate(_ context.Context, rawURL string) error {
	s.current = rawURL
	queue := s.b.attempts[rawURL]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	s.b.attempts[rawURL] = queue[1:]
	return err
}

func (s *scriptedSession) InjectStyle(context.Context, string) error { return nil }

func (s *scriptedSession) RenderToPDF(_ context.Context, path string) error {
	return os.WriteFile(path, []byte("%PDF-fake "+s.current), 0o644)
}

func (s *scriptedSession) ExtractLinks(context.Context, string) ([]string, error) { return nil, nil }

func (s *scriptedSession) Close() error { s.closed++; return nil }

func immediateController() *Controller {
	return NewController(defaultPolicy(), testLogger()).
		WithSleeper(func(context.Context, time.Duration) error { return nil })
}

func newTestRunner(t *testing.T, b *scriptedBrowser) (*Runner, *store.Store) {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "temp_pdfs"))
	return &Runner{
		Browser: b,
		Store:   st,
		Ctrl:    immediateController(),
		Logger:  testLogger(),
	}, st
}

func TestRunCapturesInOrder(t *testing.T) {
	b := &scriptedBrowser{attempts: map[string][]error{}}
	urls := []string{"https://a.example/x", "https://a.example/y"}
	runner, st := newTestRunner(t, b)

	outcomes, err := runner.Run(context.Background(), urls)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	for i, o := range outcomes {
		if o.State != types.StateSucceeded {
			t.Fatalf("job %d: expected success, got %s", i, o.State)
		}
		if o.Job.Sequence != i {
			t.Fatalf("job %d: sequence %d", i, o.Job.Sequence)
		}
		if o.Artifact != st.PagePath(i) {
			t.Fatalf("job %d: artifact %q, want %q", i, o.Artifact, st.PagePath(i))
		}
		if _, err := os.Stat(o.Artifact); err != nil {
			t.Fatalf("job %d: artifact missing: %v", i, err)
		}
	}
}

func TestRunContinuesPastExhaustedJob(t *testing.T) {
	broken := "https://a.example/broken"
	b := &scriptedBrowser{attempts: map[string][]error{
		broken: {
			errors.New("attempt 1"),
			errors.New("attempt 2"),
			errors.New("attempt 3"),
		},
	}}
	urls := []string{"https://a.example/first", broken, "https://a.example/last"}
	runner, st := newTestRunner(t, b)

	outcomes, err := runner.Run(context.Background(), urls)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcomes[0].State != types.StateSucceeded || outcomes[2].State != types.StateSucceeded {
		t.Fatalf("flanking jobs must succeed, got %s and %s", outcomes[0].State, outcomes[2].State)
	}
	if outcomes[1].State != types.StateExhausted {
		t.Fatalf("expected exhausted middle job, got %s", outcomes[1].State)
	}
	if outcomes[1].Attempts != 3 {
		t.Fatalf("expected 3 attempts on broken job, got %d", outcomes[1].Attempts)
	}
	if _, err := os.Stat(st.PagePath(1)); !os.IsNotExist(err) {
		t.Fatalf("exhausted job must leave no artifact, stat err=%v", err)
	}
}

func TestRunClosesEverySessionExactlyOnce(t *testing.T) {
	flaky := "https://a.example/flaky"
	b := &scriptedBrowser{attempts: map[string][]error{
		flaky: {errors.New("first attempt fails")},
	}}
	urls := []string{flaky, "https://a.example/fine"}
	runner, _ := newTestRunner(t, b)

	if _, err := runner.Run(context.Background(), urls); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Three sessions total: two attempts for flaky, one for fine.
	if len(b.opened) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(b.opened))
	}
	for i, s := range b.opened {
		if s.closed != 1 {
			t.Fatalf("session %d closed %d times, want exactly once", i, s.closed)
		}
	}
}

func TestRunCreatesStoreLazily(t *testing.T) {
	b := &scriptedBrowser{attempts: map[string][]error{}}
	runner, st := newTestRunner(t, b)

	if _, err := os.Stat(st.Dir()); !os.IsNotExist(err) {
		t.Fatal("store dir should not exist before the run")
	}
	if _, err := runner.Run(context.Background(), []string{"https://a.example/x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(st.Dir()); err != nil {
		t.Fatalf("store dir should exist after the run: %v", err)
	}
}
