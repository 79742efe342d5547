package types

import (
	"context"
	"errors"
	"time"
)

// CaptureJob is the unit of work for one target URL. The sequence index is
// assigned once by the link source and fixes both the artifact filename and
// the final merge position.
type CaptureJob struct {
	URL      string
	Sequence int
	Attempts int
}

// JobState models the retry controller's per-job state machine.
type JobState string

const (
	StatePending    JobState = "pending"
	StateAttempting JobState = "attempting"
	StateSucceeded  JobState = "succeeded"
	StateExhausted  JobState = "exhausted"
	StateSkipped    JobState = "skipped"
)

// Terminal reports whether the state admits no further transitions.
func (s JobState) Terminal() bool {
	return s == StateSucceeded || s == StateExhausted || s == StateSkipped
}

// Outcome records how a single job resolved. One Outcome is produced per job
// regardless of how many attempts it consumed; the runner collects the full
// list and reports over it once.
type Outcome struct {
	Job        CaptureJob
	State      JobState
	Attempts   int
	Artifact   string
	Err        error
	FinishedAt time.Time
}

// FailureKind classifies a capture attempt failure for backoff selection.
type FailureKind string

const (
	FailureTimeout FailureKind = "timeout"
	FailureOther   FailureKind = "other"
)

// CaptureError wraps an attempt failure with its classification.
type CaptureError struct {
	Kind FailureKind
	Err  error
}

func (e *CaptureError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Classify maps an attempt error onto the failure taxonomy. A navigation that
// ran out of deadline is a timeout; everything else retries without delay.
func Classify(err error) FailureKind {
	if err == nil {
		return ""
	}
	var ce *CaptureError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	return FailureOther
}
