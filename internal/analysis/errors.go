package analysis

import "errors"

var (
	// ErrInvalidInput marks a bad or unreadable video, rejected before a
	// job is created.
	ErrInvalidInput = errors.New("invalid analysis input")
	// ErrCapabilityUnavailable marks a required external capability that
	// could not be reached even after the retry budget was spent.
	ErrCapabilityUnavailable = errors.New("analysis capability unavailable")
	// ErrTransientCapability marks a capability failure worth one retry
	// before escalating to ErrCapabilityUnavailable.
	ErrTransientCapability = errors.New("transient capability error")
	// ErrNotFound is returned for unknown job ids.
	ErrNotFound = errors.New("analysis not found")
	// ErrNotReady is returned when a result is requested before the job
	// reached a terminal state.
	ErrNotReady = errors.New("analysis not ready")
	// ErrInvariantViolation marks a stage contract breach such as
	// non-monotonic timestamps. Always fatal, never retried.
	ErrInvariantViolation = errors.New("internal invariant violation")
	// ErrUnknownLabel marks capability output outside the closed label
	// sets. Wrapped into ErrInvariantViolation by the stages.
	ErrUnknownLabel = errors.New("unknown label")
	// ErrAnalysisFailed is returned when a result is requested for a job
	// that reached the failed state; the wrapped message is verbatim the
	// persisted error.
	ErrAnalysisFailed = errors.New("analysis failed")
)
