package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"talklens-backend/internal/shared/telemetry"
	"talklens-backend/internal/speech"
	"talklens-backend/internal/vision"
)

const capabilityRetryDelay = 300 * time.Millisecond

// isTransient classifies capability failures worth one retry. Invariant
// violations are never transient.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvariantViolation) {
		return false
	}
	return errors.Is(err, vision.ErrUnavailable) ||
		errors.Is(err, speech.ErrUnavailable) ||
		errors.Is(err, ErrTransientCapability)
}

// callWithRetry runs the capability call, retrying exactly once after a
// transient failure. A second transient failure escalates to
// ErrCapabilityUnavailable.
func callWithRetry(ctx context.Context, jobID string, call func() error) error {
	err := call()
	if err == nil || !isTransient(err) {
		return err
	}

	telemetry.Warn("analysis.capability.retry", map[string]any{
		"job_id": jobID,
		"err":    err.Error(),
	})
	select {
	case <-time.After(capabilityRetryDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	err = call()
	if err != nil && isTransient(err) {
		return fmt.Errorf("%w: %v", ErrCapabilityUnavailable, err)
	}
	return err
}
