// Package retryutil implements a retry-on-classified-error combinator for
// operations against live pages whose DOM mutates out-of-band.
package retryutil

import (
	"context"
	"strings"
	"time"
)

// Classifier reports whether an error is transient and worth retrying.
type Classifier func(err error) bool

// Schedule returns the backoff delay before the given retry (1-based).
// Attempts past the end of the schedule hold at the last value.
type Schedule []time.Duration

// DefaultSchedule is the backoff used for live-UI interactions.
var DefaultSchedule = Schedule{
	250 * time.Millisecond,
	500 * time.Millisecond,
	750 * time.Millisecond,
}

func (s Schedule) delay(retry int) time.Duration {
	if len(s) == 0 {
		return 0
	}
	if retry >= len(s) {
		return s[len(s)-1]
	}
	return s[retry]
}

// Do runs op, retrying while the classifier reports the error as transient.
// `attempts` is the total attempt count including the first. A non-transient
// error, or exhaustion of attempts, propagates immediately.
func Do(ctx context.Context, attempts int, schedule Schedule, classify Classifier, op func() error) error {
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(schedule.delay(attempt - 1)):
			}
		}

		err = op()
		if err == nil {
			return nil
		}
		if !classify(err) {
			return err
		}
	}
	return err
}

// IsDetachedError classifies errors raised when the live page re-renders
// mid-interaction: the target element is no longer attached to the page, or
// the browsing context was torn down under us.
func IsDetachedError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"not attached to the page",
		"detached from the page",
		"node with given id does not belong to the document",
		"cannot find context with specified id",
		"execution context was destroyed",
		"target closed",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
