package retryutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errDetached = fmt.Errorf("element: is not attached to the page")

func instantSchedule() Schedule {
	return Schedule{time.Millisecond, time.Millisecond, time.Millisecond}
}

func TestSucceedsOnThirdAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, instantSchedule(), IsDetachedError, func() error {
		calls++
		if calls < 3 {
			return errDetached
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, instantSchedule(), IsDetachedError, func() error {
		calls++
		return errDetached
	})
	require.ErrorIs(t, err, errDetached)
	require.Equal(t, 3, calls)
}

func TestNonTransientPropagatesImmediately(t *testing.T) {
	fatal := fmt.Errorf("login expired")
	calls := 0
	err := Do(context.Background(), 3, instantSchedule(), IsDetachedError, func() error {
		calls++
		return fatal
	})
	require.ErrorIs(t, err, fatal)
	require.Equal(t, 1, calls)
}

func TestScheduleHoldsAtLastValue(t *testing.T) {
	s := DefaultSchedule
	require.Equal(t, 250*time.Millisecond, s.delay(0))
	require.Equal(t, 500*time.Millisecond, s.delay(1))
	require.Equal(t, 750*time.Millisecond, s.delay(2))
	require.Equal(t, 750*time.Millisecond, s.delay(7))
}

func TestContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Do(ctx, 3, instantSchedule(), IsDetachedError, func() error {
		calls++
		return errDetached
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestClassifier(t *testing.T) {
	require.True(t, IsDetachedError(fmt.Errorf("Execution context was destroyed")))
	require.True(t, IsDetachedError(errDetached))
	require.False(t, IsDetachedError(fmt.Errorf("no such column")))
	require.False(t, IsDetachedError(nil))
}
