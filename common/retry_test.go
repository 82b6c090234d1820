package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetry_EventuallySucceeds(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, time.Millisecond, time.Second)

	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestRetry_Timeout(t *testing.T) {
	boom := errors.New("boom")
	err := Retry(context.Background(), func() error { return boom }, time.Millisecond, 10*time.Millisecond)

	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "retry timeout")
}

func TestRetry_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	boom := errors.New("boom")
	err := RetryIncreasing(ctx, func() error { return boom }, time.Hour, time.Hour, time.Hour)

	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "retry cancelled")
}
