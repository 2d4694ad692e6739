package throttle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"highlight-bot/internal/infra/throttle"

	"github.com/stretchr/testify/require"
)

type stopErr struct{}

func (stopErr) Error() string   { return "forbidden" }
func (stopErr) StopRetry() bool { return true }

type waitErr struct{ d time.Duration }

func (e waitErr) Error() string { return "rate limited" }

func recordSleeps(out *[]time.Duration) throttle.Option {
	return throttle.WithSleep(func(_ context.Context, d time.Duration) error {
		*out = append(*out, d)
		return nil
	})
}

func TestDoRetries(t *testing.T) {
	t.Parallel()

	var sleeps []time.Duration
	th := throttle.New(100,
		throttle.WithMaxRetries(2),
		throttle.WithRandom(func() float64 { return 0.5 }),
		throttle.WithWaitExtractors(func(err error) (time.Duration, bool) {
			var w waitErr
			if errors.As(err, &w) {
				return w.d, true
			}
			return 0, false
		}),
		recordSleeps(&sleeps),
	)
	th.Start(context.Background())
	defer th.Stop()

	// Серверная пауза не расходует лимит повторов.
	calls := 0
	err := th.Do(context.Background(), func() error {
		calls++
		if calls <= 3 {
			return waitErr{d: 3 * time.Second}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 4, calls)
	require.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second, 3 * time.Second}, sleeps)

	sleeps = nil
	calls = 0
	err = th.Do(context.Background(), func() error {
		calls++
		return errors.New("boom")
	})
	require.ErrorContains(t, err, "max retries reached (2)")
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeps)

	calls = 0
	err = th.Do(context.Background(), func() error {
		calls++
		return stopErr{}
	})
	require.ErrorIs(t, err, stopErr{})
	require.Equal(t, 1, calls)
}

func TestDoNotStarted(t *testing.T) {
	t.Parallel()

	th := throttle.New(1)
	require.ErrorIs(t, th.Do(context.Background(), func() error { return nil }), throttle.ErrNotStarted)

	th.Start(context.Background())
	require.NoError(t, th.Do(context.Background(), func() error { return nil }))
	th.Stop()
	require.ErrorIs(t, th.Do(context.Background(), func() error { return nil }), throttle.ErrNotStarted)
}
