package activity_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"highlight-bot/internal/domain/activity"
	"highlight-bot/internal/domain/rules"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(sec int) {
	c.mu.Lock()
	c.now = time.Unix(1_700_000_000+int64(sec), 0)
	c.mu.Unlock()
}

func settings(fixed, global bool) rules.Settings {
	d := 10
	return rules.Settings{DebounceTime: &d, DebounceFixed: &fixed, DebounceGlobal: &global}
}

func TestDebounceWindows(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		fixed bool
		at    []int
		want  []bool
	}{
		{name: "фиксированное окно", fixed: true, at: []int{0, 5, 12}, want: []bool{true, false, true}},
		{name: "скользящее окно", fixed: false, at: []int{0, 5, 12}, want: []bool{true, false, false}},
		{name: "скользящее окно истекает", fixed: false, at: []int{0, 5, 16}, want: []bool{true, false, true}},
		{name: "граница окна включительно", fixed: true, at: []int{0, 10, 11}, want: []bool{true, false, true}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			clock := &fakeClock{}
			tr := activity.NewTracker(clock.Now)
			s := settings(tc.fixed, false)

			got := make([]bool, 0, len(tc.at))
			for _, sec := range tc.at {
				clock.Set(sec)
				got = append(got, len(tr.Debounce(1, 2, s, []string{"X"})) == 1)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("debounce decisions (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDebouncePerRuleAndGlobal(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{}
	clock.Set(0)

	tr := activity.NewTracker(clock.Now)
	perRule := settings(true, false)
	require.Equal(t, []string{"A"}, tr.Debounce(1, 2, perRule, []string{"A"}))
	clock.Set(3)
	require.Equal(t, []string{"B"}, tr.Debounce(1, 2, perRule, []string{"A", "B"}))
	// Другой канал и другой пользователь считаются отдельно.
	require.Equal(t, []string{"A"}, tr.Debounce(9, 2, perRule, []string{"A"}))
	require.Equal(t, []string{"A"}, tr.Debounce(1, 3, perRule, []string{"A"}))

	tg := activity.NewTracker(clock.Now)
	global := settings(true, true)
	clock.Set(0)
	require.Equal(t, []string{"A"}, tg.Debounce(1, 2, global, []string{"A"}))
	clock.Set(3)
	require.Empty(t, tg.Debounce(1, 2, global, []string{"B", "C"}))
	clock.Set(11)
	require.Equal(t, []string{"B", "C"}, tg.Debounce(1, 2, global, []string{"B", "C"}))

	require.Empty(t, tg.Debounce(1, 2, global, nil))
	_, highlights := tg.Stats()
	require.Equal(t, 1, highlights)
}

func TestActivity(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{}
	clock.Set(100)
	tr := activity.NewTracker(clock.Now)

	require.True(t, tr.LastActive(1, 2).IsZero())
	require.False(t, activity.ActiveWithin(tr.LastActive(1, 2), clock.Now(), time.Hour))

	start := clock.Now()
	tr.MarkActive(1, 2, start.Add(-30*time.Second))
	require.True(t, activity.ActiveWithin(tr.LastActive(1, 2), clock.Now(), 30*time.Second))
	require.False(t, activity.ActiveWithin(tr.LastActive(1, 2), clock.Now(), 29*time.Second))
	require.False(t, tr.AdvancedSince(1, 2, start))

	clock.Set(105)
	tr.Touch(1, 2)
	require.True(t, tr.AdvancedSince(1, 2, start))
	require.False(t, tr.AdvancedSince(1, 3, start))

	active, _ := tr.Stats()
	require.Equal(t, 1, active)
}

func TestMarkActiveNeverMovesBack(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{}
	tr := activity.NewTracker(clock.Now)

	// Сообщение в 100.9 с, затем запоздавший typing с меткой 100 с.
	message := time.Unix(1_700_000_100, 900_000_000)
	tr.MarkActive(1, 2, message)
	captured := tr.LastActive(1, 2)
	tr.MarkActive(1, 2, time.Unix(1_700_000_100, 0))

	require.Equal(t, message, tr.LastActive(1, 2))
	require.False(t, tr.AdvancedSince(1, 2, captured))

	later := message.Add(time.Second)
	tr.MarkActive(1, 2, later)
	require.Equal(t, later, tr.LastActive(1, 2))
	require.True(t, tr.AdvancedSince(1, 2, captured))
}

func TestSchedulerRunsAndDrops(t *testing.T) {
	t.Parallel()

	s := activity.NewScheduler()
	var ran atomic.Int32

	// Не запущен: продолжение отбрасывается.
	s.After(time.Millisecond, func(context.Context) { ran.Add(1) })
	require.Zero(t, s.Pending())

	s.Start(context.Background())
	done := make(chan struct{})
	s.After(5*time.Millisecond, func(ctx context.Context) {
		require.NoError(t, ctx.Err())
		ran.Add(1)
		close(done)
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("continuation did not run")
	}
	require.Equal(t, int32(1), ran.Load())

	s.After(time.Hour, func(context.Context) { ran.Add(1) })
	require.Equal(t, 1, s.Pending())
	s.Stop()
	require.Zero(t, s.Pending())
	require.Equal(t, int32(1), ran.Load())

	// После остановки новые продолжения не принимаются.
	s.After(time.Millisecond, func(context.Context) { ran.Add(1) })
	require.Zero(t, s.Pending())
}
