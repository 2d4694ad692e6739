package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"highlight-bot/internal/domain/rules"
)

func TestUserAndRest(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		id   rules.ID
		rest string
		ok   bool
	}{
		{in: "42 add go", id: 42, rest: "add go", ok: true},
		{in: "42", id: 42, ok: true},
		{in: "bob add go"},
		{in: "0 show"},
		{in: ""},
	}
	for _, tc := range cases {
		id, rest, ok := userAndRest(tc.in)
		require.Equal(t, tc.ok, ok, tc.in)
		require.Equal(t, tc.id, id, tc.in)
		require.Equal(t, tc.rest, rest, tc.in)
	}
}

func TestExitStopsApp(t *testing.T) {
	t.Parallel()

	stopped := false
	s := NewService(Deps{}, func() { stopped = true })
	require.False(t, s.handleCommand(context.Background(), ""))
	require.True(t, s.handleCommand(context.Background(), "exit"))
	require.True(t, stopped)
}
