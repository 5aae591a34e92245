package cron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestS6CronScenarios(t *testing.T) {
	require.True(t, Matches("*/15 * * * *", time.Date(2025, 1, 1, 10, 30, 0, 0, time.UTC)))
	// 2025-01-04 is a Saturday: weekday 6, not in 1-5.
	require.False(t, Matches("0 9 * * 1-5", time.Date(2025, 1, 4, 9, 0, 0, 0, time.UTC)))
	// 2025-01-06 is a Monday: weekday 1.
	require.True(t, Matches("0 9 * * 1-5", time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)))
}

func TestMatchesEveryMinuteInWindow(t *testing.T) {
	for m := 0; m < 60; m++ {
		ts := time.Date(2025, 3, 1, 12, m, 0, 0, time.UTC)
		want := m%15 == 0
		require.Equal(t, want, Matches("*/15 * * * *", ts), "minute %d", m)
	}
}

func TestMalformedExpressionNeverMatches(t *testing.T) {
	bad := []string{"", "* * *", "60 * * * *", "* 24 * * *", "* * 0 * *", "* * * 13 *", "* * * * 7", "a b c d e"}
	for _, expr := range bad {
		require.False(t, Matches(expr, time.Now()))
		require.False(t, Valid(expr))
	}
}

func TestListsAndRanges(t *testing.T) {
	require.True(t, Matches("0,30 * * * *", time.Date(2025, 1, 1, 5, 30, 0, 0, time.UTC)))
	require.False(t, Matches("0,30 * * * *", time.Date(2025, 1, 1, 5, 15, 0, 0, time.UTC)))
	require.True(t, Matches("10-20 * * * *", time.Date(2025, 1, 1, 5, 15, 0, 0, time.UTC)))
	require.False(t, Matches("10-20 * * * *", time.Date(2025, 1, 1, 5, 25, 0, 0, time.UTC)))
}

func TestStepOverRange(t *testing.T) {
	require.True(t, Matches("0-30/10 * * * *", time.Date(2025, 1, 1, 5, 20, 0, 0, time.UTC)))
	require.False(t, Matches("0-30/10 * * * *", time.Date(2025, 1, 1, 5, 25, 0, 0, time.UTC)))
}

func TestValidAcceptsWellFormed(t *testing.T) {
	good := []string{"* * * * *", "*/5 * * * *", "0 9 * * 1-5", "0,15,30,45 * * * *", "1-5/2 * * * *"}
	for _, expr := range good {
		require.True(t, Valid(expr), expr)
	}
}
