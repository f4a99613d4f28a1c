package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustParseSchedule(t *testing.T, raw RawSchedule) Schedule {
	schedule, err := raw.Parse()
	if err != nil {
		t.Fatal(err)
	}
	return schedule
}

func allWildcards() RawSchedule {
	return RawSchedule{
		Minutes: "*",
		Hours:   "*",
		Days:    "*",
		Months:  "*",
		Years:   "*",
	}
}

func TestScheduleAllWildcardsAlwaysDue(t *testing.T) {
	schedule := mustParseSchedule(t, allWildcards())

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60*24; i++ {
		require.True(t, schedule.IsDue(now))
		now = now.Add(time.Minute)
	}
}

func TestScheduleMinuteSet(t *testing.T) {
	raw := allWildcards()
	raw.Minutes = []any{float64(0), float64(30)}
	schedule := mustParseSchedule(t, raw)

	require.True(t, schedule.IsDue(time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)))
	require.True(t, schedule.IsDue(time.Date(2024, 5, 10, 12, 30, 0, 0, time.UTC)))
	require.False(t, schedule.IsDue(time.Date(2024, 5, 10, 12, 15, 0, 0, time.UTC)))
}

func TestScheduleConjunction(t *testing.T) {
	raw := allWildcards()
	raw.Minutes = []any{float64(0)}
	raw.Hours = []any{float64(9), float64(17)}
	raw.Days = []any{float64(1)}
	schedule := mustParseSchedule(t, raw)

	require.True(t, schedule.IsDue(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)))
	require.True(t, schedule.IsDue(time.Date(2024, 5, 1, 17, 0, 0, 0, time.UTC)))
	// right hour, wrong day
	require.False(t, schedule.IsDue(time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)))
	// right day, wrong minute
	require.False(t, schedule.IsDue(time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)))
}

func TestScheduleYearGate(t *testing.T) {
	raw := allWildcards()
	raw.Years = []any{float64(2024)}
	schedule := mustParseSchedule(t, raw)

	require.True(t, schedule.IsDue(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)))
	require.False(t, schedule.IsDue(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)))
}

func TestScheduleParseRejectsGarbage(t *testing.T) {
	raw := allWildcards()
	raw.Minutes = "sometimes"
	_, err := raw.Parse()
	require.Error(t, err)

	raw = allWildcards()
	raw.Hours = []any{"nine"}
	_, err = raw.Parse()
	require.Error(t, err)

	raw = allWildcards()
	raw.Days = []any{}
	_, err = raw.Parse()
	require.Error(t, err)

	raw = allWildcards()
	raw.Months = nil
	_, err = raw.Parse()
	require.Error(t, err)
}
