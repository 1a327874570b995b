package logic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateString(t *testing.T) {
	for _, in := range []string{"not-a-date", "", "2020-13-01", "2020-01-01T00:00:00Z"} {
		_, ok := ParseDateString(in)
		assert.False(t, ok, in)
	}

	got, ok := ParseDateString("2020-01-01")
	require.True(t, ok)
	assert.True(t, got.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.UTC, got.Location())

	for _, in := range []string{"2020-1-1", "2020-01-1", "2020-1-01"} {
		got, ok := ParseDateString(in)
		require.True(t, ok, in)
		assert.True(t, got.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)), in)
	}
}

func TestGetAdDay(t *testing.T) {
	day := GetAdDay(nil)
	assert.Equal(t, time.UTC, day.Location())
	assert.Zero(t, day.Hour())
	assert.Zero(t, day.Minute())
	assert.Zero(t, day.Second())
	assert.Zero(t, day.Nanosecond())
}

func TestAdDayAtUsesReportingZone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 02:30 UTC is still the previous day in New York
	now := time.Date(2024, 3, 2, 2, 30, 0, 0, time.UTC)

	day := AdDayAt(now, ny)
	assert.Equal(t, ny, day.Location())
	assert.Equal(t, 1, day.Day())
	assert.Equal(t, time.March, day.Month())
	assert.Zero(t, day.Hour())

	assert.Equal(t, 2, AdDayAt(now, nil).Day())
}
