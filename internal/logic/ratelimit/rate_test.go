package ratelimit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRate(t *testing.T) {
	tests := []struct {
		spec   string
		count  int64
		period time.Duration
	}{
		{"1/s", 1, time.Second},
		{"3/h", 3, time.Hour},
		{"10/d", 10, 24 * time.Hour},
		{" 5/15m ", 5, 15 * time.Minute},
	}
	for _, tt := range tests {
		r, err := ParseRate(tt.spec)
		require.NoError(t, err, tt.spec)
		assert.Equal(t, tt.count, r.Count, tt.spec)
		assert.Equal(t, tt.period, r.Period, tt.spec)
	}
}

func TestParseRateInvalid(t *testing.T) {
	for _, spec := range []string{"", "1", "x/s", "0/s", "-1/m", "1/", "1/w", "1/0m", "1/am"} {
		_, err := ParseRate(spec)
		assert.True(t, errors.Is(err, ErrInvalidRate), "spec %q should be invalid", spec)
	}
}

func TestParseRates(t *testing.T) {
	rates, err := ParseRates([]string{"1/s", "1/m"})
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, "1/s", rates[0].String())

	_, err = ParseRates([]string{"1/s", "bogus"})
	assert.ErrorIs(t, err, ErrInvalidRate)

	assert.Panics(t, func() { MustParseRates("nope") })
}
