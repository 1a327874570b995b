// Package ratelimit implements fixed-window rate limiting for visitor actions
// such as ad clicks.
//
// Limits are written as "<count>/<period>", e.g. "1/s", "3/h" or "10/5m".
// Each rate keeps its own counter per (action, client key) in a shared Store;
// a call is limited as soon as any counter exceeds its count. Stores must
// increment and report counts atomically so concurrent clicks from the same
// client are never undercounted.
package ratelimit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidRate is returned for rate specs that cannot be parsed.
var ErrInvalidRate = errors.New("invalid rate")

var periodUnits = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
}

// Rate allows Count calls per Period.
type Rate struct {
	Count  int64
	Period time.Duration
	spec   string
}

// String returns the spec the rate was parsed from.
func (r Rate) String() string {
	if r.spec != "" {
		return r.spec
	}
	return fmt.Sprintf("%d/%s", r.Count, r.Period)
}

// ParseRate parses "<count>/<period>" where period is s, m, h or d with an
// optional multiplier ("5m").
func ParseRate(spec string) (Rate, error) {
	countPart, periodPart, ok := strings.Cut(strings.TrimSpace(spec), "/")
	if !ok || periodPart == "" {
		return Rate{}, fmt.Errorf("%w: %q", ErrInvalidRate, spec)
	}
	count, err := strconv.ParseInt(countPart, 10, 64)
	if err != nil || count <= 0 {
		return Rate{}, fmt.Errorf("%w: bad count in %q", ErrInvalidRate, spec)
	}

	unit, ok := periodUnits[periodPart[len(periodPart)-1]]
	if !ok {
		return Rate{}, fmt.Errorf("%w: bad period in %q", ErrInvalidRate, spec)
	}
	multiplier := int64(1)
	if n := periodPart[:len(periodPart)-1]; n != "" {
		multiplier, err = strconv.ParseInt(n, 10, 64)
		if err != nil || multiplier <= 0 {
			return Rate{}, fmt.Errorf("%w: bad period in %q", ErrInvalidRate, spec)
		}
	}

	return Rate{Count: count, Period: time.Duration(multiplier) * unit, spec: strings.TrimSpace(spec)}, nil
}

// ParseRates parses every spec, failing on the first invalid one.
func ParseRates(specs []string) ([]Rate, error) {
	rates := make([]Rate, 0, len(specs))
	for _, s := range specs {
		r, err := ParseRate(s)
		if err != nil {
			return nil, err
		}
		rates = append(rates, r)
	}
	return rates, nil
}

// MustParseRates is ParseRates for static specs; it panics on error.
func MustParseRates(specs ...string) []Rate {
	rates, err := ParseRates(specs)
	if err != nil {
		panic(err)
	}
	return rates
}
