package logic

import "time"

// DateLayout is the canonical YYYY-MM-DD form used when formatting ad days.
const DateLayout = "2006-01-02"

// parseLayout also accepts months and days without zero padding.
const parseLayout = "2006-1-2"

// ParseDateString parses a YYYY-MM-DD string into midnight UTC. Month and day
// may omit their leading zero ("2020-1-1"). The boolean is false for empty or
// unparseable input.
func ParseDateString(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(parseLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// GetAdDay returns the start of the current reporting day in loc.
// A nil loc means UTC.
func GetAdDay(loc *time.Location) time.Time {
	return AdDayAt(time.Now(), loc)
}

// AdDayAt returns the start of the reporting day containing now.
func AdDayAt(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	n := now.In(loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
}
