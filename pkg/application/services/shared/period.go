package shared

import (
	"fmt"
	"strings"
	"time"
)

// Granularity defines the length of one planning period
type Granularity int

const (
	Monthly Granularity = iota
	Weekly
)

// String method for Granularity enum
func (g Granularity) String() string {
	switch g {
	case Monthly:
		return "monthly"
	case Weekly:
		return "weekly"
	default:
		return "unknown"
	}
}

// ParseGranularity converts a label into a Granularity
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "monthly", "month":
		return Monthly, nil
	case "weekly", "week":
		return Weekly, nil
	default:
		return Monthly, fmt.Errorf("invalid granularity: %s (expected: monthly or weekly)", s)
	}
}

// DaysPerPeriod returns the fixed day count used to convert periods to days
func (g Granularity) DaysPerPeriod() float64 {
	if g == Weekly {
		return 7
	}
	return 30
}

// PeriodsPerYear returns the number of periods in a year
func (g Granularity) PeriodsPerYear() float64 {
	if g == Weekly {
		return 52
	}
	return 12
}

// PeriodStart truncates a timestamp to the start of its period in UTC.
// Weeks start on Monday.
func (g Granularity) PeriodStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if g == Weekly {
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// DaysToDuration converts fractional days to a duration
func DaysToDuration(days float64) time.Duration {
	return time.Duration(days * float64(24*time.Hour))
}
