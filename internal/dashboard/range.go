package dashboard

import (
	"strings"
	"time"
)

// RangeKind identifies a reporting window shape.
type RangeKind string

// Supported reporting ranges.
const (
	RangeAll   RangeKind = "all"
	RangeYear  RangeKind = "year"
	RangeMonth RangeKind = "month"
	RangeWeek  RangeKind = "week"
	RangeDay   RangeKind = "day"
)

// ParseRangeKind normalizes a raw range parameter, falling back to month for
// anything unrecognized.
func ParseRangeKind(raw string) RangeKind {
	switch RangeKind(strings.ToLower(strings.TrimSpace(raw))) {
	case RangeAll:
		return RangeAll
	case RangeYear:
		return RangeYear
	case RangeWeek:
		return RangeWeek
	case RangeDay:
		return RangeDay
	default:
		return RangeMonth
	}
}

// Selection carries the optional anchor parameters for a range. Zero values
// mean "anchor on now".
type Selection struct {
	Year      int
	Month     int
	WeekStart time.Time
	Day       time.Time
}

// Bounds resolves a range selection into concrete UTC timestamps. All day,
// month, and year boundaries are computed in UTC so that the same request
// yields the same buckets regardless of where the server runs. A nil bound
// means unfiltered on that side.
func (k RangeKind) Bounds(sel Selection, now time.Time) (from, to *time.Time) {
	now = now.UTC()
	switch k {
	case RangeAll:
		return nil, nil
	case RangeYear:
		year := sel.Year
		if year <= 0 {
			year = now.Year()
		}
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		end := endOfDay(time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC))
		return &start, &end
	case RangeWeek:
		anchor := sel.WeekStart
		if anchor.IsZero() {
			anchor = now
		}
		start := startOfWeek(anchor.UTC())
		end := endOfDay(start.AddDate(0, 0, 6))
		return &start, &end
	case RangeDay:
		anchor := sel.Day
		if anchor.IsZero() {
			anchor = now
		}
		start := startOfDay(anchor.UTC())
		end := endOfDay(start)
		return &start, &end
	default:
		year, month := sel.Year, sel.Month
		if year <= 0 {
			year = now.Year()
		}
		if month < 1 || month > 12 {
			month = int(now.Month())
		}
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		end := endOfDay(start.AddDate(0, 1, -1))
		return &start, &end
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), time.UTC)
}

// startOfWeek rolls back to the most recent Monday at midnight.
func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	back := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -back)
}
