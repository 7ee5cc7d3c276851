package dashboard

import (
	"fmt"
	"time"
)

// Bucket is the timeline granularity used to chart revenue over a range.
type Bucket string

// Timeline bucket granularities.
const (
	BucketYear  Bucket = "year"
	BucketMonth Bucket = "month"
	BucketDay   Bucket = "day"
	BucketHour  Bucket = "hour"
)

// BucketFor maps a reporting range onto its timeline granularity.
func BucketFor(k RangeKind) Bucket {
	switch k {
	case RangeAll:
		return BucketYear
	case RangeDay:
		return BucketHour
	case RangeMonth, RangeWeek:
		return BucketDay
	default:
		return BucketMonth
	}
}

// Truncate snaps a timestamp down to its bucket boundary in UTC.
func (b Bucket) Truncate(t time.Time) time.Time {
	t = t.UTC()
	switch b {
	case BucketYear:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	case BucketMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case BucketHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

var frenchMonths = [...]string{
	"janv.", "févr.", "mars", "avr.", "mai", "juin",
	"juil.", "août", "sept.", "oct.", "nov.", "déc.",
}

// Label renders the display label for a bucket boundary. Labels follow the
// French storefront locale and must stay stable for chart snapshots.
func (b Bucket) Label(t time.Time) string {
	t = t.UTC()
	switch b {
	case BucketHour:
		return fmt.Sprintf("%dh", t.Hour())
	case BucketDay:
		return fmt.Sprintf("%02d %s", t.Day(), frenchMonths[int(t.Month())-1])
	case BucketMonth:
		return fmt.Sprintf("%s %d", frenchMonths[int(t.Month())-1], t.Year())
	default:
		return fmt.Sprintf("%d", t.Year())
	}
}
