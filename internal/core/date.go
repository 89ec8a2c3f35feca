// Package core implements the transaction aggregation and filtering engine:
// the date codec, predicate filter, grouping engine, ranking/masking helpers
// and the comprehensive report composer. Every function is a pure computation
// over its inputs; nothing in this package holds state across calls.
package core

import (
	"regexp"
	"time"
)

// dateLayout is the only textual date form the ledger uses.
const dateLayout = "02/01/2006"

// dateShape enforces exactly two/two/four digits; time.Parse alone would
// accept unpadded components like "1/1/2025".
var dateShape = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)

// ParseDate parses a strict DD/MM/YYYY string. The second return value is
// false for any other shape, non-numeric component, or impossible calendar
// date (month 13, 31st of February). Callers must treat false as "exclude
// this record from date-dependent computation", never as a fatal error.
func ParseDate(s string) (time.Time, bool) {
	if !dateShape.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate is the exact inverse of ParseDate for dates produced
// internally: FormatDate(t) always round-trips through ParseDate.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// MonthKey derives the YYYY-MM grouping token for a date.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// DateBucket is one fixed-length day window of a caller-specified [from, to]
// interval. Buckets exist only for the duration of a grouped date-range
// request and are recomputed per request.
type DateBucket struct {
	Index int
	From  time.Time
	To    time.Time
}

// Label renders the bucket boundaries in ledger date form.
func (b DateBucket) Label() string {
	return FormatDate(b.From) + " - " + FormatDate(b.To)
}

// DayBuckets partitions [from, to] into windows of days length each. The
// last bucket is clipped to to even when the window length would overshoot
// it. Returns nil when the interval is inverted or days is not positive.
func DayBuckets(from, to time.Time, days int) []DateBucket {
	if days <= 0 || to.Before(from) {
		return nil
	}
	var buckets []DateBucket
	for i, start := 0, from; !start.After(to); i++ {
		end := start.AddDate(0, 0, days-1)
		if end.After(to) {
			end = to
		}
		buckets = append(buckets, DateBucket{Index: i, From: start, To: end})
		start = start.AddDate(0, 0, days)
	}
	return buckets
}

// BucketIndex maps a date to its bucket position relative to from:
// floor(days_since(from) / days). Negative for dates before from.
func BucketIndex(from, d time.Time, days int) int {
	delta := int(d.Sub(from).Hours() / 24)
	if d.Before(from) {
		// integer division truncates toward zero; force floor semantics
		return (delta - days + 1) / days
	}
	return delta / days
}
