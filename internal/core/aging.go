package core

import "time"

// Bucket is an aging classification label. Labels are rendered verbatim
// in reports and exports.
type Bucket string

const (
	BucketCurrent Bucket = "Current"
	Bucket1To30   Bucket = "1-30 Days"
	Bucket31To60  Bucket = "31-60 Days"
	// Bucket61To90 covers 61-90 days overdue. The label predates this code
	// and downstream spreadsheets match on it, so it is kept as is.
	Bucket61To90 Bucket = "60+ Days"
	BucketOver90 Bucket = "90+ Days"
)

const day = 24 * time.Hour

// Buckets returns every bucket in report order.
func Buckets() []Bucket {
	return []Bucket{BucketCurrent, Bucket1To30, Bucket31To60, Bucket61To90, BucketOver90}
}

// DaysPastDue returns the signed fractional number of days between now and
// the due date. Positive means the due date is still ahead.
func DaysPastDue(dueAt, now time.Time) float64 {
	return float64(dueAt.Sub(now)) / float64(day)
}

// BucketFor maps a days value onto a bucket. The first matching threshold
// wins; anything that fails every comparison, NaN included, is 90+.
func BucketFor(days float64) Bucket {
	switch {
	case days >= 0:
		return BucketCurrent
	case days >= -30:
		return Bucket1To30
	case days >= -60:
		return Bucket31To60
	case days >= -90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

// Classify buckets a due date relative to now. A missing due date is
// treated as an instant in the distant past.
func Classify(dueAt, now time.Time) Bucket {
	if dueAt.IsZero() {
		return BucketOver90
	}
	return BucketFor(DaysPastDue(dueAt, now))
}
