package engine

import (
	"fmt"
	"time"

	"collectra/models"
)

// Bucket is one entry of the aging table: an inclusive days-past-due
// range with a label. A nil MinDays or MaxDays leaves that side
// unbounded. Ranges must be contiguous and non-overlapping so every
// integer days-past-due value maps to exactly one bucket.
type Bucket struct {
	Label   string
	MinDays *int
	MaxDays *int
}

// Contains reports whether the bucket's range includes d.
func (b Bucket) Contains(d int) bool {
	if b.MinDays != nil && d < *b.MinDays {
		return false
	}
	if b.MaxDays != nil && d > *b.MaxDays {
		return false
	}
	return true
}

// DefaultBucketTable covers every integer days-past-due value,
// negative included (invoices not yet due fall into "current").
var DefaultBucketTable = []Bucket{
	{Label: models.BucketCurrent, MinDays: nil, MaxDays: days(0)},
	{Label: models.BucketDPD1_30, MinDays: days(1), MaxDays: days(30)},
	{Label: models.BucketDPD31_60, MinDays: days(31), MaxDays: days(60)},
	{Label: models.BucketDPD61_90, MinDays: days(61), MaxDays: days(90)},
	{Label: models.BucketDPD91_120, MinDays: days(91), MaxDays: days(120)},
	{Label: models.BucketDPD121_150, MinDays: days(121), MaxDays: days(150)},
	{Label: models.BucketDPD150Plus, MinDays: days(151), MaxDays: nil},
}

func days(v int) *int { return &v }

// DaysPastDue returns the calendar-day difference between today and
// the due date. Both dates are rebuilt at UTC midnight so every day
// is exactly 24 hours; subtracting location-local midnights would
// undercount across a DST spring-forward. Negative for invoices not
// yet due.
func DaysPastDue(dueDate, today time.Time) int {
	due := time.Date(dueDate.Year(), dueDate.Month(), dueDate.Day(), 0, 0, 0, 0, time.UTC)
	now := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(now.Sub(due).Hours() / 24)
}

// Classify converts a due date into a days-past-due count and the
// bucket containing it. A miss means the table itself is broken and
// surfaces as ErrNoBucketMatch.
func Classify(table []Bucket, dueDate, today time.Time) (int, Bucket, error) {
	d := DaysPastDue(dueDate, today)
	for _, b := range table {
		if b.Contains(d) {
			return d, b, nil
		}
	}
	return d, Bucket{}, fmt.Errorf("%w: %d", ErrNoBucketMatch, d)
}
