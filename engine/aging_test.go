package engine

import (
	"errors"
	"testing"
	"time"

	"collectra/models"
)

func TestDaysPastDue(t *testing.T) {
	today := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		dueDate time.Time
		want    int
	}{
		{"due today", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), 0},
		{"due today late in the day", time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC), 0},
		{"one day overdue", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), 1},
		{"thirty days overdue", time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC), 30},
		{"not yet due", time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC), -5},
		{"far overdue", time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC), 181},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysPastDue(tt.dueDate, today); got != tt.want {
				t.Errorf("DaysPastDue() = %d, want %d", got, tt.want)
			}
		})
	}
}

// The count is a calendar-day difference: a DST spring-forward inside
// the range (one 23-hour local day) must not shave a day off.
func TestDaysPastDueAcrossDSTTransition(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// US DST begins 2026-03-08.
	dueDate := time.Date(2026, 3, 1, 0, 0, 0, 0, loc)
	today := time.Date(2026, 4, 1, 0, 0, 0, 0, loc)

	if got := DaysPastDue(dueDate, today); got != 31 {
		t.Errorf("DaysPastDue() = %d, want 31", got)
	}

	_, bucket, err := Classify(DefaultBucketTable, dueDate, today)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if bucket.Label != models.BucketDPD31_60 {
		t.Errorf("Classify() bucket = %s, want %s", bucket.Label, models.BucketDPD31_60)
	}
}

func TestClassify(t *testing.T) {
	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		dpd        int
		wantBucket string
	}{
		{"not yet due", -10, models.BucketCurrent},
		{"due today", 0, models.BucketCurrent},
		{"first overdue day", 1, models.BucketDPD1_30},
		{"upper edge of 1-30", 30, models.BucketDPD1_30},
		{"lower edge of 31-60", 31, models.BucketDPD31_60},
		{"upper edge of 31-60", 60, models.BucketDPD31_60},
		{"lower edge of 61-90", 61, models.BucketDPD61_90},
		{"upper edge of 91-120", 120, models.BucketDPD91_120},
		{"upper edge of 121-150", 150, models.BucketDPD121_150},
		{"first unbounded day", 151, models.BucketDPD150Plus},
		{"deep delinquency", 4000, models.BucketDPD150Plus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dueDate := today.AddDate(0, 0, -tt.dpd)
			dpd, bucket, err := Classify(DefaultBucketTable, dueDate, today)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if dpd != tt.dpd {
				t.Errorf("Classify() dpd = %d, want %d", dpd, tt.dpd)
			}
			if bucket.Label != tt.wantBucket {
				t.Errorf("Classify() bucket = %s, want %s", bucket.Label, tt.wantBucket)
			}
		})
	}
}

// Every integer days-past-due value must map to exactly one bucket.
func TestDefaultBucketTableIsContiguous(t *testing.T) {
	for d := -9999; d <= 9999; d++ {
		matches := 0
		for _, b := range DefaultBucketTable {
			if b.Contains(d) {
				matches++
			}
		}
		if matches != 1 {
			t.Fatalf("dpd %d matched %d buckets, want exactly 1", d, matches)
		}
	}
}

func TestClassifyBrokenTable(t *testing.T) {
	// A table with a hole between 0 and 10.
	table := []Bucket{
		{Label: "low", MinDays: nil, MaxDays: days(0)},
		{Label: "high", MinDays: days(10), MaxDays: nil},
	}
	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	dueDate := today.AddDate(0, 0, -5)

	_, _, err := Classify(table, dueDate, today)
	if !errors.Is(err, ErrNoBucketMatch) {
		t.Errorf("Classify() error = %v, want ErrNoBucketMatch", err)
	}
}
