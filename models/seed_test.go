package models

import "testing"

// Every days-past-due value from the persona floor upward must map to
// exactly one seeded persona range; a gap or overlap would make
// persona selection ambiguous or force the terminal fallback.
func TestDefaultPersonaRangesAreContiguous(t *testing.T) {
	personas := DefaultPersonas()
	if len(personas) == 0 {
		t.Fatal("no default personas")
	}

	for d := personaFloor; d <= 9999; d++ {
		matches := 0
		for _, p := range personas {
			if d < p.BucketMin {
				continue
			}
			if p.BucketMax != nil && d > *p.BucketMax {
				continue
			}
			matches++
		}
		if matches != 1 {
			t.Fatalf("dpd %d matched %d persona ranges, want exactly 1", d, matches)
		}
	}
}

// The seeded persona boundaries must line up with the aging bucket
// boundaries: each bucket label's range falls inside one persona.
func TestDefaultPersonaBoundaries(t *testing.T) {
	personas := DefaultPersonas()
	byName := map[string]Persona{}
	for _, p := range personas {
		byName[p.Name] = p
	}

	tests := []struct {
		dpd  int
		want string
	}{
		{-365, "Courtesy Notice"},
		{0, "Courtesy Notice"},
		{1, "Gentle Reminder"},
		{30, "Gentle Reminder"},
		{31, "Professional Follow-up"},
		{60, "Professional Follow-up"},
		{61, "Firm Notice"},
		{90, "Firm Notice"},
		{91, "Urgent Demand"},
		{120, "Urgent Demand"},
		{121, "Final Warning"},
		{150, "Final Warning"},
		{151, "Recovery Stage"},
		{5000, "Recovery Stage"},
	}

	for _, tt := range tests {
		var matched string
		for _, p := range personas {
			if tt.dpd < p.BucketMin {
				continue
			}
			if p.BucketMax != nil && tt.dpd > *p.BucketMax {
				continue
			}
			matched = p.Name
			break
		}
		if matched != tt.want {
			t.Errorf("dpd %d matched %q, want %q", tt.dpd, matched, tt.want)
		}
	}

	if _, ok := byName["Recovery Stage"]; !ok {
		t.Error("terminal persona missing from seed table")
	}
}
