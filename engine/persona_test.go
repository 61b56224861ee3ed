package engine

import (
	"testing"

	"collectra/models"
)

func testPersonas() []models.Persona {
	max30 := 30
	max90 := 90
	return []models.Persona{
		{Name: "Friendly Reminder", BucketMin: 0, BucketMax: &max30},
		{Name: "Professional Follow-up", BucketMin: 31, BucketMax: &max90},
		{Name: "Firm Recovery", BucketMin: 91, BucketMax: nil},
	}
}

func TestSelectPersona(t *testing.T) {
	personas := testPersonas()

	tests := []struct {
		name string
		dpd  int
		want string
	}{
		{"current invoice", 0, "Friendly Reminder"},
		{"upper edge of first range", 30, "Friendly Reminder"},
		{"lower edge of second range", 31, "Professional Follow-up"},
		{"middle of second range", 60, "Professional Follow-up"},
		{"lower edge of unbounded", 91, "Firm Recovery"},
		{"deep delinquency", 500, "Firm Recovery"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectPersona(personas, tt.dpd)
			if got == nil {
				t.Fatal("SelectPersona() = nil")
			}
			if got.Name != tt.want {
				t.Errorf("SelectPersona(%d) = %s, want %s", tt.dpd, got.Name, tt.want)
			}
		})
	}
}

// A value below every persona's range must still resolve to the
// unbounded terminal persona rather than failing.
func TestSelectPersonaFallsBackToTerminal(t *testing.T) {
	max90 := 90
	personas := []models.Persona{
		{Name: "Mid", BucketMin: 31, BucketMax: &max90},
		{Name: "Terminal", BucketMin: 91, BucketMax: nil},
	}

	got := SelectPersona(personas, 5)
	if got == nil || got.Name != "Terminal" {
		t.Errorf("SelectPersona(5) = %v, want Terminal", got)
	}
}

func TestSelectPersonaEmptyTable(t *testing.T) {
	if got := SelectPersona(nil, 10); got != nil {
		t.Errorf("SelectPersona(nil, 10) = %v, want nil", got)
	}
}

// The selector must not reorder the caller's slice.
func TestSelectPersonaDoesNotMutateInput(t *testing.T) {
	personas := testPersonas()
	first := personas[0].Name

	SelectPersona(personas, 200)

	if personas[0].Name != first {
		t.Errorf("input slice reordered: first persona now %s", personas[0].Name)
	}
}
