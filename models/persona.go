package models

import "gorm.io/gorm"

// Persona is a named tone/voice profile used to generate outreach
// copy, selected by days-past-due range. Personas are read-only
// reference data seeded at migration; the engine never writes them.
//
// BucketMax nil means the range is open-ended. Rows must be contiguous
// so that exactly one persona matches any days-past-due value.
type Persona struct {
	gorm.Model

	Name      string `gorm:"not null;uniqueIndex" json:"name"`
	ToneLabel string `gorm:"not null" json:"tone_label"`

	// Voice/style instructions injected verbatim into the prompt
	VoiceInstructions string `gorm:"type:text;not null" json:"voice_instructions"`

	BucketMin int  `gorm:"not null;index" json:"bucket_min"`
	BucketMax *int `json:"bucket_max,omitempty"` // nil = unbounded
}
