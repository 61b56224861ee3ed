package engine

import (
	"sort"

	"collectra/models"
)

// SelectPersona picks the persona whose range covers daysPastDue: the
// row with the greatest BucketMin not exceeding the value, provided
// its BucketMax (when set) also covers it. If nothing matches it
// falls back to the terminal unbounded persona rather than failing —
// a delinquency stage must never go voice-less.
func SelectPersona(personas []models.Persona, daysPastDue int) *models.Persona {
	if len(personas) == 0 {
		return nil
	}

	ordered := make([]models.Persona, len(personas))
	copy(ordered, personas)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].BucketMin > ordered[j].BucketMin
	})

	for i := range ordered {
		p := &ordered[i]
		if p.BucketMin > daysPastDue {
			continue
		}
		if p.BucketMax != nil && *p.BucketMax < daysPastDue {
			continue
		}
		return p
	}

	// Terminal persona: the unbounded row, or failing that, the one
	// with the greatest BucketMin.
	for i := range ordered {
		if ordered[i].BucketMax == nil {
			return &ordered[i]
		}
	}
	return &ordered[0]
}
