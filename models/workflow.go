package models

import "gorm.io/gorm"

// Outreach channels
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Aging bucket labels. The ranges behind them live in the engine's
// bucket table; workflows and runs reference buckets by label only.
const (
	BucketCurrent    = "current"
	BucketDPD1_30    = "dpd_1_30"
	BucketDPD31_60   = "dpd_31_60"
	BucketDPD61_90   = "dpd_61_90"
	BucketDPD91_120  = "dpd_91_120"
	BucketDPD121_150 = "dpd_121_150"
	BucketDPD150Plus = "dpd_150_plus"
)

// AgingBuckets lists every bucket label in ascending severity order.
var AgingBuckets = []string{
	BucketCurrent,
	BucketDPD1_30,
	BucketDPD31_60,
	BucketDPD61_90,
	BucketDPD91_120,
	BucketDPD121_150,
	BucketDPD150Plus,
}

// IsValidBucket reports whether label names a known aging bucket.
func IsValidBucket(label string) bool {
	for _, b := range AgingBuckets {
		if b == label {
			return true
		}
	}
	return false
}

// CollectionWorkflow is an ordered set of outreach steps bound to one
// aging bucket. UserID nil marks a global default; a tenant-owned
// active workflow for the same bucket takes precedence over it.
type CollectionWorkflow struct {
	gorm.Model
	UserID *uint `gorm:"index" json:"user_id,omitempty"` // nil = global default

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	AgingBucket string `gorm:"not null;index" json:"aging_bucket"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`

	// Relations
	Steps []WorkflowStep `gorm:"foreignKey:WorkflowID" json:"steps,omitempty"`
}

// ActiveSteps returns the workflow's active steps ordered by StepOrder.
// Steps arrive ordered from the store; this only filters.
func (w *CollectionWorkflow) ActiveSteps() []WorkflowStep {
	steps := make([]WorkflowStep, 0, len(w.Steps))
	for _, s := range w.Steps {
		if s.IsActive {
			steps = append(steps, s)
		}
	}
	return steps
}

// WorkflowStep is one outreach touchpoint within a workflow.
// DayOffset is a scheduling hint relative to the invoice due date; it
// feeds recommended_send_date but never gates draft generation.
type WorkflowStep struct {
	gorm.Model
	WorkflowID uint `gorm:"not null;index" json:"workflow_id"`

	StepOrder int    `gorm:"not null" json:"step_order"`
	DayOffset int    `gorm:"not null" json:"day_offset"`
	Channel   string `gorm:"not null;default:'email'" json:"channel"` // email, sms
	IsActive  bool   `gorm:"default:true" json:"is_active"`

	// Body template with placeholder tokens, e.g. {{invoice_number}}
	BodyTemplate string `gorm:"type:text" json:"body_template"`

	Workflow CollectionWorkflow `json:"-"`
}
