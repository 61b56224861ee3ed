package models

import "gorm.io/gorm"

// Initialize default plans in your database migration
func CreateDefaultPlans(db *gorm.DB) error {
	defaultPlans := []Plan{
		{
			Name:         "free",
			Description:  "Free starter plan with 500 draft credits",
			DraftCredits: 500,
			Price:        0,
			MaxMailboxes: 1,
			MaxWorkflows: 3,
		},
		{
			Name:           "starter",
			Description:    "Starter plan with 5,000 draft credits",
			DraftCredits:   5000,
			Price:          2900, // $29
			MaxMailboxes:   3,
			MaxWorkflows:   10,
			AutoRunEnabled: true,
			DisplayPrice:   "$29",
		},
		{
			Name:           "grow",
			Description:    "Growth plan with 25,000 draft credits and SMS drafts",
			DraftCredits:   25000,
			Price:          7900, // $79
			MaxMailboxes:   10,
			MaxWorkflows:   50,
			AutoRunEnabled: true,
			SMSEnabled:     true,
			DisplayPrice:   "$79",
			IsPopular:      true,
			Recommended:    true,
		},
		{
			Name:           "enterprise",
			Description:    "Custom plan for high-volume receivables teams",
			DraftCredits:   200000,
			Price:          29900, // $299
			MaxMailboxes:   50,
			MaxWorkflows:   200,
			AutoRunEnabled: true,
			SMSEnabled:     true,
			DisplayPrice:   "$299",
		},
	}
	for _, plan := range defaultPlans {
		if err := db.FirstOrCreate(&plan, "name = ?", plan.Name).Error; err != nil {
			return err
		}
	}
	return nil
}

// personaFloor bounds the first persona range low enough to cover any
// invoice that is not yet due (100 years out).
const personaFloor = -36500

// DefaultPersonas is the seeded persona reference table. Ranges are
// contiguous so every days-past-due value maps to exactly one row.
func DefaultPersonas() []Persona {
	return []Persona{
		{
			Name:      "Courtesy Notice",
			ToneLabel: "courteous",
			VoiceInstructions: "You are a friendly accounts assistant writing before an invoice is due. " +
				"Keep the message light and informational. Thank the recipient for their business, " +
				"state the upcoming due date plainly, and make clear no action is overdue.",
			BucketMin: personaFloor,
			BucketMax: intPtr(0),
		},
		{
			Name:      "Gentle Reminder",
			ToneLabel: "friendly",
			VoiceInstructions: "You are a polite accounts-receivable assistant. The invoice is slightly " +
				"past due, most likely an oversight. Be warm and assume good faith. Mention the balance " +
				"and due date once, and offer to resend the invoice or answer questions.",
			BucketMin: 1,
			BucketMax: intPtr(30),
		},
		{
			Name:      "Professional Follow-up",
			ToneLabel: "professional",
			VoiceInstructions: "You are a professional collections specialist. The invoice is more than a " +
				"month overdue. Be courteous but direct: state the amount, how long it has been " +
				"outstanding, and ask for a payment date. Offer to discuss payment options.",
			BucketMin: 31,
			BucketMax: intPtr(60),
		},
		{
			Name:      "Firm Notice",
			ToneLabel: "firm",
			VoiceInstructions: "You are a firm but fair collections specialist. The invoice is seriously " +
				"overdue. Use short declarative sentences. State that previous reminders went unanswered, " +
				"name the total due, and request payment or contact within a stated number of days.",
			BucketMin: 61,
			BucketMax: intPtr(90),
		},
		{
			Name:      "Urgent Demand",
			ToneLabel: "urgent",
			VoiceInstructions: "You are an escalation-stage collections specialist. The account is " +
				"delinquent past ninety days. Convey urgency without hostility: the balance, the age of " +
				"the debt, and the need for immediate payment or a payment arrangement this week.",
			BucketMin: 91,
			BucketMax: intPtr(120),
		},
		{
			Name:      "Final Warning",
			ToneLabel: "serious",
			VoiceInstructions: "You are writing one of the last messages before the account is escalated. " +
				"Be formal and unambiguous. State the full amount, reference the history of contact " +
				"attempts, and explain that continued non-payment will force escalation of the account.",
			BucketMin: 121,
			BucketMax: intPtr(150),
		},
		{
			Name:      "Recovery Stage",
			ToneLabel: "formal",
			VoiceInstructions: "You are handling a long-delinquent account. Write formally and factually. " +
				"Summarize the debt, invite the recipient to settle or propose a payment plan, and note " +
				"this is a final opportunity to resolve the balance directly.",
			BucketMin: 151,
			BucketMax: nil,
		},
	}
}

// CreateDefaultPersonas seeds the persona reference table.
func CreateDefaultPersonas(db *gorm.DB) error {
	for _, persona := range DefaultPersonas() {
		if err := db.FirstOrCreate(&persona, "name = ?", persona.Name).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateDefaultWorkflows seeds the global default workflow (user_id
// null) for each aging bucket. Tenants override these with their own
// active workflows per bucket.
func CreateDefaultWorkflows(db *gorm.DB) error {
	type stepSpec struct {
		order    int
		offset   int
		channel  string
		template string
	}
	defaults := []struct {
		bucket string
		name   string
		steps  []stepSpec
	}{
		{
			bucket: BucketCurrent,
			name:   "Upcoming due notice",
			steps: []stepSpec{
				{1, -3, ChannelEmail, "Hi {{debtor_name}}, a quick note that invoice {{invoice_number}} for {{amount_due}} {{currency}} is due on {{due_date}}. No action is needed if payment is already on its way."},
			},
		},
		{
			bucket: BucketDPD1_30,
			name:   "Early-stage reminders",
			steps: []stepSpec{
				{1, 3, ChannelEmail, "Hi {{debtor_name}}, invoice {{invoice_number}} for {{amount_due}} {{currency}} was due on {{due_date}}. This may have slipped through; could you let us know when payment will be made?"},
				{2, 14, ChannelEmail, "Hi {{debtor_name}}, following up on invoice {{invoice_number}} ({{amount_due}} {{currency}}), now {{days_past_due}} days past due. Happy to resend the invoice or answer any questions."},
				{3, 25, ChannelSMS, "Reminder from {{company_name}}: invoice {{invoice_number}} for {{amount_due}} {{currency}} is {{days_past_due}} days past due. Please reply or call to arrange payment."},
			},
		},
		{
			bucket: BucketDPD31_60,
			name:   "Second-stage follow-up",
			steps: []stepSpec{
				{1, 35, ChannelEmail, "Hello {{debtor_name}}, invoice {{invoice_number}} for {{amount_due}} {{currency}} remains unpaid {{days_past_due}} days after its {{due_date}} due date. Please confirm a payment date this week."},
				{2, 50, ChannelEmail, "Hello {{debtor_name}}, we have not received payment for invoice {{invoice_number}} ({{amount_due}} {{currency}}). If something is blocking payment, reply to this message so we can resolve it."},
			},
		},
		{
			bucket: BucketDPD61_90,
			name:   "Firm notices",
			steps: []stepSpec{
				{1, 65, ChannelEmail, "{{debtor_name}}, invoice {{invoice_number}} for {{amount_due}} {{currency}} is now {{days_past_due}} days past due despite prior reminders. Payment or a response is required within 7 days."},
				{2, 80, ChannelSMS, "{{company_name}}: invoice {{invoice_number}} ({{amount_due}} {{currency}}) is seriously overdue. Please contact us today to arrange payment."},
			},
		},
		{
			bucket: BucketDPD91_120,
			name:   "Urgent demands",
			steps: []stepSpec{
				{1, 95, ChannelEmail, "{{debtor_name}}, the balance of {{amount_due}} {{currency}} on invoice {{invoice_number}} is {{days_past_due}} days delinquent. Immediate payment or a payment arrangement is required."},
				{2, 110, ChannelEmail, "{{debtor_name}}, this account remains unresolved. Invoice {{invoice_number}} for {{amount_due}} {{currency}} must be settled or a plan agreed this week."},
			},
		},
		{
			bucket: BucketDPD121_150,
			name:   "Final warning",
			steps: []stepSpec{
				{1, 130, ChannelEmail, "{{debtor_name}}, despite repeated attempts to resolve invoice {{invoice_number}} ({{amount_due}} {{currency}}), payment has not been received. Without payment or contact, the account will be escalated."},
			},
		},
		{
			bucket: BucketDPD150Plus,
			name:   "Recovery stage",
			steps: []stepSpec{
				{1, 160, ChannelEmail, "{{debtor_name}}, invoice {{invoice_number}} for {{amount_due}} {{currency}} has been outstanding for {{days_past_due}} days. This is a final opportunity to settle the balance or propose a payment plan directly with us."},
			},
		},
	}

	for _, def := range defaults {
		var existing CollectionWorkflow
		err := db.Where("user_id IS NULL AND aging_bucket = ?", def.bucket).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		workflow := CollectionWorkflow{
			Name:        def.name,
			Description: "Global default workflow",
			AgingBucket: def.bucket,
			IsActive:    true,
		}
		if err := db.Create(&workflow).Error; err != nil {
			return err
		}
		for _, s := range def.steps {
			step := WorkflowStep{
				WorkflowID:   workflow.ID,
				StepOrder:    s.order,
				DayOffset:    s.offset,
				Channel:      s.channel,
				IsActive:     true,
				BodyTemplate: s.template,
			}
			if err := db.Create(&step).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func intPtr(v int) *int { return &v }
