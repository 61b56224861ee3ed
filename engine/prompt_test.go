package engine

import (
	"strings"
	"testing"

	"collectra/models"
)

func TestParseToneModifier(t *testing.T) {
	tests := []struct {
		in   string
		want ToneModifier
	}{
		{"more_friendly", ToneMoreFriendly},
		{"MORE_URGENT", ToneMoreUrgent},
		{"  more_direct  ", ToneMoreDirect},
		{"standard", ToneStandard},
		{"", ToneStandard},
		{"shouty", ToneStandard},
	}

	for _, tt := range tests {
		if got := ParseToneModifier(tt.in); got != tt.want {
			t.Errorf("ParseToneModifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseApproachStyle(t *testing.T) {
	tests := []struct {
		in   string
		want ApproachStyle
	}{
		{"final_notice", ApproachFinalNotice},
		{"Settlement_Offer", ApproachSettlementOffer},
		{"", ApproachStandard},
		{"legal_threat", ApproachStandard},
	}

	for _, tt := range tests {
		if got := ParseApproachStyle(tt.in); got != tt.want {
			t.Errorf("ParseApproachStyle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderTemplate(t *testing.T) {
	facts := MessageFacts{
		InvoiceNumber: "INV-1042",
		DebtorName:    "Acme Corp",
		CompanyName:   "Widgets Inc",
		AmountDue:     "1250.00",
		Currency:      "USD",
		DueDate:       "2026-02-01",
		DaysPastDue:   42,
	}

	in := "Invoice {{invoice_number}} for {{amount_due}} {{currency}} to {{debtor_name}} " +
		"was due {{due_date}} ({{days_past_due}} days ago). Regards, {{company_name}}."
	got := RenderTemplate(in, facts)
	want := "Invoice INV-1042 for 1250.00 USD to Acme Corp was due 2026-02-01 (42 days ago). " +
		"Regards, Widgets Inc."
	if got != want {
		t.Errorf("RenderTemplate() = %q, want %q", got, want)
	}
}

// Unknown tokens stay in place so template mistakes are visible to
// reviewers.
func TestRenderTemplateLeavesUnknownTokens(t *testing.T) {
	got := RenderTemplate("Hello {{first_name}}, invoice {{invoice_number}} is due.",
		MessageFacts{InvoiceNumber: "INV-7"})
	if !strings.Contains(got, "{{first_name}}") {
		t.Errorf("unknown token was consumed: %q", got)
	}
	if !strings.Contains(got, "INV-7") {
		t.Errorf("known token was not substituted: %q", got)
	}
}

func TestComposePromptSectionOrder(t *testing.T) {
	req := ComposePrompt(PromptInput{
		PersonaVoice: "Speak as a courteous billing coordinator.",
		Tone:         ToneMoreUrgent,
		Approach:     ApproachFinalNotice,
		Channel:      models.ChannelEmail,
		BodyTemplate: "Invoice {{invoice_number}} is overdue.",
		Facts:        MessageFacts{InvoiceNumber: "INV-9", DebtorName: "Acme"},
	})

	sys := req.SystemInstructions
	idxCompliance := strings.Index(sys, "accounts-receivable outreach")
	idxPersona := strings.Index(sys, "courteous billing coordinator")
	idxTone := strings.Index(sys, "heighten the urgency")
	idxApproach := strings.Index(sys, "final notice")
	idxContract := strings.Index(sys, "Output contract")

	for name, idx := range map[string]int{
		"compliance": idxCompliance,
		"persona":    idxPersona,
		"tone":       idxTone,
		"approach":   idxApproach,
		"contract":   idxContract,
	} {
		if idx < 0 {
			t.Fatalf("system instructions missing %s section", name)
		}
	}
	if !(idxCompliance < idxPersona && idxPersona < idxTone &&
		idxTone < idxApproach && idxApproach < idxContract) {
		t.Errorf("system sections out of order: compliance=%d persona=%d tone=%d approach=%d contract=%d",
			idxCompliance, idxPersona, idxTone, idxApproach, idxContract)
	}

	if !strings.Contains(req.UserInstructions, "Invoice INV-9 is overdue.") {
		t.Errorf("user instructions missing rendered template: %q", req.UserInstructions)
	}
}

// Standard tone and approach contribute no adjustment blocks.
func TestComposePromptStandardOmitsAdjustments(t *testing.T) {
	req := ComposePrompt(PromptInput{
		PersonaVoice: "Base voice.",
		Tone:         ToneStandard,
		Approach:     ApproachStandard,
		Channel:      models.ChannelSMS,
		BodyTemplate: "Pay up.",
	})

	if strings.Contains(req.SystemInstructions, "Tone adjustment") {
		t.Error("standard tone produced a tone adjustment block")
	}
	if strings.Contains(req.SystemInstructions, "Approach:") {
		t.Error("standard approach produced an approach block")
	}
	if !strings.Contains(req.SystemInstructions, "160 characters") {
		t.Error("sms channel did not select the sms output contract")
	}
	if req.Channel != models.ChannelSMS {
		t.Errorf("Channel = %q, want %q", req.Channel, models.ChannelSMS)
	}
}

// Same input, same output: the composer holds no state.
func TestComposePromptIsPure(t *testing.T) {
	in := PromptInput{
		PersonaVoice: "Voice.",
		Tone:         ToneMoreFriendly,
		Approach:     ApproachPaymentRequest,
		Channel:      models.ChannelEmail,
		BodyTemplate: "Invoice {{invoice_number}}.",
		Facts:        MessageFacts{InvoiceNumber: "INV-1"},
	}

	a := ComposePrompt(in)
	b := ComposePrompt(in)
	if a != b {
		t.Error("ComposePrompt() is not deterministic for identical input")
	}
}
