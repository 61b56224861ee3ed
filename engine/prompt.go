package engine

import (
	"fmt"
	"strings"

	"collectra/models"
)

// ToneModifier adjusts the emotional register of generated copy
// without changing the underlying persona. ToneStandard is a no-op.
type ToneModifier string

const (
	ToneStandard         ToneModifier = "standard"
	ToneMoreFriendly     ToneModifier = "more_friendly"
	ToneMoreProfessional ToneModifier = "more_professional"
	ToneMoreUrgent       ToneModifier = "more_urgent"
	ToneMoreEmpathetic   ToneModifier = "more_empathetic"
	ToneMoreDirect       ToneModifier = "more_direct"
)

// ApproachStyle adjusts the strategic framing of generated copy.
// ApproachStandard is a no-op.
type ApproachStyle string

const (
	ApproachStandard            ApproachStyle = "standard"
	ApproachInvoiceReminder     ApproachStyle = "invoice_reminder"
	ApproachPaymentRequest      ApproachStyle = "payment_request"
	ApproachSettlementOffer     ApproachStyle = "settlement_offer"
	ApproachFinalNotice         ApproachStyle = "final_notice"
	ApproachRelationshipFocused ApproachStyle = "relationship_focused"
)

// ParseToneModifier maps external input onto the closed tone enum.
// Unknown or empty keys resolve to ToneStandard — permissive by
// policy, never an error.
func ParseToneModifier(s string) ToneModifier {
	switch ToneModifier(strings.ToLower(strings.TrimSpace(s))) {
	case ToneMoreFriendly, ToneMoreProfessional, ToneMoreUrgent, ToneMoreEmpathetic, ToneMoreDirect:
		return ToneModifier(strings.ToLower(strings.TrimSpace(s)))
	default:
		return ToneStandard
	}
}

// ParseApproachStyle maps external input onto the closed approach
// enum, with the same unknown-to-standard policy as tones.
func ParseApproachStyle(s string) ApproachStyle {
	switch ApproachStyle(strings.ToLower(strings.TrimSpace(s))) {
	case ApproachInvoiceReminder, ApproachPaymentRequest, ApproachSettlementOffer,
		ApproachFinalNotice, ApproachRelationshipFocused:
		return ApproachStyle(strings.ToLower(strings.TrimSpace(s)))
	default:
		return ApproachStandard
	}
}

var toneInstructions = map[ToneModifier]string{
	ToneMoreFriendly: "Tone adjustment: write noticeably warmer and more personable than the base " +
		"voice. Use the recipient's name, soften requests, and close on an upbeat note.",
	ToneMoreProfessional: "Tone adjustment: write in a strictly professional business register. " +
		"No colloquialisms, no exclamation marks, precise and measured phrasing throughout.",
	ToneMoreUrgent: "Tone adjustment: heighten the urgency of the message. Emphasize time " +
		"sensitivity, use direct calls to action, and make the consequence of inaction clear " +
		"without being threatening.",
	ToneMoreEmpathetic: "Tone adjustment: acknowledge that the recipient may be facing " +
		"difficulties. Lead with understanding, explicitly invite them to discuss their " +
		"situation, and frame payment as something to work out together.",
	ToneMoreDirect: "Tone adjustment: strip pleasantries to a minimum. Short sentences, " +
		"the amount and the ask up front, no hedging language.",
}

var approachInstructions = map[ApproachStyle]string{
	ApproachInvoiceReminder: "Approach: frame the message purely as an invoice reminder. " +
		"Restate the invoice details and due date; do not press for immediate payment beyond " +
		"asking when it will be made.",
	ApproachPaymentRequest: "Approach: make an explicit payment request. Ask for payment of the " +
		"stated amount by a concrete near-term date and name the accepted payment methods.",
	ApproachSettlementOffer: "Approach: open the door to settlement. Indicate willingness to " +
		"discuss a reduced lump-sum settlement or structured payment plan if the full balance " +
		"cannot be paid now.",
	ApproachFinalNotice: "Approach: write this as a final notice. State plainly that this is the " +
		"last direct request before the account is escalated, while still inviting the recipient " +
		"to resolve the balance.",
	ApproachRelationshipFocused: "Approach: prioritize preserving the business relationship. " +
		"Reference the history of working together and frame resolving the balance as a way to " +
		"keep the relationship in good standing.",
}

// compliancePreamble is prepended to every generation request. The
// engine drafts first-party receivables outreach only.
const compliancePreamble = "You draft accounts-receivable outreach on behalf of the creditor's own " +
	"billing team. Never present yourself as a third-party collection agency, attorney, or " +
	"government body. Never threaten, harass, or imply legal consequences that have not been " +
	"stated as facts. Always invite the recipient to respond with questions or payment " +
	"difficulties. Do not invent amounts, dates, or terms beyond those provided."

const emailOutputContract = "Output contract: produce an email as JSON with fields \"subject\" and " +
	"\"body\". The subject must be a single concise line. The body is plain text, no HTML."

const smsOutputContract = "Output contract: produce an SMS as JSON with a single field \"body\". " +
	"The body must be at most 160 characters, plain text, no links other than those provided."

// MessageFacts carries the invoice/debtor values substituted into
// step templates and appended to the generation request.
type MessageFacts struct {
	InvoiceNumber string
	DebtorName    string
	CompanyName   string
	AmountDue     string
	Currency      string
	DueDate       string
	DaysPastDue   int
}

// FactsForInvoice flattens an invoice and its debtor into template
// facts. Amounts render with two decimals from cents.
func FactsForInvoice(inv *models.Invoice, tenant *models.User, daysPastDue int) MessageFacts {
	company := ""
	if tenant != nil {
		company = tenant.CompanyName
		if company == "" && tenant.Name != nil {
			company = *tenant.Name
		}
	}
	return MessageFacts{
		InvoiceNumber: inv.InvoiceNumber,
		DebtorName:    inv.Debtor.DisplayName(),
		CompanyName:   company,
		AmountDue:     fmt.Sprintf("%.2f", float64(inv.AmountCents)/100),
		Currency:      inv.Currency,
		DueDate:       inv.DueDate.Format("2006-01-02"),
		DaysPastDue:   daysPastDue,
	}
}

// RenderTemplate substitutes {{token}} placeholders with fact values.
// Unknown tokens are left untouched so template mistakes stay visible
// to reviewers instead of silently vanishing.
func RenderTemplate(tmpl string, facts MessageFacts) string {
	r := strings.NewReplacer(
		"{{invoice_number}}", facts.InvoiceNumber,
		"{{debtor_name}}", facts.DebtorName,
		"{{company_name}}", facts.CompanyName,
		"{{amount_due}}", facts.AmountDue,
		"{{currency}}", facts.Currency,
		"{{due_date}}", facts.DueDate,
		"{{days_past_due}}", fmt.Sprintf("%d", facts.DaysPastDue),
	)
	return r.Replace(tmpl)
}

// PromptInput is everything the composer needs for one step.
type PromptInput struct {
	PersonaVoice string
	Tone         ToneModifier
	Approach     ApproachStyle
	Channel      string // models.ChannelEmail or models.ChannelSMS
	BodyTemplate string
	Facts        MessageFacts
}

// ComposePrompt builds the full generation request for one draft. It
// is a pure function of its inputs: compliance preamble, persona
// voice, tone block (if non-standard), approach block (if
// non-standard), then the channel output contract, in that order.
func ComposePrompt(in PromptInput) GenerationRequest {
	var sys strings.Builder
	sys.WriteString(compliancePreamble)
	sys.WriteString("\n\n")
	sys.WriteString(in.PersonaVoice)

	if block, ok := toneInstructions[in.Tone]; ok {
		sys.WriteString("\n\n")
		sys.WriteString(block)
	}
	if block, ok := approachInstructions[in.Approach]; ok {
		sys.WriteString("\n\n")
		sys.WriteString(block)
	}

	sys.WriteString("\n\n")
	if in.Channel == models.ChannelSMS {
		sys.WriteString(smsOutputContract)
	} else {
		sys.WriteString(emailOutputContract)
	}

	var usr strings.Builder
	usr.WriteString("Draft the next outreach message based on this template, keeping its intent ")
	usr.WriteString("and facts while applying the voice instructions:\n\n")
	usr.WriteString(RenderTemplate(in.BodyTemplate, in.Facts))
	usr.WriteString("\n\nInvoice facts:\n")
	fmt.Fprintf(&usr, "- Invoice number: %s\n", in.Facts.InvoiceNumber)
	fmt.Fprintf(&usr, "- Recipient: %s\n", in.Facts.DebtorName)
	fmt.Fprintf(&usr, "- Amount due: %s %s\n", in.Facts.AmountDue, in.Facts.Currency)
	fmt.Fprintf(&usr, "- Due date: %s\n", in.Facts.DueDate)
	fmt.Fprintf(&usr, "- Days past due: %d\n", in.Facts.DaysPastDue)
	fmt.Fprintf(&usr, "- Creditor: %s\n", in.Facts.CompanyName)

	return GenerationRequest{
		SystemInstructions: sys.String(),
		UserInstructions:   usr.String(),
		Channel:            in.Channel,
	}
}
