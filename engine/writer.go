package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"collectra/models"
)

// generationTimeout bounds one backend call; a timeout is the same
// non-fatal per-step failure as any other generation error.
const generationTimeout = 45 * time.Second

// DraftWriter turns one eligible step into one persisted draft.
type DraftWriter struct {
	Store     Store
	Generator Generator
}

// WriteInput is everything needed to draft one (invoice, step) pair.
type WriteInput struct {
	Tenant   *models.User
	Invoice  *models.Invoice
	Step     *models.WorkflowStep
	Persona  *models.Persona
	Tone     ToneModifier
	Approach ApproachStyle
	DPD      int
	Today    time.Time
	RunID    string
}

// WriteDraft composes the prompt, invokes the generation backend,
// validates the structured result, and persists exactly one draft.
// ErrDuplicateDraft propagates unchanged so the caller can count the
// step as skipped rather than failed. Any other error means zero rows
// were written for this step.
func (w *DraftWriter) WriteDraft(ctx context.Context, in WriteInput) (*models.Draft, error) {
	req := ComposePrompt(PromptInput{
		PersonaVoice: in.Persona.VoiceInstructions,
		Tone:         in.Tone,
		Approach:     in.Approach,
		Channel:      in.Step.Channel,
		BodyTemplate: in.Step.BodyTemplate,
		Facts:        FactsForInvoice(in.Invoice, in.Tenant, in.DPD),
	})

	genCtx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()

	result, err := w.Generator.Generate(genCtx, req)
	if err != nil {
		return nil, fmt.Errorf("generation failed for invoice %s step %d: %w",
			in.Invoice.InvoiceNumber, in.Step.StepOrder, err)
	}
	if err := validateResult(in.Step.Channel, result); err != nil {
		return nil, fmt.Errorf("invalid generation for invoice %s step %d: %w",
			in.Invoice.InvoiceNumber, in.Step.StepOrder, err)
	}

	draft := &models.Draft{
		UserID:            in.Invoice.UserID,
		InvoiceID:         in.Invoice.ID,
		WorkflowStepID:    in.Step.ID,
		PersonaID:         in.Persona.ID,
		Channel:           in.Step.Channel,
		Subject:           result.Subject,
		MessageBody:       result.Body,
		StepNumber:        in.Step.StepOrder,
		DaysPastDue:       in.DPD,
		Status:            models.DraftStatusPendingApproval,
		RecommendedSendAt: RecommendedSendDate(in.Invoice.DueDate, in.Step.DayOffset, in.Today),
		ToneModifier:      string(in.Tone),
		ApproachStyle:     string(in.Approach),
	}

	if err := w.Store.CreateDraft(draft, in.RunID); err != nil {
		if errors.Is(err, ErrDuplicateDraft) {
			return nil, err
		}
		return nil, fmt.Errorf("persisting draft for invoice %s step %d: %w",
			in.Invoice.InvoiceNumber, in.Step.StepOrder, err)
	}
	return draft, nil
}

// RecommendedSendDate is dueDate + offset days, floored at today: a
// step whose nominal offset already elapsed is scheduled for now, not
// the past.
func RecommendedSendDate(dueDate time.Time, dayOffset int, today time.Time) time.Time {
	loc := today.Location()
	target := time.Date(dueDate.Year(), dueDate.Month(), dueDate.Day(), 0, 0, 0, 0, loc).
		AddDate(0, 0, dayOffset)
	floor := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)
	if target.Before(floor) {
		return floor
	}
	return target
}

func validateResult(channel string, result *GenerationResult) error {
	if result == nil || strings.TrimSpace(result.Body) == "" {
		return errors.New("empty message body")
	}
	if channel == models.ChannelEmail && strings.TrimSpace(result.Subject) == "" {
		return errors.New("email subject missing")
	}
	return nil
}
