package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"collectra/models"
)

func TestRecommendedSendDate(t *testing.T) {
	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		dueDate   time.Time
		dayOffset int
		want      time.Time
	}{
		{
			name:      "future offset keeps its date",
			dueDate:   time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			dayOffset: 14,
			want:      time.Date(2026, 3, 24, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "elapsed offset floors at today",
			dueDate:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			dayOffset: 7,
			want:      today,
		},
		{
			name:      "offset landing exactly today",
			dueDate:   time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
			dayOffset: 7,
			want:      today,
		},
		{
			name:      "negative offset before due date",
			dueDate:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			dayOffset: -3,
			want:      time.Date(2026, 3, 29, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RecommendedSendDate(tt.dueDate, tt.dayOffset, today)
			if !got.Equal(tt.want) {
				t.Errorf("RecommendedSendDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

// An email generation without a subject is rejected before any row is
// written.
func TestWriteDraftRejectsSubjectlessEmail(t *testing.T) {
	store := newFakeStore()
	gen := &subjectlessGenerator{}
	w := &DraftWriter{Store: store, Generator: gen}

	invoice := testInvoice(1, "INV-1", 40)
	step := models.WorkflowStep{StepOrder: 1, Channel: models.ChannelEmail, BodyTemplate: "x"}
	step.ID = 10
	persona := testPersonas()[0]

	_, err := w.WriteDraft(context.Background(), WriteInput{
		Tenant:  &models.User{},
		Invoice: &invoice,
		Step:    &step,
		Persona: &persona,
		Today:   testToday(),
	})
	if err == nil {
		t.Fatal("WriteDraft() accepted an email without a subject")
	}
	if !strings.Contains(err.Error(), "subject") {
		t.Errorf("error = %v, want subject validation failure", err)
	}
	if len(store.created) != 0 {
		t.Errorf("draft persisted despite invalid generation")
	}
}

type subjectlessGenerator struct{}

func (subjectlessGenerator) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	return &GenerationResult{Body: "body without subject"}, nil
}

// SMS drafts carry no subject and the writer must not reject them for
// that.
func TestWriteDraftAcceptsSubjectlessSMS(t *testing.T) {
	store := newFakeStore()
	w := &DraftWriter{Store: store, Generator: &fakeGenerator{}}

	invoice := testInvoice(1, "INV-1", 40)
	step := models.WorkflowStep{StepOrder: 2, DayOffset: 21, Channel: models.ChannelSMS, BodyTemplate: "x"}
	step.ID = 11
	persona := testPersonas()[0]

	draft, err := w.WriteDraft(context.Background(), WriteInput{
		Tenant:   &models.User{},
		Invoice:  &invoice,
		Step:     &step,
		Persona:  &persona,
		Tone:     ToneMoreFriendly,
		Approach: ApproachPaymentRequest,
		DPD:      40,
		Today:    testToday(),
		RunID:    "run-1",
	})
	if err != nil {
		t.Fatalf("WriteDraft() error = %v", err)
	}
	if draft.Subject != "" {
		t.Errorf("sms draft has subject %q", draft.Subject)
	}
	if draft.Channel != models.ChannelSMS {
		t.Errorf("Channel = %s, want sms", draft.Channel)
	}
	if draft.ToneModifier != string(ToneMoreFriendly) || draft.ApproachStyle != string(ApproachPaymentRequest) {
		t.Errorf("modifiers not recorded: %q %q", draft.ToneModifier, draft.ApproachStyle)
	}
	if draft.StepNumber != 2 || draft.DaysPastDue != 40 {
		t.Errorf("step/dpd not recorded: %d %d", draft.StepNumber, draft.DaysPastDue)
	}
}
