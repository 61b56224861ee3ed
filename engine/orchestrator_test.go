package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"collectra/models"

	"gorm.io/gorm"
)

// fakeStore is the in-memory Store used by orchestrator tests.
type fakeStore struct {
	invoices  []models.Invoice
	tenantWF  map[string]*models.CollectionWorkflow
	globalWF  map[string]*models.CollectionWorkflow
	personas  []models.Persona
	drafted   map[uint]map[uint]bool // invoiceID -> stepID
	created   []models.Draft
	createErr error

	tenantWFCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tenantWF: map[string]*models.CollectionWorkflow{},
		globalWF: map[string]*models.CollectionWorkflow{},
		drafted:  map[uint]map[uint]bool{},
	}
}

func (s *fakeStore) OpenInvoices(userID uint) ([]models.Invoice, error) {
	return s.invoices, nil
}

func (s *fakeStore) TenantWorkflow(userID uint, bucket string) (*models.CollectionWorkflow, error) {
	s.tenantWFCalls++
	return s.tenantWF[bucket], nil
}

func (s *fakeStore) GlobalWorkflow(bucket string) (*models.CollectionWorkflow, error) {
	return s.globalWF[bucket], nil
}

func (s *fakeStore) Personas() ([]models.Persona, error) {
	return s.personas, nil
}

func (s *fakeStore) DraftedStepIDs(invoiceID uint, stepIDs []uint) (map[uint]bool, error) {
	out := map[uint]bool{}
	for _, id := range stepIDs {
		if s.drafted[invoiceID][id] {
			out[id] = true
		}
	}
	return out, nil
}

func (s *fakeStore) CreateDraft(draft *models.Draft, runID string) error {
	if s.createErr != nil {
		return s.createErr
	}
	if s.drafted[draft.InvoiceID][draft.WorkflowStepID] {
		return ErrDuplicateDraft
	}
	if s.drafted[draft.InvoiceID] == nil {
		s.drafted[draft.InvoiceID] = map[uint]bool{}
	}
	s.drafted[draft.InvoiceID][draft.WorkflowStepID] = true
	s.created = append(s.created, *draft)
	return nil
}

// fakeGenerator returns canned copy, optionally failing on chosen
// invoice numbers.
type fakeGenerator struct {
	failFor map[string]bool
	calls   int
}

func (g *fakeGenerator) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	g.calls++
	for number := range g.failFor {
		if strings.Contains(req.UserInstructions, number) {
			return nil, errors.New("backend unavailable")
		}
	}
	if req.Channel == models.ChannelSMS {
		return &GenerationResult{Body: "Please pay your invoice."}, nil
	}
	return &GenerationResult{Subject: "Payment reminder", Body: "Please pay your invoice."}, nil
}

func testToday() time.Time {
	return time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
}

func testInvoice(id uint, number string, dpd int) models.Invoice {
	inv := models.Invoice{
		UserID:        1,
		InvoiceNumber: number,
		AmountCents:   125000,
		Currency:      "USD",
		DueDate:       testToday().AddDate(0, 0, -dpd),
		Status:        models.InvoiceStatusOpen,
		Debtor:        models.Debtor{Name: "Acme Corp"},
	}
	inv.ID = id
	return inv
}

func testWorkflow(bucket string, stepIDs ...uint) *models.CollectionWorkflow {
	wf := &models.CollectionWorkflow{
		Name:        "Test workflow",
		AgingBucket: bucket,
		IsActive:    true,
	}
	for i, id := range stepIDs {
		step := models.WorkflowStep{
			StepOrder:    i + 1,
			DayOffset:    (i + 1) * 7,
			Channel:      models.ChannelEmail,
			IsActive:     true,
			BodyTemplate: "Invoice {{invoice_number}} is overdue.",
		}
		step.ID = id
		wf.Steps = append(wf.Steps, step)
	}
	return wf
}

func testOrchestrator(store *fakeStore, gen Generator) *Orchestrator {
	o := NewOrchestrator(store, gen, nil)
	o.Now = testToday
	return o
}

func TestRunBucketDraftGeneration(t *testing.T) {
	store := newFakeStore()
	store.invoices = []models.Invoice{
		testInvoice(1, "INV-1", 40),
		testInvoice(2, "INV-2", 55),
		testInvoice(3, "INV-3", 5), // different bucket, must be ignored
	}
	store.tenantWF[models.BucketDPD31_60] = testWorkflow(models.BucketDPD31_60, 10, 11)
	store.personas = testPersonas()

	gen := &fakeGenerator{}
	o := testOrchestrator(store, gen)

	var events []ProgressEvent
	result, err := o.RunBucketDraftGeneration(context.Background(), &models.User{}, models.BucketDPD31_60,
		RunOptions{RunID: "run-1", OnProgress: func(ev ProgressEvent) { events = append(events, ev) }})
	if err != nil {
		t.Fatalf("RunBucketDraftGeneration() error = %v", err)
	}

	if result.InvoicesProcessed != 2 {
		t.Errorf("InvoicesProcessed = %d, want 2", result.InvoicesProcessed)
	}
	if result.DraftsCreated != 4 {
		t.Errorf("DraftsCreated = %d, want 4", result.DraftsCreated)
	}
	if result.DraftsSkipped != 0 || len(result.Errors) != 0 {
		t.Errorf("unexpected skips/errors: %+v", result)
	}
	if len(events) != 2 {
		t.Errorf("progress events = %d, want 2", len(events))
	}
	if len(events) > 0 && events[len(events)-1].InvoicesTotal != 2 {
		t.Errorf("InvoicesTotal = %d, want 2", events[len(events)-1].InvoicesTotal)
	}

	for _, d := range store.created {
		if d.Status != models.DraftStatusPendingApproval {
			t.Errorf("draft status = %s, want pending_approval", d.Status)
		}
		if d.DaysPastDue != 40 && d.DaysPastDue != 55 {
			t.Errorf("unexpected DaysPastDue %d", d.DaysPastDue)
		}
	}
}

// Steps that already carry a non-terminal draft are filtered before
// generation: no backend call, no skip counted.
func TestRunSkipsAlreadyDraftedSteps(t *testing.T) {
	store := newFakeStore()
	store.invoices = []models.Invoice{testInvoice(1, "INV-1", 40)}
	store.tenantWF[models.BucketDPD31_60] = testWorkflow(models.BucketDPD31_60, 10, 11)
	store.personas = testPersonas()
	store.drafted[1] = map[uint]bool{10: true}

	gen := &fakeGenerator{}
	o := testOrchestrator(store, gen)

	result, err := o.RunBucketDraftGeneration(context.Background(), &models.User{}, models.BucketDPD31_60, RunOptions{})
	if err != nil {
		t.Fatalf("RunBucketDraftGeneration() error = %v", err)
	}
	if result.DraftsCreated != 1 {
		t.Errorf("DraftsCreated = %d, want 1", result.DraftsCreated)
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d, want 1 (pre-drafted step must not reach the backend)", gen.calls)
	}
}

// Running the same bucket twice never doubles drafts: the second run
// finds every step already drafted and writes nothing.
func TestRunTwiceCreatesDraftsOnce(t *testing.T) {
	store := newFakeStore()
	store.invoices = []models.Invoice{testInvoice(1, "INV-1", 40)}
	store.tenantWF[models.BucketDPD31_60] = testWorkflow(models.BucketDPD31_60, 10, 11)
	store.personas = testPersonas()

	o := testOrchestrator(store, &fakeGenerator{})

	first, err := o.RunBucketDraftGeneration(context.Background(), &models.User{}, models.BucketDPD31_60, RunOptions{})
	if err != nil {
		t.Fatalf("first run error = %v", err)
	}
	second, err := o.RunBucketDraftGeneration(context.Background(), &models.User{}, models.BucketDPD31_60, RunOptions{})
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}

	if first.DraftsCreated != 2 {
		t.Errorf("first run DraftsCreated = %d, want 2", first.DraftsCreated)
	}
	if second.DraftsCreated != 0 || second.DraftsSkipped != 0 {
		t.Errorf("second run = %+v, want nothing created or skipped", second)
	}
	if len(store.created) != 2 {
		t.Errorf("total drafts persisted = %d, want 2", len(store.created))
	}
}

// A duplicate-key race at write time counts the step as skipped, not
// failed.
func TestRunCountsDuplicateWritesAsSkipped(t *testing.T) {
	store := newFakeStore()
	store.invoices = []models.Invoice{testInvoice(1, "INV-1", 40)}
	store.tenantWF[models.BucketDPD31_60] = testWorkflow(models.BucketDPD31_60, 10)
	store.personas = testPersonas()
	store.createErr = fmt.Errorf("insert drafts: %w", ErrDuplicateDraft)

	o := testOrchestrator(store, &fakeGenerator{})
	result, err := o.RunBucketDraftGeneration(context.Background(), &models.User{}, models.BucketDPD31_60, RunOptions{})
	if err != nil {
		t.Fatalf("RunBucketDraftGeneration() error = %v", err)
	}
	if result.DraftsSkipped != 1 {
		t.Errorf("DraftsSkipped = %d, want 1", result.DraftsSkipped)
	}
	if result.DraftsCreated != 0 || len(result.Errors) != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
}

// A failing generation for one invoice must not stop the rest of the
// batch.
func TestRunCollectsPerStepFailures(t *testing.T) {
	store := newFakeStore()
	store.invoices = []models.Invoice{
		testInvoice(1, "INV-1", 40),
		testInvoice(2, "INV-2", 41),
		testInvoice(3, "INV-3", 42),
	}
	store.tenantWF[models.BucketDPD31_60] = testWorkflow(models.BucketDPD31_60, 10)
	store.personas = testPersonas()

	gen := &fakeGenerator{failFor: map[string]bool{"INV-2": true}}
	o := testOrchestrator(store, gen)

	result, err := o.RunBucketDraftGeneration(context.Background(), &models.User{}, models.BucketDPD31_60, RunOptions{})
	if err != nil {
		t.Fatalf("RunBucketDraftGeneration() error = %v", err)
	}
	if result.DraftsCreated != 2 {
		t.Errorf("DraftsCreated = %d, want 2", result.DraftsCreated)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("Errors = %v, want exactly 1", result.Errors)
	}
	if !strings.Contains(result.Errors[0], "INV-2") {
		t.Errorf("error does not name the failing invoice: %s", result.Errors[0])
	}
	if result.InvoicesProcessed != 3 {
		t.Errorf("InvoicesProcessed = %d, want 3", result.InvoicesProcessed)
	}
}

// An empty bucket returns a zero result before workflow resolution:
// no configuration error for buckets the tenant has nothing in.
func TestRunEmptyBucketShortCircuits(t *testing.T) {
	store := newFakeStore()
	store.invoices = []models.Invoice{testInvoice(1, "INV-1", 5)} // dpd_1_30 only

	o := testOrchestrator(store, &fakeGenerator{})
	result, err := o.RunBucketDraftGeneration(context.Background(), &models.User{}, models.BucketDPD91_120, RunOptions{})
	if err != nil {
		t.Fatalf("RunBucketDraftGeneration() error = %v", err)
	}
	if result.InvoicesProcessed != 0 || result.DraftsCreated != 0 {
		t.Errorf("unexpected result for empty bucket: %+v", result)
	}
	if store.tenantWFCalls != 0 {
		t.Errorf("workflow resolved for an empty bucket")
	}
}

func TestRunMissingWorkflowIsConfigurationError(t *testing.T) {
	store := newFakeStore()
	store.invoices = []models.Invoice{testInvoice(1, "INV-1", 40)}
	store.personas = testPersonas()

	o := testOrchestrator(store, &fakeGenerator{})
	_, err := o.RunBucketDraftGeneration(context.Background(), &models.User{}, models.BucketDPD31_60, RunOptions{})

	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want ConfigurationError", err)
	}
	if cfgErr.Bucket != models.BucketDPD31_60 {
		t.Errorf("ConfigurationError.Bucket = %s, want %s", cfgErr.Bucket, models.BucketDPD31_60)
	}
	if !errors.Is(err, ErrNoWorkflowConfigured) {
		t.Errorf("error does not wrap ErrNoWorkflowConfigured: %v", err)
	}
}

// A tenant workflow shadows the global default for the same bucket.
func TestRunPrefersTenantWorkflowOverGlobal(t *testing.T) {
	store := newFakeStore()
	store.invoices = []models.Invoice{testInvoice(1, "INV-1", 40)}
	store.personas = testPersonas()
	store.globalWF[models.BucketDPD31_60] = testWorkflow(models.BucketDPD31_60, 20, 21, 22)
	store.tenantWF[models.BucketDPD31_60] = testWorkflow(models.BucketDPD31_60, 10)

	o := testOrchestrator(store, &fakeGenerator{})
	result, err := o.RunBucketDraftGeneration(context.Background(), &models.User{}, models.BucketDPD31_60, RunOptions{})
	if err != nil {
		t.Fatalf("RunBucketDraftGeneration() error = %v", err)
	}
	if result.DraftsCreated != 1 {
		t.Errorf("DraftsCreated = %d, want 1 (tenant workflow has one step)", result.DraftsCreated)
	}
	if len(store.created) == 1 && store.created[0].WorkflowStepID != 10 {
		t.Errorf("draft written for step %d, want tenant step 10", store.created[0].WorkflowStepID)
	}
}

// Cancellation between invoices keeps already-written drafts and
// returns the partial result with the context error.
func TestRunContextCancellation(t *testing.T) {
	store := newFakeStore()
	store.invoices = []models.Invoice{
		testInvoice(1, "INV-1", 40),
		testInvoice(2, "INV-2", 41),
	}
	store.tenantWF[models.BucketDPD31_60] = testWorkflow(models.BucketDPD31_60, 10)
	store.personas = testPersonas()

	ctx, cancel := context.WithCancel(context.Background())
	o := testOrchestrator(store, &fakeGenerator{})

	result, err := o.RunBucketDraftGeneration(ctx, &models.User{}, models.BucketDPD31_60, RunOptions{
		OnProgress: func(ProgressEvent) { cancel() }, // cancel after the first invoice
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if result == nil || result.DraftsCreated != 1 {
		t.Errorf("partial result = %+v, want 1 draft from the first invoice", result)
	}
}

// The engine treats gorm.ErrDuplicatedKey at the store boundary as its
// own duplicate sentinel; nothing above the store may depend on gorm.
func TestDuplicateDraftSentinelIsDistinct(t *testing.T) {
	if errors.Is(ErrDuplicateDraft, gorm.ErrDuplicatedKey) {
		t.Error("ErrDuplicateDraft must not alias gorm.ErrDuplicatedKey")
	}
}
