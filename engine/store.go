package engine

import (
	"context"

	"collectra/models"
)

// Store is the persistence surface the engine needs. The gorm-backed
// implementation lives in this package; tests use an in-memory fake.
type Store interface {
	// OpenInvoices returns the tenant's invoices in the open status
	// set with debtor and contacts preloaded.
	OpenInvoices(userID uint) ([]models.Invoice, error)

	// TenantWorkflow returns the tenant's active workflow for the
	// bucket with steps preloaded in step order, or nil when none.
	TenantWorkflow(userID uint, bucket string) (*models.CollectionWorkflow, error)

	// GlobalWorkflow is the user_id-null default counterpart.
	GlobalWorkflow(bucket string) (*models.CollectionWorkflow, error)

	// Personas returns the persona reference table.
	Personas() ([]models.Persona, error)

	// DraftedStepIDs returns which of stepIDs already carry a
	// non-terminal draft for the invoice.
	DraftedStepIDs(invoiceID uint, stepIDs []uint) (map[uint]bool, error)

	// CreateDraft persists a new pending draft, deducting one draft
	// credit from the owning tenant in the same transaction. Returns
	// ErrDuplicateDraft when the (invoice, step) uniqueness constraint
	// fires.
	CreateDraft(draft *models.Draft, runID string) error
}

// GenerationRequest is the structured request sent to the text
// generation backend.
type GenerationRequest struct {
	SystemInstructions string
	UserInstructions   string
	Channel            string // email expects {subject, body}; sms expects {body}
}

// GenerationResult is the structured response. Subject is empty for
// SMS generations.
type GenerationResult struct {
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}

// Generator produces outreach copy from a composed prompt. Any
// non-success is a per-step failure; no retry contract is assumed.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
}
