package engine

import (
	"errors"

	"gorm.io/gorm"

	"collectra/models"
)

// GormStore is the Postgres-backed Store used by the running service.
// The at-most-one-draft invariant is enforced by a partial unique
// index on drafts(invoice_id, workflow_step_id) for non-terminal
// statuses; the read-side eligibility filter is only an optimization
// to avoid wasted generation calls.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) OpenInvoices(userID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.DB.
		Preload("Debtor").
		Preload("Debtor.Contacts").
		Where("user_id = ? AND status IN ?", userID, models.OpenInvoiceStatuses).
		Order("due_date ASC").
		Find(&invoices).Error
	return invoices, err
}

func (s *GormStore) TenantWorkflow(userID uint, bucket string) (*models.CollectionWorkflow, error) {
	return s.findWorkflow(s.DB.Where("user_id = ? AND aging_bucket = ? AND is_active = ?", userID, bucket, true))
}

func (s *GormStore) GlobalWorkflow(bucket string) (*models.CollectionWorkflow, error) {
	return s.findWorkflow(s.DB.Where("user_id IS NULL AND aging_bucket = ? AND is_active = ?", bucket, true))
}

func (s *GormStore) findWorkflow(query *gorm.DB) (*models.CollectionWorkflow, error) {
	var wf models.CollectionWorkflow
	err := query.
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_order ASC")
		}).
		First(&wf).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wf, nil
}

func (s *GormStore) Personas() ([]models.Persona, error) {
	var personas []models.Persona
	err := s.DB.Order("bucket_min DESC").Find(&personas).Error
	return personas, err
}

func (s *GormStore) DraftedStepIDs(invoiceID uint, stepIDs []uint) (map[uint]bool, error) {
	drafted := make(map[uint]bool, len(stepIDs))
	if len(stepIDs) == 0 {
		return drafted, nil
	}

	var ids []uint
	err := s.DB.Model(&models.Draft{}).
		Where("invoice_id = ? AND workflow_step_id IN ? AND status IN ?",
			invoiceID, stepIDs, models.NonTerminalDraftStatuses).
		Pluck("workflow_step_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		drafted[id] = true
	}
	return drafted, nil
}

func (s *GormStore) CreateDraft(draft *models.Draft, runID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(draft).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateDraft
			}
			return err
		}

		// One draft, one credit; deducted atomically with the insert.
		if err := tx.Model(&models.User{}).
			Where("id = ?", draft.UserID).
			Updates(map[string]interface{}{
				"draft_credits":    gorm.Expr("draft_credits - ?", 1),
				"credits_consumed": gorm.Expr("credits_consumed + ?", 1),
			}).Error; err != nil {
			return err
		}

		usage := models.CreditUsage{
			UserID:    draft.UserID,
			DraftID:   &draft.ID,
			InvoiceID: &draft.InvoiceID,
			Amount:    1,
			Action:    "generate_draft",
			RunID:     runID,
		}
		return tx.Create(&usage).Error
	})
}
