package engine

import "collectra/models"

// ResolveWorkflow finds the single workflow governing a tenant's
// bucket: a tenant-owned active workflow wins over the global
// default. Missing workflow or zero active steps is a configuration
// error that aborts processing for this bucket only.
func ResolveWorkflow(store Store, userID uint, bucket string) (*models.CollectionWorkflow, error) {
	wf, err := store.TenantWorkflow(userID, bucket)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		wf, err = store.GlobalWorkflow(bucket)
		if err != nil {
			return nil, err
		}
	}
	if wf == nil || len(wf.ActiveSteps()) == 0 {
		return nil, &ConfigurationError{Bucket: bucket, Err: ErrNoWorkflowConfigured}
	}
	return wf, nil
}

// EligibleSteps is the idempotency gate: the workflow's active steps
// minus those that already have a non-terminal draft for this
// invoice. Deliberately not gated on day_offset — pacing is enforced
// downstream by recommended_send_at, not by withholding generation.
func EligibleSteps(store Store, invoiceID uint, steps []models.WorkflowStep) ([]models.WorkflowStep, error) {
	ids := make([]uint, 0, len(steps))
	for _, s := range steps {
		ids = append(ids, s.ID)
	}
	drafted, err := store.DraftedStepIDs(invoiceID, ids)
	if err != nil {
		return nil, err
	}

	eligible := make([]models.WorkflowStep, 0, len(steps))
	for _, s := range steps {
		if !drafted[s.ID] {
			eligible = append(eligible, s)
		}
	}
	return eligible, nil
}
