package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNoWorkflowConfigured aborts a batch: neither a tenant-owned
	// nor a global active workflow exists for the bucket, or the
	// resolved workflow has zero active steps.
	ErrNoWorkflowConfigured = errors.New("no workflow configured")

	// ErrNoBucketMatch means a computed days-past-due value fell
	// outside every bucket range. The bucket table is supposed to be
	// contiguous and total, so this is a configuration bug, not a
	// retryable condition.
	ErrNoBucketMatch = errors.New("no aging bucket matches days past due")

	// ErrDuplicateDraft is returned by the store when the draft insert
	// hits the (invoice_id, workflow_step_id) uniqueness constraint.
	// Another process already drafted this step; the batch counts it
	// as skipped, not failed.
	ErrDuplicateDraft = errors.New("non-terminal draft already exists for step")
)

// ConfigurationError wraps a batch-fatal setup problem with the bucket
// it occurred for.
type ConfigurationError struct {
	Bucket string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("bucket %s: %v", e.Bucket, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
