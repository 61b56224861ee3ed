package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"collectra/models"
)

// RunOptions carries the per-batch knobs of a draft generation run.
type RunOptions struct {
	Tone     ToneModifier
	Approach ApproachStyle
	RunID    string

	// OnProgress, when set, is called after each invoice completes.
	// Used by the websocket progress feed; must not block for long.
	OnProgress func(ProgressEvent)
}

// ProgressEvent reports per-invoice progress during a run.
type ProgressEvent struct {
	RunID             string `json:"run_id"`
	InvoiceNumber     string `json:"invoice_number"`
	InvoicesProcessed int    `json:"invoices_processed"`
	InvoicesTotal     int    `json:"invoices_total"`
	DraftsCreated     int    `json:"drafts_created"`
}

// BatchResult is the summary every completed run returns. Per-step
// failures land in Errors; the run itself still succeeds.
type BatchResult struct {
	RunID             string   `json:"run_id"`
	AgingBucket       string   `json:"aging_bucket"`
	InvoicesProcessed int      `json:"invoices_processed"`
	DraftsCreated     int      `json:"drafts_created"`
	DraftsSkipped     int      `json:"drafts_skipped"`
	Errors            []string `json:"errors"`
}

// Orchestrator runs bucket-scoped draft generation batches. It holds
// no cross-invoice state beyond the aggregate counters of the run in
// flight; each invocation is independent.
type Orchestrator struct {
	Store     Store
	Generator Generator
	Buckets   []Bucket
	Logger    *log.Logger

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewOrchestrator(store Store, generator Generator, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		Store:     store,
		Generator: generator,
		Buckets:   DefaultBucketTable,
		Logger:    logger,
		Now:       time.Now,
	}
}

// RunBucketDraftGeneration processes every open invoice of the tenant
// that falls into the target bucket: resolve the bucket's workflow
// once, then per invoice select a persona, filter already-drafted
// steps, and write one draft per remaining step.
//
// Only configuration failures (no workflow, no steps) and bucket-table
// invariant violations abort the batch; everything else is collected
// into the result so the caller always gets a partial-success summary.
func (o *Orchestrator) RunBucketDraftGeneration(ctx context.Context, tenant *models.User, bucket string, opts RunOptions) (*BatchResult, error) {
	result := &BatchResult{
		RunID:       opts.RunID,
		AgingBucket: bucket,
		Errors:      []string{},
	}
	today := o.Now()

	invoices, err := o.Store.OpenInvoices(tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("loading open invoices: %w", err)
	}

	// Keep only invoices whose classified bucket matches the target.
	type classified struct {
		invoice models.Invoice
		dpd     int
	}
	var matching []classified
	for i := range invoices {
		dpd, b, err := Classify(o.Buckets, invoices[i].DueDate, today)
		if err != nil {
			// Bucket table invariant violation: fatal, never swallowed.
			return nil, err
		}
		if b.Label == bucket {
			matching = append(matching, classified{invoice: invoices[i], dpd: dpd})
		}
	}

	// Empty bucket short-circuits before workflow resolution, so a
	// tenant with nothing due in this bucket never sees a
	// configuration error for it.
	if len(matching) == 0 {
		return result, nil
	}

	workflow, err := ResolveWorkflow(o.Store, tenant.ID, bucket)
	if err != nil {
		return nil, err
	}
	steps := workflow.ActiveSteps()

	personas, err := o.Store.Personas()
	if err != nil {
		return nil, fmt.Errorf("loading personas: %w", err)
	}

	writer := &DraftWriter{Store: o.Store, Generator: o.Generator}

	for _, c := range matching {
		if err := ctx.Err(); err != nil {
			// Caller abort: already-written drafts stay intact; a
			// re-run resumes via the eligibility filter.
			return result, err
		}

		invoice := c.invoice
		persona := SelectPersona(personas, c.dpd)
		if persona == nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("invoice %s: no persona configured", invoice.InvoiceNumber))
			result.InvoicesProcessed++
			continue
		}

		eligible, err := EligibleSteps(o.Store, invoice.ID, steps)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("invoice %s: eligibility check failed: %v", invoice.InvoiceNumber, err))
			result.InvoicesProcessed++
			continue
		}

		for i := range eligible {
			step := eligible[i]
			draft, err := writer.WriteDraft(ctx, WriteInput{
				Tenant:   tenant,
				Invoice:  &invoice,
				Step:     &step,
				Persona:  persona,
				Tone:     opts.Tone,
				Approach: opts.Approach,
				DPD:      c.dpd,
				Today:    today,
				RunID:    opts.RunID,
			})
			switch {
			case err == nil:
				result.DraftsCreated++
				if o.Logger != nil {
					o.Logger.Printf("Created %s draft for invoice %s step %d (persona %s)",
						draft.Channel, invoice.InvoiceNumber, step.StepOrder, persona.Name)
				}
			case errors.Is(err, ErrDuplicateDraft):
				// Another run already drafted this step.
				result.DraftsSkipped++
			default:
				result.Errors = append(result.Errors, err.Error())
			}
		}

		result.InvoicesProcessed++
		if opts.OnProgress != nil {
			opts.OnProgress(ProgressEvent{
				RunID:             opts.RunID,
				InvoiceNumber:     invoice.InvoiceNumber,
				InvoicesProcessed: result.InvoicesProcessed,
				InvoicesTotal:     len(matching),
				DraftsCreated:     result.DraftsCreated,
			})
		}
	}

	return result, nil
}
