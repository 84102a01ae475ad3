package repository

import (
	"errors"

	"pdfworkflow/pkg/models"
)

// ErrNotFound is returned when a run identifier is unknown.
var ErrNotFound = errors.New("run not found")

// RunStore is the registry of workflow runs. Implementations must support
// concurrent inserts and concurrent read/update of distinct entries, and a
// reader must never observe a torn status/result pair.
type RunStore interface {
	// Create registers a new PENDING run.
	Create(run *models.WorkflowRun) error
	// Get returns a snapshot of the run, or ErrNotFound.
	Get(id string) (*models.WorkflowRun, error)
	// ListActive returns snapshots of all PENDING and RUNNING runs,
	// ordered by start time.
	ListActive() []*models.WorkflowRun
	// MarkRunning transitions the run to RUNNING.
	MarkRunning(id string) error
	// SetStage records the stage currently executing.
	SetStage(id, stage string) error
	// MarkSucceeded transitions the run to SUCCEEDED with its receipt.
	MarkSucceeded(id string, receipt *models.LoadReceipt) error
	// MarkFailed transitions the run to FAILED with the error text.
	MarkFailed(id string, errMsg string) error
}
