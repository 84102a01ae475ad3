// Package services contains the workflow runner coordinating the pipeline
// and the run registry.
package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pdfworkflow/internal/logging"
	"pdfworkflow/internal/pipeline"
	"pdfworkflow/internal/repository"
	"pdfworkflow/pkg/models"
)

// Mode selects how a submitted run executes.
type Mode string

const (
	// ModeSync executes the chain inline and returns after completion.
	ModeSync Mode = "sync"
	// ModeAsync executes the chain in the background and returns the run
	// identifier before completion.
	ModeAsync Mode = "async"
)

// Runner assigns run identifiers, executes the stage chain and records run
// status in the registry. Sync and async submissions share the same execute
// path, so the two modes cannot diverge in behavior.
type Runner struct {
	store    repository.RunStore
	chain    *pipeline.Chain
	logger   *logging.Logger
	tasks    *errgroup.Group
	dispatch sync.WaitGroup
}

// NewRunner creates a Runner. maxConcurrent > 0 bounds the number of async
// runs executing at once; submissions beyond it stay PENDING until a slot
// frees up.
func NewRunner(store repository.RunStore, chain *pipeline.Chain, maxConcurrent int, logger *logging.Logger) *Runner {
	tasks := new(errgroup.Group)
	if maxConcurrent > 0 {
		tasks.SetLimit(maxConcurrent)
	}
	return &Runner{
		store:  store,
		chain:  chain,
		logger: logger,
		tasks:  tasks,
	}
}

// Submit registers a new run for doc and executes the chain according to
// mode. The returned snapshot is PENDING for async submissions and terminal
// for sync ones.
func (r *Runner) Submit(ctx context.Context, doc models.Document, workflowName string, additionalData map[string]any, opts pipeline.Options, mode Mode) (*models.WorkflowRun, error) {
	run := &models.WorkflowRun{
		ID:             uuid.New().String(),
		WorkflowName:   workflowName,
		Filename:       doc.Filename,
		Status:         models.StatusPending,
		AdditionalData: additionalData,
		StartedAt:      time.Now().UTC(),
	}
	if err := r.store.Create(run); err != nil {
		return nil, err
	}
	r.logger.Info("Workflow submitted", "workflow_id", run.ID, "workflow_name", workflowName, "mode", mode)

	if mode == ModeSync {
		r.execute(ctx, run.ID, doc, opts)
		return r.store.Get(run.ID)
	}

	// The dispatch goroutine keeps Submit from blocking when all worker
	// slots are busy; the run stays PENDING until one frees up. It is
	// registered with the wait group before Submit returns so Close sees
	// every accepted submission.
	r.dispatch.Add(1)
	go func() {
		defer r.dispatch.Done()
		r.tasks.Go(func() error {
			r.execute(context.Background(), run.ID, doc, opts)
			return nil
		})
	}()
	return run.Clone(), nil
}

// Status returns a snapshot of the run, or repository.ErrNotFound.
func (r *Runner) Status(id string) (*models.WorkflowRun, error) {
	return r.store.Get(id)
}

// Active returns all runs that have not reached a terminal state.
func (r *Runner) Active() []*models.WorkflowRun {
	return r.store.ListActive()
}

// Close waits for every accepted async submission to reach a terminal state,
// including ones still queued for a worker slot.
func (r *Runner) Close() error {
	r.dispatch.Wait()
	return r.tasks.Wait()
}

// execute drives one run through the chain and records the outcome. Once
// RUNNING, a run always reaches a terminal state.
func (r *Runner) execute(ctx context.Context, runID string, doc models.Document, opts pipeline.Options) {
	if err := r.store.MarkRunning(runID); err != nil {
		r.logger.Error("Failed to mark run as running", "workflow_id", runID, "error", err)
		return
	}

	state := &pipeline.State{
		RunID:    runID,
		Document: doc,
		Options:  opts,
	}
	receipt, err := r.chain.Run(ctx, state, func(stage string) {
		if err := r.store.SetStage(runID, stage); err != nil {
			r.logger.Error("Failed to record stage", "workflow_id", runID, "stage", stage, "error", err)
		}
	})
	if err != nil {
		r.logger.Error("Workflow failed", "workflow_id", runID, "error", err)
		if markErr := r.store.MarkFailed(runID, err.Error()); markErr != nil {
			r.logger.Error("Failed to record failure", "workflow_id", runID, "error", markErr)
		}
		return
	}

	if err := r.store.MarkSucceeded(runID, receipt); err != nil {
		r.logger.Error("Failed to record success", "workflow_id", runID, "error", err)
		return
	}
	r.logger.Info("Workflow succeeded", "workflow_id", runID, "path", receipt.DestinationPath)
}
