package repository

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"pdfworkflow/pkg/models"
)

// MemoryRunStore is an in-memory implementation of the RunStore interface.
// Runs are lost on restart; that is an accepted limitation. Terminal runs
// beyond historyLimit are evicted oldest-first, active runs never are.
type MemoryRunStore struct {
	mu           sync.RWMutex
	runs         map[string]*models.WorkflowRun
	order        []string // insertion order, for eviction
	historyLimit int
}

// NewMemoryRunStore creates a MemoryRunStore. historyLimit <= 0 disables
// eviction.
func NewMemoryRunStore(historyLimit int) *MemoryRunStore {
	return &MemoryRunStore{
		runs:         make(map[string]*models.WorkflowRun),
		historyLimit: historyLimit,
	}
}

// Create registers a new PENDING run.
func (s *MemoryRunStore) Create(run *models.WorkflowRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run %s already registered", run.ID)
	}
	s.runs[run.ID] = run.Clone()
	s.order = append(s.order, run.ID)
	s.evictLocked()
	return nil
}

// Get returns a snapshot of the run, or ErrNotFound.
func (s *MemoryRunStore) Get(id string) (*models.WorkflowRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return run.Clone(), nil
}

// ListActive returns snapshots of all PENDING and RUNNING runs.
func (s *MemoryRunStore) ListActive() []*models.WorkflowRun {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]*models.WorkflowRun, 0)
	for _, run := range s.runs {
		if !run.Status.Terminal() {
			active = append(active, run.Clone())
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].StartedAt.Before(active[j].StartedAt)
	})
	return active
}

// MarkRunning transitions the run to RUNNING.
func (s *MemoryRunStore) MarkRunning(id string) error {
	return s.transition(id, models.StatusRunning, func(run *models.WorkflowRun) {})
}

// SetStage records the stage currently executing.
func (s *MemoryRunStore) SetStage(id, stage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return ErrNotFound
	}
	run.Stage = stage
	return nil
}

// MarkSucceeded transitions the run to SUCCEEDED with its receipt.
func (s *MemoryRunStore) MarkSucceeded(id string, receipt *models.LoadReceipt) error {
	return s.transition(id, models.StatusSucceeded, func(run *models.WorkflowRun) {
		run.Result = receipt
		now := time.Now().UTC()
		run.FinishedAt = &now
	})
}

// MarkFailed transitions the run to FAILED with the error text.
func (s *MemoryRunStore) MarkFailed(id string, errMsg string) error {
	return s.transition(id, models.StatusFailed, func(run *models.WorkflowRun) {
		run.Error = errMsg
		now := time.Now().UTC()
		run.FinishedAt = &now
	})
}

// transition applies a status change and its associated mutation atomically.
// Illegal transitions are rejected, keeping the per-run status monotonic.
func (s *MemoryRunStore) transition(id string, next models.RunStatus, mutate func(*models.WorkflowRun)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return ErrNotFound
	}
	if !run.Status.CanTransitionTo(next) {
		return fmt.Errorf("illegal status transition %s -> %s for run %s", run.Status, next, id)
	}
	run.Status = next
	mutate(run)
	return nil
}

// evictLocked drops the oldest terminal runs once the registry exceeds the
// history limit. Caller holds the write lock.
func (s *MemoryRunStore) evictLocked() {
	if s.historyLimit <= 0 || len(s.runs) <= s.historyLimit {
		return
	}
	kept := s.order[:0]
	excess := len(s.runs) - s.historyLimit
	for _, id := range s.order {
		run, ok := s.runs[id]
		if !ok {
			continue
		}
		if excess > 0 && run.Status.Terminal() {
			delete(s.runs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}
