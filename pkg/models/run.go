package models

import (
	"time"
)

// RunStatus is the lifecycle state of a workflow run.
type RunStatus string

const (
	StatusPending   RunStatus = "PENDING"
	StatusRunning   RunStatus = "RUNNING"
	StatusSucceeded RunStatus = "SUCCEEDED"
	StatusFailed    RunStatus = "FAILED"
)

// Terminal reports whether the status admits no further transitions.
func (s RunStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// rank orders statuses along the only legal path
// PENDING -> RUNNING -> {SUCCEEDED|FAILED}.
func (s RunStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusRunning:
		return 1
	case StatusSucceeded, StatusFailed:
		return 2
	}
	return -1
}

// CanTransitionTo reports whether moving from s to next is a legal,
// monotonic transition.
func (s RunStatus) CanTransitionTo(next RunStatus) bool {
	return !s.Terminal() && next.rank() == s.rank()+1
}

// Stage names, in chain order.
const (
	StageExtraction     = "extraction"
	StageTransformation = "transformation"
	StageLoad           = "load"
)

// WorkflowRun tracks one execution of the extraction -> transformation -> load
// chain. Created when a run is submitted, mutated only by the runner, never
// deleted while active.
type WorkflowRun struct {
	ID             string         `json:"workflow_id"`
	WorkflowName   string         `json:"workflow_name"`
	Filename       string         `json:"pdf_filename"`
	Status         RunStatus      `json:"status"`
	Stage          string         `json:"stage,omitempty"`
	AdditionalData map[string]any `json:"additional_data,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
	Result         *LoadReceipt   `json:"result,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// Clone returns a deep copy so registry readers never share mutable state
// with the runner.
func (r *WorkflowRun) Clone() *WorkflowRun {
	cp := *r
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		cp.FinishedAt = &t
	}
	if r.Result != nil {
		res := *r.Result
		cp.Result = &res
	}
	if r.AdditionalData != nil {
		cp.AdditionalData = make(map[string]any, len(r.AdditionalData))
		for k, v := range r.AdditionalData {
			cp.AdditionalData[k] = v
		}
	}
	return &cp
}
