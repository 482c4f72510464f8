// Package model defines the canonical graph object and step-graph types
// shared by every component of the integration execution core.
package model

import "context"

// StepStatus is the terminal (or pre-terminal) outcome of a step.
type StepStatus string

const (
	StatusPending                              StepStatus = "PENDING"
	StatusRunning                              StepStatus = "RUNNING"
	StatusSuccess                              StepStatus = "SUCCESS"
	StatusFailure                              StepStatus = "FAILURE"
	StatusPartialSuccessDueToDependencyFailure StepStatus = "PARTIAL_SUCCESS_DUE_TO_DEPENDENCY_FAILURE"
	StatusDisabled                             StepStatus = "DISABLED"
)

// Terminal reports whether s is one of the scheduler's terminal statuses.
func (s StepStatus) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusPartialSuccessDueToDependencyFailure, StatusDisabled:
		return true
	default:
		return false
	}
}

// JobState is the step-scoped handle a handler uses to emit graph objects.
// Implementations delegate to the graph store under a bucket path that is
// conventionally the owning step's ID.
type JobState interface {
	AddEntities(ctx context.Context, items []Entity) error
	AddRelationships(ctx context.Context, items []Relationship) error
}

// ExecutionContext is passed into a Step's Handler.
type ExecutionContext struct {
	Context          context.Context
	Logger           Logger
	JobState         JobState
	Instance         Instance
	ExecutionHistory ExecutionHistory
}

// ExecutionHistory carries information about prior runs, threaded through
// for handlers that want to branch on whether this is the first execution.
// The framework itself never populates fields beyond what callers supply;
// persistent resumability across process restarts is out of scope (§1).
type ExecutionHistory struct {
	LastSuccessfulExecutionStartedOn int64
}

// Instance describes the integration instance being run.
type Instance struct {
	ID     string
	Config map[string]any
}

// StepHandler performs a step's collection work.
type StepHandler func(ctx *ExecutionContext) error

// Step is an immutable descriptor of one unit of collection work.
type Step struct {
	ID        string
	Name      string
	Types     []string
	DependsOn []string
	Handler   StepHandler
}

// StartState is the caller-supplied enable/disable decision for one step.
type StartState struct {
	Disabled bool
}

// StartStates maps step ID to its start state. Must cover exactly the
// declared step set (§3); validated by pkg/scheduler before scheduling.
type StartStates map[string]StartState

// StepResult is one step's entry in the final execution result (§4.5).
type StepResult struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Types        []string   `json:"types"`
	Status       StepStatus `json:"status"`
	DependsOn    []string   `json:"dependsOn"`
	PartialTypes []string   `json:"partialTypes,omitempty"`
}

// PartialDatasets is the union of declared types of every step that did not
// terminate SUCCESS.
type PartialDatasets struct {
	Types []string `json:"types"`
}

// SchedulerResult is the full scheduler output (§4.5).
type SchedulerResult struct {
	IntegrationStepResults []StepResult   `json:"integrationStepResults"`
	Metadata               ResultMetadata `json:"metadata"`
}

// ResultMetadata wraps PartialDatasets the way the spec's JSON shape nests it.
type ResultMetadata struct {
	PartialDatasets PartialDatasets `json:"partialDatasets"`
}
