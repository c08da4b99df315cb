package domain

import (
	"time"

	"github.com/google/uuid"
)

// SeedEntity is one entity submitted in a batch, per spec.md §6: a map with
// entity_type and at least one identifying field.
type SeedEntity struct {
	EntityType EntityType     `json:"entity_type"`
	Fields     map[string]any `json:"fields"`
}

// Submission is a batch of seeded entities run through one blueprint.
type Submission struct {
	SubmissionID uuid.UUID        `json:"submission_id"`
	OrgID        string           `json:"org_id"`
	CompanyID    string           `json:"company_id"`
	BlueprintID  string           `json:"blueprint_id"`
	Entities     []SeedEntity     `json:"entities"`
	Status       SubmissionStatus `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// PipelineRun is one end-to-end traversal of a blueprint for one entity.
type PipelineRun struct {
	RunID             uuid.UUID          `json:"run_id"`
	OrgID             string             `json:"org_id"`
	SubmissionID      uuid.UUID          `json:"submission_id"`
	ParentRunID       *uuid.UUID         `json:"parent_run_id,omitempty"`
	TriggerRunID      *uuid.UUID         `json:"trigger_run_id,omitempty"`
	BlueprintSnapshot Blueprint          `json:"blueprint_snapshot"`
	EntityInput       map[string]any     `json:"entity_input"`
	EntityIndex       int                `json:"entity_index"`
	EntityType        EntityType         `json:"entity_type"`
	CumulativeContext map[string]any     `json:"cumulative_context"`
	CurrentPosition   int                `json:"current_position"`
	Status            RunStatus          `json:"status"`
	ErrorMessage      string             `json:"error_message,omitempty"`
	FanoutDepth       int                `json:"fanout_depth"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// Context returns the run's cumulative context as a typed wrapper.
func (r *PipelineRun) Context() CumulativeContext {
	return CumulativeContextFrom(r.CumulativeContext)
}

// StepResult is the outcome of one step within one pipeline run. Appended,
// never rewritten, and keyed by (run_id, position, attempt_number) so
// duplicate dispatches under the task dispatcher's at-least-once delivery
// produce duplicate rows rather than corrupting state (spec.md §9).
type StepResult struct {
	RunID            uuid.UUID      `json:"run_id"`
	Position         int            `json:"position"`
	AttemptNumber    int            `json:"attempt_number"`
	OperationID      string         `json:"operation_id"`
	Status           StepStatus     `json:"status"`
	InputPayload     map[string]any `json:"input_payload"`
	OutputPayload    map[string]any `json:"output_payload,omitempty"`
	ProviderAttempts []Attempt      `json:"provider_attempts"`
	Error            string         `json:"error,omitempty"`
	SkipReason       string         `json:"skip_reason,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// BatchSummary is the per-state run count for a submission (spec.md §6).
type BatchSummary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Running   int `json:"running"`
	Pending   int `json:"pending"`
}

// RunStatusRow is one row of a batch status poll response.
type RunStatusRow struct {
	EntityIndex   int        `json:"entity_index"`
	EntityType    EntityType `json:"entity_type"`
	PipelineRunID uuid.UUID  `json:"pipeline_run_id"`
	Status        RunStatus  `json:"status"`
	ErrorMessage  string     `json:"error_message,omitempty"`
}
