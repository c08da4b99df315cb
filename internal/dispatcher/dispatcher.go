// Package dispatcher schedules pipeline step execution onto River, the
// at-least-once task queue backing the engine's suspension points
// (spec.md §5).
//
// Import Path: enrichpipe.io/engine/internal/dispatcher
package dispatcher

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"enrichpipe.io/engine/internal/jobs"
)

// TaskDispatcher is the task-dispatch contract spec.md §6 names as a
// collaborator: hand a run+position+attempt to the queue and return once
// it is durably enqueued.
type TaskDispatcher interface {
	Dispatch(ctx context.Context, runID uuid.UUID, position, attemptNumber int) error
}

// RiverDispatcher is the concrete, at-least-once TaskDispatcher. It
// satisfies pipeline.Dispatcher directly so the engine can fan out
// without importing this package.
type RiverDispatcher struct {
	client *river.Client[pgx.Tx]
}

// NewRiverDispatcher builds a RiverDispatcher over client, which may be nil
// until SetClient attaches the started river.Client.
func NewRiverDispatcher(client *river.Client[pgx.Tx]) *RiverDispatcher {
	return &RiverDispatcher{client: client}
}

// SetClient attaches the started river.Client after construction. Needed
// because the client itself is built from a river.Workers set that must
// already contain the PipelineStepWorker this dispatcher feeds — a
// dispatcher is constructed first (nil client), handed to the worker, and
// only then given its client once river.NewClient returns.
func (d *RiverDispatcher) SetClient(client *river.Client[pgx.Tx]) {
	d.client = client
}

// Dispatch inserts a jobs.PipelineStepArgs job. River's own unique-job
// options (see PipelineStepArgs.InsertOpts) collapse duplicate
// re-dispatches of the same run+position+attempt, so callers may dispatch
// more than once without double execution.
func (d *RiverDispatcher) Dispatch(ctx context.Context, runID uuid.UUID, position, attemptNumber int) error {
	if d.client == nil {
		return fmt.Errorf("river dispatcher is not initialized")
	}
	_, err := d.client.Insert(ctx, jobs.PipelineStepArgs{
		RunID:         runID,
		Position:      position,
		AttemptNumber: attemptNumber,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueue pipeline_step for run %s position %d: %w", runID, position, err)
	}
	return nil
}

// DispatchTx is the transactional variant of Dispatch: the job insert
// commits or rolls back with tx, so a dispatch can be made atomic with
// the run rows written in the same transaction.
func (d *RiverDispatcher) DispatchTx(ctx context.Context, tx pgx.Tx, runID uuid.UUID, position, attemptNumber int) error {
	if d.client == nil {
		return fmt.Errorf("river dispatcher is not initialized")
	}
	_, err := d.client.InsertTx(ctx, tx, jobs.PipelineStepArgs{
		RunID:         runID,
		Position:      position,
		AttemptNumber: attemptNumber,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueue pipeline_step (tx) for run %s position %d: %w", runID, position, err)
	}
	return nil
}
