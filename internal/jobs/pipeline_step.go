// Package jobs defines River Queue job types driving pipeline execution.
//
// Import Path: enrichpipe.io/engine/internal/jobs
package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"enrichpipe.io/engine/internal/domain"
	"enrichpipe.io/engine/internal/pipeline"
	"enrichpipe.io/engine/internal/pkg/logger"
)

// ---------------------------------------------------------------------------
// Job Args
// ---------------------------------------------------------------------------

// PipelineStepArgs carries the coordinates of one step execution: which
// run, which position in its blueprint, and which attempt this is. The
// worker reloads the run itself rather than carrying the full row, a
// claim-check shape that keeps the job payload small and durable across
// retries.
type PipelineStepArgs struct {
	RunID         uuid.UUID `json:"run_id"`
	Position      int       `json:"position"`
	AttemptNumber int       `json:"attempt_number"`
}

// Kind returns the job kind identifier for pipeline step execution.
func (PipelineStepArgs) Kind() string { return "pipeline_step" }

// InsertOpts returns default insert options for pipeline step jobs.
// ByArgs uniqueness means a duplicate re-dispatch of the same
// run+position+attempt (e.g. from an at-least-once retry upstream)
// collapses into the already-queued job instead of running twice.
func (PipelineStepArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       "pipeline_steps",
		MaxAttempts: 5,
		UniqueOpts: river.UniqueOpts{
			ByArgs:  true,
			ByQueue: true,
		},
	}
}

// ---------------------------------------------------------------------------
// Worker
// ---------------------------------------------------------------------------

// RunLoader is the read port the worker needs to turn a RunID into the
// full PipelineRun the engine operates on. The concrete implementation
// lives in internal/infrastructure.
type RunLoader interface {
	GetRun(ctx context.Context, runID uuid.UUID) (*domain.PipelineRun, error)
}

// PipelineStepWorker drives one pipeline run forward one step at a time.
//
// Execution flow (spec.md §4.6, §9):
//  1. Load the run by RunID (claim-check pattern).
//  2. Idempotent early-exit if the run already reached a terminal status —
//     River's at-least-once delivery means this job may run more than once.
//  3. Delegate to Engine.RunStep for the actual step execution.
//  4. If the run is not done (didn't terminate or fan out), re-dispatch
//     itself at the run's new CurrentPosition.
type PipelineStepWorker struct {
	river.WorkerDefaults[PipelineStepArgs]
	loader     RunLoader
	engine     *pipeline.Engine
	dispatcher pipeline.Dispatcher
}

// NewPipelineStepWorker builds a PipelineStepWorker with all dependencies.
func NewPipelineStepWorker(loader RunLoader, engine *pipeline.Engine, dispatcher pipeline.Dispatcher) *PipelineStepWorker {
	return &PipelineStepWorker{loader: loader, engine: engine, dispatcher: dispatcher}
}

// Work executes one pipeline step.
func (w *PipelineStepWorker) Work(ctx context.Context, job *river.Job[PipelineStepArgs]) error {
	runID := job.Args.RunID

	logger.Info("processing pipeline step job",
		"run_id", runID.String(),
		"position", job.Args.Position,
		"attempt_number", job.Args.AttemptNumber,
		"river_attempt", job.Attempt,
	)

	// Step 1: load the run (claim-check pattern).
	run, err := w.loader.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("load pipeline run %s: %w", runID, err)
	}

	// Step 2: idempotent early-exit — a duplicate delivery of a job whose
	// run already finished must not re-execute the step.
	if run.Status.IsTerminal() {
		logger.Info("pipeline run already terminal, skipping duplicate dispatch",
			"run_id", runID.String(),
			"status", string(run.Status),
		)
		return nil
	}

	// Step 3: execute the step.
	done, err := w.engine.RunStep(ctx, run, job.Args.AttemptNumber)
	if err != nil {
		return fmt.Errorf("run step for pipeline run %s at position %d: %w", runID, job.Args.Position, err)
	}

	if done {
		logger.Info("pipeline run reached terminal state",
			"run_id", runID.String(),
			"status", string(run.Status),
		)
		return nil
	}

	// Step 4: re-dispatch for the next position. AttemptNumber resets to 1
	// since this is a fresh step, not a retry of the one just executed.
	if err := w.dispatcher.Dispatch(ctx, run.RunID, run.CurrentPosition, 1); err != nil {
		return fmt.Errorf("re-dispatch pipeline run %s at position %d: %w", runID, run.CurrentPosition, err)
	}

	return nil
}
