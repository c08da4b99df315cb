package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"enrichpipe.io/engine/internal/domain"
)

// RunRepository is the concrete pgx-backed implementation of
// pipeline.RunRepository, pipeline.RunLister, and jobs.RunLoader.
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository builds a RunRepository over the shared pool.
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// GetRun loads one pipeline run by id (jobs.RunLoader).
func (r *RunRepository) GetRun(ctx context.Context, runID uuid.UUID) (*domain.PipelineRun, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT run_id, org_id, submission_id, parent_run_id, trigger_run_id,
		       blueprint_snapshot, entity_input, entity_index, entity_type,
		       cumulative_context, current_position, status, COALESCE(error_message, ''),
		       fanout_depth, created_at, updated_at
		FROM pipeline_runs WHERE run_id = $1`, runID)
	return scanRun(row)
}

// CreateRun persists a newly created pipeline run (submission.SubmissionRepository).
func (r *RunRepository) CreateRun(ctx context.Context, run *domain.PipelineRun) error {
	blueprintBytes, err := json.Marshal(run.BlueprintSnapshot)
	if err != nil {
		return fmt.Errorf("marshal blueprint snapshot: %w", err)
	}
	inputBytes, err := json.Marshal(run.EntityInput)
	if err != nil {
		return fmt.Errorf("marshal entity input: %w", err)
	}
	contextBytes, err := json.Marshal(run.CumulativeContext)
	if err != nil {
		return fmt.Errorf("marshal cumulative context: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO pipeline_runs (run_id, org_id, submission_id, parent_run_id, trigger_run_id,
			blueprint_snapshot, entity_input, entity_index, entity_type, cumulative_context,
			current_position, status, error_message, fanout_depth, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		run.RunID, run.OrgID, run.SubmissionID, run.ParentRunID, run.TriggerRunID,
		blueprintBytes, inputBytes, run.EntityIndex, string(run.EntityType), contextBytes,
		run.CurrentPosition, string(run.Status), nullString(run.ErrorMessage), run.FanoutDepth,
		run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert pipeline run %s: %w", run.RunID, err)
	}
	return nil
}

// CreateChildRun persists a fan-out-spawned child run (pipeline.RunRepository).
func (r *RunRepository) CreateChildRun(ctx context.Context, child *domain.PipelineRun) error {
	return r.CreateRun(ctx, child)
}

// UpdateRun persists the mutable fields of a run after a step executes
// (pipeline.RunRepository).
func (r *RunRepository) UpdateRun(ctx context.Context, run *domain.PipelineRun) error {
	contextBytes, err := json.Marshal(run.CumulativeContext)
	if err != nil {
		return fmt.Errorf("marshal cumulative context: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE pipeline_runs
		SET cumulative_context = $1, current_position = $2, status = $3,
		    error_message = $4, updated_at = $5
		WHERE run_id = $6`,
		contextBytes, run.CurrentPosition, string(run.Status), nullString(run.ErrorMessage),
		run.UpdatedAt, run.RunID)
	if err != nil {
		return fmt.Errorf("update pipeline run %s: %w", run.RunID, err)
	}
	return nil
}

// SaveStepResult appends an immutable step result row (pipeline.RunRepository).
func (r *RunRepository) SaveStepResult(ctx context.Context, result domain.StepResult) error {
	inputBytes, err := json.Marshal(result.InputPayload)
	if err != nil {
		return fmt.Errorf("marshal step input payload: %w", err)
	}
	var outputBytes []byte
	if result.OutputPayload != nil {
		outputBytes, err = json.Marshal(result.OutputPayload)
		if err != nil {
			return fmt.Errorf("marshal step output payload: %w", err)
		}
	}
	attemptsBytes, err := json.Marshal(result.ProviderAttempts)
	if err != nil {
		return fmt.Errorf("marshal provider attempts: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO step_results (run_id, position, attempt_number, operation_id, status,
			input_payload, output_payload, provider_attempts, error, skip_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		result.RunID, result.Position, result.AttemptNumber, result.OperationID, string(result.Status),
		inputBytes, outputBytes, attemptsBytes, nullString(result.Error), nullString(result.SkipReason),
		result.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert step result for run %s position %d: %w", result.RunID, result.Position, err)
	}
	return nil
}

// ListRunsForSubmission lists every run belonging to one submission
// (pipeline.RunLister).
func (r *RunRepository) ListRunsForSubmission(ctx context.Context, submissionID uuid.UUID) ([]domain.RunStatusRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT entity_index, entity_type, run_id, status, COALESCE(error_message, '')
		FROM pipeline_runs WHERE submission_id = $1
		ORDER BY entity_index`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("query runs for submission %s: %w", submissionID, err)
	}
	defer rows.Close()

	var out []domain.RunStatusRow
	for rows.Next() {
		var row domain.RunStatusRow
		var entityType, status string
		if err := rows.Scan(&row.EntityIndex, &entityType, &row.PipelineRunID, &status, &row.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan run status row: %w", err)
		}
		row.EntityType = domain.EntityType(entityType)
		row.Status = domain.RunStatus(status)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run status rows: %w", err)
	}
	return out, nil
}

func scanRun(row pgx.Row) (*domain.PipelineRun, error) {
	var run domain.PipelineRun
	var blueprintBytes, inputBytes, contextBytes []byte
	var entityType, status, errMsg string
	if err := row.Scan(&run.RunID, &run.OrgID, &run.SubmissionID, &run.ParentRunID, &run.TriggerRunID,
		&blueprintBytes, &inputBytes, &run.EntityIndex, &entityType, &contextBytes,
		&run.CurrentPosition, &status, &errMsg, &run.FanoutDepth, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan pipeline run: %w", err)
	}
	if err := json.Unmarshal(blueprintBytes, &run.BlueprintSnapshot); err != nil {
		return nil, fmt.Errorf("unmarshal blueprint snapshot: %w", err)
	}
	if err := json.Unmarshal(inputBytes, &run.EntityInput); err != nil {
		return nil, fmt.Errorf("unmarshal entity input: %w", err)
	}
	if err := json.Unmarshal(contextBytes, &run.CumulativeContext); err != nil {
		return nil, fmt.Errorf("unmarshal cumulative context: %w", err)
	}
	run.EntityType = domain.EntityType(entityType)
	run.Status = domain.RunStatus(status)
	run.ErrorMessage = errMsg
	return &run, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
