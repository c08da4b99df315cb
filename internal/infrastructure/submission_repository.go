package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"enrichpipe.io/engine/internal/domain"
)

// SubmissionRepository is the concrete pgx-backed implementation of
// submission.SubmissionRepository. Run persistence is delegated to
// RunRepository so both packages share one insert path.
type SubmissionRepository struct {
	pool *pgxpool.Pool
	runs *RunRepository
}

// NewSubmissionRepository builds a SubmissionRepository over the shared pool.
func NewSubmissionRepository(pool *pgxpool.Pool, runs *RunRepository) *SubmissionRepository {
	return &SubmissionRepository{pool: pool, runs: runs}
}

// CreateSubmission persists a new batch submission row.
func (r *SubmissionRepository) CreateSubmission(ctx context.Context, sub *domain.Submission) error {
	entitiesBytes, err := json.Marshal(sub.Entities)
	if err != nil {
		return fmt.Errorf("marshal submission entities: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO submissions (submission_id, org_id, company_id, blueprint_id, entities, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sub.SubmissionID, sub.OrgID, sub.CompanyID, sub.BlueprintID, entitiesBytes,
		string(sub.Status), sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert submission %s: %w", sub.SubmissionID, err)
	}
	return nil
}

// CreateRun persists one pipeline run belonging to a submission.
func (r *SubmissionRepository) CreateRun(ctx context.Context, run *domain.PipelineRun) error {
	return r.runs.CreateRun(ctx, run)
}
