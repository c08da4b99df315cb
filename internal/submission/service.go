// Package submission implements the Submission & Batch API component of
// spec.md §6: accept a batch of seed entities against a blueprint, fan
// them out into one PipelineRun apiece, and serve poll-based status and
// entity/snapshot reads.
//
// Import Path: enrichpipe.io/engine/internal/submission
package submission

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"enrichpipe.io/engine/internal/changedetect"
	"enrichpipe.io/engine/internal/domain"
	"enrichpipe.io/engine/internal/entitystore"
	apperrors "enrichpipe.io/engine/internal/pkg/errors"
	"enrichpipe.io/engine/internal/pipeline"
)

// BlueprintRepository is the read port for loading the active blueprint a
// submission runs against.
type BlueprintRepository interface {
	GetActiveBlueprint(ctx context.Context, orgID, blueprintID string) (domain.Blueprint, error)
}

// SubmissionRepository is the write port for persisting a submission and
// its parent pipeline runs.
type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, sub *domain.Submission) error
	CreateRun(ctx context.Context, run *domain.PipelineRun) error
}

// EntityQuerier is the read port behind QueryEntities.
type EntityQuerier interface {
	ListEntities(ctx context.Context, orgID string, entityType domain.EntityType, limit, offset int) ([]entitystore.Record, error)
}

// SnapshotQuerier is the read port behind QuerySnapshots.
type SnapshotQuerier interface {
	ListSnapshots(ctx context.Context, orgID string, entityType domain.EntityType, entityID uuid.UUID, limit, offset int) ([]changedetect.Snapshot, error)
}

// SubmitRequest is the inbound payload for Service.Submit (spec.md §6).
type SubmitRequest struct {
	OrgID       string
	CompanyID   string
	BlueprintID string
	Entities    []domain.SeedEntity
}

// StatusResponse wraps the query-time rollup for a submission.
type StatusResponse struct {
	SubmissionID uuid.UUID
	Status       domain.SubmissionStatus
	Summary      domain.BatchSummary
	Runs         []domain.RunStatusRow
}

// Service is the Submission & Batch API's use-case layer: validate, persist,
// dispatch.
type Service struct {
	blueprints BlueprintRepository
	repo       SubmissionRepository
	dispatcher pipeline.Dispatcher
	lister     pipeline.RunLister
	entities   EntityQuerier
	snapshots  SnapshotQuerier
}

// NewService builds a Service with all dependencies.
func NewService(
	blueprints BlueprintRepository,
	repo SubmissionRepository,
	dispatcher pipeline.Dispatcher,
	lister pipeline.RunLister,
	entities EntityQuerier,
	snapshots SnapshotQuerier,
) *Service {
	return &Service{
		blueprints: blueprints,
		repo:       repo,
		dispatcher: dispatcher,
		lister:     lister,
		entities:   entities,
		snapshots:  snapshots,
	}
}

// Submit validates the blueprint is active, snapshots it by value, creates
// one parent PipelineRun per entity, persists the Submission row, and
// dispatches each run.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*domain.Submission, error) {
	if req.OrgID == "" || req.BlueprintID == "" {
		return nil, apperrors.ErrInvalidRequestFieldf("org_id/blueprint_id")
	}
	if len(req.Entities) == 0 {
		return nil, apperrors.ErrInvalidRequestFieldf("entities")
	}

	blueprint, err := s.blueprints.GetActiveBlueprint(ctx, req.OrgID, req.BlueprintID)
	if err != nil {
		return nil, fmt.Errorf("load blueprint %s: %w", req.BlueprintID, err)
	}
	if !blueprint.IsActive {
		return nil, apperrors.New(apperrors.CodeBlueprintNotFound, "blueprint is not active: "+req.BlueprintID, http.StatusBadRequest)
	}
	snapshot := blueprint.Snapshot()

	now := time.Now().UTC()
	sub := &domain.Submission{
		SubmissionID: uuid.New(),
		OrgID:        req.OrgID,
		CompanyID:    req.CompanyID,
		BlueprintID:  req.BlueprintID,
		Entities:     req.Entities,
		Status:       domain.SubmissionPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("persist submission: %w", err)
	}

	for i, entity := range req.Entities {
		run := &domain.PipelineRun{
			RunID:             uuid.New(),
			OrgID:             req.OrgID,
			SubmissionID:      sub.SubmissionID,
			BlueprintSnapshot: snapshot,
			EntityInput:       entity.Fields,
			EntityIndex:       i,
			EntityType:        entity.EntityType,
			CumulativeContext: cloneFields(entity.Fields),
			CurrentPosition:   1,
			Status:            domain.RunQueued,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.repo.CreateRun(ctx, run); err != nil {
			return nil, fmt.Errorf("persist pipeline run for entity %d: %w", i, err)
		}
		if err := s.dispatcher.Dispatch(ctx, run.RunID, run.CurrentPosition, 1); err != nil {
			return nil, fmt.Errorf("dispatch pipeline run for entity %d: %w", i, err)
		}
	}

	return sub, nil
}

// Status wraps pipeline.Summarize with the submission's derived
// SubmissionStatus (spec.md §6's poll-batch-status contract).
func (s *Service) Status(ctx context.Context, submissionID uuid.UUID) (StatusResponse, error) {
	summary, rows, err := pipeline.Summarize(ctx, s.lister, submissionID)
	if err != nil {
		return StatusResponse{}, fmt.Errorf("summarize submission %s: %w", submissionID, err)
	}
	return StatusResponse{
		SubmissionID: submissionID,
		Status:       deriveSubmissionStatus(summary),
		Summary:      summary,
		Runs:         rows,
	}, nil
}

// QueryEntities is a thin paginated read over entitystore's canonical
// entity rows for one org+entity type.
func (s *Service) QueryEntities(ctx context.Context, orgID string, entityType domain.EntityType, limit, offset int) ([]entitystore.Record, error) {
	return s.entities.ListEntities(ctx, orgID, entityType, normalizeLimit(limit), offset)
}

// QuerySnapshots is a thin paginated read over entity_snapshots for one
// entity.
func (s *Service) QuerySnapshots(ctx context.Context, orgID string, entityType domain.EntityType, entityID uuid.UUID, limit, offset int) ([]changedetect.Snapshot, error) {
	return s.snapshots.ListSnapshots(ctx, orgID, entityType, entityID, normalizeLimit(limit), offset)
}

func deriveSubmissionStatus(summary domain.BatchSummary) domain.SubmissionStatus {
	if summary.Total == 0 {
		return domain.SubmissionPending
	}
	if pipeline.IsSubmissionComplete(summary) {
		return domain.SubmissionCompleted
	}
	if summary.Completed > 0 || summary.Failed > 0 || summary.Running > 0 {
		return domain.SubmissionProcessing
	}
	return domain.SubmissionPending
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
