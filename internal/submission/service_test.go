package submission_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"enrichpipe.io/engine/internal/changedetect"
	"enrichpipe.io/engine/internal/domain"
	"enrichpipe.io/engine/internal/entitystore"
	"enrichpipe.io/engine/internal/submission"
)

type fakeBlueprints struct {
	blueprint domain.Blueprint
	err       error
}

func (f *fakeBlueprints) GetActiveBlueprint(_ context.Context, _, _ string) (domain.Blueprint, error) {
	return f.blueprint, f.err
}

type fakeSubmissionRepo struct {
	submissions []domain.Submission
	runs        []domain.PipelineRun
}

func (f *fakeSubmissionRepo) CreateSubmission(_ context.Context, sub *domain.Submission) error {
	f.submissions = append(f.submissions, *sub)
	return nil
}

func (f *fakeSubmissionRepo) CreateRun(_ context.Context, run *domain.PipelineRun) error {
	f.runs = append(f.runs, *run)
	return nil
}

type fakeDispatcher struct {
	dispatched []uuid.UUID
}

func (f *fakeDispatcher) Dispatch(_ context.Context, runID uuid.UUID, _, _ int) error {
	f.dispatched = append(f.dispatched, runID)
	return nil
}

type fakeLister struct {
	rows []domain.RunStatusRow
}

func (f *fakeLister) ListRunsForSubmission(_ context.Context, _ uuid.UUID) ([]domain.RunStatusRow, error) {
	return f.rows, nil
}

type fakeEntities struct{}

func (f *fakeEntities) ListEntities(_ context.Context, _ string, _ domain.EntityType, _, _ int) ([]entitystore.Record, error) {
	return nil, nil
}

type fakeSnapshots struct{}

func (f *fakeSnapshots) ListSnapshots(_ context.Context, _ string, _ domain.EntityType, _ uuid.UUID, _, _ int) ([]changedetect.Snapshot, error) {
	return nil, nil
}

func activeBlueprint() domain.Blueprint {
	return domain.Blueprint{
		BlueprintID: "bp-1",
		OrgID:       "org-1",
		IsActive:    true,
		Steps: []domain.BlueprintStep{
			{Position: 1, OperationID: "company.search.blitzapi", IsEnabled: true},
		},
	}
}

func TestService_Submit_CreatesOneRunPerEntityAndDispatchesEach(t *testing.T) {
	repo := &fakeSubmissionRepo{}
	dispatcher := &fakeDispatcher{}
	svc := submission.NewService(&fakeBlueprints{blueprint: activeBlueprint()}, repo, dispatcher, &fakeLister{}, &fakeEntities{}, &fakeSnapshots{})

	req := submission.SubmitRequest{
		OrgID:       "org-1",
		BlueprintID: "bp-1",
		Entities: []domain.SeedEntity{
			{EntityType: domain.EntityCompany, Fields: map[string]any{"domain": "acme.com"}},
			{EntityType: domain.EntityCompany, Fields: map[string]any{"domain": "other.com"}},
		},
	}

	sub, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, repo.runs, 2)
	require.Len(t, dispatcher.dispatched, 2)
	require.Equal(t, domain.RunQueued, repo.runs[0].Status)
	require.Equal(t, sub.SubmissionID, repo.runs[0].SubmissionID)
	require.Equal(t, 1, repo.runs[1].EntityIndex)
}

func TestService_Submit_InactiveBlueprint_Rejected(t *testing.T) {
	bp := activeBlueprint()
	bp.IsActive = false
	repo := &fakeSubmissionRepo{}
	svc := submission.NewService(&fakeBlueprints{blueprint: bp}, repo, &fakeDispatcher{}, &fakeLister{}, &fakeEntities{}, &fakeSnapshots{})

	_, err := svc.Submit(context.Background(), submission.SubmitRequest{
		OrgID:       "org-1",
		BlueprintID: "bp-1",
		Entities:    []domain.SeedEntity{{EntityType: domain.EntityCompany, Fields: map[string]any{"domain": "acme.com"}}},
	})
	require.Error(t, err)
	require.Empty(t, repo.runs)
}

func TestService_Submit_NoEntities_Rejected(t *testing.T) {
	svc := submission.NewService(&fakeBlueprints{blueprint: activeBlueprint()}, &fakeSubmissionRepo{}, &fakeDispatcher{}, &fakeLister{}, &fakeEntities{}, &fakeSnapshots{})
	_, err := svc.Submit(context.Background(), submission.SubmitRequest{OrgID: "org-1", BlueprintID: "bp-1"})
	require.Error(t, err)
}

func TestService_Status_AllTerminal_ReportsCompleted(t *testing.T) {
	submissionID := uuid.New()
	lister := &fakeLister{rows: []domain.RunStatusRow{
		{PipelineRunID: uuid.New(), Status: domain.RunSucceeded},
		{PipelineRunID: uuid.New(), Status: domain.RunFailed},
	}}
	svc := submission.NewService(&fakeBlueprints{}, &fakeSubmissionRepo{}, &fakeDispatcher{}, lister, &fakeEntities{}, &fakeSnapshots{})

	resp, err := svc.Status(context.Background(), submissionID)
	require.NoError(t, err)
	require.Equal(t, domain.SubmissionCompleted, resp.Status)
	require.Equal(t, 1, resp.Summary.Completed)
	require.Equal(t, 1, resp.Summary.Failed)
}

func TestService_Status_SomeRunning_ReportsProcessing(t *testing.T) {
	lister := &fakeLister{rows: []domain.RunStatusRow{
		{PipelineRunID: uuid.New(), Status: domain.RunRunning},
		{PipelineRunID: uuid.New(), Status: domain.RunQueued},
	}}
	svc := submission.NewService(&fakeBlueprints{}, &fakeSubmissionRepo{}, &fakeDispatcher{}, lister, &fakeEntities{}, &fakeSnapshots{})

	resp, err := svc.Status(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Equal(t, domain.SubmissionProcessing, resp.Status)
}
