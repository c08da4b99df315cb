package infrastructure_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"enrichpipe.io/engine/internal/domain"
	"enrichpipe.io/engine/internal/infrastructure"
	"enrichpipe.io/engine/internal/testutil"
)

func seedOrgAndBlueprint(t *testing.T, ctx context.Context, clients *infrastructure.DatabaseClients, orgID, blueprintID string) {
	t.Helper()
	_, err := clients.Pool.Exec(ctx, `INSERT INTO orgs (org_id, name) VALUES ($1, $2)`, orgID, "Acme Org")
	require.NoError(t, err)
	_, err = clients.Pool.Exec(ctx, `INSERT INTO blueprints (blueprint_id, org_id, name, is_active) VALUES ($1, $2, $3, true)`,
		blueprintID, orgID, "default")
	require.NoError(t, err)
	_, err = clients.Pool.Exec(ctx, `
		INSERT INTO blueprint_steps (blueprint_id, position, operation_id, step_config, fan_out, is_enabled)
		VALUES ($1, 1, 'company.search.blitzapi', '{}', false, true)`, blueprintID)
	require.NoError(t, err)
}

func newTestClients(t *testing.T) *infrastructure.DatabaseClients {
	t.Helper()
	ctx := context.Background()
	pool := testutil.OpenPGXPool(t, "infrastructure")
	clients := &infrastructure.DatabaseClients{Pool: pool}
	require.NoError(t, clients.AutoMigrateSchemaOnly(ctx))
	return clients
}

func TestBlueprintRepository_GetActiveBlueprint_LoadsStepsInOrder(t *testing.T) {
	ctx := context.Background()
	clients := newTestClients(t)
	seedOrgAndBlueprint(t, ctx, clients, "org-1", "bp-1")

	repo := infrastructure.NewBlueprintRepository(clients.Pool)
	bp, err := repo.GetActiveBlueprint(ctx, "org-1", "bp-1")
	require.NoError(t, err)
	require.True(t, bp.IsActive)
	require.Len(t, bp.Steps, 1)
	require.Equal(t, "company.search.blitzapi", bp.Steps[0].OperationID)
}

func TestBlueprintRepository_GetActiveBlueprint_NotFound(t *testing.T) {
	ctx := context.Background()
	clients := newTestClients(t)
	_, err := clients.Pool.Exec(ctx, `INSERT INTO orgs (org_id, name) VALUES ($1, $2)`, "org-1", "Acme")
	require.NoError(t, err)

	repo := infrastructure.NewBlueprintRepository(clients.Pool)
	_, err = repo.GetActiveBlueprint(ctx, "org-1", "missing")
	require.Error(t, err)
}

func TestRunRepository_CreateThenGetThenUpdate_RoundTrips(t *testing.T) {
	ctx := context.Background()
	clients := newTestClients(t)
	seedOrgAndBlueprint(t, ctx, clients, "org-1", "bp-1")

	_, err := clients.Pool.Exec(ctx, `
		INSERT INTO submissions (submission_id, org_id, company_id, blueprint_id, entities, status)
		VALUES ($1, $2, '', $3, '[]', 'pending')`, uuid.New(), "org-1", "bp-1")
	require.NoError(t, err)

	var submissionID uuid.UUID
	require.NoError(t, clients.Pool.QueryRow(ctx, `SELECT submission_id FROM submissions LIMIT 1`).Scan(&submissionID))

	repo := infrastructure.NewRunRepository(clients.Pool)
	now := time.Now().UTC()
	run := &domain.PipelineRun{
		RunID:             uuid.New(),
		OrgID:             "org-1",
		SubmissionID:      submissionID,
		EntityInput:       map[string]any{"domain": "acme.com"},
		EntityType:        domain.EntityCompany,
		CumulativeContext: map[string]any{"domain": "acme.com"},
		CurrentPosition:   1,
		Status:            domain.RunQueued,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, repo.CreateRun(ctx, run))

	loaded, err := repo.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	require.Equal(t, run.RunID, loaded.RunID)
	require.Equal(t, domain.RunQueued, loaded.Status)
	require.Equal(t, "acme.com", loaded.EntityInput["domain"])

	loaded.Status = domain.RunRunning
	loaded.CurrentPosition = 2
	loaded.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.UpdateRun(ctx, loaded))

	reloaded, err := repo.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	require.Equal(t, domain.RunRunning, reloaded.Status)
	require.Equal(t, 2, reloaded.CurrentPosition)
}

func TestRunRepository_ListRunsForSubmission_IncludesChildRuns(t *testing.T) {
	ctx := context.Background()
	clients := newTestClients(t)
	seedOrgAndBlueprint(t, ctx, clients, "org-1", "bp-1")

	_, err := clients.Pool.Exec(ctx, `
		INSERT INTO submissions (submission_id, org_id, company_id, blueprint_id, entities, status)
		VALUES ($1, $2, '', $3, '[]', 'pending')`, uuid.New(), "org-1", "bp-1")
	require.NoError(t, err)
	var submissionID uuid.UUID
	require.NoError(t, clients.Pool.QueryRow(ctx, `SELECT submission_id FROM submissions LIMIT 1`).Scan(&submissionID))

	repo := infrastructure.NewRunRepository(clients.Pool)
	now := time.Now().UTC()
	parent := &domain.PipelineRun{
		RunID: uuid.New(), OrgID: "org-1", SubmissionID: submissionID, EntityType: domain.EntityCompany,
		EntityInput: map[string]any{}, CumulativeContext: map[string]any{}, CurrentPosition: 1,
		Status: domain.RunSucceeded, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repo.CreateRun(ctx, parent))

	parentID := parent.RunID
	child := &domain.PipelineRun{
		RunID: uuid.New(), OrgID: "org-1", SubmissionID: submissionID, ParentRunID: &parentID,
		EntityType: domain.EntityPerson, EntityInput: map[string]any{}, CumulativeContext: map[string]any{},
		CurrentPosition: 1, Status: domain.RunQueued, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repo.CreateChildRun(ctx, child))

	rows, err := repo.ListRunsForSubmission(ctx, submissionID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.ElementsMatch(t, []uuid.UUID{parent.RunID, child.RunID},
		[]uuid.UUID{rows[0].PipelineRunID, rows[1].PipelineRunID})
}

func TestEntityQueries_ListEntities_ReturnsUpsertedCompany(t *testing.T) {
	ctx := context.Background()
	clients := newTestClients(t)
	_, err := clients.Pool.Exec(ctx, `INSERT INTO orgs (org_id, name) VALUES ($1, $2)`, "org-1", "Acme")
	require.NoError(t, err)

	_, err = clients.Pool.Exec(ctx, `
		INSERT INTO company_entities (entity_id, org_id, domain, name, record_version, canonical_payload, source_providers, last_enriched_at)
		VALUES ($1, $2, $3, $4, 1, $5, $6, now())`,
		uuid.New(), "org-1", "acme.com", "Acme Inc", []byte(`{"domain":"acme.com","name":"Acme Inc"}`), []string{"company.search.blitzapi"})
	require.NoError(t, err)

	q := infrastructure.NewEntityQueries(clients.Pool)
	records, err := q.ListEntities(ctx, "org-1", domain.EntityCompany, 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "acme.com", records[0].CanonicalPayload["domain"])
	require.Equal(t, []string{"company.search.blitzapi"}, records[0].SourceProviders)
}

func TestEntityQueries_ListSnapshots_OrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	clients := newTestClients(t)
	_, err := clients.Pool.Exec(ctx, `INSERT INTO orgs (org_id, name) VALUES ($1, $2)`, "org-1", "Acme")
	require.NoError(t, err)

	entityID := uuid.New()
	older := time.Now().UTC().Add(-time.Hour)
	newer := time.Now().UTC()
	_, err = clients.Pool.Exec(ctx, `
		INSERT INTO entity_snapshots (org_id, entity_type, entity_id, record_version, canonical_payload, captured_at)
		VALUES ($1, $2, $3, 1, $4, $5)`, "org-1", "company", entityID, []byte(`{"name":"old"}`), older)
	require.NoError(t, err)
	_, err = clients.Pool.Exec(ctx, `
		INSERT INTO entity_snapshots (org_id, entity_type, entity_id, record_version, canonical_payload, captured_at)
		VALUES ($1, $2, $3, 2, $4, $5)`, "org-1", "company", entityID, []byte(`{"name":"new"}`), newer)
	require.NoError(t, err)

	q := infrastructure.NewEntityQueries(clients.Pool)
	snaps, err := q.ListSnapshots(ctx, "org-1", domain.EntityCompany, entityID, 10, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	require.Equal(t, "new", snaps[0].CanonicalPayload["name"])
	require.Equal(t, "old", snaps[1].CanonicalPayload["name"])
}
