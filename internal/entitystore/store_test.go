package entitystore_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"enrichpipe.io/engine/internal/entitystore"
	"enrichpipe.io/engine/internal/testutil"
)

func setupCompanyTable(t *testing.T, ctx context.Context, db entitystore.Queryer) {
	t.Helper()
	ddl := []string{
		`CREATE TABLE company_entities (
			entity_id UUID PRIMARY KEY,
			org_id TEXT NOT NULL,
			record_version INT NOT NULL,
			canonical_payload JSONB NOT NULL,
			last_enriched_at TIMESTAMPTZ NOT NULL,
			last_run_id UUID,
			last_operation_id TEXT,
			source_providers TEXT[] NOT NULL DEFAULT '{}',
			domain TEXT,
			linkedin_url TEXT,
			name TEXT
		)`,
		`CREATE TABLE entity_snapshots (
			id BIGSERIAL PRIMARY KEY,
			org_id TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id UUID NOT NULL,
			record_version INT NOT NULL,
			canonical_payload JSONB NOT NULL,
			source_run_id UUID,
			captured_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range ddl {
		_, err := db.Exec(ctx, stmt)
		require.NoError(t, err)
	}
}

func TestStore_Upsert_InsertThenUpdate_IncrementsVersion(t *testing.T) {
	ctx := context.Background()
	pool := testutil.OpenPGXPool(t, "entitystore")
	setupCompanyTable(t, ctx, pool)

	store := entitystore.NewStore(pool, entitystore.CompanySchema)
	t.Cleanup(store.Close)

	orgID := "org-1"
	rec, err := store.Upsert(ctx, orgID, map[string]any{
		"domain": "acme.com",
		"name":   "Acme Inc",
	}, entitystore.UpsertOptions{LastOperationID: "company.search.blitzapi"})
	require.NoError(t, err)
	require.Equal(t, 1, rec.RecordVersion)

	second, err := store.Upsert(ctx, orgID, map[string]any{
		"domain":    "acme.com",
		"industry":  "software",
		"employees": 120,
	}, entitystore.UpsertOptions{LastOperationID: "company.enrich.tech_stack"})
	require.NoError(t, err)
	require.Equal(t, rec.EntityID, second.EntityID, "same natural key must resolve to same entity id")
	require.Equal(t, 2, second.RecordVersion)
	require.Equal(t, "Acme Inc", second.CanonicalPayload["name"])
	require.Equal(t, "software", second.CanonicalPayload["industry"])
}

func TestStore_Upsert_VersionConflict_WhenNotStrictlyIncrementing(t *testing.T) {
	ctx := context.Background()
	pool := testutil.OpenPGXPool(t, "entitystore")
	setupCompanyTable(t, ctx, pool)

	store := entitystore.NewStore(pool, entitystore.CompanySchema)
	t.Cleanup(store.Close)

	orgID := "org-1"
	rec, err := store.Upsert(ctx, orgID, map[string]any{"domain": "acme.com"}, entitystore.UpsertOptions{})
	require.NoError(t, err)

	stale := 1
	_, err = store.Upsert(ctx, orgID, map[string]any{"domain": "acme.com"}, entitystore.UpsertOptions{
		ExplicitID:      &rec.EntityID,
		IncomingVersion: &stale,
	})
	require.Error(t, err)
}

func TestStore_CheckFreshness_FreshWithinWindow(t *testing.T) {
	ctx := context.Background()
	pool := testutil.OpenPGXPool(t, "entitystore")
	setupCompanyTable(t, ctx, pool)

	store := entitystore.NewStore(pool, entitystore.CompanySchema)
	t.Cleanup(store.Close)

	orgID := "org-1"
	_, err := store.Upsert(ctx, orgID, map[string]any{"domain": "acme.com", "name": "Acme"}, entitystore.UpsertOptions{})
	require.NoError(t, err)

	result, err := store.CheckFreshness(ctx, orgID, map[string]any{"domain": "acme.com"}, 24)
	require.NoError(t, err)
	require.True(t, result.Fresh)
	require.Equal(t, "Acme", result.CanonicalPayload["name"])
}

func TestStore_CheckFreshness_NotFoundWhenNoRecordExists(t *testing.T) {
	ctx := context.Background()
	pool := testutil.OpenPGXPool(t, "entitystore")
	setupCompanyTable(t, ctx, pool)

	store := entitystore.NewStore(pool, entitystore.CompanySchema)
	t.Cleanup(store.Close)

	result, err := store.CheckFreshness(ctx, "org-1", map[string]any{"domain": "unknown.com"}, 24)
	require.NoError(t, err)
	require.False(t, result.Fresh)
}

func TestStore_Upsert_SourceProvidersUnionPreservesOrder(t *testing.T) {
	ctx := context.Background()
	pool := testutil.OpenPGXPool(t, "entitystore")
	setupCompanyTable(t, ctx, pool)

	store := entitystore.NewStore(pool, entitystore.CompanySchema)
	t.Cleanup(store.Close)

	orgID := "org-1"
	_, err := store.Upsert(ctx, orgID, map[string]any{
		"domain":           "acme.com",
		"source_providers": []string{"blitzapi"},
	}, entitystore.UpsertOptions{})
	require.NoError(t, err)

	second, err := store.Upsert(ctx, orgID, map[string]any{
		"domain":           "acme.com",
		"source_providers": []string{"theirstack", "blitzapi"},
	}, entitystore.UpsertOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{"blitzapi", "theirstack"}, second.SourceProviders)
}

func TestStore_Resolve_IsDeterministicAcrossCalls(t *testing.T) {
	store := entitystore.NewStore(nil, entitystore.CompanySchema)
	t.Cleanup(store.Close)

	fields := map[string]any{"domain": "Acme.com"}
	a := store.Resolve("org-1", fields, nil)
	b := store.Resolve("org-1", fields, nil)
	require.Equal(t, a, b)

	var explicit uuid.UUID = uuid.New()
	c := store.Resolve("org-1", fields, &explicit)
	require.Equal(t, explicit, c)
}

func TestNaturalKeyWhere_AppliesOnlyNonEmptyColumns(t *testing.T) {
	// Exercises the unexported helper indirectly through LookupByNaturalKey's
	// SQL construction by asserting no match occurs when the key is empty.
	ctx := context.Background()
	pool := testutil.OpenPGXPool(t, "entitystore")
	setupCompanyTable(t, ctx, pool)

	store := entitystore.NewStore(pool, entitystore.CompanySchema)
	t.Cleanup(store.Close)

	_, found, err := store.LookupByNaturalKey(ctx, "org-1", entitystore.NaturalKey{})
	require.NoError(t, err)
	require.False(t, found)
}
