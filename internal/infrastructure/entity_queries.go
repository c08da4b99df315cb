package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"enrichpipe.io/engine/internal/changedetect"
	"enrichpipe.io/engine/internal/domain"
	"enrichpipe.io/engine/internal/entitystore"
	apperrors "enrichpipe.io/engine/internal/pkg/errors"
)

// EntityQueries is the concrete pgx-backed implementation of
// submission.EntityQuerier, submission.SnapshotQuerier, and
// changedetect.SnapshotReader. It reads across the three per-entity-type
// tables and the shared entity_snapshots table, dispatching on
// entitystore.SchemaFor the same way entitystore.Store does for writes.
type EntityQueries struct {
	pool *pgxpool.Pool
}

// NewEntityQueries builds an EntityQueries over the shared pool.
func NewEntityQueries(pool *pgxpool.Pool) *EntityQueries {
	return &EntityQueries{pool: pool}
}

// ListEntities returns a page of canonical entity records for one org and
// entity type, newest-enriched first.
func (q *EntityQueries) ListEntities(ctx context.Context, orgID string, entityType domain.EntityType, limit, offset int) ([]entitystore.Record, error) {
	schema, ok := entitystore.SchemaFor(entityType)
	if !ok {
		return nil, apperrors.ErrInvalidRequestFieldf("entity_type")
	}

	rows, err := q.pool.Query(ctx, fmt.Sprintf(`
		SELECT entity_id, org_id, record_version, canonical_payload, source_providers,
		       last_enriched_at, last_run_id, last_operation_id
		FROM %s WHERE org_id = $1 ORDER BY last_enriched_at DESC LIMIT $2 OFFSET $3`, schema.TableName),
		orgID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list %s entities: %w", schema.TableName, err)
	}
	defer rows.Close()

	var out []entitystore.Record
	for rows.Next() {
		var rec entitystore.Record
		var payloadBytes []byte
		var lastRunID *uuid.UUID
		var lastOperationID *string
		if err := rows.Scan(&rec.EntityID, &rec.OrgID, &rec.RecordVersion, &payloadBytes, &rec.SourceProviders,
			&rec.LastEnrichedAt, &lastRunID, &lastOperationID); err != nil {
			return nil, fmt.Errorf("scan %s entity row: %w", schema.TableName, err)
		}
		if err := json.Unmarshal(payloadBytes, &rec.CanonicalPayload); err != nil {
			return nil, fmt.Errorf("unmarshal canonical_payload: %w", err)
		}
		rec.LastRunID = lastRunID
		if lastOperationID != nil {
			rec.LastOperationID = *lastOperationID
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s entity rows: %w", schema.TableName, err)
	}
	return out, nil
}

// ListSnapshots returns a page of pre-image snapshots for one entity, most
// recent first (submission.SnapshotQuerier).
func (q *EntityQueries) ListSnapshots(ctx context.Context, orgID string, entityType domain.EntityType, entityID uuid.UUID, limit, offset int) ([]changedetect.Snapshot, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT canonical_payload, captured_at
		FROM entity_snapshots
		WHERE org_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY captured_at DESC LIMIT $4 OFFSET $5`,
		orgID, string(entityType), entityID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list snapshots for entity %s: %w", entityID, err)
	}
	defer rows.Close()

	var out []changedetect.Snapshot
	for rows.Next() {
		var snap changedetect.Snapshot
		var payloadBytes []byte
		if err := rows.Scan(&payloadBytes, &snap.CapturedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		if err := json.Unmarshal(payloadBytes, &snap.CanonicalPayload); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot canonical_payload: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return out, nil
}

// RecentSnapshots returns the N most recent snapshots for one entity,
// newest first, for the change detector's diff pass
// (changedetect.SnapshotReader).
func (q *EntityQueries) RecentSnapshots(ctx context.Context, orgID string, entityType domain.EntityType, entityID uuid.UUID, limit int) ([]changedetect.Snapshot, error) {
	return q.ListSnapshots(ctx, orgID, entityType, entityID, limit, 0)
}
