package entitystore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	pkgerrors "enrichpipe.io/engine/internal/pkg/errors"
	"enrichpipe.io/engine/internal/pkg/logger"

	"enrichpipe.io/engine/internal/identity"
)

// Queryer abstracts over *pgxpool.Pool and pgx.Tx so callers can run a
// multi-step upsert inside one transaction when needed.
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
}

// Store implements the four Entity State Store operations of spec.md §4.4
// for one entity type, driven by its Schema descriptor.
type Store struct {
	db     Queryer
	schema Schema
	cache  *naturalKeyCache
}

// NewStore builds a Store for the given schema over db.
func NewStore(db Queryer, schema Schema) *Store {
	return &Store{db: db, schema: schema, cache: newNaturalKeyCache()}
}

// Close stops the store's background cache janitor. Call once per process,
// not once per Store if multiple Stores happen to share a cache instance.
func (s *Store) Close() {
	s.cache.stop()
}

// Resolve derives the entity ID from canonical fields, pure (no I/O beyond
// reading the in-memory schema). Returns explicit if given.
func (s *Store) Resolve(orgID string, fields map[string]any, explicit *uuid.UUID) uuid.UUID {
	switch s.schema.EntityType {
	case "company":
		cf := identity.CompanyFields{
			Domain:      stringField(fields, "domain"),
			LinkedInURL: stringField(fields, "linkedin_url"),
			Name:        stringField(fields, "name"),
			All:         fields,
		}
		return identity.ResolveCompanyID(orgID, cf, explicit)
	case "person":
		pf := identity.PersonFields{
			LinkedInURL: stringField(fields, "linkedin_url"),
			WorkEmail:   stringField(fields, "work_email"),
			FullName:    stringField(fields, "full_name"),
			All:         fields,
		}
		return identity.ResolvePersonID(orgID, pf, explicit)
	case "job":
		jf := identity.JobFields{
			TheirStackJobID: stringField(fields, "theirstack_job_id"),
			JobURL:          stringField(fields, "job_url"),
			Title:           stringField(fields, "title"),
			CompanyDomain:   stringField(fields, "company_domain"),
			All:             fields,
		}
		return identity.ResolveJobPostingID(orgID, jf, explicit)
	default:
		return identity.ResolveCompanyID(orgID, identity.CompanyFields{All: fields}, explicit)
	}
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

// LookupByEntityID queries a row by its primary key.
func (s *Store) LookupByEntityID(ctx context.Context, orgID string, id uuid.UUID) (*Record, bool, error) {
	row := s.db.QueryRow(ctx, fmt.Sprintf(
		`SELECT entity_id, org_id, record_version, canonical_payload, last_enriched_at, last_run_id, last_operation_id, source_providers
		 FROM %s WHERE org_id = $1 AND entity_id = $2`, s.schema.TableName), orgID, id)
	return scanRecord(row)
}

// LookupByNaturalKey queries the projected natural-key columns, preferring
// a cached result within the freshness TTL window.
func (s *Store) LookupByNaturalKey(ctx context.Context, orgID string, key NaturalKey) (*Record, bool, error) {
	if rec, ok := s.cache.get(orgID, s.schema, key); ok {
		return rec, rec != nil, nil
	}

	where, args := naturalKeyWhere(s.schema, key, orgID)
	if where == "" {
		return nil, false, nil
	}

	row := s.db.QueryRow(ctx, fmt.Sprintf(
		`SELECT entity_id, org_id, record_version, canonical_payload, last_enriched_at, last_run_id, last_operation_id, source_providers
		 FROM %s WHERE %s LIMIT 1`, s.schema.TableName, where), args...)

	rec, found, err := scanRecord(row)
	if err != nil {
		return nil, false, err
	}
	if found {
		s.cache.set(orgID, s.schema, key, rec)
	} else {
		s.cache.set(orgID, s.schema, key, nil)
	}
	return rec, found, nil
}

func naturalKeyWhere(schema Schema, key NaturalKey, orgID string) (string, []any) {
	args := []any{orgID}
	clause := "org_id = $1"
	idx := 2
	matched := false
	for _, col := range schema.NaturalKeyColumns {
		v, ok := key[col]
		if !ok || v == "" {
			continue
		}
		clause += fmt.Sprintf(" AND %s = $%d", col, idx)
		args = append(args, v)
		idx++
		matched = true
	}
	if !matched {
		return "", nil
	}
	return clause, args
}

func scanRecord(row pgx.Row) (*Record, bool, error) {
	var rec Record
	var payloadBytes []byte
	err := row.Scan(&rec.EntityID, &rec.OrgID, &rec.RecordVersion, &payloadBytes,
		&rec.LastEnrichedAt, &rec.LastRunID, &rec.LastOperationID, &rec.SourceProviders)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("scan entity record: %w", err)
	}
	if err := json.Unmarshal(payloadBytes, &rec.CanonicalPayload); err != nil {
		return nil, false, fmt.Errorf("unmarshal canonical_payload: %w", err)
	}
	return &rec, true, nil
}

// CheckFreshness looks up the entity by natural key and reports whether it
// was enriched within maxAgeHours, per spec.md §4.4.
func (s *Store) CheckFreshness(ctx context.Context, orgID string, identifiers map[string]any, maxAgeHours float64) (FreshnessResult, error) {
	key := make(NaturalKey, len(s.schema.NaturalKeyColumns))
	for _, col := range s.schema.NaturalKeyColumns {
		if v, ok := identifiers[col].(string); ok {
			key[col] = v
		}
	}

	rec, found, err := s.LookupByNaturalKey(ctx, orgID, key)
	if err != nil {
		return FreshnessResult{}, err
	}
	if !found {
		return FreshnessResult{Fresh: false}, nil
	}

	age := time.Since(rec.LastEnrichedAt)
	ageHours := age.Hours()
	fresh := ageHours <= maxAgeHours

	result := FreshnessResult{Fresh: fresh, EntityID: rec.EntityID, AgeHours: ageHours}
	if fresh {
		result.CanonicalPayload = rec.CanonicalPayload
	}
	return result, nil
}

// Upsert runs the seven-step algorithm of spec.md §4.4: resolve, load
// existing, compute next version, pre-image snapshot, additive merge,
// projected-column merge, conditional update/insert.
func (s *Store) Upsert(ctx context.Context, orgID string, fields map[string]any, opts UpsertOptions) (*Record, error) {
	entityID := s.Resolve(orgID, fields, opts.ExplicitID)

	existing, found, err := s.LookupByEntityID(ctx, orgID, entityID)
	if err != nil {
		return nil, fmt.Errorf("lookup existing entity: %w", err)
	}
	if !found {
		key := naturalKeyFromFields(s.schema, fields)
		if altExisting, altFound, err := s.LookupByNaturalKey(ctx, orgID, key); err != nil {
			return nil, fmt.Errorf("lookup existing entity by natural key: %w", err)
		} else if altFound {
			existing, found = altExisting, true
			entityID = existing.EntityID
		}
	}

	nextVersion := 1
	if found {
		nextVersion = existing.RecordVersion + 1
		if opts.IncomingVersion != nil {
			nextVersion = *opts.IncomingVersion
		}
		if nextVersion <= existing.RecordVersion {
			return nil, pkgerrors.ErrVersionConflictf(entityID.String())
		}
	}

	if found {
		if err := s.writeSnapshot(ctx, orgID, entityID, existing); err != nil {
			// Snapshot write failures must never block the upsert (spec.md
			// §4.4): log and swallow, losing one generation of history.
			logger.Warn("entity snapshot write failed, continuing upsert",
				"entity_id", entityID.String(),
				"error", err,
			)
		}
	}

	merged := mergeCanonicalPayload(existing, fields)
	sourceProviders := mergeSourceProviders(existing, fields)

	payloadBytes, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("marshal canonical_payload: %w", err)
	}

	now := time.Now().UTC()
	var lastRunID *uuid.UUID
	if opts.LastRunID != uuid.Nil {
		lastRunID = &opts.LastRunID
	}

	// Project the natural-key columns out of the merged payload so
	// LookupByNaturalKey (and the freshness check built on it) can query
	// them directly instead of round-tripping through canonical_payload.
	projectedCols, projectedVals := projectColumns(s.schema, merged)

	if found {
		setClauses := []string{"record_version = $1", "canonical_payload = $2", "last_enriched_at = $3",
			"last_run_id = $4", "last_operation_id = $5", "source_providers = $6"}
		args := []any{nextVersion, payloadBytes, now, lastRunID, opts.LastOperationID, sourceProviders}
		idx := len(args) + 1
		for i, col := range projectedCols {
			setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, idx))
			args = append(args, projectedVals[i])
			idx++
		}
		args = append(args, orgID, entityID, existing.RecordVersion)

		tag, err := s.db.Exec(ctx, fmt.Sprintf(
			`UPDATE %s SET %s WHERE org_id = $%d AND entity_id = $%d AND record_version = $%d`,
			s.schema.TableName, strings.Join(setClauses, ", "), idx, idx+1, idx+2),
			args...)
		if err != nil {
			return nil, fmt.Errorf("update entity: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, pkgerrors.ErrVersionConflictf(entityID.String())
		}
	} else {
		cols := append([]string{"entity_id", "org_id", "record_version", "canonical_payload", "last_enriched_at", "last_run_id", "last_operation_id", "source_providers"}, projectedCols...)
		args := append([]any{entityID, orgID, nextVersion, payloadBytes, now, lastRunID, opts.LastOperationID, sourceProviders}, projectedVals...)
		placeholders := make([]string, len(args))
		for i := range args {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}
		_, err := s.db.Exec(ctx, fmt.Sprintf(
			`INSERT INTO %s (%s) VALUES (%s)`,
			s.schema.TableName, strings.Join(cols, ", "), strings.Join(placeholders, ", ")),
			args...)
		if err != nil {
			return nil, fmt.Errorf("insert entity: %w", err)
		}
	}

	rec := &Record{
		EntityID:         entityID,
		OrgID:            orgID,
		RecordVersion:    nextVersion,
		CanonicalPayload: merged,
		LastEnrichedAt:   now,
		LastRunID:        lastRunID,
		LastOperationID:  opts.LastOperationID,
		SourceProviders:  sourceProviders,
	}
	s.cache.invalidate(orgID, s.schema, naturalKeyFromFields(s.schema, merged))
	return rec, nil
}

func (s *Store) writeSnapshot(ctx context.Context, orgID string, entityID uuid.UUID, existing *Record) error {
	payloadBytes, err := json.Marshal(existing.CanonicalPayload)
	if err != nil {
		return fmt.Errorf("marshal snapshot payload: %w", err)
	}
	_, err = s.db.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (org_id, entity_type, entity_id, record_version, canonical_payload, source_run_id, captured_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`, s.schema.SnapshotTable),
		orgID, s.schema.EntityType, entityID, existing.RecordVersion, payloadBytes, existing.LastRunID, time.Now().UTC())
	if err != nil {
		return pkgerrors.ErrSnapshotWritef(entityID.String())
	}
	return nil
}

// projectColumns extracts the schema's natural-key columns out of the
// merged canonical payload as parallel (column, value) slices, skipping
// any column with no string value to project (spec.md §4.4 step 6).
func projectColumns(schema Schema, merged map[string]any) ([]string, []any) {
	cols := make([]string, 0, len(schema.NaturalKeyColumns))
	vals := make([]any, 0, len(schema.NaturalKeyColumns))
	for _, col := range schema.NaturalKeyColumns {
		v, ok := merged[col].(string)
		if !ok || v == "" {
			continue
		}
		cols = append(cols, col)
		vals = append(vals, v)
	}
	return cols, vals
}

func naturalKeyFromFields(schema Schema, fields map[string]any) NaturalKey {
	key := make(NaturalKey, len(schema.NaturalKeyColumns))
	for _, col := range schema.NaturalKeyColumns {
		if v, ok := fields[col].(string); ok {
			key[col] = v
		}
	}
	return key
}

// mergeCanonicalPayload builds the new payload: copy existing, overwrite
// only non-null incoming keys (spec.md §4.4 step 5). Incoming empty
// strings are skipped as well, so they never clear an existing value.
func mergeCanonicalPayload(existing *Record, incoming map[string]any) map[string]any {
	merged := make(map[string]any)
	if existing != nil {
		for k, v := range existing.CanonicalPayload {
			merged[k] = v
		}
	}
	for k, v := range incoming {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		merged[k] = v
	}
	return merged
}

// mergeSourceProviders union-merges source_providers, preserving order of
// first appearance (spec.md §4.4 step 5).
func mergeSourceProviders(existing *Record, incoming map[string]any) []string {
	seen := make(map[string]struct{})
	var merged []string
	if existing != nil {
		for _, p := range existing.SourceProviders {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				merged = append(merged, p)
			}
		}
	}
	if list, ok := incoming["source_providers"].([]string); ok {
		for _, p := range list {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				merged = append(merged, p)
			}
		}
	} else if list, ok := incoming["source_providers"].([]any); ok {
		for _, item := range list {
			p, ok := item.(string)
			if !ok {
				continue
			}
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				merged = append(merged, p)
			}
		}
	}
	return merged
}
