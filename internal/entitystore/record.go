package entitystore

import (
	"time"

	"github.com/google/uuid"
)

// Record is one canonical entity row, shared in shape across company,
// person, and job posting entities (spec.md §3).
type Record struct {
	EntityID         uuid.UUID      `json:"entity_id"`
	OrgID            string         `json:"org_id"`
	RecordVersion    int            `json:"record_version"`
	CanonicalPayload map[string]any `json:"canonical_payload"`
	LastEnrichedAt   time.Time      `json:"last_enriched_at"`
	LastRunID        *uuid.UUID     `json:"last_run_id,omitempty"`
	LastOperationID  string         `json:"last_operation_id,omitempty"`
	SourceProviders  []string       `json:"source_providers"`
}

// NaturalKey is a set of natural-key column values used for lookup and
// dedup, e.g. {"domain": "acme.com"} for a company.
type NaturalKey map[string]string

// FreshnessResult is the outcome of a freshness check (spec.md §4.4).
type FreshnessResult struct {
	Fresh            bool
	EntityID         uuid.UUID
	CanonicalPayload map[string]any
	AgeHours         float64
}

// UpsertOptions carries the optional fields of spec.md §4.4's upsert
// signature beyond the canonical fields themselves.
type UpsertOptions struct {
	ExplicitID      *uuid.UUID
	LastOperationID string
	LastRunID       uuid.UUID
	IncomingVersion *int
}
