// Package entitystore implements the Entity State Store of spec.md §4.4:
// identity resolution, natural-key lookup, freshness check, and versioned
// additive-merge upsert, over a single shared pgxpool. Company, person, and
// job posting entities share one generic code path driven by a per-type
// Schema descriptor, collapsing the three near-identical upsert functions
// the Python original implements separately (see DESIGN.md).
package entitystore

import "enrichpipe.io/engine/internal/domain"

// Schema describes the shape of one entity type's table for the generic
// store code path: its table name, the natural-key columns used for
// lookup/dedup, and the full projected-column list materialized out of the
// canonical payload.
type Schema struct {
	EntityType       domain.EntityType
	TableName        string
	SnapshotTable    string
	NaturalKeyColumns []string
	ProjectedColumns  []string
}

// CompanySchema describes the company_entities table.
var CompanySchema = Schema{
	EntityType:        domain.EntityCompany,
	TableName:         "company_entities",
	SnapshotTable:     "entity_snapshots",
	NaturalKeyColumns: []string{domain.FieldCompanyDomain, domain.FieldCompanyLinkedInURL, domain.FieldCompanyName},
	ProjectedColumns:  domain.CompanyProjectedColumns,
}

// PersonSchema describes the person_entities table.
var PersonSchema = Schema{
	EntityType:        domain.EntityPerson,
	TableName:         "person_entities",
	SnapshotTable:     "entity_snapshots",
	NaturalKeyColumns: []string{domain.FieldPersonLinkedInURL, domain.FieldPersonWorkEmail, domain.FieldPersonFullName},
	ProjectedColumns:  domain.PersonProjectedColumns,
}

// JobSchema describes the job_posting_entities table.
var JobSchema = Schema{
	EntityType:        domain.EntityJob,
	TableName:         "job_posting_entities",
	SnapshotTable:     "entity_snapshots",
	NaturalKeyColumns: []string{domain.FieldJobTheirStackID, domain.FieldJobURL, domain.FieldJobTitle, domain.FieldJobCompanyDomain},
	ProjectedColumns:  domain.JobProjectedColumns,
}

// SchemaFor returns the Schema for an entity type, or (Schema{}, false) for
// domain.EntityNone or an unrecognized type.
func SchemaFor(t domain.EntityType) (Schema, bool) {
	switch t {
	case domain.EntityCompany:
		return CompanySchema, true
	case domain.EntityPerson:
		return PersonSchema, true
	case domain.EntityJob:
		return JobSchema, true
	default:
		return Schema{}, false
	}
}
