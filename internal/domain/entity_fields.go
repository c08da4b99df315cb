package domain

// Canonical field names are a closed set per entity type, per SPEC_FULL.md
// §9's guidance to encode them explicitly rather than lean on untyped maps.

// Company canonical field keys.
const (
	FieldCompanyDomain        = "domain"
	FieldCompanyLinkedInURL   = "linkedin_url"
	FieldCompanyName          = "name"
	FieldCompanyIndustry      = "industry"
	FieldCompanyDescription   = "description"
	FieldCompanyEmployeeCount = "employee_count"
	FieldSourceProviders      = "source_providers"
)

// Person canonical field keys.
const (
	FieldPersonLinkedInURL = "linkedin_url"
	FieldPersonWorkEmail   = "work_email"
	FieldPersonFullName    = "full_name"
	FieldPersonTitle       = "title"
	FieldPersonCompanyID   = "company_id"
)

// Job posting canonical field keys.
const (
	FieldJobTheirStackID  = "theirstack_job_id"
	FieldJobURL           = "job_url"
	FieldJobTitle         = "title"
	FieldJobCompanyDomain = "company_domain"
)

// CompanyProjectedColumns lists the typed columns projected out of a
// company's canonical_payload for natural-key lookup (spec.md §3).
var CompanyProjectedColumns = []string{FieldCompanyDomain, FieldCompanyLinkedInURL, FieldCompanyName}

// PersonProjectedColumns lists the typed columns projected out of a
// person's canonical_payload for natural-key lookup.
var PersonProjectedColumns = []string{FieldPersonLinkedInURL, FieldPersonWorkEmail, FieldPersonFullName}

// JobProjectedColumns lists the typed columns projected out of a job
// posting's canonical_payload for natural-key lookup.
var JobProjectedColumns = []string{FieldJobTheirStackID, FieldJobURL, FieldJobTitle, FieldJobCompanyDomain}

// ProjectedColumns returns the projected column set for an entity type.
func ProjectedColumns(t EntityType) []string {
	switch t {
	case EntityCompany:
		return CompanyProjectedColumns
	case EntityPerson:
		return PersonProjectedColumns
	case EntityJob:
		return JobProjectedColumns
	default:
		return nil
	}
}

// FanOutCollectionKeys is the well-known set of output collection keys a
// fan-out-capable operation may declare, per spec.md §4.6 step 9.
var FanOutCollectionKeys = []string{
	"results", "customers", "champions", "similar_companies", "alumni", "competitors",
}
