package identity

import (
	"fmt"

	"github.com/google/uuid"
)

// CompanyFields are the canonical identity fields for a company entity.
type CompanyFields struct {
	Domain      string
	LinkedInURL string
	Name        string
	All         map[string]any // full canonical payload, for the stable-hash fallback
}

// PersonFields are the canonical identity fields for a person entity.
type PersonFields struct {
	LinkedInURL string
	WorkEmail   string
	FullName    string
	All         map[string]any
}

// JobFields are the canonical identity fields for a job posting entity.
type JobFields struct {
	TheirStackJobID string
	JobURL          string
	Title           string
	CompanyDomain   string
	All             map[string]any
}

// ResolveCompanyID derives a company's deterministic entity ID. Returns
// explicit if non-nil, else the first available of domain -> linkedin_url ->
// lowercased name -> stable hash of all canonical fields (spec.md §4.3).
func ResolveCompanyID(orgID string, fields CompanyFields, explicit *uuid.UUID) uuid.UUID {
	if explicit != nil {
		return *explicit
	}
	if d := NormalizeDomain(fields.Domain); d != "" {
		return seedUUID(fmt.Sprintf("company:%s:domain:%s", orgID, d))
	}
	if l := NormalizeLinkedInURL(fields.LinkedInURL); l != "" {
		return seedUUID(fmt.Sprintf("company:%s:linkedin:%s", orgID, l))
	}
	if n := NormalizeNameForKey(fields.Name); n != "" {
		return seedUUID(fmt.Sprintf("company:%s:name:%s", orgID, n))
	}
	return seedUUID(fmt.Sprintf("company:%s:hash:%s", orgID, StableHash(fields.All)))
}

// ResolvePersonID derives a person's deterministic entity ID. Returns
// explicit if non-nil, else the first available of linkedin_url ->
// work_email -> lowercased full name -> stable hash (spec.md §4.3).
func ResolvePersonID(orgID string, fields PersonFields, explicit *uuid.UUID) uuid.UUID {
	if explicit != nil {
		return *explicit
	}
	if l := NormalizeLinkedInURL(fields.LinkedInURL); l != "" {
		return seedUUID(fmt.Sprintf("person:%s:linkedin:%s", orgID, l))
	}
	if e := NormalizeEmail(fields.WorkEmail); e != "" {
		return seedUUID(fmt.Sprintf("person:%s:email:%s", orgID, e))
	}
	if n := NormalizeNameForKey(fields.FullName); n != "" {
		return seedUUID(fmt.Sprintf("person:%s:name:%s", orgID, n))
	}
	return seedUUID(fmt.Sprintf("person:%s:hash:%s", orgID, StableHash(fields.All)))
}

// ResolveJobPostingID derives a job posting's deterministic entity ID.
// Returns explicit if non-nil, else the first available of
// theirstack_job_id -> job_url -> lowercased title + company domain ->
// stable hash (spec.md §4.3).
func ResolveJobPostingID(orgID string, fields JobFields, explicit *uuid.UUID) uuid.UUID {
	if explicit != nil {
		return *explicit
	}
	if id := fields.TheirStackJobID; id != "" {
		return seedUUID(fmt.Sprintf("job:%s:theirstack:%s", orgID, id))
	}
	if u := fields.JobURL; u != "" {
		return seedUUID(fmt.Sprintf("job:%s:url:%s", orgID, u))
	}
	title := NormalizeNameForKey(fields.Title)
	domain := NormalizeDomain(fields.CompanyDomain)
	if title != "" && domain != "" {
		return seedUUID(fmt.Sprintf("job:%s:title_domain:%s:%s", orgID, title, domain))
	}
	return seedUUID(fmt.Sprintf("job:%s:hash:%s", orgID, StableHash(fields.All)))
}
