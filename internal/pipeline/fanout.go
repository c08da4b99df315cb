package pipeline

import (
	"fmt"

	"enrichpipe.io/engine/internal/domain"
	"enrichpipe.io/engine/internal/identity"
)

// WorkItem is one surviving fan-out entity after dedup, ready to become a
// child pipeline run.
type WorkItem struct {
	EntityType domain.EntityType
	Fields     map[string]any
	DedupKey   string
}

// ErrFanoutDepthExceeded is returned by Expand when fanning out would push
// a run past config.Pipeline.MaxFanoutDepth.
type ErrFanoutDepthExceeded struct {
	Depth    int
	MaxDepth int
}

func (e *ErrFanoutDepthExceeded) Error() string {
	return fmt.Sprintf("fan-out depth %d exceeds max depth %d", e.Depth, e.MaxDepth)
}

// Expand computes the dedup key for each item in collection (spec.md
// §4.6's precedence chains), drops second occurrences of any key, and
// returns the surviving work items plus the dropped identifiers. depth is
// the fan-out depth the *new* children would be created at; it is checked
// against maxDepth before any work is done.
func Expand(collection []map[string]any, entityType domain.EntityType, depth, maxDepth int) ([]WorkItem, []string, error) {
	if depth > maxDepth {
		return nil, nil, &ErrFanoutDepthExceeded{Depth: depth, MaxDepth: maxDepth}
	}

	seen := make(map[string]struct{}, len(collection))
	items := make([]WorkItem, 0, len(collection))
	var skipped []string

	for _, fields := range collection {
		key := DedupKey(entityType, fields)
		if _, ok := seen[key]; ok {
			skipped = append(skipped, key)
			continue
		}
		seen[key] = struct{}{}
		items = append(items, WorkItem{EntityType: entityType, Fields: fields, DedupKey: key})
	}

	return items, skipped, nil
}

// DedupKey derives the dedup key for one fan-out entity, evaluated in the
// precedence order of spec.md §4.6: first non-empty field wins.
func DedupKey(entityType domain.EntityType, fields map[string]any) string {
	switch entityType {
	case domain.EntityPerson:
		if l := identity.NormalizeLinkedInURL(stringOf(fields, "linkedin_url")); l != "" {
			return "person:linkedin:" + l
		}
		if e := identity.NormalizeEmail(stringOf(fields, "work_email", "email")); e != "" {
			return "person:email:" + e
		}
		if n := identity.NormalizeNameForKey(stringOf(fields, "full_name", "name")); n != "" {
			return "person:name:" + n
		}
	case domain.EntityCompany:
		if d := identity.NormalizeDomain(stringOf(fields, "domain", "company_domain")); d != "" {
			return "company:domain:" + d
		}
		if l := identity.NormalizeLinkedInURL(stringOf(fields, "linkedin_url", "company_linkedin_url")); l != "" {
			return "company:linkedin:" + l
		}
		if n := identity.NormalizeNameForKey(stringOf(fields, "name", "company_name")); n != "" {
			return "company:name:" + n
		}
	case domain.EntityJob:
		if id := stringOf(fields, "theirstack_job_id"); id != "" {
			return "job:theirstack:" + id
		}
		if u := stringOf(fields, "job_url"); u != "" {
			return "job:url:" + u
		}
		title := identity.NormalizeNameForKey(stringOf(fields, "title", "job_title"))
		companyDomain := identity.NormalizeDomain(stringOf(fields, "company_domain"))
		if title != "" && companyDomain != "" {
			return fmt.Sprintf("job:title_domain:%s:%s", title, companyDomain)
		}
	}
	return "hash:" + identity.StableHash(fields)
}

func stringOf(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := fields[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
