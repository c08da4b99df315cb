package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"enrichpipe.io/engine/internal/domain"
	"enrichpipe.io/engine/internal/pipeline"
)

func TestExpand_PersonLinkedInDedup_DropsSecondOccurrence(t *testing.T) {
	collection := []map[string]any{
		{"full_name": "Alice A", "linkedin_url": "https://linkedin.com/in/A"},
		{"full_name": "Alice A Dup", "linkedin_url": "https://linkedin.com/in/A/"},
		{"full_name": "Bob B", "linkedin_url": "https://linkedin.com/in/B"},
	}

	items, skipped, err := pipeline.Expand(collection, domain.EntityPerson, 1, 3)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Len(t, skipped, 1)
}

func TestExpand_CompanyDomainPrecedenceOverLinkedIn(t *testing.T) {
	key := pipeline.DedupKey(domain.EntityCompany, map[string]any{
		"domain":       "Acme.com",
		"linkedin_url": "https://linkedin.com/company/acme",
	})
	require.Equal(t, "company:domain:acme.com", key)
}

func TestExpand_DepthExceeded_ReturnsError(t *testing.T) {
	_, _, err := pipeline.Expand(nil, domain.EntityCompany, 4, 3)
	require.Error(t, err)
	var depthErr *pipeline.ErrFanoutDepthExceeded
	require.ErrorAs(t, err, &depthErr)
}

func TestDedupKey_JobFallsBackToTitleDomain(t *testing.T) {
	key := pipeline.DedupKey(domain.EntityJob, map[string]any{
		"title":          "Backend Engineer",
		"company_domain": "acme.com",
	})
	require.Equal(t, "job:title_domain:backend engineer:acme.com", key)
}

func TestDedupKey_UnknownFieldsFallBackToStableHash(t *testing.T) {
	key := pipeline.DedupKey(domain.EntityCompany, map[string]any{"random_field": "x"})
	require.Contains(t, key, "hash:")
}
