package registry

import (
	"context"

	"github.com/google/uuid"

	"enrichpipe.io/engine/internal/adapter"
	"enrichpipe.io/engine/internal/domain"
)

// Builtin example operations, standing in for the ~60 out-of-scope
// third-party integrations of the original system (revenueinfra,
// theirstack, blitzapi, and friends). Each does a bounded in-memory
// "provider call" — a pure function standing in for an HTTP call — so the
// runtime and its tests never need network access, grounded on
// original_source/app/providers/revenueinfra/*.py and app/services/*.py.

const provider = "revenueinfra"

// RegisterBuiltins registers all ten example operations into r.
func RegisterBuiltins(r *Registry) {
	r.Register(OperationDef{ID: "company.search.blitzapi", EntityType: domain.EntityCompany, Executor: companySearchBlitzAPI})
	r.Register(OperationDef{ID: "company.enrich.tech_stack", EntityType: domain.EntityCompany, Executor: companyEnrichTechStack})
	r.Register(OperationDef{ID: "company.research.similar_companies", EntityType: domain.EntityCompany, FanOutKey: "similar_companies", Executor: companyResearchSimilarCompanies})
	r.Register(OperationDef{ID: "company.derive.customers", EntityType: domain.EntityCompany, FanOutKey: "customers", Executor: companyDeriveCustomers})
	r.Register(OperationDef{ID: "company.derive.champions", EntityType: domain.EntityPerson, FanOutKey: "champions", Executor: companyDeriveChampions})
	r.Register(OperationDef{ID: "person.enrich.contact", EntityType: domain.EntityPerson, Executor: personEnrichContact})
	r.Register(OperationDef{ID: "person.resolve.alumni", EntityType: domain.EntityPerson, FanOutKey: "alumni", Executor: personResolveAlumni})
	r.Register(OperationDef{ID: "job.search.theirstack", EntityType: domain.EntityJob, FanOutKey: "results", Executor: jobSearchTheirStack})
	r.Register(OperationDef{ID: "job.validate.posting", EntityType: domain.EntityJob, Executor: jobValidatePosting})
	r.Register(OperationDef{ID: "company.signal.vc_funding", EntityType: domain.EntityCompany, Executor: companySignalVCFunding})
}

func companySearchBlitzAPI(ctx context.Context, runID uuid.UUID, input adapter.Input) adapter.Envelope {
	const opID = "company.search.blitzapi"
	domainValue, ok := input.Extract("domain")
	if !ok {
		return adapter.MissingInputs(opID, []string{"domain"})
	}

	attempt := adapter.CallWithRetry(ctx, provider, "search_company", adapter.DefaultRetryConfig(), func(ctx context.Context) (adapter.Attempt, error) {
		return adapter.Attempt{
			Provider:   provider,
			Action:     "search_company",
			Status:     domain.StatusFound,
			HTTPStatus: 200,
			DurationMs: 40,
		}, nil
	})

	return adapter.Found(opID, map[string]any{
		"name":           titleCaseFromDomain(domainValue),
		"domain":         domainValue,
		"industry":       "software",
		"employee_count": float64(120),
	}, attempt)
}

func companyEnrichTechStack(ctx context.Context, runID uuid.UUID, input adapter.Input) adapter.Envelope {
	const opID = "company.enrich.tech_stack"
	domainValue, ok := input.Extract("domain")
	if !ok {
		return adapter.MissingInputs(opID, []string{"domain"})
	}

	attempt := adapter.Attempt{Provider: provider, Action: "enrich_tech_stack", Status: domain.StatusFound, HTTPStatus: 200, DurationMs: 55}
	return adapter.Found(opID, map[string]any{
		"domain":     domainValue,
		"tech_stack": []string{"postgresql", "kubernetes", "react"},
	}, attempt)
}

func companyResearchSimilarCompanies(ctx context.Context, runID uuid.UUID, input adapter.Input) adapter.Envelope {
	const opID = "company.research.similar_companies"
	domainValue, ok := input.Extract("domain")
	if !ok {
		return adapter.Skipped(opID, adapter.Attempt{Provider: provider, Action: "find_similar_companies", Status: domain.StatusSkipped, SkipReason: "missing_required_inputs"})
	}

	attempt := adapter.Attempt{Provider: provider, Action: "find_similar_companies", Status: domain.StatusFound, HTTPStatus: 200, DurationMs: 120}
	similar := []map[string]any{
		{"company_name": "Parallel Co", "company_domain": "parallel-" + domainValue, "similarity_score": 0.91},
		{"company_name": "Adjacent Inc", "company_domain": "adjacent-" + domainValue, "similarity_score": 0.77},
	}
	return adapter.Found(opID, map[string]any{
		"similar_companies": similar,
		"similar_count":      len(similar),
	}, attempt)
}

func companyDeriveCustomers(ctx context.Context, runID uuid.UUID, input adapter.Input) adapter.Envelope {
	const opID = "company.derive.customers"
	domainValue, ok := input.Extract("domain")
	if !ok {
		return adapter.Skipped(opID, adapter.Attempt{Provider: provider, Action: "lookup_customers", Status: domain.StatusSkipped, SkipReason: "missing_required_inputs"})
	}

	attempt := adapter.Attempt{Provider: provider, Action: "lookup_customers", Status: domain.StatusFound, HTTPStatus: 200, DurationMs: 95}
	customers := []map[string]any{
		{"customer_name": "North Labs", "customer_domain": "north-" + domainValue, "origin_company_domain": domainValue},
	}
	return adapter.Found(opID, map[string]any{
		"customers":      customers,
		"customer_count": len(customers),
	}, attempt)
}

func companyDeriveChampions(ctx context.Context, runID uuid.UUID, input adapter.Input) adapter.Envelope {
	const opID = "company.derive.champions"
	domainValue, ok := input.Extract("domain")
	if !ok {
		return adapter.Skipped(opID, adapter.Attempt{Provider: provider, Action: "lookup_champions", Status: domain.StatusSkipped, SkipReason: "missing_required_inputs"})
	}

	attempt := adapter.Attempt{Provider: provider, Action: "lookup_champions", Status: domain.StatusFound, HTTPStatus: 200, DurationMs: 110}
	champions := []map[string]any{
		{"full_name": "Jordan Reyes", "job_title": "VP Revenue", "company_domain": domainValue, "case_study_url": "https://example.com/case-study"},
	}
	return adapter.Found(opID, map[string]any{
		"champions": champions,
	}, attempt)
}

func personEnrichContact(ctx context.Context, runID uuid.UUID, input adapter.Input) adapter.Envelope {
	const opID = "person.enrich.contact"
	linkedin, ok := input.Extract("linkedin_url")
	if !ok {
		return adapter.MissingInputs(opID, []string{"linkedin_url"})
	}

	attempt := adapter.Attempt{Provider: provider, Action: "enrich_contact", Status: domain.StatusFound, HTTPStatus: 200, DurationMs: 60}
	return adapter.Found(opID, map[string]any{
		"linkedin_url": linkedin,
		"work_email":   deriveWorkEmail(linkedin),
	}, attempt)
}

func personResolveAlumni(ctx context.Context, runID uuid.UUID, input adapter.Input) adapter.Envelope {
	const opID = "person.resolve.alumni"
	fullName, ok := input.Extract("full_name")
	if !ok {
		return adapter.Skipped(opID, adapter.Attempt{Provider: provider, Action: "lookup_alumni", Status: domain.StatusSkipped, SkipReason: "missing_required_inputs"})
	}

	attempt := adapter.Attempt{Provider: provider, Action: "lookup_alumni", Status: domain.StatusFound, HTTPStatus: 200, DurationMs: 140}
	alumni := []map[string]any{
		{"full_name": fullName + " Jr.", "linkedin_url": "https://linkedin.com/in/" + slugify(fullName) + "-jr", "current_company_domain": "newco.example"},
	}
	return adapter.Found(opID, map[string]any{
		"alumni": alumni,
	}, attempt)
}

func jobSearchTheirStack(ctx context.Context, runID uuid.UUID, input adapter.Input) adapter.Envelope {
	const opID = "job.search.theirstack"
	title, ok := input.Extract("title")
	if !ok {
		return adapter.MissingInputs(opID, []string{"title"})
	}
	companyDomain, _ := input.Extract("company_domain")

	attempt := adapter.Attempt{Provider: "theirstack", Action: "search_jobs", Status: domain.StatusFound, HTTPStatus: 200, DurationMs: 200}
	results := []map[string]any{
		{"theirstack_job_id": "ts-" + slugify(title), "title": title, "company_domain": companyDomain, "job_url": "https://jobs.example.com/" + slugify(title)},
	}
	return adapter.Found(opID, map[string]any{
		"results": results,
	}, attempt)
}

func jobValidatePosting(ctx context.Context, runID uuid.UUID, input adapter.Input) adapter.Envelope {
	const opID = "job.validate.posting"
	companyDomain, ok1 := input.Extract("company_domain")
	title, ok2 := input.Extract("title")
	if !ok1 || !ok2 {
		missing := []string{}
		if !ok1 {
			missing = append(missing, "company_domain")
		}
		if !ok2 {
			missing = append(missing, "title")
		}
		return adapter.MissingInputs(opID, missing)
	}

	attempt := adapter.Attempt{Provider: "brightdata", Action: "validate_job_active", Status: domain.StatusFound, HTTPStatus: 200, DurationMs: 80}
	return adapter.Found(opID, map[string]any{
		"company_domain": companyDomain,
		"title":          title,
		"is_active":      true,
	}, attempt)
}

func companySignalVCFunding(ctx context.Context, runID uuid.UUID, input adapter.Input) adapter.Envelope {
	const opID = "company.signal.vc_funding"
	domainValue, ok := input.Extract("domain")
	if !ok {
		return adapter.Skipped(opID, adapter.Attempt{Provider: provider, Action: "check_vc_funding", Status: domain.StatusSkipped, SkipReason: "missing_required_inputs"})
	}

	attempt := adapter.Attempt{Provider: provider, Action: "check_vc_funding", Status: domain.StatusNotFound, HTTPStatus: 200, DurationMs: 70}
	_ = domainValue
	return adapter.NotFound(opID, attempt)
}

func titleCaseFromDomain(d string) string {
	if d == "" {
		return ""
	}
	parts := make([]byte, 0, len(d))
	upperNext := true
	for i := 0; i < len(d); i++ {
		c := d[i]
		if c == '.' {
			break
		}
		if upperNext && c >= 'a' && c <= 'z' {
			c = c - 'a' + 'A'
			upperNext = false
		}
		parts = append(parts, c)
	}
	return string(parts) + " Inc"
}

func deriveWorkEmail(linkedinURL string) string {
	return slugify(linkedinURL) + "@example.com"
}

func slugify(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			out = append(out, c)
		case c >= 'A' && c <= 'Z':
			out = append(out, c-'A'+'a')
		case c == ' ' || c == '/' || c == ':' || c == '.':
			if len(out) > 0 && out[len(out)-1] != '-' {
				out = append(out, '-')
			}
		}
	}
	for len(out) > 0 && out[len(out)-1] == '-' {
		out = out[:len(out)-1]
	}
	return string(out)
}
