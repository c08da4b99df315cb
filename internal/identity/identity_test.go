package identity

import "testing"

func TestNormalizeDomain_EquivalentForms(t *testing.T) {
	want := "example.com"
	inputs := []string{
		"example.com",
		"WWW.example.com",
		"https://example.com/",
		"https://www.example.com",
		"http://www.EXAMPLE.com/path/ignored",
	}
	for _, in := range inputs {
		if got := NormalizeDomain(in); got != want {
			t.Errorf("NormalizeDomain(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeLinkedInURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://LinkedIn.com/in/Jane/", "https://linkedin.com/in/jane"},
		{"  https://linkedin.com/in/jane  ", "https://linkedin.com/in/jane"},
	}
	for _, tt := range tests {
		if got := NormalizeLinkedInURL(tt.in); got != tt.want {
			t.Errorf("NormalizeLinkedInURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveCompanyID_Deterministic(t *testing.T) {
	fields := CompanyFields{Domain: "acme.com", Name: "Acme"}
	a := ResolveCompanyID("org-1", fields, nil)
	b := ResolveCompanyID("org-1", fields, nil)
	if a != b {
		t.Errorf("ResolveCompanyID not deterministic: %v != %v", a, b)
	}

	// Different normalized-equivalent domain input still resolves the same.
	fields2 := CompanyFields{Domain: "https://www.acme.com/", Name: "Acme"}
	c := ResolveCompanyID("org-1", fields2, nil)
	if a != c {
		t.Errorf("ResolveCompanyID not stable across equivalent domain forms: %v != %v", a, c)
	}
}

func TestResolveCompanyID_PrecedenceChain(t *testing.T) {
	byDomain := ResolveCompanyID("org-1", CompanyFields{Domain: "acme.com"}, nil)
	byDomainAndLinkedIn := ResolveCompanyID("org-1", CompanyFields{Domain: "acme.com", LinkedInURL: "https://linkedin.com/company/acme"}, nil)
	if byDomain != byDomainAndLinkedIn {
		t.Error("domain must take precedence over linkedin_url when both present")
	}

	byLinkedIn := ResolveCompanyID("org-1", CompanyFields{LinkedInURL: "https://linkedin.com/company/acme"}, nil)
	byLinkedInAndName := ResolveCompanyID("org-1", CompanyFields{LinkedInURL: "https://linkedin.com/company/acme", Name: "Acme"}, nil)
	if byLinkedIn != byLinkedInAndName {
		t.Error("linkedin_url must take precedence over name when both present")
	}
}

func TestResolveCompanyID_ExplicitOverridesDerivation(t *testing.T) {
	explicit := ResolveCompanyID("org-1", CompanyFields{Domain: "other.com"}, nil)
	got := ResolveCompanyID("org-1", CompanyFields{Domain: "acme.com"}, &explicit)
	if got != explicit {
		t.Error("explicit id must override derived id")
	}
}

func TestResolveCompanyID_StableHashFallback(t *testing.T) {
	fields := CompanyFields{All: map[string]any{"industry": "software", "employee_count": 42}}
	a := ResolveCompanyID("org-1", fields, nil)
	b := ResolveCompanyID("org-1", fields, nil)
	if a != b {
		t.Error("stable hash fallback must be deterministic")
	}
}

func TestResolvePersonID_PrecedenceChain(t *testing.T) {
	byLinkedIn := ResolvePersonID("org-1", PersonFields{LinkedInURL: "https://linkedin.com/in/jane"}, nil)
	byLinkedInAndEmail := ResolvePersonID("org-1", PersonFields{LinkedInURL: "https://linkedin.com/in/jane", WorkEmail: "jane@acme.com"}, nil)
	if byLinkedIn != byLinkedInAndEmail {
		t.Error("linkedin_url must take precedence over work_email when both present")
	}
}

func TestResolveJobPostingID_PrecedenceChain(t *testing.T) {
	byID := ResolveJobPostingID("org-1", JobFields{TheirStackJobID: "ts-123"}, nil)
	byIDAndURL := ResolveJobPostingID("org-1", JobFields{TheirStackJobID: "ts-123", JobURL: "https://jobs.example.com/1"}, nil)
	if byID != byIDAndURL {
		t.Error("theirstack_job_id must take precedence over job_url when both present")
	}

	byTitleDomain := ResolveJobPostingID("org-1", JobFields{Title: "Engineer", CompanyDomain: "acme.com"}, nil)
	if byTitleDomain == (ResolveJobPostingID("org-1", JobFields{}, nil)) {
		t.Error("title+domain derivation must differ from the empty-fields stable hash")
	}
}

func TestStableHash_OrderIndependent(t *testing.T) {
	a := StableHash(map[string]any{"b": 2, "a": 1})
	b := StableHash(map[string]any{"a": 1, "b": 2})
	if a != b {
		t.Error("StableHash must be independent of map iteration order")
	}
}
