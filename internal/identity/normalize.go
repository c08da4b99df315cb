// Package identity provides the pure, I/O-free normalization and
// deterministic entity-ID derivation functions of spec.md §4.3. Every
// function here is side-effect free: given the same inputs, it returns the
// same output across processes and time.
package identity

import (
	"net/url"
	"strings"
)

// NormalizeDomain lowercases, strips the scheme, strips a leading "www.",
// and strips everything from the first "/" onward.
func NormalizeDomain(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)

	// Strip a scheme if present (net/url requires one to parse Host out
	// cleanly; without one, u.Path carries the whole string instead).
	withScheme := lower
	if !strings.Contains(lower, "://") {
		withScheme = "https://" + lower
	}
	if u, err := url.Parse(withScheme); err == nil && u.Host != "" {
		lower = u.Host
	} else {
		lower = strings.TrimPrefix(lower, "https://")
		lower = strings.TrimPrefix(lower, "http://")
		if idx := strings.Index(lower, "/"); idx >= 0 {
			lower = lower[:idx]
		}
	}

	lower = strings.TrimPrefix(lower, "www.")
	return lower
}

// NormalizeEmail lowercases and trims.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeLinkedInURL trims, strips a trailing "/", and lowercases.
func NormalizeLinkedInURL(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "/")
	return strings.ToLower(s)
}

// NormalizeName trims and preserves case for storage.
func NormalizeName(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeNameForKey is the lowercased variant used only as a keying
// fallback (dedup keys, identity-ID derivation), never for display.
func NormalizeNameForKey(s string) string {
	return strings.ToLower(NormalizeName(s))
}
