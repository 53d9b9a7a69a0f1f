package identity

import "strings"

// Domain is a supported Wikimedia site, in host form ("wikipedia.org").
type Domain string

// Supported domains. The set is closed: ParseDomain rejects anything else.
const (
	DomainWikipedia   Domain = "wikipedia.org"
	DomainWiktionary  Domain = "wiktionary.org"
	DomainWikibooks   Domain = "wikibooks.org"
	DomainWikiquote   Domain = "wikiquote.org"
	DomainWikisource  Domain = "wikisource.org"
	DomainWikiversity Domain = "wikiversity.org"
	DomainWikivoyage  Domain = "wikivoyage.org"
	DomainWikinews    Domain = "wikinews.org"
)

// SupportedDomains lists every accepted domain.
var SupportedDomains = []Domain{
	DomainWikipedia,
	DomainWiktionary,
	DomainWikibooks,
	DomainWikiquote,
	DomainWikisource,
	DomainWikiversity,
	DomainWikivoyage,
	DomainWikinews,
}

// ParseDomain normalizes s and checks it against SupportedDomains.
// Both the site name ("Wikipedia") and the host form ("wikipedia.org") are
// accepted, in any case.
func ParseDomain(s string) (Domain, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized != "" && !strings.Contains(normalized, ".") {
		normalized += ".org"
	}
	for _, d := range SupportedDomains {
		if Domain(normalized) == d {
			return d, nil
		}
	}
	return "", NewUnsupportedDomainError(s)
}

// Site returns the short site name ("wikipedia").
func (d Domain) Site() string {
	return strings.TrimSuffix(string(d), ".org")
}

// String returns the host form.
func (d Domain) String() string {
	return string(d)
}

// Valid reports whether d is one of SupportedDomains.
func (d Domain) Valid() bool {
	for _, s := range SupportedDomains {
		if d == s {
			return true
		}
	}
	return false
}
