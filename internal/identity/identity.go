package identity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// JobIdentity identifies one article, and once resolved, one immutable
// revision of it.
//
// Zero values mean "not yet resolved". ResolveIDs fills PageID and, when the
// caller did not ask for a specific one, Revision. A JobIdentity is a
// request-scoped value and is never persisted.
type JobIdentity struct {
	Language string `json:"language" yaml:"language"`
	Domain   Domain `json:"domain" yaml:"domain"`
	PageID   int64  `json:"page_id,omitempty" yaml:"page_id,omitempty"`
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	Revision int64  `json:"revision,omitempty" yaml:"revision,omitempty"`
}

// languagePattern accepts Wikimedia edition codes: a two or three letter
// code (or "simple") with optional hyphenated subtags, e.g. "en",
// "zh-min-nan", "be-tarask". There is no fixed list of editions.
var languagePattern = regexp.MustCompile(`^(?:[a-z]{2,3}|simple)(?:-[a-z0-9]+)*$`)

// NormalizeLanguage lower-cases and validates a language code.
func NormalizeLanguage(s string) (string, error) {
	lang := strings.ToLower(strings.TrimSpace(s))
	if lang == "" {
		return "", NewMissingInformationError("language")
	}
	if !languagePattern.MatchString(lang) {
		return "", &Error{
			Code:    ErrCodeInvalidLanguage,
			Message: "language code is malformed",
			Field:   "language",
			Input:   s,
		}
	}
	return lang, nil
}

// NormalizeTitle returns the title NFC-normalized and trimmed, so composed
// and decomposed spellings of the same title look up the same page.
func NormalizeTitle(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// CanonicalID returns "{language}.{domain}.{page_id}.{revision}".
//
// The id is independent of the title: titles change, page ids and revision
// ids do not. All four fields must be set.
func (id JobIdentity) CanonicalID() (string, error) {
	switch {
	case id.Language == "":
		return "", NewMissingInformationError("language")
	case id.Domain == "":
		return "", NewMissingInformationError("domain")
	case id.PageID == 0:
		return "", NewMissingInformationError("page_id")
	case id.Revision == 0:
		return "", NewMissingInformationError("revision")
	}
	return fmt.Sprintf("%s.%s.%d.%d", id.Language, id.Domain, id.PageID, id.Revision), nil
}

// Resolved reports whether CanonicalID would succeed.
func (id JobIdentity) Resolved() bool {
	return id.Language != "" && id.Domain != "" && id.PageID != 0 && id.Revision != 0
}

// QuotedTitle returns the title escaped for use as one URL path segment.
func (id JobIdentity) QuotedTitle() (string, error) {
	if id.Title == "" {
		return "", NewMissingInformationError("title")
	}
	return QuoteTitle(id.Title), nil
}

// URL returns the article URL https://{language}.{domain}/wiki/{title}.
// ExtractFromURL(URL()) yields the same language, domain and title.
func (id JobIdentity) URL() (string, error) {
	if id.Language == "" {
		return "", NewMissingInformationError("language")
	}
	if id.Domain == "" {
		return "", NewMissingInformationError("domain")
	}
	title, err := id.QuotedTitle()
	if err != nil {
		return "", err
	}
	return "https://" + id.Language + "." + string(id.Domain) + "/wiki/" + title, nil
}

// ParseCanonicalID splits a canonical id back into an identity without a
// title. The domain must be supported and both numbers positive.
func ParseCanonicalID(s string) (JobIdentity, error) {
	// language may contain hyphens but no dots; the domain has exactly one dot.
	parts := strings.Split(s, ".")
	if len(parts) != 5 {
		return JobIdentity{}, &Error{
			Code:    ErrCodeInvalidCanonicalID,
			Message: "canonical id must have the form language.domain.page_id.revision",
			Input:   s,
		}
	}
	lang, err := NormalizeLanguage(parts[0])
	if err != nil {
		return JobIdentity{}, err
	}
	domain, err := ParseDomain(parts[1] + "." + parts[2])
	if err != nil {
		return JobIdentity{}, err
	}
	pageID, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil || pageID <= 0 {
		return JobIdentity{}, &Error{Code: ErrCodeInvalidCanonicalID, Message: "page id is not a positive integer", Field: "page_id", Input: parts[3]}
	}
	revision, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil || revision <= 0 {
		return JobIdentity{}, &Error{Code: ErrCodeInvalidCanonicalID, Message: "revision is not a positive integer", Field: "revision", Input: parts[4]}
	}
	return JobIdentity{Language: lang, Domain: domain, PageID: pageID, Revision: revision}, nil
}

// QuoteTitle percent-encodes every byte outside the RFC 3986 unreserved set
// (ALPHA / DIGIT / "-" / "." / "_" / "~"). No reserved character is treated
// as safe, so "/", "?", "#", "&" and "+" in titles never change the shape
// of the lookup URL and distinct titles never collide.
func QuoteTitle(title string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(title) * 3)
	for i := 0; i < len(title); i++ {
		c := title[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}

// CanonicalID is shorthand for id.CanonicalID().
func CanonicalID(id JobIdentity) (string, error) {
	return id.CanonicalID()
}
