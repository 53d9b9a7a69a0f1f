package identity

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// articleURLPattern matches scheme://{language}.{domain}/wiki/{title} on a
// decoded URL. The mobile host form {language}.m.{domain} is accepted too.
var articleURLPattern = regexp.MustCompile(`(?i)^https?://([a-z0-9-]+)\.(?:m\.)?([a-z0-9]+\.[a-z]+)/wiki/(.+)$`)

// ExtractFromURL derives language, domain and title from an article URL.
//
// The URL is percent-decoded before matching and the title is left decoded.
// Language and domain are lower-cased; the domain must be supported. A URL
// that does not match fails with an UnrecognizedURLFormat error; callers
// should treat that as non-fatal and fall back to explicit fields.
func ExtractFromURL(raw string) (JobIdentity, error) {
	decoded := unquote(strings.TrimSpace(raw))
	if !utf8.ValidString(decoded) {
		return JobIdentity{}, NewUnrecognizedURLFormatError(raw)
	}

	m := articleURLPattern.FindStringSubmatch(decoded)
	if m == nil {
		return JobIdentity{}, NewUnrecognizedURLFormatError(raw)
	}

	lang, err := NormalizeLanguage(m[1])
	if err != nil {
		return JobIdentity{}, err
	}
	domain, err := ParseDomain(m[2])
	if err != nil {
		return JobIdentity{}, err
	}
	title := NormalizeTitle(m[3])
	if title == "" {
		return JobIdentity{}, NewUnrecognizedURLFormatError(raw)
	}

	return JobIdentity{Language: lang, Domain: domain, Title: title}, nil
}

// unquote decodes %XX sequences and leaves malformed ones as they are, so a
// pasted "100%_Pure" survives instead of failing. "+" is not a space.
func unquote(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			hi, ok1 := unhex(s[i+1])
			lo, ok2 := unhex(s[i+2])
			if ok1 && ok2 {
				b.WriteByte(hi<<4 | lo)
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
