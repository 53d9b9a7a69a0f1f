package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDomain(t *testing.T) {
	tests := []struct {
		input string
		want  Domain
	}{
		{"wikipedia.org", DomainWikipedia},
		{"Wikipedia", DomainWikipedia},
		{" WIKTIONARY.ORG ", DomainWiktionary},
		{"wikivoyage", DomainWikivoyage},
		{"wikinews.org", DomainWikinews},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDomain(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDomain_Unsupported(t *testing.T) {
	for _, input := range []string{"", "example.org", "wikipedia.com", "wikidata.org", "commons.wikimedia.org"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseDomain(input)
			require.Error(t, err)
			assert.True(t, IsUnsupportedDomain(err), "got %v", err)
		})
	}
}

func TestDomain_SiteAndValid(t *testing.T) {
	assert.Equal(t, "wikipedia", DomainWikipedia.Site())
	assert.Equal(t, "wikisource.org", DomainWikisource.String())
	assert.True(t, DomainWikibooks.Valid())
	assert.False(t, Domain("example.org").Valid())
	assert.Len(t, SupportedDomains, 8)
}

func TestNormalizeLanguage(t *testing.T) {
	valid := map[string]string{
		"en":         "en",
		"EN":         "en",
		" de ":       "de",
		"simple":     "simple",
		"zh-min-nan": "zh-min-nan",
		"be-tarask":  "be-tarask",
		"ast":        "ast",
	}
	for input, want := range valid {
		got, err := NormalizeLanguage(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}

	_, err := NormalizeLanguage("")
	assert.True(t, IsMissingInformation(err))

	for _, input := range []string{"e", "english", "en_gb", "en.", "-en", "12"} {
		_, err := NormalizeLanguage(input)
		assert.True(t, IsInvalidLanguage(err), "input %q: %v", input, err)
	}
}

func TestNormalizeTitle_ComposesUnicode(t *testing.T) {
	decomposed := "Cafe\u0301"
	composed := "Caf\u00e9"
	assert.Equal(t, composed, NormalizeTitle(" "+decomposed+" "))
	assert.Equal(t, composed, NormalizeTitle(composed))
}

func TestCanonicalID(t *testing.T) {
	id := JobIdentity{Language: "en", Domain: DomainWikipedia, PageID: 123, Title: "Test", Revision: 456}

	got, err := id.CanonicalID()
	require.NoError(t, err)
	assert.Equal(t, "en.wikipedia.org.123.456", got)
	assert.True(t, id.Resolved())

	free, err := CanonicalID(id)
	require.NoError(t, err)
	assert.Equal(t, got, free)
}

func TestCanonicalID_IgnoresTitle(t *testing.T) {
	a := JobIdentity{Language: "en", Domain: DomainWikipedia, PageID: 9617, Title: "Easter Island", Revision: 1}
	b := a
	b.Title = "Rapa Nui"

	idA, err := a.CanonicalID()
	require.NoError(t, err)
	idB, err := b.CanonicalID()
	require.NoError(t, err)
	assert.Equal(t, idA, idB)

	c := a
	c.Revision = 2
	idC, err := c.CanonicalID()
	require.NoError(t, err)
	assert.NotEqual(t, idA, idC)
}

func TestCanonicalID_MissingFields(t *testing.T) {
	full := JobIdentity{Language: "en", Domain: DomainWikipedia, PageID: 1, Revision: 2}

	tests := []struct {
		field  string
		mutate func(*JobIdentity)
	}{
		{"language", func(id *JobIdentity) { id.Language = "" }},
		{"domain", func(id *JobIdentity) { id.Domain = "" }},
		{"page_id", func(id *JobIdentity) { id.PageID = 0 }},
		{"revision", func(id *JobIdentity) { id.Revision = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			id := full
			tt.mutate(&id)

			_, err := id.CanonicalID()
			require.Error(t, err)
			assert.True(t, IsMissingInformation(err))

			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.field, e.Field)
			assert.False(t, id.Resolved())
		})
	}
}

func TestParseCanonicalID(t *testing.T) {
	id, err := ParseCanonicalID("zh-min-nan.wikipedia.org.12345.67890")
	require.NoError(t, err)
	assert.Equal(t, JobIdentity{Language: "zh-min-nan", Domain: DomainWikipedia, PageID: 12345, Revision: 67890}, id)

	again, err := id.CanonicalID()
	require.NoError(t, err)
	assert.Equal(t, "zh-min-nan.wikipedia.org.12345.67890", again)
}

func TestParseCanonicalID_Invalid(t *testing.T) {
	tests := []struct {
		input string
		check func(error) bool
	}{
		{"en.wikipedia.123.456", isInvalidCanonicalID},
		{"en.wikipedia.org.123", isInvalidCanonicalID},
		{"en.wikipedia.org.x.456", isInvalidCanonicalID},
		{"en.wikipedia.org.0.456", isInvalidCanonicalID},
		{"en.wikipedia.org.1.-4", isInvalidCanonicalID},
		{"en.example.org.1.2", IsUnsupportedDomain},
		{"english.wikipedia.org.1.2", IsInvalidLanguage},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseCanonicalID(tt.input)
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
		})
	}
}

func isInvalidCanonicalID(err error) bool { return hasCode(err, ErrCodeInvalidCanonicalID) }

func TestQuoteTitle(t *testing.T) {
	tests := map[string]string{
		"Test":          "Test",
		"Easter Island": "Easter%20Island",
		"AC/DC":         "AC%2FDC",
		"C++":           "C%2B%2B",
		"a&b?c#d":       "a%26b%3Fc%23d",
		"100% Pure":     "100%25%20Pure",
		"Caf\u00e9":     "Caf%C3%A9",
		"~a-b_c.d":      "~a-b_c.d",
	}
	for input, want := range tests {
		assert.Equal(t, want, QuoteTitle(input), input)
	}
}

func TestURL_RoundTripsThroughExtract(t *testing.T) {
	titles := []string{"Test", "Easter Island", "AC/DC", "C++", "100% Pure", "Caf\u00e9", "What?", "Rock & roll"}
	for _, title := range titles {
		t.Run(title, func(t *testing.T) {
			id := JobIdentity{Language: "de", Domain: DomainWikiquote, Title: title}
			u, err := id.URL()
			require.NoError(t, err)

			got, err := ExtractFromURL(u)
			require.NoError(t, err)
			assert.Equal(t, id.Language, got.Language)
			assert.Equal(t, id.Domain, got.Domain)
			assert.Equal(t, id.Title, got.Title)
		})
	}
}

func TestURL_RequiresFields(t *testing.T) {
	_, err := JobIdentity{Domain: DomainWikipedia, Title: "X"}.URL()
	assert.True(t, IsMissingInformation(err))
	_, err = JobIdentity{Language: "en", Title: "X"}.URL()
	assert.True(t, IsMissingInformation(err))
	_, err = JobIdentity{Language: "en", Domain: DomainWikipedia}.URL()
	assert.True(t, IsMissingInformation(err))
}

func TestError_Message(t *testing.T) {
	err := NewUnsupportedDomainError("example.org")
	assert.Equal(t, `UNSUPPORTED_DOMAIN: domain is not a supported Wikimedia site (domain="example.org")`, err.Error())

	err = NewMissingInformationError("title")
	assert.Equal(t, "MISSING_INFORMATION: required identity field is empty (title)", err.Error())
}
