package identity

import (
	"errors"
	"log/slog"
	"strings"
)

// Job defaults applied when a request names neither a URL nor the field.
const (
	DefaultLanguage = "en"
	DefaultDomain   = DomainWikipedia
)

// JobRequest is the raw, unvalidated input for one article job.
type JobRequest struct {
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
	Language  string `json:"lang,omitempty" yaml:"lang,omitempty"`
	Domain    string `json:"domain,omitempty" yaml:"domain,omitempty"`
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`
	PageID    int64  `json:"page_id,omitempty" yaml:"page_id,omitempty"`
	Revision  int64  `json:"revision,omitempty" yaml:"revision,omitempty"`
	Sections  string `json:"sections,omitempty" yaml:"sections,omitempty"`
	Refresh   bool   `json:"refresh,omitempty" yaml:"refresh,omitempty"`
	Dehydrate bool   `json:"dehydrate,omitempty" yaml:"dehydrate,omitempty"`
}

// ArticleJob is a normalized request to analyze one article.
type ArticleJob struct {
	Identity JobIdentity `json:"identity" yaml:"identity"`

	// URL is the request URL as given, if any.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Sections restricts analysis to these pipe-delimited section names.
	Sections string `json:"sections,omitempty" yaml:"sections,omitempty"`

	// Refresh bypasses cached results.
	Refresh bool `json:"refresh" yaml:"refresh"`

	// Dehydrate asks for references without their full payloads.
	Dehydrate bool `json:"dehydrate" yaml:"dehydrate"`

	// Token correlates log lines for this job.
	Token string `json:"token" yaml:"token"`
}

// NewArticleJob validates and normalizes req.
//
// When a URL is given it is parsed first. If it cannot be parsed and the
// request also carries a title, the explicit language, domain and title are
// used instead and a warning is logged; without a title the parse error is
// returned. Explicit fields default to DefaultLanguage and DefaultDomain.
// A nil gen uses UUIDv7Generator; a nil logger discards.
func NewArticleJob(req JobRequest, gen TokenGenerator, logger *slog.Logger) (*ArticleJob, error) {
	if gen == nil {
		gen = UUIDv7Generator{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	job := &ArticleJob{
		URL:       strings.TrimSpace(req.URL),
		Sections:  strings.TrimSpace(req.Sections),
		Refresh:   req.Refresh,
		Dehydrate: req.Dehydrate,
		Token:     gen.Generate(),
	}
	logger = logger.With("job", job.Token)

	if job.Sections != "" {
		if err := ValidSections(job.Sections); err != nil {
			return nil, err
		}
	}

	id, err := identityFromRequest(req, job.URL, logger)
	if err != nil {
		return nil, err
	}
	id.PageID = req.PageID
	id.Revision = req.Revision
	job.Identity = id

	logger.Debug("article job created",
		"language", id.Language,
		"domain", id.Domain.String(),
		"title", id.Title,
		"revision", id.Revision,
	)
	return job, nil
}

func identityFromRequest(req JobRequest, rawURL string, logger *slog.Logger) (JobIdentity, error) {
	if rawURL != "" {
		id, err := ExtractFromURL(rawURL)
		if err == nil {
			return id, nil
		}
		var idErr *Error
		if !errors.As(err, &idErr) || strings.TrimSpace(req.Title) == "" {
			return JobIdentity{}, err
		}
		logger.Warn("url not usable, falling back to explicit fields",
			"url", rawURL,
			"error", err,
		)
	}
	return explicitIdentity(req)
}

func explicitIdentity(req JobRequest) (JobIdentity, error) {
	title := NormalizeTitle(req.Title)
	if title == "" && req.PageID == 0 {
		return JobIdentity{}, NewMissingInformationError("title")
	}

	lang := DefaultLanguage
	if strings.TrimSpace(req.Language) != "" {
		var err error
		if lang, err = NormalizeLanguage(req.Language); err != nil {
			return JobIdentity{}, err
		}
	}

	domain := DefaultDomain
	if strings.TrimSpace(req.Domain) != "" {
		var err error
		if domain, err = ParseDomain(req.Domain); err != nil {
			return JobIdentity{}, err
		}
	}

	return JobIdentity{Language: lang, Domain: domain, Title: title}, nil
}

// ValidSections checks a pipe-delimited list of section names such as
// "bibliography|further reading". Padding around a pipe, empty names and
// underscores are rejected.
func ValidSections(s string) error {
	invalid := func(msg string) error {
		return &Error{Code: ErrCodeInvalidSections, Message: msg, Field: "sections", Input: s}
	}
	switch {
	case strings.TrimSpace(s) == "":
		return invalid("section list is empty")
	case strings.Contains(s, " | "):
		return invalid("section names must not be padded around the pipe")
	case strings.Contains(s, "||"):
		return invalid("section list has an empty name")
	case strings.Contains(s, "_"):
		return invalid("section names use spaces, not underscores")
	}
	for _, name := range strings.Split(s, "|") {
		if strings.TrimSpace(name) == "" {
			return invalid("section list has an empty name")
		}
	}
	return nil
}
