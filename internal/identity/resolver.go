package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Lookup defaults.
const (
	// DefaultEndpoint is the MediaWiki REST page endpoint. {lang}, {domain}
	// and {title} are substituted; the title is already quoted.
	DefaultEndpoint = "https://{lang}.{domain}/w/rest.php/v1/page/{title}"

	// DefaultUserAgent identifies this client to Wikimedia, as their API
	// etiquette requires.
	DefaultUserAgent = "wikiref/0.1 (https://github.com/roach88/wikiref)"

	// DefaultTimeout bounds one lookup round-trip.
	DefaultTimeout = 10 * time.Second

	// maxBodyBytes caps how much of a lookup response is read.
	maxBodyBytes = 1 << 20
)

// PageInfo is the result of one page lookup.
type PageInfo struct {
	// Found is false when the wiki answered 404.
	Found bool

	PageID         int64
	LatestRevision int64
}

// Resolver fills in page ids and revisions through the MediaWiki REST API.
//
// Thread-safety: a Resolver is safe for concurrent use. Concurrent lookups
// of the same (language, domain, title) share one request; the first
// caller's context governs that shared request.
type Resolver struct {
	client    *http.Client
	endpoint  string
	userAgent string
	timeout   time.Duration
	limiter   *rate.Limiter
	logger    *slog.Logger

	group singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient replaces the HTTP client. The client is copied, not
// modified, when WithTimeout is also given.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) {
		if c != nil {
			r.client = c
		}
	}
}

// WithEndpoint sets the lookup URL template.
func WithEndpoint(template string) Option {
	return func(r *Resolver) {
		if template != "" {
			r.endpoint = template
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every lookup.
func WithUserAgent(ua string) Option {
	return func(r *Resolver) {
		if ua != "" {
			r.userAgent = ua
		}
	}
}

// WithTimeout bounds each lookup round-trip. A timeout is a hard failure.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRateLimit paces lookups to rps requests per second with the given
// burst. rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(r *Resolver) {
		if rps <= 0 {
			r.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger injects the logger used for lookup diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a Resolver. Without options it talks to the public
// Wikimedia endpoint with DefaultTimeout and logs nowhere.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		client:    &http.Client{Timeout: DefaultTimeout},
		endpoint:  DefaultEndpoint,
		userAgent: DefaultUserAgent,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.timeout > 0 && r.client.Timeout != r.timeout {
		c := *r.client
		c.Timeout = r.timeout
		r.client = &c
	}
	return r
}

// LookupURL returns the lookup URL for an identity.
func (r *Resolver) LookupURL(id JobIdentity) (string, error) {
	title, err := id.QuotedTitle()
	if err != nil {
		return "", err
	}
	return strings.NewReplacer(
		"{lang}", id.Language,
		"{domain}", string(id.Domain),
		"{title}", title,
	).Replace(r.endpoint), nil
}

// ResolveIDs fills in PageID and, if the caller did not request one,
// Revision.
//
// It is a no-op when PageID is already set. Language, domain and title are
// required. A 404 from the wiki is a soft failure: it is logged, nil is
// returned and the identity stays unresolved. Any other failure is returned
// as a *FetchError and is not retried.
func (r *Resolver) ResolveIDs(ctx context.Context, id *JobIdentity) error {
	if id == nil {
		return NewMissingInformationError("identity")
	}
	if id.PageID != 0 {
		return nil
	}
	switch {
	case id.Language == "":
		return NewMissingInformationError("language")
	case id.Title == "":
		return NewMissingInformationError("title")
	case id.Domain == "":
		return NewMissingInformationError("domain")
	}

	info, err := r.Lookup(ctx, *id)
	if err != nil {
		return err
	}
	if !info.Found {
		return nil
	}

	// Only take the latest revision if the patron did not ask for one.
	if id.Revision == 0 {
		id.Revision = info.LatestRevision
	}
	id.PageID = info.PageID
	return nil
}

// Lookup fetches page id and latest revision for the identity's language,
// domain and title. A 404 returns Found=false and a nil error.
func (r *Resolver) Lookup(ctx context.Context, id JobIdentity) (PageInfo, error) {
	lookupURL, err := r.LookupURL(id)
	if err != nil {
		return PageInfo{}, err
	}

	v, err, shared := r.group.Do(lookupURL, func() (any, error) {
		return r.fetch(ctx, lookupURL)
	})
	if err != nil {
		return PageInfo{}, err
	}
	info := v.(PageInfo)

	if !info.Found {
		r.logger.Error("could not fetch page data because of 404",
			"language", id.Language,
			"domain", id.Domain.String(),
			"title", id.Title,
			"url", lookupURL,
		)
		return info, nil
	}

	r.logger.Debug("page ids resolved",
		"language", id.Language,
		"domain", id.Domain.String(),
		"title", id.Title,
		"page_id", info.PageID,
		"latest_revision", info.LatestRevision,
		"shared", shared,
	)
	return info, nil
}

// pageResponse is the subset of the REST page object we read.
type pageResponse struct {
	ID     int64 `json:"id"`
	Latest struct {
		ID int64 `json:"id"`
	} `json:"latest"`
}

func (r *Resolver) fetch(ctx context.Context, lookupURL string) (PageInfo, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return PageInfo{}, &FetchError{URL: lookupURL, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return PageInfo{}, &FetchError{URL: lookupURL, Err: err}
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/json")

	r.logger.Debug("fetching page data", "url", lookupURL)
	resp, err := r.client.Do(req)
	if err != nil {
		return PageInfo{}, &FetchError{URL: lookupURL, Err: err}
	}
	defer resp.Body.Close()
	body := io.LimitReader(resp.Body, maxBodyBytes)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, body)
		return PageInfo{Found: false}, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, body)
		return PageInfo{}, &FetchError{URL: lookupURL, StatusCode: resp.StatusCode}
	}

	var page pageResponse
	if err := json.NewDecoder(body).Decode(&page); err != nil {
		return PageInfo{}, &FetchError{URL: lookupURL, StatusCode: resp.StatusCode, Err: err}
	}
	if page.ID <= 0 || page.Latest.ID <= 0 {
		return PageInfo{}, &FetchError{
			URL:        lookupURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("response lacks id or latest.id"),
		}
	}

	return PageInfo{Found: true, PageID: page.ID, LatestRevision: page.Latest.ID}, nil
}
