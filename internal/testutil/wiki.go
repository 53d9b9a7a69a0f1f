package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// FakeWiki is an httptest server that answers MediaWiki REST page lookups.
//
// Its Endpoint carries language and domain in the path so a Resolver built
// with it never leaves the loopback interface. Unknown titles answer 404.
//
// Thread-safety: all methods are safe for concurrent use.
type FakeWiki struct {
	server *httptest.Server

	mu         sync.Mutex
	pages      map[string]fakePage
	status     map[string]int
	hold       chan struct{}
	userAgent  string
	lastLang   string
	lastDomain string

	requests atomic.Int64
}

type fakePage struct {
	id     int64
	latest int64
}

// NewFakeWiki starts a fake wiki that is closed when the test ends.
func NewFakeWiki(t testing.TB) *FakeWiki {
	t.Helper()
	w := &FakeWiki{
		pages:  make(map[string]fakePage),
		status: make(map[string]int),
	}
	w.server = httptest.NewServer(http.HandlerFunc(w.serve))
	t.Cleanup(w.Close)
	return w
}

// Endpoint returns a lookup URL template for identity.WithEndpoint.
func (w *FakeWiki) Endpoint() string {
	return w.server.URL + "/{lang}/{domain}/w/rest.php/v1/page/{title}"
}

// Client returns the server's HTTP client.
func (w *FakeWiki) Client() *http.Client {
	return w.server.Client()
}

// AddPage registers title with its page id and latest revision.
func (w *FakeWiki) AddPage(title string, pageID, latestRevision int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pages[title] = fakePage{id: pageID, latest: latestRevision}
}

// SetStatus makes lookups of title answer with code and an empty body.
func (w *FakeWiki) SetStatus(title string, code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status[title] = code
}

// Hold blocks every lookup until the returned release func is called.
func (w *FakeWiki) Hold() (release func()) {
	ch := make(chan struct{})
	w.mu.Lock()
	w.hold = ch
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			w.hold = nil
			w.mu.Unlock()
			close(ch)
		})
	}
}

// Requests returns how many lookups the server has received.
func (w *FakeWiki) Requests() int64 {
	return w.requests.Load()
}

// LastUserAgent returns the User-Agent of the latest lookup.
func (w *FakeWiki) LastUserAgent() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.userAgent
}

// LastSite returns the language and domain of the latest lookup.
func (w *FakeWiki) LastSite() (lang, domain string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastLang, w.lastDomain
}

// Close shuts the server down. Held lookups are released first.
func (w *FakeWiki) Close() {
	w.mu.Lock()
	hold := w.hold
	w.hold = nil
	w.mu.Unlock()
	if hold != nil {
		close(hold)
	}
	w.server.Close()
}

func (w *FakeWiki) serve(rw http.ResponseWriter, r *http.Request) {
	w.requests.Add(1)

	// /{lang}/{domain}/w/rest.php/v1/page/{title}
	parts := strings.SplitN(strings.TrimPrefix(r.URL.EscapedPath(), "/"), "/", 7)
	if len(parts) != 7 || parts[2] != "w" || parts[3] != "rest.php" || parts[5] != "page" {
		http.Error(rw, "bad path", http.StatusBadRequest)
		return
	}
	title, err := url.PathUnescape(parts[6])
	if err != nil {
		http.Error(rw, "bad title", http.StatusBadRequest)
		return
	}

	w.mu.Lock()
	w.userAgent = r.UserAgent()
	w.lastLang, w.lastDomain = parts[0], parts[1]
	hold := w.hold
	code, hasStatus := w.status[title]
	page, found := w.pages[title]
	w.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}

	switch {
	case hasStatus:
		rw.WriteHeader(code)
		return
	case !found:
		http.Error(rw, fmt.Sprintf(`{"httpCode":404,"messageTranslations":{"en":"%s not found"}}`, title), http.StatusNotFound)
		return
	}

	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(map[string]any{
		"id":     page.id,
		"key":    strings.ReplaceAll(title, " ", "_"),
		"title":  title,
		"latest": map[string]any{"id": page.latest, "timestamp": "2024-01-01T00:00:00Z"},
	})
}
