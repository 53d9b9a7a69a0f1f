package refcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/roach88/wikiref/internal/store"
)

// State is the connection state of a Cache.
type State int

const (
	// StateDisconnected is the initial state, and the state after Close or
	// after the store became unreachable.
	StateDisconnected State = iota
	// StateConnected means Connect succeeded and the store has not failed
	// since.
	StateConnected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ComputeFunc produces the result id for a record that missed the cache.
type ComputeFunc func(ctx context.Context, rec *ReferenceRecord) (string, error)

// Cache maps reference content hashes to result ids.
//
// Writes go straight through to the store; there is no in-process copy.
// The cache never reconnects on its own: once the store is reported
// unreachable every call fails with ErrCacheUnavailable until Connect
// succeeds again.
//
// Thread-safety: a Cache is safe for concurrent use. Concurrent Puts to
// one key resolve last-writer-wins in the store.
type Cache struct {
	adapter store.Adapter
	logger  *slog.Logger

	mu    sync.RWMutex
	state State
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger injects the logger used for cache diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a disconnected cache over adapter.
func New(adapter store.Adapter, opts ...Option) *Cache {
	c := &Cache{
		adapter: adapter,
		logger:  slog.New(slog.DiscardHandler),
		state:   StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current connection state.
func (c *Cache) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Connect connects the store. On failure the cache stays disconnected.
func (c *Cache) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.adapter.Connect(ctx); err != nil {
		c.state = StateDisconnected
		c.logger.Error("reference cache connect failed", "error", err)
		return fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}
	c.state = StateConnected
	c.logger.Debug("reference cache connected")
	return nil
}

// Close closes the store and returns to StateDisconnected.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateDisconnected
	return c.adapter.Close()
}

// Put records rec.ResultID under rec.ContentHash, replacing any previous
// value. Both fields are required.
func (c *Cache) Put(ctx context.Context, rec *ReferenceRecord) error {
	if err := rec.checkKey(); err != nil {
		return err
	}
	if rec.ResultID == "" {
		return fmt.Errorf("%w: result id is empty", ErrInvalidRecord)
	}
	if !utf8.ValidString(rec.ResultID) {
		return fmt.Errorf("%w: result id is not valid UTF-8", ErrInvalidRecord)
	}
	if err := c.ready(); err != nil {
		return err
	}

	if err := c.adapter.Set(ctx, rec.ContentHash, rec.ResultID); err != nil {
		return c.storeFailed("put", rec.ContentHash, err)
	}
	c.logger.Debug("reference cached", "hash", rec.ContentHash, "result_id", rec.ResultID)
	return nil
}

// Lookup returns the result id stored for rec.ContentHash and copies it
// into rec.ResultID on a hit. A miss is ("", false, nil). A store failure
// is ErrCacheUnavailable, never a miss.
func (c *Cache) Lookup(ctx context.Context, rec *ReferenceRecord) (string, bool, error) {
	if err := rec.checkKey(); err != nil {
		return "", false, err
	}
	if err := c.ready(); err != nil {
		return "", false, err
	}

	raw, found, err := c.adapter.Get(ctx, rec.ContentHash)
	if err != nil {
		return "", false, c.storeFailed("lookup", rec.ContentHash, err)
	}
	if !found {
		c.logger.Debug("reference cache miss", "hash", rec.ContentHash)
		return "", false, nil
	}
	if len(raw) == 0 || !utf8.Valid(raw) {
		c.logger.Error("corrupt reference cache entry", "hash", rec.ContentHash, "bytes", len(raw))
		return "", false, fmt.Errorf("%w: value for %s is empty or not UTF-8", ErrCorruptEntry, rec.ContentHash)
	}

	rec.ResultID = string(raw)
	c.logger.Debug("reference cache hit", "hash", rec.ContentHash, "result_id", rec.ResultID)
	return rec.ResultID, true, nil
}

// Register derives rec's content hash, looks it up, and on a miss computes
// a result id and stores it. hit reports whether the id came from the
// cache. On return rec.ContentHash and rec.ResultID are set.
func (c *Cache) Register(ctx context.Context, rec *ReferenceRecord, compute ComputeFunc) (hit bool, err error) {
	if rec == nil {
		return false, fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if compute == nil {
		return false, fmt.Errorf("%w: nil compute func", ErrInvalidRecord)
	}
	if err := rec.EnsureHash(); err != nil {
		return false, err
	}

	if _, found, err := c.Lookup(ctx, rec); err != nil || found {
		return found, err
	}

	id, err := compute(ctx, rec)
	if err != nil {
		return false, fmt.Errorf("compute result id for %s: %w", rec.ContentHash, err)
	}
	rec.ResultID = id
	if err := c.Put(ctx, rec); err != nil {
		return false, err
	}
	return false, nil
}

func (c *Cache) ready() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateConnected {
		return fmt.Errorf("%w: %s", ErrCacheUnavailable, c.state)
	}
	return nil
}

// storeFailed maps an adapter error to ErrCacheUnavailable. Only a lost
// backend drops the cache to StateDisconnected; a caller's cancellation or a
// failed statement leaves the shared connection in place.
func (c *Cache) storeFailed(op, key string, err error) error {
	switch {
	case errors.Is(err, store.ErrUnreachable) || errors.Is(err, store.ErrNotConnected):
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		c.logger.Error("reference store unreachable, cache disconnected", "op", op, "hash", key, "error", err)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		c.logger.Warn("reference store call abandoned", "op", op, "hash", key, "error", err)
	default:
		c.logger.Error("reference store failed", "op", op, "hash", key, "error", err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrCacheUnavailable, op, key, err)
}
