package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotConnected indicates an operation on an adapter that has not been
	// connected, or has been closed.
	ErrNotConnected = errors.New("store: not connected")
	// ErrUnreachable indicates the connection to the backend was lost.
	// Errors from a single statement or reply, and the caller's own
	// cancellation, do not match it.
	ErrUnreachable = errors.New("store: unreachable")
)

// Adapter is the minimal get/set contract the reference cache needs from a
// key/value store.
type Adapter interface {
	// Connect establishes the connection. Calling it on a connected adapter
	// is a no-op.
	Connect(ctx context.Context) error
	// Get returns the stored bytes for key. found is false on a miss.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Close releases the connection. The adapter may be connected again.
	Close() error
}

// Driver names accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Options selects and configures an adapter.
type Options struct {
	Driver string

	// Path is the SQLite database file.
	Path string

	// Addr, Password and DB address a Redis or SSDB server.
	Addr     string
	Password string
	DB       int

	// DialTimeout bounds connection setup and each round-trip for network
	// adapters. Zero uses the driver default.
	DialTimeout time.Duration
}

// Open returns an unconnected adapter for the configured driver.
func Open(opts Options) (Adapter, error) {
	switch strings.ToLower(opts.Driver) {
	case DriverSQLite:
		if opts.Path == "" {
			return nil, fmt.Errorf("store: sqlite driver requires a path")
		}
		return NewSQLite(opts.Path), nil
	case DriverRedis:
		if opts.Addr == "" {
			return nil, fmt.Errorf("store: redis driver requires an address")
		}
		return NewRedis(opts.Addr, opts.Password, opts.DB, opts.DialTimeout), nil
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("store: unknown driver %q", opts.Driver)
	}
}

// callFailed classifies an error from one Get or Set. The caller's own
// cancellation or deadline is returned as is; lost decides whether the
// driver error means the connection is gone.
func callFailed(ctx context.Context, op string, err error, lost func(error) bool) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if lost(err) {
		return unreachable(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// unreachable wraps a backend failure so it matches ErrUnreachable while
// keeping the driver error in the chain.
func unreachable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnreachable, err)
}
