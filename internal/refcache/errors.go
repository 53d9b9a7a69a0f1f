package refcache

import "errors"

var (
	// ErrInvalidRecord indicates a record missing a field the operation
	// requires. It is a caller error and never a cache miss.
	ErrInvalidRecord = errors.New("refcache: invalid record")

	// ErrCacheUnavailable indicates the cache is disconnected or its store
	// failed. Callers must not treat it as a miss.
	ErrCacheUnavailable = errors.New("refcache: cache unavailable")

	// ErrCorruptEntry indicates a stored value that is not a valid result id.
	ErrCorruptEntry = errors.New("refcache: corrupt entry")
)
