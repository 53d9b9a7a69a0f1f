// Package refcache deduplicates references across jobs.
//
// A reference's content hash (see ir.ReferenceHash) is the key; the value
// is the result id assigned the first time that content was seen. Lookup
// and Put are synchronous and write-through to a store.Adapter.
//
// A miss and a failure are different answers. A miss returns found=false
// with a nil error. A disconnected or failing store returns
// ErrCacheUnavailable, and callers must not treat that as a miss.
package refcache
