// Package store provides the key/value adapters the reference cache writes
// through.
//
// Every adapter satisfies the same small contract:
//   - Connect establishes the connection once; there is no automatic reconnect
//   - Get returns (value, true, nil) on a hit and (nil, false, nil) on a miss
//   - Set overwrites any previous value for the key (last writer wins)
//   - Get and Set are synchronous and atomic per key; no retries, no batching
//
// Failures are reported with two sentinels so callers can tell a broken
// store from a missing key:
//   - ErrNotConnected: Connect has not succeeded (or Close was called)
//   - ErrUnreachable: the backend failed while connected
//
// # Adapters
//
//   - SQLite: single-file store (WAL mode, busy_timeout=5000, one writer)
//   - Redis: RESP2 client, works against Redis and SSDB
//   - Memory: process-local map for tests and dry runs
package store
