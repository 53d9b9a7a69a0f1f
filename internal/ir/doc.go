// Package ir provides the constrained value model for reference payloads and
// the content hasher that turns a payload into a deduplication key.
//
// ir imports nothing internal; identity, refcache and cli build on it.
//
// Key constraints:
//   - No float values: use int64 for numbers
//   - No null values: null object members are dropped on decode
//   - Hashes are SHA-256 over RFC 8785 canonical JSON with domain separation,
//     64 lower-case hex characters
package ir
