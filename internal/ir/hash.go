package ir

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Domain prefixes for content hashes.
// The version suffix allows a later algorithm migration without collisions.
const (
	DomainReference = "wikiref/reference/v1"
)

// HashLength is the length of every content hash in hex characters.
const HashLength = sha256.Size * 2

// hashWithDomain computes SHA256(domain + 0x00 + data) as lower-case hex.
// The null byte keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ReferenceHash computes the deduplication key for a reference payload.
//
// The payload is serialized with MarshalCanonical, so key order, Unicode
// normalization form and HTML-significant characters do not change the
// result. Two references with the same identifying content always share a
// hash. An empty payload is rejected: it carries no identity and would make
// every empty extraction collide.
func ReferenceHash(payload Object) (string, error) {
	if len(payload) == 0 {
		return "", fmt.Errorf("ReferenceHash: empty payload")
	}
	canonical, err := MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("ReferenceHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainReference, canonical), nil
}

// TextHash hashes a reference known only by its raw wikitext.
// Equivalent to ReferenceHash(Object{"text": text}).
func TextHash(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("TextHash: empty text")
	}
	return ReferenceHash(Object{"text": String(text)})
}

// MustReferenceHash is like ReferenceHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustReferenceHash(payload Object) string {
	h, err := ReferenceHash(payload)
	if err != nil {
		panic(err)
	}
	return h
}

// DOIShortID returns an 8 character id for a DOI: the first 8 hex digits of
// MD5 over the upper-cased DOI. DOIs are case-insensitive, so "10.1000/abc"
// and "10.1000/ABC" share an id. This is a display id, not a cache key.
func DOIShortID(doi string) (string, error) {
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return "", fmt.Errorf("DOIShortID: empty doi")
	}
	sum := md5.Sum([]byte(strings.ToUpper(doi)))
	return hex.EncodeToString(sum[:])[:8], nil
}

// IsHash reports whether s has the shape of a content hash produced by
// this package.
func IsHash(s string) bool {
	if len(s) != HashLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
