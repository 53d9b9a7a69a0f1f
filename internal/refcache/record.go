package refcache

import (
	"fmt"

	"github.com/roach88/wikiref/internal/ir"
)

// ReferenceRecord is one extracted reference on its way through the cache.
type ReferenceRecord struct {
	// Payload is the reference as extracted. Only EnsureHash reads it.
	Payload ir.Object `json:"payload,omitempty" yaml:"payload,omitempty"`

	// ContentHash is the cache key, see ir.ReferenceHash.
	ContentHash string `json:"content_hash" yaml:"content_hash"`

	// ResultID is the downstream id recorded for this content, set by the
	// caller before Put and by Lookup on a hit.
	ResultID string `json:"result_id,omitempty" yaml:"result_id,omitempty"`
}

// EnsureHash derives ContentHash from Payload when it is not already set.
func (r *ReferenceRecord) EnsureHash() error {
	if r.ContentHash != "" {
		return nil
	}
	if len(r.Payload) == 0 {
		return fmt.Errorf("%w: no content hash and no payload to derive it from", ErrInvalidRecord)
	}
	hash, err := ir.ReferenceHash(r.Payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	r.ContentHash = hash
	return nil
}

func (r *ReferenceRecord) checkKey() error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if r.ContentHash == "" {
		return fmt.Errorf("%w: content hash is empty", ErrInvalidRecord)
	}
	if !ir.IsHash(r.ContentHash) {
		return fmt.Errorf("%w: content hash %q is not a 64-character hex digest", ErrInvalidRecord, r.ContentHash)
	}
	return nil
}
