package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wikiref/internal/ir"
	"github.com/roach88/wikiref/internal/refcache"
)

// CacheEntry is one hash and what the cache holds for it.
type CacheEntry struct {
	Hash     string `json:"hash" yaml:"hash"`
	ResultID string `json:"result_id,omitempty" yaml:"result_id,omitempty"`
	Found    bool   `json:"found" yaml:"found"`
}

func (e CacheEntry) String() string {
	if !e.Found {
		return e.Hash + " miss"
	}
	return e.Hash + " " + e.ResultID
}

// CheckResult is the output of cache check.
type CheckResult struct {
	Entries []CacheEntry `json:"entries" yaml:"entries"`
	Hits    int          `json:"hits" yaml:"hits"`
	Misses  int          `json:"misses" yaml:"misses"`
}

func (r CheckResult) String() string {
	var b strings.Builder
	for _, e := range r.Entries {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%d hit(s), %d miss(es)", r.Hits, r.Misses)
	return b.String()
}

// NewCacheCommand creates the cache command group.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Read and write the reference cache",
		Long: `Read and write the reference cache configured under store.*.

A miss is reported as found=false with exit code 0. A store that cannot be
reached is an error (E301), never a miss.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <hash>",
		Short: "Look up the result id cached for a content hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheGet(rootOpts, args[0], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "put <hash> <result-id>",
		Short: "Record the result id for a content hash",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCachePut(rootOpts, args[0], args[1], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "check [file|-]",
		Short: "Hash references and report which are cached",
		Long: `Hash each reference in a JSON object or array (see "wikiref hash") and
look the hash up in the cache.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := "-"
			if len(args) == 1 {
				source = args[0]
			}
			return runCacheCheck(rootOpts, source, cmd)
		},
	})

	return cmd
}

func runCacheGet(opts *RootOptions, hash string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cache, err := opts.openCache(cmd.Context())
	if err != nil {
		return fail(formatter, err)
	}
	defer cache.Close()

	rec := &refcache.ReferenceRecord{ContentHash: hash}
	id, found, err := cache.Lookup(cmd.Context(), rec)
	if err != nil {
		return fail(formatter, err)
	}
	return formatter.Success(CacheEntry{Hash: hash, ResultID: id, Found: found})
}

func runCachePut(opts *RootOptions, hash, resultID string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cache, err := opts.openCache(cmd.Context())
	if err != nil {
		return fail(formatter, err)
	}
	defer cache.Close()

	rec := &refcache.ReferenceRecord{ContentHash: hash, ResultID: resultID}
	if err := cache.Put(cmd.Context(), rec); err != nil {
		return fail(formatter, err)
	}
	formatter.VerboseLog("Cached %s -> %s", hash, resultID)
	return formatter.Success(CacheEntry{Hash: hash, ResultID: resultID, Found: true})
}

func runCacheCheck(opts *RootOptions, source string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	payloads, err := readReferences(cmd, source)
	if err != nil {
		return failInput(formatter, err)
	}

	cache, err := opts.openCache(cmd.Context())
	if err != nil {
		return fail(formatter, err)
	}
	defer cache.Close()

	result := CheckResult{Entries: make([]CacheEntry, 0, len(payloads))}
	for i, p := range payloads {
		h, err := ir.ReferenceHash(p)
		if err != nil {
			return failWith(formatter, ErrCodeInvalidJSON, ExitCommandError, fmt.Errorf("reference %d: %w", i, err))
		}
		id, found, err := cache.Lookup(cmd.Context(), &refcache.ReferenceRecord{ContentHash: h})
		if err != nil {
			return fail(formatter, err)
		}
		if found {
			result.Hits++
		} else {
			result.Misses++
		}
		result.Entries = append(result.Entries, CacheEntry{Hash: h, ResultID: id, Found: found})
	}
	return formatter.Success(result)
}
