package refcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/wikiref/internal/ir"
	"github.com/roach88/wikiref/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	hashA = ir.MustReferenceHash(ir.Object{"title": ir.String("Easter Island"), "url": ir.String("https://example.org/easter")})
	hashB = ir.MustReferenceHash(ir.Object{"title": ir.String("Rapa Nui")})
)

func connectedCache(t *testing.T) (*Cache, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	c := New(mem)
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c, mem
}

func TestCache_StartsDisconnected(t *testing.T) {
	c := New(store.NewMemory())
	assert.Equal(t, StateDisconnected, c.State())
	assert.Equal(t, "disconnected", c.State().String())

	_, _, err := c.Lookup(context.Background(), &ReferenceRecord{ContentHash: hashA})
	assert.ErrorIs(t, err, ErrCacheUnavailable)

	err = c.Put(context.Background(), &ReferenceRecord{ContentHash: hashA, ResultID: "Q1"})
	assert.ErrorIs(t, err, ErrCacheUnavailable)
}

func TestCache_PutThenLookup(t *testing.T) {
	c, _ := connectedCache(t)
	ctx := context.Background()
	assert.Equal(t, StateConnected, c.State())

	require.NoError(t, c.Put(ctx, &ReferenceRecord{ContentHash: hashA, ResultID: "Q42"}))

	rec := &ReferenceRecord{ContentHash: hashA}
	got, found, err := c.Lookup(ctx, rec)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Q42", got)
	assert.Equal(t, "Q42", rec.ResultID)
}

func TestCache_MissIsNotAnError(t *testing.T) {
	c, _ := connectedCache(t)

	got, found, err := c.Lookup(context.Background(), &ReferenceRecord{ContentHash: hashB})
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, got)
}

func TestCache_LastWriterWins(t *testing.T) {
	c, _ := connectedCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, &ReferenceRecord{ContentHash: hashA, ResultID: "Q1"}))
	require.NoError(t, c.Put(ctx, &ReferenceRecord{ContentHash: hashA, ResultID: "Q2"}))

	got, found, err := c.Lookup(ctx, &ReferenceRecord{ContentHash: hashA})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Q2", got)
}

func TestCache_NonASCIIResultID(t *testing.T) {
	c, _ := connectedCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, &ReferenceRecord{ContentHash: hashA, ResultID: "référence-一"}))
	got, _, err := c.Lookup(ctx, &ReferenceRecord{ContentHash: hashA})
	require.NoError(t, err)
	assert.Equal(t, "référence-一", got)
}

func TestCache_InvalidRecords(t *testing.T) {
	c, _ := connectedCache(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"put without hash", func() error { return c.Put(ctx, &ReferenceRecord{ResultID: "Q1"}) }},
		{"put without result id", func() error { return c.Put(ctx, &ReferenceRecord{ContentHash: hashA}) }},
		{"put with malformed hash", func() error { return c.Put(ctx, &ReferenceRecord{ContentHash: "abc", ResultID: "Q1"}) }},
		{"put with invalid utf8 id", func() error { return c.Put(ctx, &ReferenceRecord{ContentHash: hashA, ResultID: "\xff"}) }},
		{"put nil", func() error { return c.Put(ctx, nil) }},
		{"lookup without hash", func() error {
			_, _, err := c.Lookup(ctx, &ReferenceRecord{})
			return err
		}},
		{"lookup nil", func() error {
			_, _, err := c.Lookup(ctx, nil)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRecord)
			assert.NotErrorIs(t, err, ErrCacheUnavailable)
		})
	}
}

func TestCache_InvalidRecordBeforeAvailability(t *testing.T) {
	c := New(store.NewMemory())
	err := c.Put(context.Background(), &ReferenceRecord{ContentHash: hashA})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestCache_CorruptEntry(t *testing.T) {
	c, mem := connectedCache(t)
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, hashA, "\xff\xfe"))

	_, found, err := c.Lookup(ctx, &ReferenceRecord{ContentHash: hashA})
	assert.ErrorIs(t, err, ErrCorruptEntry)
	assert.False(t, found)
	assert.Equal(t, StateConnected, c.State())
}

func TestCache_UnreachableStoreDisconnects(t *testing.T) {
	var logs bytes.Buffer
	mem := store.NewMemory()
	c := New(mem, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.Put(ctx, &ReferenceRecord{ContentHash: hashA, ResultID: "Q1"}))

	mem.Drop()

	_, found, err := c.Lookup(ctx, &ReferenceRecord{ContentHash: hashA})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCacheUnavailable)
	assert.ErrorIs(t, err, store.ErrUnreachable)
	assert.False(t, found)
	assert.Equal(t, StateDisconnected, c.State())
	assert.Contains(t, logs.String(), "cache disconnected")

	// No automatic reconnect.
	err = c.Put(ctx, &ReferenceRecord{ContentHash: hashB, ResultID: "Q2"})
	assert.ErrorIs(t, err, ErrCacheUnavailable)
	assert.Equal(t, 1, mem.Len())

	require.NoError(t, c.Connect(ctx))
	got, found, err := c.Lookup(ctx, &ReferenceRecord{ContentHash: hashA})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Q1", got)
}

func TestCache_CloseDisconnects(t *testing.T) {
	c, _ := connectedCache(t)
	require.NoError(t, c.Close())
	assert.Equal(t, StateDisconnected, c.State())

	_, _, err := c.Lookup(context.Background(), &ReferenceRecord{ContentHash: hashA})
	assert.ErrorIs(t, err, ErrCacheUnavailable)
}

type failingAdapter struct {
	connectErr error
	opErr      error
}

func (f *failingAdapter) Connect(context.Context) error { return f.connectErr }
func (f *failingAdapter) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, f.opErr
}
func (f *failingAdapter) Set(context.Context, string, string) error { return f.opErr }
func (f *failingAdapter) Close() error                               { return nil }

func TestCache_ConnectFailure(t *testing.T) {
	c := New(&failingAdapter{connectErr: errors.New("connection refused")})
	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrCacheUnavailable)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestCache_StoreErrorIsUnavailableNotMiss(t *testing.T) {
	c := New(&failingAdapter{opErr: errors.New("disk I/O error")})
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))

	_, found, err := c.Lookup(ctx, &ReferenceRecord{ContentHash: hashA})
	assert.ErrorIs(t, err, ErrCacheUnavailable)
	assert.False(t, found)
	// A failing statement is not a lost connection.
	assert.Equal(t, StateConnected, c.State())
}

func TestCache_Register(t *testing.T) {
	c, _ := connectedCache(t)
	ctx := context.Background()

	calls := 0
	compute := func(_ context.Context, rec *ReferenceRecord) (string, error) {
		calls++
		return fmt.Sprintf("Q%d", calls), nil
	}
	payload := ir.Object{"title": ir.String("Easter Island"), "url": ir.String("https://example.org/easter")}

	first := &ReferenceRecord{Payload: payload}
	hit, err := c.Register(ctx, first, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, hashA, first.ContentHash)
	assert.Equal(t, "Q1", first.ResultID)

	// Same content in a different key order hashes the same.
	second := &ReferenceRecord{Payload: ir.Object{"url": ir.String("https://example.org/easter"), "title": ir.String("Easter Island")}}
	hit, err = c.Register(ctx, second, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Q1", second.ResultID)
	assert.Equal(t, 1, calls)
}

func TestCache_RegisterErrors(t *testing.T) {
	c, mem := connectedCache(t)
	ctx := context.Background()

	_, err := c.Register(ctx, &ReferenceRecord{}, nil)
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = c.Register(ctx, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidRecord)

	var hit bool
	require.NotPanics(t, func() {
		hit, err = c.Register(ctx, &ReferenceRecord{ContentHash: hashB}, nil)
	})
	assert.False(t, hit)
	assert.ErrorIs(t, err, ErrInvalidRecord)
	assert.Equal(t, 0, mem.Len())

	boom := errors.New("downstream failed")
	_, err = c.Register(ctx, &ReferenceRecord{ContentHash: hashB}, func(context.Context, *ReferenceRecord) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, mem.Len())

	_, err = c.Register(ctx, &ReferenceRecord{ContentHash: hashB}, func(context.Context, *ReferenceRecord) (string, error) {
		return "", nil
	})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestCache_ConcurrentPutsSameKey(t *testing.T) {
	c, _ := connectedCache(t)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, c.Put(ctx, &ReferenceRecord{ContentHash: hashA, ResultID: fmt.Sprintf("Q%d", i)}))
		}(i)
	}
	wg.Wait()

	got, found, err := c.Lookup(ctx, &ReferenceRecord{ContentHash: hashA})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Regexp(t, `^Q\d+$`, got)
}

func TestCache_SQLiteBackedSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	c := New(store.NewSQLite(path))
	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.Put(ctx, &ReferenceRecord{ContentHash: hashA, ResultID: "Q7"}))
	require.NoError(t, c.Close())

	reopened := New(store.NewSQLite(path))
	require.NoError(t, reopened.Connect(ctx))
	defer reopened.Close()

	got, found, err := reopened.Lookup(ctx, &ReferenceRecord{ContentHash: hashA})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Q7", got)
}

func TestCache_SQLiteCanceledCallKeepsConnection(t *testing.T) {
	var logs bytes.Buffer
	ctx := context.Background()
	c := New(store.NewSQLite(filepath.Join(t.TempDir(), "cache.db")),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, c.Connect(ctx))
	defer c.Close()
	require.NoError(t, c.Put(ctx, &ReferenceRecord{ContentHash: hashA, ResultID: "Q7"}))

	canceled, cancel := context.WithCancel(ctx)
	cancel()

	_, found, err := c.Lookup(canceled, &ReferenceRecord{ContentHash: hashA})
	assert.False(t, found)
	assert.ErrorIs(t, err, ErrCacheUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, store.ErrUnreachable)

	err = c.Put(canceled, &ReferenceRecord{ContentHash: hashB, ResultID: "Q8"})
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, StateConnected, c.State())
	assert.NotContains(t, logs.String(), "cache disconnected")

	got, found, err := c.Lookup(ctx, &ReferenceRecord{ContentHash: hashA})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Q7", got)
}
