package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testDim = 4

func newTestChromem(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(ChromemConfig{InMemory: true, VectorSize: testDim}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// unit returns the i-th standard basis vector.
func unit(i int) []float32 {
	v := make([]float32, testDim)
	v[i] = 1
	return v
}

func testRecord(key string, vec []float32, idx int) Record {
	return Record{
		Key:    key,
		Vector: vec,
		Metadata: Metadata{
			SourceText: "## Section " + key,
			Heading:    "## Section " + key,
			Timestamp:  "2024-05-01T12:00:00Z",
			ChunkIndex: idx,
			FullLength: 12 + len(key),
		},
	}
}

func TestChromemStore_PutAndQuery(t *testing.T) {
	ctx := context.Background()
	store := newTestChromem(t)

	require.NoError(t, store.EnsureIndex(ctx, testDim))
	require.NoError(t, store.PutBatch(ctx, []Record{
		testRecord("a", unit(0), 0),
		testRecord("b", unit(1), 1),
		testRecord("c", []float32{0.6, 0.8, 0, 0}, 2),
	}))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	matches, err := store.Query(ctx, NewQueryVector(unit(0)), 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "a", matches[0].Key)
	assert.InDelta(t, 0.0, matches[0].Distance, 1e-5)
	assert.Equal(t, "c", matches[1].Key)
	assert.InDelta(t, 0.4, matches[1].Distance, 1e-5)

	assert.Equal(t, testRecord("a", nil, 0).Metadata, matches[0].Metadata)
	assert.LessOrEqual(t, matches[0].Distance, matches[1].Distance)
}

func TestChromemStore_TopKLargerThanIndex(t *testing.T) {
	ctx := context.Background()
	store := newTestChromem(t)

	require.NoError(t, store.PutBatch(ctx, []Record{testRecord("only", unit(2), 0)}))

	matches, err := store.Query(ctx, NewQueryVector(unit(2)), 3)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "only", matches[0].Key)
}

func TestChromemStore_EmptyIndex(t *testing.T) {
	ctx := context.Background()
	store := newTestChromem(t)

	matches, err := store.Query(ctx, NewQueryVector(unit(0)), 5)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestChromemStore_Validation(t *testing.T) {
	ctx := context.Background()
	store := newTestChromem(t)

	err := store.PutBatch(ctx, nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)

	err = store.PutBatch(ctx, []Record{testRecord("short", []float32{1, 0}, 0)})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = store.Query(ctx, NewQueryVector(unit(0)), 0)
	assert.ErrorIs(t, err, ErrInvalidTopK)

	_, err = store.Query(ctx, NewQueryVector([]float32{1}), 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	err = store.EnsureIndex(ctx, 1024)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestChromemStore_Drop(t *testing.T) {
	ctx := context.Background()
	store := newTestChromem(t)

	require.NoError(t, store.PutBatch(ctx, []Record{testRecord("a", unit(0), 0)}))
	require.NoError(t, store.Drop(ctx))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestChromemStore_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := ChromemConfig{Path: dir, VectorSize: testDim}

	store, err := NewChromemStore(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.PutBatch(ctx, []Record{testRecord("kept", unit(3), 0)}))
	require.NoError(t, store.Close())

	reopened, err := NewChromemStore(cfg, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	matches, err := reopened.Query(ctx, NewQueryVector(unit(3)), 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "kept", matches[0].Key)
}

func TestChromemConfig_InvalidCollection(t *testing.T) {
	_, err := NewChromemStore(ChromemConfig{InMemory: true, Collection: "../etc"}, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidCollectionName)
}
