package vectorstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemalink/schemalink/internal/embedding"
	apperrors "github.com/schemalink/schemalink/internal/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "vector.db"), "schema_embeddings")
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Initialize(context.Background(), false))

	return store
}

func testRecords() []embedding.Record {
	return []embedding.Record{
		{
			ID:          "table_orders",
			ElementType: embedding.ElementTypeTable,
			TableName:   "orders",
			Description: "Customer orders",
			Metadata:    map[string]any{"table_name": "orders"},
			Embedding:   []float32{1, 0, 0},
		},
		{
			ID:          "table_customers",
			ElementType: embedding.ElementTypeTable,
			TableName:   "customers",
			Description: "Registered customers",
			Metadata:    map[string]any{"table_name": "customers"},
			Embedding:   []float32{0, 1, 0},
		},
		{
			ID:          "column_orders_total",
			ElementType: embedding.ElementTypeColumn,
			TableName:   "orders",
			ColumnName:  "total",
			Description: "Order total",
			Metadata:    map[string]any{"table_name": "orders", "column_name": "total"},
			Embedding:   []float32{0.8, 0.6, 0},
		},
	}
}

func TestNewRejectsBadCollectionName(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "vector.db"), "bad name; drop table")
	assert.Error(t, err)
}

func TestOperationsRequireInitialize(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "vector.db"), "schema_embeddings")
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()

	assert.ErrorIs(t, store.Store(ctx, nil), ErrNotInitialized)

	_, err = store.Search(ctx, []float32{1}, SearchOptions{TopK: 1})
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = store.Stats(ctx)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeVectorStore))
}

func TestStoreAndSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, testRecords()))

	results, err := store.Search(ctx, []float32{1, 0, 0}, SearchOptions{
		TopK:        5,
		ElementType: embedding.ElementTypeTable,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "table_orders", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "table_customers", results[1].ID)
	assert.InDelta(t, 0.5, results[1].Score, 1e-6)
	assert.Equal(t, "orders", results[0].Metadata["table_name"])
}

func TestSearchThresholdFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, testRecords()))

	results, err := store.Search(ctx, []float32{1, 0, 0}, SearchOptions{
		TopK:        5,
		Threshold:   0.9,
		ElementType: embedding.ElementTypeTable,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "table_orders", results[0].ID)
}

func TestSearchElementTypeRestriction(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, testRecords()))

	results, err := store.Search(ctx, []float32{1, 0, 0}, SearchOptions{
		TopK:        5,
		ElementType: embedding.ElementTypeColumn,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "column_orders_total", results[0].ID)
	assert.Equal(t, "total", results[0].ColumnName)
}

func TestSearchExcludesZeroVectorPlaceholders(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	records := append(testRecords(), embedding.Record{
		ID:          "table_audit_log",
		ElementType: embedding.ElementTypeTable,
		TableName:   "audit_log",
		Description: "Change history",
		Metadata:    map[string]any{"table_name": "audit_log"},
		Embedding:   embedding.ZeroVector(3),
	})
	require.NoError(t, store.Store(ctx, records))

	// A zero placeholder sits at distance 1 from any unit query, which the
	// distance conversion alone would score 0.5. It must score 0 instead.
	results, err := store.Search(ctx, []float32{1, 0, 0}, SearchOptions{
		TopK:        5,
		Threshold:   0.5,
		ElementType: embedding.ElementTypeTable,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, result := range results {
		assert.NotEqual(t, "table_audit_log", result.ID)
	}
}

func TestStoreUpsertReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, testRecords()))

	updated := []embedding.Record{{
		ID:          "table_orders",
		ElementType: embedding.ElementTypeTable,
		TableName:   "orders",
		Description: "All customer orders",
		Metadata:    map[string]any{"table_name": "orders"},
		Embedding:   []float32{0, 0, 1},
	}}
	require.NoError(t, store.Store(ctx, updated))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Tables)

	results, err := store.Search(ctx, []float32{0, 0, 1}, SearchOptions{
		TopK:        1,
		ElementType: embedding.ElementTypeTable,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "All customer orders", results[0].Description)
}

func TestDeleteByTable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, testRecords()))
	require.NoError(t, store.DeleteByTable(ctx, "orders"))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Tables: 1, Columns: 0, Total: 1}, stats)
}

func TestListTableNames(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, testRecords()))

	names, err := store.ListTableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, names)
}

func TestInitializeReset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, testRecords()))
	require.NoError(t, store.Initialize(ctx, true))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
}
