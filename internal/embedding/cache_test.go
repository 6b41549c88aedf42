package embedding

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRoundTrip(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "nested", "cache.json"))

	records := []Record{
		{
			ID:          "table_orders",
			ElementType: ElementTypeTable,
			TableName:   "orders",
			Description: "Customer orders",
			Metadata:    map[string]any{"table_name": "orders"},
			Embedding:   []float32{0.1, 0.2, 0.3},
		},
	}

	require.NoError(t, cache.Save(records))

	loaded, ok := cache.Load()
	require.True(t, ok)
	require.Len(t, loaded, 1)
	assert.Equal(t, "table_orders", loaded[0].ID)
	assert.InDelta(t, 0.2, float64(loaded[0].Embedding[1]), 1e-6)
}

func TestCacheLoadMissing(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "absent.json"))

	records, ok := cache.Load()
	assert.False(t, ok)
	assert.Nil(t, records)
}

func TestCacheLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{{{"), 0600))

	records, ok := NewCache(path).Load()
	assert.False(t, ok)
	assert.Nil(t, records)
}

func TestCacheLoadEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0600))

	_, ok := NewCache(path).Load()
	assert.False(t, ok)
}

func TestCacheClear(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "cache.json"))

	require.NoError(t, cache.Save([]Record{{ID: "table_orders"}}))
	require.NoError(t, cache.Clear())

	_, ok := cache.Load()
	assert.False(t, ok)

	// Clearing an already-missing cache is fine.
	require.NoError(t, cache.Clear())
}
