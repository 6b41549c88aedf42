package embedding

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schemalink/schemalink/internal/logging"
)

const (
	cacheDirPerm  = 0755
	cacheFilePerm = 0644
)

// Cache persists embedding records on disk so unchanged schemas do not pay
// for regeneration.
type Cache struct {
	path string
}

// NewCache creates a cache rooted at the given file path.
func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// Path returns the cache file location.
func (c *Cache) Path() string {
	return c.path
}

// Load reads cached records. A missing or unreadable cache is not an error;
// the second return value reports whether usable records were found.
func (c *Cache) Load() ([]Record, bool) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warnf("failed to read embedding cache %s: %v", c.path, err)
		}

		return nil, false
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		logging.Warnf("embedding cache %s is corrupt, ignoring: %v", c.path, err)
		return nil, false
	}

	if len(records) == 0 {
		return nil, false
	}

	return records, true
}

// Save writes records to the cache file. The write goes through a temp file
// and rename so a crash never leaves a truncated cache behind.
func (c *Cache) Save(records []Record) error {
	if err := os.MkdirAll(filepath.Dir(c.path), cacheDirPerm); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal embedding records: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, cacheFilePerm); err != nil {
		return fmt.Errorf("failed to write embedding cache: %w", err)
	}

	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("failed to finalize embedding cache: %w", err)
	}

	return nil
}

// Clear removes the cache file if it exists.
func (c *Cache) Clear() error {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove embedding cache: %w", err)
	}

	return nil
}
