package traffic

import (
	"encoding/json"
	"os"
	"path/filepath"

	"overlay/internal/errors"
)

// ErrCacheMiss is returned by Cache.Load when no cached download exists.
var ErrCacheMiss = errors.New("traffic cache miss")

// Cache stores the raw feature download on disk so repeated runs skip the
// network entirely. The location is explicit configuration, and the file
// format matches the service's own JSON, so a manually downloaded dataset
// placed at Path() works as a fallback when the API is unreachable.
type Cache struct {
	dir  string
	file string
}

// NewCache creates a cache rooted at dir, storing features in file.
func NewCache(dir, file string) *Cache {
	return &Cache{dir: dir, file: file}
}

// Path returns the location of the cache file.
func (c *Cache) Path() string {
	return filepath.Join(c.dir, c.file)
}

// Load returns the cached features, or ErrCacheMiss when the cache file
// does not exist.
func (c *Cache) Load() ([]Feature, error) {
	raw, err := os.ReadFile(c.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}

		return nil, errors.Wrapf(err, "read traffic cache %s", c.Path())
	}

	var features []Feature
	if err := json.Unmarshal(raw, &features); err != nil {
		return nil, errors.Wrapf(err, "decode traffic cache %s", c.Path())
	}

	return features, nil
}

// Store writes features to the cache file, creating the directory as needed.
func (c *Cache) Store(features []Feature) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return errors.Wrapf(err, "create traffic cache dir %s", c.dir)
	}

	raw, err := json.Marshal(features)
	if err != nil {
		return errors.Wrap(err, "encode traffic cache")
	}

	if err := os.WriteFile(c.Path(), raw, 0o644); err != nil {
		return errors.Wrapf(err, "write traffic cache %s", c.Path())
	}

	return nil
}
