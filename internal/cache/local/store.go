// Package local persists status records as JSON files on the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/gsc-deindexer/internal/cache"
)

// Config captures the parameters for the filesystem store.
type Config struct {
	// Dir is the directory holding one <site-key>.json file per site.
	Dir string
}

// Store reads and writes cache files under a directory.
type Store struct {
	dir string
}

// New creates a filesystem-backed Store. The directory is created lazily on Save.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	info, err := os.Stat(cfg.Dir)
	if err == nil && !info.IsDir() {
		return nil, fmt.Errorf("cache directory path is not a directory")
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat cache directory: %w", err)
	}
	return &Store{dir: cfg.Dir}, nil
}

// Path returns the file used for site.
func (s *Store) Path(site string) string {
	return filepath.Join(s.dir, cache.SiteKey(site)+".json")
}

// Load reads the cache file for site. A missing file yields an empty map.
func (s *Store) Load(_ context.Context, site string) (cache.Records, error) {
	data, err := os.ReadFile(s.Path(site))
	if errors.Is(err, os.ErrNotExist) {
		return cache.Records{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	records, err := cache.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("cache file %s: %w", s.Path(site), err)
	}
	return records, nil
}

// Save overwrites the cache file for site.
func (s *Store) Save(_ context.Context, site string, records cache.Records) error {
	data, err := cache.Encode(records)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	// write-then-rename
	path := s.Path(site)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// Close implements cache.Store.
func (s *Store) Close() error { return nil }
