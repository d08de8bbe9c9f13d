// Package gcs persists status records as JSON objects in Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/gsc-deindexer/internal/cache"
)

// Config captures the parameters required to reach the bucket.
type Config struct {
	Bucket string
	Prefix string
}

// Store keeps one object per site under Prefix.
type Store struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates a GCS-backed Store from an existing client.
func New(client *storage.Client, cfg Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// ObjectName returns the object key used for site.
func (s *Store) ObjectName(site string) string {
	name := cache.SiteKey(site) + ".json"
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Load downloads the object for site. A missing object yields an empty map.
func (s *Store) Load(ctx context.Context, site string) (cache.Records, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.ObjectName(site)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return cache.Records{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}
	defer r.Close() //nolint:errcheck // read-only

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return cache.Decode(data)
}

// Save uploads the records, replacing any previous object.
func (s *Store) Save(ctx context.Context, site string, records cache.Records) error {
	data, err := cache.Encode(records)
	if err != nil {
		return err
	}
	writer := s.client.Bucket(s.bucket).Object(s.ObjectName(site)).NewWriter(ctx)
	writer.ContentType = "application/json"
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("write object: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

// Close releases the storage client.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close storage client: %w", err)
	}
	return nil
}
