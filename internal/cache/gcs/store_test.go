package gcs_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/JakeFAU/gsc-deindexer/internal/cache"
	cachegcs "github.com/JakeFAU/gsc-deindexer/internal/cache/gcs"
	"github.com/JakeFAU/gsc-deindexer/internal/indexstatus"
)

func newTestStore(t *testing.T, handler http.Handler) *cachegcs.Store {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := gcs.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)

	store, err := cachegcs.New(client, cachegcs.Config{Bucket: "test-bucket", Prefix: "/gsc-cache/"})
	require.NoError(t, err)
	return store
}

func TestNewValidation(t *testing.T) {
	_, err := cachegcs.New(nil, cachegcs.Config{Bucket: "b"})
	assert.Error(t, err)

	client, err := gcs.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	defer client.Close() //nolint:errcheck

	_, err = cachegcs.New(client, cachegcs.Config{})
	assert.Error(t, err)
}

func TestObjectName(t *testing.T) {
	store := newTestStore(t, http.NotFoundHandler())
	assert.Equal(t, "gsc-cache/https_example.com_.json", store.ObjectName("https://example.com/"))
}

func TestSaveUploadsJSON(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/upload/storage/v1/b/test-bucket/o")
		assert.Equal(t, "gsc-cache/sc-domain:example.com.json", r.URL.Query().Get("name"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"Submitted and indexed"`)

		fmt.Fprintln(w, `{"name": "gsc-cache/sc-domain:example.com.json", "bucket": "test-bucket"}`)
	})
	store := newTestStore(t, handler)

	err := store.Save(context.Background(), "sc-domain:example.com", cache.Records{
		"https://example.com/": {Status: indexstatus.SubmittedAndIndexed, LastCheckedAt: time.Now().UTC()},
	})
	assert.NoError(t, err)
}

func TestSaveServerError(t *testing.T) {
	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	err := store.Save(context.Background(), "sc-domain:example.com", cache.Records{})
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	checked := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	body, err := cache.Encode(cache.Records{
		"https://present.com/a": {Status: indexstatus.PageWithRedirect, LastCheckedAt: checked},
	})
	require.NoError(t, err)

	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "present.com") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))

	t.Run("missing object", func(t *testing.T) {
		recs, err := store.Load(context.Background(), "sc-domain:missing.com")
		require.NoError(t, err)
		assert.NotNil(t, recs)
		assert.Empty(t, recs)
	})

	t.Run("present object", func(t *testing.T) {
		recs, err := store.Load(context.Background(), "sc-domain:present.com")
		require.NoError(t, err)
		require.Len(t, recs, 1)
		rec := recs["https://present.com/a"]
		assert.Equal(t, indexstatus.PageWithRedirect, rec.Status)
		assert.True(t, checked.Equal(rec.LastCheckedAt))
	})
}
