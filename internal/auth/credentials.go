// Package auth loads service account credentials for the Search Console and
// Indexing APIs.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/indexing/v3"
	"google.golang.org/api/searchconsole/v1"
)

var (
	// ErrNoCredentials is returned when no credential source is configured.
	ErrNoCredentials = errors.New("no service account credentials found")
	// ErrInvalidCredentials marks a key file that cannot be used or a token
	// request the endpoint rejected.
	ErrInvalidCredentials = errors.New("invalid service account credentials")
)

// DefaultFileName is looked up in the working directory and in ~/.gis.
const DefaultFileName = "service_account.json"

// Scopes requested for every token.
var Scopes = []string{
	searchconsole.WebmastersReadonlyScope,
	indexing.IndexingScope,
}

// Config lists the credential sources. They are tried in order: explicit key
// file, client email plus private key, then SearchPaths.
type Config struct {
	ServiceAccountFile string
	ClientEmail        string
	PrivateKey         string
	// SearchPaths defaults to DefaultSearchPaths when nil.
	SearchPaths []string
	// TokenURL overrides the token endpoint for email/key credentials.
	TokenURL string
}

// DefaultSearchPaths returns ./service_account.json and ~/.gis/service_account.json.
func DefaultSearchPaths() []string {
	paths := []string{DefaultFileName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".gis", DefaultFileName))
	}
	return paths
}

// JWTConfig resolves the first available credential source.
func JWTConfig(cfg Config) (*jwt.Config, error) {
	if cfg.ServiceAccountFile != "" {
		return fromFile(cfg.ServiceAccountFile)
	}
	if cfg.ClientEmail != "" && cfg.PrivateKey != "" {
		tokenURL := cfg.TokenURL
		if tokenURL == "" {
			tokenURL = google.JWTTokenURL
		}
		return &jwt.Config{
			Email: cfg.ClientEmail,
			// Keys pasted into env files usually carry literal \n sequences.
			PrivateKey: []byte(strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n")),
			Scopes:     Scopes,
			TokenURL:   tokenURL,
		}, nil
	}

	paths := cfg.SearchPaths
	if paths == nil {
		paths = DefaultSearchPaths()
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return fromFile(p)
		}
	}
	return nil, ErrNoCredentials
}

func fromFile(path string) (*jwt.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read service account file: %w", ErrInvalidCredentials, err)
	}
	conf, err := google.JWTConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: parse service account file %s: %w", ErrInvalidCredentials, path, err)
	}
	return conf, nil
}

// TokenSource returns a reusable token source and verifies it by fetching a
// first access token. Only a rejection by the token endpoint or an unusable
// key is reported as ErrInvalidCredentials; transport errors pass through.
func TokenSource(ctx context.Context, cfg Config) (oauth2.TokenSource, error) {
	conf, err := JWTConfig(cfg)
	if err != nil {
		return nil, err
	}
	ts := conf.TokenSource(ctx)
	if _, err := ts.Token(); err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) || isKeyError(err) {
			return nil, fmt.Errorf("%w: fetch access token: %w", ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("fetch access token: %w", err)
	}
	return ts, nil
}

// isKeyError reports whether the JWT could not be signed with the private key.
func isKeyError(err error) bool {
	return strings.Contains(err.Error(), "private key")
}

// HTTPClient returns an http.Client that authenticates every request.
func HTTPClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	return oauth2.NewClient(ctx, ts)
}
