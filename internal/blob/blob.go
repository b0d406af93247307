// Package blob stores uploaded customer documents in an object store.
package blob

import (
	"context"
	"strings"
)

// Store is an object store addressed by bucket and object path.
type Store interface {
	// Upload writes data under bucket/path and returns the stored path.
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error)
	// Remove deletes the given paths. Paths that do not exist are ignored.
	Remove(ctx context.Context, bucket string, paths []string) error
	Close() error
}

// Type selects an object-store backend.
type Type string

const (
	// FSStore keeps objects under a local directory.
	FSStore Type = "fs"
	// GCSStore uses Google Cloud Storage.
	GCSStore Type = "gcs"
	// SupabaseStore uses the Supabase Storage REST API.
	SupabaseStore Type = "supabase"
)

// Config holds configuration for object-store creation.
type Config struct {
	Type Type

	// fs
	Root string

	// gcs
	CredentialsFile string
	Endpoint        string

	// supabase
	URL        string
	ServiceKey string
}

// New creates an object store based on configuration.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch Type(strings.ToLower(string(cfg.Type))) {
	case FSStore, "":
		return NewFS(cfg.Root)
	case GCSStore:
		return NewGCS(ctx, cfg.CredentialsFile, cfg.Endpoint)
	case SupabaseStore:
		return NewSupabase(cfg.URL, cfg.ServiceKey), nil
	default:
		return nil, &UnsupportedBackendError{Type: string(cfg.Type)}
	}
}

// UnsupportedBackendError is returned when an unknown backend is requested.
type UnsupportedBackendError struct {
	Type string
}

func (e *UnsupportedBackendError) Error() string {
	return "unsupported storage backend: " + e.Type
}
