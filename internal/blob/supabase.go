package blob

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
)

// Supabase stores objects in Supabase Storage.
//
// storage-go calls take no context; ctx is checked before each call.
type Supabase struct {
	client *storage_go.Client
}

// NewSupabase creates a client for the project at baseURL.
func NewSupabase(baseURL, serviceKey string) *Supabase {
	return &Supabase{
		client: storage_go.NewClient(strings.TrimRight(baseURL, "/")+"/storage/v1", serviceKey, map[string]string{
			"apikey": serviceKey,
		}),
	}
}

func (s *Supabase) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.UploadFile(bucket, path, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s/%s: %w", bucket, path, err)
	}
	return path, nil
}

// Remove deletes paths in one request. Supabase reports missing objects as
// simply not deleted, so they are not errors.
func (s *Supabase) Remove(ctx context.Context, bucket string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.client.RemoveFile(bucket, paths); err != nil {
		return fmt.Errorf("failed to remove objects from %s: %w", bucket, err)
	}
	return nil
}

func (s *Supabase) Close() error { return nil }
