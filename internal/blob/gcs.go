package blob

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS stores objects in Google Cloud Storage buckets.
type GCS struct {
	client *storage.Client
}

// NewGCS creates a client. With no credentials file, application default
// credentials are used. A non-empty endpoint (an emulator, for example)
// disables authentication.
func NewGCS(ctx context.Context, credentialsFile, endpoint string) (*GCS, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCS{client: client}, nil
}

func (s *GCS) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error) {
	w := s.client.Bucket(bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write gs://%s/%s: %w", bucket, path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to write gs://%s/%s: %w", bucket, path, err)
	}
	return path, nil
}

func (s *GCS) Remove(ctx context.Context, bucket string, paths []string) error {
	var errs []error
	for _, p := range paths {
		err := s.client.Bucket(bucket).Object(p).Delete(ctx)
		if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			errs = append(errs, fmt.Errorf("failed to delete gs://%s/%s: %w", bucket, p, err))
		}
	}
	return errors.Join(errs...)
}

func (s *GCS) Close() error { return s.client.Close() }
