package filestorage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/kurin/blazer/b2"
	"github.com/placeintern/backend/internal/pkg/apperrors"
)

// B2Storage keeps objects in a Backblaze B2 bucket
type B2Storage struct {
	bucket *b2.Bucket
}

// NewB2Storage connects to bucketName with the given account credentials
func NewB2Storage(ctx context.Context, accountID, appKey, bucketName string) (*B2Storage, error) {
	client, err := b2.NewClient(ctx, accountID, appKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create b2 client: %w", err)
	}

	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &B2Storage{bucket: bucket}, nil
}

// Put implements Storage
func (s *B2Storage) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	w := s.bucket.Object(cleaned).NewWriter(ctx, b2.WithAttrsOption(&b2.Attrs{ContentType: contentType}))
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}

	return objectURL(s.bucket.BaseURL(), s.bucket.Name(), cleaned), nil
}

// objectURL is the friendly download URL of key in bucket, with each path
// segment escaped
func objectURL(baseURL, bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/file/%s/%s", strings.TrimRight(baseURL, "/"), url.PathEscape(bucket), strings.Join(segments, "/"))
}

// Open implements Storage
func (s *B2Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	obj := s.bucket.Object(cleaned)
	if _, err := obj.Attrs(ctx); err != nil {
		if b2.IsNotExist(err) {
			return nil, apperrors.ErrStorageObjectNotFound
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}
	return obj.NewReader(ctx), nil
}

// Delete implements Storage
func (s *B2Storage) Delete(ctx context.Context, key string) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := s.bucket.Object(cleaned).Delete(ctx); err != nil && !b2.IsNotExist(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
