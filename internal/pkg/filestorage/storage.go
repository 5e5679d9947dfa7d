package filestorage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/placeintern/backend/internal/pkg/apperrors"
)

// Storage stores opaque objects addressed by slash separated keys
type Storage interface {
	// Put writes r under key and returns a URL the object can be referenced by
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)

	// Open returns a reader for key or apperrors.ErrStorageObjectNotFound
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
}

// StoredFile describes an uploaded file after it was written to storage
type StoredFile struct {
	Key      string
	URL      string
	FileName string
	MimeType string
	Size     int64
}

// SaveUpload writes an uploaded multipart file under prefix with a unique name
func SaveUpload(ctx context.Context, s Storage, fileHeader *multipart.FileHeader, prefix string) (*StoredFile, error) {
	if fileHeader == nil {
		return nil, fmt.Errorf("no file uploaded: %w", apperrors.ErrBadRequest)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		head := make([]byte, 512)
		n, _ := file.Read(head)
		mimeType = http.DetectContentType(head[:n])
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("failed to rewind uploaded file: %w", err)
		}
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	key := path.Join(prefix, uuid.New().String()+ext)

	url, err := s.Put(ctx, key, file, mimeType)
	if err != nil {
		return nil, err
	}

	return &StoredFile{
		Key:      key,
		URL:      url,
		FileName: filepath.Base(fileHeader.Filename),
		MimeType: mimeType,
		Size:     fileHeader.Size,
	}, nil
}

// cleanKey rejects keys that would escape the storage root
func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("invalid storage key %q: %w", key, apperrors.ErrBadRequest)
	}
	return cleaned, nil
}
