package filestorage

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/placeintern/backend/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "http://localhost:8080/uploads/")
	require.NoError(t, err)

	ctx := context.Background()
	url, err := s.Put(ctx, "reports/a.csv", strings.NewReader("x,y\n"), "text/csv")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/reports/a.csv", url)

	_, err = os.Stat(filepath.Join(dir, "reports", "a.csv"))
	require.NoError(t, err)

	rc, err := s.Open(ctx, "reports/a.csv")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "x,y\n", string(data))

	require.NoError(t, s.Delete(ctx, "reports/a.csv"))
	_, err = s.Open(ctx, "reports/a.csv")
	assert.ErrorIs(t, err, apperrors.ErrStorageObjectNotFound)

	// deleting twice is fine
	assert.NoError(t, s.Delete(ctx, "reports/a.csv"))
}

func TestLocalStorageStaysInsideRoot(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(filepath.Join(dir, "root"), "")
	require.NoError(t, err)

	url, err := s.Put(context.Background(), "../../escape.txt", strings.NewReader("x"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "escape.txt", url)
	_, err = os.Stat(filepath.Join(dir, "root", "escape.txt"))
	assert.NoError(t, err)

	_, err = s.Put(context.Background(), "", strings.NewReader("x"), "text/plain")
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func multipartHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func TestSaveUpload(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)

	pdf := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("a"), 20)...)
	fh := multipartHeader(t, "Offer Letter.PDF", pdf)

	stored, err := SaveUpload(context.Background(), s, fh, "documents/42")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.Key, "documents/42/"))
	assert.True(t, strings.HasSuffix(stored.Key, ".pdf"))
	assert.Equal(t, "Offer Letter.PDF", stored.FileName)
	assert.Equal(t, "application/pdf", stored.MimeType)
	assert.Equal(t, int64(len(pdf)), stored.Size)

	_, err = SaveUpload(context.Background(), s, nil, "x")
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestB2ObjectURL(t *testing.T) {
	key, err := cleanKey("documents/42/offer letter.pdf")
	require.NoError(t, err)

	assert.Equal(t,
		"https://f002.backblazeb2.com/file/placeintern-docs/documents/42/offer%20letter.pdf",
		objectURL("https://f002.backblazeb2.com/", "placeintern-docs", key))
	assert.Equal(t,
		"https://f002.backblazeb2.com/file/b/reports/r-1.xlsx",
		objectURL("https://f002.backblazeb2.com", "b", "reports/r-1.xlsx"))
}
