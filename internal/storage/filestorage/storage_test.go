package storage_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"sdgallery/internal/storage"
	filestorage "sdgallery/internal/storage/filestorage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func setupFileStorage(t *testing.T) (*filestorage.LocalFileStorage, string) {
	t.Helper()

	tempDir := t.TempDir()

	fs, err := filestorage.NewLocalFileStorage(tempDir, "http://test.local/exports/")
	require.NoError(t, err)

	return fs, tempDir
}

func createUpload(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)

	_, err = part.Write(content)
	require.NoError(t, err)

	require.NoError(t, writer.Close())

	// Парсим multipart запрос
	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	file, header, err := req.FormFile("file")
	require.NoError(t, err)
	file.Close()

	return header
}

func TestLocalFileStorage_Save(t *testing.T) {
	fs, tempDir := setupFileStorage(t)
	ctx := context.Background()

	t.Run("successful save", func(t *testing.T) {
		path, size, err := fs.Save(ctx, "a.png", bytes.NewReader(pngHeader))
		require.NoError(t, err)

		assert.Equal(t, "a.png", path)
		assert.Equal(t, int64(len(pngHeader)), size)

		content, err := os.ReadFile(filepath.Join(tempDir, "a.png"))
		require.NoError(t, err)
		assert.Equal(t, pngHeader, content)
	})

	t.Run("save with subdirectory", func(t *testing.T) {
		path, _, err := fs.Save(ctx, filepath.Join("2024", "b.png"), strings.NewReader("x"))
		require.NoError(t, err)

		assert.FileExists(t, filepath.Join(tempDir, path))
	})

	t.Run("overwrite existing", func(t *testing.T) {
		_, _, err := fs.Save(ctx, "c.png", strings.NewReader("first"))
		require.NoError(t, err)
		_, _, err = fs.Save(ctx, "c.png", strings.NewReader("second"))
		require.NoError(t, err)

		content, err := os.ReadFile(fs.GetFullPath("c.png"))
		require.NoError(t, err)
		assert.Equal(t, "second", string(content))
	})

	t.Run("path traversal", func(t *testing.T) {
		_, _, err := fs.Save(ctx, "../escape.png", strings.NewReader("x"))
		assert.Error(t, err)
		assert.NoFileExists(t, filepath.Join(filepath.Dir(tempDir), "escape.png"))
	})

	t.Run("canceled context", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, _, err := fs.Save(canceled, "d.png", strings.NewReader("x"))
		assert.ErrorIs(t, err, context.Canceled)
		assert.NoFileExists(t, filepath.Join(tempDir, "d.png"))
	})

	t.Run("no temp files left", func(t *testing.T) {
		entries, err := os.ReadDir(tempDir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.False(t, strings.HasPrefix(e.Name(), ".export-"), e.Name())
		}
	})
}

func TestLocalFileStorage_ConcurrentSave(t *testing.T) {
	fs, _ := setupFileStorage(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := fs.Save(ctx, "same.png", bytes.NewReader(pngHeader))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	content, err := os.ReadFile(fs.GetFullPath("same.png"))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, content)
}

func TestLocalFileStorage_Delete(t *testing.T) {
	fs, _ := setupFileStorage(t)
	ctx := context.Background()

	_, _, err := fs.Save(ctx, "a.png", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, fs.Delete(ctx, "a.png"))
	assert.ErrorIs(t, fs.Delete(ctx, "a.png"), storage.ErrFileNotFound)
}

func TestLocalFileStorage_URL(t *testing.T) {
	fs, tempDir := setupFileStorage(t)

	assert.Equal(t, "http://test.local/exports", fs.BaseURL())
	assert.Equal(t, "http://test.local/exports/a.png", fs.URL("a.png"))
	assert.Equal(t, tempDir, fs.GetBaseDir())

	noURL, err := filestorage.NewLocalFileStorage(tempDir, "")
	require.NoError(t, err)
	assert.Empty(t, noURL.URL("a.png"))
}

func TestReadPNG(t *testing.T) {
	t.Run("valid png", func(t *testing.T) {
		data, err := filestorage.ReadPNG(createUpload(t, "a.png", pngHeader))
		require.NoError(t, err)
		assert.Equal(t, pngHeader, data)
	})

	t.Run("not a png", func(t *testing.T) {
		_, err := filestorage.ReadPNG(createUpload(t, "a.png", []byte("GIF89a....")))
		assert.ErrorIs(t, err, storage.ErrInvalidFileType)
	})

	t.Run("too large", func(t *testing.T) {
		header := createUpload(t, "a.png", pngHeader)
		header.Size = filestorage.MaxUploadSize + 1

		_, err := filestorage.ReadPNG(header)
		assert.ErrorIs(t, err, storage.ErrFileTooLarge)
	})
}
