package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"sdgallery/internal/storage"
)

// MaxUploadSize ограничивает размер импортируемого PNG
const MaxUploadSize = 32 << 20

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// FileStorage интерфейс для работы с каталогом экспорта
type FileStorage interface {
	Save(ctx context.Context, name string, src io.Reader) (filePath string, fileSize int64, err error)
	Delete(ctx context.Context, filePath string) error
	GetFullPath(relativePath string) string
	URL(relativePath string) string
	BaseURL() string
	GetBaseDir() string
}

// LocalFileStorage реализация для локальной файловой системы
type LocalFileStorage struct {
	baseDir string // Базовый каталог экспорта (например: "./exports")
	baseURL string // Базовый URL для раздачи файлов (может быть пустым)
}

func NewLocalFileStorage(baseDir, baseURL string) (*LocalFileStorage, error) {
	// Создаем директорию, если она не существует
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	return &LocalFileStorage{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Save пишет src в baseDir/name. Файл сначала пишется во временный и
// переименовывается, так что частично записанный экспорт не виден.
func (s *LocalFileStorage) Save(ctx context.Context, name string, src io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	name = filepath.Clean(name)
	if name == "." || filepath.IsAbs(name) || strings.HasPrefix(name, "..") {
		return "", 0, fmt.Errorf("invalid file name %q", name)
	}

	filePath := filepath.Join(s.baseDir, name)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create directories: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".export-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer os.Remove(tmp.Name())

	done := make(chan struct{})
	var size int64
	var copyErr error

	go func() {
		size, copyErr = io.Copy(tmp, src)
		close(done)
	}()

	select {
	case <-done:
		if copyErr != nil {
			tmp.Close()
			return "", 0, fmt.Errorf("failed to copy file: %w", copyErr)
		}
	case <-ctx.Done():
		tmp.Close()
		<-done
		return "", 0, ctx.Err()
	}

	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return "", 0, fmt.Errorf("failed to move file: %w", err)
	}

	return name, size, nil
}

// Delete удаляет файл из хранилища
func (s *LocalFileStorage) Delete(ctx context.Context, filePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.Remove(filepath.Join(s.baseDir, filePath))
	if os.IsNotExist(err) {
		return storage.ErrFileNotFound
	}
	return err
}

// GetFullPath возвращает полный путь к файлу на диске
func (s *LocalFileStorage) GetFullPath(relativePath string) string {
	return filepath.Join(s.baseDir, relativePath)
}

// URL возвращает адрес файла для клиента или пустую строку без baseURL
func (s *LocalFileStorage) URL(relativePath string) string {
	if s.baseURL == "" {
		return ""
	}
	return s.baseURL + "/" + filepath.ToSlash(relativePath)
}

// BaseURL возвращает базовый URL для доступа к файлам
func (s *LocalFileStorage) BaseURL() string {
	return s.baseURL
}

func (s *LocalFileStorage) GetBaseDir() string {
	return s.baseDir
}

// ReadPNG читает загруженный файл целиком, проверяя размер и сигнатуру PNG
func ReadPNG(file *multipart.FileHeader) ([]byte, error) {
	if file.Size > MaxUploadSize {
		return nil, storage.ErrFileTooLarge
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, storage.ErrFileTooLarge
	}

	if !bytes.HasPrefix(data, pngSignature) || http.DetectContentType(data) != "image/png" {
		return nil, storage.ErrInvalidFileType
	}

	return data, nil
}
