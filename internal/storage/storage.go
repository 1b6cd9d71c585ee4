package storage

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateKey = errors.New("image already exists")
	ErrNotFound     = errors.New("image not found")
)

var (
	ErrFileTooLarge    = errors.New("file size exceeds limit")
	ErrInvalidFileType = errors.New("invalid file type")
	ErrFileNotFound    = errors.New("file not found")
)

// StorageError оборачивает ошибки ввода-вывода хранилища записей
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: storage error: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Wrap классифицирует ошибку хранилища: ErrDuplicateKey и ErrNotFound
// сохраняются как есть, остальные оборачиваются в StorageError.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDuplicateKey) || errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorageError сообщает, является ли ошибка сбоем ввода-вывода хранилища
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
