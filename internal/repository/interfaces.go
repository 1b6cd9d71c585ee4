package repository

import (
	"context"

	"sdgallery/internal/domain/models"

	"github.com/google/uuid"
)

// ImageRepository хранилище записей изображений, ключ — uuid.
// Вторичные индексы: по времени создания (убывание) и по хешу модели.
type ImageRepository interface {
	// ListImages возвращает все записи, новые первыми
	ListImages(ctx context.Context) ([]models.ImageRecord, error)
	// CreateImage возвращает storage.ErrDuplicateKey, если uuid уже занят
	CreateImage(ctx context.Context, image models.ImageRecord) error
	// DeleteImage возвращает storage.ErrNotFound, если записи нет
	DeleteImage(ctx context.Context, id uuid.UUID) error
	// UpdateTags сохраняет только image.Tags
	UpdateTags(ctx context.Context, image models.ImageRecord) error
	ImagesByModelHash(ctx context.Context, modelHash string) ([]uuid.UUID, error)
}
