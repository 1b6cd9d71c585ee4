package repository

import (
	"context"
	"fmt"
	"sort"

	"sdgallery/internal/domain/models"
	"sdgallery/internal/storage"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// MemoryImageRepo держит записи в памяти процесса, без срока жизни
type MemoryImageRepo struct {
	items *cache.Cache
}

func NewMemoryImageRepo() *MemoryImageRepo {
	return &MemoryImageRepo{
		items: cache.New(cache.NoExpiration, 0),
	}
}

func (r *MemoryImageRepo) ListImages(ctx context.Context) ([]models.ImageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	all := r.items.Items()
	images := make([]models.ImageRecord, 0, len(all))
	for _, item := range all {
		images = append(images, item.Object.(models.ImageRecord).Clone())
	}

	sort.SliceStable(images, func(i, j int) bool {
		return images[i].Timestamp.After(images[j].Timestamp)
	})

	return images, nil
}

func (r *MemoryImageRepo) CreateImage(ctx context.Context, image models.ImageRecord) error {
	const op = "repository.MemoryImageRepo.CreateImage"

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := r.items.Add(image.UUID.String(), image.Clone(), cache.NoExpiration); err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrDuplicateKey)
	}

	return nil
}

func (r *MemoryImageRepo) DeleteImage(ctx context.Context, id uuid.UUID) error {
	const op = "repository.MemoryImageRepo.DeleteImage"

	if err := ctx.Err(); err != nil {
		return err
	}

	if _, ok := r.items.Get(id.String()); !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	r.items.Delete(id.String())

	return nil
}

func (r *MemoryImageRepo) UpdateTags(ctx context.Context, image models.ImageRecord) error {
	const op = "repository.MemoryImageRepo.UpdateTags"

	if err := ctx.Err(); err != nil {
		return err
	}

	v, ok := r.items.Get(image.UUID.String())
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	stored := v.(models.ImageRecord)
	stored.Tags = append([]string(nil), image.Tags...)

	return r.items.Replace(image.UUID.String(), stored, cache.NoExpiration)
}

func (r *MemoryImageRepo) ImagesByModelHash(ctx context.Context, modelHash string) ([]uuid.UUID, error) {
	images, err := r.ListImages(ctx)
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	for _, image := range images {
		if image.ModelHash == modelHash {
			ids = append(ids, image.UUID)
		}
	}

	return ids, nil
}
