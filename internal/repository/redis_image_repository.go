package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"sdgallery/internal/domain/models"
	"sdgallery/internal/storage"
	redisapp "sdgallery/internal/storage/redis"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const timestampIndexKey = "images:by_timestamp"

type RedisImageRepo struct {
	Client *redisapp.Client
}

func NewRedisImageRepo(client *redisapp.Client) *RedisImageRepo {
	return &RedisImageRepo{Client: client}
}

func (r *RedisImageRepo) ListImages(ctx context.Context) ([]models.ImageRecord, error) {
	const op = "repository.RedisImageRepo.ListImages"

	ids, err := r.Client.ZRevRange(ctx, timestampIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = "image:" + id
	}

	values, err := r.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	images := make([]models.ImageRecord, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// индекс пережил запись
			continue
		}
		var image models.ImageRecord
		if err := json.Unmarshal([]byte(s), &image); err != nil {
			return nil, fmt.Errorf("%s: decode %s: %w", op, keys[i], err)
		}
		images = append(images, image)
	}

	return images, nil
}

func (r *RedisImageRepo) CreateImage(ctx context.Context, image models.ImageRecord) error {
	const op = "repository.RedisImageRepo.CreateImage"

	payload, err := json.Marshal(image)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	key := imageKey(image.UUID)
	created, err := r.Client.SetNX(ctx, key, string(payload), 0).Result()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !created {
		return fmt.Errorf("%s: %w", op, storage.ErrDuplicateKey)
	}

	err = r.Client.ZAdd(ctx, timestampIndexKey, redis.Z{
		Score:  float64(image.Timestamp.UnixMilli()),
		Member: image.UUID.String(),
	}).Err()
	if err == nil {
		err = r.Client.SAdd(ctx, modelIndexKey(image.ModelHash), image.UUID.String()).Err()
	}
	if err != nil {
		// без индексов запись недостижима, откатываем
		r.Client.Del(ctx, key)
		r.Client.ZRem(ctx, timestampIndexKey, image.UUID.String())
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisImageRepo) DeleteImage(ctx context.Context, id uuid.UUID) error {
	const op = "repository.RedisImageRepo.DeleteImage"

	image, err := r.get(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := r.Client.Del(ctx, imageKey(id)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := r.Client.ZRem(ctx, timestampIndexKey, id.String()).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := r.Client.SRem(ctx, modelIndexKey(image.ModelHash), id.String()).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisImageRepo) UpdateTags(ctx context.Context, image models.ImageRecord) error {
	const op = "repository.RedisImageRepo.UpdateTags"

	payload, err := json.Marshal(image)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	updated, err := r.Client.SetXX(ctx, imageKey(image.UUID), string(payload), 0).Result()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !updated {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

func (r *RedisImageRepo) ImagesByModelHash(ctx context.Context, modelHash string) ([]uuid.UUID, error) {
	const op = "repository.RedisImageRepo.ImagesByModelHash"

	members, err := r.Client.SMembers(ctx, modelIndexKey(modelHash)).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func (r *RedisImageRepo) get(ctx context.Context, id uuid.UUID) (models.ImageRecord, error) {
	val, err := r.Client.Get(ctx, imageKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return models.ImageRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return models.ImageRecord{}, err
	}

	var image models.ImageRecord
	if err := json.Unmarshal([]byte(val), &image); err != nil {
		return models.ImageRecord{}, err
	}

	return image, nil
}

func imageKey(id uuid.UUID) string {
	return "image:" + id.String()
}

func modelIndexKey(modelHash string) string {
	return "images:by_model:" + modelHash
}
