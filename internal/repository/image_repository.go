package repository

import (
	"context"
	"errors"
	"fmt"

	"sdgallery/internal/domain/models"
	"sdgallery/internal/storage"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/lib/pq"
)

const (
	imagesTable        = "images"
	uniqueViolationErr = "23505"
)

var imageColumns = []string{
	"uuid",
	"data",
	"created_at",
	"imported",
	"tags",
	"prompt",
	"negative_prompt",
	"width",
	"height",
	"steps",
	"cfg",
	"seed",
	"sampler",
	"model_hash",
	"model_name",
	"input_image",
	"input_resize_mode",
	"script_name",
	"script_args",
}

type ImageRepo struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

func NewImageRepo(db *pgxpool.Pool) *ImageRepo {
	return &ImageRepo{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ListImages возвращает все изображения, отсортированные по времени создания
func (r *ImageRepo) ListImages(ctx context.Context) ([]models.ImageRecord, error) {
	const op = "repository.ImageRepo.ListImages"

	query, args, err := r.sb.Select(imageColumns...).
		From(imagesTable).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var images []models.ImageRecord
	for rows.Next() {
		var image models.ImageRecord
		err := rows.Scan(
			&image.UUID,
			&image.Data,
			&image.Timestamp,
			&image.Imported,
			pq.Array(&image.Tags),
			&image.Prompt,
			&image.NegativePrompt,
			&image.Width,
			&image.Height,
			&image.Steps,
			&image.CFG,
			&image.Seed,
			&image.Sampler,
			&image.ModelHash,
			&image.ModelName,
			&image.InputImage,
			&image.InputResizeMode,
			&image.ScriptName,
			&image.ScriptArgs,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		images = append(images, image)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return images, nil
}

// CreateImage сохраняет новую запись
func (r *ImageRepo) CreateImage(ctx context.Context, image models.ImageRecord) error {
	const op = "repository.ImageRepo.CreateImage"

	tags := image.Tags
	if tags == nil {
		tags = []string{}
	}

	query, args, err := r.sb.Insert(imagesTable).
		Columns(imageColumns...).
		Values(
			image.UUID,
			image.Data,
			image.Timestamp,
			image.Imported,
			tags,
			image.Prompt,
			image.NegativePrompt,
			image.Width,
			image.Height,
			image.Steps,
			image.CFG,
			image.Seed,
			image.Sampler,
			image.ModelHash,
			image.ModelName,
			image.InputImage,
			image.InputResizeMode,
			image.ScriptName,
			image.ScriptArgs,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationErr {
			return fmt.Errorf("%s: %w", op, storage.ErrDuplicateKey)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteImage удаляет запись по uuid
func (r *ImageRepo) DeleteImage(ctx context.Context, id uuid.UUID) error {
	const op = "repository.ImageRepo.DeleteImage"

	query, args, err := r.sb.Delete(imagesTable).
		Where(squirrel.Eq{"uuid": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// UpdateTags перезаписывает теги изображения
func (r *ImageRepo) UpdateTags(ctx context.Context, image models.ImageRecord) error {
	const op = "repository.ImageRepo.UpdateTags"

	tags := image.Tags
	if tags == nil {
		tags = []string{}
	}

	query, args, err := r.sb.Update(imagesTable).
		Set("tags", tags).
		Where(squirrel.Eq{"uuid": image.UUID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// ImagesByModelHash возвращает uuid изображений одной модели, новые первыми
func (r *ImageRepo) ImagesByModelHash(ctx context.Context, modelHash string) ([]uuid.UUID, error) {
	const op = "repository.ImageRepo.ImagesByModelHash"

	query, args, err := r.sb.Select("uuid").
		From(imagesTable).
		Where(squirrel.Eq{"model_hash": modelHash}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
