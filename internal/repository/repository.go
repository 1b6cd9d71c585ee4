package repository

import (
	"context"
	"fmt"

	"sdgallery/internal/config"
	"sdgallery/internal/storage/postgresql"
	redisapp "sdgallery/internal/storage/redis"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Repository struct {
	Images ImageRepository
	close  func()
}

// NewRepository открывает хранилище записей по настройке storage.driver
func NewRepository(ctx context.Context, cfg config.StorageConfig) (*Repository, error) {
	const op = "repository.NewRepository"

	switch cfg.Driver {
	case DriverMemory, "":
		return &Repository{Images: NewMemoryImageRepo(), close: func() {}}, nil

	case DriverPostgres:
		pg, err := postgresql.New(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Stop()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &Repository{Images: NewImageRepo(pg.Pool()), close: pg.Stop}, nil

	case DriverRedis:
		client := redisapp.NewClient(cfg.Redis.RedisAddr, cfg.Redis.RedisPassword, cfg.Redis.RedisDB)
		if err := client.HealthCheck(ctx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &Repository{Images: NewRedisImageRepo(client), close: func() { _ = client.Close() }}, nil

	default:
		return nil, fmt.Errorf("%s: unknown storage driver %q", op, cfg.Driver)
	}
}

func (r *Repository) Close() {
	r.close()
}
