package postgresql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

const schema = `
	CREATE TABLE IF NOT EXISTS images (
		uuid UUID PRIMARY KEY,
		data BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		imported BOOLEAN NOT NULL DEFAULT false,
		tags TEXT[] NOT NULL DEFAULT '{}',
		prompt TEXT NOT NULL DEFAULT '',
		negative_prompt TEXT NOT NULL DEFAULT '',
		width INT NOT NULL DEFAULT 0,
		height INT NOT NULL DEFAULT 0,
		steps INT NOT NULL DEFAULT 0,
		cfg DOUBLE PRECISION NOT NULL DEFAULT 0,
		seed BIGINT NOT NULL DEFAULT -1,
		sampler TEXT NOT NULL DEFAULT '',
		model_hash TEXT NOT NULL DEFAULT '',
		model_name TEXT NOT NULL DEFAULT '',
		input_image BYTEA,
		input_resize_mode INT,
		script_name TEXT NOT NULL DEFAULT '',
		script_args JSONB
	);

	CREATE INDEX IF NOT EXISTS images_created_at_idx ON images (created_at DESC);
	CREATE INDEX IF NOT EXISTS images_model_hash_idx ON images (model_hash);
`

type Storage struct {
	db *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Storage, error) {
	const op = "storage.postgresql.New"

	db, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

// Pool возвращает пул соединений для репозиториев
func (s *Storage) Pool() *pgxpool.Pool {
	return s.db
}

// Migrate создаёт таблицу изображений и её индексы
func (s *Storage) Migrate(ctx context.Context) error {
	const op = "storage.postgresql.Migrate"

	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Stop() {
	s.db.Close()
}
