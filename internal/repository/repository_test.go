package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"sdgallery/internal/domain/models"
	"sdgallery/internal/storage"
	"sdgallery/internal/storage/postgresql"
	redisapp "sdgallery/internal/storage/redis"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	testCtx  = context.Background()
	baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newTestImage(offset time.Duration, modelHash string, tags ...string) models.ImageRecord {
	mode := 1
	return models.ImageRecord{
		UUID:            uuid.New(),
		Data:            []byte{0x89, 'P', 'N', 'G'},
		Timestamp:       baseTime.Add(offset),
		Tags:            tags,
		Prompt:          "a cat",
		NegativePrompt:  "blurry",
		Width:           512,
		Height:          768,
		Steps:           20,
		CFG:             7,
		Seed:            42,
		Sampler:         "Euler",
		ModelHash:       modelHash,
		ModelName:       "foo",
		InputResizeMode: &mode,
		ScriptName:      "xyz",
		ScriptArgs:      models.ScriptArgs{"a", float64(1)},
	}
}

// runContract проверяет поведение, общее для всех драйверов
func runContract(t *testing.T, repo ImageRepository) {
	older := newTestImage(0, "hash-a")
	middle := newTestImage(time.Minute, "hash-b", "cats")
	newer := newTestImage(2*time.Minute, "hash-a", "cats", "best")

	t.Run("create", func(t *testing.T) {
		for _, image := range []models.ImageRecord{middle, older, newer} {
			require.NoError(t, repo.CreateImage(testCtx, image))
		}
	})

	t.Run("duplicate uuid", func(t *testing.T) {
		err := repo.CreateImage(testCtx, older)
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})

	t.Run("list is newest first", func(t *testing.T) {
		images, err := repo.ListImages(testCtx)
		require.NoError(t, err)
		require.Len(t, images, 3)

		assert.Equal(t, newer.UUID, images[0].UUID)
		assert.Equal(t, middle.UUID, images[1].UUID)
		assert.Equal(t, older.UUID, images[2].UUID)
		assert.Equal(t, newer.Prompt, images[0].Prompt)
		assert.Equal(t, newer.Tags, images[0].Tags)
		assert.True(t, newer.Timestamp.Equal(images[0].Timestamp))
	})

	t.Run("update tags", func(t *testing.T) {
		updated := older.Clone()
		updated.Tags = []string{"dogs"}
		require.NoError(t, repo.UpdateTags(testCtx, updated))

		images, err := repo.ListImages(testCtx)
		require.NoError(t, err)
		assert.Equal(t, []string{"dogs"}, images[2].Tags)
	})

	t.Run("update tags of missing image", func(t *testing.T) {
		err := repo.UpdateTags(testCtx, newTestImage(0, "x"))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("model hash index", func(t *testing.T) {
		ids, err := repo.ImagesByModelHash(testCtx, "hash-a")
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{older.UUID, newer.UUID}, ids)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteImage(testCtx, middle.UUID))

		images, err := repo.ListImages(testCtx)
		require.NoError(t, err)
		assert.Len(t, images, 2)
	})

	t.Run("delete missing", func(t *testing.T) {
		err := repo.DeleteImage(testCtx, middle.UUID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestMemoryImageRepo(t *testing.T) {
	runContract(t, NewMemoryImageRepo())
}

func TestMemoryImageRepo_ReturnsCopies(t *testing.T) {
	repo := NewMemoryImageRepo()
	image := newTestImage(0, "h", "a")
	require.NoError(t, repo.CreateImage(testCtx, image))

	images, err := repo.ListImages(testCtx)
	require.NoError(t, err)
	images[0].Tags[0] = "mutated"

	images, err = repo.ListImages(testCtx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, images[0].Tags)
}

func TestMemoryImageRepo_CanceledContext(t *testing.T) {
	repo := NewMemoryImageRepo()
	ctx, cancel := context.WithCancel(testCtx)
	cancel()

	err := repo.CreateImage(ctx, newTestImage(0, "h"))
	assert.ErrorIs(t, err, context.Canceled)
}

func setupTestDB(t *testing.T) *postgresql.Storage {
	if testing.Short() {
		t.Skip("postgres container tests are skipped in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(time.Minute),
	}

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf(
		"postgres://test:test@%s:%s/testdb?sslmode=disable",
		host,
		port.Port(),
	)

	pg, err := postgresql.New(ctx, connStr)
	require.NoError(t, err)
	require.NoError(t, pg.Migrate(ctx))

	t.Cleanup(func() {
		pg.Stop()
		_ = pgContainer.Terminate(ctx)
	})

	return pg
}

func TestImageRepo_Postgres(t *testing.T) {
	pg := setupTestDB(t)

	runContract(t, NewImageRepo(pg.Pool()))
}

func TestImageRepo_PostgresRoundTrip(t *testing.T) {
	pg := setupTestDB(t)
	repo := NewImageRepo(pg.Pool())

	image := newTestImage(0, "hash", "one")
	image.InputImage = []byte("input")
	require.NoError(t, repo.CreateImage(testCtx, image))

	images, err := repo.ListImages(testCtx)
	require.NoError(t, err)
	require.Len(t, images, 1)

	got := images[0]
	assert.Equal(t, image.Data, got.Data)
	assert.Equal(t, image.InputImage, got.InputImage)
	require.NotNil(t, got.InputResizeMode)
	assert.Equal(t, 1, *got.InputResizeMode)
	assert.Equal(t, image.ScriptArgs, got.ScriptArgs)
	assert.Equal(t, image.CFG, got.CFG)
	assert.Equal(t, image.Seed, got.Seed)
}

func NewMockClient() (*redisapp.Client, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	return &redisapp.Client{Client: db}, mock
}

func setupRedisRepo() (*RedisImageRepo, redismock.ClientMock) {
	db, mock := NewMockClient()
	return NewRedisImageRepo(db), mock
}

func payload(t *testing.T, image models.ImageRecord) string {
	t.Helper()

	b, err := json.Marshal(image)
	require.NoError(t, err)
	return string(b)
}

func TestRedisImageRepo_CreateImage(t *testing.T) {
	image := newTestImage(0, "hash", "cats")
	key := imageKey(image.UUID)
	member := redis.Z{Score: float64(image.Timestamp.UnixMilli()), Member: image.UUID.String()}

	t.Run("successful create", func(t *testing.T) {
		repo, mock := setupRedisRepo()
		mock.ExpectSetNX(key, payload(t, image), 0).SetVal(true)
		mock.ExpectZAdd(timestampIndexKey, member).SetVal(1)
		mock.ExpectSAdd(modelIndexKey("hash"), image.UUID.String()).SetVal(1)

		err := repo.CreateImage(testCtx, image)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate", func(t *testing.T) {
		repo, mock := setupRedisRepo()
		mock.ExpectSetNX(key, payload(t, image), 0).SetVal(false)

		err := repo.CreateImage(testCtx, image)
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("index failure rolls back", func(t *testing.T) {
		repo, mock := setupRedisRepo()
		mock.ExpectSetNX(key, payload(t, image), 0).SetVal(true)
		mock.ExpectZAdd(timestampIndexKey, member).SetErr(redis.ErrClosed)
		mock.ExpectDel(key).SetVal(1)
		mock.ExpectZRem(timestampIndexKey, image.UUID.String()).SetVal(0)

		err := repo.CreateImage(testCtx, image)
		assert.ErrorIs(t, err, redis.ErrClosed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedisImageRepo_ListImages(t *testing.T) {
	newer := newTestImage(time.Minute, "hash")
	older := newTestImage(0, "hash", "cats")

	t.Run("ordered by index", func(t *testing.T) {
		repo, mock := setupRedisRepo()
		mock.ExpectZRevRange(timestampIndexKey, 0, -1).
			SetVal([]string{newer.UUID.String(), older.UUID.String()})
		mock.ExpectMGet(imageKey(newer.UUID), imageKey(older.UUID)).
			SetVal([]interface{}{payload(t, newer), payload(t, older)})

		images, err := repo.ListImages(testCtx)
		require.NoError(t, err)
		require.Len(t, images, 2)
		assert.Equal(t, newer, images[0])
		assert.Equal(t, older, images[1])
	})

	t.Run("dangling index entry is skipped", func(t *testing.T) {
		repo, mock := setupRedisRepo()
		mock.ExpectZRevRange(timestampIndexKey, 0, -1).
			SetVal([]string{newer.UUID.String(), older.UUID.String()})
		mock.ExpectMGet(imageKey(newer.UUID), imageKey(older.UUID)).
			SetVal([]interface{}{nil, payload(t, older)})

		images, err := repo.ListImages(testCtx)
		require.NoError(t, err)
		require.Len(t, images, 1)
		assert.Equal(t, older.UUID, images[0].UUID)
	})

	t.Run("empty", func(t *testing.T) {
		repo, mock := setupRedisRepo()
		mock.ExpectZRevRange(timestampIndexKey, 0, -1).SetVal([]string{})

		images, err := repo.ListImages(testCtx)
		assert.NoError(t, err)
		assert.Empty(t, images)
	})

	t.Run("redis error", func(t *testing.T) {
		repo, mock := setupRedisRepo()
		mock.ExpectZRevRange(timestampIndexKey, 0, -1).SetErr(redis.ErrClosed)

		_, err := repo.ListImages(testCtx)
		assert.ErrorIs(t, err, redis.ErrClosed)
	})
}

func TestRedisImageRepo_DeleteImage(t *testing.T) {
	image := newTestImage(0, "hash")
	key := imageKey(image.UUID)

	t.Run("successful delete", func(t *testing.T) {
		repo, mock := setupRedisRepo()
		mock.ExpectGet(key).SetVal(payload(t, image))
		mock.ExpectDel(key).SetVal(1)
		mock.ExpectZRem(timestampIndexKey, image.UUID.String()).SetVal(1)
		mock.ExpectSRem(modelIndexKey("hash"), image.UUID.String()).SetVal(1)

		err := repo.DeleteImage(testCtx, image.UUID)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := setupRedisRepo()
		mock.ExpectGet(key).RedisNil()

		err := repo.DeleteImage(testCtx, image.UUID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestRedisImageRepo_UpdateTags(t *testing.T) {
	image := newTestImage(0, "hash", "cats", "dogs")
	key := imageKey(image.UUID)

	t.Run("successful update", func(t *testing.T) {
		repo, mock := setupRedisRepo()
		mock.ExpectSetXX(key, payload(t, image), 0).SetVal(true)

		assert.NoError(t, repo.UpdateTags(testCtx, image))
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := setupRedisRepo()
		mock.ExpectSetXX(key, payload(t, image), 0).SetVal(false)

		err := repo.UpdateTags(testCtx, image)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestRedisImageRepo_ImagesByModelHash(t *testing.T) {
	repo, mock := setupRedisRepo()
	id := uuid.New()
	mock.ExpectSMembers(modelIndexKey("hash")).SetVal([]string{id.String()})

	ids, err := repo.ImagesByModelHash(testCtx, "hash")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, ids)
}
