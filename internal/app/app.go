package app

import (
	"context"
	"fmt"
	"log/slog"

	httpapp "sdgallery/internal/app/http"
	"sdgallery/internal/client/sdapi"
	"sdgallery/internal/config"
	"sdgallery/internal/repository"
	galleryquery "sdgallery/internal/services/gallery_query"
	services "sdgallery/internal/services/gallery_service"
	imagestore "sdgallery/internal/services/image_store"
	"sdgallery/internal/services/renderer"
	filestorage "sdgallery/internal/storage/filestorage"
	httprouters "sdgallery/internal/transport/http"
)

type App struct {
	HTTPServer *httpapp.Server
	Gallery    *services.GalleryService

	repo *repository.Repository
}

// New собирает приложение и загружает галерею из хранилища
func New(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	const op = "app.New"

	repo, err := repository.NewRepository(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	files, err := filestorage.NewLocalFileStorage(cfg.FileStorage.BaseDir, cfg.FileStorage.BaseURL)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	gallery := services.NewGalleryService(
		log,
		imagestore.New(log, repo.Images),
		galleryquery.New(galleryquery.DefaultPageSize),
		renderer.New(log, renderer.Config{SquareTolerance: cfg.Gallery.SquareTolerance}, nil),
		files,
	)

	if err := gallery.Load(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	backend := sdapi.New(log, cfg.Backend.URL, cfg.Backend.Username, cfg.Backend.Password, cfg.Backend.Timeout)

	routers := httprouters.NewRouter(log, gallery, backend)

	return &App{
		HTTPServer: httpapp.New(log, cfg.HTTP.Host, cfg.HTTP.Port, cfg.Auth, routers),
		Gallery:    gallery,
		repo:       repo,
	}, nil
}

// MustNew как New, но паникует при ошибке
func MustNew(ctx context.Context, log *slog.Logger, cfg *config.Config) *App {
	a, err := New(ctx, log, cfg)
	if err != nil {
		panic(err)
	}
	return a
}

func (a *App) Stop() error {
	defer a.repo.Close()

	return a.HTTPServer.Stop()
}
