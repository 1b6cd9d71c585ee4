package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"sdgallery/internal/client/sdapi"
	"sdgallery/internal/domain/models"
	"sdgallery/internal/lib/logger/sl"
	"sdgallery/internal/lib/pngtext"
	galleryquery "sdgallery/internal/services/gallery_query"
	imagestore "sdgallery/internal/services/image_store"
	"sdgallery/internal/services/renderer"
	"sdgallery/internal/storage"
	filestorage "sdgallery/internal/storage/filestorage"

	"github.com/google/uuid"
)

var (
	ErrNoImage       = errors.New("generation result has no image at this index")
	ErrInvalidImage  = errors.New("image payload is not a valid base64 PNG")
	ErrImageNotFound = storage.ErrNotFound
)

// GalleryView — состояние галереи после перехода, вместе с отрисованной сеткой
type GalleryView struct {
	Filter    galleryquery.Filter
	Page      int
	PageCount int
	Total     int
	HasPrev   bool
	HasNext   bool
	Items     []galleryquery.Item
	Slots     []renderer.Slot
	// Rendered == false, если отрисовку вытеснил более новый запрос
	Rendered bool
}

// ImageView — запись и её соседи в текущей выборке
type ImageView struct {
	Record models.ImageRecord
	Aspect renderer.Aspect
	// соседи в текущей выборке; uuid.Nil, если запись вне выборки или крайняя
	Prev uuid.UUID
	Next uuid.UUID
	// InSelection сообщает, входит ли запись в текущую выборку
	InSelection bool
}

// SaveGenerationRequest описывает сохранение одного изображения из ответа API
type SaveGenerationRequest struct {
	Response sdapi.GenerationResponse
	Index    int

	// img2img
	InputImage      []byte
	InputResizeMode *int

	ScriptName string
	ScriptArgs models.ScriptArgs
}

type ExportResult struct {
	Path string
	URL  string
	Size int64
}

type GalleryService struct {
	log      *slog.Logger
	store    *imagestore.Store
	query    *galleryquery.Engine
	renderer *renderer.Renderer
	files    filestorage.FileStorage

	// viewMu сериализует пересборку выборки и смену страницы; отрисовка
	// выполняется вне него, чтобы новый запрос мог вытеснить старый
	viewMu sync.Mutex
}

func NewGalleryService(
	log *slog.Logger,
	store *imagestore.Store,
	query *galleryquery.Engine,
	r *renderer.Renderer,
	files filestorage.FileStorage,
) *GalleryService {
	return &GalleryService{
		log:      log,
		store:    store,
		query:    query,
		renderer: r,
		files:    files,
	}
}

// Load перечитывает хранилище и пересобирает текущую выборку
func (s *GalleryService) Load(ctx context.Context) error {
	const op = "service.GalleryService.Load"
	log := s.log.With(slog.String("op", op))

	cursors, err := s.store.LoadAll(ctx)
	if err != nil {
		log.Error("failed to load images", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.viewMu.Lock()
	s.query.Apply(s.store, s.query.Filter())
	s.viewMu.Unlock()

	log.Info("gallery loaded", slog.Int("images", len(cursors)))
	return nil
}

// Open применяет фильтр и отрисовывает текущую страницу
func (s *GalleryService) Open(ctx context.Context, filter galleryquery.Filter) GalleryView {
	const op = "service.GalleryService.Open"

	s.viewMu.Lock()
	applied := s.query.Apply(s.store, filter)
	view := s.snapshot()
	s.viewMu.Unlock()

	if applied != filter {
		s.log.Debug("filter fell back",
			slog.String("op", op),
			slog.String("requested", filter.String()),
			slog.String("applied", applied.String()),
		)
	}

	return s.render(ctx, view)
}

// OpenPage применяет фильтр и переходит на страницу n (с зажатием)
func (s *GalleryService) OpenPage(ctx context.Context, filter galleryquery.Filter, n int) GalleryView {
	s.viewMu.Lock()
	s.query.Apply(s.store, filter)
	s.query.SetPage(n)
	view := s.snapshot()
	s.viewMu.Unlock()

	return s.render(ctx, view)
}

func (s *GalleryService) Page(ctx context.Context, n int) GalleryView {
	s.viewMu.Lock()
	s.query.SetPage(n)
	view := s.snapshot()
	s.viewMu.Unlock()

	return s.render(ctx, view)
}

// Next на последней странице ничего не меняет и перерисовывает её же
func (s *GalleryService) Next(ctx context.Context) GalleryView {
	s.viewMu.Lock()
	s.query.GoNext()
	view := s.snapshot()
	s.viewMu.Unlock()

	return s.render(ctx, view)
}

func (s *GalleryService) Prev(ctx context.Context) GalleryView {
	s.viewMu.Lock()
	s.query.GoPrev()
	view := s.snapshot()
	s.viewMu.Unlock()

	return s.render(ctx, view)
}

// SaveGeneration сохраняет images[Index] из ответа API. Параметры берутся
// из info.infotexts[Index], а при их отсутствии — из блока PNG.
func (s *GalleryService) SaveGeneration(ctx context.Context, req SaveGenerationRequest) (imagestore.Cursor, error) {
	const op = "service.GalleryService.SaveGeneration"
	log := s.log.With(
		slog.String("op", op),
		slog.Int("index", req.Index),
	)

	if req.Index < 0 || req.Index >= len(req.Response.Images) {
		return imagestore.Cursor{}, fmt.Errorf("%s: %w", op, ErrNoImage)
	}

	data, err := decodeImage(req.Response.Images[req.Index])
	if err != nil {
		log.Warn("invalid image payload", sl.Err(err))
		return imagestore.Cursor{}, fmt.Errorf("%s: %w", op, err)
	}

	info, ok := s.infoFromResponse(log, req.Response, req.Index)
	if !ok {
		info, _ = pngtext.Parse(data)
	}

	image := models.NewImageRecord(data, info, false)
	image.InputImage = req.InputImage
	image.InputResizeMode = req.InputResizeMode
	image.ScriptName = req.ScriptName
	image.ScriptArgs = req.ScriptArgs

	return s.add(ctx, log, image)
}

// ImportPNG сохраняет загруженный пользователем PNG
func (s *GalleryService) ImportPNG(ctx context.Context, data []byte) (imagestore.Cursor, error) {
	const op = "service.GalleryService.ImportPNG"
	log := s.log.With(slog.String("op", op))

	info, ok := pngtext.Parse(data)
	if !ok {
		log.Debug("png has no parameters chunk")
	}

	return s.add(ctx, log, models.NewImageRecord(data, info, true))
}

// PngInfo разбирает параметры PNG без сохранения
func (s *GalleryService) PngInfo(data []byte) (models.PngInfo, bool) {
	return pngtext.Parse(data)
}

func (s *GalleryService) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "service.GalleryService.Delete"
	log := s.log.With(
		slog.String("op", op),
		slog.String("image_id", id.String()),
	)

	if err := s.store.Remove(ctx, id); err != nil {
		// запись могла пропасть из репозитория раньше, хранилище её уже вырезало
		if errors.Is(err, storage.ErrNotFound) {
			s.refilter()
		}
		log.Error("failed to delete image", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.refilter()

	log.Info("image deleted")
	return nil
}

func (s *GalleryService) AddTag(ctx context.Context, id uuid.UUID, tag string) (bool, error) {
	return s.changeTag(ctx, "service.GalleryService.AddTag", id, tag, s.store.AddTag)
}

func (s *GalleryService) RemoveTag(ctx context.Context, id uuid.UUID, tag string) (bool, error) {
	return s.changeTag(ctx, "service.GalleryService.RemoveTag", id, tag, s.store.RemoveTag)
}

func (s *GalleryService) changeTag(
	ctx context.Context,
	op string,
	id uuid.UUID,
	tag string,
	change func(context.Context, uuid.UUID, string) (bool, error),
) (bool, error) {
	log := s.log.With(
		slog.String("op", op),
		slog.String("image_id", id.String()),
		slog.String("tag", tag),
	)

	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false, nil
	}

	changed, err := change(ctx, id, tag)
	if err != nil {
		log.Error("failed to update tags", sl.Err(err))
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if changed {
		s.refilter()
		log.Info("tags updated")
	}

	return changed, nil
}

// Image возвращает запись и её соседей в текущей выборке
func (s *GalleryService) Image(id uuid.UUID) (ImageView, error) {
	cursor, ok := s.store.Get(id)
	if !ok {
		return ImageView{}, fmt.Errorf("service.GalleryService.Image: %w", ErrImageNotFound)
	}

	view := ImageView{
		Record: cursor.Record,
		Aspect: s.renderer.Aspect(cursor.Record.Width, cursor.Record.Height),
	}
	view.Prev, view.Next, view.InSelection = s.query.Neighbors(id)

	return view, nil
}

// Export записывает PNG в каталог экспорта как <uuid>.png
func (s *GalleryService) Export(ctx context.Context, id uuid.UUID) (ExportResult, error) {
	const op = "service.GalleryService.Export"
	log := s.log.With(
		slog.String("op", op),
		slog.String("image_id", id.String()),
	)

	cursor, ok := s.store.Get(id)
	if !ok {
		return ExportResult{}, fmt.Errorf("%s: %w", op, ErrImageNotFound)
	}

	path, size, err := s.files.Save(ctx, id.String()+".png", bytes.NewReader(cursor.Record.Data))
	if err != nil {
		log.Error("failed to export image", sl.Err(err))
		return ExportResult{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("image exported", slog.String("path", path))
	return ExportResult{Path: path, URL: s.files.URL(path), Size: size}, nil
}

func (s *GalleryService) Tags() []imagestore.TagCount {
	return s.store.Tags()
}

// View возвращает текущее состояние без перерисовки
func (s *GalleryService) View() GalleryView {
	s.viewMu.Lock()
	view := s.snapshot()
	s.viewMu.Unlock()

	view.Slots = s.renderer.Slots()
	view.Rendered = true
	return view
}

func (s *GalleryService) add(ctx context.Context, log *slog.Logger, image models.ImageRecord) (imagestore.Cursor, error) {
	log = log.With(slog.String("image_id", image.UUID.String()))

	cursor, err := s.store.Add(ctx, image)
	if err != nil {
		log.Error("failed to save image", sl.Err(err))
		return imagestore.Cursor{}, fmt.Errorf("service.GalleryService.add: %w", err)
	}

	s.refilter()

	log.Info("image saved", slog.Bool("imported", image.Imported))
	return cursor, nil
}

// refilter пересобирает выборку целиком после изменения хранилища
func (s *GalleryService) refilter() {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()

	s.query.Apply(s.store, s.query.Filter())
}

func (s *GalleryService) render(ctx context.Context, view GalleryView) GalleryView {
	tiles := make([]renderer.Item, len(view.Items))
	for i, item := range view.Items {
		tiles[i] = renderer.Item{
			ImageID: item.Record.UUID,
			Width:   item.Record.Width,
			Height:  item.Record.Height,
		}
	}

	view.Rendered = s.renderer.Render(ctx, tiles)
	view.Slots = s.renderer.Slots()

	return view
}

// snapshot вызывается под viewMu
func (s *GalleryService) snapshot() GalleryView {
	return GalleryView{
		Filter:    s.query.Filter(),
		Page:      s.query.Page(),
		PageCount: s.query.PageCount(),
		Total:     s.query.Len(),
		HasPrev:   s.query.HasPrev(),
		HasNext:   s.query.HasNext(),
		Items:     s.query.Items(),
	}
}

func (s *GalleryService) infoFromResponse(log *slog.Logger, resp sdapi.GenerationResponse, index int) (models.PngInfo, bool) {
	infotexts, err := resp.Infotexts()
	if err != nil {
		log.Warn("failed to decode generation info", sl.Err(err))
		return models.PngInfo{}, false
	}
	if index >= len(infotexts) || infotexts[index] == "" {
		return models.PngInfo{}, false
	}

	return pngtext.ParseParameters(infotexts[index]), true
}

// decodeImage принимает base64 с data-URL префиксом и без него
func decodeImage(payload string) ([]byte, error) {
	if _, rest, ok := strings.Cut(payload, ";base64,"); ok && strings.HasPrefix(payload, "data:") {
		payload = rest
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")) {
		return nil, ErrInvalidImage
	}

	return data, nil
}
