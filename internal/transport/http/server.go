package http

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"sdgallery/internal/client/sdapi"
	"sdgallery/internal/domain/models"
	"sdgallery/internal/lib/logger/sl"
	galleryquery "sdgallery/internal/services/gallery_query"
	services "sdgallery/internal/services/gallery_service"
	imagestore "sdgallery/internal/services/image_store"
	"sdgallery/internal/storage"
	filestorage "sdgallery/internal/storage/filestorage"
	"sdgallery/internal/transport/http/dto"
	"sdgallery/internal/transport/http/dto/response"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type GalleryService interface {
	Open(ctx context.Context, filter galleryquery.Filter) services.GalleryView
	OpenPage(ctx context.Context, filter galleryquery.Filter, n int) services.GalleryView
	Page(ctx context.Context, n int) services.GalleryView
	Next(ctx context.Context) services.GalleryView
	Prev(ctx context.Context) services.GalleryView
	View() services.GalleryView
	SaveGeneration(ctx context.Context, req services.SaveGenerationRequest) (imagestore.Cursor, error)
	ImportPNG(ctx context.Context, data []byte) (imagestore.Cursor, error)
	PngInfo(data []byte) (models.PngInfo, bool)
	Delete(ctx context.Context, id uuid.UUID) error
	AddTag(ctx context.Context, id uuid.UUID, tag string) (bool, error)
	RemoveTag(ctx context.Context, id uuid.UUID, tag string) (bool, error)
	Image(id uuid.UUID) (services.ImageView, error)
	Export(ctx context.Context, id uuid.UUID) (services.ExportResult, error)
	Tags() []imagestore.TagCount
}

type GenerationBackend interface {
	Txt2Img(ctx context.Context, req sdapi.Txt2ImgRequest) (*sdapi.GenerationResponse, error)
	Img2Img(ctx context.Context, req sdapi.Img2ImgRequest) (*sdapi.GenerationResponse, error)
}

type Routers struct {
	log            *slog.Logger
	GalleryService GalleryService
	Backend        GenerationBackend
}

func NewRouter(log *slog.Logger, galleryService GalleryService, backend GenerationBackend) *Routers {
	return &Routers{
		log:            log,
		GalleryService: galleryService,
		Backend:        backend,
	}
}

// Register вешает маршруты галереи на группу /api/v1
func (r *Routers) Register(api *echo.Group) {
	gallery := api.Group("/gallery")
	{
		gallery.GET("", r.GetGallery)
		gallery.POST("/next", r.NextPage)
		gallery.POST("/prev", r.PrevPage)
	}

	api.GET("/tags", r.ListTags)
	api.POST("/pnginfo", r.PngInfo)

	images := api.Group("/images")
	{
		images.POST("", r.SaveImage)
		images.POST("/import", r.ImportImage)
		images.GET("/:id", r.GetImage)
		images.GET("/:id/data", r.GetImageData)
		images.DELETE("/:id", r.DeleteImage)
		images.POST("/:id/tags", r.AddTag)
		images.DELETE("/:id/tags/:tag", r.RemoveTag)
		images.POST("/:id/export", r.ExportImage)
	}

	generate := api.Group("/generate")
	{
		generate.POST("/txt2img", r.Txt2Img)
		generate.POST("/img2img", r.Img2Img)
	}
}

// GetGallery godoc
// @Summary Страница галереи
// @Description Применяет фильтр и/или переходит на страницу. Без filter остаётся текущий фильтр.
// @Tags gallery
// @Produce json
// @Param filter query string false "__none__, __all__ или тег"
// @Param page query int false "Номер страницы с 1"
// @Success 200 {object} response.Response{data=dto.GalleryPageResponse}
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/gallery [get]
func (r *Routers) GetGallery(c echo.Context) error {
	const op = "http.routers.GetGallery"

	log := r.log.With(
		slog.String("op", op),
	)

	var req dto.GalleryQuery
	if err := c.Bind(&req); err != nil {
		log.Warn("failed to bind request", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	}

	ctx := c.Request().Context()

	var view services.GalleryView
	switch {
	case c.QueryParams().Has("filter") && req.Page > 0:
		view = r.GalleryService.OpenPage(ctx, galleryquery.ParseFilter(req.Filter), req.Page)
	case c.QueryParams().Has("filter"):
		view = r.GalleryService.Open(ctx, galleryquery.ParseFilter(req.Filter))
	case req.Page > 0:
		view = r.GalleryService.Page(ctx, req.Page)
	default:
		view = r.GalleryService.Page(ctx, r.GalleryService.View().Page)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(toPageResponse(view)))
}

// NextPage godoc
// @Summary Следующая страница
// @Tags gallery
// @Produce json
// @Success 200 {object} response.Response{data=dto.GalleryPageResponse}
// @Router /api/v1/gallery/next [post]
func (r *Routers) NextPage(c echo.Context) error {
	view := r.GalleryService.Next(c.Request().Context())
	return c.JSON(http.StatusOK, response.SuccessResponse(toPageResponse(view)))
}

// PrevPage godoc
// @Summary Предыдущая страница
// @Tags gallery
// @Produce json
// @Success 200 {object} response.Response{data=dto.GalleryPageResponse}
// @Router /api/v1/gallery/prev [post]
func (r *Routers) PrevPage(c echo.Context) error {
	view := r.GalleryService.Prev(c.Request().Context())
	return c.JSON(http.StatusOK, response.SuccessResponse(toPageResponse(view)))
}

// ListTags godoc
// @Summary Теги и число изображений с ними
// @Tags gallery
// @Produce json
// @Success 200 {object} response.Response{data=[]dto.TagCountResponse}
// @Router /api/v1/tags [get]
func (r *Routers) ListTags(c echo.Context) error {
	tags := r.GalleryService.Tags()

	out := make([]dto.TagCountResponse, len(tags))
	for i, t := range tags {
		out[i] = dto.TagCountResponse{Tag: t.Tag, Count: t.Count}
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(out))
}

// GetImage godoc
// @Summary Изображение с метаданными и соседями в текущей выборке
// @Tags images
// @Produce json
// @Param id path string true "UUID изображения"
// @Success 200 {object} response.Response{data=dto.ImageResponse}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/images/{id} [get]
func (r *Routers) GetImage(c echo.Context) error {
	const op = "http.routers.GetImage"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidImageID)
	}

	view, err := r.GalleryService.Image(id)
	if err != nil {
		return r.handleError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(toImageResponse(view)))
}

// GetImageData godoc
// @Summary PNG изображения
// @Tags images
// @Produce png
// @Param id path string true "UUID изображения"
// @Success 200 {file} binary
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/images/{id}/data [get]
func (r *Routers) GetImageData(c echo.Context) error {
	const op = "http.routers.GetImageData"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidImageID)
	}

	view, err := r.GalleryService.Image(id)
	if err != nil {
		return r.handleError(c, log, err)
	}

	c.Response().Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	return c.Blob(http.StatusOK, "image/png", view.Record.Data)
}

// SaveImage godoc
// @Summary Сохранить изображение из ответа генерации
// @Tags images
// @Accept json
// @Produce json
// @Param request body dto.SaveImageRequest true "Ответ API генерации и индекс изображения"
// @Success 201 {object} response.Response{data=dto.ImageResponse}
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /api/v1/images [post]
func (r *Routers) SaveImage(c echo.Context) error {
	const op = "http.routers.SaveImage"

	log := r.log.With(
		slog.String("op", op),
	)

	var req dto.SaveImageRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("failed to bind request", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	}

	var input []byte
	if req.InputImage != "" {
		var err error
		input, err = base64.StdEncoding.DecodeString(req.InputImage)
		if err != nil {
			return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", "input_image is not base64"))
		}
	}

	cursor, err := r.GalleryService.SaveGeneration(c.Request().Context(), services.SaveGenerationRequest{
		Response:        sdapi.GenerationResponse{Images: req.Images, Info: req.Info},
		Index:           req.Index,
		InputImage:      input,
		InputResizeMode: req.InputResizeMode,
		ScriptName:      req.ScriptName,
		ScriptArgs:      req.ScriptArgs,
	})
	if err != nil {
		return r.handleError(c, log, err)
	}

	return r.createdImage(c, log, cursor.Record.UUID)
}

// ImportImage godoc
// @Summary Импорт PNG
// @Description Параметры генерации читаются из tEXt блока parameters
// @Tags images
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PNG файл"
// @Success 201 {object} response.Response{data=dto.ImageResponse}
// @Failure 400 {object} response.ErrorResponse
// @Failure 413 {object} response.ErrorResponse
// @Router /api/v1/images/import [post]
func (r *Routers) ImportImage(c echo.Context) error {
	const op = "http.routers.ImportImage"

	log := r.log.With(
		slog.String("op", op),
	)

	data, err := r.readPNG(c)
	if err != nil {
		return r.handleError(c, log, err)
	}

	cursor, err := r.GalleryService.ImportPNG(c.Request().Context(), data)
	if err != nil {
		return r.handleError(c, log, err)
	}

	return r.createdImage(c, log, cursor.Record.UUID)
}

// DeleteImage godoc
// @Summary Удалить изображение
// @Tags images
// @Produce json
// @Param id path string true "UUID изображения"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /api/v1/images/{id} [delete]
func (r *Routers) DeleteImage(c echo.Context) error {
	const op = "http.routers.DeleteImage"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidImageID)
	}

	if err := r.GalleryService.Delete(c.Request().Context(), id); err != nil {
		return r.handleError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.Response{
		Status:  "success",
		Message: "image deleted",
	})
}

// AddTag godoc
// @Summary Добавить тег
// @Tags images
// @Accept json
// @Produce json
// @Param id path string true "UUID изображения"
// @Param request body dto.TagRequest true "Тег"
// @Success 200 {object} response.Response{data=dto.TagChangeResponse}
// @Router /api/v1/images/{id}/tags [post]
func (r *Routers) AddTag(c echo.Context) error {
	const op = "http.routers.AddTag"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidImageID)
	}

	var req dto.TagRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	}

	changed, err := r.GalleryService.AddTag(c.Request().Context(), id, req.Tag)
	if err != nil {
		return r.handleError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.TagChangeResponse{Changed: changed}))
}

// RemoveTag godoc
// @Summary Снять тег
// @Tags images
// @Produce json
// @Param id path string true "UUID изображения"
// @Param tag path string true "Тег"
// @Success 200 {object} response.Response{data=dto.TagChangeResponse}
// @Router /api/v1/images/{id}/tags/{tag} [delete]
func (r *Routers) RemoveTag(c echo.Context) error {
	const op = "http.routers.RemoveTag"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidImageID)
	}

	// echo матчит по RawPath, если он задан; тогда параметр не раскодирован
	tag := c.Param("tag")
	if c.Request().URL.RawPath != "" {
		if tag, err = url.PathUnescape(tag); err != nil {
			return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", "tag is not a valid path segment"))
		}
	}

	changed, err := r.GalleryService.RemoveTag(c.Request().Context(), id, tag)
	if err != nil {
		return r.handleError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.TagChangeResponse{Changed: changed}))
}

// ExportImage godoc
// @Summary Экспорт PNG в каталог экспорта
// @Tags images
// @Produce json
// @Param id path string true "UUID изображения"
// @Success 200 {object} response.Response{data=dto.ExportResponse}
// @Router /api/v1/images/{id}/export [post]
func (r *Routers) ExportImage(c echo.Context) error {
	const op = "http.routers.ExportImage"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidImageID)
	}

	res, err := r.GalleryService.Export(c.Request().Context(), id)
	if err != nil {
		return r.handleError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.ExportResponse{
		Path: res.Path,
		URL:  res.URL,
		Size: res.Size,
	}))
}

// PngInfo godoc
// @Summary Разобрать параметры PNG без сохранения
// @Tags images
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PNG файл"
// @Success 200 {object} response.Response{data=dto.PngInfoResponse}
// @Router /api/v1/pnginfo [post]
func (r *Routers) PngInfo(c echo.Context) error {
	const op = "http.routers.PngInfo"

	log := r.log.With(
		slog.String("op", op),
	)

	data, err := r.readPNG(c)
	if err != nil {
		return r.handleError(c, log, err)
	}

	info, found := r.GalleryService.PngInfo(data)

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.PngInfoResponse{Found: found, Info: info}))
}

// Txt2Img godoc
// @Summary Генерация по тексту
// @Description Проксирует запрос в API генерации. С save=true все изображения сохраняются в галерею.
// @Tags generate
// @Accept json
// @Produce json
// @Param save query bool false "Сохранить результат"
// @Param request body sdapi.Txt2ImgRequest true "Параметры генерации"
// @Success 200 {object} response.Response{data=dto.GenerateResponse}
// @Failure 502 {object} response.ErrorResponse
// @Router /api/v1/generate/txt2img [post]
func (r *Routers) Txt2Img(c echo.Context) error {
	const op = "http.routers.Txt2Img"

	log := r.log.With(
		slog.String("op", op),
	)

	var req sdapi.Txt2ImgRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	resp, err := r.Backend.Txt2Img(c.Request().Context(), req)
	if err != nil {
		return r.handleError(c, log, err)
	}

	return r.generated(c, log, resp, services.SaveGenerationRequest{
		ScriptName: req.ScriptName,
		ScriptArgs: req.ScriptArgs,
	})
}

// Img2Img godoc
// @Summary Генерация по изображению
// @Tags generate
// @Accept json
// @Produce json
// @Param save query bool false "Сохранить результат"
// @Param request body sdapi.Img2ImgRequest true "Параметры генерации"
// @Success 200 {object} response.Response{data=dto.GenerateResponse}
// @Failure 502 {object} response.ErrorResponse
// @Router /api/v1/generate/img2img [post]
func (r *Routers) Img2Img(c echo.Context) error {
	const op = "http.routers.Img2Img"

	log := r.log.With(
		slog.String("op", op),
	)

	var req sdapi.Img2ImgRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if len(req.InitImages) == 0 {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", "init_images is required"))
	}

	input, err := base64.StdEncoding.DecodeString(req.InitImages[0])
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", "init_images[0] is not base64"))
	}

	resp, err := r.Backend.Img2Img(c.Request().Context(), req)
	if err != nil {
		return r.handleError(c, log, err)
	}

	resizeMode := req.ResizeMode
	return r.generated(c, log, resp, services.SaveGenerationRequest{
		InputImage:      input,
		InputResizeMode: &resizeMode,
		ScriptName:      req.ScriptName,
		ScriptArgs:      req.ScriptArgs,
	})
}

func (r *Routers) generated(c echo.Context, log *slog.Logger, resp *sdapi.GenerationResponse, save services.SaveGenerationRequest) error {
	out := dto.GenerateResponse{
		Images: resp.Images,
		Info:   resp.Info,
	}

	if ok, _ := strconv.ParseBool(c.QueryParam("save")); ok {
		save.Response = *resp
		for i := range resp.Images {
			save.Index = i
			cursor, err := r.GalleryService.SaveGeneration(c.Request().Context(), save)
			if err != nil {
				return r.handleError(c, log, err)
			}
			out.Saved = append(out.Saved, toSummary(cursor.Record, uuid.Nil, uuid.Nil))
		}
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(out))
}

func (r *Routers) createdImage(c echo.Context, log *slog.Logger, id uuid.UUID) error {
	view, err := r.GalleryService.Image(id)
	if err != nil {
		return r.handleError(c, log, err)
	}

	return c.JSON(http.StatusCreated, response.SuccessResponse(toImageResponse(view)))
}

func (r *Routers) readPNG(c echo.Context) ([]byte, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}

	return filestorage.ReadPNG(file)
}

// handleError отображает ошибки сервисов в HTTP-статусы
func (r *Routers) handleError(c echo.Context, log *slog.Logger, err error) error {
	var (
		apiErr  *sdapi.APIError
		httpErr *echo.HTTPError
	)

	switch {
	case errors.As(err, &httpErr):
		return c.JSON(httpErr.Code, response.ErrorResponseWithDetails("invalid_request", httpErr.Error()))
	case errors.Is(err, storage.ErrNotFound):
		return c.JSON(http.StatusNotFound, response.ErrImageNotFound)
	case errors.Is(err, storage.ErrDuplicateKey):
		return c.JSON(http.StatusConflict, response.ErrImageAlreadyExists)
	case errors.Is(err, services.ErrNoImage), errors.Is(err, services.ErrInvalidImage), errors.Is(err, storage.ErrInvalidFileType):
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails(response.ErrInvalidImage.Error, err.Error()))
	case errors.Is(err, storage.ErrFileTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
	case storage.IsStorageError(err):
		log.Error("storage failure", sl.Err(err))
		return c.JSON(http.StatusServiceUnavailable, response.ErrStorageUnavailable)
	case errors.As(err, &apiErr):
		log.Warn("backend request failed", sl.Err(err))
		return c.JSON(http.StatusBadGateway, response.ErrorResponseWithDetails(response.ErrBackendFailed.Error, apiErr.Body))
	default:
		log.Error("request failed", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrInternal)
	}
}

func toPageResponse(view services.GalleryView) dto.GalleryPageResponse {
	items := make([]dto.ImageSummary, len(view.Items))
	for i, item := range view.Items {
		items[i] = toSummary(item.Record, item.Prev, item.Next)
	}

	return dto.GalleryPageResponse{
		Filter:    view.Filter.String(),
		Page:      view.Page,
		PageCount: view.PageCount,
		Total:     view.Total,
		HasPrev:   view.HasPrev,
		HasNext:   view.HasNext,
		Items:     items,
		Slots:     view.Slots,
		Rendered:  view.Rendered,
	}
}

func toSummary(r models.ImageRecord, prev, next uuid.UUID) dto.ImageSummary {
	return dto.ImageSummary{
		UUID:      r.UUID,
		Timestamp: r.Timestamp,
		Imported:  r.Imported,
		Tags:      r.Tags,
		Prompt:    r.Prompt,
		Width:     r.Width,
		Height:    r.Height,
		Seed:      r.Seed,
		ModelName: r.ModelName,
		Prev:      prev,
		Next:      next,
	}
}

func toImageResponse(view services.ImageView) dto.ImageResponse {
	r := view.Record

	resp := dto.ImageResponse{
		UUID:            r.UUID,
		Timestamp:       r.Timestamp,
		Imported:        r.Imported,
		Tags:            r.Tags,
		Prompt:          r.Prompt,
		NegativePrompt:  r.NegativePrompt,
		Width:           r.Width,
		Height:          r.Height,
		Steps:           r.Steps,
		CFG:             r.CFG,
		Seed:            r.Seed,
		Sampler:         r.Sampler,
		ModelHash:       r.ModelHash,
		ModelName:       r.ModelName,
		HasInputImage:   len(r.InputImage) > 0,
		InputResizeMode: r.InputResizeMode,
		ScriptName:      r.ScriptName,
		ScriptArgs:      r.ScriptArgs,
		Aspect:          view.Aspect,
		DataURL:         "/api/v1/images/" + r.UUID.String() + "/data",
		InSelection:     view.InSelection,
	}

	if view.Prev != uuid.Nil {
		prev := view.Prev
		resp.Prev = &prev
	}
	if view.Next != uuid.Nil {
		next := view.Next
		resp.Next = &next
	}

	return resp
}
