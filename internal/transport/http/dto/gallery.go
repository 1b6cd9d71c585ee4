package dto

import (
	"time"

	"sdgallery/internal/domain/models"
	"sdgallery/internal/services/renderer"

	"github.com/google/uuid"
)

// GalleryQuery параметры GET /gallery
type GalleryQuery struct {
	Filter string `query:"filter"`                // "__none__", "__all__" или тег
	Page   int    `query:"page" validate:"gte=0"` // 0 — текущая страница
}

// GalleryPageResponse текущая страница галереи и отрисованная сетка
type GalleryPageResponse struct {
	Filter    string          `json:"filter"`     // Применённый фильтр (после отката на __none__)
	Page      int             `json:"page"`       // Номер страницы с 1
	PageCount int             `json:"page_count"` // Не меньше 1
	Total     int             `json:"total"`      // Записей в выборке
	HasPrev   bool            `json:"has_prev"`
	HasNext   bool            `json:"has_next"`
	Items     []ImageSummary  `json:"items"`
	Slots     []renderer.Slot `json:"slots"`
	Rendered  bool            `json:"rendered"` // false — отрисовку вытеснил более новый запрос
}

// ImageSummary запись без данных изображения
type ImageSummary struct {
	UUID      uuid.UUID `json:"uuid"`
	Timestamp time.Time `json:"timestamp"`
	Imported  bool      `json:"imported"`
	Tags      []string  `json:"tags"`
	Prompt    string    `json:"prompt"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Seed      int64     `json:"seed"`
	ModelName string    `json:"model_name"`
	Prev      uuid.UUID `json:"prev"` // Сосед в выборке, uuid.Nil у крайних
	Next      uuid.UUID `json:"next"`
}

// ImageResponse полная запись для просмотра одного изображения
type ImageResponse struct {
	UUID            uuid.UUID         `json:"uuid"`
	Timestamp       time.Time         `json:"timestamp"`
	Imported        bool              `json:"imported"`
	Tags            []string          `json:"tags"`
	Prompt          string            `json:"prompt"`
	NegativePrompt  string            `json:"negative_prompt"`
	Width           int               `json:"width"`
	Height          int               `json:"height"`
	Steps           int               `json:"steps"`
	CFG             float64           `json:"cfg"`
	Seed            int64             `json:"seed"`
	Sampler         string            `json:"sampler"`
	ModelHash       string            `json:"model_hash"`
	ModelName       string            `json:"model_name"`
	HasInputImage   bool              `json:"has_input_image"`
	InputResizeMode *int              `json:"input_resize_mode,omitempty"`
	ScriptName      string            `json:"script_name,omitempty"`
	ScriptArgs      models.ScriptArgs `json:"script_args,omitempty"`
	Aspect          renderer.Aspect   `json:"aspect"`
	DataURL         string            `json:"data_url"`
	InSelection     bool              `json:"in_selection"`
	Prev            *uuid.UUID        `json:"prev,omitempty"`
	Next            *uuid.UUID        `json:"next,omitempty"`
}

// SaveImageRequest сохраняет одно изображение из ответа txt2img/img2img
type SaveImageRequest struct {
	Images          []string          `json:"images" validate:"required,min=1"`
	Info            string            `json:"info"`
	Index           int               `json:"index" validate:"gte=0"`
	InputImage      string            `json:"input_image"` // base64, для img2img
	InputResizeMode *int              `json:"input_resize_mode" validate:"omitempty,gte=0,lte=3"`
	ScriptName      string            `json:"script_name"`
	ScriptArgs      models.ScriptArgs `json:"script_args"`
}

type TagRequest struct {
	Tag string `json:"tag" validate:"required,max=64"`
}

type TagChangeResponse struct {
	Changed bool `json:"changed"`
}

type TagCountResponse struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type ExportResponse struct {
	Path string `json:"path"`
	URL  string `json:"url,omitempty"`
	Size int64  `json:"size"`
}

type PngInfoResponse struct {
	Found bool           `json:"found"` // false — блока parameters нет, поля по умолчанию
	Info  models.PngInfo `json:"info"`
}

// GenerateResponse ответ API генерации; Saved заполняется при ?save=true
type GenerateResponse struct {
	Images []string       `json:"images"`
	Info   string         `json:"info"`
	Saved  []ImageSummary `json:"saved,omitempty"`
}
