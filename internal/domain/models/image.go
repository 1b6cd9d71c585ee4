package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// ScriptArgs хранит аргументы скрипта генерации в виде JSON-массива
type ScriptArgs []interface{}

// ImageRecord представляет сохранённое сгенерированное или импортированное изображение.
// После сохранения запись неизменяема, кроме списка тегов.
type ImageRecord struct {
	UUID      uuid.UUID `json:"uuid" db:"uuid"`
	Data      []byte    `json:"data" db:"data"`
	Timestamp time.Time `json:"timestamp" db:"created_at"`
	Imported  bool      `json:"imported" db:"imported"`
	Tags      []string  `json:"tags,omitempty" db:"tags"`

	Prompt         string  `json:"prompt" db:"prompt"`
	NegativePrompt string  `json:"negative_prompt" db:"negative_prompt"`
	Width          int     `json:"width" db:"width"`
	Height         int     `json:"height" db:"height"`
	Steps          int     `json:"steps" db:"steps"`
	CFG            float64 `json:"cfg" db:"cfg"`
	Seed           int64   `json:"seed" db:"seed"`
	Sampler        string  `json:"sampler" db:"sampler"`
	ModelHash      string  `json:"model_hash" db:"model_hash"`
	ModelName      string  `json:"model_name" db:"model_name"`

	// img2img provenance
	InputImage      []byte `json:"input_image,omitempty" db:"input_image"`
	InputResizeMode *int   `json:"input_resize_mode,omitempty" db:"input_resize_mode"`

	ScriptName string     `json:"script_name,omitempty" db:"script_name"`
	ScriptArgs ScriptArgs `json:"script_args,omitempty" db:"script_args"`
}

// NewImageRecord собирает запись из PNG и разобранных параметров генерации
func NewImageRecord(data []byte, info PngInfo, imported bool) ImageRecord {
	return ImageRecord{
		UUID:           uuid.New(),
		Data:           data,
		Timestamp:      time.Now().UTC(),
		Imported:       imported,
		Prompt:         info.Prompt,
		NegativePrompt: info.NegativePrompt,
		Width:          info.Width,
		Height:         info.Height,
		Steps:          info.Steps,
		CFG:            info.CFG,
		Seed:           info.Seed,
		Sampler:        info.Sampler,
		ModelHash:      info.ModelHash,
		ModelName:      info.ModelName,
	}
}

// HasTag сообщает, помечена ли запись тегом
func (r *ImageRecord) HasTag(tag string) bool {
	return slices.Contains(r.Tags, tag)
}

// Clone возвращает копию записи с собственным срезом тегов.
// Данные изображения не копируются: они неизменяемы.
func (r ImageRecord) Clone() ImageRecord {
	r.Tags = slices.Clone(r.Tags)
	return r
}

// Value реализует driver.Valuer для сериализации ScriptArgs в JSONB
func (a ScriptArgs) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan реализует sql.Scanner для десериализации JSONB в ScriptArgs
func (a *ScriptArgs) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("unsupported script args type %T", value)
	}
}
