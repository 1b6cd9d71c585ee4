package models

// PngInfo содержит параметры генерации, извлечённые из текстового блока PNG.
// Не хранится отдельно от записи изображения.
type PngInfo struct {
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	Steps             int     `json:"steps"`
	CFG               float64 `json:"cfg"`
	Seed              int64   `json:"seed"`
	Sampler           string  `json:"sampler"`
	ModelHash         string  `json:"model_hash"`
	ModelName         string  `json:"model_name"`
	RestoreFaces      bool    `json:"restore_faces"`
	FaceRestoration   string  `json:"face_restoration,omitempty"`
	DenoisingStrength float64 `json:"denoising_strength,omitempty"`
	HiresUpscale      float64 `json:"hires_upscale,omitempty"`
	HiresSteps        int     `json:"hires_steps,omitempty"`

	// Raw исходный текст параметров без разбора
	Raw string `json:"raw,omitempty"`
}

// DefaultPngInfo возвращает значения по умолчанию для неразобранных полей
func DefaultPngInfo() PngInfo {
	return PngInfo{
		Width:  512,
		Height: 512,
		Steps:  20,
		CFG:    7,
		Seed:   -1,
	}
}
