package pngtext

import (
	"strconv"
	"strings"

	"sdgallery/internal/domain/models"
)

const negativePromptLabel = "Negative prompt:"

type property struct {
	label string
	set   func(info *models.PngInfo, value string)
}

// properties - известные ключи строки настроек. Метки включают двоеточие,
// чтобы "Model:" не находилась внутри "Model hash:".
var properties = []property{
	{"Steps:", func(i *models.PngInfo, v string) { i.Steps = atoi(v, i.Steps) }},
	{"Sampler:", func(i *models.PngInfo, v string) { i.Sampler = v }},
	{"CFG scale:", func(i *models.PngInfo, v string) { i.CFG = atof(v, i.CFG) }},
	{"Seed:", func(i *models.PngInfo, v string) { i.Seed = atoi64(v, i.Seed) }},
	{"Size:", setSize},
	{"Model hash:", func(i *models.PngInfo, v string) { i.ModelHash = v }},
	{"Model:", func(i *models.PngInfo, v string) { i.ModelName = v }},
	{"Face restoration:", func(i *models.PngInfo, v string) {
		i.RestoreFaces = true
		i.FaceRestoration = v
	}},
	{"Denoising strength:", func(i *models.PngInfo, v string) { i.DenoisingStrength = atof(v, i.DenoisingStrength) }},
	{"Hires upscale:", func(i *models.PngInfo, v string) { i.HiresUpscale = atof(v, i.HiresUpscale) }},
	{"Hires steps:", func(i *models.PngInfo, v string) { i.HiresSteps = atoi(v, i.HiresSteps) }},
}

// ParseParameters делит текст параметров на промпт, негативный промпт и
// строку настроек через запятую.
//
// Строка настроек начинается с наименьшего из последних вхождений известных
// ключей. Ключ, повторённый в промпте, не мешает, пока он есть и в строке
// настроек. Если же в промпте встречается, например, "Seed:", а в настройках
// Seed нет, граница уезжает внутрь промпта.
func ParseParameters(text string) models.PngInfo {
	info := models.DefaultPngInfo()
	info.Raw = text

	boundary := -1
	for _, p := range properties {
		i := strings.LastIndex(text, p.label)
		if i >= 0 && (boundary < 0 || i < boundary) {
			boundary = i
		}
	}
	if boundary < 0 {
		return info
	}

	promptEnd := boundary
	if neg := strings.Index(text, negativePromptLabel); neg >= 0 && neg < boundary {
		promptEnd = neg
		info.NegativePrompt = strings.TrimSpace(text[neg+len(negativePromptLabel) : boundary])
	}
	info.Prompt = strings.TrimSpace(text[:promptEnd])

	for _, segment := range strings.Split(text[boundary:], ",") {
		key, value, ok := strings.Cut(segment, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key) + ":"
		value = strings.TrimSpace(value)

		for _, p := range properties {
			if p.label == key {
				p.set(&info, value)
				break
			}
		}
	}

	return info
}

// Parse извлекает и разбирает параметры PNG за один шаг.
func Parse(data []byte) (models.PngInfo, bool) {
	text, ok := ExtractParameterText(data)
	if !ok {
		return models.DefaultPngInfo(), false
	}
	return ParseParameters(text), true
}

func setSize(i *models.PngInfo, v string) {
	w, h, ok := strings.Cut(v, "x")
	if !ok {
		return
	}
	i.Width = atoi(w, i.Width)
	i.Height = atoi(h, i.Height)
}

func atoi(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

func atoi64(s string, fallback int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func atof(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fallback
	}
	return f
}
