package galleryquery

import (
	"sdgallery/internal/domain/models"
)

type Kind int

const (
	// KindNoTag выбирает записи без тегов
	KindNoTag Kind = iota
	KindAllTags
	KindTag
)

// Значения фильтра в query-параметрах
const (
	NoTagParam   = "__none__"
	AllTagsParam = "__all__"
)

type Filter struct {
	Kind Kind
	Tag  string
}

func NoTag() Filter {
	return Filter{Kind: KindNoTag}
}

func AllTags() Filter {
	return Filter{Kind: KindAllTags}
}

func ByTag(tag string) Filter {
	if tag == "" {
		return NoTag()
	}
	return Filter{Kind: KindTag, Tag: tag}
}

// ParseFilter разбирает фильтр из строки запроса. Пустая строка — NoTag.
func ParseFilter(s string) Filter {
	switch s {
	case "", NoTagParam:
		return NoTag()
	case AllTagsParam:
		return AllTags()
	default:
		return ByTag(s)
	}
}

func (f Filter) String() string {
	switch f.Kind {
	case KindAllTags:
		return AllTagsParam
	case KindTag:
		return f.Tag
	default:
		return NoTagParam
	}
}

func (f Filter) Match(image models.ImageRecord) bool {
	switch f.Kind {
	case KindAllTags:
		return true
	case KindTag:
		return image.HasTag(f.Tag)
	default:
		return len(image.Tags) == 0
	}
}
