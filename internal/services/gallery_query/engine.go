// Package galleryquery строит отфильтрованную постраничную выборку поверх
// канонической цепочки хранилища. Цепочка выборки всегда пересобирается
// целиком и никогда не патчится.
package galleryquery

import (
	"sync"

	"sdgallery/internal/domain/models"

	"github.com/google/uuid"
)

const DefaultPageSize = 20

// Source — канонический порядок записей, новые первыми
type Source interface {
	Walk(fn func(models.ImageRecord) bool)
}

// Item — запись в отфильтрованной цепочке и её соседи внутри выборки
type Item struct {
	Record models.ImageRecord
	Prev   uuid.UUID
	Next   uuid.UUID
}

type Engine struct {
	mu       sync.RWMutex
	pageSize int
	filter   Filter
	items    []Item
	index    map[uuid.UUID]int
	page     int
}

func New(pageSize int) *Engine {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	return &Engine{
		pageSize: pageSize,
		filter:   NoTag(),
		index:    make(map[uuid.UUID]int),
		page:     1,
	}
}

// Apply пересобирает выборку из src и возвращает применённый фильтр.
// Тег без записей заменяется на NoTag; решение принимается по тому же
// обходу, которым собрана выборка. При смене фильтра страница сбрасывается
// на первую, иначе текущая страница зажимается в допустимый диапазон.
func (e *Engine) Apply(src Source, filter Filter) Filter {
	items := collect(src, filter)
	if filter.Kind == KindTag && len(items) == 0 {
		filter = NoTag()
		items = collect(src, filter)
	}

	index := make(map[uuid.UUID]int, len(items))
	for i := range items {
		index[items[i].Record.UUID] = i
		if i > 0 {
			items[i].Prev = items[i-1].Record.UUID
			items[i-1].Next = items[i].Record.UUID
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if filter != e.filter {
		e.page = 1
	}
	e.filter = filter
	e.items = items
	e.index = index
	e.page = e.clamp(e.page)

	return filter
}

func collect(src Source, filter Filter) []Item {
	var items []Item
	src.Walk(func(image models.ImageRecord) bool {
		if filter.Match(image) {
			items = append(items, Item{Record: image})
		}
		return true
	})
	return items
}

func (e *Engine) Filter() Filter {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.filter
}

func (e *Engine) PageSize() int {
	return e.pageSize
}

func (e *Engine) Page() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.page
}

func (e *Engine) PageCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.pageCount()
}

// Len — число записей в выборке
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.items)
}

// SetPage переходит на страницу n, зажатую в [1, PageCount]
func (e *Engine) SetPage(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.page = e.clamp(n)
	return e.page
}

// GoNext сообщает, сдвинулась ли страница. На последней странице — no-op.
func (e *Engine) GoNext() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.page >= e.pageCount() {
		return false
	}
	e.page++
	return true
}

func (e *Engine) GoPrev() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.page <= 1 {
		return false
	}
	e.page--
	return true
}

func (e *Engine) HasNext() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.page < e.pageCount()
}

func (e *Engine) HasPrev() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.page > 1
}

// Items возвращает записи текущей страницы
func (e *Engine) Items() []Item {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.pageItems(e.page)
}

// PageItems возвращает записи страницы n или nil, если её нет
func (e *Engine) PageItems(n int) []Item {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if n < 1 || n > e.pageCount() {
		return nil
	}
	return e.pageItems(n)
}

// Neighbors возвращает соседей записи внутри выборки
func (e *Engine) Neighbors(id uuid.UUID) (prev, next uuid.UUID, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	i, ok := e.index[id]
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return e.items[i].Prev, e.items[i].Next, true
}

func (e *Engine) pageCount() int {
	n := (len(e.items) + e.pageSize - 1) / e.pageSize
	if n < 1 {
		return 1
	}
	return n
}

func (e *Engine) clamp(n int) int {
	if n < 1 {
		return 1
	}
	if pc := e.pageCount(); n > pc {
		return pc
	}
	return n
}

func (e *Engine) pageItems(n int) []Item {
	start := (n - 1) * e.pageSize
	if start >= len(e.items) {
		return []Item{}
	}
	end := min(start+e.pageSize, len(e.items))

	out := make([]Item, end-start)
	for i := range out {
		item := e.items[start+i]
		item.Record = item.Record.Clone()
		out[i] = item
	}
	return out
}
