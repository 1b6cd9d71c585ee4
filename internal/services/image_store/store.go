// Package imagestore держит в памяти сохранённые изображения: цепочку
// записей от новых к старым, индекс по id и индекс тегов. Всё состояние
// зеркалирует ImageRepository.
package imagestore

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"sdgallery/internal/domain/models"
	"sdgallery/internal/lib/logger/sl"
	"sdgallery/internal/metrics"
	"sdgallery/internal/repository"
	"sdgallery/internal/storage"

	"github.com/google/uuid"
)

const nilIndex = -1

// Cursor - снимок записи и её соседей в цепочке.
// Prev - более новый сосед, Next - более старый; uuid.Nil на концах.
type Cursor struct {
	Record models.ImageRecord
	Prev   uuid.UUID
	Next   uuid.UUID
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type node struct {
	record models.ImageRecord
	prev   int
	next   int
}

// chain - арена узлов, связанных индексами. Освобождённые слоты переиспользуются.
type chain struct {
	nodes []node
	free  []int
	head  int
	tail  int
	index map[uuid.UUID]int
	tags  map[string]int
}

func newChain(capacity int) *chain {
	return &chain{
		nodes: make([]node, 0, capacity),
		head:  nilIndex,
		tail:  nilIndex,
		index: make(map[uuid.UUID]int, capacity),
		tags:  make(map[string]int),
	}
}

type Store struct {
	log  *slog.Logger
	repo repository.ImageRepository

	// writeMu сериализует изменения вместе с вызовом репозитория
	writeMu sync.Mutex
	mu      sync.RWMutex
	c       *chain
}

func New(log *slog.Logger, repo repository.ImageRepository) *Store {
	return &Store{
		log:  log,
		repo: repo,
		c:    newChain(0),
	}
}

// LoadAll заменяет состояние в памяти содержимым репозитория.
func (s *Store) LoadAll(ctx context.Context) ([]Cursor, error) {
	const op = "imagestore.Store.LoadAll"

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	images, err := s.repo.ListImages(ctx)
	if err != nil {
		metrics.StoreOperations.WithLabelValues("load", "error").Inc()
		s.log.Error("failed to load images", slog.String("op", op), sl.Err(err))
		return nil, storage.Wrap(op, err)
	}

	// ListImages уже сортирует по времени, но порядок цепочки не должен
	// зависеть от драйвера.
	sort.SliceStable(images, func(i, j int) bool {
		return images[i].Timestamp.After(images[j].Timestamp)
	})

	c := newChain(len(images))
	for _, image := range images {
		if _, dup := c.index[image.UUID]; dup {
			continue
		}
		image = image.Clone()
		image.Tags = uniqueTags(image.Tags)
		c.pushBack(image)
	}

	s.mu.Lock()
	s.c = c
	cursors := c.cursors()
	s.mu.Unlock()

	metrics.StoreOperations.WithLabelValues("load", "ok").Inc()
	s.log.Debug("images loaded", slog.String("op", op), slog.Int("count", len(cursors)))

	return cursors, nil
}

func (s *Store) Has(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.c.index[id]
	return ok
}

func (s *Store) Get(id uuid.UUID) (Cursor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.c.index[id]
	if !ok {
		return Cursor{}, false
	}
	return s.c.cursor(i), true
}

// Add сохраняет изображение и делает его головой цепочки.
func (s *Store) Add(ctx context.Context, image models.ImageRecord) (Cursor, error) {
	const op = "imagestore.Store.Add"

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.Has(image.UUID) {
		metrics.StoreOperations.WithLabelValues("add", "duplicate").Inc()
		return Cursor{}, storage.Wrap(op, storage.ErrDuplicateKey)
	}

	image = image.Clone()
	image.Tags = uniqueTags(image.Tags)
	if err := s.repo.CreateImage(ctx, image); err != nil {
		metrics.StoreOperations.WithLabelValues("add", "error").Inc()
		s.log.Warn("failed to add image", slog.String("op", op), slog.String("uuid", image.UUID.String()), sl.Err(err))
		return Cursor{}, storage.Wrap(op, err)
	}

	s.mu.Lock()
	i := s.c.pushFront(image)
	cursor := s.c.cursor(i)
	s.mu.Unlock()

	metrics.StoreOperations.WithLabelValues("add", "ok").Inc()
	return cursor, nil
}

// Remove удаляет изображение из репозитория и вырезает его из цепочки.
// Если в репозитории записи уже нет, узел всё равно вырезается, а
// вызывающий получает ErrNotFound.
func (s *Store) Remove(ctx context.Context, id uuid.UUID) error {
	const op = "imagestore.Store.Remove"

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.Has(id) {
		metrics.StoreOperations.WithLabelValues("remove", "not_found").Inc()
		return storage.Wrap(op, storage.ErrNotFound)
	}

	err := s.repo.DeleteImage(ctx, id)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		metrics.StoreOperations.WithLabelValues("remove", "error").Inc()
		s.log.Warn("failed to remove image", slog.String("op", op), slog.String("uuid", id.String()), sl.Err(err))
		return storage.Wrap(op, err)
	}

	s.mu.Lock()
	s.c.unlink(s.c.index[id])
	s.mu.Unlock()

	if err != nil {
		metrics.StoreOperations.WithLabelValues("remove", "not_found").Inc()
		s.log.Warn("image already missing in repository", slog.String("op", op), slog.String("uuid", id.String()))
		return storage.Wrap(op, err)
	}

	metrics.StoreOperations.WithLabelValues("remove", "ok").Inc()
	return nil
}

// AddTag добавляет тег к изображению. Возвращает false, если изображение
// не найдено или тег уже есть.
func (s *Store) AddTag(ctx context.Context, id uuid.UUID, tag string) (bool, error) {
	return s.mutateTags(ctx, "imagestore.Store.AddTag", id, tag, true)
}

// RemoveTag снимает тег с изображения и сообщает, был ли он снят.
func (s *Store) RemoveTag(ctx context.Context, id uuid.UUID, tag string) (bool, error) {
	return s.mutateTags(ctx, "imagestore.Store.RemoveTag", id, tag, false)
}

func (s *Store) mutateTags(ctx context.Context, op string, id uuid.UUID, tag string, add bool) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	i, ok := s.c.index[id]
	var updated models.ImageRecord
	if ok {
		updated = s.c.nodes[i].record.Clone()
	}
	s.mu.RUnlock()

	if !ok || updated.HasTag(tag) == add {
		return false, nil
	}

	if add {
		updated.Tags = append(updated.Tags, tag)
	} else {
		updated.Tags = slices.DeleteFunc(updated.Tags, func(t string) bool { return t == tag })
	}

	if err := s.repo.UpdateTags(ctx, updated); err != nil {
		metrics.StoreOperations.WithLabelValues("tag", "error").Inc()
		s.log.Warn("failed to update tags",
			slog.String("op", op),
			slog.String("uuid", id.String()),
			slog.String("tag", tag),
			sl.Err(err),
		)
		return false, storage.Wrap(op, err)
	}

	s.mu.Lock()
	s.c.nodes[i].record.Tags = updated.Tags
	if add {
		s.c.tags[tag]++
	} else {
		s.c.decTag(tag)
	}
	s.mu.Unlock()

	metrics.StoreOperations.WithLabelValues("tag", "ok").Inc()
	return true, nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.c.index)
}

// Head возвращает самое новое изображение.
func (s *Store) Head() (Cursor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.c.head == nilIndex {
		return Cursor{}, false
	}
	return s.c.cursor(s.c.head), true
}

// Cursors возвращает всю цепочку, от новых к старым.
func (s *Store) Cursors() []Cursor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.c.cursors()
}

// Walk обходит записи от новых к старым, пока fn возвращает true. Записи
// передаются копиями; из fn нельзя вызывать изменяющие методы Store.
func (s *Store) Walk(fn func(models.ImageRecord) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := s.c.head; i != nilIndex; i = s.c.nodes[i].next {
		if !fn(s.c.nodes[i].record.Clone()) {
			return
		}
	}
}

// Tags возвращает индекс тегов, отсортированный по тегу.
func (s *Store) Tags() []TagCount {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tags := make([]TagCount, 0, len(s.c.tags))
	for tag, n := range s.c.tags {
		tags = append(tags, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Tag < tags[j].Tag })

	return tags
}

func (s *Store) TagCount(tag string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.c.tags[tag]
}

// uniqueTags убирает повторы, сохраняя порядок первого вхождения.
func uniqueTags(tags []string) []string {
	if len(tags) < 2 {
		return tags
	}

	seen := make(map[string]struct{}, len(tags))
	out := tags[:0]
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func (c *chain) alloc(image models.ImageRecord) int {
	n := node{record: image, prev: nilIndex, next: nilIndex}
	if len(c.free) > 0 {
		i := c.free[len(c.free)-1]
		c.free = c.free[:len(c.free)-1]
		c.nodes[i] = n
		return i
	}
	c.nodes = append(c.nodes, n)
	return len(c.nodes) - 1
}

func (c *chain) register(i int) {
	image := c.nodes[i].record
	c.index[image.UUID] = i
	for _, tag := range image.Tags {
		c.tags[tag]++
	}
}

func (c *chain) pushFront(image models.ImageRecord) int {
	i := c.alloc(image)
	c.nodes[i].next = c.head
	if c.head != nilIndex {
		c.nodes[c.head].prev = i
	} else {
		c.tail = i
	}
	c.head = i
	c.register(i)
	return i
}

func (c *chain) pushBack(image models.ImageRecord) int {
	i := c.alloc(image)
	c.nodes[i].prev = c.tail
	if c.tail != nilIndex {
		c.nodes[c.tail].next = i
	} else {
		c.head = i
	}
	c.tail = i
	c.register(i)
	return i
}

func (c *chain) unlink(i int) {
	n := c.nodes[i]
	if n.prev != nilIndex {
		c.nodes[n.prev].next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nilIndex {
		c.nodes[n.next].prev = n.prev
	} else {
		c.tail = n.prev
	}

	delete(c.index, n.record.UUID)
	for _, tag := range n.record.Tags {
		c.decTag(tag)
	}

	c.nodes[i] = node{prev: nilIndex, next: nilIndex}
	c.free = append(c.free, i)
}

func (c *chain) decTag(tag string) {
	if c.tags[tag] <= 1 {
		delete(c.tags, tag)
		return
	}
	c.tags[tag]--
}

func (c *chain) id(i int) uuid.UUID {
	if i == nilIndex {
		return uuid.Nil
	}
	return c.nodes[i].record.UUID
}

func (c *chain) cursor(i int) Cursor {
	n := c.nodes[i]
	return Cursor{
		Record: n.record.Clone(),
		Prev:   c.id(n.prev),
		Next:   c.id(n.next),
	}
}

func (c *chain) cursors() []Cursor {
	cursors := make([]Cursor, 0, len(c.index))
	for i := c.head; i != nilIndex; i = c.nodes[i].next {
		cursors = append(cursors, c.cursor(i))
	}
	return cursors
}
