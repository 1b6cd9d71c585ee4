// Package renderer отрисовывает страницу галереи в переиспользуемые слоты.
// Каждый вызов Render регистрирует новое задание; живым считается только
// последнее зарегистрированное, устаревшие задания молча прекращаются.
package renderer

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"sdgallery/internal/metrics"

	"github.com/google/uuid"
)

type Aspect string

const (
	Portrait  Aspect = "portrait"
	Landscape Aspect = "landscape"
	Square    Aspect = "square"
)

type Config struct {
	// SquareTolerance — допустимое относительное различие сторон для Square
	SquareTolerance float64
}

// Item — то, что нужно знать о записи для отрисовки
type Item struct {
	ImageID uuid.UUID
	Width   int
	Height  int
}

// Slot — элемент сетки. ID стабилен на всё время жизни рендерера.
type Slot struct {
	ID      int       `json:"id"`
	ImageID uuid.UUID `json:"image_id"`
	Aspect  Aspect    `json:"aspect"`
}

// YieldFunc отдаёт управление планировщику между элементами
type YieldFunc func(ctx context.Context) error

func DefaultYield(ctx context.Context) error {
	runtime.Gosched()
	return ctx.Err()
}

type Renderer struct {
	log   *slog.Logger
	cfg   Config
	yield YieldFunc

	job atomic.Uint64

	mu      sync.Mutex
	visible []*Slot
	pool    []*Slot
	nextID  int
}

func New(log *slog.Logger, cfg Config, yield YieldFunc) *Renderer {
	if yield == nil {
		yield = DefaultYield
	}

	return &Renderer{
		log:   log,
		cfg:   cfg,
		yield: yield,
	}
}

// Register выдаёт новый id задания, делая все предыдущие устаревшими
func (r *Renderer) Register() uint64 {
	return r.job.Add(1)
}

func (r *Renderer) Live(job uint64) bool {
	return r.job.Load() == job
}

// Render регистрирует задание и рисует items. Возвращает false, если
// задание было вытеснено более новым или отменено через ctx.
func (r *Renderer) Render(ctx context.Context, items []Item) bool {
	return r.RenderJob(ctx, r.Register(), items)
}

func (r *Renderer) RenderJob(ctx context.Context, job uint64, items []Item) bool {
	const op = "renderer.Renderer.RenderJob"

	log := r.log.With(
		slog.String("op", op),
		slog.Uint64("job", job),
	)

	metrics.RenderJobs.WithLabelValues("started").Inc()

	for i, item := range items {
		if !r.paint(job, i, item) {
			return r.stop(log, "superseded", i)
		}

		if err := r.yield(ctx); err != nil {
			return r.stop(log, "cancelled", i+1)
		}
	}

	// хвост предыдущей страницы возвращается в пул
	if !r.trim(job, len(items)) {
		return r.stop(log, "superseded", len(items))
	}

	metrics.RenderJobs.WithLabelValues("completed").Inc()
	log.Debug("page rendered", slog.Int("items", len(items)))

	return true
}

// Slots возвращает снимок видимых слотов по порядку
func (r *Renderer) Slots() []Slot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Slot, len(r.visible))
	for i, s := range r.visible {
		out[i] = *s
	}
	return out
}

func (r *Renderer) PoolSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.pool)
}

func (r *Renderer) Aspect(width, height int) Aspect {
	return Classify(width, height, r.cfg.SquareTolerance)
}

// Classify: высота больше ширины — portrait, ширина больше — landscape,
// в пределах tolerance — square.
func Classify(width, height int, tolerance float64) Aspect {
	longest := max(width, height)
	diff := width - height
	if diff < 0 {
		diff = -diff
	}

	if longest <= 0 || float64(diff) <= tolerance*float64(longest) {
		return Square
	}
	if height > width {
		return Portrait
	}
	return Landscape
}

func (r *Renderer) stop(log *slog.Logger, result string, painted int) bool {
	metrics.RenderJobs.WithLabelValues(result).Inc()
	log.Debug("render stopped", slog.String("result", result), slog.Int("painted", painted))
	return false
}

// paint обновляет слот i на месте либо берёт слот из пула. Живость
// проверяется под мьютексом, чтобы устаревшее задание не могло
// перерисовать слот после завершения нового.
func (r *Renderer) paint(job uint64, i int, item Item) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.Live(job) {
		return false
	}

	if i >= len(r.visible) {
		r.visible = append(r.visible, r.acquire())
	}

	slot := r.visible[i]
	slot.ImageID = item.ImageID
	slot.Aspect = r.Aspect(item.Width, item.Height)

	return true
}

func (r *Renderer) acquire() *Slot {
	if n := len(r.pool); n > 0 {
		slot := r.pool[n-1]
		r.pool = r.pool[:n-1]
		return slot
	}

	r.nextID++
	return &Slot{ID: r.nextID}
}

func (r *Renderer) trim(job uint64, n int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.Live(job) {
		return false
	}

	for _, slot := range r.visible[min(n, len(r.visible)):] {
		slot.ImageID = uuid.Nil
		slot.Aspect = ""
		r.pool = append(r.pool, slot)
	}
	if n < len(r.visible) {
		clear(r.visible[n:])
		r.visible = r.visible[:n]
	}

	return true
}
