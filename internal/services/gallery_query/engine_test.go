package galleryquery

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"sdgallery/internal/domain/models"
	"sdgallery/internal/repository"
	imagestore "sdgallery/internal/services/image_store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceSource отдаёт записи в заданном порядке
type sliceSource []models.ImageRecord

func (s sliceSource) Walk(fn func(models.ImageRecord) bool) {
	for _, image := range s {
		if !fn(image) {
			return
		}
	}
}

// staleSource отстаёт индексом тегов от записей, как хранилище, в котором
// тег сняли между подсчётом и обходом
type staleSource struct {
	sliceSource
	counts map[string]int
}

func (s staleSource) TagCount(tag string) int {
	return s.counts[tag]
}

func records(n int, tags ...string) sliceSource {
	out := make(sliceSource, n)
	for i := range out {
		out[i] = models.ImageRecord{UUID: uuid.New(), Tags: tags}
	}
	return out
}

func itemIDs(items []Item) []uuid.UUID {
	out := make([]uuid.UUID, len(items))
	for i, item := range items {
		out[i] = item.Record.UUID
	}
	return out
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in   string
		want Filter
	}{
		{in: "", want: NoTag()},
		{in: "__none__", want: NoTag()},
		{in: "__all__", want: AllTags()},
		{in: "cats", want: ByTag("cats")},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseFilter(tt.in)
			assert.Equal(t, tt.want, got)
			if tt.in != "" {
				assert.Equal(t, tt.in, got.String())
			}
		})
	}
}

func TestFilter_Match(t *testing.T) {
	untagged := models.ImageRecord{}
	cats := models.ImageRecord{Tags: []string{"cats"}}
	both := models.ImageRecord{Tags: []string{"dogs", "cats"}}

	assert.True(t, NoTag().Match(untagged))
	assert.False(t, NoTag().Match(cats))

	assert.True(t, AllTags().Match(untagged))
	assert.True(t, AllTags().Match(both))

	assert.True(t, ByTag("cats").Match(cats))
	assert.True(t, ByTag("cats").Match(both))
	assert.False(t, ByTag("dogs").Match(cats))
	assert.False(t, ByTag("cats").Match(untagged))
}

func TestEngine_PaginationCompleteness(t *testing.T) {
	for _, n := range []int{0, 1, 19, 20, 21, 40, 41, 57} {
		src := records(n)
		e := New(DefaultPageSize)
		e.Apply(src, NoTag())

		wantPages := max(1, (n+DefaultPageSize-1)/DefaultPageSize)
		require.Equal(t, wantPages, e.PageCount(), "n=%d", n)

		seen := make(map[uuid.UUID]bool)
		var all []uuid.UUID
		for p := 1; p <= e.PageCount(); p++ {
			items := e.PageItems(p)
			assert.LessOrEqual(t, len(items), DefaultPageSize)
			for _, id := range itemIDs(items) {
				require.False(t, seen[id], "duplicate %s", id)
				seen[id] = true
				all = append(all, id)
			}
		}

		want := make([]uuid.UUID, n)
		for i, image := range src {
			want[i] = image.UUID
		}
		assert.Equal(t, want, append([]uuid.UUID{}, all...), "n=%d", n)
		assert.Equal(t, n, e.Len())
	}
}

func TestEngine_FilteredChain(t *testing.T) {
	src := sliceSource{
		{UUID: uuid.New(), Tags: []string{"cats"}},
		{UUID: uuid.New()},
		{UUID: uuid.New(), Tags: []string{"cats", "dogs"}},
		{UUID: uuid.New(), Tags: []string{"dogs"}},
		{UUID: uuid.New(), Tags: []string{"cats"}},
	}

	e := New(DefaultPageSize)
	got := e.Apply(src, ByTag("cats"))
	assert.Equal(t, ByTag("cats"), got)

	items := e.Items()
	require.Equal(t, []uuid.UUID{src[0].UUID, src[2].UUID, src[4].UUID}, itemIDs(items))

	assert.Equal(t, uuid.Nil, items[0].Prev)
	assert.Equal(t, src[2].UUID, items[0].Next)
	assert.Equal(t, src[0].UUID, items[1].Prev)
	assert.Equal(t, src[4].UUID, items[1].Next)
	assert.Equal(t, src[2].UUID, items[2].Prev)
	assert.Equal(t, uuid.Nil, items[2].Next)

	prev, next, ok := e.Neighbors(src[2].UUID)
	require.True(t, ok)
	assert.Equal(t, src[0].UUID, prev)
	assert.Equal(t, src[4].UUID, next)

	_, _, ok = e.Neighbors(src[1].UUID)
	assert.False(t, ok)

	e.Apply(src, AllTags())
	assert.Len(t, e.Items(), 5)

	e.Apply(src, NoTag())
	assert.Equal(t, []uuid.UUID{src[1].UUID}, itemIDs(e.Items()))
}

func TestEngine_FallbackToNoTag(t *testing.T) {
	src := sliceSource{
		{UUID: uuid.New(), Tags: []string{"cats"}},
		{UUID: uuid.New()},
	}

	e := New(DefaultPageSize)
	got := e.Apply(src, ByTag("unicorns"))

	assert.Equal(t, NoTag(), got)
	assert.Equal(t, NoTag(), e.Filter())
	assert.Equal(t, []uuid.UUID{src[1].UUID}, itemIDs(e.Items()))
}

func TestEngine_FallbackDecidedByWalk(t *testing.T) {
	src := staleSource{
		sliceSource: sliceSource{
			{UUID: uuid.New(), Tags: []string{"dogs"}},
			{UUID: uuid.New()},
		},
		counts: map[string]int{"cats": 1, "dogs": 1},
	}

	e := New(DefaultPageSize)
	got := e.Apply(src, ByTag("cats"))

	assert.Equal(t, NoTag(), got)
	assert.Equal(t, []uuid.UUID{src.sliceSource[1].UUID}, itemIDs(e.Items()))
	assert.Equal(t, 1, e.PageCount())

	got = e.Apply(src, ByTag("dogs"))
	assert.Equal(t, ByTag("dogs"), got)
	assert.Equal(t, []uuid.UUID{src.sliceSource[0].UUID}, itemIDs(e.Items()))
}

func TestEngine_Navigation(t *testing.T) {
	e := New(DefaultPageSize)
	e.Apply(records(45), NoTag())

	require.Equal(t, 3, e.PageCount())
	assert.Equal(t, 1, e.Page())
	assert.False(t, e.HasPrev())
	assert.True(t, e.HasNext())

	assert.False(t, e.GoPrev())
	assert.Equal(t, 1, e.Page())

	assert.True(t, e.GoNext())
	assert.True(t, e.GoNext())
	assert.Equal(t, 3, e.Page())
	assert.Len(t, e.Items(), 5)
	assert.False(t, e.HasNext())

	assert.False(t, e.GoNext())
	assert.Equal(t, 3, e.Page())

	assert.True(t, e.GoPrev())
	assert.Equal(t, 2, e.Page())

	assert.Equal(t, 3, e.SetPage(99))
	assert.Equal(t, 1, e.SetPage(-4))

	assert.Nil(t, e.PageItems(0))
	assert.Nil(t, e.PageItems(4))
}

func TestEngine_EmptySelectionHasOnePage(t *testing.T) {
	e := New(DefaultPageSize)
	e.Apply(sliceSource{}, AllTags())

	assert.Equal(t, 1, e.PageCount())
	assert.Equal(t, 1, e.Page())
	assert.Empty(t, e.Items())
	assert.False(t, e.HasNext())
	assert.False(t, e.HasPrev())
}

func TestEngine_FilterChangeResetsPage(t *testing.T) {
	src := append(records(30), records(30, "cats")...)

	e := New(DefaultPageSize)
	e.Apply(src, AllTags())
	e.SetPage(3)

	// тот же фильтр сохраняет страницу
	e.Apply(src, AllTags())
	assert.Equal(t, 3, e.Page())

	e.Apply(src, ByTag("cats"))
	assert.Equal(t, 1, e.Page())
}

func TestEngine_DeleteClampsPage(t *testing.T) {
	ctx := context.Background()
	store := imagestore.New(slog.New(slog.NewTextHandler(io.Discard, nil)), repository.NewMemoryImageRepo())

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var oldest uuid.UUID
	for i := 0; i < 21; i++ {
		image := models.ImageRecord{UUID: uuid.New(), Timestamp: base.Add(time.Duration(i) * time.Second)}
		_, err := store.Add(ctx, image)
		require.NoError(t, err)
		if i == 0 {
			oldest = image.UUID
		}
	}

	e := New(DefaultPageSize)
	e.Apply(store, NoTag())
	require.Equal(t, 2, e.PageCount())
	require.True(t, e.GoNext())
	require.Equal(t, []uuid.UUID{oldest}, itemIDs(e.Items()))

	require.NoError(t, store.Remove(ctx, oldest))
	e.Apply(store, e.Filter())

	assert.Equal(t, 1, e.PageCount())
	assert.Equal(t, 1, e.Page())
	assert.Len(t, e.Items(), 20)
}

func TestEngine_DoesNotMutateSource(t *testing.T) {
	ctx := context.Background()
	store := imagestore.New(slog.New(slog.NewTextHandler(io.Discard, nil)), repository.NewMemoryImageRepo())

	for i := 0; i < 3; i++ {
		_, err := store.Add(ctx, models.ImageRecord{UUID: uuid.New(), Tags: []string{"cats"}})
		require.NoError(t, err)
	}
	before := store.Cursors()

	e := New(DefaultPageSize)
	e.Apply(store, ByTag("cats"))
	items := e.Items()
	items[0].Record.Tags[0] = "mutated"

	assert.Equal(t, before, store.Cursors())
	assert.Equal(t, 3, store.TagCount("cats"))
}
