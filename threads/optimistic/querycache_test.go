package optimistic

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kickback/api/comments/models"
)

// stubFetcher serves canned data and counts calls
type stubFetcher struct {
	mu      sync.Mutex
	flat    map[models.SortOrder]*models.FlatComments
	pages   map[string]*models.CommentPage
	replies map[string]*models.ReplyPage
	calls   int
	err     error
	block   chan struct{}
}

func (f *stubFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *stubFetcher) enter() error {
	f.mu.Lock()
	f.calls++
	block, err := f.block, f.err
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return err
}

func (f *stubFetcher) FetchFlat(_ context.Context, _ string, sort models.SortOrder) (*models.FlatComments, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	return f.flat[sort], nil
}

func (f *stubFetcher) FetchComments(_ context.Context, _ string, _ models.SortOrder, cursor string, _ int) (*models.CommentPage, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	return f.pages[cursor], nil
}

func (f *stubFetcher) FetchReplies(_ context.Context, _, parentID, cursor string, _ int) (*models.ReplyPage, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	return f.replies[parentID+cursor], nil
}

func TestQueryCache_QueryFetchesOnceUntilInvalidated(t *testing.T) {
	f := &stubFetcher{flat: map[models.SortOrder]*models.FlatComments{
		models.SortNewest: {Comments: []*models.Comment{node("a", 0)}, TotalCount: 1},
	}}
	q := NewQueryCache(f, 20, time.Minute, nil)
	key := FlatKey("e1", models.SortNewest)

	data, err := q.Query(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, 1, data.Flat.TotalCount)
	_, err = q.Query(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, 1, f.count())

	// recently read, so an inactive-only invalidation just marks it stale
	require.NoError(t, q.Invalidate(context.Background(), []QueryKey{key}, RefetchInactive))
	assert.True(t, q.IsStale(key))
	assert.Equal(t, 1, f.count())

	_, err = q.Query(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, 2, f.count())
	assert.False(t, q.IsStale(key))
}

func TestQueryCache_LocateCoversEveryShape(t *testing.T) {
	q := NewQueryCache(&stubFetcher{}, 20, time.Minute, nil)
	empty := Data{Paged: &PagedData{}}
	q.Set(FlatKey("e1", models.SortNewest), Data{Flat: &FlatData{}})
	q.Set(FlatKey("e1", models.SortOldest), Data{Flat: &FlatData{}})
	q.Set(CommentsKey("e1", models.SortNewest), empty)
	q.Set(RepliesKey("e1", "p1"), empty)
	q.Set(RepliesKey("e1", "p2"), empty)
	q.Set(FlatKey("e2", models.SortNewest), Data{Flat: &FlatData{}})

	assert.Len(t, q.Locate("e1", ""), 5)
	scoped := q.Locate("e1", "p1")
	assert.Len(t, scoped, 4)
	assert.NotContains(t, scoped, RepliesKey("e1", "p2"))
	assert.Len(t, q.Keys(), 6)
}

func TestQueryCache_ActiveAndInactiveRefetch(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	f := &stubFetcher{flat: map[models.SortOrder]*models.FlatComments{
		models.SortNewest: {TotalCount: 7},
		models.SortOldest: {TotalCount: 7},
	}}
	q := NewQueryCache(f, 20, time.Second, clock)
	active := FlatKey("e1", models.SortNewest)
	inactive := FlatKey("e1", models.SortOldest)
	q.Set(active, Data{Flat: &FlatData{}})
	q.Set(inactive, Data{Flat: &FlatData{}})
	release := q.Observe(active)
	defer release()

	require.NoError(t, q.Invalidate(context.Background(), []QueryKey{active, inactive}, RefetchInactive))
	assert.Equal(t, 1, f.count())
	assert.True(t, q.IsStale(active))
	assert.False(t, q.IsStale(inactive))

	got, _ := q.Get(inactive)
	assert.Equal(t, 7, got.Flat.TotalCount)

	release()
	assert.False(t, q.IsActive(active))
}

func TestQueryCache_RefetchRacingPatchKeepsPatch(t *testing.T) {
	f := &stubFetcher{
		flat:  map[models.SortOrder]*models.FlatComments{models.SortNewest: {TotalCount: 1}},
		block: make(chan struct{}),
	}
	q := NewQueryCache(f, 20, time.Minute, nil)
	key := FlatKey("e1", models.SortNewest)
	q.Set(key, Data{Flat: &FlatData{TotalCount: 1}})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = q.Refetch(context.Background(), key)
	}()
	require.Eventually(t, func() bool { return f.count() == 1 }, time.Second, time.Millisecond)

	q.Apply([]QueryKey{key}, func(k QueryKey, d Data) (Data, bool) {
		return insertComment(k, d, node("temp", 10))
	})
	close(f.block)
	<-done

	data, _ := q.Get(key)
	assert.Equal(t, 2, data.Flat.TotalCount)
	assert.True(t, q.IsStale(key))
}

func TestQueryCache_RestoreUsesFallbackAfterLaterWrite(t *testing.T) {
	q := NewQueryCache(&stubFetcher{}, 20, time.Minute, nil)
	key := FlatKey("e1", models.SortNewest)
	q.Set(key, Data{Flat: &FlatData{Comments: []*models.Comment{node("a", 0)}, TotalCount: 1}})

	snap := q.Apply([]QueryKey{key}, func(k QueryKey, d Data) (Data, bool) { return insertComment(k, d, node("t1", 5)) })
	q.Apply([]QueryKey{key}, func(k QueryKey, d Data) (Data, bool) { return insertComment(k, d, node("t2", 6)) })

	q.Restore(snap, removeFallback("t1"))
	data, _ := q.Get(key)
	assert.Equal(t, []string{"t2", "a"}, ids(data.Flat.Comments))
	assert.Equal(t, 2, data.Flat.TotalCount)
}

func TestQueryCache_PagesAndLoadMore(t *testing.T) {
	f := &stubFetcher{pages: map[string]*models.CommentPage{
		"":   {Comments: []*models.Comment{node("b", 5)}, NextCursor: "p2", HasMore: true},
		"p2": {Comments: []*models.Comment{node("a", 0)}},
	}}
	q := NewQueryCache(f, 1, time.Minute, nil)
	key := CommentsKey("e1", models.SortNewest)

	data, err := q.Query(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, data.Paged.Pages, 1)

	data, err = q.FetchNextPage(context.Background(), key)
	require.NoError(t, err)
	require.Len(t, data.Paged.Pages, 2)
	assert.Equal(t, []string{"", "p2"}, data.Paged.PageParams)

	// a refetch reloads every loaded page
	data, err = q.Refetch(context.Background(), key)
	require.NoError(t, err)
	assert.Len(t, data.Paged.Pages, 2)
	assert.Equal(t, 4, f.count())
}

func TestQueryCache_FetchErrorIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	q := NewQueryCache(&stubFetcher{err: boom}, 20, time.Minute, nil)
	_, err := q.Query(context.Background(), FlatKey("e1", models.SortNewest))
	assert.ErrorIs(t, err, boom)
}
