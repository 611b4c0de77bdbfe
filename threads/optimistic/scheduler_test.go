package optimistic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kickback/api/comments/models"
)

func TestReconciler_SuppressWindow(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	f := &stubFetcher{flat: map[models.SortOrder]*models.FlatComments{models.SortNewest: {TotalCount: 3}}}
	q := NewQueryCache(f, 20, time.Minute, clock)
	r := NewReconciler(q, clock)
	key := FlatKey("e1", models.SortNewest)
	q.Set(key, Data{Flat: &FlatData{TotalCount: 1}})

	r.Suppress("e1", 2*time.Second)
	assert.True(t, r.Suppressed("e1"))
	assert.False(t, r.Suppressed("e2"))

	refetched, err := r.BackgroundRefetch(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, refetched)
	assert.Equal(t, 0, f.count())

	// explicit refreshes ignore suppression
	require.NoError(t, r.Refetch(context.Background(), "e1"))
	assert.Equal(t, 1, f.count())

	now = now.Add(3 * time.Second)
	assert.False(t, r.Suppressed("e1"))
	refetched, err = r.BackgroundRefetch(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, refetched)
	assert.Equal(t, 2, f.count())
}

func TestReconciler_ShorterSuppressDoesNotShrinkWindow(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	r := NewReconciler(NewQueryCache(&stubFetcher{}, 20, time.Minute, clock), clock)

	r.Suppress("e1", 5*time.Second)
	r.Suppress("e1", time.Second)
	now = now.Add(2 * time.Second)
	assert.True(t, r.Suppressed("e1"))
}

func TestReconciler_ScheduleInvalidateRunsAfterDelay(t *testing.T) {
	f := &stubFetcher{flat: map[models.SortOrder]*models.FlatComments{models.SortNewest: {TotalCount: 9}}}
	q := NewQueryCache(f, 20, time.Minute, nil)
	r := NewReconciler(q, nil)
	key := FlatKey("e1", models.SortNewest)
	q.Set(key, Data{Flat: &FlatData{TotalCount: 1}})

	r.ScheduleInvalidate([]QueryKey{key}, 20*time.Millisecond, RefetchInactive)
	assert.False(t, q.IsStale(key))

	r.Wait()
	data, _ := q.Get(key)
	assert.Equal(t, 9, data.Flat.TotalCount)
	assert.Equal(t, 1, f.count())
}

func TestReconciler_StopCancelsPending(t *testing.T) {
	f := &stubFetcher{}
	q := NewQueryCache(f, 20, time.Minute, nil)
	r := NewReconciler(q, nil)
	key := FlatKey("e1", models.SortNewest)
	q.Set(key, Data{Flat: &FlatData{}})

	r.ScheduleInvalidate([]QueryKey{key}, time.Hour, RefetchAll)
	r.Stop()
	assert.False(t, q.IsStale(key))

	r.ScheduleInvalidate([]QueryKey{key}, 0, RefetchAll)
	r.Wait()
	assert.Equal(t, 0, f.count())
}
