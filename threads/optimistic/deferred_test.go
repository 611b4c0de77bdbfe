package optimistic

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeferredDelete_FiresAfterDelay(t *testing.T) {
	m := NewDeferredDeleteManager()
	var fired int32

	require.NoError(t, m.Schedule("c1", 20*time.Millisecond, &Captured{EventID: "e1"}, func(c *Captured) {
		assert.Equal(t, "e1", c.EventID)
		atomic.AddInt32(&fired, 1)
	}))
	assert.True(t, m.Pending("c1"))

	require.Eventually(t, func() bool { return atomic.LoadInt32(&fired) == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, m.Pending("c1"))

	_, ok := m.Cancel("c1")
	assert.False(t, ok)
}

func TestDeferredDelete_CancelSkipsFire(t *testing.T) {
	m := NewDeferredDeleteManager()
	var fired int32
	captured := &Captured{EventID: "e1"}

	require.NoError(t, m.Schedule("c1", 30*time.Millisecond, captured, func(*Captured) { atomic.AddInt32(&fired, 1) }))
	got, ok := m.Cancel("c1")
	require.True(t, ok)
	assert.Same(t, captured, got)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

func TestDeferredDelete_SecondScheduleRejected(t *testing.T) {
	m := NewDeferredDeleteManager()
	noop := func(*Captured) {}

	require.NoError(t, m.Schedule("c1", time.Minute, &Captured{}, noop))
	assert.ErrorIs(t, m.Schedule("c1", time.Minute, &Captured{}, noop), ErrDeletePending)
	assert.Equal(t, 1, m.Len())

	dropped := m.reset()
	assert.Len(t, dropped, 1)
	assert.Equal(t, 0, m.Len())
}

func TestDeferredDelete_FlushFiresNow(t *testing.T) {
	m := NewDeferredDeleteManager()
	var fired int32
	for _, id := range []string{"a", "b"} {
		require.NoError(t, m.Schedule(id, time.Minute, &Captured{}, func(*Captured) { atomic.AddInt32(&fired, 1) }))
	}

	assert.Equal(t, 2, m.Flush())
	assert.Equal(t, int32(2), atomic.LoadInt32(&fired))
	assert.Equal(t, 0, m.Len())
}
