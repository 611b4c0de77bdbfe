package optimistic

import (
	"context"
	"sync"
	"time"

	"github.com/kickback/api/internal/pkg/log"
)

// invalidateTimeout bounds refetches started from a timer
const invalidateTimeout = 10 * time.Second

// Reconciler schedules invalidations after mutations settle and holds back
// background refetches that would overwrite fresh optimistic state.
type Reconciler struct {
	mu         sync.Mutex
	cache      *QueryCache
	suppressed map[string]time.Time
	timers     map[*time.Timer]struct{}
	stopped    bool
	now        func() time.Time
	wg         sync.WaitGroup
}

// NewReconciler creates a scheduler over cache
func NewReconciler(cache *QueryCache, now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{
		cache:      cache,
		suppressed: make(map[string]time.Time),
		timers:     make(map[*time.Timer]struct{}),
		now:        now,
	}
}

// Suppress skips background refetches of eventID for d. A longer running window is kept.
func (r *Reconciler) Suppress(eventID string, d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	until := r.now().Add(d)
	if until.After(r.suppressed[eventID]) {
		r.suppressed[eventID] = until
	}
}

// Suppressed reports whether background refetches of eventID are held back
func (r *Reconciler) Suppressed(eventID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.suppressed[eventID]
	if !ok {
		return false
	}
	if !r.now().Before(until) {
		delete(r.suppressed, eventID)
		return false
	}
	return true
}

// ScheduleInvalidate invalidates keys after delay
func (r *Reconciler) ScheduleInvalidate(keys []QueryKey, delay time.Duration, refetch RefetchType) {
	if len(keys) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}

	r.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		defer r.wg.Done()
		r.mu.Lock()
		delete(r.timers, timer)
		r.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
		defer cancel()
		if err := r.cache.Invalidate(ctx, keys, refetch); err != nil {
			log.Warn("[Reconciler] Scheduled invalidation failed: %v", err)
		}
	})
	r.timers[timer] = struct{}{}
}

// Invalidate runs an invalidation immediately
func (r *Reconciler) Invalidate(ctx context.Context, keys []QueryKey, refetch RefetchType) error {
	return r.cache.Invalidate(ctx, keys, refetch)
}

// BackgroundRefetch refreshes key the way a poll would. It does nothing while
// the key's event is suppressed and reports whether a refetch happened.
func (r *Reconciler) BackgroundRefetch(ctx context.Context, key QueryKey) (bool, error) {
	if r.Suppressed(key.EventID) {
		return false, nil
	}
	if _, err := r.cache.Refetch(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}

// Refetch reloads every cached view of eventID regardless of suppression
func (r *Reconciler) Refetch(ctx context.Context, eventID string) error {
	return r.cache.Invalidate(ctx, r.cache.Locate(eventID, ""), RefetchAll)
}

// Stop cancels pending invalidations and waits for running ones
func (r *Reconciler) Stop() {
	r.mu.Lock()
	r.stopped = true
	for t := range r.timers {
		if t.Stop() {
			r.wg.Done()
		}
		delete(r.timers, t)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// Wait blocks until every scheduled invalidation has run
func (r *Reconciler) Wait() {
	r.wg.Wait()
}
