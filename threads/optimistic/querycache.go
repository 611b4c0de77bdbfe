package optimistic

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kickback/api/comments/models"
	"github.com/kickback/api/internal/pkg/log"
)

// Fetcher loads authoritative comment data for the cache
type Fetcher interface {
	FetchFlat(ctx context.Context, eventID string, sort models.SortOrder) (*models.FlatComments, error)
	FetchComments(ctx context.Context, eventID string, sort models.SortOrder, cursor string, limit int) (*models.CommentPage, error)
	FetchReplies(ctx context.Context, eventID, parentID, cursor string, limit int) (*models.ReplyPage, error)
}

// RefetchType selects which invalidated entries are refetched right away
type RefetchType string

const (
	RefetchNone     RefetchType = "none"
	RefetchActive   RefetchType = "active"
	RefetchInactive RefetchType = "inactive"
	RefetchAll      RefetchType = "all"
)

// ParseRefetchType defaults to inactive for unknown input
func ParseRefetchType(s string) RefetchType {
	switch RefetchType(s) {
	case RefetchNone, RefetchActive, RefetchAll:
		return RefetchType(s)
	}
	return RefetchInactive
}

type entry struct {
	data      Data
	stale     bool
	observers int
	lastSeen  time.Time
	// version changes on every write so a refetch can tell it raced with a patch
	version   uint64
	fetchedAt time.Time
}

// QueryCache is the registry of cached views for one session, indexed by event
type QueryCache struct {
	mu           sync.Mutex
	entries      map[QueryKey]*entry
	byEvent      map[string]map[QueryKey]struct{}
	fetcher      Fetcher
	pageSize     int
	activeWindow time.Duration
	now          func() time.Time
}

// NewQueryCache creates an empty cache. An entry counts as active while it has
// observers or was read within activeWindow.
func NewQueryCache(fetcher Fetcher, pageSize int, activeWindow time.Duration, now func() time.Time) *QueryCache {
	if now == nil {
		now = time.Now
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return &QueryCache{
		entries:      make(map[QueryKey]*entry),
		byEvent:      make(map[string]map[QueryKey]struct{}),
		fetcher:      fetcher,
		pageSize:     pageSize,
		activeWindow: activeWindow,
		now:          now,
	}
}

func (q *QueryCache) ensure(key QueryKey) *entry {
	e, ok := q.entries[key]
	if ok {
		return e
	}
	e = &entry{}
	q.entries[key] = e
	idx, ok := q.byEvent[key.EventID]
	if !ok {
		idx = make(map[QueryKey]struct{})
		q.byEvent[key.EventID] = idx
	}
	idx[key] = struct{}{}
	return e
}

// Set stores fetched data for key and marks it fresh
func (q *QueryCache) Set(key QueryKey, data Data) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := q.ensure(key)
	e.data = data
	e.stale = false
	e.version++
	e.fetchedAt = q.now()
}

// Get returns the cached data for key without fetching
func (q *QueryCache) Get(key QueryKey) (Data, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[key]
	if !ok || e.data.Empty() {
		return Data{}, false
	}
	return e.data, true
}

// IsStale reports whether key was invalidated and not yet refetched
func (q *QueryCache) IsStale(key QueryKey) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[key]
	return ok && e.stale
}

// Keys lists every cached key in a stable order
func (q *QueryCache) Keys() []QueryKey {
	q.mu.Lock()
	defer q.mu.Unlock()
	keys := make([]QueryKey, 0, len(q.entries))
	for k := range q.entries {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

// Locate returns every cached view that can hold comments of eventID, active or
// not, for every sort order. With a parentID, replies views of other parents are left out.
func (q *QueryCache) Locate(eventID, parentID string) []QueryKey {
	q.mu.Lock()
	defer q.mu.Unlock()
	keys := make([]QueryKey, 0, len(q.byEvent[eventID]))
	for k := range q.byEvent[eventID] {
		if parentID != "" && k.Kind == KindReplies && k.ParentID != parentID {
			continue
		}
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

func sortKeys(keys []QueryKey) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
}

// Observe marks key as actively rendered until the returned func is called
func (q *QueryCache) Observe(key QueryKey) func() {
	q.mu.Lock()
	q.ensure(key).observers++
	q.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			q.mu.Lock()
			defer q.mu.Unlock()
			if e, ok := q.entries[key]; ok && e.observers > 0 {
				e.observers--
			}
		})
	}
}

// Touch records a read of key
func (q *QueryCache) Touch(key QueryKey) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if e, ok := q.entries[key]; ok {
		e.lastSeen = q.now()
	}
}

// IsActive reports whether key is observed or was read recently
func (q *QueryCache) IsActive(key QueryKey) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[key]
	return ok && q.active(e)
}

func (q *QueryCache) active(e *entry) bool {
	if e.observers > 0 {
		return true
	}
	return !e.lastSeen.IsZero() && q.now().Sub(e.lastSeen) < q.activeWindow
}

// Snapshot is the pre-patch state of the views touched by one Apply
type Snapshot struct {
	items []snapshotItem
}

type snapshotItem struct {
	key     QueryKey
	before  Data
	version uint64
}

// Keys lists the views the snapshot covers
func (s Snapshot) Keys() []QueryKey {
	keys := make([]QueryKey, 0, len(s.items))
	for _, it := range s.items {
		keys = append(keys, it.key)
	}
	return keys
}

// Apply patches every key under one lock and returns the rollback snapshot.
// fn returns false to leave a view untouched.
func (q *QueryCache) Apply(keys []QueryKey, fn func(QueryKey, Data) (Data, bool)) Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	var snap Snapshot
	for _, key := range keys {
		e, ok := q.entries[key]
		if !ok || e.data.Empty() {
			continue
		}
		next, changed := fn(key, e.data)
		if !changed {
			continue
		}
		before := e.data
		e.data = next
		e.version++
		snap.items = append(snap.items, snapshotItem{key: key, before: before, version: e.version})
	}
	return snap
}

// Restore rolls the snapshot back. A view written again since the snapshot was
// taken is repaired with fallback instead, so later patches survive.
func (q *QueryCache) Restore(snap Snapshot, fallback func(QueryKey, Data) (Data, bool)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range snap.items {
		e, ok := q.entries[it.key]
		if !ok {
			continue
		}
		if e.version == it.version {
			e.data = it.before
			e.version++
			continue
		}
		if fallback == nil {
			continue
		}
		if next, changed := fallback(it.key, e.data); changed {
			e.data = next
			e.version++
		}
	}
}

// Invalidate marks keys stale and refetches the ones selected by refetch.
// The rest are refetched on their next Query.
func (q *QueryCache) Invalidate(ctx context.Context, keys []QueryKey, refetch RefetchType) error {
	var due []QueryKey
	q.mu.Lock()
	for _, key := range keys {
		e, ok := q.entries[key]
		if !ok {
			continue
		}
		e.stale = true
		active := q.active(e)
		switch refetch {
		case RefetchAll:
			due = append(due, key)
		case RefetchActive:
			if active {
				due = append(due, key)
			}
		case RefetchInactive:
			if !active {
				due = append(due, key)
			}
		}
	}
	q.mu.Unlock()

	var errs []error
	for _, key := range due {
		if _, err := q.Refetch(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Query returns cached data for key, fetching it when missing or stale
func (q *QueryCache) Query(ctx context.Context, key QueryKey) (Data, error) {
	q.mu.Lock()
	e, ok := q.entries[key]
	if ok && !e.stale && !e.data.Empty() {
		e.lastSeen = q.now()
		data := e.data
		q.mu.Unlock()
		return data, nil
	}
	q.mu.Unlock()

	data, err := q.Refetch(ctx, key)
	if err != nil {
		return Data{}, err
	}
	q.Touch(key)
	return data, nil
}

// Refetch reloads key from the fetcher, keeping as many pages as were loaded.
// When a patch lands while the fetch is in flight the entry keeps the patched
// data and stays stale.
func (q *QueryCache) Refetch(ctx context.Context, key QueryKey) (Data, error) {
	q.mu.Lock()
	var version uint64
	pages := 1
	if e, ok := q.entries[key]; ok {
		version = e.version
		if e.data.Paged != nil && len(e.data.Paged.Pages) > pages {
			pages = len(e.data.Paged.Pages)
		}
	}
	q.mu.Unlock()

	data, err := q.fetch(ctx, key, pages)
	if err != nil {
		return Data{}, fmt.Errorf("refetch %s: %w", key, err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	e := q.ensure(key)
	if e.version != version {
		log.Info("[QueryCache] refetch of %s raced with a local patch, keeping patched data", key)
		e.stale = true
		return e.data, nil
	}
	e.data = data
	e.stale = false
	e.version++
	e.fetchedAt = q.now()
	return data, nil
}

// FetchNextPage appends the next page to a paginated view
func (q *QueryCache) FetchNextPage(ctx context.Context, key QueryKey) (Data, error) {
	if !key.Paged() {
		return q.Query(ctx, key)
	}
	current, err := q.Query(ctx, key)
	if err != nil {
		return Data{}, err
	}
	pages := current.Paged.Pages
	if len(pages) == 0 || !pages[len(pages)-1].HasMore {
		return current, nil
	}
	cursor := pages[len(pages)-1].NextCursor
	page, err := q.fetchPage(ctx, key, cursor)
	if err != nil {
		return Data{}, fmt.Errorf("fetch next page of %s: %w", key, err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	e := q.ensure(key)
	if e.data.Paged == nil {
		return e.data, nil
	}
	last := e.data.Paged.Pages
	if len(last) > 0 && last[len(last)-1].NextCursor != cursor {
		// another fetch already moved past this cursor
		return e.data, nil
	}
	next := &PagedData{
		Pages:      append(clonePages(e.data.Paged.Pages), page),
		PageParams: append(append([]string(nil), e.data.Paged.PageParams...), cursor),
	}
	e.data = Data{Paged: next}
	e.version++
	e.lastSeen = q.now()
	return e.data, nil
}

func (q *QueryCache) fetch(ctx context.Context, key QueryKey, pages int) (Data, error) {
	if key.Kind == KindFlat {
		flat, err := q.fetcher.FetchFlat(ctx, key.EventID, key.Sort)
		if err != nil {
			return Data{}, err
		}
		return Data{Flat: &FlatData{Comments: nonNil(flat.Comments), TotalCount: flat.TotalCount}}, nil
	}

	paged := &PagedData{}
	cursor := ""
	for i := 0; i < pages; i++ {
		page, err := q.fetchPage(ctx, key, cursor)
		if err != nil {
			return Data{}, err
		}
		paged.Pages = append(paged.Pages, page)
		paged.PageParams = append(paged.PageParams, cursor)
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}
	return Data{Paged: paged}, nil
}

func (q *QueryCache) fetchPage(ctx context.Context, key QueryKey, cursor string) (Page, error) {
	switch key.Kind {
	case KindComments:
		page, err := q.fetcher.FetchComments(ctx, key.EventID, key.Sort, cursor, q.pageSize)
		if err != nil {
			return Page{}, err
		}
		return Page{Items: nonNil(page.Comments), NextCursor: page.NextCursor, HasMore: page.HasMore}, nil
	case KindReplies:
		page, err := q.fetcher.FetchReplies(ctx, key.EventID, key.ParentID, cursor, q.pageSize)
		if err != nil {
			return Page{}, err
		}
		return Page{Items: nonNil(page.Replies), NextCursor: page.NextCursor, HasMore: page.HasMore}, nil
	}
	return Page{}, fmt.Errorf("unsupported query kind %q", key.Kind)
}
