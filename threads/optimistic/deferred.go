package optimistic

import (
	"errors"
	"sync"
	"time"

	"github.com/kickback/api/comments/models"
)

var (
	// ErrDeletePending is returned when a deletion for the id is already waiting
	ErrDeletePending = errors.New("a deletion for this comment is already pending")
	// ErrNoPendingDeletion is returned by undo once the server delete has fired
	ErrNoPendingDeletion = errors.New("no pending deletion")
)

// Captured is what a deferred delete needs to undo itself
type Captured struct {
	EventID string
	Comment *models.Comment
	// Snapshot rolls the optimistic removal back on undo or server failure
	Snapshot Snapshot
	// CountOnly lists views that held the parent but not the reply, so only
	// the parent's reply count was decremented
	CountOnly map[QueryKey]bool
}

type pendingDelete struct {
	timer    *time.Timer
	captured *Captured
	onFire   func(*Captured)
}

// DeferredDeleteManager holds at most one pending deletion per comment id
type DeferredDeleteManager struct {
	mu      sync.Mutex
	pending map[string]*pendingDelete
}

func NewDeferredDeleteManager() *DeferredDeleteManager {
	return &DeferredDeleteManager{pending: make(map[string]*pendingDelete)}
}

// Schedule runs onFire after delay unless Cancel is called first
func (m *DeferredDeleteManager) Schedule(id string, delay time.Duration, captured *Captured, onFire func(*Captured)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pending[id]; ok {
		return ErrDeletePending
	}

	p := &pendingDelete{captured: captured, onFire: onFire}
	p.timer = time.AfterFunc(delay, func() {
		if m.take(id, p) {
			onFire(captured)
		}
	})
	m.pending[id] = p
	return nil
}

// take removes p if it is still the pending entry for id
func (m *DeferredDeleteManager) take(id string, p *pendingDelete) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending[id] != p {
		return false
	}
	delete(m.pending, id)
	return true
}

// Cancel stops the pending deletion of id and hands back what it captured
func (m *DeferredDeleteManager) Cancel(id string) (*Captured, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[id]
	if !ok {
		return nil, false
	}
	delete(m.pending, id)
	p.timer.Stop()
	return p.captured, true
}

// Pending reports whether id has a deletion waiting
func (m *DeferredDeleteManager) Pending(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pending[id]
	return ok
}

// Len returns the number of pending deletions
func (m *DeferredDeleteManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// reset drops every pending deletion without firing it. The onFire callbacks
// never run, so owners that count pending work must settle it themselves.
func (m *DeferredDeleteManager) reset() []*Captured {
	m.mu.Lock()
	defer m.mu.Unlock()
	dropped := make([]*Captured, 0, len(m.pending))
	for id, p := range m.pending {
		p.timer.Stop()
		dropped = append(dropped, p.captured)
		delete(m.pending, id)
	}
	return dropped
}

// Flush fires every pending deletion now and returns how many ran
func (m *DeferredDeleteManager) Flush() int {
	m.mu.Lock()
	due := make([]*pendingDelete, 0, len(m.pending))
	for id, p := range m.pending {
		// a timer that already fired is waiting in take and will run itself
		if p.timer.Stop() {
			due = append(due, p)
			delete(m.pending, id)
		}
	}
	m.mu.Unlock()

	for _, p := range due {
		p.onFire(p.captured)
	}
	return len(due)
}
