package optimistic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kickback/api/comments/models"
	"github.com/kickback/api/internal/platform/config"
	"github.com/kickback/api/internal/pkg/log"
	"github.com/kickback/api/internal/types"
)

var (
	// ErrCommentNotCached is returned when a mutation targets a comment no cached view holds
	ErrCommentNotCached = errors.New("comment is not in any cached view")
	// ErrCommentUnconfirmed is returned when a mutation targets a comment the server has not stored yet
	ErrCommentUnconfirmed = errors.New("comment is still being saved")
	// ErrSessionClosed is returned by mutations on a closed session
	ErrSessionClosed = errors.New("session closed")
)

// Actions are the server actions the session calls after patching its cache.
// Failures come back in the result, never as a panic or error return.
type Actions interface {
	CreateComment(ctx context.Context, user types.UserContext, input models.CreateCommentRequest) models.ActionResult
	CreateReply(ctx context.Context, user types.UserContext, input models.CreateCommentRequest) models.ActionResult
	EditComment(ctx context.Context, user types.UserContext, input models.EditCommentRequest) models.ActionResult
	DeleteComment(ctx context.Context, user types.UserContext, commentID string) models.ActionResult
	ToggleReaction(ctx context.Context, user types.UserContext, input models.ToggleReactionRequest) models.ActionResult
}

// ServerError is a rejected server action
type ServerError struct {
	Kind    MutationKind
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s rejected: %s (%s)", e.Kind, e.Message, e.Code)
	}
	return fmt.Sprintf("%s rejected: %s", e.Kind, e.Message)
}

func actionError(kind MutationKind, res models.ActionResult) error {
	msg := res.Error
	if msg == "" {
		msg = "unknown error"
	}
	return &ServerError{Kind: kind, Code: res.Code, Message: msg}
}

// Options tunes a session
type Options struct {
	UndoGracePeriod time.Duration
	ReconcileDelay  time.Duration
	SuppressWindow  time.Duration
	ActiveWindow    time.Duration
	PageSize        int
	Policies        Policies
	Now             func() time.Time
}

// OptionsFromConfig builds session options from the threads configuration
func OptionsFromConfig(cfg config.ThreadsConfig) Options {
	return Options{
		UndoGracePeriod: cfg.UndoGracePeriod,
		ReconcileDelay:  cfg.ReconcileDelay,
		SuppressWindow:  cfg.SuppressWindow,
		ActiveWindow:    cfg.ActiveWindow,
		PageSize:        cfg.PageSize,
		Policies:        PoliciesFromConfig(cfg),
	}
}

func (o Options) withDefaults() Options {
	if o.UndoGracePeriod <= 0 {
		o.UndoGracePeriod = 5 * time.Second
	}
	if o.ReconcileDelay < 0 {
		o.ReconcileDelay = 0
	}
	if o.ActiveWindow <= 0 {
		o.ActiveWindow = 30 * time.Second
	}
	if o.PageSize <= 0 {
		o.PageSize = 20
	}
	if o.Policies == nil {
		o.Policies = DefaultPolicies()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// MutationState tracks one mutation from submit to settle
type MutationState string

const (
	StateIdle          MutationState = "idle"
	StateOptimistic    MutationState = "optimistic"
	StateServerPending MutationState = "server_pending"
	StateReconciled    MutationState = "reconciled"
	StateRolledBack    MutationState = "rolled_back"
)

// Mutation is the handle of an in-flight mutation
type Mutation struct {
	Kind      MutationKind
	CommentID string

	mu     sync.Mutex
	state  MutationState
	err    error
	result *models.Comment
	done   chan struct{}
}

func newMutation(kind MutationKind, commentID string) *Mutation {
	return &Mutation{Kind: kind, CommentID: commentID, state: StateIdle, done: make(chan struct{})}
}

func (m *Mutation) State() MutationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err is the server error once settled, if any
func (m *Mutation) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Result is the optimistic entity until the server confirms, then the stored one
func (m *Mutation) Result() *models.Comment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result
}

// Done is closed when the mutation settles
func (m *Mutation) Done() <-chan struct{} {
	return m.done
}

// Wait blocks until the mutation settles or ctx ends
func (m *Mutation) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return m.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mutation) set(state MutationState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}

func (m *Mutation) optimistic(result *models.Comment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateOptimistic
	m.result = result
}

func (m *Mutation) settle(state MutationState, result *models.Comment, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-m.done:
		return
	default:
	}
	m.state = state
	m.err = err
	if result != nil {
		m.result = result
	}
	close(m.done)
}

// Session is one user's optimistic view of comment threads. It owns its query
// cache, reconciliation scheduler and pending deletions.
type Session struct {
	user     types.UserContext
	author   models.UserSnapshot
	actions  Actions
	opts     Options
	cache    *QueryCache
	recon    *Reconciler
	deletes  *DeferredDeleteManager
	feed     *Feed
	notifier Notifier

	// mu serializes the synchronous cache patch of each mutation
	mu sync.Mutex

	idsMu     sync.Mutex
	confirmed map[string]string

	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    bool
}

// NewSession creates a session for user
func NewSession(user types.UserContext, actions Actions, fetcher Fetcher, opts Options) *Session {
	opts = opts.withDefaults()
	cache := NewQueryCache(fetcher, opts.PageSize, opts.ActiveWindow, opts.Now)
	feed := NewFeed(0)
	return &Session{
		user:      user,
		author:    SnapshotOf(user),
		actions:   actions,
		opts:      opts,
		cache:     cache,
		recon:     NewReconciler(cache, opts.Now),
		deletes:   NewDeferredDeleteManager(),
		feed:      feed,
		notifier:  feed,
		confirmed: make(map[string]string),
	}
}

func (s *Session) User() types.UserContext { return s.user }

func (s *Session) Cache() *QueryCache { return s.cache }

func (s *Session) Reconciler() *Reconciler { return s.recon }

func (s *Session) PendingDeletes() int { return s.deletes.Len() }

// Notifications drains the feedback toasts collected since the last call
func (s *Session) Notifications() []Toast {
	return s.feed.Drain()
}

func (s *Session) notify(ctx context.Context, level ToastLevel, message, commentID string) {
	s.notifier.Notify(ctx, Toast{Level: level, Message: message, CommentID: commentID, At: s.opts.Now()})
}

// View returns key from the cache, fetching when missing or invalidated
func (s *Session) View(ctx context.Context, key QueryKey) (Data, error) {
	return s.cache.Query(ctx, key)
}

// Poll is a background read of key. It refetches unless the event was just
// mutated, and reports whether it did.
func (s *Session) Poll(ctx context.Context, key QueryKey) (Data, bool, error) {
	if _, ok := s.cache.Get(key); !ok {
		data, err := s.cache.Query(ctx, key)
		return data, err == nil, err
	}
	s.cache.Touch(key)
	refetched, err := s.recon.BackgroundRefetch(ctx, key)
	if err != nil {
		return Data{}, false, err
	}
	data, _ := s.cache.Get(key)
	return data, refetched, nil
}

// LoadMore appends the next page of a paginated view
func (s *Session) LoadMore(ctx context.Context, key QueryKey) (Data, error) {
	return s.cache.FetchNextPage(ctx, key)
}

// Refresh refetches every cached view of eventID, ignoring suppression
func (s *Session) Refresh(ctx context.Context, eventID string) error {
	return s.recon.Refetch(ctx, eventID)
}

// Observe marks key as actively rendered until the returned func is called
func (s *Session) Observe(key QueryKey) func() {
	return s.cache.Observe(key)
}

// confirm records the server id of a temp entity
func (s *Session) confirm(tempID string, stored *models.Comment) {
	if stored == nil || stored.ID == "" {
		return
	}
	s.idsMu.Lock()
	defer s.idsMu.Unlock()
	s.confirmed[tempID] = stored.ID
}

// resolveID maps a confirmed temp id to its server id
func (s *Session) resolveID(id string) (string, error) {
	if !IsTempID(id) {
		return id, nil
	}
	s.idsMu.Lock()
	defer s.idsMu.Unlock()
	if serverID, ok := s.confirmed[id]; ok {
		return serverID, nil
	}
	return "", ErrCommentUnconfirmed
}

// find returns the first cached copy of id among keys
func (s *Session) find(keys []QueryKey, id string) *models.Comment {
	for _, key := range keys {
		data, ok := s.cache.Get(key)
		if !ok {
			continue
		}
		if n := data.Find(id); n != nil {
			return n
		}
	}
	return nil
}

// reconcile holds back polls for the event and schedules the invalidation
func (s *Session) reconcile(eventID string, refetch RefetchType) {
	s.recon.Suppress(eventID, s.opts.SuppressWindow)
	s.recon.ScheduleInvalidate(s.cache.Locate(eventID, ""), s.opts.ReconcileDelay, refetch)
}

// Wait blocks until background server calls, pending deletions and scheduled
// invalidations have finished
func (s *Session) Wait() {
	s.wg.Wait()
	s.recon.Wait()
}

// Close fires pending deletions, stops scheduled invalidations and waits for
// background work
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		if n := s.deletes.Flush(); n > 0 {
			log.Info("[Threads] Flushed %d pending deletions for user %s", n, s.user.UserID)
		}
		s.wg.Wait()
		s.recon.Stop()
	})
}
