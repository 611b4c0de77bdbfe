package optimistic

import (
	"context"

	"github.com/kickback/api/comments/models"
	"github.com/kickback/api/comments/validation"
	"github.com/kickback/api/internal/pkg/log"
)

// networkPhase is the part of a mutation that talks to the server
type networkPhase struct {
	kind     MutationKind
	eventID  string
	mutation *Mutation
	call     func(ctx context.Context) (*models.Comment, error)
	rollback func()
	failure  string
}

// run executes the network phase inline or in the background depending on the
// policy. Only awaited phases return the server error.
func (s *Session) run(ctx context.Context, p networkPhase) error {
	policy := s.opts.Policies.For(p.kind)

	exec := func(ctx context.Context) error {
		p.mutation.set(StateServerPending)
		result, err := p.call(ctx)
		switch {
		case err == nil:
			p.mutation.settle(StateReconciled, result, nil)
		case policy.RollbackOnError && p.rollback != nil:
			log.ErrorWithContext(ctx, "[Threads] %s failed, rolling back: %v", p.kind, err)
			p.rollback()
			s.notify(ctx, ToastError, p.failure, p.mutation.CommentID)
			p.mutation.settle(StateRolledBack, nil, err)
		default:
			// left optimistic until the next refetch corrects it
			log.ErrorWithContext(ctx, "[Threads] %s failed: %v", p.kind, err)
			p.mutation.settle(StateReconciled, nil, err)
		}
		if policy.Reconcile {
			s.reconcile(p.eventID, policy.Refetch)
		}
		return err
	}

	if policy.Await {
		return exec(ctx)
	}
	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = exec(bg)
	}()
	return nil
}

// CreateComment shows a temporary comment in every cached view of its event and
// then persists it. Input with a parent is a reply.
func (s *Session) CreateComment(ctx context.Context, input models.CreateCommentRequest) (*Mutation, error) {
	if input.ParentID != nil && *input.ParentID != "" {
		return s.CreateReply(ctx, input)
	}
	if err := validation.NormalizeCreateRequest(&input); err != nil {
		return nil, err
	}

	m := newMutation(KindCreateComment, "")
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	temp := NewTempComment(input, s.author, s.opts.Now())
	m.CommentID = temp.ID
	snap := s.cache.Apply(s.cache.Locate(input.EventID, ""), func(key QueryKey, d Data) (Data, bool) {
		return insertComment(key, d, temp)
	})
	m.optimistic(temp)
	s.mu.Unlock()

	s.notify(ctx, ToastSuccess, "Comment posted", temp.ID)

	err := s.run(ctx, networkPhase{
		kind:     KindCreateComment,
		eventID:  input.EventID,
		mutation: m,
		call: func(ctx context.Context) (*models.Comment, error) {
			res := s.actions.CreateComment(ctx, s.user, input)
			if !res.Success {
				return nil, actionError(KindCreateComment, res)
			}
			s.confirm(temp.ID, res.Comment)
			return res.Comment, nil
		},
		rollback: func() { s.cache.Restore(snap, removeFallback(temp.ID)) },
		failure:  "Failed to post comment",
	})
	return m, err
}

// CreateReply shows a temporary reply under its parent in every cached view and
// persists it. With the default policy the call waits for the server and rolls
// back on failure.
func (s *Session) CreateReply(ctx context.Context, input models.CreateCommentRequest) (*Mutation, error) {
	if input.ParentID == nil || *input.ParentID == "" {
		return s.CreateComment(ctx, input)
	}
	localParent := *input.ParentID
	parentID, err := s.resolveID(localParent)
	if err != nil {
		return nil, err
	}
	// the server only knows the resolved id
	input.ParentID = &parentID
	if err := validation.NormalizeCreateRequest(&input); err != nil {
		return nil, err
	}

	m := newMutation(KindCreateReply, "")
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	// views keep a confirmed parent under its temp id until they are refetched
	temp := NewTempComment(input, s.author, s.opts.Now())
	temp.ParentID = &localParent
	underServerID := temp
	if parentID != localParent {
		underServerID = Rebuild(temp)
		underServerID.ParentID = &parentID
	}
	m.CommentID = temp.ID
	snap := s.cache.Apply(s.cache.Locate(input.EventID, ""), func(key QueryKey, d Data) (Data, bool) {
		if next, ok := insertReply(key, d, temp); ok {
			return next, true
		}
		if underServerID == temp {
			return d, false
		}
		return insertReply(key, d, underServerID)
	})
	m.optimistic(temp)
	s.mu.Unlock()

	s.notify(ctx, ToastSuccess, "Reply posted", temp.ID)

	err = s.run(ctx, networkPhase{
		kind:     KindCreateReply,
		eventID:  input.EventID,
		mutation: m,
		call: func(ctx context.Context) (*models.Comment, error) {
			res := s.actions.CreateReply(ctx, s.user, input)
			if !res.Success {
				return nil, actionError(KindCreateReply, res)
			}
			s.confirm(temp.ID, res.Comment)
			return res.Comment, nil
		},
		rollback: func() { s.cache.Restore(snap, removeFallback(temp.ID)) },
		failure:  "Failed to post reply",
	})
	return m, err
}

// ToggleReaction flips the user's emoji on a cached comment and tells the server
// in the background. It returns whether the reaction now exists locally.
func (s *Session) ToggleReaction(ctx context.Context, eventID, commentID, emoji string) (*Mutation, bool, error) {
	if err := validation.ValidateEmoji(emoji); err != nil {
		return nil, false, err
	}
	serverID, err := s.resolveID(commentID)
	if err != nil {
		return nil, false, err
	}

	m := newMutation(KindToggleReaction, commentID)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, false, ErrSessionClosed
	}
	keys := s.cache.Locate(eventID, "")
	target := s.find(keys, commentID)
	if target == nil {
		s.mu.Unlock()
		return nil, false, ErrCommentNotCached
	}
	add := !HasReaction(target, s.author.ID, emoji)
	reaction := NewTempReaction(commentID, emoji, s.author, s.opts.Now())
	snap := s.cache.Apply(keys, func(_ QueryKey, d Data) (Data, bool) {
		return updateNode(d, commentID, func(c *models.Comment) {
			toggleReaction(c, add, reaction)
		})
	})
	m.optimistic(nil)
	s.mu.Unlock()

	err = s.run(ctx, networkPhase{
		kind:     KindToggleReaction,
		eventID:  eventID,
		mutation: m,
		call: func(ctx context.Context) (*models.Comment, error) {
			res := s.actions.ToggleReaction(ctx, s.user, models.ToggleReactionRequest{CommentID: serverID, Emoji: emoji})
			if !res.Success {
				return nil, actionError(KindToggleReaction, res)
			}
			return nil, nil
		},
		rollback: func() {
			s.cache.Restore(snap, func(_ QueryKey, d Data) (Data, bool) {
				return updateNode(d, commentID, func(c *models.Comment) {
					toggleReaction(c, !add, reaction)
				})
			})
		},
		failure: "Failed to update reaction",
	})
	return m, add, err
}

// DeleteComment removes a comment from every cached view right away and sends
// the server delete once the undo grace period passes.
func (s *Session) DeleteComment(ctx context.Context, eventID, commentID string) (*Mutation, error) {
	if s.deletes.Pending(commentID) {
		return nil, ErrDeletePending
	}
	serverID, err := s.resolveID(commentID)
	if err != nil {
		return nil, err
	}

	m := newMutation(KindDeleteComment, commentID)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	keys := s.cache.Locate(eventID, "")
	removed := s.find(keys, commentID)
	if removed == nil {
		s.mu.Unlock()
		return nil, ErrCommentNotCached
	}
	countOnly := make(map[QueryKey]bool)
	snap := s.cache.Apply(keys, func(key QueryKey, d Data) (Data, bool) {
		next, r := removeNode(key, d, commentID)
		if !removed.IsReply() || r.nested {
			return next, r.applied
		}
		parentID := *removed.ParentID
		if key.Kind == KindReplies && key.ParentID == parentID {
			return next, r.applied
		}
		// the parent may be cached without this reply but still counts it
		if bumped, ok := bumpReplies(next, parentID, -1); ok {
			if !r.applied {
				countOnly[key] = true
			}
			return bumped, true
		}
		return next, r.applied
	})
	captured := &Captured{EventID: eventID, Comment: removed, Snapshot: snap, CountOnly: countOnly}

	s.wg.Add(1)
	err = s.deletes.Schedule(commentID, s.opts.UndoGracePeriod, captured, func(c *Captured) {
		defer s.wg.Done()
		s.fireDelete(m, serverID, c)
	})
	if err != nil {
		s.wg.Done()
		s.restore(ctx, captured)
		s.mu.Unlock()
		return nil, err
	}
	m.optimistic(removed)
	s.mu.Unlock()

	s.notifier.Notify(ctx, Toast{Level: ToastSuccess, Message: "Comment deleted", CommentID: commentID, Undoable: true, At: s.opts.Now()})
	return m, nil
}

// fireDelete sends the server delete once the grace period ends
func (s *Session) fireDelete(m *Mutation, serverID string, c *Captured) {
	ctx := context.Background()
	_ = s.run(ctx, networkPhase{
		kind:     KindDeleteComment,
		eventID:  c.EventID,
		mutation: m,
		call: func(ctx context.Context) (*models.Comment, error) {
			res := s.actions.DeleteComment(ctx, s.user, serverID)
			if !res.Success {
				return nil, actionError(KindDeleteComment, res)
			}
			return nil, nil
		},
		rollback: func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.restore(ctx, c)
		},
		failure: "Failed to delete comment",
	})
}

// Undo cancels a pending deletion and puts the comment back into every cached view
func (s *Session) Undo(ctx context.Context, commentID string) error {
	c, ok := s.deletes.Cancel(commentID)
	if !ok {
		s.notify(ctx, ToastError, "Failed to undo", commentID)
		return ErrNoPendingDeletion
	}
	defer s.wg.Done()

	s.mu.Lock()
	s.restore(ctx, c)
	s.mu.Unlock()

	s.notify(ctx, ToastSuccess, "Comment restored", commentID)
	return nil
}

// restore puts a captured deletion back. Views untouched since the removal get
// their pre-delete data back. A changed view that only lost the parent's reply
// count is marked stale, since re-inserting the reply there would add a child
// it never held. Callers hold s.mu.
func (s *Session) restore(ctx context.Context, c *Captured) {
	if c == nil || c.Comment == nil {
		return
	}
	node := Rebuild(c.Comment)
	var recount []QueryKey
	s.cache.Restore(c.Snapshot, func(key QueryKey, d Data) (Data, bool) {
		if c.CountOnly[key] {
			recount = append(recount, key)
			return d, false
		}
		return restoreNode(key, d, node)
	})
	if len(recount) == 0 {
		return
	}
	if err := s.cache.Invalidate(ctx, recount, RefetchNone); err != nil {
		log.WarnWithContext(ctx, "[Threads] Marking %d views stale after restoring %s failed: %v", len(recount), c.Comment.ID, err)
	}
}

// EditComment saves new content and then invalidates every cached view. No
// optimistic patch is applied.
func (s *Session) EditComment(ctx context.Context, eventID string, input models.EditCommentRequest) (*models.Comment, error) {
	serverID, err := s.resolveID(input.CommentID)
	if err != nil {
		return nil, err
	}
	input.CommentID = serverID
	if err := validation.NormalizeEditRequest(&input); err != nil {
		return nil, err
	}

	res := s.actions.EditComment(ctx, s.user, input)
	if !res.Success {
		err := actionError(KindEditComment, res)
		log.ErrorWithContext(ctx, "[Threads] %v", err)
		s.notify(ctx, ToastError, "Failed to update comment", input.CommentID)
		return nil, err
	}

	policy := s.opts.Policies.For(KindEditComment)
	if policy.Reconcile {
		if err := s.recon.Invalidate(ctx, s.cache.Keys(), policy.Refetch); err != nil {
			log.WarnWithContext(ctx, "[Threads] Invalidation after edit of %s failed: %v", input.CommentID, err)
		}
	}
	s.notify(ctx, ToastSuccess, "Comment updated", input.CommentID)
	return res.Comment, nil
}

// removeFallback drops a temp entity from a view that changed after the patch
func removeFallback(id string) func(QueryKey, Data) (Data, bool) {
	return func(key QueryKey, d Data) (Data, bool) {
		next, r := removeNode(key, d, id)
		return next, r.applied
	}
}
