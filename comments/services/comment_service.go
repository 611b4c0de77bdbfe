package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"

	commentsErrors "github.com/kickback/api/comments/errors"
	"github.com/kickback/api/comments/models"
	commentRepository "github.com/kickback/api/comments/repository"
	"github.com/kickback/api/comments/validation"
	"github.com/kickback/api/internal/cache"
	"github.com/kickback/api/internal/pkg/content"
	"github.com/kickback/api/internal/pkg/log"
	"github.com/kickback/api/internal/types"
)

const (
	defaultCommentLimit = 20
	maxCommentLimit     = 100
	maxFlatLimit        = 500
	listCacheTTL        = time.Minute
)

type commentService struct {
	commentRepo  commentRepository.CommentRepository
	cacheService *cache.GenericCacheService
	now          func() time.Time
}

// NewCommentService wires the comment service with its dependencies.
// cacheService may be nil or disabled, in which case reads always hit the repository.
func NewCommentService(commentRepo commentRepository.CommentRepository, cacheService *cache.GenericCacheService) CommentService {
	return &commentService{
		commentRepo:  commentRepo,
		cacheService: cacheService,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func eventCachePattern(eventID string) string {
	return "comments:event:" + eventID + ":*"
}

func itemCacheKey(commentID string) string {
	return "comments:item:" + commentID
}

func (s *commentService) getCached(ctx context.Context, key string, target interface{}) bool {
	if !s.cacheService.IsEnabled() {
		return false
	}
	return s.cacheService.GetCached(ctx, key, target) == nil
}

func (s *commentService) cacheResult(ctx context.Context, key string, value interface{}) {
	if !s.cacheService.IsEnabled() {
		return
	}
	_ = s.cacheService.CacheData(ctx, key, value, listCacheTTL)
}

func (s *commentService) invalidate(ctx context.Context, patterns ...string) {
	if !s.cacheService.IsEnabled() {
		return
	}
	for _, pattern := range patterns {
		if err := s.cacheService.InvalidatePattern(ctx, pattern); err != nil {
			log.WarnWithContext(ctx, "Cache invalidation failed for %s: %v", pattern, err)
		}
	}
}

func requireUser(user *types.UserContext) error {
	if user == nil || user.UserID == uuid.Nil {
		return commentsErrors.ErrMissingUserContext
	}
	return nil
}

func snapshotOf(user *types.UserContext) models.UserSnapshot {
	return models.UserSnapshot{
		ID:        user.UserID.String(),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Nickname:  user.Nickname,
		Avatar:    user.Avatar,
	}
}

// CreateComment persists a top-level comment, or a reply when ParentID is set
func (s *commentService) CreateComment(ctx context.Context, req *models.CreateCommentRequest, user *types.UserContext) (*models.Comment, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if err := validation.NormalizeCreateRequest(req); err != nil {
		return nil, err
	}
	if req.ParentID != nil {
		return s.createReply(ctx, req, user)
	}
	return s.insert(ctx, req, user)
}

// CreateReply persists a reply; the parent must exist in the same event
func (s *commentService) CreateReply(ctx context.Context, req *models.CreateCommentRequest, user *types.UserContext) (*models.Comment, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if err := validation.NormalizeCreateRequest(req); err != nil {
		return nil, err
	}
	if req.ParentID == nil {
		return nil, commentsErrors.NewValidationError("parentId is required for replies")
	}
	return s.createReply(ctx, req, user)
}

func (s *commentService) createReply(ctx context.Context, req *models.CreateCommentRequest, user *types.UserContext) (*models.Comment, error) {
	parent, err := s.commentRepo.FindByID(ctx, *req.ParentID)
	if err != nil {
		if errors.Is(err, commentsErrors.ErrCommentNotFound) {
			return nil, commentsErrors.ErrParentNotFound
		}
		return nil, err
	}
	if parent.EventID != req.EventID {
		return nil, commentsErrors.ErrParentEventMismatch
	}

	created, err := s.insert(ctx, req, user)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, itemCacheKey(parent.ID))
	return created, nil
}

func (s *commentService) insert(ctx context.Context, req *models.CreateCommentRequest, user *types.UserContext) (*models.Comment, error) {
	commentID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate comment id: %w", err)
	}

	now := s.now()
	comment := &models.Comment{
		ID:        commentID.String(),
		Content:   req.Content,
		ImageURL:  req.ImageURL,
		EventID:   req.EventID,
		UserID:    user.UserID.String(),
		ParentID:  req.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
		User:      snapshotOf(user),
		Replies:   []*models.Comment{},
		Reactions: []models.Reaction{},
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	comment.ContentHTML = content.RenderMarkdown(comment.Content)
	s.invalidate(ctx, eventCachePattern(comment.EventID))
	log.InfoWithContext(ctx, "Comment %s created on event %s", comment.ID, comment.EventID)
	return comment, nil
}

// EditComment replaces content; only the author may edit
func (s *commentService) EditComment(ctx context.Context, req *models.EditCommentRequest, user *types.UserContext) (*models.Comment, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if err := validation.NormalizeEditRequest(req); err != nil {
		return nil, err
	}

	existing, err := s.ownedComment(ctx, req.CommentID, user)
	if err != nil {
		return nil, err
	}

	editedAt := s.now()
	if err := s.commentRepo.UpdateContent(ctx, existing.ID, req.Content, editedAt); err != nil {
		return nil, err
	}

	// edits can surface in any cached view, so every comment key goes
	s.invalidate(ctx, "comments:*")

	existing.Content = req.Content
	existing.EditedAt = &editedAt
	existing.UpdatedAt = editedAt
	if err := s.hydrate(ctx, []*models.Comment{existing}); err != nil {
		return nil, err
	}
	return existing, nil
}

// DeleteComment removes a comment and its subtree; only the author may delete
func (s *commentService) DeleteComment(ctx context.Context, commentID string, user *types.UserContext) error {
	if err := requireUser(user); err != nil {
		return err
	}
	if !validation.IsValidUUID(commentID) {
		return commentsErrors.NewValidationError("commentId must be a valid UUID")
	}

	existing, err := s.ownedComment(ctx, commentID, user)
	if err != nil {
		return err
	}
	if err := s.commentRepo.Delete(ctx, existing.ID); err != nil {
		return err
	}

	s.invalidate(ctx, eventCachePattern(existing.EventID), "comments:item:*")
	log.InfoWithContext(ctx, "Comment %s deleted by %s", existing.ID, user.UserID)
	return nil
}

func (s *commentService) ownedComment(ctx context.Context, commentID string, user *types.UserContext) (*models.Comment, error) {
	existing, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if existing.UserID != user.UserID.String() {
		return nil, commentsErrors.ErrCommentOwnershipRequired
	}
	return existing, nil
}

// ToggleReaction removes the caller's (comment, emoji) reaction if present, otherwise adds it
func (s *commentService) ToggleReaction(ctx context.Context, req *models.ToggleReactionRequest, user *types.UserContext) (bool, error) {
	if err := requireUser(user); err != nil {
		return false, err
	}
	if err := validation.ValidateReactionRequest(req); err != nil {
		return false, err
	}

	comment, err := s.commentRepo.FindByID(ctx, req.CommentID)
	if err != nil {
		return false, err
	}

	userID := user.UserID.String()
	var reacted bool
	err = s.commentRepo.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.commentRepo.FindReaction(txCtx, req.CommentID, userID, req.Emoji)
		if err != nil {
			return err
		}
		if existing != nil {
			reacted = false
			return s.commentRepo.RemoveReaction(txCtx, existing.ID)
		}

		reactionID, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("failed to generate reaction id: %w", err)
		}
		reacted = true
		return s.commentRepo.AddReaction(txCtx, &models.Reaction{
			ID:        reactionID.String(),
			CommentID: req.CommentID,
			Emoji:     req.Emoji,
			UserID:    userID,
			User:      snapshotOf(user),
			CreatedAt: s.now(),
		})
	})
	if err != nil {
		return false, err
	}

	s.invalidate(ctx, eventCachePattern(comment.EventID), itemCacheKey(comment.ID))
	return reacted, nil
}

// GetComment returns a single hydrated comment
func (s *commentService) GetComment(ctx context.Context, commentID string) (*models.Comment, error) {
	if !validation.IsValidUUID(commentID) {
		return nil, commentsErrors.NewValidationError("commentId must be a valid UUID")
	}

	var cached models.Comment
	if s.getCached(ctx, itemCacheKey(commentID), &cached) {
		return &cached, nil
	}

	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, []*models.Comment{comment}); err != nil {
		return nil, err
	}

	s.cacheResult(ctx, itemCacheKey(commentID), comment)
	return comment, nil
}

// ListComments returns one keyset page of an event's top-level comments
func (s *commentService) ListComments(ctx context.Context, eventID string, query models.ListQuery) (*models.CommentPage, error) {
	if !validation.IsValidUUID(eventID) {
		return nil, commentsErrors.NewValidationError("eventId must be a valid UUID")
	}
	query = normalizeQuery(query)
	cursor, err := commentRepository.DecodeCursor(query.Cursor)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("comments:event:%s:list:%s:%d:%s", eventID, query.Sort, query.Limit, query.Cursor)
	var cached models.CommentPage
	if s.getCached(ctx, key, &cached) {
		return &cached, nil
	}

	rows, err := s.commentRepo.ListTopLevel(ctx, eventID, query.Sort, cursor, query.Limit)
	if err != nil {
		return nil, err
	}
	rows, next, hasMore := trimPage(rows, query.Limit)
	if err := s.hydrate(ctx, rows); err != nil {
		return nil, err
	}

	page := &models.CommentPage{Comments: rows, NextCursor: next, HasMore: hasMore}
	s.cacheResult(ctx, key, page)
	return page, nil
}

// ListReplies returns one page of a parent's direct replies, newest first
func (s *commentService) ListReplies(ctx context.Context, eventID, parentID string, query models.ListQuery) (*models.ReplyPage, error) {
	if !validation.IsValidUUID(eventID) || !validation.IsValidUUID(parentID) {
		return nil, commentsErrors.NewValidationError("eventId and parentId must be valid UUIDs")
	}
	query = normalizeQuery(query)
	cursor, err := commentRepository.DecodeCursor(query.Cursor)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("comments:event:%s:replies:%s:%d:%s", eventID, parentID, query.Limit, query.Cursor)
	var cached models.ReplyPage
	if s.getCached(ctx, key, &cached) {
		return &cached, nil
	}

	rows, err := s.commentRepo.ListReplies(ctx, parentID, cursor, query.Limit)
	if err != nil {
		return nil, err
	}
	rows, next, hasMore := trimPage(rows, query.Limit)
	if err := s.hydrate(ctx, rows); err != nil {
		return nil, err
	}

	page := &models.ReplyPage{Replies: rows, NextCursor: next, HasMore: hasMore}
	s.cacheResult(ctx, key, page)
	return page, nil
}

// ListFlat returns up to limit top-level comments with the event's total count
func (s *commentService) ListFlat(ctx context.Context, eventID string, sort models.SortOrder, limit int) (*models.FlatComments, error) {
	if !validation.IsValidUUID(eventID) {
		return nil, commentsErrors.NewValidationError("eventId must be a valid UUID")
	}
	if !sort.Valid() {
		sort = models.SortNewest
	}
	if limit <= 0 || limit > maxFlatLimit {
		limit = maxFlatLimit
	}

	key := fmt.Sprintf("comments:event:%s:flat:%s:%d", eventID, sort, limit)
	var cached models.FlatComments
	if s.getCached(ctx, key, &cached) {
		return &cached, nil
	}

	rows, err := s.commentRepo.ListTopLevel(ctx, eventID, sort, nil, limit)
	if err != nil {
		return nil, err
	}
	rows, _, _ = trimPage(rows, limit)
	total, err := s.commentRepo.CountTopLevel(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, rows); err != nil {
		return nil, err
	}

	flat := &models.FlatComments{Comments: rows, TotalCount: total}
	s.cacheResult(ctx, key, flat)
	return flat, nil
}

func normalizeQuery(q models.ListQuery) models.ListQuery {
	if !q.Sort.Valid() {
		q.Sort = models.SortNewest
	}
	if q.Limit <= 0 {
		q.Limit = defaultCommentLimit
	}
	if q.Limit > maxCommentLimit {
		q.Limit = maxCommentLimit
	}
	return q
}

// trimPage drops the look-ahead row fetched by the repository
func trimPage(rows []*models.Comment, limit int) ([]*models.Comment, string, bool) {
	if len(rows) <= limit {
		return rows, "", false
	}
	rows = rows[:limit]
	return rows, commentRepository.EncodeCursor(rows[len(rows)-1]), true
}

// hydrate attaches counters, reactions and rendered HTML
func (s *commentService) hydrate(ctx context.Context, comments []*models.Comment) error {
	if len(comments) == 0 {
		return nil
	}

	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
	}

	counts, err := s.commentRepo.CountsFor(ctx, ids)
	if err != nil {
		return err
	}
	reactions, err := s.commentRepo.ReactionsFor(ctx, ids)
	if err != nil {
		return err
	}

	for _, c := range comments {
		c.Count = counts[c.ID]
		c.Reactions = reactions[c.ID]
		if c.Reactions == nil {
			c.Reactions = []models.Reaction{}
		}
		if c.Replies == nil {
			c.Replies = []*models.Comment{}
		}
		c.ContentHTML = content.RenderMarkdown(c.Content)
	}
	return nil
}
