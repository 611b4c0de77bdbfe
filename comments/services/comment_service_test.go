package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	commentsErrors "github.com/kickback/api/comments/errors"
	"github.com/kickback/api/comments/models"
	commentRepository "github.com/kickback/api/comments/repository"
	"github.com/kickback/api/comments/services"
	"github.com/kickback/api/comments/services/mocks"
	"github.com/kickback/api/internal/cache"
	"github.com/kickback/api/internal/types"
)

func createTestUserContext() *types.UserContext {
	return &types.UserContext{
		UserID:    uuid.Must(uuid.NewV4()),
		FirstName: "Test",
		LastName:  "User",
		Nickname:  "tester",
		Avatar:    "https://example.com/avatar.jpg",
	}
}

func newID() string {
	return uuid.Must(uuid.NewV4()).String()
}

func createTestComment(eventID string, owner *types.UserContext) *models.Comment {
	now := time.Now().UTC()
	return &models.Comment{
		ID:        newID(),
		EventID:   eventID,
		UserID:    owner.UserID.String(),
		Content:   "Test comment text",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newTestService(t *testing.T) (services.CommentService, *mocks.MockCommentRepository, *cache.GenericCacheService) {
	t.Helper()
	repo := new(mocks.MockCommentRepository)
	cacheService := cache.NewGenericCacheService(cache.NewMemoryCache(0, 0), "test:", time.Minute)
	t.Cleanup(func() { cacheService.Close() })

	svc := services.NewCommentService(repo, cacheService)
	return svc, repo, cacheService
}

func expectHydrate(repo *mocks.MockCommentRepository, counts map[string]models.Counts, reactions map[string][]models.Reaction) {
	repo.On("CountsFor", mock.Anything, mock.Anything).Return(counts, nil)
	repo.On("ReactionsFor", mock.Anything, mock.Anything).Return(reactions, nil)
}

func runTransaction(repo *mocks.MockCommentRepository) {
	repo.On("WithTransaction", mock.Anything, mock.AnythingOfType("func(context.Context) error")).Return(nil).Run(func(args mock.Arguments) {
		fn := args.Get(1).(func(context.Context) error)
		_ = fn(args.Get(0).(context.Context))
	})
}

func TestCreateComment_ValidRequest_Success(t *testing.T) {
	svc, repo, cacheService := newTestService(t)
	ctx := context.Background()
	user := createTestUserContext()
	eventID := newID()

	require.NoError(t, cacheService.CacheData(ctx, "comments:event:"+eventID+":flat:newest:500", models.FlatComments{}))

	repo.On("Create", ctx, mock.AnythingOfType("*models.Comment")).Return(nil)

	created, err := svc.CreateComment(ctx, &models.CreateCommentRequest{Content: " <i>hello</i> **world** ", EventID: eventID}, user)
	require.NoError(t, err)

	assert.Equal(t, "hello **world**", created.Content)
	assert.Contains(t, created.ContentHTML, "<strong>world</strong>")
	assert.Equal(t, user.UserID.String(), created.User.ID)
	assert.Equal(t, "tester", created.User.Nickname)
	assert.Nil(t, created.ParentID)
	assert.True(t, uuid.FromStringOrNil(created.ID) != uuid.Nil)

	var stale models.FlatComments
	assert.ErrorIs(t, cacheService.GetCached(ctx, "comments:event:"+eventID+":flat:newest:500", &stale), cache.ErrKeyNotFound)
	repo.AssertExpectations(t)
}

func TestCreateComment_InvalidRequest_NoRepositoryCall(t *testing.T) {
	svc, repo, _ := newTestService(t)

	_, err := svc.CreateComment(context.Background(), &models.CreateCommentRequest{Content: "   ", EventID: newID()}, createTestUserContext())
	assert.ErrorIs(t, err, commentsErrors.ErrValidationFailed)

	_, err = svc.CreateComment(context.Background(), &models.CreateCommentRequest{Content: "hi", EventID: newID()}, nil)
	assert.ErrorIs(t, err, commentsErrors.ErrMissingUserContext)

	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateComment_WithParent_DelegatesToReply(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	user := createTestUserContext()
	parent := createTestComment(newID(), user)

	repo.On("FindByID", ctx, parent.ID).Return(parent, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*models.Comment")).Return(nil)

	reply, err := svc.CreateComment(ctx, &models.CreateCommentRequest{Content: "reply", EventID: parent.EventID, ParentID: &parent.ID}, user)
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, parent.ID, *reply.ParentID)
}

func TestCreateReply_ParentChecks(t *testing.T) {
	ctx := context.Background()
	user := createTestUserContext()

	t.Run("parent missing", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		parentID := newID()
		repo.On("FindByID", ctx, parentID).Return(nil, commentsErrors.ErrCommentNotFound)

		_, err := svc.CreateReply(ctx, &models.CreateCommentRequest{Content: "hi", EventID: newID(), ParentID: &parentID}, user)
		assert.ErrorIs(t, err, commentsErrors.ErrParentNotFound)
	})

	t.Run("parent in another event", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		parent := createTestComment(newID(), user)
		repo.On("FindByID", ctx, parent.ID).Return(parent, nil)

		_, err := svc.CreateReply(ctx, &models.CreateCommentRequest{Content: "hi", EventID: newID(), ParentID: &parent.ID}, user)
		assert.ErrorIs(t, err, commentsErrors.ErrParentEventMismatch)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("parent required", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.CreateReply(ctx, &models.CreateCommentRequest{Content: "hi", EventID: newID()}, user)
		assert.ErrorIs(t, err, commentsErrors.ErrValidationFailed)
	})
}

func TestEditComment(t *testing.T) {
	ctx := context.Background()
	owner := createTestUserContext()

	t.Run("owner edits", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		existing := createTestComment(newID(), owner)
		repo.On("FindByID", ctx, existing.ID).Return(existing, nil)
		repo.On("UpdateContent", ctx, existing.ID, "updated", mock.AnythingOfType("time.Time")).Return(nil)
		expectHydrate(repo, map[string]models.Counts{existing.ID: {Replies: 2}}, map[string][]models.Reaction{})

		edited, err := svc.EditComment(ctx, &models.EditCommentRequest{CommentID: existing.ID, Content: "updated"}, owner)
		require.NoError(t, err)
		assert.Equal(t, "updated", edited.Content)
		assert.NotNil(t, edited.EditedAt)
		assert.Equal(t, 2, edited.Count.Replies)
		assert.Empty(t, edited.Reactions)
	})

	t.Run("other user is rejected", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		existing := createTestComment(newID(), owner)
		repo.On("FindByID", ctx, existing.ID).Return(existing, nil)

		_, err := svc.EditComment(ctx, &models.EditCommentRequest{CommentID: existing.ID, Content: "mine now"}, createTestUserContext())
		assert.ErrorIs(t, err, commentsErrors.ErrCommentOwnershipRequired)
		repo.AssertNotCalled(t, "UpdateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDeleteComment(t *testing.T) {
	ctx := context.Background()
	owner := createTestUserContext()

	t.Run("owner deletes", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		existing := createTestComment(newID(), owner)
		repo.On("FindByID", ctx, existing.ID).Return(existing, nil)
		repo.On("Delete", ctx, existing.ID).Return(nil)

		require.NoError(t, svc.DeleteComment(ctx, existing.ID, owner))
		repo.AssertExpectations(t)
	})

	t.Run("missing comment", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		id := newID()
		repo.On("FindByID", ctx, id).Return(nil, commentsErrors.ErrCommentNotFound)

		assert.ErrorIs(t, svc.DeleteComment(ctx, id, owner), commentsErrors.ErrCommentNotFound)
	})

	t.Run("invalid id", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		assert.ErrorIs(t, svc.DeleteComment(ctx, "temp-1", owner), commentsErrors.ErrValidationFailed)
	})
}

func TestToggleReaction(t *testing.T) {
	ctx := context.Background()
	user := createTestUserContext()

	t.Run("adds when absent", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		comment := createTestComment(newID(), user)
		repo.On("FindByID", ctx, comment.ID).Return(comment, nil)
		runTransaction(repo)
		repo.On("FindReaction", mock.Anything, comment.ID, user.UserID.String(), "🎉").Return(nil, nil)
		repo.On("AddReaction", mock.Anything, mock.MatchedBy(func(r *models.Reaction) bool {
			return r.CommentID == comment.ID && r.Emoji == "🎉" && r.User.Nickname == "tester"
		})).Return(nil)

		reacted, err := svc.ToggleReaction(ctx, &models.ToggleReactionRequest{CommentID: comment.ID, Emoji: "🎉"}, user)
		require.NoError(t, err)
		assert.True(t, reacted)
		repo.AssertExpectations(t)
	})

	t.Run("removes when present", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		comment := createTestComment(newID(), user)
		existing := &models.Reaction{ID: newID(), CommentID: comment.ID, Emoji: "🎉", UserID: user.UserID.String()}
		repo.On("FindByID", ctx, comment.ID).Return(comment, nil)
		runTransaction(repo)
		repo.On("FindReaction", mock.Anything, comment.ID, user.UserID.String(), "🎉").Return(existing, nil)
		repo.On("RemoveReaction", mock.Anything, existing.ID).Return(nil)

		reacted, err := svc.ToggleReaction(ctx, &models.ToggleReactionRequest{CommentID: comment.ID, Emoji: "🎉"}, user)
		require.NoError(t, err)
		assert.False(t, reacted)
		repo.AssertNotCalled(t, "AddReaction", mock.Anything, mock.Anything)
	})
}

func TestListComments_PaginatesAndCaches(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	user := createTestUserContext()
	eventID := newID()

	rows := []*models.Comment{
		createTestComment(eventID, user),
		createTestComment(eventID, user),
		createTestComment(eventID, user),
	}
	repo.On("ListTopLevel", ctx, eventID, models.SortNewest, (*commentRepository.Cursor)(nil), 2).Return(rows, nil).Once()
	expectHydrate(repo, map[string]models.Counts{}, map[string][]models.Reaction{})

	page, err := svc.ListComments(ctx, eventID, models.ListQuery{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Comments, 2)
	assert.True(t, page.HasMore)
	assert.NotEmpty(t, page.NextCursor)

	again, err := svc.ListComments(ctx, eventID, models.ListQuery{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, page.NextCursor, again.NextCursor)
	repo.AssertNumberOfCalls(t, "ListTopLevel", 1)
}

func TestListComments_InvalidCursor(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.ListComments(context.Background(), newID(), models.ListQuery{Cursor: "!!!"})
	assert.ErrorIs(t, err, commentsErrors.ErrInvalidCursor)
}

func TestListFlat_ReturnsTotalCount(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	user := createTestUserContext()
	eventID := newID()
	rows := []*models.Comment{createTestComment(eventID, user)}

	repo.On("ListTopLevel", ctx, eventID, models.SortOldest, (*commentRepository.Cursor)(nil), services.MaxFlatLimit).Return(rows, nil)
	repo.On("CountTopLevel", ctx, eventID).Return(7, nil)
	expectHydrate(repo, map[string]models.Counts{rows[0].ID: {Reactions: 1}}, map[string][]models.Reaction{})

	flat, err := svc.ListFlat(ctx, eventID, models.SortOldest, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, flat.TotalCount)
	assert.Equal(t, 1, flat.Comments[0].Count.Reactions)
}

func TestListReplies(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	user := createTestUserContext()
	eventID := newID()
	parentID := newID()
	reply := createTestComment(eventID, user)
	reply.ParentID = &parentID

	repo.On("ListReplies", ctx, parentID, (*commentRepository.Cursor)(nil), services.DefaultCommentLimit).Return([]*models.Comment{reply}, nil)
	expectHydrate(repo, map[string]models.Counts{}, map[string][]models.Reaction{})

	page, err := svc.ListReplies(ctx, eventID, parentID, models.ListQuery{})
	require.NoError(t, err)
	require.Len(t, page.Replies, 1)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextCursor)
}
