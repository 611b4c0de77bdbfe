package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/kickback/api/comments/models"
	"github.com/kickback/api/comments/services"
	"github.com/kickback/api/internal/types"
)

// MockCommentService is a mock implementation of services.CommentService
type MockCommentService struct {
	mock.Mock
}

var _ services.CommentService = (*MockCommentService)(nil)

func (m *MockCommentService) commentResult(args mock.Arguments) (*models.Comment, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Comment), args.Error(1)
}

func (m *MockCommentService) CreateComment(ctx context.Context, req *models.CreateCommentRequest, user *types.UserContext) (*models.Comment, error) {
	return m.commentResult(m.Called(ctx, req, user))
}

func (m *MockCommentService) CreateReply(ctx context.Context, req *models.CreateCommentRequest, user *types.UserContext) (*models.Comment, error) {
	return m.commentResult(m.Called(ctx, req, user))
}

func (m *MockCommentService) EditComment(ctx context.Context, req *models.EditCommentRequest, user *types.UserContext) (*models.Comment, error) {
	return m.commentResult(m.Called(ctx, req, user))
}

func (m *MockCommentService) DeleteComment(ctx context.Context, commentID string, user *types.UserContext) error {
	args := m.Called(ctx, commentID, user)
	return args.Error(0)
}

func (m *MockCommentService) ToggleReaction(ctx context.Context, req *models.ToggleReactionRequest, user *types.UserContext) (bool, error) {
	args := m.Called(ctx, req, user)
	return args.Bool(0), args.Error(1)
}

func (m *MockCommentService) GetComment(ctx context.Context, commentID string) (*models.Comment, error) {
	return m.commentResult(m.Called(ctx, commentID))
}

func (m *MockCommentService) ListComments(ctx context.Context, eventID string, query models.ListQuery) (*models.CommentPage, error) {
	args := m.Called(ctx, eventID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CommentPage), args.Error(1)
}

func (m *MockCommentService) ListReplies(ctx context.Context, eventID, parentID string, query models.ListQuery) (*models.ReplyPage, error) {
	args := m.Called(ctx, eventID, parentID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReplyPage), args.Error(1)
}

func (m *MockCommentService) ListFlat(ctx context.Context, eventID string, sort models.SortOrder, limit int) (*models.FlatComments, error) {
	args := m.Called(ctx, eventID, sort, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FlatComments), args.Error(1)
}
