// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/kickback/api/comments/models"
	commentRepository "github.com/kickback/api/comments/repository"
)

// MockCommentRepository is a mock implementation of CommentRepository
type MockCommentRepository struct {
	mock.Mock
}

var _ commentRepository.CommentRepository = (*MockCommentRepository)(nil)

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	args := m.Called(ctx, comment)
	return args.Error(0)
}

func (m *MockCommentRepository) FindByID(ctx context.Context, commentID string) (*models.Comment, error) {
	args := m.Called(ctx, commentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Comment), args.Error(1)
}

func (m *MockCommentRepository) ListTopLevel(ctx context.Context, eventID string, sort models.SortOrder, cursor *commentRepository.Cursor, limit int) ([]*models.Comment, error) {
	args := m.Called(ctx, eventID, sort, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Comment), args.Error(1)
}

func (m *MockCommentRepository) ListReplies(ctx context.Context, parentID string, cursor *commentRepository.Cursor, limit int) ([]*models.Comment, error) {
	args := m.Called(ctx, parentID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Comment), args.Error(1)
}

func (m *MockCommentRepository) CountTopLevel(ctx context.Context, eventID string) (int, error) {
	args := m.Called(ctx, eventID)
	return args.Int(0), args.Error(1)
}

func (m *MockCommentRepository) CountsFor(ctx context.Context, commentIDs []string) (map[string]models.Counts, error) {
	args := m.Called(ctx, commentIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.Counts), args.Error(1)
}

func (m *MockCommentRepository) ReactionsFor(ctx context.Context, commentIDs []string) (map[string][]models.Reaction, error) {
	args := m.Called(ctx, commentIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]models.Reaction), args.Error(1)
}

func (m *MockCommentRepository) UpdateContent(ctx context.Context, commentID, content string, editedAt time.Time) error {
	args := m.Called(ctx, commentID, content, editedAt)
	return args.Error(0)
}

func (m *MockCommentRepository) Delete(ctx context.Context, commentID string) error {
	args := m.Called(ctx, commentID)
	return args.Error(0)
}

func (m *MockCommentRepository) FindReaction(ctx context.Context, commentID, userID, emoji string) (*models.Reaction, error) {
	args := m.Called(ctx, commentID, userID, emoji)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reaction), args.Error(1)
}

func (m *MockCommentRepository) AddReaction(ctx context.Context, reaction *models.Reaction) error {
	args := m.Called(ctx, reaction)
	return args.Error(0)
}

func (m *MockCommentRepository) RemoveReaction(ctx context.Context, reactionID string) error {
	args := m.Called(ctx, reactionID)
	return args.Error(0)
}

func (m *MockCommentRepository) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}
