// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/kickback/api/comments/models"
	"github.com/kickback/api/internal/types"
	"github.com/kickback/api/threads/optimistic"
)

// MockActions is a mock implementation of optimistic.Actions
type MockActions struct {
	mock.Mock
}

var _ optimistic.Actions = (*MockActions)(nil)

func (m *MockActions) CreateComment(ctx context.Context, user types.UserContext, input models.CreateCommentRequest) models.ActionResult {
	args := m.Called(ctx, user, input)
	return args.Get(0).(models.ActionResult)
}

func (m *MockActions) CreateReply(ctx context.Context, user types.UserContext, input models.CreateCommentRequest) models.ActionResult {
	args := m.Called(ctx, user, input)
	return args.Get(0).(models.ActionResult)
}

func (m *MockActions) EditComment(ctx context.Context, user types.UserContext, input models.EditCommentRequest) models.ActionResult {
	args := m.Called(ctx, user, input)
	return args.Get(0).(models.ActionResult)
}

func (m *MockActions) DeleteComment(ctx context.Context, user types.UserContext, commentID string) models.ActionResult {
	args := m.Called(ctx, user, commentID)
	return args.Get(0).(models.ActionResult)
}

func (m *MockActions) ToggleReaction(ctx context.Context, user types.UserContext, input models.ToggleReactionRequest) models.ActionResult {
	args := m.Called(ctx, user, input)
	return args.Get(0).(models.ActionResult)
}

// MockFetcher is a mock implementation of optimistic.Fetcher
type MockFetcher struct {
	mock.Mock
}

var _ optimistic.Fetcher = (*MockFetcher)(nil)

func (m *MockFetcher) FetchFlat(ctx context.Context, eventID string, sort models.SortOrder) (*models.FlatComments, error) {
	args := m.Called(ctx, eventID, sort)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FlatComments), args.Error(1)
}

func (m *MockFetcher) FetchComments(ctx context.Context, eventID string, sort models.SortOrder, cursor string, limit int) (*models.CommentPage, error) {
	args := m.Called(ctx, eventID, sort, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CommentPage), args.Error(1)
}

func (m *MockFetcher) FetchReplies(ctx context.Context, eventID, parentID, cursor string, limit int) (*models.ReplyPage, error) {
	args := m.Called(ctx, eventID, parentID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReplyPage), args.Error(1)
}
