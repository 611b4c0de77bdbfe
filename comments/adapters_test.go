package comments

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	commentsErrors "github.com/kickback/api/comments/errors"
	"github.com/kickback/api/comments/models"
	"github.com/kickback/api/comments/services/mocks"
	"github.com/kickback/api/internal/types"
)

func TestDirectCallActions_CreateCommentSuccess(t *testing.T) {
	svc := new(mocks.MockCommentService)
	actions := NewDirectCallActions(svc)
	user := types.UserContext{UserID: uuid.Must(uuid.NewV4())}
	input := models.CreateCommentRequest{Content: "hello", EventID: uuid.Must(uuid.NewV4()).String()}
	stored := &models.Comment{ID: uuid.Must(uuid.NewV4()).String(), Content: "hello"}

	svc.On("CreateComment", mock.Anything, &input, &user).Return(stored, nil)

	res := actions.CreateComment(context.Background(), user, input)
	assert.True(t, res.Success)
	assert.Equal(t, stored, res.Comment)
	svc.AssertExpectations(t)
}

func TestDirectCallActions_FailuresBecomeEnvelopes(t *testing.T) {
	svc := new(mocks.MockCommentService)
	actions := NewDirectCallActions(svc)
	user := types.UserContext{UserID: uuid.Must(uuid.NewV4())}
	id := uuid.Must(uuid.NewV4()).String()

	svc.On("DeleteComment", mock.Anything, id, mock.Anything).Return(commentsErrors.ErrCommentOwnershipRequired)
	svc.On("ToggleReaction", mock.Anything, mock.Anything, mock.Anything).Return(false, commentsErrors.ErrCommentNotFound)

	res := actions.DeleteComment(context.Background(), user, id)
	assert.False(t, res.Success)
	assert.Equal(t, commentsErrors.CodePermissionDenied, res.Code)
	assert.NotEmpty(t, res.Error)

	res = actions.ToggleReaction(context.Background(), user, models.ToggleReactionRequest{CommentID: id, Emoji: "🎉"})
	assert.False(t, res.Success)
	assert.Equal(t, commentsErrors.CodeCommentNotFound, res.Code)
}

func TestDirectCallActions_ToggleReactionReportsState(t *testing.T) {
	svc := new(mocks.MockCommentService)
	actions := NewDirectCallActions(svc)
	svc.On("ToggleReaction", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)

	res := actions.ToggleReaction(context.Background(), types.UserContext{UserID: uuid.Must(uuid.NewV4())},
		models.ToggleReactionRequest{CommentID: uuid.Must(uuid.NewV4()).String(), Emoji: "👍"})
	require.True(t, res.Success)
	require.NotNil(t, res.Reacted)
	assert.True(t, *res.Reacted)
}

func TestDirectCallActions_Fetchers(t *testing.T) {
	svc := new(mocks.MockCommentService)
	actions := NewDirectCallActions(svc)
	eventID := uuid.Must(uuid.NewV4()).String()
	parentID := uuid.Must(uuid.NewV4()).String()

	svc.On("ListFlat", mock.Anything, eventID, models.SortOldest, 0).Return(&models.FlatComments{TotalCount: 2}, nil)
	svc.On("ListComments", mock.Anything, eventID, models.ListQuery{Sort: models.SortNewest, Cursor: "abc", Limit: 10}).
		Return(&models.CommentPage{HasMore: true}, nil)
	svc.On("ListReplies", mock.Anything, eventID, parentID, models.ListQuery{Sort: models.SortNewest, Limit: 5}).
		Return(&models.ReplyPage{}, nil)

	flat, err := actions.FetchFlat(context.Background(), eventID, models.SortOldest)
	require.NoError(t, err)
	assert.Equal(t, 2, flat.TotalCount)

	page, err := actions.FetchComments(context.Background(), eventID, models.SortNewest, "abc", 10)
	require.NoError(t, err)
	assert.True(t, page.HasMore)

	_, err = actions.FetchReplies(context.Background(), eventID, parentID, "", 5)
	require.NoError(t, err)
	svc.AssertExpectations(t)
}
