package comments

import (
	"context"

	commentsErrors "github.com/kickback/api/comments/errors"
	"github.com/kickback/api/comments/models"
	"github.com/kickback/api/comments/services"
	"github.com/kickback/api/internal/types"
	"github.com/kickback/api/threads/optimistic"
)

// DirectCallActions serves the optimistic layer's server actions and refetches
// by calling the comment service in-process
type DirectCallActions struct {
	service services.CommentService
}

var (
	_ optimistic.Actions = (*DirectCallActions)(nil)
	_ optimistic.Fetcher = (*DirectCallActions)(nil)
)

func NewDirectCallActions(service services.CommentService) *DirectCallActions {
	return &DirectCallActions{service: service}
}

func failure(err error) models.ActionResult {
	_, body := commentsErrors.StatusFor(err)
	return models.ActionResult{Success: false, Error: body.Message, Code: body.Code}
}

func (a *DirectCallActions) CreateComment(ctx context.Context, user types.UserContext, input models.CreateCommentRequest) models.ActionResult {
	created, err := a.service.CreateComment(ctx, &input, &user)
	if err != nil {
		return failure(err)
	}
	return models.ActionResult{Success: true, Comment: created}
}

func (a *DirectCallActions) CreateReply(ctx context.Context, user types.UserContext, input models.CreateCommentRequest) models.ActionResult {
	created, err := a.service.CreateReply(ctx, &input, &user)
	if err != nil {
		return failure(err)
	}
	return models.ActionResult{Success: true, Comment: created}
}

func (a *DirectCallActions) EditComment(ctx context.Context, user types.UserContext, input models.EditCommentRequest) models.ActionResult {
	edited, err := a.service.EditComment(ctx, &input, &user)
	if err != nil {
		return failure(err)
	}
	return models.ActionResult{Success: true, Comment: edited}
}

func (a *DirectCallActions) DeleteComment(ctx context.Context, user types.UserContext, commentID string) models.ActionResult {
	if err := a.service.DeleteComment(ctx, commentID, &user); err != nil {
		return failure(err)
	}
	return models.ActionResult{Success: true}
}

func (a *DirectCallActions) ToggleReaction(ctx context.Context, user types.UserContext, input models.ToggleReactionRequest) models.ActionResult {
	reacted, err := a.service.ToggleReaction(ctx, &input, &user)
	if err != nil {
		return failure(err)
	}
	return models.ActionResult{Success: true, Reacted: &reacted}
}

func (a *DirectCallActions) FetchFlat(ctx context.Context, eventID string, sort models.SortOrder) (*models.FlatComments, error) {
	return a.service.ListFlat(ctx, eventID, sort, 0)
}

func (a *DirectCallActions) FetchComments(ctx context.Context, eventID string, sort models.SortOrder, cursor string, limit int) (*models.CommentPage, error) {
	return a.service.ListComments(ctx, eventID, models.ListQuery{Sort: sort, Cursor: cursor, Limit: limit})
}

func (a *DirectCallActions) FetchReplies(ctx context.Context, eventID, parentID, cursor string, limit int) (*models.ReplyPage, error) {
	return a.service.ListReplies(ctx, eventID, parentID, models.ListQuery{Sort: models.SortNewest, Cursor: cursor, Limit: limit})
}
