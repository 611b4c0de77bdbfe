package services

import (
	"context"

	"github.com/kickback/api/comments/models"
	"github.com/kickback/api/internal/types"
)

// CommentService defines the interface for comment operations
type CommentService interface {
	// Write operations
	CreateComment(ctx context.Context, req *models.CreateCommentRequest, user *types.UserContext) (*models.Comment, error)
	CreateReply(ctx context.Context, req *models.CreateCommentRequest, user *types.UserContext) (*models.Comment, error)
	EditComment(ctx context.Context, req *models.EditCommentRequest, user *types.UserContext) (*models.Comment, error)
	DeleteComment(ctx context.Context, commentID string, user *types.UserContext) error
	// ToggleReaction returns true when the reaction exists after the call
	ToggleReaction(ctx context.Context, req *models.ToggleReactionRequest, user *types.UserContext) (bool, error)

	// Read operations
	GetComment(ctx context.Context, commentID string) (*models.Comment, error)
	ListComments(ctx context.Context, eventID string, query models.ListQuery) (*models.CommentPage, error)
	ListReplies(ctx context.Context, eventID, parentID string, query models.ListQuery) (*models.ReplyPage, error)
	ListFlat(ctx context.Context, eventID string, sort models.SortOrder, limit int) (*models.FlatComments, error)
}
