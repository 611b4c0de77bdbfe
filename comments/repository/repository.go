// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid"

	commentsErrors "github.com/kickback/api/comments/errors"
	"github.com/kickback/api/comments/models"
)

// CommentRepository defines the comment-specific database operations
type CommentRepository interface {
	// Create inserts a comment; ID and timestamps must already be set
	Create(ctx context.Context, comment *models.Comment) error

	// FindByID returns the bare comment row, or ErrCommentNotFound
	FindByID(ctx context.Context, commentID string) (*models.Comment, error)

	// ListTopLevel returns root comments of an event in sort order using keyset pagination.
	// It fetches limit+1 rows so callers can detect another page.
	ListTopLevel(ctx context.Context, eventID string, sort models.SortOrder, cursor *Cursor, limit int) ([]*models.Comment, error)

	// ListReplies returns direct replies of a parent, newest first
	ListReplies(ctx context.Context, parentID string, cursor *Cursor, limit int) ([]*models.Comment, error)

	// CountTopLevel counts root comments of an event
	CountTopLevel(ctx context.Context, eventID string) (int, error)

	// CountsFor returns reply and reaction counters for the given comments
	CountsFor(ctx context.Context, commentIDs []string) (map[string]models.Counts, error)

	// ReactionsFor returns reactions grouped by comment, oldest first
	ReactionsFor(ctx context.Context, commentIDs []string) (map[string][]models.Reaction, error)

	// UpdateContent replaces content and stamps edited_at
	UpdateContent(ctx context.Context, commentID, content string, editedAt time.Time) error

	// Delete removes a comment; replies and reactions cascade
	Delete(ctx context.Context, commentID string) error

	// FindReaction returns the (comment, user, emoji) reaction or nil
	FindReaction(ctx context.Context, commentID, userID, emoji string) (*models.Reaction, error)

	AddReaction(ctx context.Context, reaction *models.Reaction) error
	RemoveReaction(ctx context.Context, reactionID string) error

	// WithTransaction executes fn within a database transaction
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}

// Cursor is a keyset position: the last row's creation time and id
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// EncodeCursor builds the opaque base64(createdAtMicros:id) token
func EncodeCursor(c *models.Comment) string {
	raw := fmt.Sprintf("%d:%s", c.CreatedAt.UnixMicro(), c.ID)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor. Empty input yields nil.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", commentsErrors.ErrInvalidCursor, err)
	}

	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: expected created_at:id", commentsErrors.ErrInvalidCursor)
	}

	micros, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", commentsErrors.ErrInvalidCursor, err)
	}
	if _, err := uuid.FromString(parts[1]); err != nil {
		return nil, fmt.Errorf("%w: %v", commentsErrors.ErrInvalidCursor, err)
	}

	return &Cursor{CreatedAt: time.UnixMicro(micros).UTC(), ID: parts[1]}, nil
}
