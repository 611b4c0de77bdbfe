package optimistic

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kickback/api/comments/models"
	"github.com/kickback/api/internal/types"
)

// TempIDPrefix marks ids that have not been confirmed by the server
const TempIDPrefix = "temp-"

var tempSeq uint64

// NewTempID returns a locally unique placeholder id
func NewTempID(now time.Time) string {
	seq := atomic.AddUint64(&tempSeq, 1)
	return fmt.Sprintf("%s%d-%d", TempIDPrefix, now.UnixNano(), seq)
}

// IsTempID reports whether id was produced by NewTempID
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// SnapshotOf builds the author snapshot embedded in optimistic entities
func SnapshotOf(user types.UserContext) models.UserSnapshot {
	return models.UserSnapshot{
		ID:        user.UserID.String(),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Nickname:  user.Nickname,
		Avatar:    user.Avatar,
	}
}

// NewTempComment synthesizes a fully populated comment for input as if the
// server had just stored it.
func NewTempComment(input models.CreateCommentRequest, user models.UserSnapshot, now time.Time) *models.Comment {
	c := &models.Comment{
		ID:        NewTempID(now),
		Content:   input.Content,
		EventID:   input.EventID,
		UserID:    user.ID,
		CreatedAt: now,
		UpdatedAt: now,
		User:      user,
		Replies:   []*models.Comment{},
		Reactions: []models.Reaction{},
	}
	if input.ImageURL != nil {
		url := *input.ImageURL
		c.ImageURL = &url
	}
	if input.ParentID != nil {
		parent := *input.ParentID
		c.ParentID = &parent
	}
	return c
}

// NewTempReaction synthesizes the caller's reaction on commentID
func NewTempReaction(commentID, emoji string, user models.UserSnapshot, now time.Time) models.Reaction {
	return models.Reaction{
		ID:        NewTempID(now),
		CommentID: commentID,
		Emoji:     emoji,
		UserID:    user.ID,
		User:      user,
		CreatedAt: now,
	}
}
