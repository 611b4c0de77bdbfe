// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import (
	"strings"
	"time"
)

// SortOrder selects the ordering of top-level comments by creation time
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
)

// SortOrders lists every supported order
var SortOrders = []SortOrder{SortNewest, SortOldest}

// ParseSortOrder defaults to newest for empty or unknown input
func ParseSortOrder(s string) SortOrder {
	if SortOrder(strings.ToLower(strings.TrimSpace(s))) == SortOldest {
		return SortOldest
	}
	return SortNewest
}

func (s SortOrder) Valid() bool {
	return s == SortNewest || s == SortOldest
}

// UserSnapshot is the author data embedded in comments and reactions
type UserSnapshot struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Nickname  string `json:"nickname"`
	Avatar    string `json:"avatar"`
}

// Counts carries badge counters without materialising children
type Counts struct {
	Replies   int `json:"replies"`
	Reactions int `json:"reactions"`
}

// Reaction is a single user's emoji on a comment
type Reaction struct {
	ID        string       `json:"id"`
	CommentID string       `json:"commentId"`
	Emoji     string       `json:"emoji"`
	UserID    string       `json:"userId"`
	User      UserSnapshot `json:"user"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Comment is a top-level comment or a reply at any depth.
// Ids are server UUIDs or "temp-" placeholders while a create is in flight.
type Comment struct {
	ID          string     `json:"id"`
	Content     string     `json:"content"`
	ContentHTML string     `json:"contentHtml,omitempty"`
	ImageURL    *string    `json:"imageUrl"`
	EventID     string     `json:"eventId"`
	UserID      string     `json:"userId"`
	ParentID    *string    `json:"parentId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	EditedAt    *time.Time `json:"editedAt"`

	User      UserSnapshot `json:"user"`
	Replies   []*Comment   `json:"replies"`
	Reactions []Reaction   `json:"reactions"`
	Count     Counts       `json:"_count"`
}

// IsReply reports whether the comment has a parent
func (c *Comment) IsReply() bool {
	return c.ParentID != nil && *c.ParentID != ""
}

// CreateCommentRequest is the input for both comment and reply creation
type CreateCommentRequest struct {
	Content  string  `json:"content"`
	EventID  string  `json:"eventId"`
	ParentID *string `json:"parentId,omitempty"`
	ImageURL *string `json:"imageUrl,omitempty"`
}

// EditCommentRequest replaces the content of an existing comment
type EditCommentRequest struct {
	CommentID string `json:"commentId"`
	Content   string `json:"content"`
}

// ToggleReactionRequest flips the caller's emoji on a comment
type ToggleReactionRequest struct {
	CommentID string `json:"commentId"`
	Emoji     string `json:"emoji"`
}

// ActionResult is the {success} | {error} envelope returned by write actions
type ActionResult struct {
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Code    string   `json:"code,omitempty"`
	Comment *Comment `json:"comment,omitempty"`
	// Reacted is set by reaction toggles: true when the reaction now exists
	Reacted *bool `json:"reacted,omitempty"`
}

// CommentPage is one page of top-level comments
type CommentPage struct {
	Comments   []*Comment `json:"comments"`
	NextCursor string     `json:"nextCursor,omitempty"`
	HasMore    bool       `json:"hasMore"`
}

// ReplyPage is one page of direct replies to a parent
type ReplyPage struct {
	Replies    []*Comment `json:"replies"`
	NextCursor string     `json:"nextCursor,omitempty"`
	HasMore    bool       `json:"hasMore"`
}

// FlatComments is the non-paginated list of an event's top-level comments
type FlatComments struct {
	Comments   []*Comment `json:"comments"`
	TotalCount int        `json:"totalCount"`
}

// ListQuery holds the pagination parameters shared by list endpoints
type ListQuery struct {
	Sort   SortOrder `json:"sort"`
	Cursor string    `json:"cursor,omitempty"`
	Limit  int       `json:"limit"`
}
