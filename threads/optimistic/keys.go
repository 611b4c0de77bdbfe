package optimistic

import (
	"fmt"

	"github.com/kickback/api/comments/models"
)

// QueryKind identifies the shape of a cached query result
type QueryKind string

const (
	// KindFlat is the non-paginated list of top-level comments with a total count
	KindFlat QueryKind = "flat"
	// KindComments is the paginated list of top-level comments
	KindComments QueryKind = "comments"
	// KindReplies is the paginated list of direct replies to one parent
	KindReplies QueryKind = "replies"
)

// QueryKey addresses one cached view
type QueryKey struct {
	Kind     QueryKind
	EventID  string
	ParentID string
	Sort     models.SortOrder
}

// FlatKey addresses the flat view of an event
func FlatKey(eventID string, sort models.SortOrder) QueryKey {
	return QueryKey{Kind: KindFlat, EventID: eventID, Sort: normalizeSort(sort)}
}

// CommentsKey addresses the paginated top-level view of an event
func CommentsKey(eventID string, sort models.SortOrder) QueryKey {
	return QueryKey{Kind: KindComments, EventID: eventID, Sort: normalizeSort(sort)}
}

// RepliesKey addresses the paginated replies of parentID. Replies are always newest first.
func RepliesKey(eventID, parentID string) QueryKey {
	return QueryKey{Kind: KindReplies, EventID: eventID, ParentID: parentID, Sort: models.SortNewest}
}

func (k QueryKey) String() string {
	if k.Kind == KindReplies {
		return fmt.Sprintf("%s:%s:%s", k.Kind, k.EventID, k.ParentID)
	}
	return fmt.Sprintf("%s:%s:%s", k.Kind, k.EventID, k.Sort)
}

// Paged reports whether the key holds paginated data
func (k QueryKey) Paged() bool {
	return k.Kind == KindComments || k.Kind == KindReplies
}

func normalizeSort(sort models.SortOrder) models.SortOrder {
	if sort.Valid() {
		return sort
	}
	return models.SortNewest
}
