package optimistic

import (
	"github.com/kickback/api/comments/models"
)

// PatchResult reports whether a tree patch found its target and which node it touched
type PatchResult struct {
	Applied bool
	Node    *models.Comment
}

// rewrite looks for id at any depth and replaces the node with fn(node), which may
// return zero or more nodes. Only the ancestors on the path to the node are copied;
// everything else keeps its pointer. onParent receives the copy of the direct parent.
// depth is -1 when id is absent and 0 when it sits in forest itself.
func rewrite(forest []*models.Comment, id string, fn func(*models.Comment) []*models.Comment, onParent func(*models.Comment)) ([]*models.Comment, *models.Comment, int) {
	for i, node := range forest {
		if node == nil {
			continue
		}
		if node.ID == id {
			repl := fn(node)
			out := make([]*models.Comment, 0, len(forest)-1+len(repl))
			out = append(out, forest[:i]...)
			out = append(out, repl...)
			out = append(out, forest[i+1:]...)
			return out, node, 0
		}
		if len(node.Replies) == 0 {
			continue
		}
		replies, found, depth := rewrite(node.Replies, id, fn, onParent)
		if depth < 0 {
			continue
		}
		cp := cloneNode(node)
		cp.Replies = replies
		if depth == 0 && onParent != nil {
			onParent(cp)
		}
		out := make([]*models.Comment, len(forest))
		copy(out, forest)
		out[i] = cp
		return out, found, depth + 1
	}
	return forest, nil, -1
}

func cloneNode(c *models.Comment) *models.Comment {
	cp := *c
	return &cp
}

// InsertTop adds a top-level comment: first for newest order, last for oldest
func InsertTop(forest []*models.Comment, c *models.Comment, sort models.SortOrder) ([]*models.Comment, PatchResult) {
	out := make([]*models.Comment, 0, len(forest)+1)
	if sort == models.SortOldest {
		out = append(out, forest...)
		out = append(out, c)
	} else {
		out = append(out, c)
		out = append(out, forest...)
	}
	return out, PatchResult{Applied: true, Node: c}
}

// InsertReply prepends reply to the replies of parentID and bumps its reply count
func InsertReply(forest []*models.Comment, parentID string, reply *models.Comment) ([]*models.Comment, PatchResult) {
	var parent *models.Comment
	out, _, depth := rewrite(forest, parentID, func(n *models.Comment) []*models.Comment {
		cp := cloneNode(n)
		replies := make([]*models.Comment, 0, len(n.Replies)+1)
		replies = append(replies, reply)
		cp.Replies = append(replies, n.Replies...)
		cp.Count.Replies++
		parent = cp
		return []*models.Comment{cp}
	}, nil)
	return out, PatchResult{Applied: depth >= 0, Node: parent}
}

// Remove drops id and its subtree. A nested node's parent loses one from its reply
// count; nested reports whether that happened.
func Remove(forest []*models.Comment, id string) (out []*models.Comment, res PatchResult, nested bool) {
	out, node, depth := rewrite(forest, id, func(*models.Comment) []*models.Comment {
		return nil
	}, func(parent *models.Comment) {
		if parent.Count.Replies > 0 {
			parent.Count.Replies--
		}
	})
	return out, PatchResult{Applied: depth >= 0, Node: node}, depth > 0
}

// Update replaces id with a copy modified by fn. fn must not mutate slices it
// did not allocate.
func Update(forest []*models.Comment, id string, fn func(*models.Comment)) ([]*models.Comment, PatchResult) {
	var updated *models.Comment
	out, _, depth := rewrite(forest, id, func(n *models.Comment) []*models.Comment {
		updated = cloneNode(n)
		fn(updated)
		return []*models.Comment{updated}
	}, nil)
	return out, PatchResult{Applied: depth >= 0, Node: updated}
}

// BumpReplyCount adds delta to the reply counter of id, never going below zero
func BumpReplyCount(forest []*models.Comment, id string, delta int) ([]*models.Comment, PatchResult) {
	return Update(forest, id, func(c *models.Comment) {
		c.Count.Replies += delta
		if c.Count.Replies < 0 {
			c.Count.Replies = 0
		}
	})
}

// Find returns the node with id at any depth
func Find(forest []*models.Comment, id string) *models.Comment {
	for _, node := range forest {
		if node == nil {
			continue
		}
		if node.ID == id {
			return node
		}
		if found := Find(node.Replies, id); found != nil {
			return found
		}
	}
	return nil
}

// InsertSorted places c among siblings ordered by creation time
func InsertSorted(forest []*models.Comment, c *models.Comment, sort models.SortOrder) []*models.Comment {
	at := len(forest)
	for i, node := range forest {
		if node != nil && comesBefore(c, node, sort) {
			at = i
			break
		}
	}
	out := make([]*models.Comment, 0, len(forest)+1)
	out = append(out, forest[:at]...)
	out = append(out, c)
	return append(out, forest[at:]...)
}

func comesBefore(a, b *models.Comment, sort models.SortOrder) bool {
	if sort == models.SortOldest {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// Rebuild returns a copy of c whose collections and counters are well formed.
// Captured nodes may come from a partial server shape.
func Rebuild(c *models.Comment) *models.Comment {
	cp := cloneNode(c)
	if cp.User.ID == "" {
		cp.User.ID = cp.UserID
	}
	replies := make([]*models.Comment, 0, len(c.Replies))
	for _, r := range c.Replies {
		if r != nil {
			replies = append(replies, Rebuild(r))
		}
	}
	cp.Replies = replies
	if c.Reactions == nil {
		cp.Reactions = []models.Reaction{}
	} else {
		cp.Reactions = append([]models.Reaction(nil), c.Reactions...)
	}
	if cp.Count.Replies < len(cp.Replies) {
		cp.Count.Replies = len(cp.Replies)
	}
	if cp.Count.Reactions < len(cp.Reactions) {
		cp.Count.Reactions = len(cp.Reactions)
	}
	return cp
}

// HasReaction reports whether userID reacted to c with emoji
func HasReaction(c *models.Comment, userID, emoji string) bool {
	for _, r := range c.Reactions {
		if r.UserID == userID && r.Emoji == emoji {
			return true
		}
	}
	return false
}

// toggleReaction adds or removes the user's emoji on a copied node
func toggleReaction(c *models.Comment, add bool, reaction models.Reaction) {
	has := HasReaction(c, reaction.UserID, reaction.Emoji)
	if add {
		if has {
			return
		}
		reactions := make([]models.Reaction, 0, len(c.Reactions)+1)
		reactions = append(reactions, c.Reactions...)
		c.Reactions = append(reactions, reaction)
		c.Count.Reactions++
		return
	}
	if !has {
		return
	}
	reactions := make([]models.Reaction, 0, len(c.Reactions))
	for _, r := range c.Reactions {
		if r.UserID == reaction.UserID && r.Emoji == reaction.Emoji {
			continue
		}
		reactions = append(reactions, r)
	}
	c.Reactions = reactions
	if c.Count.Reactions > 0 {
		c.Count.Reactions--
	}
}
