package optimistic

import (
	"github.com/kickback/api/comments/models"
)

// FlatData is the cached flat view
type FlatData struct {
	Comments   []*models.Comment
	TotalCount int
}

// Page is one fetched page of a paginated view
type Page struct {
	Items      []*models.Comment
	NextCursor string
	HasMore    bool
}

// PagedData is the cached paginated view. PageParams[i] is the cursor page i was fetched with.
type PagedData struct {
	Pages      []Page
	PageParams []string
}

// Data is one cached query result. Exactly one field is set, matching the key kind.
// Values are never mutated after they are stored; patches build new ones.
type Data struct {
	Flat  *FlatData
	Paged *PagedData
}

// Empty reports whether no result is stored
func (d Data) Empty() bool {
	return d.Flat == nil && d.Paged == nil
}

// Find returns the node with id from any page
func (d Data) Find(id string) *models.Comment {
	if d.Flat != nil {
		return Find(d.Flat.Comments, id)
	}
	if d.Paged != nil {
		for _, p := range d.Paged.Pages {
			if n := Find(p.Items, id); n != nil {
				return n
			}
		}
	}
	return nil
}

// mapLists applies fn to the flat list or to every page, best-effort.
// Pages fn leaves alone keep their identity.
func (d Data) mapLists(fn func([]*models.Comment) ([]*models.Comment, bool)) (Data, bool) {
	if d.Flat != nil {
		items, ok := fn(d.Flat.Comments)
		if !ok {
			return d, false
		}
		return Data{Flat: &FlatData{Comments: items, TotalCount: d.Flat.TotalCount}}, true
	}
	if d.Paged == nil {
		return d, false
	}
	var pages []Page
	for i, p := range d.Paged.Pages {
		items, ok := fn(p.Items)
		if !ok {
			continue
		}
		if pages == nil {
			pages = clonePages(d.Paged.Pages)
		}
		pages[i].Items = items
	}
	if pages == nil {
		return d, false
	}
	return Data{Paged: &PagedData{Pages: pages, PageParams: d.Paged.PageParams}}, true
}

func clonePages(pages []Page) []Page {
	out := make([]Page, len(pages))
	copy(out, pages)
	return out
}

// insertIntoPages places c among paginated items by creation time. A node that
// sorts after every loaded item lands on the last page only when nothing is left
// to fetch.
func insertIntoPages(d *PagedData, c *models.Comment, sort models.SortOrder) (*PagedData, bool) {
	if len(d.Pages) == 0 {
		return &PagedData{Pages: []Page{{Items: []*models.Comment{c}}}, PageParams: []string{""}}, true
	}
	pages := clonePages(d.Pages)
	for i, p := range pages {
		for _, item := range p.Items {
			if item != nil && comesBefore(c, item, sort) {
				pages[i].Items = InsertSorted(p.Items, c, sort)
				return &PagedData{Pages: pages, PageParams: d.PageParams}, true
			}
		}
	}
	last := len(pages) - 1
	if pages[last].HasMore {
		return d, false
	}
	pages[last].Items = append(append(make([]*models.Comment, 0, len(pages[last].Items)+1), pages[last].Items...), c)
	return &PagedData{Pages: pages, PageParams: d.PageParams}, true
}

// insertComment adds a new top-level comment to a flat or top-level paginated view
func insertComment(key QueryKey, d Data, c *models.Comment) (Data, bool) {
	switch key.Kind {
	case KindFlat:
		if d.Flat == nil {
			return d, false
		}
		items, _ := InsertTop(d.Flat.Comments, c, key.Sort)
		return Data{Flat: &FlatData{Comments: items, TotalCount: d.Flat.TotalCount + 1}}, true
	case KindComments:
		if d.Paged == nil {
			return d, false
		}
		if len(d.Paged.Pages) == 0 {
			return Data{Paged: &PagedData{Pages: []Page{{Items: []*models.Comment{c}}}, PageParams: []string{""}}}, true
		}
		pages := clonePages(d.Paged.Pages)
		if key.Sort == models.SortOldest {
			last := len(pages) - 1
			if pages[last].HasMore {
				return d, false
			}
			pages[last].Items, _ = InsertTop(pages[last].Items, c, models.SortOldest)
		} else {
			pages[0].Items, _ = InsertTop(pages[0].Items, c, models.SortNewest)
		}
		return Data{Paged: &PagedData{Pages: pages, PageParams: d.Paged.PageParams}}, true
	}
	return d, false
}

// insertReply adds reply under its parent wherever the parent is cached, and as a
// direct item of the parent's own replies view.
func insertReply(key QueryKey, d Data, reply *models.Comment) (Data, bool) {
	parentID := *reply.ParentID
	if key.Kind == KindReplies && key.ParentID == parentID {
		if d.Paged == nil {
			return d, false
		}
		if len(d.Paged.Pages) == 0 {
			return Data{Paged: &PagedData{Pages: []Page{{Items: []*models.Comment{reply}}}, PageParams: []string{""}}}, true
		}
		pages := clonePages(d.Paged.Pages)
		pages[0].Items, _ = InsertTop(pages[0].Items, reply, models.SortNewest)
		return Data{Paged: &PagedData{Pages: pages, PageParams: d.Paged.PageParams}}, true
	}
	return d.mapLists(func(items []*models.Comment) ([]*models.Comment, bool) {
		out, res := InsertReply(items, parentID, reply)
		return out, res.Applied
	})
}

// removal describes the effect of removeNode on one view
type removal struct {
	applied bool
	node    *models.Comment
	// nested is true when the removed node's parent was found and decremented
	nested bool
}

// removeNode drops id from a view. The flat total only counts top-level comments.
func removeNode(key QueryKey, d Data, id string) (Data, removal) {
	var r removal
	if d.Flat != nil {
		items, res, nested := Remove(d.Flat.Comments, id)
		if !res.Applied {
			return d, r
		}
		total := d.Flat.TotalCount
		if !nested && total > 0 {
			total--
		}
		return Data{Flat: &FlatData{Comments: items, TotalCount: total}}, removal{applied: true, node: res.Node, nested: nested}
	}
	out, ok := d.mapLists(func(items []*models.Comment) ([]*models.Comment, bool) {
		next, res, nested := Remove(items, id)
		if res.Applied {
			r.node = res.Node
			r.nested = r.nested || nested
		}
		return next, res.Applied
	})
	r.applied = ok
	return out, r
}

// updateNode applies fn to a copy of id in every list of a view
func updateNode(d Data, id string, fn func(*models.Comment)) (Data, bool) {
	return d.mapLists(func(items []*models.Comment) ([]*models.Comment, bool) {
		out, res := Update(items, id, fn)
		return out, res.Applied
	})
}

// bumpReplies adjusts the reply counter of parentID in every list of a view
func bumpReplies(d Data, parentID string, delta int) (Data, bool) {
	return d.mapLists(func(items []*models.Comment) ([]*models.Comment, bool) {
		out, res := BumpReplyCount(items, parentID, delta)
		return out, res.Applied
	})
}

// restoreNode re-inserts a previously removed subtree, sorted by creation time
func restoreNode(key QueryKey, d Data, node *models.Comment) (Data, bool) {
	if d.Find(node.ID) != nil {
		return d, false
	}
	if !node.IsReply() {
		switch key.Kind {
		case KindFlat:
			if d.Flat == nil {
				return d, false
			}
			items := InsertSorted(d.Flat.Comments, node, key.Sort)
			return Data{Flat: &FlatData{Comments: items, TotalCount: d.Flat.TotalCount + 1}}, true
		case KindComments:
			if d.Paged == nil {
				return d, false
			}
			paged, ok := insertIntoPages(d.Paged, node, key.Sort)
			return Data{Paged: paged}, ok
		}
		return d, false
	}

	parentID := *node.ParentID
	if key.Kind == KindReplies && key.ParentID == parentID {
		if d.Paged == nil {
			return d, false
		}
		paged, ok := insertIntoPages(d.Paged, node, models.SortNewest)
		return Data{Paged: paged}, ok
	}
	return updateNode(d, parentID, func(parent *models.Comment) {
		parent.Replies = InsertSorted(parent.Replies, node, models.SortNewest)
		parent.Count.Replies++
	})
}

// FlatView is the JSON shape of a flat view
type FlatView struct {
	Comments   []*models.Comment `json:"comments"`
	TotalCount int               `json:"totalCount"`
}

// InfiniteView is the JSON shape of a paginated top-level view
type InfiniteView struct {
	Pages      []models.CommentPage `json:"pages"`
	PageParams []string             `json:"pageParams"`
}

// RepliesView is the JSON shape of a paginated replies view
type RepliesView struct {
	Pages      []models.ReplyPage `json:"pages"`
	PageParams []string           `json:"pageParams"`
}

// View converts cached data into the response shape for key
func View(key QueryKey, d Data) interface{} {
	switch {
	case d.Flat != nil:
		return FlatView{Comments: nonNil(d.Flat.Comments), TotalCount: d.Flat.TotalCount}
	case d.Paged != nil && key.Kind == KindReplies:
		v := RepliesView{Pages: make([]models.ReplyPage, 0, len(d.Paged.Pages)), PageParams: d.Paged.PageParams}
		for _, p := range d.Paged.Pages {
			v.Pages = append(v.Pages, models.ReplyPage{Replies: nonNil(p.Items), NextCursor: p.NextCursor, HasMore: p.HasMore})
		}
		return v
	case d.Paged != nil:
		v := InfiniteView{Pages: make([]models.CommentPage, 0, len(d.Paged.Pages)), PageParams: d.Paged.PageParams}
		for _, p := range d.Paged.Pages {
			v.Pages = append(v.Pages, models.CommentPage{Comments: nonNil(p.Items), NextCursor: p.NextCursor, HasMore: p.HasMore})
		}
		return v
	}
	return nil
}

func nonNil(items []*models.Comment) []*models.Comment {
	if items == nil {
		return []*models.Comment{}
	}
	return items
}
