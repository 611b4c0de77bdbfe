package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSortOrder(t *testing.T) {
	assert.Equal(t, SortOldest, ParseSortOrder("oldest"))
	assert.Equal(t, SortOldest, ParseSortOrder(" OLDEST "))
	assert.Equal(t, SortNewest, ParseSortOrder("newest"))
	assert.Equal(t, SortNewest, ParseSortOrder(""))
	assert.Equal(t, SortNewest, ParseSortOrder("popular"))
	assert.False(t, SortOrder("popular").Valid())
}

func TestComment_JSONShape(t *testing.T) {
	parent := "p1"
	c := Comment{ID: "c1", ParentID: &parent, Count: Counts{Replies: 2, Reactions: 1}}

	raw, err := json.Marshal(c)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, map[string]interface{}{"replies": float64(2), "reactions": float64(1)}, m["_count"])
	assert.Equal(t, "p1", m["parentId"])
	assert.Nil(t, m["imageUrl"])
	assert.True(t, c.IsReply())
}
