package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryEncode(t *testing.T) {
	tests := []struct {
		name  string
		query *Query
		want  string
	}{
		{
			name:  "equality filter",
			query: NewQuery("posts").Eq("id", "42"),
			want:  "id=eq.42",
		},
		{
			name:  "projection with embedded relations",
			query: NewQuery("posts").Columns("*,user:users(*),comments(count)"),
			want:  "select=%2A%2Cuser%3Ausers%28%2A%29%2Ccomments%28count%29",
		},
		{
			name:  "order and limit",
			query: NewQuery("events").Order("start_date", true).Limit(20),
			want:  "limit=20&order=start_date.asc",
		},
		{
			name:  "array contains",
			query: NewQuery("chatrooms").Contains("user_ids", "a", "b"),
			want:  "user_ids=cs.%7Ba%2Cb%7D",
		},
		{
			name:  "descending order",
			query: NewQuery("posts").Order("created_at", false),
			want:  "order=created_at.desc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.query.Encode())
		})
	}
}

func TestQueryFilterExpr(t *testing.T) {
	q := NewQuery("messages").
		Eq("chatroom_id", "room-1").
		Columns("*").
		Order("created_at", true).
		Limit(50)

	// projection, ordering and limits are request shaping, not filters
	assert.Equal(t, "chatroom_id=eq.room-1", q.FilterExpr())
}

func TestQueryFilterExprEmpty(t *testing.T) {
	q := NewQuery("messages").Columns("*").Limit(10)
	assert.Equal(t, "", q.FilterExpr())
}
