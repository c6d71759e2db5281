package community

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagryu/GlobalCampus/pkg/models"
	"github.com/tagryu/GlobalCampus/pkg/provider"
)

func TestListPostsDecoratesAuthorAndCount(t *testing.T) {
	author := uuid.New()
	store := &fakeStore{
		selectFunc: func(ctx context.Context, q *provider.Query, dest any) error {
			require.Equal(t, "posts", q.Table())
			// the projection embeds the author and the comment count
			assert.Contains(t, q.Encode(), "user%3Ausers")
			putRows(t, dest, []map[string]any{{
				"id":       uuid.NewString(),
				"user_id":  author.String(),
				"category": "question",
				"title":    "visa renewal",
				"content":  "how long does it take?",
				"user":     map[string]any{"id": author.String(), "name": "Kim"},
				"comments": []map[string]any{{"count": 4}},
			}})
			return nil
		},
	}

	posts, err := New(testLogger(), store, nil).Posts.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "visa renewal", posts[0].Title)
	assert.Equal(t, 4, posts[0].CommentCount)
	require.NotNil(t, posts[0].Author)
	assert.Equal(t, "Kim", posts[0].Author.Name)
}

func TestListPostsFiltersByCategory(t *testing.T) {
	var gotFilter string
	store := &fakeStore{
		selectFunc: func(ctx context.Context, q *provider.Query, dest any) error {
			gotFilter = q.FilterExpr()
			putRows(t, dest, []map[string]any{})
			return nil
		},
	}

	category := models.CategoryHousing
	_, err := New(testLogger(), store, nil).Posts.List(context.Background(), &category)
	require.NoError(t, err)
	assert.Equal(t, "category=eq.housing", gotFilter)
}

func TestGetPostAbsent(t *testing.T) {
	store := &fakeStore{
		selectFunc: func(ctx context.Context, q *provider.Query, dest any) error {
			putRows(t, dest, []map[string]any{})
			return nil
		},
	}

	post, err := New(testLogger(), store, nil).Posts.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, post)
}

func TestCreatePostRejectsBadCategory(t *testing.T) {
	_, err := New(testLogger(), &fakeStore{}, nil).Posts.Create(context.Background(), uuid.New(), models.CreatePostParams{
		Category: "sports",
		Title:    "t",
		Content:  "c",
	})
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)
}

// Updates carry the ownership filter so a user can only edit their own rows.
func TestUpdatePostScopedToOwner(t *testing.T) {
	owner, postID := uuid.New(), uuid.New()
	var gotFilter string
	store := &fakeStore{
		updateFunc: func(ctx context.Context, q *provider.Query, payload, dest any) error {
			gotFilter = q.FilterExpr()
			putRows(t, dest, []map[string]any{{
				"id":      postID.String(),
				"user_id": owner.String(),
				"title":   "edited",
			}})
			return nil
		},
	}

	title := "edited"
	post, err := New(testLogger(), store, nil).Posts.Update(context.Background(), owner, postID, models.UpdatePostParams{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "edited", post.Title)
	assert.True(t, strings.Contains(gotFilter, "user_id=eq."+owner.String()))
	assert.True(t, strings.Contains(gotFilter, "id=eq."+postID.String()))
}

func TestUpdatePostNotOwned(t *testing.T) {
	store := &fakeStore{
		updateFunc: func(ctx context.Context, q *provider.Query, payload, dest any) error {
			putRows(t, dest, []map[string]any{})
			return nil
		},
	}

	title := "edited"
	_, err := New(testLogger(), store, nil).Posts.Update(context.Background(), uuid.New(), uuid.New(), models.UpdatePostParams{Title: &title})
	require.Error(t, err)
}
