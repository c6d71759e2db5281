package community

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tagryu/GlobalCampus/internal/logutil"
	"github.com/tagryu/GlobalCampus/pkg/models"
	"github.com/tagryu/GlobalCampus/pkg/provider"
)

// PostService is the discussion board: posts with categories, plus comments.
type PostService struct {
	log   *slog.Logger
	store Store
}

// postRow is a post as the store returns it when the author relation and the
// comment count are embedded in the projection.
type postRow struct {
	models.Post
	User     *models.Profile `json:"user"`
	Comments []countRow      `json:"comments"`
}

type countRow struct {
	Count int `json:"count"`
}

func (r postRow) toPost() models.Post {
	post := r.Post
	post.Author = r.User
	if len(r.Comments) > 0 {
		post.CommentCount = r.Comments[0].Count
	}
	return post
}

// commentRow is a comment with its author embedded.
type commentRow struct {
	models.Comment
	User *models.Profile `json:"user"`
}

func (r commentRow) toComment() models.Comment {
	comment := r.Comment
	comment.Author = r.User
	return comment
}

// List returns posts newest first, each decorated with its author and
// comment count. A non-nil category narrows the board.
func (s *PostService) List(ctx context.Context, category *models.PostCategory) ([]models.Post, error) {
	defer logutil.NewTimingLogger(s.log, time.Now(), "list posts")()

	q := provider.NewQuery("posts").
		Columns("*,user:users(*),comments(count)").
		Order("created_at", false)
	if category != nil {
		q.Eq("category", string(*category))
	}

	var rows []postRow
	if err := s.store.Select(ctx, q, &rows); err != nil {
		return nil, logutil.LogAndWrapErr(s.log, "listing posts", err)
	}

	posts := make([]models.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, row.toPost())
	}
	return posts, nil
}

// Get returns one post with its author and full comment thread, oldest
// comment first. Returns (nil, nil) when the post does not exist.
func (s *PostService) Get(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var rows []postRow
	q := provider.NewQuery("posts").
		Columns("*,user:users(*),comments(count)").
		Eq("id", id.String()).
		Limit(1)
	if err := s.store.Select(ctx, q, &rows); err != nil {
		return nil, logutil.LogAndWrapErr(s.log, "fetching post", err, "post_id", id)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	post := rows[0].toPost()

	var comments []commentRow
	cq := provider.NewQuery("comments").
		Columns("*,user:users(*)").
		Eq("post_id", id.String()).
		Order("created_at", true)
	if err := s.store.Select(ctx, cq, &comments); err != nil {
		return nil, logutil.LogAndWrapErr(s.log, "fetching comments", err, "post_id", id)
	}

	post.Comments = make([]models.Comment, 0, len(comments))
	for _, row := range comments {
		post.Comments = append(post.Comments, row.toComment())
	}
	post.CommentCount = len(post.Comments)
	return &post, nil
}

// Create writes a new post for the given author.
func (s *PostService) Create(ctx context.Context, userID uuid.UUID, params models.CreatePostParams) (*models.Post, error) {
	if !params.Category.IsValid() {
		return nil, models.NewValidationError("unknown post category")
	}
	if params.Title == "" || params.Content == "" {
		return nil, models.NewValidationError("title and content are required")
	}

	var rows []models.Post
	err := s.store.Insert(ctx, "posts", map[string]any{
		"user_id":  userID.String(),
		"category": params.Category,
		"title":    params.Title,
		"content":  params.Content,
		"images":   params.Images,
	}, &rows)
	if err != nil {
		return nil, logutil.LogAndWrapErr(s.log, "creating post", err)
	}
	if len(rows) == 0 {
		return nil, models.NewStoreError("posts", errNoRowReturned)
	}

	s.log.Info("post created", "post_id", rows[0].ID, "category", params.Category)
	return &rows[0], nil
}

// Update applies a partial edit to the caller's own post. The ownership
// filter makes editing someone else's post a silent no-op, matching the
// store's row-level rules.
func (s *PostService) Update(ctx context.Context, userID, postID uuid.UUID, params models.UpdatePostParams) (*models.Post, error) {
	if params.Category != nil && !params.Category.IsValid() {
		return nil, models.NewValidationError("unknown post category")
	}

	var rows []models.Post
	q := provider.NewQuery("posts").
		Eq("id", postID.String()).
		Eq("user_id", userID.String())
	if err := s.store.Update(ctx, q, params, &rows); err != nil {
		return nil, logutil.LogAndWrapErr(s.log, "updating post", err, "post_id", postID)
	}
	if len(rows) == 0 {
		return nil, models.NewValidationError("post not found or not yours")
	}
	return &rows[0], nil
}

// Delete removes the caller's own post.
func (s *PostService) Delete(ctx context.Context, userID, postID uuid.UUID) error {
	q := provider.NewQuery("posts").
		Eq("id", postID.String()).
		Eq("user_id", userID.String())
	if err := s.store.Delete(ctx, q); err != nil {
		return logutil.LogAndWrapErr(s.log, "deleting post", err, "post_id", postID)
	}
	return nil
}

// AddComment appends a comment to a post.
func (s *PostService) AddComment(ctx context.Context, userID, postID uuid.UUID, content string) (*models.Comment, error) {
	if content == "" {
		return nil, models.NewValidationError("comment content is required")
	}

	var rows []models.Comment
	err := s.store.Insert(ctx, "comments", map[string]any{
		"post_id": postID.String(),
		"user_id": userID.String(),
		"content": content,
	}, &rows)
	if err != nil {
		return nil, logutil.LogAndWrapErr(s.log, "adding comment", err, "post_id", postID)
	}
	if len(rows) == 0 {
		return nil, models.NewStoreError("comments", errNoRowReturned)
	}
	return &rows[0], nil
}

// DeleteComment removes the caller's own comment.
func (s *PostService) DeleteComment(ctx context.Context, userID, commentID uuid.UUID) error {
	q := provider.NewQuery("comments").
		Eq("id", commentID.String()).
		Eq("user_id", userID.String())
	if err := s.store.Delete(ctx, q); err != nil {
		return logutil.LogAndWrapErr(s.log, "deleting comment", err, "comment_id", commentID)
	}
	return nil
}
