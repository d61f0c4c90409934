package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"sharefun/internal/model"
)

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, author_id, content, attachment, created_at`

// Create inserts a new post.
func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	query := `
		INSERT INTO posts (author_id, content, attachment, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, query, post.AuthorID, post.Content, post.Attachment, post.CreatedAt).Scan(&post.ID)
	if err != nil {
		if isPQError(err, pqForeignKeyViolation) {
			return model.ErrUnknownUser
		}
		return fmt.Errorf("insert post: %w", err)
	}
	if post.LikedBy == nil {
		post.LikedBy = []int64{}
	}
	return nil
}

// GetByID retrieves a single post with its likers.
func (r *postRepository) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	var post model.Post
	err := r.db.GetContext(ctx, &post, query, postID)
	if err == sql.ErrNoRows {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}

	likers, err := r.getLikers(ctx, []int64{postID})
	if err != nil {
		return nil, err
	}
	setLikers(&post, likers)

	return &post, nil
}

// Delete checks ownership and removes the post in one statement.
// Likes go with it through ON DELETE CASCADE.
func (r *postRepository) Delete(ctx context.Context, postID, requesterID int64) (*model.Post, error) {
	query := `DELETE FROM posts WHERE id = $1 AND author_id = $2 RETURNING ` + postColumns

	var post model.Post
	err := r.db.GetContext(ctx, &post, query, postID, requesterID)
	if err == nil {
		post.LikedBy = []int64{}
		return &post, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("delete post: %w", err)
	}

	// Check if post exists but belongs to different user
	exists, err := r.exists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, model.ErrForbidden
	}
	return nil, model.ErrPostNotFound
}

// Like inserts a like record; liking twice leaves a single row.
func (r *postRepository) Like(ctx context.Context, postID, userID int64, at time.Time) error {
	query := `
		INSERT INTO post_likes (post_id, user_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (post_id, user_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, postID, userID, at)
	if err != nil {
		if isPQError(err, pqForeignKeyViolation) {
			return model.ErrPostNotFound
		}
		return fmt.Errorf("insert like: %w", err)
	}
	return nil
}

// Unlike deletes a like record. Unliking a post that was never liked is a no-op.
func (r *postRepository) Unlike(ctx context.Context, postID, userID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	removed, err := rowsChanged(result)
	if err != nil {
		return err
	}
	if removed {
		return nil
	}

	exists, err := r.exists(ctx, postID)
	if err != nil {
		return err
	}
	if !exists {
		return model.ErrPostNotFound
	}
	return nil
}

func (r *postRepository) ListByAuthors(ctx context.Context, authorIDs []int64, before *model.PostCursor, limit int) ([]model.Post, error) {
	if len(authorIDs) == 0 {
		return []model.Post{}, nil
	}

	var b strings.Builder
	args := []interface{}{pq.Array(authorIDs)}
	b.WriteString(`SELECT ` + postColumns + ` FROM posts WHERE author_id = ANY($1)`)
	if before != nil {
		args = append(args, before.CreatedAt, before.ID)
		b.WriteString(` AND (created_at, id) < ($2, $3)`)
	}
	b.WriteString(` ORDER BY created_at DESC, id DESC`)
	if limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&b, ` LIMIT $%d`, len(args))
	}

	posts := []model.Post{}
	if err := r.db.SelectContext(ctx, &posts, b.String(), args...); err != nil {
		return nil, fmt.Errorf("list posts by authors: %w", err)
	}
	if len(posts) == 0 {
		return posts, nil
	}

	postIDs := make([]int64, len(posts))
	for i := range posts {
		postIDs[i] = posts[i].ID
	}
	likers, err := r.getLikers(ctx, postIDs)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		setLikers(&posts[i], likers)
	}
	return posts, nil
}

func (r *postRepository) CountByAuthor(ctx context.Context, authorID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM posts WHERE author_id = $1`, authorID); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

func (r *postRepository) exists(ctx context.Context, postID int64) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, postID); err != nil {
		return false, fmt.Errorf("check post existence: %w", err)
	}
	return exists, nil
}

// getLikers returns post_id -> liker IDs in ascending order.
func (r *postRepository) getLikers(ctx context.Context, postIDs []int64) (map[int64][]int64, error) {
	type row struct {
		PostID int64 `db:"post_id"`
		UserID int64 `db:"user_id"`
	}
	var rows []row
	query := `SELECT post_id, user_id FROM post_likes WHERE post_id = ANY($1) ORDER BY post_id, user_id`
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(postIDs)); err != nil {
		return nil, fmt.Errorf("get post likers: %w", err)
	}

	result := make(map[int64][]int64, len(postIDs))
	for _, r := range rows {
		result[r.PostID] = append(result[r.PostID], r.UserID)
	}
	return result, nil
}

func setLikers(post *model.Post, likers map[int64][]int64) {
	post.LikedBy = likers[post.ID]
	if post.LikedBy == nil {
		post.LikedBy = []int64{}
	}
	post.LikeCount = len(post.LikedBy)
}
