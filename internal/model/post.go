package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Post represents a user's post with its like set.
type Post struct {
	ID         int64     `db:"id" json:"id"`
	AuthorID   int64     `db:"author_id" json:"authorId"`
	Content    string    `db:"content" json:"content"`
	Attachment *string   `db:"attachment" json:"attachment"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`

	// Joined fields (not in posts table). LikedBy is kept in ascending order.
	LikedBy   []int64 `db:"-" json:"likedBy"`
	LikeCount int     `db:"-" json:"likeCount"`
}

// IsLikedBy reports whether userID is in the like set.
func (p *Post) IsLikedBy(userID int64) bool {
	for _, id := range p.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// NewerThan reports whether p sorts before other in feed order:
// created_at descending, then id descending.
func (p *Post) NewerThan(other *Post) bool {
	if !p.CreatedAt.Equal(other.CreatedAt) {
		return p.CreatedAt.After(other.CreatedAt)
	}
	return p.ID > other.ID
}

// FeedPost is an enriched post for feed display.
type FeedPost struct {
	Post
	Author  UserSummary `json:"author"`
	IsLiked bool        `json:"isLiked"`
}

// FeedResponse is the paginated feed response.
type FeedResponse struct {
	Posts      []FeedPost `json:"posts"`
	NextCursor *string    `json:"nextCursor,omitempty"`
	HasMore    bool       `json:"hasMore"`
}

// PostListResponse is the post list response (for profile).
type PostListResponse struct {
	Posts []Post `json:"posts"`
}

// CreatePostRequest is the request body for creating a post.
type CreatePostRequest struct {
	Content    string  `json:"content"`
	Attachment *string `json:"attachment"`
}

// PostActionRequest is the request body for like/unlike.
type PostActionRequest struct {
	PostID int64 `json:"postId"`
}

// Post constants
const (
	MaxPostContentLength = 2200
	MaxAttachmentLength  = 2048
	PostMediaFolder      = "posts"
	MaxPostMediaSize     = 10 * 1024 * 1024 // 10MB per media

	FeedDefaultLimit = 10
	FeedMaxLimit     = 50
)

// PostCursor marks a position in feed order; pages continue strictly after it.
type PostCursor struct {
	ID        int64
	CreatedAt time.Time
}

// CursorOf returns the cursor positioned at p.
func CursorOf(p *Post) PostCursor {
	return PostCursor{ID: p.ID, CreatedAt: p.CreatedAt}
}

// After reports whether p comes strictly after the cursor in feed order.
func (c PostCursor) After(p *Post) bool {
	if !p.CreatedAt.Equal(c.CreatedAt) {
		return p.CreatedAt.Before(c.CreatedAt)
	}
	return p.ID < c.ID
}

// String formats the cursor as "id:unixnano".
func (c PostCursor) String() string {
	return fmt.Sprintf("%d:%d", c.ID, c.CreatedAt.UnixNano())
}

// ParsePostCursor parses "id:unixnano" format cursor.
func ParsePostCursor(cursor string) (PostCursor, error) {
	parts := strings.Split(cursor, ":")
	if len(parts) != 2 {
		return PostCursor{}, fmt.Errorf("%w: cursor format, expected id:timestamp", ErrInvalidInput)
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return PostCursor{}, fmt.Errorf("%w: post id in cursor", ErrInvalidInput)
	}

	nanos, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return PostCursor{}, fmt.Errorf("%w: timestamp in cursor", ErrInvalidInput)
	}

	return PostCursor{ID: id, CreatedAt: time.Unix(0, nanos).UTC()}, nil
}

// Post errors
var (
	ErrPostNotFound = errors.New("post not found")
	ErrEmptyPost    = errors.New("post needs content or an attachment")
)
