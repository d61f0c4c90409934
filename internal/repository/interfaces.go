package repository

import (
	"context"
	"time"

	"sharefun/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetByEmail expects an already normalized email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Exists(ctx context.Context, id int64) (bool, error)
	GetSummaries(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error)
	// UpdateProfile also returns the avatar key the row held before this update,
	// read under the same row lock.
	UpdateProfile(ctx context.Context, id int64, req *model.UpdateProfileRequest, updatedAt time.Time) (*model.User, *string, error)
	Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	// Delete is a no-op for unknown IDs.
	Delete(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID int64) error
}

// FriendRepository stores one relation per unordered pair. Every mutating
// method is a single conditional statement so concurrent callers cannot both
// win the same transition.
type FriendRepository interface {
	// CreateRequest inserts a pending relation unless the pair already has one.
	CreateRequest(ctx context.Context, requesterID, recipientID int64, at time.Time) (bool, error)
	// Accept flips a pending request from requesterID to recipientID to accepted.
	Accept(ctx context.Context, requesterID, recipientID int64, at time.Time) (bool, error)
	// DeletePending removes a pending request from requesterID to recipientID.
	DeletePending(ctx context.Context, requesterID, recipientID int64) (bool, error)
	// DeleteAccepted removes an accepted relation between a and b.
	DeleteAccepted(ctx context.Context, a, b int64) (bool, error)
	Get(ctx context.Context, a, b int64) (*model.FriendRelation, error)
	AreFriends(ctx context.Context, a, b int64) (bool, error)
	// GetFriendIDs returns accepted friends in ascending ID order.
	GetFriendIDs(ctx context.Context, userID int64) ([]int64, error)
	GetIncomingRequests(ctx context.Context, userID int64) ([]model.FriendRelation, error)
}

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, postID int64) (*model.Post, error)
	// Delete removes the post only if requesterID is its author and returns the removed post.
	Delete(ctx context.Context, postID, requesterID int64) (*model.Post, error)
	// Like and Unlike are idempotent.
	Like(ctx context.Context, postID, userID int64, at time.Time) error
	Unlike(ctx context.Context, postID, userID int64) error
	// ListByAuthors returns posts newest first, strictly after before when it is set.
	// limit <= 0 means no limit.
	ListByAuthors(ctx context.Context, authorIDs []int64, before *model.PostCursor, limit int) ([]model.Post, error)
	CountByAuthor(ctx context.Context, authorID int64) (int, error)
}
