package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"sharefun/internal/model"
)

type friendRepository struct {
	db *sqlx.DB
}

func NewFriendRepository(db *sqlx.DB) FriendRepository {
	return &friendRepository{db: db}
}

// CreateRequest relies on the (user_low, user_high) primary key: two opposite
// requests racing for the same pair collapse to a single row.
func (r *friendRepository) CreateRequest(ctx context.Context, requesterID, recipientID int64, at time.Time) (bool, error) {
	key := model.NewPairKey(requesterID, recipientID)
	query := `
		INSERT INTO friendships (user_low, user_high, requester_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, 'pending', $4, $4)
		ON CONFLICT (user_low, user_high) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query, key.Low, key.High, requesterID, at)
	if err != nil {
		if isPQError(err, pqForeignKeyViolation) {
			return false, model.ErrUnknownUser
		}
		return false, fmt.Errorf("failed to create friend request: %w", err)
	}
	return rowsChanged(result)
}

func (r *friendRepository) Accept(ctx context.Context, requesterID, recipientID int64, at time.Time) (bool, error) {
	key := model.NewPairKey(requesterID, recipientID)
	query := `
		UPDATE friendships SET status = 'accepted', updated_at = $4
		WHERE user_low = $1 AND user_high = $2 AND requester_id = $3 AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query, key.Low, key.High, requesterID, at)
	if err != nil {
		return false, fmt.Errorf("failed to accept friend request: %w", err)
	}
	return rowsChanged(result)
}

func (r *friendRepository) DeletePending(ctx context.Context, requesterID, recipientID int64) (bool, error) {
	key := model.NewPairKey(requesterID, recipientID)
	query := `
		DELETE FROM friendships
		WHERE user_low = $1 AND user_high = $2 AND requester_id = $3 AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query, key.Low, key.High, requesterID)
	if err != nil {
		return false, fmt.Errorf("failed to delete friend request: %w", err)
	}
	return rowsChanged(result)
}

func (r *friendRepository) DeleteAccepted(ctx context.Context, a, b int64) (bool, error) {
	key := model.NewPairKey(a, b)
	query := `DELETE FROM friendships WHERE user_low = $1 AND user_high = $2 AND status = 'accepted'`
	result, err := r.db.ExecContext(ctx, query, key.Low, key.High)
	if err != nil {
		return false, fmt.Errorf("failed to delete friendship: %w", err)
	}
	return rowsChanged(result)
}

func (r *friendRepository) Get(ctx context.Context, a, b int64) (*model.FriendRelation, error) {
	key := model.NewPairKey(a, b)
	query := `
		SELECT user_low, user_high, requester_id, status, created_at, updated_at
		FROM friendships
		WHERE user_low = $1 AND user_high = $2
	`
	var rel model.FriendRelation
	err := r.db.GetContext(ctx, &rel, query, key.Low, key.High)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrNoSuchRelation
		}
		return nil, fmt.Errorf("failed to get friend relation: %w", err)
	}
	return &rel, nil
}

func (r *friendRepository) AreFriends(ctx context.Context, a, b int64) (bool, error) {
	key := model.NewPairKey(a, b)
	query := `SELECT EXISTS(SELECT 1 FROM friendships WHERE user_low = $1 AND user_high = $2 AND status = 'accepted')`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, key.Low, key.High); err != nil {
		return false, fmt.Errorf("failed to check friendship: %w", err)
	}
	return exists, nil
}

func (r *friendRepository) GetFriendIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := `
		SELECT CASE WHEN user_low = $1 THEN user_high ELSE user_low END AS friend_id
		FROM friendships
		WHERE (user_low = $1 OR user_high = $1) AND status = 'accepted'
		ORDER BY friend_id
	`
	ids := []int64{}
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get friend ids: %w", err)
	}
	return ids, nil
}

func (r *friendRepository) GetIncomingRequests(ctx context.Context, userID int64) ([]model.FriendRelation, error) {
	query := `
		SELECT user_low, user_high, requester_id, status, created_at, updated_at
		FROM friendships
		WHERE (user_low = $1 OR user_high = $1) AND requester_id <> $1 AND status = 'pending'
		ORDER BY created_at DESC
	`
	rels := []model.FriendRelation{}
	if err := r.db.SelectContext(ctx, &rels, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get incoming requests: %w", err)
	}
	return rels, nil
}

func rowsChanged(result sql.Result) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}
