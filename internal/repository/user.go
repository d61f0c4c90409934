package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"sharefun/internal/model"
)

const pqUniqueViolation = "23505"
const pqForeignKeyViolation = "23503"

func isPQError(err error, code string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == code
}

// userRepository implements UserRepository using sqlx
type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, password_hash, first_name, last_name, bio, avatar_url, avatar_key, created_at, updated_at`

// Create inserts a new user into the database
func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (email, password_hash, first_name, last_name, bio, avatar_url, avatar_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id
	`

	err := r.db.QueryRowxContext(ctx, query,
		u.Email,
		u.PasswordHash,
		u.FirstName,
		u.LastName,
		u.Bio,
		u.AvatarURL,
		u.AvatarKey,
		u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		if isPQError(err, pqUniqueViolation) {
			return model.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	u.UpdatedAt = u.CreatedAt

	return nil
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &u, nil
}

// GetByEmail retrieves a user by email, case-insensitively
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = $1`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &u, nil
}

func (r *userRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

func (r *userRepository) GetSummaries(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error) {
	result := make(map[int64]model.UserSummary, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var users []model.UserSummary
	query := `SELECT id, first_name, last_name, avatar_url FROM users WHERE id = ANY($1)`
	if err := r.db.SelectContext(ctx, &users, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to get user summaries: %w", err)
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

// UpdateProfile applies the non-nil fields of req. The CTE locks the row, so
// concurrent updates each see the avatar key the previous one left behind.
func (r *userRepository) UpdateProfile(ctx context.Context, id int64, req *model.UpdateProfileRequest, updatedAt time.Time) (*model.User, *string, error) {
	query := `
		WITH prev AS (
			SELECT avatar_key AS previous_avatar_key FROM users WHERE id = $1 FOR UPDATE
		)
		UPDATE users SET
			first_name = COALESCE($2, first_name),
			last_name  = COALESCE($3, last_name),
			bio        = COALESCE($4, bio),
			avatar_url = COALESCE($5, avatar_url),
			avatar_key = COALESCE($6, avatar_key),
			updated_at = $7
		FROM prev
		WHERE users.id = $1
		RETURNING ` + userColumns + `, prev.previous_avatar_key`

	var row struct {
		model.User
		PreviousAvatarKey *string `db:"previous_avatar_key"`
	}
	err := r.db.GetContext(ctx, &row, query, id, req.FirstName, req.LastName, req.Bio, req.AvatarURL, req.AvatarKey, updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, model.ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return &row.User, row.PreviousAvatarKey, nil
}

func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
	searchQuery := `
		SELECT id, first_name, last_name, avatar_url
		FROM users
		WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR (first_name || ' ' || last_name) ILIKE $1
		ORDER BY id
		LIMIT $2
	`

	users := []model.UserSummary{}
	err := r.db.SelectContext(ctx, &users, searchQuery, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}
