package model

import (
	"errors"
	"strings"
	"time"
)

// User represents a registered account
type User struct {
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"` // "-" hides from JSON output
	FirstName    string    `db:"first_name" json:"firstName"`
	LastName     string    `db:"last_name" json:"lastName"`
	Bio          *string   `db:"bio" json:"bio"`
	AvatarURL    *string   `db:"avatar_url" json:"avatarUrl"`
	AvatarKey    *string   `db:"avatar_key" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Summary returns the public subset of the user shown next to posts and in lists.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		AvatarURL: u.AvatarURL,
	}
}

// UserSummary is the lightweight user view
type UserSummary struct {
	ID        int64   `db:"id" json:"id"`
	FirstName string  `db:"first_name" json:"firstName"`
	LastName  string  `db:"last_name" json:"lastName"`
	AvatarURL *string `db:"avatar_url" json:"avatarUrl"`
}

// RegisterRequest represents the data needed to register a new user
type RegisterRequest struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	AvatarURL *string `json:"-"`
	AvatarKey *string `json:"-"`
}

// LoginRequest represents the data needed to log in
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest carries a partial profile update; nil fields are left unchanged.
type UpdateProfileRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"-"`
	AvatarKey *string `json:"-"`
}

// ProfileResponse is a user profile as seen by the viewer
type ProfileResponse struct {
	User        *User  `json:"user"`
	Friendship  string `json:"friendship"`
	FriendCount int    `json:"friendCount"`
	PostCount   int    `json:"postCount"`
}

// UserListResponse wraps user lists (search, friends)
type UserListResponse struct {
	Users []UserSummary `json:"users"`
}

const (
	MaxNameLength   = 50
	MaxBioLength    = 300
	MaxSearchLength = 100
	SearchLimit     = 20
)

// NormalizeEmail lowercases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateEmail is returned when attempting to create a user with a taken email
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidCredentials is returned when login credentials are incorrect
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrWeakCredential is returned when a password does not meet the policy
	ErrWeakCredential = errors.New("password does not meet policy")

	// ErrUnknownUser is returned when an operation references a user that does not exist
	ErrUnknownUser = errors.New("unknown user")
)
