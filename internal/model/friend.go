package model

import (
	"errors"
	"time"
)

type FriendStatus string

const (
	FriendStatusPending  FriendStatus = "pending"
	FriendStatusAccepted FriendStatus = "accepted"
)

// FriendRelation is stored once per unordered pair, keyed by (UserLow, UserHigh) with UserLow < UserHigh.
type FriendRelation struct {
	UserLow     int64        `db:"user_low" json:"userLow"`
	UserHigh    int64        `db:"user_high" json:"userHigh"`
	RequesterID int64        `db:"requester_id" json:"requesterId"`
	Status      FriendStatus `db:"status" json:"status"`
	CreatedAt   time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updatedAt"`
}

// PairKey is the canonical key of an unordered user pair.
type PairKey struct {
	Low  int64
	High int64
}

// NewPairKey orders a and b so that {a,b} and {b,a} produce the same key.
func NewPairKey(a, b int64) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{Low: a, High: b}
}

// RecipientID returns the side of a pending request that did not send it.
func (r *FriendRelation) RecipientID() int64 {
	if r.RequesterID == r.UserLow {
		return r.UserHigh
	}
	return r.UserLow
}

// Friendship states as seen by one side of a pair
const (
	FriendshipNone            = "none"
	FriendshipPendingOutgoing = "pending_outgoing"
	FriendshipPendingIncoming = "pending_incoming"
	FriendshipFriends         = "friends"
	FriendshipSelf            = "self"
)

// ViewFrom describes the relation from viewerID's point of view.
func (r *FriendRelation) ViewFrom(viewerID int64) string {
	if r == nil {
		return FriendshipNone
	}
	if r.Status == FriendStatusAccepted {
		return FriendshipFriends
	}
	if r.RequesterID == viewerID {
		return FriendshipPendingOutgoing
	}
	return FriendshipPendingIncoming
}

// FriendRequest is an incoming pending request with the requester hydrated.
type FriendRequest struct {
	Requester UserSummary `json:"requester"`
	CreatedAt time.Time   `json:"createdAt"`
}

type FriendRequestListResponse struct {
	Requests []FriendRequest `json:"requests"`
}

// RespondRequest is the request body for POST /friends/requests/{id}/respond
type RespondRequest struct {
	Accept *bool `json:"accept"`
}

var (
	ErrSelfRequest      = errors.New("cannot befriend yourself")
	ErrAlreadyRequested = errors.New("relation already exists")
	ErrNoSuchRequest    = errors.New("no such pending request")
	ErrNoSuchRelation   = errors.New("no such friendship")
)
