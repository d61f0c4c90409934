package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"sharefun/internal/clock"
	"sharefun/internal/model"
	"sharefun/internal/repository"
)

// FriendService manages the social graph: requests, responses and friendships.
// Every transition is a single conditional write in the repository, so two
// racing callers never both succeed.
type FriendService struct {
	friendRepo repository.FriendRepository
	userRepo   repository.UserRepository
	clock      clock.Clock
}

func NewFriendService(friendRepo repository.FriendRepository, userRepo repository.UserRepository, clk clock.Clock) *FriendService {
	return &FriendService{
		friendRepo: friendRepo,
		userRepo:   userRepo,
		clock:      clk,
	}
}

// SendRequest creates a pending request from -> to. Fails with
// ErrAlreadyRequested if the pair already has a pending request in either
// direction or is already friends.
func (s *FriendService) SendRequest(ctx context.Context, from, to int64) error {
	if from == to {
		return model.ErrSelfRequest
	}
	if err := s.requireUsers(ctx, from, to); err != nil {
		return err
	}

	inserted, err := s.friendRepo.CreateRequest(ctx, from, to, s.clock.Now())
	if err != nil {
		return err
	}
	if !inserted {
		return model.ErrAlreadyRequested
	}

	log.WithFields(log.Fields{"from": from, "to": to}).Info("[FriendService] Request sent")
	return nil
}

// Respond accepts or rejects the pending request from requester to recipient.
// Rejecting deletes the request so either side may send a new one.
func (s *FriendService) Respond(ctx context.Context, recipient, requester int64, accept bool) error {
	if recipient == requester {
		return model.ErrNoSuchRequest
	}

	var (
		changed bool
		err     error
	)
	if accept {
		changed, err = s.friendRepo.Accept(ctx, requester, recipient, s.clock.Now())
	} else {
		changed, err = s.friendRepo.DeletePending(ctx, requester, recipient)
	}
	if err != nil {
		return err
	}
	if !changed {
		return model.ErrNoSuchRequest
	}

	log.WithFields(log.Fields{"recipient": recipient, "requester": requester, "accept": accept}).
		Info("[FriendService] Request answered")
	return nil
}

// CancelRequest withdraws a pending request the requester sent.
func (s *FriendService) CancelRequest(ctx context.Context, requester, recipient int64) error {
	if requester == recipient {
		return model.ErrNoSuchRequest
	}
	removed, err := s.friendRepo.DeletePending(ctx, requester, recipient)
	if err != nil {
		return err
	}
	if !removed {
		return model.ErrNoSuchRequest
	}
	return nil
}

// Unfriend removes an accepted friendship. Either side may call it.
func (s *FriendService) Unfriend(ctx context.Context, a, b int64) error {
	if a == b {
		return model.ErrNoSuchRelation
	}
	removed, err := s.friendRepo.DeleteAccepted(ctx, a, b)
	if err != nil {
		return err
	}
	if !removed {
		return model.ErrNoSuchRelation
	}

	log.WithFields(log.Fields{"a": a, "b": b}).Info("[FriendService] Friendship removed")
	return nil
}

// ListFriends returns the user's accepted friends in ascending ID order.
// Unknown users simply have no friends.
func (s *FriendService) ListFriends(ctx context.Context, userID int64) ([]int64, error) {
	ids, err := s.friendRepo.GetFriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

// AreFriends reports whether a and b have an accepted friendship. Nobody is their own friend.
func (s *FriendService) AreFriends(ctx context.Context, a, b int64) (bool, error) {
	if a == b {
		return false, nil
	}
	return s.friendRepo.AreFriends(ctx, a, b)
}

// ListFriendSummaries returns the user's friends hydrated for display, in ascending ID order.
func (s *FriendService) ListFriendSummaries(ctx context.Context, userID int64) ([]model.UserSummary, error) {
	ids, err := s.ListFriends(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries, err := s.userRepo.GetSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	users := make([]model.UserSummary, 0, len(ids))
	for _, id := range ids {
		if u, ok := summaries[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

// ListIncomingRequests returns pending requests addressed to the user, newest first.
func (s *FriendService) ListIncomingRequests(ctx context.Context, userID int64) ([]model.FriendRequest, error) {
	rels, err := s.friendRepo.GetIncomingRequests(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(rels))
	for i, rel := range rels {
		ids[i] = rel.RequesterID
	}
	summaries, err := s.userRepo.GetSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	requests := make([]model.FriendRequest, 0, len(rels))
	for _, rel := range rels {
		requester, ok := summaries[rel.RequesterID]
		if !ok {
			continue
		}
		requests = append(requests, model.FriendRequest{Requester: requester, CreatedAt: rel.CreatedAt})
	}
	return requests, nil
}

func (s *FriendService) requireUsers(ctx context.Context, ids ...int64) error {
	for _, id := range ids {
		exists, err := s.userRepo.Exists(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		if !exists {
			return model.ErrUnknownUser
		}
	}
	return nil
}
