package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"sharefun/internal/model"
	"sharefun/internal/repository"
)

// FriendStore keeps one relation per canonical pair key, mirroring the
// friendships table primary key.
type FriendStore struct {
	mu        sync.RWMutex
	relations map[model.PairKey]model.FriendRelation
}

var _ repository.FriendRepository = (*FriendStore)(nil)

func NewFriendStore() *FriendStore {
	return &FriendStore{relations: make(map[model.PairKey]model.FriendRelation)}
}

func (s *FriendStore) CreateRequest(ctx context.Context, requesterID, recipientID int64, at time.Time) (bool, error) {
	key := model.NewPairKey(requesterID, recipientID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.relations[key]; exists {
		return false, nil
	}
	s.relations[key] = model.FriendRelation{
		UserLow:     key.Low,
		UserHigh:    key.High,
		RequesterID: requesterID,
		Status:      model.FriendStatusPending,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	return true, nil
}

func (s *FriendStore) Accept(ctx context.Context, requesterID, recipientID int64, at time.Time) (bool, error) {
	key := model.NewPairKey(requesterID, recipientID)

	s.mu.Lock()
	defer s.mu.Unlock()

	rel, ok := s.relations[key]
	if !ok || rel.Status != model.FriendStatusPending || rel.RequesterID != requesterID {
		return false, nil
	}
	rel.Status = model.FriendStatusAccepted
	rel.UpdatedAt = at
	s.relations[key] = rel
	return true, nil
}

func (s *FriendStore) DeletePending(ctx context.Context, requesterID, recipientID int64) (bool, error) {
	key := model.NewPairKey(requesterID, recipientID)

	s.mu.Lock()
	defer s.mu.Unlock()

	rel, ok := s.relations[key]
	if !ok || rel.Status != model.FriendStatusPending || rel.RequesterID != requesterID {
		return false, nil
	}
	delete(s.relations, key)
	return true, nil
}

func (s *FriendStore) DeleteAccepted(ctx context.Context, a, b int64) (bool, error) {
	key := model.NewPairKey(a, b)

	s.mu.Lock()
	defer s.mu.Unlock()

	rel, ok := s.relations[key]
	if !ok || rel.Status != model.FriendStatusAccepted {
		return false, nil
	}
	delete(s.relations, key)
	return true, nil
}

func (s *FriendStore) Get(ctx context.Context, a, b int64) (*model.FriendRelation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rel, ok := s.relations[model.NewPairKey(a, b)]
	if !ok {
		return nil, model.ErrNoSuchRelation
	}
	return &rel, nil
}

func (s *FriendStore) AreFriends(ctx context.Context, a, b int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rel, ok := s.relations[model.NewPairKey(a, b)]
	return ok && rel.Status == model.FriendStatusAccepted, nil
}

func (s *FriendStore) GetFriendIDs(ctx context.Context, userID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := []int64{}
	for key, rel := range s.relations {
		if rel.Status != model.FriendStatusAccepted {
			continue
		}
		switch userID {
		case key.Low:
			ids = append(ids, key.High)
		case key.High:
			ids = append(ids, key.Low)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *FriendStore) GetIncomingRequests(ctx context.Context, userID int64) ([]model.FriendRelation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rels := []model.FriendRelation{}
	for key, rel := range s.relations {
		if rel.Status != model.FriendStatusPending || rel.RequesterID == userID {
			continue
		}
		if key.Low == userID || key.High == userID {
			rels = append(rels, rel)
		}
	}
	sort.Slice(rels, func(i, j int) bool {
		if !rels[i].CreatedAt.Equal(rels[j].CreatedAt) {
			return rels[i].CreatedAt.After(rels[j].CreatedAt)
		}
		return rels[i].RequesterID < rels[j].RequesterID
	})
	return rels, nil
}
