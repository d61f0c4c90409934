// Package memory provides in-process implementations of the repository
// interfaces. Each store guards its maps with a single RWMutex, which makes
// every mutation atomic with respect to the others.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"sharefun/internal/model"
	"sharefun/internal/repository"
)

type UserStore struct {
	mu      sync.RWMutex
	nextID  int64
	users   map[int64]model.User
	byEmail map[string]int64
}

var _ repository.UserRepository = (*UserStore)(nil)

func NewUserStore() *UserStore {
	return &UserStore{
		users:   make(map[int64]model.User),
		byEmail: make(map[string]int64),
	}
}

func (s *UserStore) Create(ctx context.Context, u *model.User) error {
	key := model.NormalizeEmail(u.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[key]; taken {
		return model.ErrDuplicateEmail
	}
	s.nextID++
	u.ID = s.nextID
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = *u
	s.byEmail[key] = u.ID
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return &u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[model.NormalizeEmail(email)]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := s.users[id]
	return &u, nil
}

func (s *UserStore) Exists(ctx context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[id]
	return ok, nil
}

func (s *UserStore) GetSummaries(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[int64]model.UserSummary, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			result[id] = u.Summary()
		}
	}
	return result, nil
}

func (s *UserStore) UpdateProfile(ctx context.Context, id int64, req *model.UpdateProfileRequest, updatedAt time.Time) (*model.User, *string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil, model.ErrUserNotFound
	}
	previousKey := copyString(u.AvatarKey)
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.Bio != nil {
		u.Bio = copyString(req.Bio)
	}
	if req.AvatarURL != nil {
		u.AvatarURL = copyString(req.AvatarURL)
	}
	if req.AvatarKey != nil {
		u.AvatarKey = copyString(req.AvatarKey)
	}
	u.UpdatedAt = updatedAt
	s.users[id] = u
	return &u, previousKey, nil
}

func (s *UserStore) Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
	q := strings.ToLower(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []model.UserSummary{}
	for _, u := range s.users {
		full := strings.ToLower(u.FirstName + " " + u.LastName)
		if strings.Contains(full, q) {
			result = append(result, u.Summary())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func copyString(s *string) *string {
	v := *s
	return &v
}
