package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"sharefun/internal/model"
	"sharefun/internal/repository"
)

type postRecord struct {
	post   model.Post
	likers map[int64]struct{}
}

// snapshot copies the record so callers never share the likers map.
func (r *postRecord) snapshot() model.Post {
	p := r.post
	p.LikedBy = make([]int64, 0, len(r.likers))
	for id := range r.likers {
		p.LikedBy = append(p.LikedBy, id)
	}
	sort.Slice(p.LikedBy, func(i, j int) bool { return p.LikedBy[i] < p.LikedBy[j] })
	p.LikeCount = len(p.LikedBy)
	return p
}

type PostStore struct {
	mu     sync.RWMutex
	nextID int64
	posts  map[int64]*postRecord
}

var _ repository.PostRepository = (*PostStore)(nil)

func NewPostStore() *PostStore {
	return &PostStore{posts: make(map[int64]*postRecord)}
}

func (s *PostStore) Create(ctx context.Context, post *model.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	post.ID = s.nextID
	post.LikedBy = []int64{}
	post.LikeCount = 0

	stored := *post
	if post.Attachment != nil {
		stored.Attachment = copyString(post.Attachment)
	}
	s.posts[post.ID] = &postRecord{post: stored, likers: make(map[int64]struct{})}
	return nil
}

func (s *PostStore) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.posts[postID]
	if !ok {
		return nil, model.ErrPostNotFound
	}
	p := rec.snapshot()
	return &p, nil
}

func (s *PostStore) Delete(ctx context.Context, postID, requesterID int64) (*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.posts[postID]
	if !ok {
		return nil, model.ErrPostNotFound
	}
	if rec.post.AuthorID != requesterID {
		return nil, model.ErrForbidden
	}
	delete(s.posts, postID)
	p := rec.snapshot()
	return &p, nil
}

func (s *PostStore) Like(ctx context.Context, postID, userID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.posts[postID]
	if !ok {
		return model.ErrPostNotFound
	}
	rec.likers[userID] = struct{}{}
	return nil
}

func (s *PostStore) Unlike(ctx context.Context, postID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.posts[postID]
	if !ok {
		return model.ErrPostNotFound
	}
	delete(rec.likers, userID)
	return nil
}

func (s *PostStore) ListByAuthors(ctx context.Context, authorIDs []int64, before *model.PostCursor, limit int) ([]model.Post, error) {
	authors := make(map[int64]struct{}, len(authorIDs))
	for _, id := range authorIDs {
		authors[id] = struct{}{}
	}

	s.mu.RLock()
	posts := []model.Post{}
	for _, rec := range s.posts {
		if _, ok := authors[rec.post.AuthorID]; !ok {
			continue
		}
		if before != nil && !before.After(&rec.post) {
			continue
		}
		posts = append(posts, rec.snapshot())
	}
	s.mu.RUnlock()

	sort.Slice(posts, func(i, j int) bool { return posts[i].NewerThan(&posts[j]) })
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (s *PostStore) CountByAuthor(ctx context.Context, authorID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, rec := range s.posts {
		if rec.post.AuthorID == authorID {
			count++
		}
	}
	return count, nil
}
