package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"sharefun/internal/model"
	"sharefun/internal/repository"
)

// FeedService composes a user's feed at read time from the social graph and
// the post store. Nothing is materialized, so a new friendship or a deleted
// post shows up on the next read.
type FeedService struct {
	posts    *PostService
	friends  *FriendService
	userRepo repository.UserRepository
}

func NewFeedService(posts *PostService, friends *FriendService, userRepo repository.UserRepository) *FeedService {
	return &FeedService{
		posts:    posts,
		friends:  friends,
		userRepo: userRepo,
	}
}

// GetFeed returns the requester's own posts and every post by their friends,
// newest first with ties broken by post ID.
func (s *FeedService) GetFeed(ctx context.Context, requesterID int64) ([]model.Post, error) {
	authors, err := s.feedAuthors(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListByAuthors(ctx, authors, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("list feed posts: %w", err)
	}
	if posts == nil {
		posts = []model.Post{}
	}
	return posts, nil
}

// GetFeedPage returns one page of the feed hydrated for display. cursor is
// the NextCursor of the previous page.
func (s *FeedService) GetFeedPage(ctx context.Context, requesterID int64, cursor *string, limit int) (*model.FeedResponse, error) {
	startTime := time.Now()

	if limit <= 0 {
		limit = model.FeedDefaultLimit
	}
	if limit > model.FeedMaxLimit {
		limit = model.FeedMaxLimit
	}

	var before *model.PostCursor
	if cursor != nil && *cursor != "" {
		c, err := model.ParsePostCursor(*cursor)
		if err != nil {
			return nil, err
		}
		before = &c
	}

	authors, err := s.feedAuthors(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	// One extra row tells us whether another page exists.
	posts, err := s.posts.ListByAuthors(ctx, authors, before, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list feed posts: %w", err)
	}
	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}

	feed, err := s.hydrate(ctx, requesterID, posts)
	if err != nil {
		return nil, err
	}

	var nextCursor *string
	if hasMore {
		c := model.CursorOf(&posts[len(posts)-1]).String()
		nextCursor = &c
	}

	log.Debugf("[FeedService] GetFeedPage OK: user=%d posts=%d hasMore=%v duration=%v",
		requesterID, len(feed), hasMore, time.Since(startTime))

	return &model.FeedResponse{
		Posts:      feed,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// LikeOnFeed likes a post the user can see in their feed.
func (s *FeedService) LikeOnFeed(ctx context.Context, postID, userID int64) error {
	if err := s.checkVisible(ctx, postID, userID); err != nil {
		return err
	}
	return s.posts.Like(ctx, postID, userID)
}

// UnlikeOnFeed removes the user's like from a post visible in their feed.
func (s *FeedService) UnlikeOnFeed(ctx context.Context, postID, userID int64) error {
	if err := s.checkVisible(ctx, postID, userID); err != nil {
		return err
	}
	return s.posts.Unlike(ctx, postID, userID)
}

// DeleteFromFeed deletes the user's own post.
func (s *FeedService) DeleteFromFeed(ctx context.Context, postID, userID int64) error {
	return s.posts.Delete(ctx, postID, userID)
}

// checkVisible allows the post's author and the author's friends.
func (s *FeedService) checkVisible(ctx context.Context, postID, userID int64) error {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID == userID {
		return nil
	}
	friends, err := s.friends.AreFriends(ctx, userID, post.AuthorID)
	if err != nil {
		return err
	}
	if !friends {
		return model.ErrForbidden
	}
	return nil
}

func (s *FeedService) feedAuthors(ctx context.Context, requesterID int64) ([]int64, error) {
	friendIDs, err := s.friends.ListFriends(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return append(friendIDs, requesterID), nil
}

func (s *FeedService) hydrate(ctx context.Context, viewerID int64, posts []model.Post) ([]model.FeedPost, error) {
	if len(posts) == 0 {
		return []model.FeedPost{}, nil
	}

	authorSet := make(map[int64]struct{})
	for _, p := range posts {
		authorSet[p.AuthorID] = struct{}{}
	}
	authorIDs := make([]int64, 0, len(authorSet))
	for id := range authorSet {
		authorIDs = append(authorIDs, id)
	}

	authors, err := s.userRepo.GetSummaries(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("get authors: %w", err)
	}

	feed := make([]model.FeedPost, 0, len(posts))
	for _, p := range posts {
		author, ok := authors[p.AuthorID]
		if !ok {
			author = model.UserSummary{ID: p.AuthorID}
		}
		feed = append(feed, model.FeedPost{
			Post:    p,
			Author:  author,
			IsLiked: p.IsLikedBy(viewerID),
		})
	}
	return feed, nil
}
