package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"sharefun/internal/clock"
	"sharefun/internal/model"
	"sharefun/internal/queue"
	"sharefun/internal/repository"
)

// PostService owns posts and their like sets.
type PostService struct {
	postRepo  repository.PostRepository
	userRepo  repository.UserRepository
	publisher queue.Publisher
	clock     clock.Clock
}

func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository, clk clock.Clock) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
		clock:    clk,
	}
}

// SetPublisher enables attachment cleanup events (optional, requires Redis).
func (s *PostService) SetPublisher(p queue.Publisher) {
	s.publisher = p
}

// Create stores a new post stamped with the current time and an empty like set.
func (s *PostService) Create(ctx context.Context, authorID int64, req *model.CreatePostRequest) (*model.Post, error) {
	content := strings.TrimSpace(req.Content)
	var attachment *string
	if req.Attachment != nil {
		if a := strings.TrimSpace(*req.Attachment); a != "" {
			attachment = &a
		}
	}

	if content == "" && attachment == nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidInput, model.ErrEmptyPost)
	}
	if utf8.RuneCountInString(content) > model.MaxPostContentLength {
		return nil, fmt.Errorf("%w: content exceeds %d characters", model.ErrInvalidInput, model.MaxPostContentLength)
	}
	if attachment != nil {
		if err := validateAttachment(*attachment); err != nil {
			return nil, err
		}
	}

	exists, err := s.userRepo.Exists(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check author: %w", err)
	}
	if !exists {
		return nil, model.ErrUnknownUser
	}

	post := &model.Post{
		AuthorID:   authorID,
		Content:    content,
		Attachment: attachment,
		CreatedAt:  s.clock.Now(),
		LikedBy:    []int64{},
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		if errors.Is(err, model.ErrUnknownUser) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	log.WithFields(log.Fields{"post_id": post.ID, "author_id": authorID}).Info("[PostService] Post created")
	return post, nil
}

// Get returns a post with its like set.
func (s *PostService) Get(ctx context.Context, postID int64) (*model.Post, error) {
	return s.postRepo.GetByID(ctx, postID)
}

// Delete removes a post if requesterID is its author. Ownership is checked in
// the same statement that deletes, so a failed check leaves the post intact.
func (s *PostService) Delete(ctx context.Context, postID, requesterID int64) error {
	deleted, err := s.postRepo.Delete(ctx, postID, requesterID)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{"post_id": postID, "author_id": requesterID}).Info("[PostService] Post deleted")

	if deleted.Attachment != nil && s.publisher != nil {
		event := queue.NewPostDeletedEvent(deleted.ID, deleted.AuthorID, *deleted.Attachment, s.clock.Now())
		if _, err := s.publisher.Publish(ctx, queue.StreamMedia, event); err != nil {
			log.WithError(err).WithField("post_id", postID).Warn("[PostService] Failed to publish post_deleted")
		}
	}
	return nil
}

// Like adds userID to the post's like set. Liking twice is a no-op.
func (s *PostService) Like(ctx context.Context, postID, userID int64) error {
	return s.postRepo.Like(ctx, postID, userID, s.clock.Now())
}

// Unlike removes userID from the post's like set. Unliking a post that was not liked is a no-op.
func (s *PostService) Unlike(ctx context.Context, postID, userID int64) error {
	return s.postRepo.Unlike(ctx, postID, userID)
}

// ListByAuthor returns every post by authorID, newest first.
func (s *PostService) ListByAuthor(ctx context.Context, authorID int64) ([]model.Post, error) {
	return s.postRepo.ListByAuthors(ctx, []int64{authorID}, nil, 0)
}

// ListByAuthors returns posts by any of authorIDs in feed order, continuing after before.
func (s *PostService) ListByAuthors(ctx context.Context, authorIDs []int64, before *model.PostCursor, limit int) ([]model.Post, error) {
	return s.postRepo.ListByAuthors(ctx, authorIDs, before, limit)
}

// Attachments are opaque references; only their size is bounded.
func validateAttachment(attachment string) error {
	if len(attachment) > model.MaxAttachmentLength {
		return fmt.Errorf("%w: attachment reference is too long", model.ErrInvalidInput)
	}
	return nil
}
