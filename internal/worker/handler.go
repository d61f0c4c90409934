package worker

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"sharefun/internal/model"
	"sharefun/internal/queue"
)

// ObjectRemover deletes objects from the media bucket.
// This abstracts the storage client so workers don't depend on S3 directly.
type ObjectRemover interface {
	// KeyFromURL maps a public URL to an object key; ok is false for URLs outside the bucket.
	KeyFromURL(url string) (key string, ok bool)
	DeleteObject(ctx context.Context, key string) error
}

// Handler processes media events from the queue.
type Handler struct {
	objects          ObjectRemover
	defaultAvatarKey string
}

// NewHandler creates a new event handler. Objects under defaultAvatarKey are never deleted.
func NewHandler(objects ObjectRemover, defaultAvatarKey string) *Handler {
	return &Handler{objects: objects, defaultAvatarKey: defaultAvatarKey}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.MediaEvent) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventPostDeleted:
		err = h.handlePostDeleted(ctx, event)
	case queue.EventAvatarReplaced:
		err = h.handleAvatarReplaced(ctx, event)
	default:
		log.Warnf("[Worker] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		log.Errorf("[Worker] HandleEvent FAILED: type=%s duration=%v err=%v", event.Type, time.Since(startTime), err)
		return err
	}

	log.Debugf("[Worker] HandleEvent OK: type=%s duration=%v", event.Type, time.Since(startTime))
	return nil
}

// handlePostDeleted removes the deleted post's attachment when we host it and
// it was uploaded by the post's author. Attachments are client-supplied, so a
// post may point at any object in the bucket.
func (h *Handler) handlePostDeleted(ctx context.Context, event queue.MediaEvent) error {
	key, ok := h.objects.KeyFromURL(event.Attachment)
	if !ok {
		log.Debugf("[Worker] PostDeleted: post=%d attachment is external, nothing to delete", event.PostID)
		return nil
	}
	if !model.IsPostMediaKeyOf(event.AuthorID, key) {
		log.Warnf("[Worker] PostDeleted: post=%d author=%d attachment key=%s is not the author's upload, skipping",
			event.PostID, event.AuthorID, key)
		return nil
	}

	if err := h.objects.DeleteObject(ctx, key); err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}

	log.Infof("[Worker] PostDeleted DONE: post=%d key=%s", event.PostID, key)
	return nil
}

func (h *Handler) handleAvatarReplaced(ctx context.Context, event queue.MediaEvent) error {
	if event.ObjectKey == "" || event.ObjectKey == h.defaultAvatarKey {
		return nil
	}

	if err := h.objects.DeleteObject(ctx, event.ObjectKey); err != nil {
		return fmt.Errorf("delete avatar: %w", err)
	}

	log.Infof("[Worker] AvatarReplaced DONE: user=%d key=%s", event.UserID, event.ObjectKey)
	return nil
}
