package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the media stream
const (
	EventPostDeleted    = "post_deleted"
	EventAvatarReplaced = "avatar_replaced"
)

// Stream names
const (
	StreamMedia = "stream:media"
)

// Consumer group name for media workers
const (
	ConsumerGroupMedia = "media_workers"
)

// MediaEvent announces that stored objects are no longer referenced and can
// be removed from the bucket.
type MediaEvent struct {
	Type      string `json:"type"`      // EventPostDeleted, EventAvatarReplaced
	Timestamp int64  `json:"timestamp"` // Unix timestamp when event occurred

	// Post events (PostDeleted)
	PostID     int64  `json:"postId,omitempty"`
	AuthorID   int64  `json:"authorId,omitempty"`
	Attachment string `json:"attachment,omitempty"` // public URL of the attachment

	// Avatar events (AvatarReplaced)
	UserID    int64  `json:"userId,omitempty"`
	ObjectKey string `json:"key,omitempty"`
}

// NewPostDeletedEvent creates an event for a deleted post that carried an attachment.
// Worker will delete the attachment object if it lives in our bucket.
func NewPostDeletedEvent(postID, authorID int64, attachment string, at time.Time) MediaEvent {
	return MediaEvent{
		Type:       EventPostDeleted,
		Timestamp:  at.Unix(),
		PostID:     postID,
		AuthorID:   authorID,
		Attachment: attachment,
	}
}

// NewAvatarReplacedEvent creates an event for an avatar that was swapped out.
func NewAvatarReplacedEvent(userID int64, key string, at time.Time) MediaEvent {
	return MediaEvent{
		Type:      EventAvatarReplaced,
		Timestamp: at.Unix(),
		UserID:    userID,
		ObjectKey: key,
	}
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e MediaEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseMediaEvent parses a MediaEvent from Redis stream message values.
func ParseMediaEvent(values map[string]interface{}) (MediaEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return MediaEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event MediaEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return MediaEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
