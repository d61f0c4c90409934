package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaEvent_StreamValues(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	event := NewPostDeletedEvent(7, 3, "https://cdn.example.com/posts/3/a.jpg", at)

	values, err := event.ToMap()
	require.NoError(t, err)
	assert.Equal(t, EventPostDeleted, values["type"])

	parsed, err := ParseMediaEvent(values)
	require.NoError(t, err)
	assert.Equal(t, event, parsed)
	assert.Equal(t, at.Unix(), parsed.Timestamp)
}

func TestParseMediaEvent_Malformed(t *testing.T) {
	_, err := ParseMediaEvent(map[string]interface{}{"type": EventPostDeleted})
	assert.Error(t, err)

	_, err = ParseMediaEvent(map[string]interface{}{"data": "{not json"})
	assert.Error(t, err)
}
