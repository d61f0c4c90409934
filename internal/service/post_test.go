package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharefun/internal/model"
	"sharefun/internal/queue"
)

func TestPostService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "a@x.com").ID

	p, err := env.posts.Create(ctx, a, &model.CreatePostRequest{Content: "  hello  "})
	require.NoError(t, err)
	assert.Equal(t, "hello", p.Content)
	assert.Equal(t, a, p.AuthorID)
	assert.Equal(t, epoch, p.CreatedAt)
	assert.Empty(t, p.LikedBy)

	withMedia, err := env.posts.Create(ctx, a, &model.CreatePostRequest{Attachment: strPtr("posts/1/pic.jpg")})
	require.NoError(t, err)
	assert.Greater(t, withMedia.ID, p.ID)
	require.NotNil(t, withMedia.Attachment)
	assert.Equal(t, "posts/1/pic.jpg", *withMedia.Attachment)
}

func TestPostService_Create_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "a@x.com").ID

	tests := []struct {
		name    string
		author  int64
		req     model.CreatePostRequest
		wantErr error
	}{
		{"empty", a, model.CreatePostRequest{Content: "   "}, model.ErrInvalidInput},
		{"blank attachment only", a, model.CreatePostRequest{Attachment: strPtr(" ")}, model.ErrInvalidInput},
		{"content too long", a, model.CreatePostRequest{Content: strings.Repeat("x", model.MaxPostContentLength+1)}, model.ErrInvalidInput},
		{"attachment too long", a, model.CreatePostRequest{Attachment: strPtr(strings.Repeat("x", model.MaxAttachmentLength+1))}, model.ErrInvalidInput},
		{"unknown author", 999, model.CreatePostRequest{Content: "hi"}, model.ErrUnknownUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.posts.Create(ctx, tt.author, &tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPostService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pub := &recordingPublisher{}
	env.posts.SetPublisher(pub)
	a := env.register(t, "a@x.com").ID
	b := env.register(t, "b@x.com").ID

	p, err := env.posts.Create(ctx, a, &model.CreatePostRequest{Content: "pic", Attachment: strPtr("https://cdn.test/posts/1/a.jpg")})
	require.NoError(t, err)
	plain := env.post(t, a, "text")

	assert.ErrorIs(t, env.posts.Delete(ctx, p.ID, b), model.ErrForbidden)
	_, err = env.posts.Get(ctx, p.ID)
	require.NoError(t, err, "a forbidden delete leaves the post")

	require.NoError(t, env.posts.Delete(ctx, p.ID, a))
	require.NoError(t, env.posts.Delete(ctx, plain.ID, a))

	_, err = env.posts.Get(ctx, p.ID)
	assert.ErrorIs(t, err, model.ErrPostNotFound)
	assert.ErrorIs(t, env.posts.Delete(ctx, p.ID, a), model.ErrPostNotFound)

	// Only the post with an attachment needs cleanup
	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, queue.EventPostDeleted, events[0].Type)
	assert.Equal(t, p.ID, events[0].PostID)
}

func TestPostService_LikeUnlike(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "a@x.com").ID
	b := env.register(t, "b@x.com").ID
	p := env.post(t, a, "hello")

	require.NoError(t, env.posts.Like(ctx, p.ID, b))
	require.NoError(t, env.posts.Like(ctx, p.ID, b))
	require.NoError(t, env.posts.Like(ctx, p.ID, a))

	got, err := env.posts.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{a, b}, got.LikedBy)
	assert.Equal(t, 2, got.LikeCount)

	require.NoError(t, env.posts.Unlike(ctx, p.ID, b))
	require.NoError(t, env.posts.Unlike(ctx, p.ID, b))

	got, err = env.posts.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{a}, got.LikedBy)

	assert.ErrorIs(t, env.posts.Like(ctx, 999, a), model.ErrPostNotFound)
	assert.ErrorIs(t, env.posts.Unlike(ctx, 999, a), model.ErrPostNotFound)
}

func TestPostService_ConcurrentLikes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := env.register(t, "author@x.com").ID
	p := env.post(t, author, "popular")

	const likers = 50
	var wg sync.WaitGroup
	for i := int64(1); i <= likers; i++ {
		wg.Add(2)
		for j := 0; j < 2; j++ {
			go func(userID int64) {
				defer wg.Done()
				assert.NoError(t, env.posts.Like(ctx, p.ID, userID))
			}(i + 100)
		}
	}
	wg.Wait()

	got, err := env.posts.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, got.LikedBy, likers)
	assert.Equal(t, likers, got.LikeCount)
}

func TestPostService_ListByAuthor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "a@x.com").ID
	b := env.register(t, "b@x.com").ID

	first := env.post(t, a, "first")
	env.post(t, b, "other")
	env.clock.Advance(1)
	second := env.post(t, a, "second")

	posts, err := env.posts.ListByAuthor(ctx, a)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)
	assert.Equal(t, first.ID, posts[1].ID)
}
