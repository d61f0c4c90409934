package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"sharefun/internal/clock"
	"sharefun/internal/config"
	"sharefun/internal/model"
	"sharefun/internal/queue"
	"sharefun/internal/repository/memory"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:         "test-secret",
		SessionTTL:        time.Hour,
		MinPasswordLength: 6,
		BcryptCost:        bcrypt.MinCost,
	}
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.MediaEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, stream string, event queue.MediaEvent) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return "1-0", nil
}

func (p *recordingPublisher) Events() []queue.MediaEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.MediaEvent(nil), p.events...)
}

// testEnv wires every service over the in-memory stores.
type testEnv struct {
	clock    *clock.Fake
	users    *UserService
	auth     *AuthService
	friends  *FriendService
	posts    *PostService
	feed     *FeedService
	sessions *memory.SessionStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clk := clock.NewFake(epoch)
	cfg := testConfig()

	userStore := memory.NewUserStore()
	friendStore := memory.NewFriendStore()
	postStore := memory.NewPostStore()
	sessionStore := memory.NewSessionStore()

	users := NewUserService(userStore, friendStore, postStore, clk, cfg)
	friends := NewFriendService(friendStore, userStore, clk)
	posts := NewPostService(postStore, userStore, clk)

	return &testEnv{
		clock:    clk,
		users:    users,
		auth:     NewAuthService(users, sessionStore, clk, cfg),
		friends:  friends,
		posts:    posts,
		feed:     NewFeedService(posts, friends, userStore),
		sessions: sessionStore,
	}
}

func (e *testEnv) register(t *testing.T, email string) *model.User {
	t.Helper()
	u, err := e.users.Register(context.Background(), &model.RegisterRequest{
		Email:     email,
		Password:  "pw123456",
		FirstName: "Test",
		LastName:  "User",
	})
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", email, err)
	}
	return u
}

func (e *testEnv) befriend(t *testing.T, a, b int64) {
	t.Helper()
	ctx := context.Background()
	if err := e.friends.SendRequest(ctx, a, b); err != nil {
		t.Fatalf("SendRequest failed: %v", err)
	}
	if err := e.friends.Respond(ctx, b, a, true); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
}

func (e *testEnv) post(t *testing.T, authorID int64, content string) *model.Post {
	t.Helper()
	p, err := e.posts.Create(context.Background(), authorID, &model.CreatePostRequest{Content: content})
	if err != nil {
		t.Fatalf("Create post failed: %v", err)
	}
	return p
}

func strPtr(s string) *string { return &s }
