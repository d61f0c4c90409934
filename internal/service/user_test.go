package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"sharefun/internal/clock"
	"sharefun/internal/model"
	"sharefun/internal/queue"
)

// =============================================================================
// MOCK REPOSITORY
// =============================================================================

type mockUserRepository struct {
	createFn        func(ctx context.Context, user *model.User) error
	getByIDFn       func(ctx context.Context, id int64) (*model.User, error)
	getByEmailFn    func(ctx context.Context, email string) (*model.User, error)
	updateProfileFn func(ctx context.Context, id int64, req *model.UpdateProfileRequest, updatedAt time.Time) (*model.User, *string, error)
	searchFn        func(ctx context.Context, query string, limit int) ([]model.UserSummary, error)

	// Track calls for assertions
	createCalls []*model.User
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	m.createCalls = append(m.createCalls, user)
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	user.ID = int64(len(m.createCalls))
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	return true, nil
}

func (m *mockUserRepository) GetSummaries(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error) {
	return map[int64]model.UserSummary{}, nil
}

func (m *mockUserRepository) UpdateProfile(ctx context.Context, id int64, req *model.UpdateProfileRequest, updatedAt time.Time) (*model.User, *string, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, id, req, updatedAt)
	}
	return nil, nil, model.ErrUserNotFound
}

func (m *mockUserRepository) Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit)
	}
	return []model.UserSummary{}, nil
}

func newMockedUserService(repo *mockUserRepository) *UserService {
	return NewUserService(repo, nil, nil, clock.NewFake(epoch), testConfig())
}

// =============================================================================
// REGISTER TESTS
// =============================================================================

func TestUserService_Register_Success(t *testing.T) {
	mockRepo := &mockUserRepository{}
	svc := newMockedUserService(mockRepo)

	req := &model.RegisterRequest{
		Email:     "  Alice@X.com ",
		Password:  "pw123456",
		FirstName: " Alice ",
		LastName:  "Liddell",
	}

	user, err := svc.Register(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if user.Email != "alice@x.com" {
		t.Errorf("email = %q, want normalized alice@x.com", user.Email)
	}
	if user.FirstName != "Alice" {
		t.Errorf("firstName = %q, want trimmed Alice", user.FirstName)
	}
	if !user.CreatedAt.Equal(epoch) {
		t.Errorf("createdAt = %v, want %v", user.CreatedAt, epoch)
	}

	// Only the hash is stored
	if user.PasswordHash == req.Password {
		t.Error("password should be hashed, not stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		t.Error("password hash should be valid bcrypt hash")
	}

	if len(mockRepo.createCalls) != 1 {
		t.Errorf("Create called %d times, want 1", len(mockRepo.createCalls))
	}
}

func TestUserService_Register_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     model.RegisterRequest
		wantErr error
	}{
		{
			name:    "missing email",
			req:     model.RegisterRequest{Password: "pw123456", FirstName: "A", LastName: "B"},
			wantErr: model.ErrInvalidInput,
		},
		{
			name:    "malformed email",
			req:     model.RegisterRequest{Email: "not-an-email", Password: "pw123456", FirstName: "A", LastName: "B"},
			wantErr: model.ErrInvalidInput,
		},
		{
			name:    "short password",
			req:     model.RegisterRequest{Email: "a@x.com", Password: "pw1", FirstName: "A", LastName: "B"},
			wantErr: model.ErrWeakCredential,
		},
		{
			name:    "password past bcrypt limit",
			req:     model.RegisterRequest{Email: "a@x.com", Password: strings.Repeat("p", 73), FirstName: "A", LastName: "B"},
			wantErr: model.ErrInvalidInput,
		},
		{
			name:    "blank first name",
			req:     model.RegisterRequest{Email: "a@x.com", Password: "pw123456", FirstName: "  ", LastName: "B"},
			wantErr: model.ErrInvalidInput,
		},
		{
			name:    "long last name",
			req:     model.RegisterRequest{Email: "a@x.com", Password: "pw123456", FirstName: "A", LastName: strings.Repeat("b", model.MaxNameLength+1)},
			wantErr: model.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mockUserRepository{}
			svc := newMockedUserService(mockRepo)

			user, err := svc.Register(context.Background(), &tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if user != nil {
				t.Error("user should be nil when registration fails")
			}
			if len(mockRepo.createCalls) != 0 {
				t.Error("Create should not be called for invalid input")
			}
		})
	}
}

func TestUserService_Register_DuplicateEmail(t *testing.T) {
	mockRepo := &mockUserRepository{
		createFn: func(ctx context.Context, user *model.User) error {
			return model.ErrDuplicateEmail
		},
	}
	svc := newMockedUserService(mockRepo)

	_, err := svc.Register(context.Background(), &model.RegisterRequest{
		Email: "a@x.com", Password: "pw123456", FirstName: "A", LastName: "B",
	})
	if !errors.Is(err, model.ErrDuplicateEmail) {
		t.Errorf("error = %v, want %v", err, model.ErrDuplicateEmail)
	}
}

func TestUserService_Register_CreateError(t *testing.T) {
	dbError := errors.New("insert failed")
	mockRepo := &mockUserRepository{
		createFn: func(ctx context.Context, user *model.User) error {
			return dbError
		},
	}
	svc := newMockedUserService(mockRepo)

	_, err := svc.Register(context.Background(), &model.RegisterRequest{
		Email: "a@x.com", Password: "pw123456", FirstName: "A", LastName: "B",
	})
	if !errors.Is(err, dbError) {
		t.Errorf("error should wrap create error")
	}
}

func TestUserService_Register_DefaultAvatar(t *testing.T) {
	mockRepo := &mockUserRepository{}
	svc := newMockedUserService(mockRepo)
	svc.config.DefaultAvatarURL = "https://cdn.test/avatars/default.jpg"
	svc.config.DefaultAvatarKey = "avatars/default.jpg"

	user, err := svc.Register(context.Background(), &model.RegisterRequest{
		Email: "a@x.com", Password: "pw123456", FirstName: "A", LastName: "B",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.AvatarKey == nil || *user.AvatarKey != "avatars/default.jpg" {
		t.Errorf("avatarKey = %v, want the default", user.AvatarKey)
	}
}

// =============================================================================
// VERIFY TESTS
// =============================================================================

func TestUserService_Verify(t *testing.T) {
	validPassword := "correctpassword"
	validHash, _ := bcrypt.GenerateFromPassword([]byte(validPassword), bcrypt.MinCost)

	testUser := &model.User{
		ID:           1,
		Email:        "alice@x.com",
		PasswordHash: string(validHash),
	}

	tests := []struct {
		name       string
		email      string
		password   string
		mockGetFn  func(ctx context.Context, email string) (*model.User, error)
		wantErr    error
		wantUser   bool
		anyFailure bool
	}{
		{
			name:     "valid credentials",
			email:    "ALICE@x.com",
			password: validPassword,
			mockGetFn: func(ctx context.Context, email string) (*model.User, error) {
				if email != "alice@x.com" {
					return nil, model.ErrUserNotFound
				}
				return testUser, nil
			},
			wantUser: true,
		},
		{
			name:     "unknown email",
			email:    "nobody@x.com",
			password: validPassword,
			mockGetFn: func(ctx context.Context, email string) (*model.User, error) {
				return nil, model.ErrUserNotFound
			},
			wantErr: model.ErrUserNotFound,
		},
		{
			name:     "wrong password",
			email:    "alice@x.com",
			password: "wrongpassword",
			mockGetFn: func(ctx context.Context, email string) (*model.User, error) {
				return testUser, nil
			},
			wantErr: model.ErrInvalidCredentials,
		},
		{
			name:     "database error",
			email:    "alice@x.com",
			password: validPassword,
			mockGetFn: func(ctx context.Context, email string) (*model.User, error) {
				return nil, errors.New("database error")
			},
			anyFailure: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newMockedUserService(&mockUserRepository{getByEmailFn: tt.mockGetFn})

			user, err := svc.Verify(context.Background(), tt.email, tt.password)

			switch {
			case tt.anyFailure:
				if err == nil {
					t.Error("expected an error")
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
			case err != nil:
				t.Errorf("unexpected error: %v", err)
			}

			if tt.wantUser && user == nil {
				t.Error("expected user, got nil")
			}
			if !tt.wantUser && user != nil {
				t.Error("expected nil user")
			}
		})
	}
}

// =============================================================================
// PROFILE TESTS
// =============================================================================

func TestUserService_GetProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice@x.com")
	bob := env.register(t, "bob@x.com")
	carol := env.register(t, "carol@x.com")

	env.befriend(t, alice.ID, bob.ID)
	if err := env.friends.SendRequest(ctx, carol.ID, alice.ID); err != nil {
		t.Fatalf("SendRequest failed: %v", err)
	}
	env.post(t, alice.ID, "one")
	env.post(t, alice.ID, "two")

	tests := []struct {
		name   string
		viewer int64
		want   string
	}{
		{"self", alice.ID, model.FriendshipSelf},
		{"friend", bob.ID, model.FriendshipFriends},
		{"requested by viewer", carol.ID, model.FriendshipPendingOutgoing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, err := env.users.GetProfile(ctx, alice.ID, tt.viewer)
			if err != nil {
				t.Fatalf("GetProfile failed: %v", err)
			}
			if profile.Friendship != tt.want {
				t.Errorf("friendship = %q, want %q", profile.Friendship, tt.want)
			}
			if profile.FriendCount != 1 || profile.PostCount != 2 {
				t.Errorf("counts = (%d friends, %d posts), want (1, 2)", profile.FriendCount, profile.PostCount)
			}
		})
	}

	profile, err := env.users.GetProfile(ctx, carol.ID, alice.ID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.Friendship != model.FriendshipPendingIncoming {
		t.Errorf("friendship = %q, want %q", profile.Friendship, model.FriendshipPendingIncoming)
	}

	if _, err := env.users.GetProfile(ctx, 999, alice.ID); !errors.Is(err, model.ErrUserNotFound) {
		t.Errorf("error = %v, want %v", err, model.ErrUserNotFound)
	}
}

func TestUserService_UpdateProfile_PublishesReplacedAvatar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pub := &recordingPublisher{}
	env.users.SetPublisher(pub)

	alice, err := env.users.Register(ctx, &model.RegisterRequest{
		Email: "alice@x.com", Password: "pw123456", FirstName: "Alice", LastName: "L",
		AvatarURL: strPtr("https://cdn.test/avatars/old.jpg"), AvatarKey: strPtr("avatars/old.jpg"),
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	updated, err := env.users.UpdateProfile(ctx, alice.ID, &model.UpdateProfileRequest{
		Bio:       strPtr("hello"),
		AvatarURL: strPtr("https://cdn.test/avatars/new.jpg"),
		AvatarKey: strPtr("avatars/new.jpg"),
	})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if updated.Bio == nil || *updated.Bio != "hello" {
		t.Errorf("bio = %v, want hello", updated.Bio)
	}
	if updated.FirstName != "Alice" {
		t.Errorf("firstName = %q, unset fields must be kept", updated.FirstName)
	}

	events := pub.Events()
	if len(events) != 1 || events[0].Type != queue.EventAvatarReplaced || events[0].ObjectKey != "avatars/old.jpg" {
		t.Errorf("events = %+v, want one avatar_replaced for avatars/old.jpg", events)
	}
}

func TestUserService_UpdateProfile_ConcurrentAvatarsEachReleaseOneKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pub := &recordingPublisher{}
	env.users.SetPublisher(pub)

	alice, err := env.users.Register(ctx, &model.RegisterRequest{
		Email: "alice@x.com", Password: "pw123456", FirstName: "Alice", LastName: "L",
		AvatarURL: strPtr("https://cdn.test/avatars/old.jpg"), AvatarKey: strPtr("avatars/old.jpg"),
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	const uploads = 10
	var wg sync.WaitGroup
	for i := 0; i < uploads; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("avatars/new-%d.jpg", i)
			if _, err := env.users.UpdateProfile(ctx, alice.ID, &model.UpdateProfileRequest{
				AvatarURL: strPtr("https://cdn.test/" + key),
				AvatarKey: strPtr(key),
			}); err != nil {
				t.Errorf("UpdateProfile failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	current, err := env.users.GetByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	// Every key except the one still in use is released exactly once.
	released := map[string]int{}
	for _, e := range pub.Events() {
		released[e.ObjectKey]++
	}
	if len(pub.Events()) != uploads {
		t.Fatalf("published %d events, want %d", len(pub.Events()), uploads)
	}
	if released["avatars/old.jpg"] != 1 {
		t.Errorf("avatars/old.jpg released %d times, want 1", released["avatars/old.jpg"])
	}
	for i := 0; i < uploads; i++ {
		key := fmt.Sprintf("avatars/new-%d.jpg", i)
		want := 1
		if current.AvatarKey != nil && *current.AvatarKey == key {
			want = 0
		}
		if released[key] != want {
			t.Errorf("%s released %d times, want %d", key, released[key], want)
		}
	}
}

func TestUserService_UpdateProfile_Validation(t *testing.T) {
	svc := newMockedUserService(&mockUserRepository{})

	_, err := svc.UpdateProfile(context.Background(), 1, &model.UpdateProfileRequest{
		Bio: strPtr(strings.Repeat("x", model.MaxBioLength+1)),
	})
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("error = %v, want %v", err, model.ErrInvalidInput)
	}
}

func TestUserService_Search(t *testing.T) {
	var gotLimit int
	svc := newMockedUserService(&mockUserRepository{
		searchFn: func(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
			gotLimit = limit
			return []model.UserSummary{{ID: 1, FirstName: "Alice"}}, nil
		},
	})
	ctx := context.Background()

	users, err := svc.Search(ctx, "  ")
	if err != nil || len(users) != 0 || users == nil {
		t.Errorf("blank query = (%v, %v), want empty non-nil slice", users, err)
	}

	users, err = svc.Search(ctx, "ali")
	if err != nil || len(users) != 1 {
		t.Fatalf("Search = (%v, %v)", users, err)
	}
	if gotLimit != model.SearchLimit {
		t.Errorf("limit = %d, want %d", gotLimit, model.SearchLimit)
	}

	if _, err := svc.Search(ctx, strings.Repeat("q", model.MaxSearchLength+1)); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("error = %v, want %v", err, model.ErrInvalidInput)
	}
}
