package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"sharefun/internal/clock"
	"sharefun/internal/config"
	"sharefun/internal/model"
	"sharefun/internal/queue"
	"sharefun/internal/repository"
)

// bcrypt ignores input past 72 bytes; longer passwords are rejected instead of truncated.
const maxPasswordBytes = 72

// UserService is the credential store: registration, credential checks and profiles.
type UserService struct {
	repo       repository.UserRepository
	friendRepo repository.FriendRepository
	postRepo   repository.PostRepository
	publisher  queue.Publisher
	clock      clock.Clock
	config     *config.Config

	dummyOnce sync.Once
	dummyHash []byte
}

func NewUserService(
	repo repository.UserRepository,
	friendRepo repository.FriendRepository,
	postRepo repository.PostRepository,
	clk clock.Clock,
	cfg *config.Config,
) *UserService {
	return &UserService{
		repo:       repo,
		friendRepo: friendRepo,
		postRepo:   postRepo,
		clock:      clk,
		config:     cfg,
	}
}

// SetPublisher enables media cleanup events (optional, requires Redis).
func (s *UserService) SetPublisher(p queue.Publisher) {
	s.publisher = p
}

// Register creates a new user account. The stored email is normalized and
// only the bcrypt hash of the password is kept.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	email := model.NormalizeEmail(req.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", model.ErrInvalidInput)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, fmt.Errorf("%w: email is malformed", model.ErrInvalidInput)
	}

	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if err := validateName("firstName", firstName); err != nil {
		return nil, err
	}
	if err := validateName("lastName", lastName); err != nil {
		return nil, err
	}

	if len(req.Password) > maxPasswordBytes {
		return nil, fmt.Errorf("%w: password is too long", model.ErrInvalidInput)
	}
	if utf8.RuneCountInString(req.Password) < s.config.MinPasswordLength {
		return nil, model.ErrWeakCredential
	}

	if (req.AvatarURL == nil) != (req.AvatarKey == nil) {
		return nil, fmt.Errorf("%w: avatar url and key must both be provided or both omitted", model.ErrInvalidInput)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.clock.Now()
	user := &model.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		FirstName:    firstName,
		LastName:     lastName,
		AvatarURL:    req.AvatarURL,
		AvatarKey:    req.AvatarKey,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if user.AvatarURL == nil && s.config.DefaultAvatarURL != "" {
		url, key := s.config.DefaultAvatarURL, s.config.DefaultAvatarKey
		user.AvatarURL, user.AvatarKey = &url, &key
	}

	// Uniqueness is enforced by the store; a racing duplicate fails here.
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.WithField("user_id", user.ID).Info("[UserService] Registered user")
	return user, nil
}

// Verify checks an email/password pair. It returns ErrUserNotFound for an
// unknown email and ErrInvalidCredentials for a wrong password.
func (s *UserService) Verify(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.repo.GetByEmail(ctx, model.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			// Spend the same time as a real comparison
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("sharefun-dummy-password"), s.config.BcryptCost)
	})
	return s.dummyHash
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetProfile retrieves a user's profile with the viewer's friendship status.
func (s *UserService) GetProfile(ctx context.Context, userID, viewerID int64) (*model.ProfileResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &model.ProfileResponse{User: user, Friendship: model.FriendshipSelf}
	if viewerID != userID {
		rel, err := s.friendRepo.Get(ctx, viewerID, userID)
		switch {
		case errors.Is(err, model.ErrNoSuchRelation):
			profile.Friendship = model.FriendshipNone
		case err != nil:
			return nil, err
		default:
			profile.Friendship = rel.ViewFrom(viewerID)
		}
	}

	friendIDs, err := s.friendRepo.GetFriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile.FriendCount = len(friendIDs)

	if profile.PostCount, err = s.postRepo.CountByAuthor(ctx, userID); err != nil {
		return nil, err
	}

	return profile, nil
}

// UpdateProfile applies a partial update. A replaced avatar is queued for deletion.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *model.UpdateProfileRequest) (*model.User, error) {
	if req.FirstName != nil {
		trimmed := strings.TrimSpace(*req.FirstName)
		if err := validateName("firstName", trimmed); err != nil {
			return nil, err
		}
		req.FirstName = &trimmed
	}
	if req.LastName != nil {
		trimmed := strings.TrimSpace(*req.LastName)
		if err := validateName("lastName", trimmed); err != nil {
			return nil, err
		}
		req.LastName = &trimmed
	}
	if req.Bio != nil && utf8.RuneCountInString(*req.Bio) > model.MaxBioLength {
		return nil, fmt.Errorf("%w: bio is too long", model.ErrInvalidInput)
	}

	user, previousKey, err := s.repo.UpdateProfile(ctx, userID, req, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if req.AvatarKey != nil && previousKey != nil && *previousKey != *req.AvatarKey {
		s.publish(ctx, queue.NewAvatarReplacedEvent(userID, *previousKey, s.clock.Now()))
	}
	return user, nil
}

// Search finds users by name.
func (s *UserService) Search(ctx context.Context, query string) ([]model.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.UserSummary{}, nil
	}
	if utf8.RuneCountInString(query) > model.MaxSearchLength {
		return nil, fmt.Errorf("%w: query is too long", model.ErrInvalidInput)
	}
	return s.repo.Search(ctx, query, model.SearchLimit)
}

// publish is best effort: the write it describes has already committed.
func (s *UserService) publish(ctx context.Context, event queue.MediaEvent) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.Publish(ctx, queue.StreamMedia, event); err != nil {
		log.WithError(err).WithField("type", event.Type).Warn("[UserService] Failed to publish event")
	}
}

func validateName(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", model.ErrInvalidInput, field)
	}
	if utf8.RuneCountInString(value) > model.MaxNameLength {
		return fmt.Errorf("%w: %s is too long", model.ErrInvalidInput, field)
	}
	return nil
}
