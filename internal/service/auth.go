package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"sharefun/internal/clock"
	"sharefun/internal/config"
	"sharefun/internal/model"
	"sharefun/internal/repository"
)

// CredentialVerifier checks an email/password pair.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (*model.User, error)
}

// sessionClaims binds a token to its server-side session through the jti.
type sessionClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// AuthService issues and validates session tokens. A token is accepted only
// while its signature is valid, it has not expired and its session is still
// registered, so logout takes effect immediately.
type AuthService struct {
	users    CredentialVerifier
	sessions repository.SessionRepository
	clock    clock.Clock
	secret   []byte
	ttl      time.Duration
}

func NewAuthService(users CredentialVerifier, sessions repository.SessionRepository, clk clock.Clock, cfg *config.Config) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		clock:    clk,
		secret:   []byte(cfg.JWTSecret),
		ttl:      cfg.SessionTTL,
	}
}

// Login verifies credentials and opens a session. Unknown email and wrong
// password both surface as ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.users.Verify(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) || errors.Is(err, model.ErrInvalidCredentials) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to verify credentials: %w", err)
	}

	// JWT exp has second precision; keep the session expiry identical to it.
	now := s.clock.Now()
	session := &model.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl).Truncate(time.Second),
	}

	token, err := s.signToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	log.WithField("user_id", user.ID).Info("[AuthService] Session opened")
	return &model.LoginResponse{User: user, Token: token, ExpiresAt: session.ExpiresAt}, nil
}

// Authenticate resolves a token to its user ID.
func (s *AuthService) Authenticate(ctx context.Context, token string) (int64, error) {
	claims, err := s.parseToken(token, true)
	if err != nil {
		return 0, err
	}

	session, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			return 0, model.ErrInvalidToken
		}
		return 0, fmt.Errorf("failed to load session: %w", err)
	}
	if session.UserID != claims.UserID {
		return 0, model.ErrInvalidToken
	}
	if session.IsExpired(s.clock.Now()) {
		return 0, model.ErrSessionExpired
	}

	return session.UserID, nil
}

// Logout revokes the token's session. Revoking an unknown or already revoked
// session succeeds; a token that does not parse is ErrInvalidToken.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.parseToken(token, false)
	if err != nil {
		return err
	}

	if err := s.sessions.Delete(ctx, claims.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// LogoutAll revokes every session of the user.
func (s *AuthService) LogoutAll(ctx context.Context, userID int64) error {
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}

func (s *AuthService) signToken(session *model.Session) (string, error) {
	claims := sessionClaims{
		UserID: session.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// parseToken checks the signature. With checkExpiry unset an expired token
// still parses, which lets logout revoke it.
func (s *AuthService) parseToken(tokenString string, checkExpiry bool) (*sessionClaims, error) {
	if tokenString == "" {
		return nil, model.ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	}
	if !checkExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, model.ErrSessionExpired
		}
		return nil, model.ErrInvalidToken
	}
	if claims.ID == "" || claims.UserID == 0 {
		return nil, model.ErrInvalidToken
	}
	return claims, nil
}
