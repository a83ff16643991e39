package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/chatterbox/server/internal/model"
	"github.com/chatterbox/server/internal/repo"
)

// Cookie names for the token carriers. Both are HttpOnly, Secure and
// SameSite=Lax; the tokens never reach script-readable storage.
const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

// ErrInvalidCredentials is returned for any login failure. The caller must
// not learn whether the email or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

// AuthService orchestrates registration, login and the token lifecycle
type AuthService struct {
	tokens   *TokenService
	userRepo repo.UserRepo
}

// NewAuthService creates a new auth service
func NewAuthService(tokens *TokenService, userRepo repo.UserRepo) *AuthService {
	return &AuthService{
		tokens:   tokens,
		userRepo: userRepo,
	}
}

// Register creates a new user with a bcrypt password verifier.
// Duplicate email or handle surfaces as repo.ErrEmailTaken / repo.ErrHandleTaken.
func (s *AuthService) Register(ctx context.Context, email, handle, password string) (model.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.userRepo.Create(ctx, email, handle, hash)
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

// Login verifies credentials and issues a token pair. Every failure mode
// (unknown email, wrong password, deactivated account) collapses into
// ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (model.User, string, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return model.User{}, "", "", ErrInvalidCredentials
	}
	if !user.IsActive || !CheckPassword(password, user.PasswordHash) {
		return model.User{}, "", "", ErrInvalidCredentials
	}

	access, err := s.tokens.IssueAccessToken(user.ID)
	if err != nil {
		return model.User{}, "", "", fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return model.User{}, "", "", fmt.Errorf("issue refresh token: %w", err)
	}

	// Best effort: record the login time
	_ = s.userRepo.TouchUpdatedAt(ctx, user.ID)

	return user, access, refresh, nil
}

// Refresh rotates a refresh token into a fresh pair. The presented token is
// revoked; the user must still exist and be active.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	access, refresh, userID, err := s.tokens.Rotate(refreshToken)
	if err != nil {
		return "", "", err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || !user.IsActive {
		return "", "", ErrTokenInvalid
	}

	return access, refresh, nil
}

// Logout revokes the refresh token if one is presented. Access tokens stay
// valid until their short natural expiry.
func (s *AuthService) Logout(refreshToken string) {
	if refreshToken != "" {
		s.tokens.Revoke(refreshToken, TokenKindRefresh)
	}
}

// Authenticate resolves an access token to its user. Any failure (bad or
// expired token, unknown or deactivated user) is reported as ErrTokenInvalid
// so callers cannot probe which accounts exist.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (model.User, error) {
	claims, err := s.tokens.Verify(accessToken, TokenKindAccess)
	if err != nil {
		return model.User{}, ErrTokenInvalid
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return model.User{}, ErrTokenInvalid
	}
	return user, nil
}
