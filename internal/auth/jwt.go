package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind discriminates access from refresh tokens. A token of one kind is
// never accepted where the other is required.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

var (
	// ErrTokenInvalid covers bad signature, malformed claims, wrong kind and
	// revoked tokens.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned when the token's expiry has passed.
	ErrTokenExpired = errors.New("token expired")
)

// Claims represents the JWT token claims
type Claims struct {
	UserID uuid.UUID `json:"sub"`
	Kind   TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// TokenService issues, verifies and rotates access/refresh token pairs.
// Both kinds share one HMAC signing key; the kind claim keeps them apart.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	revoked    *RevocationList
}

// NewTokenService creates a new token service
func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		revoked:    NewRevocationList(1 * time.Hour),
	}
}

// IssueAccessToken creates a signed access token for the user
func (s *TokenService) IssueAccessToken(userID uuid.UUID) (string, error) {
	return s.issue(userID, TokenKindAccess, s.accessTTL)
}

// IssueRefreshToken creates a signed refresh token for the user
func (s *TokenService) IssueRefreshToken(userID uuid.UUID) (string, error) {
	return s.issue(userID, TokenKindRefresh, s.refreshTTL)
}

func (s *TokenService) issue(userID uuid.UUID, kind TokenKind, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}

	return tokenString, nil
}

// Verify checks signature, expiry, kind and revocation, and returns the claims.
func (s *TokenService) Verify(tokenString string, kind TokenKind) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Kind != kind {
		return nil, ErrTokenInvalid
	}
	if claims.UserID == uuid.Nil || claims.ID == "" {
		return nil, ErrTokenInvalid
	}
	if s.revoked.Contains(claims.ID) {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// Rotate verifies a refresh token, revokes it, and issues a fresh pair for
// the same user.
func (s *TokenService) Rotate(refreshToken string) (access string, refresh string, userID uuid.UUID, err error) {
	claims, err := s.Verify(refreshToken, TokenKindRefresh)
	if err != nil {
		return "", "", uuid.Nil, err
	}

	s.revoked.Add(claims.ID, claims.ExpiresAt.Time)

	access, err = s.IssueAccessToken(claims.UserID)
	if err != nil {
		return "", "", uuid.Nil, err
	}
	refresh, err = s.IssueRefreshToken(claims.UserID)
	if err != nil {
		return "", "", uuid.Nil, err
	}
	return access, refresh, claims.UserID, nil
}

// Revoke invalidates a token ahead of its natural expiry. Tokens that do not
// verify are ignored; there is nothing left to revoke.
func (s *TokenService) Revoke(tokenString string, kind TokenKind) {
	claims, err := s.Verify(tokenString, kind)
	if err != nil {
		return
	}
	s.revoked.Add(claims.ID, claims.ExpiresAt.Time)
}
