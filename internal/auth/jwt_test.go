package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestTokenService() *TokenService {
	return NewTokenService("test-secret-at-least-32-characters", 30*time.Minute, 24*time.Hour)
}

func TestIssueAndVerify_RoundTrip(t *testing.T) {
	s := newTestTokenService()
	userID := uuid.New()

	token, err := s.IssueAccessToken(userID)
	if err != nil {
		t.Fatalf("IssueAccessToken error: %v", err)
	}

	claims, err := s.Verify(token, TokenKindAccess)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("user ID mismatch: got %s want %s", claims.UserID, userID)
	}
	if claims.Kind != TokenKindAccess {
		t.Errorf("kind mismatch: got %q", claims.Kind)
	}
	if claims.ID == "" {
		t.Error("token must carry a jti")
	}
}

func TestVerify_Expired(t *testing.T) {
	s := NewTokenService("secret", -1*time.Second, 24*time.Hour)

	token, err := s.IssueAccessToken(uuid.New())
	if err != nil {
		t.Fatalf("IssueAccessToken error: %v", err)
	}

	_, err = s.Verify(token, TokenKindAccess)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerify_KindMismatch(t *testing.T) {
	s := newTestTokenService()
	userID := uuid.New()

	access, err := s.IssueAccessToken(userID)
	if err != nil {
		t.Fatalf("IssueAccessToken error: %v", err)
	}
	refresh, err := s.IssueRefreshToken(userID)
	if err != nil {
		t.Fatalf("IssueRefreshToken error: %v", err)
	}

	if _, err := s.Verify(access, TokenKindRefresh); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("access token accepted as refresh: %v", err)
	}
	if _, err := s.Verify(refresh, TokenKindAccess); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("refresh token accepted as access: %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	s1 := NewTokenService("right-secret", 30*time.Minute, 24*time.Hour)
	s2 := NewTokenService("wrong-secret", 30*time.Minute, 24*time.Hour)

	token, err := s1.IssueAccessToken(uuid.New())
	if err != nil {
		t.Fatalf("IssueAccessToken error: %v", err)
	}

	if _, err := s2.Verify(token, TokenKindAccess); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	s := newTestTokenService()

	if _, err := s.Verify("not.a.jwt", TokenKindAccess); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
	if _, err := s.Verify("", TokenKindAccess); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for empty token, got %v", err)
	}
}

func TestRotate_InvalidatesOldRefreshToken(t *testing.T) {
	s := newTestTokenService()
	userID := uuid.New()

	oldRefresh, err := s.IssueRefreshToken(userID)
	if err != nil {
		t.Fatalf("IssueRefreshToken error: %v", err)
	}

	access, newRefresh, gotUserID, err := s.Rotate(oldRefresh)
	if err != nil {
		t.Fatalf("Rotate error: %v", err)
	}
	if gotUserID != userID {
		t.Errorf("rotated user ID mismatch: got %s want %s", gotUserID, userID)
	}
	if _, err := s.Verify(access, TokenKindAccess); err != nil {
		t.Errorf("new access token must verify: %v", err)
	}
	if _, err := s.Verify(newRefresh, TokenKindRefresh); err != nil {
		t.Errorf("new refresh token must verify: %v", err)
	}

	// The presented refresh token is revoked by rotation
	if _, err := s.Verify(oldRefresh, TokenKindRefresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("rotated refresh token must be invalid, got %v", err)
	}
	if _, _, _, err := s.Rotate(oldRefresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("rotating a rotated token must fail, got %v", err)
	}
}

func TestRotate_RejectsAccessToken(t *testing.T) {
	s := newTestTokenService()

	access, err := s.IssueAccessToken(uuid.New())
	if err != nil {
		t.Fatalf("IssueAccessToken error: %v", err)
	}

	if _, _, _, err := s.Rotate(access); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	s := newTestTokenService()

	refresh, err := s.IssueRefreshToken(uuid.New())
	if err != nil {
		t.Fatalf("IssueRefreshToken error: %v", err)
	}

	s.Revoke(refresh, TokenKindRefresh)

	if _, err := s.Verify(refresh, TokenKindRefresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("revoked token must be invalid, got %v", err)
	}

	// Revoking garbage is a no-op
	s.Revoke("not.a.jwt", TokenKindRefresh)
}
