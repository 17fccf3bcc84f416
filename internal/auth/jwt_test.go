package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pasticeri/api/internal/auth"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"
	userID := uuid.New()
	email := "anna@example.com"
	role := "USER"

	token, err := auth.GenerateToken(secret, userID, email, role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if claims.UserID != userID {
		t.Errorf("user ID: got %v, want %v", claims.UserID, userID)
	}
	if claims.Email != email {
		t.Errorf("email: got %v, want %v", claims.Email, email)
	}
	if claims.Role != role {
		t.Errorf("role: got %v, want %v", claims.Role, role)
	}
}

func TestValidateTokenWithWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("secret-a", uuid.New(), "a@example.com", "USER")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	_, err = auth.ValidateToken("secret-b", token)
	if err == nil {
		t.Fatal("expected error validating with wrong secret")
	}
}

func TestValidateTokenWithInvalidString(t *testing.T) {
	_, err := auth.ValidateToken("secret", "not-a-jwt")
	if err == nil {
		t.Fatal("expected error validating invalid token string")
	}
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	userID := uuid.New()
	refresh, err := auth.GenerateRefreshToken("secret", userID)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	if _, err := auth.ValidateToken("secret", refresh); err == nil {
		t.Fatal("refresh token must not validate as an access token")
	}

	got, err := auth.ValidateRefreshToken("secret", refresh)
	if err != nil {
		t.Fatalf("validate refresh token: %v", err)
	}
	if got != userID {
		t.Errorf("user ID: got %v, want %v", got, userID)
	}
}

func TestIssuerExpiredAccessToken(t *testing.T) {
	issuer := auth.NewIssuer("secret", -time.Minute, 0)
	// A negative TTL falls back to the default, so force expiry directly.
	issuer.AccessTTL = -time.Minute

	token, err := issuer.AccessToken(uuid.New(), "a@example.com", "ADMIN")
	if err != nil {
		t.Fatalf("access token: %v", err)
	}
	if _, err := auth.ValidateToken("secret", token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
	if issuer.RefreshTTL != auth.DefaultRefreshTokenTTL {
		t.Errorf("refresh ttl: got %v, want default", issuer.RefreshTTL)
	}
}

func TestNewResetToken(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	token, expires := auth.NewResetToken(now)
	if _, err := uuid.Parse(token); err != nil {
		t.Errorf("token is not a uuid: %q", token)
	}
	if !expires.Equal(now.Add(time.Hour)) {
		t.Errorf("expires: got %v", expires)
	}
}
