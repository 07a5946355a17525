package auth

import (
	"testing"

	"github.com/google/uuid"
)

const testSecret = "test-secret"

func TestGenerateAndValidateToken(t *testing.T) {
	userID := uuid.New()

	token, err := GenerateToken(testSecret, userID, "CUSTOMER")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ValidateToken(testSecret, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("user id = %s, want %s", claims.UserID, userID)
	}
	if claims.Role != "CUSTOMER" {
		t.Errorf("role = %q, want CUSTOMER", claims.Role)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(testSecret, uuid.New(), "ADMIN")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := ValidateToken("other-secret", token); err == nil {
		t.Error("token validated with the wrong secret")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	if _, err := ValidateToken(testSecret, "not.a.token"); err == nil {
		t.Error("garbage token validated")
	}
}

func TestGenerateAndValidateRefreshToken(t *testing.T) {
	userID := uuid.New()

	token, err := GenerateRefreshToken(testSecret, userID)
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	got, err := ValidateRefreshToken(testSecret, token)
	if err != nil {
		t.Fatalf("ValidateRefreshToken: %v", err)
	}
	if got != userID {
		t.Errorf("user id = %s, want %s", got, userID)
	}
}

func TestRefreshTokenNotAcceptedAsAccessToken(t *testing.T) {
	// A refresh token has no role claim, so an access-token validation must
	// not yield usable role data.
	token, err := GenerateRefreshToken(testSecret, uuid.New())
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	claims, err := ValidateToken(testSecret, token)
	if err != nil {
		// Acceptable: rejected outright.
		return
	}
	if claims.Role != "" {
		t.Errorf("refresh token produced role %q", claims.Role)
	}
}

func TestValidateRefreshTokenWrongSecret(t *testing.T) {
	token, err := GenerateRefreshToken(testSecret, uuid.New())
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	if _, err := ValidateRefreshToken("other-secret", token); err == nil {
		t.Error("refresh token validated with the wrong secret")
	}
}
