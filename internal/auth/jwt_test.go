package auth_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/suju-order/api/internal/auth"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"
	userID := uuid.New()
	roles := []string{"SALES", "PRODUCTION"}

	token, err := auth.GenerateToken(secret, userID, "sales1", roles)
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
	if claims.Username != "sales1" {
		t.Errorf("username: got %v, want sales1", claims.Username)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "SALES" {
		t.Errorf("roles: got %v, want %v", claims.Roles, roles)
	}
}

func TestValidateTokenWithWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("secret-a", uuid.New(), "sales1", []string{"SALES"})
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

func TestHasRole(t *testing.T) {
	claims := &auth.Claims{Roles: []string{"SALES"}}
	if !claims.HasRole("SALES") {
		t.Error("expected SALES role to match")
	}
	if claims.HasRole("PRODUCTION") {
		t.Error("PRODUCTION should not match")
	}

	admin := &auth.Claims{Roles: []string{"ADMIN"}}
	if !admin.HasRole("PRODUCTION") {
		t.Error("ADMIN should pass any role check")
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	secret := "test-secret"
	userID := uuid.New()

	token, err := auth.GenerateRefreshToken(secret, userID)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	got, err := auth.ValidateRefreshToken(secret, token)
	if err != nil {
		t.Fatalf("validate refresh token: %v", err)
	}
	if got != userID {
		t.Errorf("user ID: got %v, want %v", got, userID)
	}
}

func TestAccessTokenRejectedAsRefreshToken(t *testing.T) {
	secret := "test-secret"
	token, err := auth.GenerateToken(secret, uuid.New(), "sales1", []string{"SALES"})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := auth.ValidateRefreshToken(secret, token); err == nil {
		t.Fatal("access token should not validate as refresh token")
	}
}
