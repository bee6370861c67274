package utils

import (
	"testing"

	"sevasetu/config"
)

func init() {
	config.AppConfig.JWTSecret = "test-secret"
}

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken(42, "caregiver", "sess-1")
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.IdentityID != 42 {
		t.Errorf("identity_id = %d, want 42", claims.IdentityID)
	}
	if claims.Role != "caregiver" {
		t.Errorf("role = %q, want caregiver", claims.Role)
	}
	if claims.SessionID != "sess-1" {
		t.Errorf("session_id = %q, want sess-1", claims.SessionID)
	}
	if claims.TokenType != "access" {
		t.Errorf("token_type = %q, want access", claims.TokenType)
	}
}

func TestRefreshTokenType(t *testing.T) {
	token, err := GenerateRefreshToken(7, "civilian", "sess-2")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.TokenType != "refresh" {
		t.Errorf("token_type = %q, want refresh", claims.TokenType)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	if _, err := ValidateToken("not.a.token"); err == nil {
		t.Fatal("garbage token validated")
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken(1, "civilian", "sess-3")
	if err != nil {
		t.Fatal(err)
	}

	config.AppConfig.JWTSecret = "different-secret"
	defer func() { config.AppConfig.JWTSecret = "test-secret" }()

	if _, err := ValidateToken(token); err == nil {
		t.Fatal("token signed with another secret validated")
	}
}

func TestSessionRegistry(t *testing.T) {
	r := NewSessionRegistry()
	id := r.Create(9, "caregiver")

	if !r.Valid(id, "caregiver") {
		t.Fatal("fresh session invalid")
	}
	if r.Valid(id, "civilian") {
		t.Fatal("session valid for the wrong role")
	}
	if r.Valid("unknown", "caregiver") {
		t.Fatal("unknown session id valid")
	}

	if !r.Revoke(id) {
		t.Fatal("revoke of existing session failed")
	}
	if r.Valid(id, "caregiver") {
		t.Fatal("revoked session still valid")
	}
	if r.Revoke("unknown") {
		t.Fatal("revoke of unknown session reported success")
	}
}
