package utils

import (
	"testing"

	"chatwave/config"
	"chatwave/models"
)

func TestJWTRoundTrip(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"

	user := &models.User{TokenVersion: 3}
	user.ID = 42

	access, refresh, err := GenerateJWTToken(user)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if access == refresh {
		t.Fatal("access and refresh tokens are identical")
	}

	for _, token := range []string{access, refresh} {
		claims, err := ParseJWTToken(token)
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if claims.UserID != 42 {
			t.Fatalf("user id = %d, want 42", claims.UserID)
		}
		if claims.TokenVersion != 3 {
			t.Fatalf("token version = %d, want 3", claims.TokenVersion)
		}
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"
	user := &models.User{}
	user.ID = 1
	access, _, err := GenerateJWTToken(user)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	config.AppConfig.JWTSecret = "different-secret"
	if _, err := ParseJWTToken(access); err == nil {
		t.Fatal("token signed with old secret parsed successfully")
	}
}

func TestHashTokenStable(t *testing.T) {
	a := HashToken("some-refresh-token")
	b := HashToken("some-refresh-token")
	if a != b {
		t.Fatal("hash is not deterministic")
	}
	if a == HashToken("other-token") {
		t.Fatal("distinct tokens collided")
	}
	if len(a) != 64 {
		t.Fatalf("hash length = %d, want 64 hex chars", len(a))
	}
	if a == "some-refresh-token" {
		t.Fatal("token stored unhashed")
	}
}

func TestEmailLocalPart(t *testing.T) {
	cases := map[string]string{
		"jordan@example.com": "jordan",
		"no-at-sign":         "no-at-sign",
		"a@b@c":              "a",
	}
	for in, want := range cases {
		if got := EmailLocalPart(in); got != want {
			t.Errorf("EmailLocalPart(%q) = %q, want %q", in, got, want)
		}
	}
}
