package jwt

import (
	"testing"
	"time"
)

func TestServiceTokenRoundTrip(t *testing.T) {
	token, err := GenerateServiceToken("teams", "accounts", "secret", time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := Parse(token, "secret", "accounts")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Service != "teams" || claims.Issuer != "teamup" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseRejectsWrongSecretAndAudience(t *testing.T) {
	token, err := GenerateServiceToken("teams", "accounts", "secret", time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := Parse(token, "other", "accounts"); err == nil {
		t.Fatalf("expected signature failure")
	}
	if _, err := Parse(token, "secret", "products"); err == nil {
		t.Fatalf("expected audience failure")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	token, err := GenerateServiceToken("teams", "accounts", "secret", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := Parse(token, "secret", "accounts"); err == nil {
		t.Fatalf("expected expiry failure")
	}
}

func TestGenerateRequiresSecret(t *testing.T) {
	if _, err := GenerateServiceToken("teams", "accounts", "", time.Minute); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
