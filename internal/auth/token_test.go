package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

func TestIssueAndParseToken(t *testing.T) {
	tm := NewTokenManager("test-secret")
	token, err := tm.IssueToken("user-1", "jane@example.com", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("subject: %q", claims.Subject)
	}
	if claims.Email != "jane@example.com" {
		t.Fatalf("email: %q", claims.Email)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a").IssueToken("user-1", "jane@example.com", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewTokenManager("secret-b").ParseToken(token); err == nil {
		t.Fatal("expected signature validation failure")
	}
}

func TestParseTokenExpired(t *testing.T) {
	tm := NewTokenManager("test-secret")
	token, err := tm.IssueToken("user-1", "jane@example.com", -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := tm.ParseToken(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseTokenRejectsMissingSubject(t *testing.T) {
	tm := NewTokenManager("test-secret")
	claims := &Claims{
		Email: "jane@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := tm.ParseToken(token); err == nil {
		t.Fatal("expected token without subject to be rejected")
	}
}

func TestParseTokenRejectsUnexpectedAlgorithm(t *testing.T) {
	tm := NewTokenManager("test-secret")
	claims := &Claims{
		Email: "jane@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := tm.ParseToken(token); err == nil {
		t.Fatal("expected non-HS256 token to be rejected")
	}
}

func TestParseTokenGarbage(t *testing.T) {
	if _, err := NewTokenManager("test-secret").ParseToken("not.a.token"); err == nil {
		t.Fatal("expected parse failure")
	}
}
