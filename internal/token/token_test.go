package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// issueAt signs a token with the given issuance time, bypassing Issue so
// tests can simulate elapsed time without sleeping.
func issueAt(t *testing.T, s *Service, payload, purpose string, at time.Time) string {
	t.Helper()
	c := claims{
		Payload: payload,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(at),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.key(purpose))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func TestIssueRedeemRoundTrip(t *testing.T) {
	s := NewService("test-secret")

	tok, err := s.Issue("a@example.com", "email-confirm")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if strings.ContainsAny(tok, " +/") {
		t.Errorf("token is not URL-safe: %q", tok)
	}

	payload, err := s.Redeem(tok, "email-confirm", 1800*time.Second)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if payload != "a@example.com" {
		t.Errorf("payload = %q, want %q", payload, "a@example.com")
	}
}

func TestRedeemPurposeMismatch(t *testing.T) {
	s := NewService("test-secret")

	tok, err := s.Issue("a@example.com", "email-confirm")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := s.Redeem(tok, "password-reset", 1800*time.Second); err != ErrInvalid {
		t.Errorf("redeem with wrong purpose: err = %v, want ErrInvalid", err)
	}
}

func TestRedeemExpired(t *testing.T) {
	s := NewService("test-secret")

	tok := issueAt(t, s, "a@example.com", "email-confirm", time.Now().Add(-1801*time.Second))

	if _, err := s.Redeem(tok, "email-confirm", 1800*time.Second); err != ErrExpired {
		t.Errorf("redeem expired token: err = %v, want ErrExpired", err)
	}
}

func TestRedeemJustInsideMaxAge(t *testing.T) {
	s := NewService("test-secret")

	tok := issueAt(t, s, "a@example.com", "email-confirm", time.Now().Add(-1700*time.Second))

	payload, err := s.Redeem(tok, "email-confirm", 1800*time.Second)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if payload != "a@example.com" {
		t.Errorf("payload = %q, want %q", payload, "a@example.com")
	}
}

func TestRedeemCorruptedToken(t *testing.T) {
	s := NewService("test-secret")

	tok, err := s.Issue("a@example.com", "email-confirm")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	cases := []string{
		"",
		"garbage",
		tok[:len(tok)/2],
		tok + "x",
		strings.Replace(tok, ".", "", 1),
	}
	for _, c := range cases {
		if _, err := s.Redeem(c, "email-confirm", 1800*time.Second); err != ErrInvalid {
			t.Errorf("redeem(%q): err = %v, want ErrInvalid", c, err)
		}
	}
}

func TestRedeemDifferentSecret(t *testing.T) {
	s1 := NewService("secret-one")
	s2 := NewService("secret-two")

	tok, err := s1.Issue("a@example.com", "email-confirm")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := s2.Redeem(tok, "email-confirm", 1800*time.Second); err != ErrInvalid {
		t.Errorf("redeem under rotated secret: err = %v, want ErrInvalid", err)
	}
}

func TestIssueEmptyPayload(t *testing.T) {
	s := NewService("test-secret")

	if _, err := s.Issue("", "email-confirm"); err == nil {
		t.Error("expected error for empty payload")
	}
	if _, err := s.Issue("a@example.com", ""); err == nil {
		t.Error("expected error for empty purpose")
	}
}
