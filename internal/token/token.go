// Package token issues and verifies compact, URL-safe signed tokens that
// carry a single string payload scoped to a purpose. Tokens are stateless:
// validity is bounded only by the signature and a max age supplied at
// redemption time.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalid covers signature mismatch, purpose mismatch, malformed
	// input, and tokens signed under a different secret.
	ErrInvalid = errors.New("token: invalid token")
	// ErrExpired is returned when the token's age exceeds the max age
	// supplied at redemption.
	ErrExpired = errors.New("token: token expired")
)

// Service signs and verifies tokens with a single process-wide secret.
// The secret is read-only after construction; methods are safe for
// concurrent use.
type Service struct {
	secret []byte
}

func NewService(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

type claims struct {
	Payload string `json:"pld"`
	Purpose string `json:"pur"`
	jwt.RegisteredClaims
}

// key derives the signing key for a purpose. Baking the purpose into the
// key means a token minted for one purpose fails signature verification
// under any other, without a server-side record of issued tokens.
func (s *Service) key(purpose string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(purpose))
	return mac.Sum(nil)
}

// Issue creates a signed token embedding payload, purpose, and the current
// time. Payload and purpose must be non-empty.
func (s *Service) Issue(payload, purpose string) (string, error) {
	if payload == "" {
		return "", fmt.Errorf("token: empty payload")
	}
	if purpose == "" {
		return "", fmt.Errorf("token: empty purpose")
	}

	c := claims{
		Payload: payload,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.key(purpose))
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return tok, nil
}

// Redeem verifies a token against the given purpose and returns its payload.
// It fails with ErrExpired when more than maxAge has elapsed since issuance,
// and with ErrInvalid for any signature, purpose, or format problem.
func (s *Service) Redeem(tok, purpose string, maxAge time.Duration) (string, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(tok, &c, func(t *jwt.Token) (any, error) {
		return s.key(purpose), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return "", ErrInvalid
	}

	if c.Purpose != purpose || c.IssuedAt == nil {
		return "", ErrInvalid
	}
	if time.Since(c.IssuedAt.Time) > maxAge {
		return "", ErrExpired
	}
	return c.Payload, nil
}
