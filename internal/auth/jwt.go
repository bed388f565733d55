// Package auth holds the authentication primitives: session tokens,
// password hashing, GitHub OAuth and the HTTP middleware that reads the
// session cookie.
//
// SESSION FLOW:
//  1. POST /api/auth/login (or signup, or the GitHub callback) verifies
//     the user and issues a signed JWT in the HttpOnly "token" cookie.
//  2. Every later request carries the cookie; the middleware validates it
//     and puts the user id in the request context.
//  3. Logout expires the cookie. The token itself stays valid until exp,
//     which is why the TTL is kept short by default.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "stash"

	// DefaultTokenTTL is used when the configured TTL is zero.
	DefaultTokenTTL = 24 * time.Hour
)

// ErrInvalidToken is returned for tokens that fail any check.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenService signs and verifies HS256 session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService builds a TokenService. The secret must be at least 16
// bytes; generate one with `openssl rand -hex 32`.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL is how long issued tokens live. The session cookie uses the same value.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Generate issues a token for userID with the configured TTL.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration issues a token with a custom lifetime. Tests use a
// negative duration to get an already-expired token.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		Issuer:    issuer,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies signature, algorithm, issuer and expiry, and returns
// the user id from the subject claim.
//
// jwt.WithValidMethods pins HS256 so a token claiming "alg": "none" (or an
// asymmetric algorithm keyed with our secret) is rejected.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: expired", ErrInvalidToken)
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
