// Package auth protects the sample handler server with a single shared
// bearer token, matching the token the invoker sends per run.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidToken = errors.New("invalid token")

// Guard validates requests against a shared secret. A zero-value Guard
// (no secret configured) allows everything.
type Guard struct {
	hash []byte
}

// NewGuard creates a guard for the given secret. An empty secret
// disables authentication.
func NewGuard(secret string) (*Guard, error) {
	if secret == "" {
		return &Guard{}, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash secret: %w", err)
	}
	return &Guard{hash: hash}, nil
}

// Enabled reports whether a secret is configured
func (g *Guard) Enabled() bool {
	return len(g.hash) > 0
}

// Validate checks a presented token against the configured secret
func (g *Guard) Validate(token string) error {
	if !g.Enabled() {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(token)); err != nil {
		return ErrInvalidToken
	}
	return nil
}

// Middleware rejects requests lacking a valid Authorization bearer token.
// With no secret configured it passes everything through unchanged.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	if !g.Enabled() {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || g.Validate(token) != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GenerateToken produces a random secret suitable for --auth-token
func GenerateToken() (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(tokenBytes), nil
}
