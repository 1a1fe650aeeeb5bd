// Package auth implements API-token authentication for the planning API.
// Tokens are issued once in plaintext, stored as bcrypt hashes, and checked
// as HTTP basic auth (label as username, token as password).
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/plannerhq/schedassist/internal/store"
)

// ErrInvalidCredentials covers unknown labels, revoked tokens, and hash
// mismatches alike, so callers cannot distinguish them.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service validates and issues API tokens.
type Service struct {
	tokens store.APITokenRepository
}

func NewService(tokens store.APITokenRepository) *Service {
	return &Service{tokens: tokens}
}

// IssueToken mints a token under the given label and returns the plaintext
// exactly once; only the bcrypt hash is stored.
func (s *Service) IssueToken(ctx context.Context, label string) (string, *store.APIToken, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}
	plaintext := hex.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash token: %w", err)
	}
	token, err := s.tokens.Create(ctx, store.APIToken{Label: label, TokenHash: string(hash)})
	if err != nil {
		return "", nil, err
	}
	return plaintext, token, nil
}

// Validate checks a label/token pair against the active tokens and touches
// last_used_at on success.
func (s *Service) Validate(ctx context.Context, label, plaintext string) (*store.APIToken, error) {
	if label == "" || plaintext == "" {
		return nil, ErrInvalidCredentials
	}
	active, err := s.tokens.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	for i := range active {
		token := &active[i]
		if token.Label != label {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(token.TokenHash), []byte(plaintext)) == nil {
			if err := s.tokens.TouchLastUsed(ctx, token.ID); err != nil {
				log.Printf("[WARN] touch token %d: %v", token.ID, err)
			}
			return token, nil
		}
	}
	return nil, ErrInvalidCredentials
}

// RequireAPIAuth enforces basic auth on the planning API.
func (s *Service) RequireAPIAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		label, token, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="schedassist API"`)
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		validated, err := s.Validate(r.Context(), label, token)
		if err != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithToken(r.Context(), validated)))
	})
}
