// Package services – TokenService
//
// This file implements the TokenService, which manages the lifecycle of the
// opaque bearer tokens protecting the review API: creation (the only
// unauthenticated write in the system), validation, and revocation. A token is
// valid iff a row with that exact value exists; there is no hashing, expiry,
// or scoping.
package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/rencom/go-reviews-backend/internal/domain"
	"github.com/rencom/go-reviews-backend/internal/repo"
)

// tokenEntropyBytes is the number of CSPRNG bytes backing each token value.
const tokenEntropyBytes = 32

// TokenService provides create/validate/revoke operations for API tokens.
type TokenService struct {
	// DB is the database handle used for all token operations.
	DB *gorm.DB
}

// Create generates a new cryptographically random, URL-safe token value,
// persists it with the optional display name, and returns the stored row. The
// full token value is returned exactly once, at creation; persistence
// failures are reported as-is and never retried.
func (s *TokenService) Create(ctx context.Context, name string) (*domain.APIToken, error) {
	value, err := generateTokenValue()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return repo.CreateToken(ctx, s.DB, value, strings.TrimSpace(name))
}

// Validate performs the exact-match lookup behind the auth gate. It returns
// the token row when the value exists and ErrTokenNotFound otherwise. The
// check is read-only.
func (s *TokenService) Validate(ctx context.Context, value string) (*domain.APIToken, error) {
	if value == "" {
		return nil, ErrTokenNotFound
	}
	t, err := repo.GetToken(ctx, s.DB, value)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return t, nil
}

// Revoke deletes the token with the given value. Revoking an unknown value
// yields ErrTokenNotFound.
func (s *TokenService) Revoke(ctx context.Context, value string) error {
	found, err := repo.DeleteToken(ctx, s.DB, value)
	if err != nil {
		return err
	}
	if !found {
		return ErrTokenNotFound
	}
	return nil
}

// generateTokenValue produces a URL-safe base64 encoding of 32 random bytes
// (43 characters, no padding).
func generateTokenValue() (string, error) {
	buf := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
