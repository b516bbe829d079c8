// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// IdempotencyRecord model used to implement safe-retry semantics for review
// submission.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rencom/go-reviews-backend/internal/domain"
)

// GetIdempotency returns a non-expired record for (apiTokenID, key) or
// ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, apiTokenID, key string, now time.Time) (*domain.IdempotencyRecord, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.IdempotencyRecord
	err := db.WithContext(ctx).
		Where("api_token_id = ? AND key = ? AND expires_at > ?", apiTokenID, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, err
}

// CreateIdempotency inserts a record and returns ErrDuplicate on unique
// violation.
func CreateIdempotency(ctx context.Context, db *gorm.DB, apiTokenID, key, reviewID string, status int, ttl time.Duration) (*domain.IdempotencyRecord, error) {
	now := time.Now().UTC()
	rec := &domain.IdempotencyRecord{
		ID:         uuid.NewString(),
		APITokenID: apiTokenID,
		Key:        key,
		ReviewID:   reviewID,
		Status:     status,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}
