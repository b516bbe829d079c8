// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/rencom/go-reviews-backend/internal/domain"
)

// GetUser fetches a user by id, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindOrCreateUser returns the user with the given id, creating the row when
// absent. apiTokenID, when non-empty, records which API token first introduced
// the user (provenance only); it is never updated for an existing user.
//
// Like FindOrCreateProduct, a lost insert race against the primary key is
// resolved by re-reading the winner's row.
func FindOrCreateUser(ctx context.Context, db *gorm.DB, id, apiTokenID string) (*domain.User, error) {
	if u, err := GetUser(ctx, db, id); err == nil {
		return u, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	u := &domain.User{
		ID:        id,
		CreatedAt: time.Now().UTC(),
	}
	if apiTokenID != "" {
		u.APITokenID = &apiTokenID
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return GetUser(ctx, db, id)
		}
		return nil, err
	}
	return u, nil
}
