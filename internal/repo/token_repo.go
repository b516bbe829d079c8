// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the APIToken
// model. The opaque token value is the sole lookup key; there is no hashing
// and tokens never expire.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rencom/go-reviews-backend/internal/domain"
)

// CreateToken persists a new API token row with the given opaque value and
// optional display name. The caller is responsible for generating the value.
func CreateToken(ctx context.Context, db *gorm.DB, token, name string) (*domain.APIToken, error) {
	t := &domain.APIToken{
		ID:        uuid.NewString(),
		Token:     token,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// GetToken looks up a token row by its opaque value, or ErrNotFound.
func GetToken(ctx context.Context, db *gorm.DB, token string) (*domain.APIToken, error) {
	var t domain.APIToken
	err := db.WithContext(ctx).
		Where("token = ?", token).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteToken removes a token row by its opaque value. It reports found=false
// when no row matched.
func DeleteToken(ctx context.Context, db *gorm.DB, token string) (bool, error) {
	res := db.WithContext(ctx).Where("token = ?", token).Delete(&domain.APIToken{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
