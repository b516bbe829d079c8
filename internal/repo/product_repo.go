// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Product
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/rencom/go-reviews-backend/internal/domain"
)

// GetProduct fetches a product by its external id, or ErrNotFound.
func GetProduct(ctx context.Context, db *gorm.DB, productID string) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).
		Where("product_id = ?", productID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindOrCreateProduct returns the product with the given external id, creating
// it with a placeholder name (the id itself) when absent.
//
// Two concurrent callers may both attempt the insert; the unique primary key
// resolves the race and the loser re-reads the winner's row. A lost race is
// deliberately not an error.
func FindOrCreateProduct(ctx context.Context, db *gorm.DB, productID string) (*domain.Product, error) {
	if p, err := GetProduct(ctx, db, productID); err == nil {
		return p, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	p := &domain.Product{
		ProductID: productID,
		Name:      productID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return GetProduct(ctx, db, productID)
		}
		return nil, err
	}
	return p, nil
}
