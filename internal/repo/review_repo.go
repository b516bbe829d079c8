// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Review model.
//
// The repository follows a "thin" approach: it performs persistence and simple
// query composition, leaving business rules to the services package.
//
// Error semantics:
//   - Duplicate review (same product_id,user_id) relies on the database
//     unique constraint and is reported as the typed ErrDuplicate, never as
//     a raw driver error.
//   - When a review is not found, functions return ErrNotFound.
//   - On other DB errors (connectivity, constraints, etc.), the raw gorm
//     error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rencom/go-reviews-backend/internal/domain"
)

// ReviewFilter narrows review listings. Zero values mean "no constraint".
//
// Ratings is an inclusion set (e.g. [4 5]); Status matches exactly; DateFrom
// and DateTo are inclusive bounds on created_at.
type ReviewFilter struct {
	Ratings  []int
	Status   string
	DateFrom *time.Time
	DateTo   *time.Time
}

// apply composes the filter onto a query already scoped to a product.
func (f ReviewFilter) apply(q *gorm.DB) *gorm.DB {
	if len(f.Ratings) > 0 {
		q = q.Where("rating IN ?", f.Ratings)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.DateFrom != nil {
		q = q.Where("created_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("created_at <= ?", *f.DateTo)
	}
	return q
}

// CreateReview inserts a review row for the given product and user.
//
// The combination (product_id, user_id) must be unique, enforced by the
// database schema. On a unique violation the typed ErrDuplicate is returned
// and no row is created. Rating and comment validation is expected to be
// enforced at higher layers (handlers/services) and/or via DB constraints.
func CreateReview(ctx context.Context, db *gorm.DB, productID, userID string, rating int, comment string) (*domain.Review, error) {
	r := &domain.Review{
		ID:        uuid.NewString(),
		ProductID: productID,
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
		Status:    domain.StatusApproved,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return r, nil
}

// GetReview fetches a review by ID, or ErrNotFound.
func GetReview(ctx context.Context, db *gorm.DB, id string) (*domain.Review, error) {
	var r domain.Review
	if err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// CountReviews returns the number of reviews for productID matching the filter.
func CountReviews(ctx context.Context, db *gorm.DB, productID string, f ReviewFilter) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.Review{}).Where("product_id = ?", productID)
	err := f.apply(q).Count(&total).Error
	return total, err
}

// ListReviewsPage returns a filtered, sorted page of reviews for productID.
//
// orderBy must be a composed clause such as "created_at DESC, id DESC"; the
// service layer is responsible for restricting it to known columns. The
// secondary id ordering keeps pages deterministic when timestamps collide.
func ListReviewsPage(ctx context.Context, db *gorm.DB, productID string, f ReviewFilter, orderBy string, offset, limit int) ([]domain.Review, error) {
	var out []domain.Review
	q := db.WithContext(ctx).Where("product_id = ?", productID)
	q = f.apply(q).Order(orderBy)
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// ListAllReviews returns every review for productID regardless of status.
// Used by summary aggregation, which recomputes from the full set each time.
func ListAllReviews(ctx context.Context, db *gorm.DB, productID string) ([]domain.Review, error) {
	var out []domain.Review
	err := db.WithContext(ctx).
		Where("product_id = ?", productID).
		Find(&out).Error
	return out, err
}

// DeleteReview hard-deletes a review by id. It reports found=false when no
// row matched; absence is a normal outcome, not an error.
func DeleteReview(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Review{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateReviewStatus sets the status (and optionally the moderation note) of a
// review. If no rows are affected the review does not exist and ErrNotFound is
// returned. All other review fields are immutable.
func UpdateReviewStatus(ctx context.Context, db *gorm.DB, id, status, note string) error {
	updates := map[string]any{"status": status}
	if note != "" {
		updates["moderation_note"] = note
	}
	res := db.WithContext(ctx).
		Model(&domain.Review{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
