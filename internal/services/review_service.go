// Package services – ReviewService
//
// This file implements the ReviewService, which governs the lifecycle of
// product reviews: validated one-per-(product,user) submission, paginated and
// filtered listings, on-demand rating summaries, moderation status updates,
// and hard deletion. Service-level errors (e.g. ErrInvalidRating,
// ErrDuplicateReview, ErrReviewNotFound) are returned for predictable cases so
// handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/rencom/go-reviews-backend/internal/domain"
	"github.com/rencom/go-reviews-backend/internal/repo"
)

// MaxCommentRunes caps review comments by rune length.
const MaxCommentRunes = 2000

// ListParams carries the listing options for ReviewService.ListPage.
// Zero-valued fields fall back to defaults (page 1, page size 50,
// created_at descending, no filters).
type ListParams struct {
	Page     int
	PageSize int

	Ratings  []int
	Status   string
	DateFrom *time.Time
	DateTo   *time.Time

	SortBy    string // "created_at" (default) or "rating"
	SortOrder string // "asc" or "desc" (default)
}

// ReviewPage is a page of reviews plus pagination metadata.
//
// TotalPages is ceil(Total/PageSize) with a minimum of 1, so an empty result
// still reports one (empty) page. Pages past the last yield an empty Reviews
// slice, not an error.
type ReviewPage struct {
	Reviews    []domain.Review `json:"reviews"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
	HasNext    bool            `json:"has_next"`
	HasPrev    bool            `json:"has_prev"`
}

// ReviewSummary is the derived rating aggregate for a product. It is never
// persisted: every request recomputes it from the full review set, so the
// value is always consistent with the current store state.
type ReviewSummary struct {
	ProductID          string         `json:"product_id"`
	AverageRating      float64        `json:"average_rating"`
	TotalReviews       int64          `json:"total_reviews"`
	RatingDistribution map[string]int `json:"rating_distribution"`
	LastUpdated        time.Time      `json:"last_updated"`
}

// ReviewService implements the use-cases around product reviews. It validates
// input, coordinates the lazy product/user registry, and persists reviews
// using the provided GORM handle. The handle is injected at construction; the
// service keeps no other state and is safe for concurrent use.
type ReviewService struct {
	// DB is the database handle used for all review operations.
	DB *gorm.DB
}

// Submit records a review of productID by userID.
//
// Semantics and validation:
//   - productID and userID must be non-empty; otherwise ErrInvalidProductID /
//     ErrInvalidUserID.
//   - rating must be within [1,5]; otherwise ErrInvalidRating.
//   - comment is optional, trimmed, NFC-normalized, and capped at
//     MaxCommentRunes runes; otherwise ErrCommentTooLong.
//   - The product and user rows are created lazily when absent (the product
//     gets its external id as a placeholder name). apiTokenID, when known,
//     is recorded as provenance on a newly created user.
//   - A user may review a product at most once; a second submission yields
//     ErrDuplicateReview and persists nothing new.
//
// Concurrency:
//   - The registry upserts tolerate insert races; the review insert itself is
//     serialized by the store's unique constraint, not by application locking.
//
// All validation happens before any store access.
func (s *ReviewService) Submit(ctx context.Context, productID, userID string, rating int, comment, apiTokenID string) (*domain.Review, error) {
	productID = strings.TrimSpace(productID)
	userID = strings.TrimSpace(userID)
	if productID == "" {
		return nil, ErrInvalidProductID
	}
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	comment = norm.NFC.String(strings.TrimSpace(comment))
	if utf8.RuneCountInString(comment) > MaxCommentRunes {
		return nil, ErrCommentTooLong
	}

	var created *domain.Review
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.FindOrCreateProduct(ctx, tx, productID); err != nil {
			return err
		}
		if _, err := repo.FindOrCreateUser(ctx, tx, userID, apiTokenID); err != nil {
			return err
		}
		r, err := repo.CreateReview(ctx, tx, productID, userID, rating, comment)
		if err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return ErrDuplicateReview
			}
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ListPage returns a filtered, sorted page of reviews for productID.
//
// An unknown product is not an error: the result is an empty page with
// Total=0. Pages past the last return an empty slice. Invalid sort fields
// silently fall back to created_at; invalid sort orders fall back to
// descending.
func (s *ReviewService) ListPage(ctx context.Context, productID string, p ListParams) (*ReviewPage, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 50
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}

	page := &ReviewPage{
		Reviews:    []domain.Review{},
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: 1,
		HasPrev:    p.Page > 1,
	}

	// Listing is not an existence check: an unknown product yields an
	// empty page rather than a 404.
	if _, err := repo.GetProduct(ctx, s.DB, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return page, nil
		}
		return nil, err
	}

	filter := repo.ReviewFilter{
		Ratings:  p.Ratings,
		Status:   p.Status,
		DateFrom: p.DateFrom,
		DateTo:   p.DateTo,
	}

	total, err := repo.CountReviews(ctx, s.DB, productID, filter)
	if err != nil {
		return nil, err
	}
	page.Total = total
	page.TotalPages = totalPages(total, p.PageSize)
	page.HasNext = p.Page < page.TotalPages
	if total == 0 {
		return page, nil
	}

	offset := (p.Page - 1) * p.PageSize
	items, err := repo.ListReviewsPage(ctx, s.DB, productID, filter, orderClause(p.SortBy, p.SortOrder), offset, p.PageSize)
	if err != nil {
		return nil, err
	}
	page.Reviews = items
	return page, nil
}

// Summary recomputes the rating aggregate for productID from the full review
// set, counting every status. An unknown product or one without reviews yields
// a zero-valued sentinel summary (average 0.0, zero-filled distribution)
// rather than an error.
func (s *ReviewService) Summary(ctx context.Context, productID string) (*ReviewSummary, error) {
	summary := &ReviewSummary{
		ProductID:          productID,
		RatingDistribution: zeroDistribution(),
		LastUpdated:        time.Now().UTC(),
	}

	if _, err := repo.GetProduct(ctx, s.DB, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return summary, nil
		}
		return nil, err
	}

	reviews, err := repo.ListAllReviews(ctx, s.DB, productID)
	if err != nil {
		return nil, err
	}
	if len(reviews) == 0 {
		return summary, nil
	}

	sum := 0
	for _, r := range reviews {
		sum += r.Rating
		summary.RatingDistribution[strconv.Itoa(r.Rating)]++
	}
	summary.TotalReviews = int64(len(reviews))
	summary.AverageRating = round2(float64(sum) / float64(len(reviews)))
	return summary, nil
}

// Delete hard-deletes a review by id. A missing review is reported as
// ErrReviewNotFound, which callers treat as a normal outcome.
func (s *ReviewService) Delete(ctx context.Context, id string) error {
	found, err := repo.DeleteReview(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if !found {
		return ErrReviewNotFound
	}
	return nil
}

// UpdateStatus moves a review to the given moderation status, optionally
// recording a note. The status must be a known value; the review must exist.
// Everything else about the review stays immutable.
func (s *ReviewService) UpdateStatus(ctx context.Context, id, status, note string) (*domain.Review, error) {
	if !domain.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	note = norm.NFC.String(strings.TrimSpace(note))
	if utf8.RuneCountInString(note) > MaxCommentRunes {
		return nil, ErrCommentTooLong
	}
	if err := repo.UpdateReviewStatus(ctx, s.DB, id, status, note); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return repo.GetReview(ctx, s.DB, id)
}

// orderClause maps the public sort parameters onto a deterministic ORDER BY
// over known columns. Unknown fields fall back to created_at; anything but
// "asc" sorts descending. The trailing id ordering keeps pagination stable
// when the primary sort key collides.
func orderClause(sortBy, sortOrder string) string {
	switch sortBy {
	case "created_at", "rating":
	default:
		sortBy = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		dir = "ASC"
	}
	return sortBy + " " + dir + ", id " + dir
}

// totalPages is ceil(total/pageSize) with a minimum of 1.
func totalPages(total int64, pageSize int) int {
	if total <= 0 {
		return 1
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// round2 rounds to two decimal places, matching the summary contract.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// zeroDistribution returns a distribution map with every rating bucket
// present and zeroed, so clients always see keys "1" through "5".
func zeroDistribution() map[string]int {
	d := make(map[string]int, 5)
	for i := 1; i <= 5; i++ {
		d[strconv.Itoa(i)] = 0
	}
	return d
}
