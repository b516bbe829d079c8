// Review HTTP handlers.
//
// This file exposes REST endpoints for review resources:
//   - POST   /reviews                          (submit, Idempotency-Key aware)
//   - GET    /products/{product_id}/reviews    (list, paginated, ETag support)
//   - GET    /products/{product_id}/summary    (rating aggregate)
//   - DELETE /reviews/{review_id}              (hard delete)
//   - PATCH  /reviews/{review_id}/status       (moderation)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rencom/go-reviews-backend/internal/domain"
	"github.com/rencom/go-reviews-backend/internal/http/middleware"
	"github.com/rencom/go-reviews-backend/internal/repo"
	"github.com/rencom/go-reviews-backend/internal/services"
	"github.com/rencom/go-reviews-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// ReviewService defines the review operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ReviewService interface {
	// Submit records a review of productID by userID, at most once per pair.
	Submit(ctx context.Context, productID, userID string, rating int, comment, apiTokenID string) (*domain.Review, error)
	// ListPage returns a filtered, sorted page of a product's reviews.
	ListPage(ctx context.Context, productID string, p services.ListParams) (*services.ReviewPage, error)
	// Summary recomputes the rating aggregate for a product.
	Summary(ctx context.Context, productID string) (*services.ReviewSummary, error)
	// Delete hard-deletes a review by id.
	Delete(ctx context.Context, id string) error
	// UpdateStatus moves a review to a new moderation status.
	UpdateStatus(ctx context.Context, id, status, note string) (*domain.Review, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for reviews and tokens. It depends on
// abstract service interfaces to keep transport concerns separate from
// business logic.
type Handlers struct {
	reviewSvc ReviewService
	tokenSvc  TokenService
	idemTTL   time.Duration
}

// New constructs a Handlers instance bound to the given services. idemTTL
// bounds how long a stored Idempotency-Key result remains replayable.
func New(reviewSvc ReviewService, tokenSvc TokenService, idemTTL time.Duration) *Handlers {
	if idemTTL <= 0 {
		idemTTL = 24 * time.Hour
	}
	return &Handlers{reviewSvc: reviewSvc, tokenSvc: tokenSvc, idemTTL: idemTTL}
}

// db surfaces the service's GORM handle for ETag stats and idempotency
// records. Returns nil when the handlers were built with a stub service.
func (h *Handlers) db() *gorm.DB {
	if svc, ok := h.reviewSvc.(*services.ReviewService); ok {
		return svc.DB
	}
	return nil
}

//
// DTOs
//

// SubmitReviewRequest is the JSON payload for submitting a review.
type SubmitReviewRequest struct {
	ProductID string `json:"product_id" binding:"required" example:"prod-123"`
	UserID    string `json:"user_id" binding:"required" example:"user-456"`
	Rating    int    `json:"rating" example:"5"`
	Comment   string `json:"comment,omitempty" example:"Great battery life"`
}

// SubmitReviewResponse confirms a stored (or replayed) review submission.
type SubmitReviewResponse struct {
	Success  bool   `json:"success" example:"true"`
	ReviewID string `json:"review_id" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	Message  string `json:"message" example:"review submitted successfully"`
}

// UpdateReviewStatusRequest is the JSON payload for a moderation update.
type UpdateReviewStatusRequest struct {
	Status string `json:"status" binding:"required" example:"rejected"`
	Note   string `json:"note,omitempty" example:"profanity in comment"`
}

// DeleteReviewResponse confirms a successful hard delete.
type DeleteReviewResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"review deleted"`
}

//
// Helpers
//

// parsePagination reads the page and page_size query params. Absent values
// take the defaults (1 and 50); out-of-range values are rejected so callers
// get an explicit error instead of a silently adjusted page.
func parsePagination(c *gin.Context) (page, pageSize int, err error) {
	const (
		defaultPage     = 1
		defaultPageSize = 50
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		return 0, 0, errors.New("page must be an integer >= 1")
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 || pageSize > maxPageSize {
		return 0, 0, errors.New("page_size must be an integer between 1 and 100")
	}
	return page, pageSize, nil
}

// parseDateParam parses a date filter as an ISO-8601 calendar date or RFC 3339
// timestamp. Bare dates are anchored at midnight UTC; when endOfDay is set the
// bound covers the whole day (inclusive upper bound on created_at). Malformed
// values are rejected rather than ignored.
func parseDateParam(v string, endOfDay bool) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.UTC)
	if err != nil {
		return nil, services.ErrInvalidDateFilter
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// parseRatingFilter parses the rating query param as a comma-separated set of
// values in 1..5.
func parseRatingFilter(v string) ([]int, error) {
	ratings, ok := utils.ParseIntCSV(v)
	if !ok {
		return nil, errors.New("rating filter must be a comma-separated list of integers")
	}
	for _, r := range ratings {
		if r < 1 || r > 5 {
			return nil, errors.New("rating filter values must be between 1 and 5")
		}
	}
	return ratings, nil
}

//
// Handlers
//

// SubmitReview godoc
// @ID          submitReview
// @Summary     Submit a product review
// @Description Stores a review, creating the product and user rows on first sight. Each user may review a product once.
// @Tags        Reviews
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false  "Dedupe key for safe retries"
// @Param       body             body    handlers.SubmitReviewRequest  true  "Review payload"
//
// @Success     201  {object}  handlers.SubmitReviewResponse
// @Success     200  {object}  handlers.SubmitReviewResponse  "Idempotent replay"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation error"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     409  {object}  handlers.ErrorResponse  "Duplicate review"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /reviews [post]
func (h *Handlers) SubmitReview(c *gin.Context) {
	ctx := c.Request.Context()
	tokenID, _ := middleware.TokenIDFromCtx(c)

	// Serve a detected replay from the stored record without re-submitting.
	if middleware.IsReplay(c) {
		if key, hasKey := middleware.GetIdempotencyKey(c); hasKey {
			if db := h.db(); db != nil {
				rec, err := repo.GetIdempotency(ctx, db, tokenID, key, time.Now().UTC())
				if err == nil && rec != nil {
					ok(c, http.StatusOK, SubmitReviewResponse{
						Success:  true,
						ReviewID: rec.ReviewID,
						Message:  "review already submitted (idempotent replay)",
					})
					return
				}
			}
		}
	}

	var req SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.ObserveReviewSubmission("invalid")
		fail(c, http.StatusBadRequest, ErrCodeValidation, "invalid JSON body: product_id and user_id are required")
		return
	}

	review, err := h.reviewSvc.Submit(ctx, req.ProductID, req.UserID, req.Rating, req.Comment, tokenID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateReview):
			middleware.ObserveReviewSubmission("duplicate")
			fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
		case errors.Is(err, services.ErrInvalidProductID),
			errors.Is(err, services.ErrInvalidUserID),
			errors.Is(err, services.ErrInvalidRating),
			errors.Is(err, services.ErrCommentTooLong):
			middleware.ObserveReviewSubmission("invalid")
			fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
		default:
			middleware.ObserveReviewSubmission("error")
			lg := middleware.LoggerFrom(c)
			lg.Error().Err(err).
				Str("product_id", req.ProductID).
				Str("user_id", req.UserID).
				Msg("review submission failed")
			fail(c, http.StatusInternalServerError, ErrCodeSubmitFailed, "failed to submit review")
		}
		return
	}

	// Record the idempotency outcome after the fact; losing the record only
	// costs a 409 on retry, never a duplicate row.
	if key, hasKey := middleware.GetIdempotencyKey(c); hasKey {
		if db := h.db(); db != nil {
			if _, err := repo.CreateIdempotency(ctx, db, tokenID, key, review.ID, http.StatusCreated, h.idemTTL); err != nil && !errors.Is(err, repo.ErrDuplicate) {
				middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record not stored")
			}
		}
	}

	middleware.ObserveReviewSubmission("created")
	ok(c, http.StatusCreated, SubmitReviewResponse{
		Success:  true,
		ReviewID: review.ID,
		Message:  "review submitted successfully",
	})
}

// ListReviews godoc
// @ID          listReviews
// @Summary     List a product's reviews (paginated)
// @Description Returns a filtered, sorted page of reviews. Unknown products yield an empty page. Supports weak ETag via If-None-Match.
// @Tags        Reviews
// @Produce     json
// @Security    BearerAuth
//
// @Param       product_id     path    string  true   "Product ID"
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page           query   int     false  "Page number"        minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"     minimum(1) maximum(100) default(50)
// @Param       rating         query   string  false  "Rating filter, e.g. 4,5"
// @Param       status         query   string  false  "Status filter"      Enums(approved, pending, rejected, spam)
// @Param       date_from      query   string  false  "Inclusive lower bound (ISO-8601)"
// @Param       date_to        query   string  false  "Inclusive upper bound (ISO-8601)"
// @Param       sort_by        query   string  false  "Sort field"         Enums(created_at, rating) default(created_at)
// @Param       sort_order     query   string  false  "Sort direction"     Enums(asc, desc) default(desc)
//
// @Success     200  {object}  services.ReviewPage
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation error"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /products/{product_id}/reviews [get]
func (h *Handlers) ListReviews(c *gin.Context) {
	ctx := c.Request.Context()
	productID := c.Param("product_id")

	page, pageSize, err := parsePagination(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	ratings, err := parseRatingFilter(c.Query("rating"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}
	dateFrom, err := parseDateParam(c.Query("date_from"), false)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "date_from: "+err.Error())
		return
	}
	dateTo, err := parseDateParam(c.Query("date_to"), true)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "date_to: "+err.Error())
		return
	}

	// ETag pre-check (best effort). The tag folds in the query string so
	// different filters never collide on the same cache entry.
	if db := h.db(); db != nil {
		count, maxTS, err := repo.ReviewsStats(ctx, db, productID)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"reviews:%s:%d:%d:%s"`, productID, count, ts, c.Request.URL.RawQuery)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	result, err := h.reviewSvc.ListPage(ctx, productID, services.ListParams{
		Page:      page,
		PageSize:  pageSize,
		Ratings:   ratings,
		Status:    c.Query("status"),
		DateFrom:  dateFrom,
		DateTo:    dateTo,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	})
	if err != nil {
		lg := middleware.LoggerFrom(c)
		lg.Error().Err(err).Str("product_id", productID).Msg("review listing failed")
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "failed to list reviews")
		return
	}
	ok(c, http.StatusOK, result)
}

// ProductSummary godoc
// @ID          productSummary
// @Summary     Get a product's rating summary
// @Description Recomputes the aggregate from all reviews regardless of status. Unknown products yield a zero-valued summary.
// @Tags        Reviews
// @Produce     json
// @Security    BearerAuth
//
// @Param       product_id  path  string  true  "Product ID"
//
// @Success     200  {object}  services.ReviewSummary
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /products/{product_id}/summary [get]
func (h *Handlers) ProductSummary(c *gin.Context) {
	productID := c.Param("product_id")

	summary, err := h.reviewSvc.Summary(c.Request.Context(), productID)
	if err != nil {
		lg := middleware.LoggerFrom(c)
		lg.Error().Err(err).Str("product_id", productID).Msg("summary computation failed")
		fail(c, http.StatusInternalServerError, ErrCodeSummaryFailed, "failed to compute summary")
		return
	}
	ok(c, http.StatusOK, summary)
}

// DeleteReview godoc
// @ID          deleteReview
// @Summary     Delete a review
// @Description Hard-deletes the review. A missing review is a normal not-found outcome.
// @Tags        Reviews
// @Produce     json
// @Security    BearerAuth
//
// @Param       review_id  path  string  true  "Review ID (UUID)"
//
// @Success     200  {object}  handlers.DeleteReviewResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Review not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /reviews/{review_id} [delete]
func (h *Handlers) DeleteReview(c *gin.Context) {
	id := c.Param("review_id")

	if err := h.reviewSvc.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrReviewNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "review not found")
			return
		}
		lg := middleware.LoggerFrom(c)
		lg.Error().Err(err).Str("review_id", id).Msg("review deletion failed")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to delete review")
		return
	}
	ok(c, http.StatusOK, DeleteReviewResponse{Success: true, Message: "review deleted"})
}

// UpdateReviewStatus godoc
// @ID          updateReviewStatus
// @Summary     Update a review's moderation status
// @Description Moves the review to a new status (approved, pending, rejected, spam) with an optional note. All other review fields are immutable.
// @Tags        Reviews
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       review_id  path  string  true  "Review ID (UUID)"
// @Param       body       body  handlers.UpdateReviewStatusRequest  true  "New status"
//
// @Success     200  {object}  domain.Review
// @Failure     400  {object}  handlers.ErrorResponse  "Validation error"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Review not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /reviews/{review_id}/status [patch]
func (h *Handlers) UpdateReviewStatus(c *gin.Context) {
	id := c.Param("review_id")

	var req UpdateReviewStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "invalid JSON body: status is required")
		return
	}

	review, err := h.reviewSvc.UpdateStatus(c.Request.Context(), id, req.Status, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrReviewNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "review not found")
		case errors.Is(err, services.ErrInvalidStatus), errors.Is(err, services.ErrCommentTooLong):
			fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
		default:
			lg := middleware.LoggerFrom(c)
			lg.Error().Err(err).Str("review_id", id).Msg("status update failed")
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to update review status")
		}
		return
	}
	ok(c, http.StatusOK, review)
}
