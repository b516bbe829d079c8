// Package services defines the business logic for reviews and API tokens.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Review-related errors.
var (
	// ErrInvalidProductID is returned when a submission names an empty
	// product id.
	ErrInvalidProductID = errors.New("product_id is required")

	// ErrInvalidUserID is returned when a submission names an empty user id.
	ErrInvalidUserID = errors.New("user_id is required")

	// ErrInvalidRating is returned when a rating is outside the allowed
	// range (1 through 5 inclusive).
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrCommentTooLong is returned when a review comment exceeds the
	// maximum allowed length.
	ErrCommentTooLong = errors.New("comment exceeds maximum length")

	// ErrDuplicateReview is returned when a user attempts to review a
	// product they have already reviewed.
	ErrDuplicateReview = errors.New("already submitted a review for this product")

	// ErrReviewNotFound indicates that the requested review does not exist.
	ErrReviewNotFound = errors.New("review not found")

	// ErrInvalidStatus is returned when a moderation update names an
	// unknown review status.
	ErrInvalidStatus = errors.New("status must be one of: approved, pending, rejected, spam")

	// ErrInvalidDateFilter is returned when a listing date filter cannot be
	// parsed as an ISO-8601 date or timestamp.
	ErrInvalidDateFilter = errors.New("date filter must be an ISO-8601 date or timestamp")
)

// Token-related errors.
var (
	// ErrTokenNotFound indicates that no API token with the presented value
	// exists.
	ErrTokenNotFound = errors.New("token not found")
)
