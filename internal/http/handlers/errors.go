// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses (via the `fail()` helper in this package). These codes provide
// clients with a stable, machine-readable error taxonomy that supplements
// human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless explicitly noted.
//   - Generic codes (e.g., unauthorized, conflict, not_found) mirror common
//     HTTP status semantics to aid interoperability.
//   - validation_error covers malformed input rejected before any store
//     access: out-of-range ratings, oversized comments, bad page sizes, and
//     unparseable date filters.
//   - All error responses include both an HTTP status and one of these codes.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "conflict",
//	  "message": "already submitted a review for this product"
//	}
package handlers

const (
	ErrCodeValidation   = "validation_error"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeSubmitFailed     = "submit_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeSummaryFailed    = "summary_failed"
	ErrCodeTokenFailed      = "token_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
