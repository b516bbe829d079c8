// API token HTTP handlers.
//
// This file exposes REST endpoints for the opaque bearer tokens protecting
// the review API:
//   - POST   /tokens           (create; the only unauthenticated write)
//   - DELETE /tokens/{token}   (revoke)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. The full token value appears in
// exactly one response body, at creation.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rencom/go-reviews-backend/internal/domain"
	"github.com/rencom/go-reviews-backend/internal/http/middleware"
	"github.com/rencom/go-reviews-backend/internal/services"
)

// TokenService defines the token lifecycle operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type TokenService interface {
	// Create mints and persists a new token with an optional display name.
	Create(ctx context.Context, name string) (*domain.APIToken, error)
	// Revoke deletes a token by its full value.
	Revoke(ctx context.Context, value string) error
}

// CreateTokenRequest is the JSON payload for creating an API token.
type CreateTokenRequest struct {
	// Name optionally labels the token (e.g. the integrating system).
	Name string `json:"name" example:"storefront-backend"`
}

// RevokeTokenResponse confirms a successful token revocation.
type RevokeTokenResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"token revoked"`
}

// CreateToken godoc
// @ID          createToken
// @Summary     Create an API token
// @Description Mints a cryptographically random bearer token. The token value is returned exactly once.
// @Tags        Tokens
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateTokenRequest  false  "Optional token name"
//
// @Success     201  {object}  domain.APIToken
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /tokens [post]
func (h *Handlers) CreateToken(c *gin.Context) {
	var req CreateTokenRequest
	// An empty body is fine; the name is optional.
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeValidation, "invalid JSON body")
			return
		}
	}

	t, err := h.tokenSvc.Create(c.Request.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		lg := middleware.LoggerFrom(c)
		lg.Error().Err(err).Msg("token creation failed")
		fail(c, http.StatusInternalServerError, ErrCodeTokenFailed, "failed to create token")
		return
	}
	ok(c, http.StatusCreated, t)
}

// RevokeToken godoc
// @ID          revokeToken
// @Summary     Revoke an API token
// @Description Deletes the token with the given value. Revoked tokens fail authentication immediately.
// @Tags        Tokens
// @Produce     json
//
// @Param       token  path  string  true  "Full token value"
//
// @Success     200  {object}  handlers.RevokeTokenResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Token not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /tokens/{token} [delete]
func (h *Handlers) RevokeToken(c *gin.Context) {
	value := c.Param("token")
	if err := h.tokenSvc.Revoke(c.Request.Context(), value); err != nil {
		if errors.Is(err, services.ErrTokenNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "token not found")
			return
		}
		lg := middleware.LoggerFrom(c)
		lg.Error().Err(err).Msg("token revocation failed")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to revoke token")
		return
	}
	ok(c, http.StatusOK, RevokeTokenResponse{Success: true, Message: "token revoked"})
}
