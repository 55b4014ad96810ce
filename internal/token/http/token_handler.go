package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/apitokens/internal/config"
	"github.com/allisson/apitokens/internal/httputil"
	tokenDomain "github.com/allisson/apitokens/internal/token/domain"
	"github.com/allisson/apitokens/internal/token/http/dto"
	tokenUseCase "github.com/allisson/apitokens/internal/token/usecase"
	customValidation "github.com/allisson/apitokens/internal/validation"
)

// TokenHandler handles HTTP requests for token administration and identity lookup.
type TokenHandler struct {
	tokenUseCase tokenUseCase.TokenUseCase
	config       *config.Config
	logger       *slog.Logger
}

// NewTokenHandler creates a new token handler with required dependencies.
func NewTokenHandler(
	tokenUseCase tokenUseCase.TokenUseCase,
	cfg *config.Config,
	logger *slog.Logger,
) *TokenHandler {
	return &TokenHandler{
		tokenUseCase: tokenUseCase,
		config:       cfg,
		logger:       logger,
	}
}

// CreateHandler issues a new token.
// POST /v1/tokens - Requires the admin scope.
// Returns 201 Created with the plain secret, shown only once.
func (h *TokenHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateTokenRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input, err := req.ToInput()
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	token, err := h.tokenUseCase.Create(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapTokenToCreateResponse(token))
}

// ListHandler lists tokens with masked secrets.
// GET /v1/tokens?offset=0&limit=50 - Requires the admin scope.
func (h *TokenHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	tokens, err := h.tokenUseCase.List(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTokensToListResponse(httputil.Page(tokens, offset, limit)))
}

// GetHandler retrieves a token by ID with its secret masked.
// GET /v1/tokens/:id - Requires the admin scope.
func (h *TokenHandler) GetHandler(c *gin.Context) {
	tokenID, ok := h.parseTokenID(c)
	if !ok {
		return
	}

	token, err := h.tokenUseCase.Get(c.Request.Context(), tokenID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTokenToResponse(token))
}

// DeleteHandler revokes a token.
// DELETE /v1/tokens/:id - Requires the admin scope.
// Returns 204 No Content, or 404 when no such token exists.
func (h *TokenHandler) DeleteHandler(c *gin.Context) {
	tokenID, ok := h.parseTokenID(c)
	if !ok {
		return
	}

	deleted, err := h.tokenUseCase.Revoke(c.Request.Context(), tokenID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	if !deleted {
		httputil.HandleErrorGin(c, tokenDomain.ErrTokenNotFound, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// RotateHandler issues a replacement token and shortens the old one's life.
// POST /v1/tokens/:id/rotate - Requires the admin scope.
// An empty body or missing grace_days uses the configured grace window.
func (h *TokenHandler) RotateHandler(c *gin.Context) {
	tokenID, ok := h.parseTokenID(c)
	if !ok {
		return
	}

	var req dto.RotateTokenRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	graceDays := h.config.TokenRotationGraceDays
	if req.GraceDays != nil {
		graceDays = *req.GraceDays
	}

	output, err := h.tokenUseCase.Rotate(c.Request.Context(), tokenID, graceDays)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRotateOutputToResponse(output))
}

// MigrateLegacyHandler wraps the legacy secret into a stored token.
// POST /v1/tokens/migrate-legacy - Requires the admin scope.
// The call is idempotent: an already migrated secret returns the existing token.
func (h *TokenHandler) MigrateLegacyHandler(c *gin.Context) {
	var req dto.MigrateLegacyTokenRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	token, err := h.tokenUseCase.MigrateLegacy(c.Request.Context(), req.Secret, req.Description)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTokenToResponse(token))
}

// IdentityHandler describes the authenticated caller.
// GET /v1/auth/identity - Requires any valid token.
func (h *TokenHandler) IdentityHandler(c *gin.Context) {
	identity, ok := GetIdentity(c.Request.Context())
	if !ok || identity == nil {
		httputil.HandleErrorGin(c, tokenDomain.ErrInvalidCredentials, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapIdentityToResponse(identity))
}

func (h *TokenHandler) parseTokenID(c *gin.Context) (uuid.UUID, bool) {
	tokenID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid token ID format: must be a valid UUID"),
			h.logger)
		return uuid.Nil, false
	}
	return tokenID, true
}
