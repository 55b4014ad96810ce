package http

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/apitokens/internal/errors"
	"github.com/allisson/apitokens/internal/httputil"
	tokenDomain "github.com/allisson/apitokens/internal/token/domain"
	tokenUseCase "github.com/allisson/apitokens/internal/token/usecase"
)

const (
	// TokenHeader is the dedicated header carrying the API token.
	TokenHeader = "X-API-Token"
	// TokenQueryParam is the query parameter fallback for clients that cannot set headers.
	TokenQueryParam = "api_token"

	bearerPrefix = "bearer "
)

// ExtractToken returns the presented secret, checking the X-API-Token header,
// then an Authorization Bearer header, then the api_token query parameter.
func ExtractToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader(TokenHeader)); token != "" {
		return token
	}

	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > len(bearerPrefix) && strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		if token := strings.TrimSpace(authHeader[len(bearerPrefix):]); token != "" {
			return token
		}
	}

	return strings.TrimSpace(c.Query(TokenQueryParam))
}

// AuthenticationMiddleware validates the presented token and stores the
// resulting identity in the request context.
//
// Missing, unknown, expired and malformed tokens all yield 401 with the same
// body. Store failures yield 500.
//
// Usage:
//
//	router.Use(AuthenticationMiddleware(tokenUseCase, logger))
//	router.GET("/protected", func(c *gin.Context) {
//	    identity, _ := GetIdentity(c.Request.Context())
//	})
func AuthenticationMiddleware(useCase tokenUseCase.TokenUseCase, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := ExtractToken(c)
		if secret == "" {
			logger.Debug("authentication failed: missing api token")
			httputil.HandleErrorGin(c, tokenDomain.ErrInvalidCredentials, logger)
			c.Abort()
			return
		}

		identity, err := useCase.Validate(c.Request.Context(), secret)
		if err != nil {
			logger.Debug("authentication failed", slog.String("error", err.Error()))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		ctx := WithIdentity(c.Request.Context(), identity)
		c.Request = c.Request.WithContext(ctx)

		if identity.TokenID != nil {
			logger.Debug("authentication successful", slog.String("token_id", identity.TokenID.String()))
		} else {
			logger.Debug("authentication successful", slog.Bool("legacy", identity.Legacy))
		}

		c.Next()
	}
}

// AuthorizationMiddleware requires every listed scope on the authenticated identity.
//
// This middleware MUST be used after AuthenticationMiddleware. A missing identity
// yields 401, a missing scope yields 403.
func AuthorizationMiddleware(
	useCase tokenUseCase.TokenUseCase,
	logger *slog.Logger,
	required ...tokenDomain.Scope,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c.Request.Context())
		if !ok || identity == nil {
			logger.Debug("authorization failed: no authenticated identity in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		if err := useCase.Authorize(c.Request.Context(), identity, required...); err != nil {
			logger.Debug("authorization failed",
				slog.String("scopes", identity.Scopes.String()),
				slog.Any("required", required),
			)
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}
