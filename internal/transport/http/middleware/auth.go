package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/authgate/internal/core/domain"
	"github.com/arklim/authgate/internal/infra/security"
	"github.com/arklim/authgate/internal/repository"
	"github.com/arklim/authgate/internal/usecase"
)

const (
	identityKey    = "identity"
	accessTokenKey = "access_token"
)

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// Authenticator resolves the identity behind an access token.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (domain.Identity, error)
}

// RequireAuth validates the bearer access token and stores the resolved identity on the context.
func RequireAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "Authorization header is missing."))
			return
		}
		token, ok := usecase.BearerToken(header)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "Token is missing."))
			return
		}

		identity, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			status, msg := authFailure(err)
			_ = c.Error(err)
			c.AbortWithStatusJSON(status, newErrorResponse(c, msg))
			return
		}

		c.Set(identityKey, identity)
		c.Set(accessTokenKey, token)
		c.Next()
	}
}

func authFailure(err error) (int, string) {
	switch {
	case errors.Is(err, usecase.ErrTokenBlacklisted):
		return http.StatusUnauthorized, "Token is blacklisted"
	case errors.Is(err, security.ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired"
	case errors.Is(err, usecase.ErrWrongScope):
		return http.StatusUnauthorized, "Token scope not allowed"
	case errors.Is(err, security.ErrBadSignature),
		errors.Is(err, security.ErrClaims),
		errors.Is(err, security.ErrInvalidToken),
		errors.Is(err, domain.ErrInvalidSubject),
		errors.Is(err, usecase.ErrMissingClaims),
		errors.Is(err, usecase.ErrUserNotFound):
		return http.StatusUnauthorized, "Could not validate credentials"
	case errors.Is(err, repository.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "Service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "authentication failed"
	}
}

// CurrentIdentity returns the identity stored by RequireAuth.
func CurrentIdentity(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := v.(domain.Identity)
	return identity, ok
}

// CurrentAccessToken returns the bearer token accepted by RequireAuth.
func CurrentAccessToken(c *gin.Context) string {
	return c.GetString(accessTokenKey)
}
