package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/authgate/internal/core/domain"
	"github.com/arklim/authgate/internal/infra/security"
	"github.com/arklim/authgate/internal/repository"
	"github.com/arklim/authgate/internal/transport/http/middleware"
	"github.com/arklim/authgate/internal/usecase"
)

var tokenErrorCases = []ErrorCase{
	{Err: usecase.ErrTokenBlacklisted, Status: http.StatusUnauthorized, Message: "Token is blacklisted"},
	{Err: security.ErrTokenExpired, Status: http.StatusUnauthorized, Message: "Token expired"},
	{Err: usecase.ErrWrongScope, Status: http.StatusUnauthorized, Message: "Token scope not allowed"},
	{Err: security.ErrBadSignature, Status: http.StatusUnauthorized, Message: "Could not validate credentials"},
	{Err: security.ErrClaims, Status: http.StatusUnauthorized, Message: "Could not validate credentials"},
	{Err: security.ErrInvalidToken, Status: http.StatusUnauthorized, Message: "Could not validate credentials"},
	{Err: domain.ErrInvalidSubject, Status: http.StatusUnauthorized, Message: "Could not validate credentials"},
	{Err: usecase.ErrMissingClaims, Status: http.StatusUnauthorized, Message: "Could not validate credentials"},
}

var loginErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusNotFound, Message: "Invalid credentials"},
	{Err: usecase.ErrIncorrectPassword, Status: http.StatusNotFound, Message: "Incorrect password"},
	{Err: usecase.ErrInactiveAccount, Status: http.StatusBadRequest, Message: "Inactive user"},
	{Err: usecase.ErrSessionPersist, Status: http.StatusBadRequest, Message: "Could not insert data in Authentication database"},
	{Err: repository.ErrStoreUnavailable, Status: http.StatusServiceUnavailable, Message: "Service temporarily unavailable"},
}

var refreshErrorCases = append([]ErrorCase{
	{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "Can not found user information."},
	{Err: usecase.ErrSessionNotFound, Status: http.StatusUnauthorized, Message: "Refresh session not found"},
	{Err: usecase.ErrSessionPersist, Status: http.StatusBadRequest, Message: "Could not insert data in Authentication database"},
	{Err: repository.ErrStoreUnavailable, Status: http.StatusServiceUnavailable, Message: "Service temporarily unavailable"},
}, tokenErrorCases...)

var logoutErrorCases = append([]ErrorCase{
	{Err: usecase.ErrLogoutFailed, Status: http.StatusForbidden, Message: "Could not blacklist the token."},
}, tokenErrorCases...)

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	auth *usecase.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRoutes binds authentication routes.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	requireAuth := middleware.RequireAuth(h.auth)

	r.POST("/login", h.login)
	r.POST("/refresh", h.refresh)
	r.POST("/validate-token", requireAuth, h.validateToken)
	r.POST("/logout", h.logout)
}

// login exchanges username and password for a token pair.
func (h *AuthHandler) login(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusUnprocessableEntity, NewErrorResponse(c, "username and password are required"))
		return
	}

	pair, err := h.auth.Login(c.Request.Context(), form.Username, form.Password, c.ClientIP())
	if err != nil {
		RespondWithMappedError(c, err, loginErrorCases, http.StatusInternalServerError, "login failed")
		return
	}
	c.JSON(http.StatusOK, domain.NewTokenResponse(pair))
}

// refresh issues a new pair for the bearer refresh token.
func (h *AuthHandler) refresh(c *gin.Context) {
	token, ok := usecase.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "Token is missing."))
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), token, c.ClientIP())
	if err != nil {
		RespondWithMappedError(c, err, refreshErrorCases, http.StatusInternalServerError, "refresh failed")
		return
	}
	c.JSON(http.StatusCreated, domain.NewTokenResponse(pair))
}

func (h *AuthHandler) validateToken(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "Could not validate credentials"))
		return
	}
	c.JSON(http.StatusOK, newUserAuth(identity))
}

// logout blacklists the caller's access token.
func (h *AuthHandler) logout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "Authorization header is missing."))
		return
	}
	token, ok := usecase.BearerToken(header)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "Token is missing."))
		return
	}

	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		RespondWithMappedError(c, err, logoutErrorCases, http.StatusForbidden, "Could not blacklist the token.")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Msg: "Logged out successfully"})
}
