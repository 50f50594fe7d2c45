package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/authgate/internal/repository"
	"github.com/arklim/authgate/internal/usecase"
)

var googleErrorCases = []ErrorCase{
	{Err: usecase.ErrOAuthStateInvalid, Status: http.StatusBadRequest, Message: "Invalid OAuth state"},
	{Err: usecase.ErrOAuthExchange, Status: http.StatusUnauthorized, Message: "Google authorization failed"},
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusNotFound, Message: "Invalid credentials"},
	{Err: usecase.ErrInactiveAccount, Status: http.StatusBadRequest, Message: "Inactive user"},
	{Err: usecase.ErrSessionPersist, Status: http.StatusBadRequest, Message: "Could not insert data in Authentication database"},
	{Err: repository.ErrStoreUnavailable, Status: http.StatusServiceUnavailable, Message: "Service temporarily unavailable"},
}

// GoogleHandler exposes the Google sign-in redirect and callback.
type GoogleHandler struct {
	google *usecase.GoogleAuthService
}

// NewGoogleHandler constructs GoogleHandler.
func NewGoogleHandler(google *usecase.GoogleAuthService) *GoogleHandler {
	return &GoogleHandler{google: google}
}

// RegisterRoutes binds the Google routes.
func (h *GoogleHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/google/login", h.login)
	r.GET("/google", h.callback)
}

func (h *GoogleHandler) login(c *gin.Context) {
	target, err := h.google.LoginURL(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, err, googleErrorCases, http.StatusInternalServerError, "google login unavailable")
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, target)
}

func (h *GoogleHandler) callback(c *gin.Context) {
	resp, err := h.google.Callback(c.Request.Context(), c.Query("code"), c.Query("state"), c.ClientIP())
	if err != nil {
		RespondWithMappedError(c, err, googleErrorCases, http.StatusInternalServerError, "google login failed")
		return
	}
	c.JSON(http.StatusOK, resp)
}
