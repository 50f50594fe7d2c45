package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/authgate/internal/usecase"
)

var resetErrorCases = []ErrorCase{
	{Err: usecase.ErrPasswordResetTokenInvalid, Status: http.StatusBadRequest, Message: "Invalid or expired token"},
	{Err: usecase.ErrPasswordResetLookup, Status: http.StatusBadRequest, Message: "There was an issue with the request"},
	{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "User not found"},
	{Err: usecase.ErrPasswordRequired, Status: http.StatusBadRequest, Message: "New password is required"},
	{Err: usecase.ErrPasswordResetUnavailable, Status: http.StatusServiceUnavailable, Message: "Password reset unavailable"},
}

// PasswordHandler exposes password recovery endpoints.
type PasswordHandler struct {
	resets *usecase.PasswordResetService
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(resets *usecase.PasswordResetService) *PasswordHandler {
	return &PasswordHandler{resets: resets}
}

// RegisterRoutes binds the recovery routes.
func (h *PasswordHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/recover-password/:email", h.recoverPassword)
	r.POST("/reset-password", h.resetPassword)
}

func (h *PasswordHandler) recoverPassword(c *gin.Context) {
	msg, err := h.resets.Recover(c.Request.Context(), c.Param("email"))
	if err != nil {
		RespondWithMappedError(c, err, resetErrorCases, http.StatusInternalServerError, "password recovery failed")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Msg: msg})
}

func (h *PasswordHandler) resetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, NewErrorResponse(c, "token and password are required"))
		return
	}

	msg, err := h.resets.Reset(c.Request.Context(), req.Token, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, resetErrorCases, http.StatusInternalServerError, "password reset failed")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Msg: msg})
}
