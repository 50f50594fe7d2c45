package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arklim/authgate/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: c.GetString("trace_id"),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Msg string `json:"msg"`
}

// LoginForm is the OAuth2 password grant form posted to /login.
type LoginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// ResetPasswordRequest carries the reset token and the replacement password.
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserAuth is the identity view returned by validate-token.
type UserAuth struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

func newUserAuth(identity domain.Identity) UserAuth {
	return UserAuth{ID: identity.ID, Username: identity.Username, Email: identity.Email}
}

// HealthResponse describes service liveness.
type HealthResponse struct {
	Status    string `json:"status"`
	StartedAt string `json:"started_at"`
}

// ReadinessResponse lists the state of every dependency checked.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
