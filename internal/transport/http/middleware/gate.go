package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/authgate/internal/core/domain"
)

const gateReasonKey = "gate_reason"

// RequestEvaluator decides whether an inbound request may reach the handlers.
type RequestEvaluator interface {
	Evaluate(ctx context.Context, meta domain.RequestMeta) domain.GateDecision
}

var gateMessages = map[int]string{
	http.StatusForbidden:          "Access denied: IP blacklisted.",
	http.StatusTooManyRequests:    "Too many requests",
	http.StatusUnauthorized:       "This token has been blacklisted.",
	http.StatusServiceUnavailable: "Service temporarily unavailable",
}

// Gate adapts the request gate to gin. Denials abort with the decision's status and headers.
func Gate(gate RequestEvaluator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if gate == nil {
			c.Next()
			return
		}

		ua := c.Request.UserAgent()
		if ua == "" {
			ua = "unknown"
		}
		decision := gate.Evaluate(c.Request.Context(), domain.RequestMeta{
			ClientIP:      c.ClientIP(),
			UserAgent:     ua,
			Path:          c.Request.URL.Path,
			Authorization: c.GetHeader("Authorization"),
		})
		if decision.Allowed {
			c.Next()
			return
		}

		for name, value := range decision.Headers {
			c.Header(name, value)
		}
		c.Set(gateReasonKey, decision.Reason)

		msg, ok := gateMessages[decision.Status]
		if !ok {
			msg = http.StatusText(decision.Status)
		}
		c.AbortWithStatusJSON(decision.Status, newErrorResponse(c, msg))
	}
}
