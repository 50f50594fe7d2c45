package port

import (
	"context"
	"time"

	"github.com/arklim/authgate/internal/core/domain"
)

// RateLimitStore records a request in a sliding window and reports the window state atomically.
type RateLimitStore interface {
	RecordAndCheck(ctx context.Context, identifier string, at time.Time) (domain.RateWindow, error)
	Window() time.Duration
}
