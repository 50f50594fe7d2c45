package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/authgate/internal/core/domain"
	"github.com/arklim/authgate/internal/core/port"
	"github.com/arklim/authgate/internal/infra/logger"
	"github.com/arklim/authgate/internal/infra/telemetry"
	"github.com/arklim/authgate/internal/repository"
)

// RecoverPasswordMessage is returned for every recovery request so callers cannot probe for accounts.
const RecoverPasswordMessage = "If the email is registered, a reset link will be sent."

var (
	// ErrPasswordResetUnavailable indicates the service is not properly configured.
	ErrPasswordResetUnavailable = errors.New("password reset service unavailable")
	// ErrPasswordResetTokenInvalid indicates the supplied reset token is invalid or expired.
	ErrPasswordResetTokenInvalid = errors.New("invalid or expired token")
	// ErrPasswordResetLookup indicates the account lookup failed for a reason other than absence.
	ErrPasswordResetLookup = errors.New("there was an issue with the request")
	// ErrPasswordRequired indicates an empty replacement password.
	ErrPasswordRequired = errors.New("new password is required")
)

// PasswordResetService coordinates password recovery and reset completion.
type PasswordResetService struct {
	users   port.UserRepository
	resets  port.ResetTokenCodec
	hasher  port.PasswordHasher
	events  port.EventPublisher
	metrics *telemetry.AuthMetrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewPasswordResetService constructs a PasswordResetService.
func NewPasswordResetService(users port.UserRepository, resets port.ResetTokenCodec, hasher port.PasswordHasher, events port.EventPublisher, metrics *telemetry.AuthMetrics, logger *zap.Logger) *PasswordResetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PasswordResetService{
		users:   users,
		resets:  resets,
		hasher:  hasher,
		events:  events,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Recover issues a reset token for a registered email and hands it to the
// notification bus. The outcome is never revealed to the caller.
func (s *PasswordResetService) Recover(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if s.users == nil || s.resets == nil {
		return "", ErrPasswordResetUnavailable
	}
	log := logger.WithContext(ctx).With(logger.Email(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Warn("password recovery lookup failed", zap.Error(err))
		}
		s.metrics.AuthEvent("recover_password", "ignored")
		return RecoverPasswordMessage, nil
	}

	token, expiresAt, err := s.resets.Issue(user.Email)
	if err != nil {
		log.Error("issue reset token failed", zap.Error(err))
		return RecoverPasswordMessage, nil
	}

	if s.events != nil {
		event := domain.PasswordResetRequestedEvent{
			EventID:     uuid.NewString(),
			UserID:      user.ID.String(),
			Username:    user.Username,
			Email:       user.Email,
			Token:       token,
			RequestedAt: s.now().UTC(),
			ExpiresAt:   expiresAt,
		}
		if err := s.events.PublishPasswordResetRequested(ctx, event); err != nil {
			log.Warn("publish reset event failed", zap.Error(err))
		}
	}
	s.metrics.AuthEvent("recover_password", "issued")
	return RecoverPasswordMessage, nil
}

// Reset replaces the password of the account the token was issued for and
// returns the confirmation message.
func (s *PasswordResetService) Reset(ctx context.Context, token, newPassword string) (string, error) {
	if s.users == nil || s.resets == nil || s.hasher == nil {
		return "", ErrPasswordResetUnavailable
	}
	if newPassword == "" {
		return "", ErrPasswordRequired
	}

	email, err := s.resets.Verify(token)
	if err != nil {
		s.metrics.AuthEvent("reset_password", "invalid_token")
		return "", ErrPasswordResetTokenInvalid
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserNotFound
		}
		logger.WithContext(ctx).Warn("password reset lookup failed", logger.Email(email), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrPasswordResetLookup, err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	changedAt := s.now().UTC()
	if err := s.users.UpdatePassword(ctx, user.ID, hash, changedAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("update password: %w", err)
	}

	if s.events != nil {
		event := domain.PasswordChangedEvent{
			EventID:   uuid.NewString(),
			UserID:    user.ID.String(),
			Username:  user.Username,
			Email:     user.Email,
			ChangedAt: changedAt,
		}
		if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
			s.logger.Warn("publish password changed event failed", zap.Error(err))
		}
	}
	s.metrics.AuthEvent("reset_password", "success")
	return "Password updated successfully for " + user.Email, nil
}
