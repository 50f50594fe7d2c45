package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/authgate/internal/core/domain"
	"github.com/arklim/authgate/internal/core/port"
	"github.com/arklim/authgate/internal/infra/locale"
	"github.com/arklim/authgate/internal/infra/logger"
	"github.com/arklim/authgate/internal/infra/telemetry"
	"github.com/arklim/authgate/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the username is unknown or the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrIncorrectPassword indicates the user exists but the password does not match.
	ErrIncorrectPassword = errors.New("incorrect password")
	// ErrInactiveAccount indicates the account is disabled.
	ErrInactiveAccount = errors.New("inactive user")
	// ErrSessionPersist indicates the refresh session could not be written.
	ErrSessionPersist = errors.New("could not insert data in authentication database")
	// ErrTokenBlacklisted indicates the token was revoked by logout.
	ErrTokenBlacklisted = errors.New("token is blacklisted")
	// ErrWrongScope indicates an access token was used where a refresh token is required or vice versa.
	ErrWrongScope = errors.New("token scope not allowed for this operation")
	// ErrMissingClaims indicates preferred_username or sub is absent.
	ErrMissingClaims = errors.New("could not validate credentials")
	// ErrSessionNotFound indicates the refresh token has no live session record.
	ErrSessionNotFound = errors.New("refresh session not found")
	// ErrUserNotFound indicates the token subject no longer resolves to a user.
	ErrUserNotFound = errors.New("can not find user information")
	// ErrLogoutFailed indicates the token could not be blacklisted.
	ErrLogoutFailed = errors.New("logout failed")
)

const tracerName = "github.com/arklim/authgate/internal/usecase"

// AuthConfig carries the token parameters of the auth flows.
type AuthConfig struct {
	Issuer          string
	Audience        string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	MaxRequests     int
}

// AuthService builds and signs token pairs, persists refresh sessions and
// resolves identities from bearer tokens.
type AuthService struct {
	cfg        AuthConfig
	users      port.UserRepository
	codec      port.TokenCodec
	tokens     port.TokenStore
	identities port.IdentityCache
	hasher     port.PasswordHasher
	events     port.EventPublisher
	policy     domain.DegradationPolicy
	metrics    *telemetry.AuthMetrics
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// AuthDependencies groups the collaborators of AuthService.
type AuthDependencies struct {
	Users      port.UserRepository
	Codec      port.TokenCodec
	Tokens     port.TokenStore
	Identities port.IdentityCache
	Hasher     port.PasswordHasher
	Events     port.EventPublisher
	Policy     domain.DegradationPolicy
	Metrics    *telemetry.AuthMetrics
	Logger     *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(cfg AuthConfig, deps AuthDependencies) (*AuthService, error) {
	if deps.Users == nil || deps.Codec == nil || deps.Tokens == nil || deps.Hasher == nil {
		return nil, errors.New("auth service: users, codec, tokens and hasher are required")
	}
	if cfg.RefreshTokenTTL <= cfg.AccessTokenTTL {
		return nil, errors.New("auth service: refresh lifetime must exceed access lifetime")
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		cfg:        cfg,
		users:      deps.Users,
		codec:      deps.Codec,
		tokens:     deps.Tokens,
		identities: deps.Identities,
		hasher:     deps.Hasher,
		events:     deps.Events,
		policy:     deps.Policy,
		metrics:    deps.Metrics,
		logger:     log,
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
	}, nil
}

// WithClock overrides the time source used for token claims.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// AccessTokenTTL reports the access token lifetime.
func (s *AuthService) AccessTokenTTL() time.Duration {
	return s.cfg.AccessTokenTTL
}

// BuildPayload assembles the claims for the identity. Refresh tokens live longer.
func (s *AuthService) BuildPayload(identity domain.Identity, scope domain.Scope) domain.TokenPayload {
	now := s.now()
	ttl := s.cfg.AccessTokenTTL
	if scope == domain.ScopeRefresh {
		ttl = s.cfg.RefreshTokenTTL
	}

	payload := domain.TokenPayload{
		Subject:   identity.Subject(),
		ExpiresAt: now.Add(ttl).Unix(),
		NotBefore: now.Unix() - 1,
		IssuedAt:  now.Unix(),
		JTI:       uuid.NewString(),
		SessionID: uuid.NewString(),
		Scope:     scope,
		Audience:  s.cfg.Audience,
		Issuer:    s.cfg.Issuer,
		AtUseNbr:  s.cfg.MaxRequests,
		PublicClaims: domain.PublicClaims{
			Email:             identity.Email,
			Nickname:          identity.Username,
			PreferredUsername: identity.Username,
			GivenName:         identity.GivenName,
			FamilyName:        identity.FamilyName,
			MiddleName:        identity.MiddleName,
			Gender:            identity.Gender,
			PhoneNumber:       identity.PhoneNumber,
			Address:           identity.Address,
		},
	}
	if identity.Birthdate != nil {
		payload.Birthdate = identity.Birthdate.Format(time.DateOnly)
	}
	if identity.UpdatedAt != nil {
		payload.UpdatedAt = identity.UpdatedAt.Unix()
	}
	if identity.Address != nil {
		if code := locale.NationalityCode(identity.Address.Country); code != "" {
			payload.Nationalities = []string{code}
		}
	}
	return payload
}

// IssueTokenPair signs an access token and a refresh token for the identity.
func (s *AuthService) IssueTokenPair(identity domain.Identity) (domain.TokenPair, error) {
	access, err := s.codec.Encode(s.BuildPayload(identity, domain.ScopeAccess))
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("encode access token: %w", err)
	}
	refresh, err := s.codec.Encode(s.BuildPayload(identity, domain.ScopeRefresh))
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("encode refresh token: %w", err)
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// CompleteLogin issues a pair and records the refresh session. It is shared by
// the password, refresh and Google flows and never retries a failed write.
func (s *AuthService) CompleteLogin(ctx context.Context, identity domain.Identity, clientIP string) (domain.TokenPair, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.CompleteLogin")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", identity.ID.String()))

	pair, err := s.IssueTokenPair(identity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "issue tokens")
		return domain.TokenPair{}, err
	}

	session := domain.NewRefreshSession(pair.RefreshToken, identity.ID, clientIP, s.cfg.RefreshTokenTTL)
	written, err := s.tokens.CreateSession(ctx, session)
	if err != nil || !written {
		logger.WithContext(ctx).Warn("refresh session not persisted",
			zap.String("user_id", identity.ID.String()),
			logger.IP(clientIP),
			zap.Error(err),
		)
		span.SetStatus(codes.Error, "persist session")
		if err != nil {
			return domain.TokenPair{}, fmt.Errorf("%w: %w", ErrSessionPersist, err)
		}
		return domain.TokenPair{}, ErrSessionPersist
	}

	return pair, nil
}

// Login verifies the username and password and completes the login.
func (s *AuthService) Login(ctx context.Context, username, password, clientIP string) (domain.TokenPair, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.AuthEvent("login", "unknown_user")
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.logger.Warn("stored password hash unreadable", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	if !ok {
		s.metrics.AuthEvent("login", "incorrect_password")
		return domain.TokenPair{}, ErrIncorrectPassword
	}
	if !user.Active {
		s.metrics.AuthEvent("login", "inactive")
		return domain.TokenPair{}, ErrInactiveAccount
	}

	pair, err := s.CompleteLogin(ctx, user.Identity, clientIP)
	if err != nil {
		s.metrics.AuthEvent("login", "error")
		return domain.TokenPair{}, err
	}
	s.metrics.AuthEvent("login", "success")
	return pair, nil
}

// Refresh exchanges a refresh token with a live session for a new pair.
// The previous session record is left to expire on its own.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, clientIP string) (domain.TokenPair, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Refresh")
	defer span.End()

	identity, payload, err := s.resolve(ctx, refreshToken, domain.ScopeRefresh)
	if err != nil {
		s.metrics.AuthEvent("refresh", "rejected")
		return domain.TokenPair{}, err
	}

	value, found, err := s.tokens.GetSession(ctx, refreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if !found {
		s.metrics.AuthEvent("refresh", "no_session")
		return domain.TokenPair{}, ErrSessionNotFound
	}
	if owner, _, err := domain.ParseUserInfo(value); err != nil || owner != identity.ID {
		s.logger.Warn("refresh session owner mismatch", zap.String("jti", payload.JTI))
		return domain.TokenPair{}, ErrSessionNotFound
	}

	pair, err := s.CompleteLogin(ctx, identity, clientIP)
	if err != nil {
		s.metrics.AuthEvent("refresh", "error")
		return domain.TokenPair{}, err
	}
	s.metrics.AuthEvent("refresh", "success")
	return pair, nil
}

// Authenticate resolves the identity behind an access token.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (domain.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Authenticate")
	defer span.End()

	identity, _, err := s.resolve(ctx, accessToken, domain.ScopeAccess)
	return identity, err
}

// Logout blacklists the access token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	ctx, span := s.tracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	identity, payload, err := s.resolve(ctx, accessToken, domain.ScopeAccess)
	if err != nil {
		return err
	}

	written, err := s.tokens.BlacklistToken(ctx, accessToken)
	if err != nil || !written {
		logger.WithContext(ctx).Error("blacklist token failed", zap.Error(err))
		s.metrics.AuthEvent("logout", "error")
		if err != nil {
			return fmt.Errorf("%w: %w", ErrLogoutFailed, err)
		}
		return ErrLogoutFailed
	}
	s.metrics.AuthEvent("logout", "success")

	if s.events != nil {
		event := domain.UserLoggedOutEvent{
			EventID:     uuid.NewString(),
			UserID:      identity.ID.String(),
			TokenID:     payload.JTI,
			LoggedOutAt: s.now().UTC(),
		}
		if err := s.events.PublishUserLoggedOut(ctx, event); err != nil {
			s.logger.Warn("publish logout event failed", zap.Error(err))
		}
	}
	return nil
}

// resolve checks the blacklist, decodes the token, enforces the scope and loads
// the identity cache-first.
func (s *AuthService) resolve(ctx context.Context, token string, scope domain.Scope) (domain.Identity, domain.TokenPayload, error) {
	blacklisted, err := s.tokens.IsBlacklisted(ctx, token)
	if err != nil {
		if !s.policy.AllowsFallback(domain.DegradationReasonTokenBlacklistUnavailable) {
			return domain.Identity{}, domain.TokenPayload{}, err
		}
		logger.WithContext(ctx).Warn("token blacklist unavailable, continuing", zap.Error(err))
	}
	if blacklisted {
		return domain.Identity{}, domain.TokenPayload{}, ErrTokenBlacklisted
	}

	payload, err := s.codec.Decode(token)
	if err != nil {
		return domain.Identity{}, domain.TokenPayload{}, err
	}
	if payload.PreferredUsername == "" || payload.Subject == "" {
		return domain.Identity{}, domain.TokenPayload{}, ErrMissingClaims
	}
	if payload.Scope != scope {
		return domain.Identity{}, domain.TokenPayload{}, ErrWrongScope
	}

	userID, err := domain.SubjectUserID(payload.Subject)
	if err != nil {
		return domain.Identity{}, domain.TokenPayload{}, err
	}

	identity, err := s.loadIdentity(ctx, userID, payload.PreferredUsername)
	if err != nil {
		return domain.Identity{}, domain.TokenPayload{}, err
	}
	return identity, payload, nil
}

func (s *AuthService) loadIdentity(ctx context.Context, userID uuid.UUID, username string) (domain.Identity, error) {
	if s.identities != nil {
		cached, err := s.identities.Get(ctx, userID)
		switch {
		case err != nil && !s.policy.AllowsFallback(domain.DegradationReasonIdentityCacheUnavailable):
			return domain.Identity{}, err
		case err != nil:
			logger.WithContext(ctx).Warn("identity cache unavailable, reading from database", zap.Error(err))
		case cached != nil:
			return *cached, nil
		}
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Identity{}, ErrUserNotFound
		}
		return domain.Identity{}, fmt.Errorf("lookup user: %w", err)
	}
	if user.ID != userID {
		return domain.Identity{}, ErrUserNotFound
	}

	if s.identities != nil {
		if err := s.identities.Set(ctx, user.Identity); err != nil {
			logger.WithContext(ctx).Warn("identity cache write failed", zap.Error(err))
		}
	}
	return user.Identity, nil
}
