package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/arklim/authgate/internal/core/domain"
	"github.com/arklim/authgate/internal/core/port"
	"github.com/arklim/authgate/internal/infra/config"
	"github.com/arklim/authgate/internal/infra/logger"
	"github.com/arklim/authgate/internal/infra/security"
	"github.com/arklim/authgate/internal/repository"
)

const (
	googleIssuer  = "https://accounts.google.com"
	googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

	googleGrantTTL   = 10 * time.Minute
	oauthStateLength = 32
)

var (
	// ErrOAuthDisabled indicates Google credentials are not configured.
	ErrOAuthDisabled = errors.New("google login is not configured")
	// ErrOAuthStateInvalid indicates the state parameter is unknown, expired or already used.
	ErrOAuthStateInvalid = errors.New("invalid oauth state")
	// ErrOAuthExchange indicates the authorization code could not be exchanged or verified.
	ErrOAuthExchange = errors.New("google authorization failed")
)

type codeExchanger interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

type idTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// GoogleAuthService runs the authorization code flow and signs users in by their verified Google email.
type GoogleAuthService struct {
	oauth    codeExchanger
	verifier idTokenVerifier
	states   port.OAuthStateStore
	users    port.UserRepository
	auth     *AuthService
	logger   *zap.Logger
	now      func() time.Time
}

// NewGoogleAuthService wires the Google endpoints. Signing keys are fetched lazily on first verification.
func NewGoogleAuthService(ctx context.Context, cfg config.GoogleSettings, states port.OAuthStateStore, users port.UserRepository, auth *AuthService, logger *zap.Logger) (*GoogleAuthService, error) {
	if !cfg.Enabled() {
		return nil, ErrOAuthDisabled
	}
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
	}
	keys := oidc.NewRemoteKeySet(ctx, googleJWKSURL)
	verifier := oidc.NewVerifier(googleIssuer, keys, &oidc.Config{ClientID: cfg.ClientID})
	return newGoogleAuthService(oauthCfg, verifier, states, users, auth, logger), nil
}

func newGoogleAuthService(oauth codeExchanger, verifier idTokenVerifier, states port.OAuthStateStore, users port.UserRepository, auth *AuthService, logger *zap.Logger) *GoogleAuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleAuthService{
		oauth:    oauth,
		verifier: verifier,
		states:   states,
		users:    users,
		auth:     auth,
		logger:   logger,
		now:      time.Now,
	}
}

// LoginURL stores a fresh state value and returns the Google consent URL.
func (s *GoogleAuthService) LoginURL(ctx context.Context) (string, error) {
	state, err := security.GenerateSecureToken(oauthStateLength)
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	if err := s.states.Save(ctx, state); err != nil {
		return "", fmt.Errorf("save state: %w", err)
	}
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// Callback consumes the state, exchanges the code, verifies the ID token and
// completes the login for the matching account.
func (s *GoogleAuthService) Callback(ctx context.Context, code, state, clientIP string) (domain.OAuth2TokenResponse, error) {
	if strings.TrimSpace(code) == "" {
		return domain.OAuth2TokenResponse{}, fmt.Errorf("%w: missing code", ErrOAuthExchange)
	}
	consumed, err := s.states.Consume(ctx, state)
	if err != nil {
		return domain.OAuth2TokenResponse{}, err
	}
	if !consumed {
		return domain.OAuth2TokenResponse{}, ErrOAuthStateInvalid
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return domain.OAuth2TokenResponse{}, fmt.Errorf("%w: %w", ErrOAuthExchange, err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return domain.OAuth2TokenResponse{}, fmt.Errorf("%w: id_token missing", ErrOAuthExchange)
	}
	idToken, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return domain.OAuth2TokenResponse{}, fmt.Errorf("%w: %w", ErrOAuthExchange, err)
	}
	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return domain.OAuth2TokenResponse{}, fmt.Errorf("%w: %w", ErrOAuthExchange, err)
	}
	if claims.Email == "" || !claims.EmailVerified {
		return domain.OAuth2TokenResponse{}, fmt.Errorf("%w: email not verified", ErrOAuthExchange)
	}

	user, err := s.users.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.WithContext(ctx).Info("google login for unknown email", logger.Email(claims.Email))
			s.auth.metrics.AuthEvent("google", "unknown_user")
			return domain.OAuth2TokenResponse{}, ErrInvalidCredentials
		}
		return domain.OAuth2TokenResponse{}, fmt.Errorf("lookup user: %w", err)
	}
	if !user.Active {
		return domain.OAuth2TokenResponse{}, ErrInactiveAccount
	}

	pair, err := s.auth.CompleteLogin(ctx, user.Identity, clientIP)
	if err != nil {
		s.auth.metrics.AuthEvent("google", "error")
		return domain.OAuth2TokenResponse{}, err
	}
	s.auth.metrics.AuthEvent("google", "success")
	return domain.OAuth2TokenResponse{
		TokenResponse: domain.NewTokenResponse(pair),
		ExpireIn:      s.now().Add(googleGrantTTL).Unix(),
	}, nil
}
