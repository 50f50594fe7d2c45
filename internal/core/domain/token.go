package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Scope distinguishes access tokens from refresh tokens.
type Scope string

const (
	ScopeAccess  Scope = "access_token"
	ScopeRefresh Scope = "refresh_token"
)

// SubjectPrefix precedes the user identifier in the sub claim.
const SubjectPrefix = "username:"

// TokenTypeBearer is returned in every token response.
const TokenTypeBearer = "bearer"

var subjectPattern = regexp.MustCompile(
	`^username:[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`,
)

var (
	// ErrInvalidSubject reports a sub claim that is not "username:<uuid v4>".
	ErrInvalidSubject = errors.New("invalid token subject")
	// ErrInvalidPayload reports a payload whose time claims are inconsistent.
	ErrInvalidPayload = errors.New("invalid token payload")
)

// PublicClaims are the OIDC profile claims carried in every token.
type PublicClaims struct {
	Email             string   `json:"email"`
	Nickname          string   `json:"nickname"`
	PreferredUsername string   `json:"preferred_username"`
	GivenName         string   `json:"given_name,omitempty"`
	FamilyName        string   `json:"family_name,omitempty"`
	MiddleName        string   `json:"middle_name,omitempty"`
	Gender            Gender   `json:"gender,omitempty"`
	Birthdate         string   `json:"birthdate,omitempty"`
	UpdatedAt         int64    `json:"updated_at,omitempty"`
	PhoneNumber       string   `json:"phone_number,omitempty"`
	Address           *Address `json:"address,omitempty"`
}

// TokenPayload is the full claim set of an access or refresh token.
// Time claims are unix seconds.
type TokenPayload struct {
	Subject       string   `json:"sub"`
	ExpiresAt     int64    `json:"exp"`
	NotBefore     int64    `json:"nbf"`
	IssuedAt      int64    `json:"iat"`
	JTI           string   `json:"jti"`
	SessionID     string   `json:"sid"`
	Scope         Scope    `json:"scope"`
	Audience      string   `json:"aud,omitempty"`
	Issuer        string   `json:"iss,omitempty"`
	AtUseNbr      int      `json:"at_use_nbr"`
	Nationalities []string `json:"nationalities,omitempty"`
	PublicClaims
}

// Validate checks the subject format and the ordering of time claims.
func (p TokenPayload) Validate() error {
	if err := ValidateSubject(p.Subject); err != nil {
		return err
	}
	if p.ExpiresAt <= p.NotBefore {
		return fmt.Errorf("%w: exp must be after nbf", ErrInvalidPayload)
	}
	if p.NotBefore > p.IssuedAt {
		return fmt.Errorf("%w: nbf must not be after iat", ErrInvalidPayload)
	}
	return nil
}

// ValidateSubject rejects subjects not shaped as "username:<uuid v4>".
func ValidateSubject(sub string) error {
	if !subjectPattern.MatchString(sub) {
		return ErrInvalidSubject
	}
	return nil
}

// SubjectUserID extracts the user identifier from a validated subject.
func SubjectUserID(sub string) (uuid.UUID, error) {
	if err := ValidateSubject(sub); err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(strings.TrimPrefix(sub, SubjectPrefix))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidSubject, err)
	}
	return id, nil
}

// TokenPair groups the two tokens issued on login or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenResponse is returned by the password login and refresh flows.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// NewTokenResponse wraps a pair with the bearer token type.
func NewTokenResponse(pair TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    TokenTypeBearer,
	}
}

// OAuth2TokenResponse adds the unix expiry of the Google login grant.
type OAuth2TokenResponse struct {
	TokenResponse
	ExpireIn int64 `json:"expire_in"`
}
