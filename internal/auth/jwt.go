// Package auth issues and validates the bearer tokens that guard the admin
// and ops endpoints. Tokens are minted offline by the worker's token
// command; there is no login or refresh flow.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultTokenExpiry applies when the caller passes no lifetime.
	DefaultTokenExpiry = 12 * time.Hour

	// ScopeAdmin is the only scope the API accepts.
	ScopeAdmin = "admin"

	// clockSkew is tolerated on exp and nbf between the minting host and
	// the API.
	clockSkew = 30 * time.Second
)

var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrAccessTokenExpired = errors.New("access token has expired")
	ErrMissingSigningKey  = errors.New("jwt signing key is not configured")
	ErrInsufficientScope  = errors.New("token scope does not allow this operation")
)

// JWTClaims are the claims of an admin token.
type JWTClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

// JWTConfig holds configuration for the JWT service.
type JWTConfig struct {
	// SigningKey is the HS256 secret, JWT_SIGNING_KEY.
	SigningKey string
	Issuer     string
	Audience   string
}

// JWTService mints and checks HS256 admin tokens.
type JWTService struct {
	key    []byte
	issuer string
	aud    string
	parser *jwt.Parser
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg JWTConfig) *JWTService {
	return &JWTService{
		key:    []byte(cfg.SigningKey),
		issuer: cfg.Issuer,
		aud:    cfg.Audience,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
	}
}

// GenerateAccessToken mints an admin token for subject. A non-positive ttl
// selects DefaultTokenExpiry. The token ID is a random UUID so individual
// tokens can be traced in the audit log.
func (s *JWTService) GenerateAccessToken(subject string, ttl time.Duration) (string, time.Time, error) {
	if len(s.key) == 0 {
		return "", time.Time{}, ErrMissingSigningKey
	}
	if ttl <= 0 {
		ttl = DefaultTokenExpiry
	}

	now := time.Now()
	exp := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{s.aud},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Scope: ScopeAdmin,
	})

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token for %s: %w", subject, err)
	}
	return signed, exp, nil
}

// ValidateAccessToken checks signature, issuer, audience and expiry, and
// returns the claims. It does not look at the scope.
func (s *JWTService) ValidateAccessToken(raw string) (*JWTClaims, error) {
	if len(s.key) == 0 {
		return nil, ErrMissingSigningKey
	}

	var claims JWTClaims
	_, err := s.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrAccessTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccessToken, err)
	case claims.Subject == "":
		return nil, fmt.Errorf("%w: no subject", ErrInvalidAccessToken)
	}
	return &claims, nil
}

// ValidateAdminToken validates raw, requires the admin scope and returns
// the subject.
func (s *JWTService) ValidateAdminToken(raw string) (string, error) {
	claims, err := s.ValidateAccessToken(raw)
	if err != nil {
		return "", err
	}
	if claims.Scope != ScopeAdmin {
		return "", ErrInsufficientScope
	}
	return claims.Subject, nil
}
