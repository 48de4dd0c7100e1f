// Package jwt issues and verifies the short-lived bearer tokens the relay
// hands to clients for direct uploads.
//
// The service is parameterized by a claims type T, which must implement
// jwt.Claims (typically by embedding jwt.RegisteredClaims):
//
//	svc, err := jwt.NewService(&cfg, func() *jwt.RegisteredClaims { return &jwt.RegisteredClaims{} })
//	issued, err := svc.Issue(&jwt.RegisteredClaims{Subject: "client"})
//	claims, err := svc.Parse(issued.Token)
//
// ExpiresAt reads the exp claim without verifying the signature. Clients use
// it to schedule refreshes for tokens they cannot verify.
package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// RegisteredClaims re-exports the standard claims so callers need not import
// golang-jwt directly.
type RegisteredClaims = gojwt.RegisteredClaims

// Issued is a signed token with its validity window.
type Issued struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Service provides token issuing and parsing for claims type T.
type Service[T gojwt.Claims] struct {
	cfg      Config
	newEmpty func() T
	now      func() time.Time
}

// NewService creates a token service. newEmpty returns a zero-value T for parsing.
func NewService[T gojwt.Claims](cfg *Config, newEmpty func() T) (*Service[T], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service[T]{cfg: *cfg, newEmpty: newEmpty, now: time.Now}, nil
}

// WithClock replaces the time source used for iat/exp.
func (s *Service[T]) WithClock(now func() time.Time) *Service[T] {
	s.now = now
	return s
}

// TTL returns the configured token lifetime.
func (s *Service[T]) TTL() time.Duration { return s.cfg.TTL }

// Sign signs claims as given.
func (s *Service[T]) Sign(claims T) (string, error) {
	token := gojwt.NewWithClaims(s.cfg.signingMethod(), claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// Issue stamps iat, exp, iss and aud onto claims and signs them. Claims must
// expose their RegisteredClaims through a SetTimes method or be a
// *RegisteredClaims.
func (s *Service[T]) Issue(claims T) (Issued, error) {
	now := s.now().Truncate(time.Second)
	exp := now.Add(s.cfg.TTL)

	rc, ok := registered(claims)
	if !ok {
		return Issued{}, errors.New("jwt: claims type does not expose registered claims")
	}
	rc.IssuedAt = gojwt.NewNumericDate(now)
	rc.NotBefore = gojwt.NewNumericDate(now)
	rc.ExpiresAt = gojwt.NewNumericDate(exp)
	if s.cfg.Issuer != "" {
		rc.Issuer = s.cfg.Issuer
	}
	if s.cfg.Audience != "" {
		rc.Audience = gojwt.ClaimStrings{s.cfg.Audience}
	}

	signed, err := s.Sign(claims)
	if err != nil {
		return Issued{}, err
	}
	return Issued{Token: signed, IssuedAt: now, ExpiresAt: exp}, nil
}

// Parse verifies the signature, expiry and, when configured, issuer and audience.
func (s *Service[T]) Parse(tokenString string) (T, error) {
	var zero T
	claims := s.newEmpty()
	token, err := gojwt.ParseWithClaims(tokenString, claims, s.keyFunc, s.parserOptions()...)
	if err != nil {
		return zero, fmt.Errorf("jwt: parse token: %w", err)
	}
	if !token.Valid {
		return zero, errors.New("jwt: invalid token")
	}
	parsed, ok := token.Claims.(T)
	if !ok {
		return zero, errors.New("jwt: unexpected claims type")
	}
	return parsed, nil
}

func (s *Service[T]) keyFunc(token *gojwt.Token) (interface{}, error) {
	if token.Method.Alg() != s.cfg.signingMethod().Alg() {
		return nil, fmt.Errorf("jwt: unexpected signing method: %s", token.Method.Alg())
	}
	return []byte(s.cfg.Secret), nil
}

func (s *Service[T]) parserOptions() []gojwt.ParserOption {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{s.cfg.signingMethod().Alg()}),
		gojwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(s.cfg.Issuer))
	}
	if s.cfg.Audience != "" {
		opts = append(opts, gojwt.WithAudience(s.cfg.Audience))
	}
	return opts
}

// registeredClaimsHolder is implemented by claims types that embed
// RegisteredClaims and want Issue to stamp them.
type registeredClaimsHolder interface {
	Registered() *RegisteredClaims
}

func registered(claims any) (*RegisteredClaims, bool) {
	switch c := claims.(type) {
	case *RegisteredClaims:
		return c, true
	case registeredClaimsHolder:
		return c.Registered(), true
	default:
		return nil, false
	}
}

// ExpiresAt returns the exp claim of a token without verifying it. The
// second result is false when the token is malformed or has no exp.
func ExpiresAt(tokenString string) (time.Time, bool) {
	var claims RegisteredClaims
	if _, _, err := gojwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
