package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/ashworth-collective/backend-club/internal/common"
)

// Identity is the authenticated principal extracted from a bearer token.
type Identity struct {
	Subject string
}

// Config describes how tokens from the external identity provider are verified.
type Config struct {
	Issuer       string
	Audience     string
	JWKSURL      string
	SharedSecret string
	ClockSkew    time.Duration
}

// Service verifies bearer tokens issued by the external identity provider.
// The provider owns credentials and sessions; this service only checks
// signatures and standard claims, then maps the subject onto a member.
type Service struct {
	cfg       Config
	keySet    jwk.Set
	secretKey jwk.Key
	algorithm jwa.SignatureAlgorithm
	validator TokenValidator
	now       func() time.Time
}

// NewService constructs a token verification service. When JWKSURL is set the
// key set is fetched and refreshed in the background; otherwise SharedSecret
// is used with HS256 (development and tests).
func NewService(ctx context.Context, cfg Config) (*Service, error) {
	s := &Service{
		cfg: cfg,
		validator: TokenValidator{
			Issuer:    cfg.Issuer,
			Audience:  cfg.Audience,
			ClockSkew: cfg.ClockSkew,
		},
		now: time.Now,
	}
	switch {
	case strings.TrimSpace(cfg.JWKSURL) != "":
		cache := jwk.NewCache(ctx)
		if err := cache.Register(cfg.JWKSURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
			return nil, fmt.Errorf("auth: register jwks: %w", err)
		}
		if _, err := cache.Refresh(ctx, cfg.JWKSURL); err != nil {
			return nil, fmt.Errorf("auth: fetch jwks: %w", err)
		}
		s.keySet = jwk.NewCachedSet(cache, cfg.JWKSURL)
		s.algorithm = jwa.RS256
		s.validator.Algorithm = jwa.RS256
	case cfg.SharedSecret != "":
		key, err := jwk.FromRaw([]byte(cfg.SharedSecret))
		if err != nil {
			return nil, fmt.Errorf("auth: build shared secret key: %w", err)
		}
		s.secretKey = key
		s.algorithm = jwa.HS256
		s.validator.Algorithm = jwa.HS256
	default:
		return nil, errors.New("auth: no key source configured")
	}
	return s, nil
}

// ParseBearer verifies the raw token and returns the provider subject.
func (s *Service) ParseBearer(_ context.Context, raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}

	parseOpts := []jwt.ParseOption{jwt.WithValidate(false)}
	if s.keySet != nil {
		parseOpts = append(parseOpts, jwt.WithKeySet(s.keySet))
	} else {
		parseOpts = append(parseOpts, jwt.WithKey(s.algorithm, s.secretKey))
	}
	token, err := jwt.Parse([]byte(raw), parseOpts...)
	if err != nil {
		return Identity{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}

	algorithm, err := tokenAlgorithm(raw)
	if err != nil {
		return Identity{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if err := s.validator.Validate(token, algorithm, s.now()); err != nil {
		return Identity{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	subject := strings.TrimSpace(token.Subject())
	if subject == "" {
		return Identity{}, common.NewAppError("UNAUTHORIZED", "token missing subject", http.StatusUnauthorized, nil)
	}
	return Identity{Subject: subject}, nil
}

func tokenAlgorithm(raw string) (jwa.SignatureAlgorithm, error) {
	msg, err := jws.ParseString(raw)
	if err != nil {
		return "", err
	}
	signatures := msg.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token has no signature")
	}
	return signatures[0].ProtectedHeaders().Algorithm(), nil
}
