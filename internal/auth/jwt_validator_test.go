package auth

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

func buildToken(t *testing.T, issuer string, notBefore, expires time.Time) jwt.Token {
	t.Helper()
	tok, err := jwt.NewBuilder().
		Issuer(issuer).
		Audience([]string{"club-api"}).
		Subject("auth0|member-1").
		IssuedAt(notBefore).
		NotBefore(notBefore).
		Expiration(expires).
		Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	return tok
}

func TestTokenValidator(t *testing.T) {
	now := time.Now()
	validator := TokenValidator{
		Issuer:    "https://idp.club.example/",
		Audience:  "club-api",
		ClockSkew: time.Second,
		Algorithm: jwa.HS256,
	}

	tests := []struct {
		name      string
		token     jwt.Token
		algorithm jwa.SignatureAlgorithm
		wantErr   bool
	}{
		{
			name:      "valid token",
			token:     buildToken(t, "https://idp.club.example/", now, now.Add(time.Minute)),
			algorithm: jwa.HS256,
		},
		{
			name:      "issuer mismatch",
			token:     buildToken(t, "https://other.example/", now, now.Add(time.Minute)),
			algorithm: jwa.HS256,
			wantErr:   true,
		},
		{
			name:      "expired",
			token:     buildToken(t, "https://idp.club.example/", now.Add(-2*time.Hour), now.Add(-time.Minute)),
			algorithm: jwa.HS256,
			wantErr:   true,
		},
		{
			name:      "not yet valid",
			token:     buildToken(t, "https://idp.club.example/", now.Add(5*time.Minute), now.Add(10*time.Minute)),
			algorithm: jwa.HS256,
			wantErr:   true,
		},
		{
			name:      "algorithm mismatch",
			token:     buildToken(t, "https://idp.club.example/", now, now.Add(time.Minute)),
			algorithm: jwa.RS256,
			wantErr:   true,
		},
		{
			name:      "missing algorithm",
			token:     buildToken(t, "https://idp.club.example/", now, now.Add(time.Minute)),
			algorithm: "",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(tt.token, tt.algorithm, now)
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("validate: %v", err)
			}
		})
	}
}
