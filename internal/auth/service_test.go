package auth

import (
	"context"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), Config{
		Issuer:       "https://id.example.test",
		Audience:     "club-api",
		SharedSecret: testSecret,
		ClockSkew:    time.Second,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func signToken(t *testing.T, secret string, mutate func(b *jwt.Builder)) string {
	t.Helper()
	now := time.Now()
	builder := jwt.NewBuilder().
		Issuer("https://id.example.test").
		Audience([]string{"club-api"}).
		Subject("idp|alex").
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(time.Minute))
	if mutate != nil {
		mutate(builder)
	}
	token, err := builder.Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	key, err := jwk.FromRaw([]byte(secret))
	if err != nil {
		t.Fatalf("build key: %v", err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, key))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(signed)
}

func TestParseBearerSuccess(t *testing.T) {
	svc := testService(t)
	identity, err := svc.ParseBearer(context.Background(), signToken(t, testSecret, nil))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if identity.Subject != "idp|alex" {
		t.Fatalf("unexpected subject %q", identity.Subject)
	}
}

func TestParseBearerWrongSecret(t *testing.T) {
	svc := testService(t)
	other := "ffffffffffffffffffffffffffffffff"
	if _, err := svc.ParseBearer(context.Background(), signToken(t, other, nil)); err == nil {
		t.Fatal("expected signature verification failure")
	}
}

func TestParseBearerExpired(t *testing.T) {
	svc := testService(t)
	raw := signToken(t, testSecret, func(b *jwt.Builder) {
		past := time.Now().Add(-time.Hour)
		b.IssuedAt(past).NotBefore(past).Expiration(past.Add(time.Minute))
	})
	if _, err := svc.ParseBearer(context.Background(), raw); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseBearerIssuerMismatch(t *testing.T) {
	svc := testService(t)
	raw := signToken(t, testSecret, func(b *jwt.Builder) {
		b.Issuer("https://evil.example.test")
	})
	if _, err := svc.ParseBearer(context.Background(), raw); err == nil {
		t.Fatal("expected issuer mismatch to be rejected")
	}
}

func TestParseBearerMissingSubject(t *testing.T) {
	svc := testService(t)
	raw := signToken(t, testSecret, func(b *jwt.Builder) {
		b.Subject("")
	})
	if _, err := svc.ParseBearer(context.Background(), raw); err == nil {
		t.Fatal("expected missing subject to be rejected")
	}
}

func TestParseBearerEmptyToken(t *testing.T) {
	svc := testService(t)
	if _, err := svc.ParseBearer(context.Background(), "  "); err == nil {
		t.Fatal("expected empty token to be rejected")
	}
}
