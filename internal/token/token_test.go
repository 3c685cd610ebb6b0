package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signTestToken(t *testing.T, claims jwt.Claims) string {
	t.Helper()

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("SignedString() unexpected error: %v", err)
	}
	return s
}

func TestInspect(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	iat := exp.Add(-2 * time.Hour)

	raw := signTestToken(t, jwt.RegisteredClaims{
		Subject:   "user-42",
		Issuer:    "smartkrishi-api",
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(iat),
	})

	c, err := Inspect(raw)
	if err != nil {
		t.Fatalf("Inspect() unexpected error: %v", err)
	}
	if c.Subject != "user-42" {
		t.Errorf("Inspect() Subject = %q, want %q", c.Subject, "user-42")
	}
	if c.Issuer != "smartkrishi-api" {
		t.Errorf("Inspect() Issuer = %q, want %q", c.Issuer, "smartkrishi-api")
	}
	if !c.ExpiresAt.Equal(exp) {
		t.Errorf("Inspect() ExpiresAt = %v, want %v", c.ExpiresAt, exp)
	}
	if !c.IssuedAt.Equal(iat) {
		t.Errorf("Inspect() IssuedAt = %v, want %v", c.IssuedAt, iat)
	}
	if c.Expired(time.Now()) {
		t.Error("Expired() = true for a token valid for another hour")
	}
}

func TestInspectExpiredToken(t *testing.T) {
	exp := time.Now().Add(-time.Minute)
	raw := signTestToken(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})

	c, err := Inspect(raw)
	if err != nil {
		t.Fatalf("Inspect() unexpected error: %v", err)
	}
	if !c.Expired(time.Now()) {
		t.Error("Expired() = false for an expired token")
	}
}

func TestInspectNoExpiry(t *testing.T) {
	raw := signTestToken(t, jwt.RegisteredClaims{Subject: "u"})

	c, err := Inspect(raw)
	if err != nil {
		t.Fatalf("Inspect() unexpected error: %v", err)
	}
	if !c.ExpiresAt.IsZero() {
		t.Errorf("Inspect() ExpiresAt = %v, want zero", c.ExpiresAt)
	}
	if c.Expired(time.Now().Add(100 * 365 * 24 * time.Hour)) {
		t.Error("Expired() = true for a token without expiry")
	}
}

func TestInspectOpaqueToken(t *testing.T) {
	for _, raw := range []string{"", "opaque-session-id", "a.b.c"} {
		if _, err := Inspect(raw); err != ErrNotJWT {
			t.Errorf("Inspect(%q) error = %v, want ErrNotJWT", raw, err)
		}
	}
}
