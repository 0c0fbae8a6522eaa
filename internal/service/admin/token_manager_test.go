package admin

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndValidate(t *testing.T) {
	m := NewTokenManager("s3cret")
	token, exp, err := m.Issue("ops", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if exp.Before(time.Now()) {
		t.Fatalf("expected future expiry, got %s", exp)
	}
	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "ops" || claims.Role != RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateRejectsExpiredAndForeign(t *testing.T) {
	m := NewTokenManager("s3cret")
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := m.Issue("ops", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	m.now = time.Now
	if _, err := m.Validate(old); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}

	other := NewTokenManager("different")
	token, _, _ := other.Issue("ops", time.Hour)
	if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected foreign token rejected, got %v", err)
	}
}

func TestValidateRequiresAdminRole(t *testing.T) {
	claims := Claims{Role: "customer", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewTokenManager("s3cret").Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected role rejection, got %v", err)
	}
}

func TestNoSecret(t *testing.T) {
	m := NewTokenManager("")
	if _, _, err := m.Issue("ops", time.Hour); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected no secret, got %v", err)
	}
	if _, err := m.Validate("x"); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected no secret, got %v", err)
	}
}
