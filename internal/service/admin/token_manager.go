package admin

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the role claim required on back-office requests.
const RoleAdmin = "admin"

var (
	ErrNoSecret     = errors.New("admin token secret not configured")
	ErrInvalidToken = errors.New("invalid admin token")
)

// Claims are carried in admin bearer tokens.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 admin tokens.
type TokenManager struct {
	secret []byte
	now    func() time.Time
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret), now: time.Now}
}

// Issue mints a token for subject that expires after ttl.
func (m *TokenManager) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	if len(m.secret) == 0 {
		return "", time.Time{}, ErrNoSecret
	}
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("ttl must be positive, got %s", ttl)
	}
	now := m.now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strings.TrimSpace(subject),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate checks signature, expiry and role.
func (m *TokenManager) Validate(token string) (*Claims, error) {
	if len(m.secret) == 0 {
		return nil, ErrNoSecret
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Role != RoleAdmin {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidToken, claims.Role)
	}
	return claims, nil
}
