package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
)

const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

type Claims struct {
	Email     string `json:"email"`
	Role      string `json:"role,omitempty"`
	Name      string `json:"name,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func (c Claims) Kind() string {
	return c.TokenType
}

// Manager issues and verifies HS256 tokens signed with a single secret.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func New(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (m *Manager) NewAccessToken(email, role, name string, now time.Time) (string, error) {
	const op = "jwt.NewAccessToken"

	claims := Claims{
		Email:            email,
		Role:             role,
		Name:             name,
		TokenType:        KindAccess,
		RegisteredClaims: registered(email, now, m.accessTTL),
	}

	token, err := m.sign(claims)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

func (m *Manager) NewRefreshToken(email string, now time.Time) (string, error) {
	const op = "jwt.NewRefreshToken"

	claims := Claims{
		Email:            email,
		TokenType:        KindRefresh,
		RegisteredClaims: registered(email, now, m.refreshTTL),
	}

	token, err := m.sign(claims)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// Verify checks the signature and expiry of tokenStr as of now.
// Only ErrTokenExpired and ErrTokenInvalid are returned, parser details are dropped.
func (m *Manager) Verify(tokenStr string, now time.Time) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}

	var claims Claims

	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}

	if !token.Valid || claims.Email == "" {
		return Claims{}, ErrTokenInvalid
	}

	return claims, nil
}

func (m *Manager) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(m.secret)
}

func registered(email string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}
