// Package auth verifies identity tokens issued by the campus identity
// service. The chat core only needs the verified user id.
package auth

import (
	"campusconnect/backend/internal/apperrors"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("token is missing")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims carries the user id in the standard subject claim.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate signs an HS256 token for userID. Production tokens come from the
// identity service; this is used by tooling and tests.
func (m *TokenManager) Generate(userID, email string) (string, error) {
	now := m.now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Validate parses and verifies the token and returns its claims.
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate resolves a token to a user id. Any failure is a protocol
// violation from the live channel's point of view.
func (m *TokenManager) Authenticate(tokenString string) (string, error) {
	claims, err := m.Validate(tokenString)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrProtocolViolation, err)
	}
	return claims.Subject, nil
}
