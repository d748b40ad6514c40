// Package auth issues and verifies the session tokens of registered users.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidToken is returned for tokens which are malformed, expired or not signed by us.
var ErrInvalidToken = errors.New("invalid token")

const (
	issuer          = "url-shortener"
	minSecretLength = 32
)

// Token is a signed session token.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates an HS256 token manager. The secret must be at least 32 bytes long.
func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	const op = "auth.NewTokenManager"

	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("%s: secret must be at least %d bytes long", op, minSecretLength)
	}

	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a token for the user with the given id.
func (m *TokenManager) Issue(userID int64) (Token, error) {
	const op = "auth.TokenManager.Issue"

	now := m.now()
	expiresAt := now.Add(m.ttl)

	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Token{}, fmt.Errorf("%s: failed to sign token: %w", op, err)
	}

	return Token{Value: signed, ExpiresAt: expiresAt}, nil
}

// Parse verifies token and returns the id of the user it was issued for.
func (m *TokenManager) Parse(token string) (int64, error) {
	const op = "auth.TokenManager.Parse"

	var claims jwt.RegisteredClaims

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %v", op, ErrInvalidToken, err)
	}

	if !claims.VerifyIssuer(issuer, true) {
		return 0, fmt.Errorf("%s: %w: unexpected issuer", op, ErrInvalidToken)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: malformed subject", op, ErrInvalidToken)
	}

	return userID, nil
}
