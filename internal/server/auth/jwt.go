// Package auth issues and checks the HS256 bearer tokens that guard the
// query, ingest and REST channels when a secret key is configured.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/registadb/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the registered claims only; the subject names the client.
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateToken signs a token for subject valid for the given duration.
func GenerateToken(subject string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies tokenString against secretKey and returns its subject.
// Every failure wraps common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: token expired", common.ErrInvalidToken)
		}
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}

// Verifier checks authorization values. A Verifier with an empty secret
// accepts everything, which is how auth is switched off.
type Verifier struct {
	secret []byte
}

// NewVerifier returns a Verifier for secretKey.
func NewVerifier(secretKey string) *Verifier {
	return &Verifier{secret: []byte(secretKey)}
}

// Enabled reports whether tokens are required.
func (v *Verifier) Enabled() bool {
	return v != nil && len(v.secret) > 0
}

// Check validates an authorization value of the form "Bearer <token>" and
// returns the token subject. It returns "" and nil when auth is disabled.
func (v *Verifier) Check(authorization string) (string, error) {
	if !v.Enabled() {
		return "", nil
	}
	token, ok := strings.CutPrefix(authorization, common.BearerPrefix)
	if !ok || token == "" {
		return "", fmt.Errorf("%w: missing bearer token", common.ErrInvalidToken)
	}
	return ParseToken(token, v.secret)
}
