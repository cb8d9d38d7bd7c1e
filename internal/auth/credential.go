package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mwhitlock/tether/internal/models"
)

// CredentialMinter mints and validates backend session credentials. A
// credential is an opaque signed JWT with a fixed validity window and a
// JTI; expiry checks are local decodes, never network calls.
type CredentialMinter struct {
	secret string
	ttl    time.Duration
}

// NewCredentialMinter creates a new CredentialMinter
func NewCredentialMinter(secret string, ttl time.Duration) *CredentialMinter {
	return &CredentialMinter{
		secret: secret,
		ttl:    ttl,
	}
}

// TTL returns the configured validity window.
func (cm *CredentialMinter) TTL() time.Duration {
	return cm.ttl
}

// Mint creates a session credential for the given user id and returns the
// signed token with its expiry.
func (cm *CredentialMinter) Mint(userID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(cm.ttl)

	claims := &models.CredentialClaims{
		Type:   "session",
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(cm.secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session credential: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Validate verifies a credential and returns its claims.
func (cm *CredentialMinter) Validate(tokenString string) (*models.CredentialClaims, error) {
	claims := &models.CredentialClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cm.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse credential: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Type != "session" {
		return nil, fmt.Errorf("invalid credential: wrong type %q", claims.Type)
	}

	return claims, nil
}

// ExpiresWithin reports whether the credential expires inside the buffer
// window. A token that fails to decode, carries no expiry, or is already
// past it also counts as expired so callers always remint. This runs on
// every protected access, so it is a pure local decode.
func (cm *CredentialMinter) ExpiresWithin(tokenString string, buffer time.Duration) bool {
	if tokenString == "" {
		return true
	}

	claims := &models.CredentialClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return true
	}

	if claims.ExpiresAt == nil {
		return true
	}

	return time.Now().Add(buffer).After(claims.ExpiresAt.Time) ||
		time.Now().Add(buffer).Equal(claims.ExpiresAt.Time)
}
