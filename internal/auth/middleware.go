package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mwhitlock/tether/internal/models"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// IdentityContextKey is the key for storing identity claims in context
	IdentityContextKey contextKey = "identity"
)

// IdentityVerifier validates session tokens issued by the primary identity
// provider. The backend never authenticates users itself; it only checks
// that a request carries a live provider session and extracts the
// provider-issued user id from it.
type IdentityVerifier struct {
	secret string
	issuer string
}

func NewIdentityVerifier(secret, issuer string) *IdentityVerifier {
	return &IdentityVerifier{secret: secret, issuer: issuer}
}

// Verify parses and validates a provider session token.
func (v *IdentityVerifier) Verify(tokenString string) (*models.IdentityClaims, error) {
	claims := &models.IdentityClaims{}

	opts := []jwt.ParserOption{}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(v.secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse session token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("invalid session token: missing subject")
	}

	return claims, nil
}

// RequireIdentity validates the provider session token and injects its
// claims into the request context.
func RequireIdentity(v *IdentityVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := v.Verify(parts[1])
			if err != nil {
				http.Error(w, "invalid or expired session token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentityFromContext returns the identity claims set by
// RequireIdentity, or nil when the request is unauthenticated.
func GetIdentityFromContext(r *http.Request) *models.IdentityClaims {
	claims, ok := r.Context().Value(IdentityContextKey).(*models.IdentityClaims)
	if !ok {
		return nil
	}
	return claims
}
