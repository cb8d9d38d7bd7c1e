package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitlock/tether/internal/models"
)

const testSessionSecret = "provider-session-secret-32-chars"

func mintSessionToken(t *testing.T, secret, subject, issuer string, expiresIn time.Duration) string {
	t.Helper()

	claims := &models.IdentityClaims{
		SessionID: "sess_abc",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestIdentityVerifier_Verify(t *testing.T) {
	verifier := NewIdentityVerifier(testSessionSecret, "https://id.example.com")

	t.Run("valid token", func(t *testing.T) {
		token := mintSessionToken(t, testSessionSecret, "user_123", "https://id.example.com", time.Hour)

		claims, err := verifier.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "user_123", claims.Subject)
		assert.Equal(t, "sess_abc", claims.SessionID)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := mintSessionToken(t, "some-other-session-secret-32char", "user_123", "https://id.example.com", time.Hour)

		_, err := verifier.Verify(token)
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		token := mintSessionToken(t, testSessionSecret, "user_123", "https://id.example.com", -time.Hour)

		_, err := verifier.Verify(token)
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token := mintSessionToken(t, testSessionSecret, "user_123", "https://evil.example.com", time.Hour)

		_, err := verifier.Verify(token)
		assert.Error(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		token := mintSessionToken(t, testSessionSecret, "", "https://id.example.com", time.Hour)

		_, err := verifier.Verify(token)
		assert.Error(t, err)
	})

	t.Run("issuer not enforced when unconfigured", func(t *testing.T) {
		lax := NewIdentityVerifier(testSessionSecret, "")
		token := mintSessionToken(t, testSessionSecret, "user_123", "https://anything.example.com", time.Hour)

		_, err := lax.Verify(token)
		assert.NoError(t, err)
	})
}

func TestRequireIdentity(t *testing.T) {
	verifier := NewIdentityVerifier(testSessionSecret, "")
	middleware := RequireIdentity(verifier)

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetIdentityFromContext(r)
		require.NotNil(t, claims)
		w.Write([]byte(claims.Subject))
	}))

	t.Run("valid bearer token", func(t *testing.T) {
		token := mintSessionToken(t, testSessionSecret, "user_123", "", time.Hour)

		req := httptest.NewRequest(http.MethodGet, "/account/status", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user_123", rec.Body.String())
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/account/status", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/account/status", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/account/status", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
