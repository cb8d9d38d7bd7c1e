package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-credential-secret-32-chars!"

func TestCredentialMinter_MintAndValidate(t *testing.T) {
	minter := NewCredentialMinter(testSecret, 30*24*time.Hour)

	credential, expiresAt, err := minter.Mint("user_123")
	require.NoError(t, err)
	assert.NotEmpty(t, credential)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), expiresAt, time.Minute)

	claims, err := minter.Validate(credential)
	require.NoError(t, err)
	assert.Equal(t, "session", claims.Type)
	assert.Equal(t, "user_123", claims.UserID)
	assert.NotEmpty(t, claims.ID)
}

func TestCredentialMinter_MintsUniqueCredentials(t *testing.T) {
	minter := NewCredentialMinter(testSecret, time.Hour)

	first, _, err := minter.Mint("user_123")
	require.NoError(t, err)
	second, _, err := minter.Mint("user_123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestCredentialMinter_Validate_WrongSecret(t *testing.T) {
	minter := NewCredentialMinter(testSecret, time.Hour)
	other := NewCredentialMinter("another-secret-entirely-32-chars", time.Hour)

	credential, _, err := other.Mint("user_123")
	require.NoError(t, err)

	_, err = minter.Validate(credential)
	assert.Error(t, err)
}

func TestCredentialMinter_Validate_Expired(t *testing.T) {
	minter := NewCredentialMinter(testSecret, -time.Hour)

	credential, _, err := minter.Mint("user_123")
	require.NoError(t, err)

	_, err = minter.Validate(credential)
	assert.Error(t, err)
}

func TestCredentialMinter_Validate_WrongType(t *testing.T) {
	minter := NewCredentialMinter(testSecret, time.Hour)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"type":    "access",
		"user_id": "user_123",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = minter.Validate(signed)
	assert.Error(t, err)
}

func TestCredentialMinter_ExpiresWithin(t *testing.T) {
	minter := NewCredentialMinter(testSecret, time.Hour)

	t.Run("fresh credential outside buffer", func(t *testing.T) {
		credential, _, err := minter.Mint("user_123")
		require.NoError(t, err)

		assert.False(t, minter.ExpiresWithin(credential, 10*time.Minute))
	})

	t.Run("credential inside buffer", func(t *testing.T) {
		credential, _, err := minter.Mint("user_123")
		require.NoError(t, err)

		assert.True(t, minter.ExpiresWithin(credential, 2*time.Hour))
	})

	t.Run("already expired credential", func(t *testing.T) {
		expired := NewCredentialMinter(testSecret, -time.Hour)
		credential, _, err := expired.Mint("user_123")
		require.NoError(t, err)

		assert.True(t, minter.ExpiresWithin(credential, 0))
	})

	t.Run("empty credential", func(t *testing.T) {
		assert.True(t, minter.ExpiresWithin("", time.Minute))
	})

	t.Run("undecodable credential", func(t *testing.T) {
		assert.True(t, minter.ExpiresWithin("not-a-jwt", time.Minute))
	})

	t.Run("credential without expiry", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"type": "session",
		})
		signed, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		assert.True(t, minter.ExpiresWithin(signed, time.Minute))
	})
}
