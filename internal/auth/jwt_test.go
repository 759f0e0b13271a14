package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/Kyz7/console/internal/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "console_test_secret_with_at_least_32_characters"

func TestVerifier(t *testing.T) {
	v := auth.NewVerifier(secret)

	t.Run("Success - Round trip", func(t *testing.T) {
		token, err := v.Sign("42", "ADMIN", time.Hour)
		require.NoError(t, err)

		claims, err := v.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, "42", claims.Subject)
		assert.Equal(t, "ADMIN", claims.Role)
	})

	t.Run("Error - Expired token", func(t *testing.T) {
		token, err := v.Sign("42", "ADMIN", -time.Minute)
		require.NoError(t, err)

		_, err = v.Parse(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("Error - Signed with another secret", func(t *testing.T) {
		other := auth.NewVerifier(strings.Repeat("x", 40))
		token, err := other.Sign("42", "ADMIN", time.Hour)
		require.NoError(t, err)

		_, err = v.Parse(token)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("Error - Missing subject", func(t *testing.T) {
		token, err := v.Sign("", "ADMIN", time.Hour)
		require.NoError(t, err)

		_, err = v.Parse(token)
		assert.Error(t, err)
	})

	t.Run("Error - Unsigned token", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, auth.Claims{
			Role:             "ADMIN",
			RegisteredClaims: jwt.RegisteredClaims{Subject: "42"},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = v.Parse(token)
		assert.Error(t, err)
	})
}

func TestValidateSecret(t *testing.T) {
	assert.Error(t, auth.ValidateSecret(""))
	assert.Error(t, auth.ValidateSecret("short"))
	assert.Error(t, auth.ValidateSecret("test_secret_key_minimum_32_characters_long_for_testing_only"))
	assert.NoError(t, auth.ValidateSecret(secret))
}
