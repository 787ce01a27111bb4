package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vouchertrack/backoffice/internal/auth"
)

func TestTokenManager_GenerateAndVerify(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", "voucher-tracker", time.Hour)

	t.Run("branch token carries role and branch id", func(t *testing.T) {
		token, err := tm.Generate(auth.RoleBranch, "dhaka-01", 42)
		require.NoError(t, err)

		claims, err := tm.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleBranch, claims.Role)
		assert.Equal(t, "dhaka-01", claims.Username)
		assert.Equal(t, int64(42), claims.BranchID)
	})

	t.Run("admin token has no branch id", func(t *testing.T) {
		token, err := tm.Generate(auth.RoleAdmin, "admin", 0)
		require.NoError(t, err)

		claims, err := tm.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, claims.Role)
		assert.Zero(t, claims.BranchID)
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		token, err := tm.Generate(auth.RoleAdmin, "admin", 0)
		require.NoError(t, err)

		other := auth.NewTokenManager("other-secret", "voucher-tracker", time.Hour)
		_, err = other.Verify(token)
		require.Error(t, err)
	})

	t.Run("wrong issuer is rejected", func(t *testing.T) {
		other := auth.NewTokenManager("test-secret", "someone-else", time.Hour)
		token, err := other.Generate(auth.RoleAdmin, "admin", 0)
		require.NoError(t, err)

		_, err = tm.Verify(token)
		require.Error(t, err)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		short := auth.NewTokenManager("test-secret", "voucher-tracker", -time.Minute)
		token, err := short.Generate(auth.RoleAdmin, "admin", 0)
		require.NoError(t, err)

		_, err = tm.Verify(token)
		require.Error(t, err)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := tm.Verify("not.a.token")
		require.Error(t, err)
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	assert.True(t, auth.CheckPassword(hash, "secret123"))
	assert.False(t, auth.CheckPassword(hash, "secret124"))
	assert.False(t, auth.CheckPassword("", "secret123"))

	_, err = auth.HashPassword("")
	require.Error(t, err)
}
