package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("Password123")
	require.NoError(t, err)
	require.NotEmpty(t, h)
	require.NotEqual(t, "Password123", h)

	h2, err := HashPassword("Password123")
	require.NoError(t, err)
	require.NotEqual(t, h, h2, "bcrypt must salt every hash")
}

func TestCheckPassword(t *testing.T) {
	h, err := HashPassword("Password123")
	require.NoError(t, err)

	require.True(t, CheckPassword(h, "Password123"))
	require.False(t, CheckPassword(h, "password123"))
	require.False(t, CheckPassword(h, ""))
	require.False(t, CheckPassword("not-a-hash", "Password123"))
}
