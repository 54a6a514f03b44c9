package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func TestSignAndParse(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)

	raw, err := issuer.Sign(42, "admin")
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	claims, err := issuer.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, uint(42), claims.UserID)
	require.Equal(t, "admin", claims.Role)
	require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestParseExpired(t *testing.T) {
	issuer := NewIssuer(testSecret, -time.Minute)

	raw, err := issuer.Sign(1, "user")
	require.NoError(t, err)

	_, err = issuer.Parse(raw)
	require.ErrorIs(t, err, ErrExpired)
}

func TestParseWrongSecret(t *testing.T) {
	raw, err := NewIssuer(testSecret, time.Hour).Sign(1, "user")
	require.NoError(t, err)

	_, err = NewIssuer([]byte("other-secret"), time.Hour).Parse(raw)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestParseGarbage(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)

	for _, raw := range []string{"", "garbage", "a.b.c"} {
		_, err := issuer.Parse(raw)
		require.ErrorIs(t, err, ErrInvalid)
	}
}
