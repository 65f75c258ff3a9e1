package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenPayload_SecondsToExpiry(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)

	require.EqualValues(t, 30, TokenPayload{ExpiresAt: now.Unix() + 30}.SecondsToExpiry(now))
	require.EqualValues(t, 0, TokenPayload{ExpiresAt: now.Unix()}.SecondsToExpiry(now))
	require.EqualValues(t, -5, TokenPayload{ExpiresAt: now.Unix() - 5}.SecondsToExpiry(now))
}

func TestTokenPair_JSONFieldNames(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(TokenPair{AccessToken: "a", RefreshToken: "r"})
	require.NoError(t, err)
	require.JSONEq(t, `{"accessToken":"a","refreshToken":"r"}`, string(b))

	require.True(t, TokenPair{}.Empty())
	require.False(t, TokenPair{AccessToken: "a"}.Empty())
}
