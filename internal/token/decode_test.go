package token

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, c jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("unit-secret"))
	require.NoError(t, err)
	return s
}

func TestDecode_OK(t *testing.T) {
	t.Parallel()

	exp := time.Unix(1_800_000_000, 0)
	iat := time.Unix(1_799_999_000, 0)

	tok := sign(t, jwt.MapClaims{
		"sub":      "42",
		"iss":      "backoffice-auth",
		"exp":      exp.Unix(),
		"iat":      iat.Unix(),
		"jti":      "id-1",
		"username": "manager",
	})

	p, err := Decode(tok)
	require.NoError(t, err)
	require.Equal(t, "42", p.Subject)
	require.Equal(t, "backoffice-auth", p.Issuer)
	require.Equal(t, exp.Unix(), p.ExpiresAt)
	require.Equal(t, iat.Unix(), p.IssuedAt)
	require.Equal(t, "id-1", p.ID)
	require.Equal(t, "manager", p.Username)
}

// Подпись не проверяется: токен, подписанный чужим ключом, декодируется.
func TestDecode_IgnoresSignature(t *testing.T) {
	t.Parallel()

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": 1}).
		SignedString([]byte("someone-else"))
	require.NoError(t, err)

	p, err := Decode(s)
	require.NoError(t, err)
	require.EqualValues(t, 1, p.ExpiresAt)
}

// Уже истёкший токен всё равно декодируется: решение об истечении принимает сессия.
func TestDecode_ExpiredTokenStillDecodes(t *testing.T) {
	t.Parallel()

	tok := sign(t, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix(), "username": "u"})

	p, err := Decode(tok)
	require.NoError(t, err)
	require.Equal(t, "u", p.Username)
}

func TestDecode_Malformed(t *testing.T) {
	t.Parallel()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

	tcs := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"spaces", "   "},
		{"single segment", "abc"},
		{"two segments", header + ".e30"},
		{"bad base64", header + ".!!!.sig"},
		{"bad json", header + "." + base64.RawURLEncoding.EncodeToString([]byte("{not json")) + ".sig"},
		{"missing exp", header + "." + base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"1"}`)) + ".sig"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.in)
			require.Error(t, err)
			require.ErrorIs(t, err, ErrMalformedToken)

			var me *MalformedTokenError
			require.True(t, errors.As(err, &me))
			require.NotEmpty(t, me.Reason)
		})
	}
}
