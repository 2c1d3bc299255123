package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestParseValidToken(t *testing.T) {
	m := NewManager("test-secret", time.Minute)
	token, err := m.GenerateAccessToken("a1", "a1@example.com", "admin")
	require.NoError(t, err)

	claims, err := m.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, "a1", claims.UserID)
	require.Equal(t, "a1@example.com", claims.Email)
	require.Equal(t, "admin", claims.Role)
}

func TestRejectsExpiredToken(t *testing.T) {
	m := NewManager("test-secret", -time.Minute)
	token, err := m.GenerateAccessToken("a1", "", "")
	require.NoError(t, err)

	_, err = m.ParseToken(token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestRejectsWrongSecret(t *testing.T) {
	token, err := NewManager("other-secret", time.Minute).GenerateAccessToken("a1", "", "")
	require.NoError(t, err)

	_, err = NewManager("test-secret", time.Minute).ParseToken(token)
	require.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestRejectsTokenWithoutExpiry(t *testing.T) {
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "a1"})
	token, err := raw.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = NewManager("test-secret", time.Minute).ParseToken(token)
	require.Error(t, err)
}

func TestRejectsOtherAlgorithms(t *testing.T) {
	raw := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		UserID: "a1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	token, err := raw.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = NewManager("test-secret", time.Minute).ParseToken(token)
	require.Error(t, err)
}

func TestGlobalParseRequiresInit(t *testing.T) {
	defaultManager = nil
	_, err := ParseToken("x")
	require.Error(t, err)

	m := Init("test-secret", 5)
	token, err := m.GenerateAccessToken("b2", "", "")
	require.NoError(t, err)
	claims, err := ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, "b2", claims.UserID)
}
