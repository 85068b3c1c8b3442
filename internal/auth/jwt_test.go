package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testIssuer() *TokenIssuer {
	return NewTokenIssuer("test-secret", "riteswipe-api", "riteswipe-clients", time.Hour)
}

func TestGenerateAndValidateToken(t *testing.T) {
	issuer := testIssuer()
	token, err := issuer.Generate("u-1", "alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	require.Equal(t, "u-1", claims.UserID)
	require.Equal(t, "alice@example.com", claims.Email)
}

func TestValidateToken_Invalid(t *testing.T) {
	_, err := testIssuer().Validate("invalid.token")
	require.Error(t, err)
}

func TestValidateToken_WrongAudience(t *testing.T) {
	other := NewTokenIssuer("test-secret", "riteswipe-api", "someone-else", time.Hour)
	token, err := other.Generate("u-1", "a@example.com")
	require.NoError(t, err)

	_, err = testIssuer().Validate(token)
	require.ErrorContains(t, err, "audience")
}

func TestValidateToken_Expired(t *testing.T) {
	expired := NewTokenIssuer("test-secret", "riteswipe-api", "riteswipe-clients", -time.Minute)
	token, err := expired.Generate("u-1", "a@example.com")
	require.NoError(t, err)

	_, err = testIssuer().Validate(token)
	require.Error(t, err)
}
