package auth

import (
	"testing"

	"riteswipe-api/internal/apperr"

	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cretpass")
	require.NoError(t, err)
	require.NotEqual(t, "s3cretpass", hash)
	require.True(t, CheckPassword(hash, "s3cretpass"))
	require.False(t, CheckPassword(hash, "wrongpass1"))
}

func TestValidators(t *testing.T) {
	require.NoError(t, ValidateEmail("a.b@example.com"))
	require.True(t, apperr.Is(ValidateEmail("not-an-email"), apperr.KindValidation))

	require.NoError(t, ValidatePassword("abcdefg1"))
	require.Error(t, ValidatePassword("short1"))
	require.Error(t, ValidatePassword("onlyletters"))

	require.NoError(t, ValidateName("Mary O'Neil"))
	require.Error(t, ValidateName("   "))
	require.Error(t, ValidateName("bad<script>"))

	require.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.com "))
}
