package utils

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=2$"))

	ok, err := VerifyPassword("correct horse", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong horse", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salts must differ")
}

func TestVerifyPassword_InvalidHash(t *testing.T) {
	t.Parallel()
	_, err := VerifyPassword("x", "plain-text")
	assert.ErrorIs(t, err, ErrInvalidHash)
	_, err = VerifyPassword("x", "$argon2id$v=19$garbage$c2FsdA$aGFzaA")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateUsername("sky_watcher1"))
	for _, bad := range []string{"ab", "_leading", "has space", "way_too_long_username_here"} {
		var verr *ValidationError
		require.True(t, errors.As(ValidateUsername(bad), &verr), bad)
		assert.Equal(t, "username", verr.Field)
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateEmail("ann@example.com"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("Ann <ann@example.com>"))
	assert.Error(t, ValidateEmail("ann@localhost"))
	assert.Equal(t, "ann@example.com", NormalizeEmail("  Ann@Example.COM "))
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	assert.Error(t, ValidatePassword("12345"))
	assert.NoError(t, ValidatePassword("123456"))
}
