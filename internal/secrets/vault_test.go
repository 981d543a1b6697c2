package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validKey(t *testing.T) []byte {
	t.Helper()

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestNewVault_KeyLength(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 16, 31, 33} {
		v, err := NewVault(make([]byte, n))
		assert.Nil(t, v)
		assert.ErrorIs(t, err, ErrInvalidKey, "len %d", n)
	}

	v, err := NewVault(validKey(t))
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestVault_SealOpen(t *testing.T) {
	t.Parallel()

	v, err := NewVault(validKey(t))
	require.NoError(t, err)

	sealed, err := v.Seal("media-s3-secret-access-key", "wJalrXUtnFEMI/K7MDENG")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "wJalrXUtnFEMI")

	again, err := v.Seal("media-s3-secret-access-key", "wJalrXUtnFEMI/K7MDENG")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "each seal uses a fresh nonce")

	plain, err := v.Open("media-s3-secret-access-key", sealed)
	require.NoError(t, err)
	assert.Equal(t, "wJalrXUtnFEMI/K7MDENG", plain)
}

func TestVault_OpenUnderOtherName(t *testing.T) {
	t.Parallel()

	v, err := NewVault(validKey(t))
	require.NoError(t, err)

	sealed, err := v.Seal("jwt-secret", "signing-key")
	require.NoError(t, err)

	plain, err := v.Open("redis-password", sealed)
	require.Error(t, err)
	assert.Empty(t, plain)
}

func TestVault_OpenRejectsBadInput(t *testing.T) {
	t.Parallel()

	v, err := NewVault(validKey(t))
	require.NoError(t, err)

	sealed, err := v.Seal("db-password", "hunter2")
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF

	tests := []struct {
		name      string
		sealed    string
		malformed bool
	}{
		{"not_base64", "%%%", true},
		{"shorter_than_nonce", base64.StdEncoding.EncodeToString([]byte("short")), true},
		{"tampered", base64.StdEncoding.EncodeToString(raw), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			plain, openErr := v.Open("db-password", tt.sealed)
			require.Error(t, openErr)
			assert.Empty(t, plain)
			assert.Equal(t, tt.malformed, errors.Is(openErr, ErrMalformed))
		})
	}
}
