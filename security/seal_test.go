package security

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	assert.Len(t, key, KeySize)

	key2, err := GenerateKey()
	require.NoError(t, err)
	assert.False(t, bytes.Equal(key, key2), "GenerateKey() returned identical keys")
}

func TestNewSealer(t *testing.T) {
	tests := []struct {
		name    string
		key     []byte
		wantErr bool
	}{
		{"valid 32-byte key", make([]byte, 32), false},
		{"nil key", nil, true},
		{"16-byte key", make([]byte, 16), true},
		{"64-byte key", make([]byte, 64), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSealer(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, s)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, s)
		})
	}
}

func TestSealer_RoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	s, err := NewSealer(key)
	require.NoError(t, err)

	plaintext := []byte(`{"access_token":"abc"}`)
	ad := []byte("client-1")

	sealed, err := s.Seal(plaintext, ad)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "abc")

	opened, err := s.Open(sealed, ad)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)

	again, err := s.Seal(plaintext, ad)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonces must differ between seals")
}

func TestSealer_OpenFailures(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	s, err := NewSealer(key)
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("payload"), []byte("client-1"))
	require.NoError(t, err)

	t.Run("wrong associated data", func(t *testing.T) {
		_, err := s.Open(sealed, []byte("client-2"))
		assert.Error(t, err)
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := NewSealer(make([]byte, KeySize))
		require.NoError(t, err)
		_, err = other.Open(sealed, []byte("client-1"))
		assert.Error(t, err)
	})

	t.Run("not base64", func(t *testing.T) {
		_, err := s.Open("!!!", nil)
		assert.Error(t, err)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := s.Open("AAAA", nil)
		assert.ErrorIs(t, err, ErrSealedDataTooShort)
	})
}

func TestKeyBase64RoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	decoded, err := KeyFromBase64(KeyToBase64(key))
	require.NoError(t, err)
	assert.Equal(t, key, decoded)

	_, err = KeyFromBase64("not base64!")
	assert.Error(t, err)

	_, err = KeyFromBase64(KeyToBase64(make([]byte, 8)))
	assert.Error(t, err)
}
