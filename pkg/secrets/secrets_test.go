package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := NewCipher("app-secret")

	for _, plaintext := range []string{"p", "hunter2", "longer value with spaces and ünïcode"} {
		encrypted, err := c.Encrypt(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, encrypted)
		assert.Equal(t, plaintext, c.Decrypt(encrypted))
	}
}

func TestEncryptEmptyPlaintext(t *testing.T) {
	c := NewCipher("app-secret")

	_, err := c.Encrypt("")
	assert.ErrorIs(t, err, ErrEmptyPlaintext)
}

func TestDecryptPassesThroughLegacyPlaintext(t *testing.T) {
	c := NewCipher("app-secret")

	// Rows written before encryption existed hold raw passwords.
	for _, legacy := range []string{"plain-password", "not base64 %%", "c2hvcnQ="} {
		assert.Equal(t, legacy, c.Decrypt(legacy))
	}
}

func TestDecryptWithWrongKeyPassesThrough(t *testing.T) {
	encrypted, err := NewCipher("key-a").Encrypt("secret-value")
	require.NoError(t, err)

	// GCM auth fails under the wrong key; lenient decrypt returns input.
	assert.Equal(t, encrypted, NewCipher("key-b").Decrypt(encrypted))
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	c := NewCipher("app-secret")

	a, err := c.Encrypt("same")
	require.NoError(t, err)

	b, err := c.Encrypt("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
