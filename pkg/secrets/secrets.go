// Package secrets encrypts device credentials at rest with AES-256-GCM.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const nonceLength = 12

// ErrEmptyPlaintext indicates Encrypt was called with nothing to encrypt.
var ErrEmptyPlaintext = errors.New("secrets: empty plaintext")

// Cipher wraps AES-GCM helpers for encrypting sensitive values before
// storage. The key is derived from the application secret, so all
// replicas sharing a secret can decrypt each other's rows.
type Cipher struct {
	key [sha256.Size]byte
}

// NewCipher derives a 32-byte AES key from the application secret.
func NewCipher(appSecret string) *Cipher {
	return &Cipher{key: sha256.Sum256([]byte(appSecret))}
}

// Encrypt serialises plaintext using AES-256-GCM and returns a base64
// payload with the nonce prepended.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPlaintext
	}

	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secrets: generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Values that do not look like valid
// ciphertext are returned unchanged: rows written before encryption was
// introduced hold plaintext passwords and must keep working.
func (c *Cipher) Decrypt(encoded string) string {
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(payload) <= nonceLength {
		return encoded
	}

	gcm, err := c.gcm()
	if err != nil {
		return encoded
	}

	plaintext, err := gcm.Open(nil, payload[:nonceLength], payload[nonceLength:], nil)
	if err != nil {
		return encoded
	}

	return string(plaintext)
}

func (c *Cipher) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return nil, fmt.Errorf("secrets: create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secrets: init gcm: %w", err)
	}

	return gcm, nil
}
