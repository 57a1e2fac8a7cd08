// Package crypto seals account credentials for storage. The mail service
// password has to survive restarts in Postgres, so it is encrypted with
// AES-GCM under a key supplied through configuration.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// Keeper seals and opens secrets with AES-GCM. GCM authenticates the
// ciphertext, so a wrong key or a tampered value fails loudly instead of
// yielding garbage credentials.
type Keeper struct {
	key []byte
}

// NewKeeper creates a Keeper from a base64-encoded 256-bit key.
func NewKeeper(base64Key string) (*Keeper, error) {
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes (256 bits), got %d bytes", len(key))
	}
	return &Keeper{key: key}, nil
}

// Seal encrypts a secret. The output is base64 of nonce||ciphertext||tag,
// suitable for a text column. Every call uses a fresh nonce.
func (k *Keeper) Seal(secret string) (string, error) {
	gcm, err := k.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(secret), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal. It fails when the value is
// corrupted or was sealed under a different key.
func (k *Keeper) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("failed to decode sealed value: %w", err)
	}

	gcm, err := k.gcm()
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", fmt.Errorf("sealed value too short")
	}

	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	secret, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(secret), nil
}

func (k *Keeper) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(k.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
