// Package cryptox encrypts small payloads (visitor signatures) at rest with
// AES-256-GCM.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/rosedal2/condoauth/internal/common"
)

const (
	KeySize   = 32
	NonceSize = 16
	TagSize   = 16
)

// KeyFunc returns the current 32-byte encryption key.
type KeyFunc func() ([]byte, error)

// Engine seals and opens blobs of the form hex(iv):hex(tag):hex(ciphertext).
// The key is fetched through KeyFunc on every call, so a rotated key takes
// effect without rebuilding the engine.
type Engine struct {
	key KeyFunc
}

func NewEngine(key KeyFunc) *Engine {
	return &Engine{key: key}
}

// StaticKey wraps a fixed key as a KeyFunc.
func StaticKey(key []byte) KeyFunc {
	return func() ([]byte, error) { return key, nil }
}

// KeyFromHex parses a 64-character hex string into a 32-byte key.
func KeyFromHex(s string) ([]byte, error) {
	if len(s) != KeySize*2 {
		return nil, fmt.Errorf("%w: key must be %d hex characters", common.ErrKeyUnavailable, KeySize*2)
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: key is not hex", common.ErrKeyUnavailable)
	}
	return key, nil
}

// GenerateKeyHex returns a fresh random key, hex encoded.
func GenerateKeyHex() string {
	return hex.EncodeToString(common.GenerateRandByteArray(KeySize))
}

func (e *Engine) aead() (cipher.AEAD, error) {
	key, err := e.key()
	if err != nil {
		return nil, err
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, NonceSize)
}

func (e *Engine) Encrypt(plaintext string) (string, error) {
	aesgcm, err := e.aead()
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrKeyUnavailable, err)
	}

	iv := common.GenerateRandByteArray(NonceSize)
	sealed := aesgcm.Seal(nil, iv, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ct), nil
}

// Decrypt opens a blob produced by Encrypt. Every failure, including a
// missing key, is reported as common.ErrDecryptionFailed.
func (e *Engine) Decrypt(blob string) (string, error) {
	parts := strings.Split(blob, ":")
	if len(parts) != 3 {
		return "", common.ErrDecryptionFailed
	}
	// Encrypt emits lowercase only; any other spelling is a mutated blob.
	for _, p := range parts {
		if p != strings.ToLower(p) {
			return "", common.ErrDecryptionFailed
		}
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != NonceSize {
		return "", common.ErrDecryptionFailed
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != TagSize {
		return "", common.ErrDecryptionFailed
	}
	ct, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", common.ErrDecryptionFailed
	}

	aesgcm, err := e.aead()
	if err != nil {
		return "", common.ErrDecryptionFailed
	}

	plaintext, err := aesgcm.Open(nil, iv, append(ct, tag...), nil)
	if err != nil {
		return "", common.ErrDecryptionFailed
	}
	return string(plaintext), nil
}
