package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	envelopeDelimiter = ":"
	envelopeParts     = 3
	gcmTagSize        = 16
)

var (
	// ErrInvalidKeySize is returned by NewFieldCipher for keys that are not
	// 32 bytes (AES-256).
	ErrInvalidKeySize = errors.New("field cipher: key must be exactly 32 bytes")

	// ErrMalformedEnvelope means the stored value does not look like a
	// nonce:tag:ciphertext envelope at all. Retrying can never help.
	ErrMalformedEnvelope = errors.New("field cipher: malformed envelope")

	// ErrAuthenticationFailed means the envelope parsed but GCM tag
	// verification failed: the ciphertext was tampered with, corrupted,
	// or encrypted under a different key.
	ErrAuthenticationFailed = errors.New("field cipher: authentication failed")
)

// FieldCipher encrypts sensitive numeric fields (balances, average prices)
// before they cross the persistence boundary. Values are handled as decimal
// strings, never as native floats, so the round trip is exact.
//
// A FieldCipher is safe for concurrent use; it holds no mutable state.
type FieldCipher struct {
	aead cipher.AEAD
}

// NewFieldCipher builds an AES-256-GCM cipher around the shared key.
func NewFieldCipher(key []byte) (*FieldCipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("field cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("field cipher: %w", err)
	}
	return &FieldCipher{aead: aead}, nil
}

// Encrypt seals the plaintext under a fresh random nonce and returns a
// base64(nonce):base64(tag):base64(ciphertext) envelope. Because the nonce
// is random, encrypting the same plaintext twice yields different envelopes.
func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("field cipher: reading nonce: %w", err)
	}

	// Seal appends the 16-byte tag after the ciphertext; the envelope
	// carries them as separate segments.
	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-gcmTagSize]
	tag := sealed[len(sealed)-gcmTagSize:]

	return strings.Join([]string{
		base64.StdEncoding.EncodeToString(nonce),
		base64.StdEncoding.EncodeToString(tag),
		base64.StdEncoding.EncodeToString(ciphertext),
	}, envelopeDelimiter), nil
}

// Decrypt reverses Encrypt. It returns ErrMalformedEnvelope when the input
// does not split into three base64 segments with a well-sized nonce and tag,
// and ErrAuthenticationFailed when tag verification fails. It never returns
// a placeholder string: callers decide how to render an unreadable field.
func (c *FieldCipher) Decrypt(envelope string) (string, error) {
	parts := strings.Split(envelope, envelopeDelimiter)
	if len(parts) != envelopeParts {
		return "", fmt.Errorf("%w: expected %d segments, got %d", ErrMalformedEnvelope, envelopeParts, len(parts))
	}

	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: nonce segment: %v", ErrMalformedEnvelope, err)
	}
	tag, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: tag segment: %v", ErrMalformedEnvelope, err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext segment: %v", ErrMalformedEnvelope, err)
	}

	if len(nonce) != c.aead.NonceSize() {
		return "", fmt.Errorf("%w: nonce is %d bytes, want %d", ErrMalformedEnvelope, len(nonce), c.aead.NonceSize())
	}
	if len(tag) != gcmTagSize {
		return "", fmt.Errorf("%w: tag is %d bytes, want %d", ErrMalformedEnvelope, len(tag), gcmTagSize)
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrAuthenticationFailed
	}
	return string(plaintext), nil
}
