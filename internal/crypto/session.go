package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"ledgerchat/internal/domain"
)

// SessionOverhead is the number of bytes SessionCipher.Encrypt adds.
const SessionOverhead = chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// SessionCipher encrypts conversation messages under a session secret.
//
// Every call to Encrypt draws a fresh 24-byte nonce, which is prepended to
// the output so Decrypt needs nothing but the secret.
type SessionCipher struct {
	aead cipher.AEAD
}

// NewSessionCipher returns a cipher for a 32-byte secret.
func NewSessionCipher(secret []byte) (*SessionCipher, error) {
	if len(secret) != domain.SessionSecretLength {
		return nil, ErrInvalidKey
	}
	aead, err := chacha20poly1305.NewX(secret)
	if err != nil {
		return nil, ErrInvalidKey
	}
	return &SessionCipher{aead: aead}, nil
}

// NewSessionSecret draws a fresh random session secret.
func NewSessionSecret() (domain.SessionSecret, error) {
	var s domain.SessionSecret
	if _, err := io.ReadFull(rand.Reader, s[:]); err != nil {
		return domain.SessionSecret{}, err
	}
	return s, nil
}

// Encrypt returns nonce || body || tag.
func (c *SessionCipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), SessionOverhead+len(plaintext))
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
func (c *SessionCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < SessionOverhead {
		return nil, ErrDecryptionFailure
	}
	n := c.aead.NonceSize()
	pt, err := c.aead.Open(nil, ciphertext[:n], ciphertext[n:], nil)
	if err != nil {
		return nil, ErrDecryptionFailure
	}
	return pt, nil
}

// Compile-time assertion that SessionCipher implements domain.SymmetricCipher.
var _ domain.SymmetricCipher = (*SessionCipher)(nil)
