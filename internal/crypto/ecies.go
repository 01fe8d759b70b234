package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"ledgerchat/internal/domain"
)

const (
	// PrivateKeyBytes is the size of a serialized secp256k1 scalar.
	PrivateKeyBytes = 32

	eciesInfo      = "ledgerchat-ecies-v1"
	ephemeralBytes = secp256k1.PubKeyBytesLenCompressed
	eciesNonceSize = chacha20poly1305.NonceSizeX

	// ECIESOverhead is the number of bytes EncryptTo adds to a plaintext:
	// ephemeral public key, nonce and authentication tag.
	ECIESOverhead = ephemeralBytes + eciesNonceSize + chacha20poly1305.Overhead
)

var (
	// ErrInvalidKey is returned for malformed or off-curve key material.
	ErrInvalidKey = errors.New("crypto: invalid key")
	// ErrDecryptionFailure is returned when a ciphertext cannot be opened.
	ErrDecryptionFailure = errors.New("crypto: decryption failed")
)

// ECIES is a secp256k1 key pair used for hybrid encryption.
//
// Ciphertext layout:
//
//	ephemeral public key (33, compressed) || nonce (24) || body || tag (16)
//
// The body key is HKDF-SHA256 over the ephemeral public key and the ECDH
// x-coordinate. The ephemeral public key is also bound as associated data.
type ECIES struct {
	priv *secp256k1.PrivateKey
	pub  domain.CompressedPublicKey
}

// GenerateECIES returns a fresh key pair.
func GenerateECIES() (*ECIES, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return newECIES(priv), nil
}

// NewECIES loads a key pair from a 32-byte private scalar.
func NewECIES(privateKey []byte) (*ECIES, error) {
	priv, err := parsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	return newECIES(priv), nil
}

func newECIES(priv *secp256k1.PrivateKey) *ECIES {
	e := &ECIES{priv: priv}
	copy(e.pub[:], priv.PubKey().SerializeCompressed())
	return e
}

// ExportPrivateKey returns a copy of the private scalar. Callers must Wipe it.
func (e *ECIES) ExportPrivateKey() []byte { return e.priv.Serialize() }

// PublicKey returns the compressed public key.
func (e *ECIES) PublicKey() domain.CompressedPublicKey { return e.pub }

// PublicKeyHex returns the compressed public key as lowercase hex.
func (e *ECIES) PublicKeyHex() string { return e.pub.Hex() }

// EncryptTo encrypts plaintext to the public key given in hex (compressed or
// uncompressed SEC1, optional 0x prefix).
func (e *ECIES) EncryptTo(publicKeyHex string, plaintext []byte) ([]byte, error) {
	return EncryptTo(publicKeyHex, plaintext)
}

// EncryptForSelf encrypts plaintext to our own public key.
func (e *ECIES) EncryptForSelf(plaintext []byte) ([]byte, error) {
	pub, err := secp256k1.ParsePubKey(e.pub[:])
	if err != nil {
		return nil, ErrInvalidKey
	}
	return encrypt(pub, plaintext)
}

// DecryptOwn opens a ciphertext produced for this key pair.
func (e *ECIES) DecryptOwn(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < ECIESOverhead {
		return nil, ErrDecryptionFailure
	}
	ephPubBytes := ciphertext[:ephemeralBytes]
	nonce := ciphertext[ephemeralBytes : ephemeralBytes+eciesNonceSize]
	body := ciphertext[ephemeralBytes+eciesNonceSize:]

	ephPub, err := secp256k1.ParsePubKey(ephPubBytes)
	if err != nil {
		return nil, ErrDecryptionFailure
	}
	shared := secp256k1.GenerateSharedSecret(e.priv, ephPub)
	key, err := deriveKey(ephPubBytes, shared)
	Wipe(shared)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	Wipe(key)
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, nonce, body, ephPubBytes)
	if err != nil {
		return nil, ErrDecryptionFailure
	}
	return pt, nil
}

// Close wipes the private key.
func (e *ECIES) Close() { e.priv.Zero() }

// EncryptTo encrypts plaintext to a public key given in hex without needing
// a key pair of our own.
func EncryptTo(publicKeyHex string, plaintext []byte) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(publicKeyHex, "0x"))
	if err != nil {
		return nil, ErrInvalidKey
	}
	pub, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, ErrInvalidKey
	}
	return encrypt(pub, plaintext)
}

func encrypt(pub *secp256k1.PublicKey, plaintext []byte) ([]byte, error) {
	eph, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	defer eph.Zero()
	ephPub := eph.PubKey().SerializeCompressed()

	shared := secp256k1.GenerateSharedSecret(eph, pub)
	key, err := deriveKey(ephPub, shared)
	Wipe(shared)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	Wipe(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, ECIESOverhead+len(plaintext))
	out = append(out, ephPub...)
	nonce := make([]byte, eciesNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, ephPub), nil
}

func deriveKey(ephPub, shared []byte) ([]byte, error) {
	ikm := make([]byte, 0, len(ephPub)+len(shared))
	ikm = append(ikm, ephPub...)
	ikm = append(ikm, shared...)
	defer Wipe(ikm)

	r := hkdf.New(sha256.New, ikm, nil, []byte(eciesInfo))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Compile-time assertion that ECIES implements domain.AsymmetricCipher.
var _ domain.AsymmetricCipher = (*ECIES)(nil)
