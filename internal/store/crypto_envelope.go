package store

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// envelopeVersion is the newest sealed-file format this package writes.
const envelopeVersion = 1

// ErrWrongPassphrase is returned when a sealed file cannot be opened, either
// because the passphrase is wrong or the file was modified.
var ErrWrongPassphrase = errors.New("store: wrong passphrase or corrupted key file")

// envelope is the on-disk JSON holding a sealed secret and its KDF parameters.
type envelope struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

// seal derives a key from passphrase and encrypts raw. The address the key
// belongs to is bound as associated data so files cannot be swapped.
func seal(passphrase string, raw, bound []byte, p scryptParams) ([]byte, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, err
	}
	aead, err := envelopeAEAD(passphrase, salt[:], p)
	if err != nil {
		return nil, err
	}
	// Zero nonce: every seal draws a fresh salt and so a fresh key.
	var nonce [chacha20poly1305.NonceSize]byte
	ct := aead.Seal(nil, nonce[:], raw, append(salt[:], bound...))

	return json.Marshal(envelope{
		V:      envelopeVersion,
		Salt:   salt[:],
		N:      p.N,
		R:      p.R,
		P:      p.P,
		Cipher: ct,
	})
}

// open reverses seal.
func open(passphrase string, b, bound []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("store: decode key file: %w", err)
	}
	if env.V > envelopeVersion {
		return nil, fmt.Errorf("store: unsupported key file version %d", env.V)
	}
	aead, err := envelopeAEAD(passphrase, env.Salt, scryptParams{N: env.N, R: env.R, P: env.P})
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	pt, err := aead.Open(nil, nonce[:], env.Cipher, append(env.Salt, bound...))
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}

func envelopeAEAD(passphrase string, salt []byte, p scryptParams) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, p.N, p.R, p.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	return chacha20poly1305.New(key)
}

// scryptParams are the tunables for passphrase key derivation.
type scryptParams struct{ N, R, P int }

func defaultScryptParams() scryptParams { return scryptParams{N: 1 << 15, R: 8, P: 1} }
