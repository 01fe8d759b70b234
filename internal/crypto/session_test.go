package crypto_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"ledgerchat/internal/crypto"
)

func newSessionCipher(t *testing.T) *crypto.SessionCipher {
	t.Helper()
	secret, err := crypto.NewSessionSecret()
	require.NoError(t, err)
	c, err := crypto.NewSessionCipher(secret[:])
	require.NoError(t, err)
	return c
}

func TestSessionCipher_RoundTrip(t *testing.T) {
	c := newSessionCipher(t)

	ct, err := c.Encrypt([]byte("hello"))
	require.NoError(t, err)
	require.Len(t, ct, 5+crypto.SessionOverhead)

	pt, err := c.Decrypt(ct)
	require.NoError(t, err)
	require.Equal(t, "hello", string(pt))
}

func TestSessionCipher_FreshNoncePerMessage(t *testing.T) {
	c := newSessionCipher(t)

	a, err := c.Encrypt([]byte("same"))
	require.NoError(t, err)
	b, err := c.Encrypt([]byte("same"))
	require.NoError(t, err)
	require.False(t, bytes.Equal(a, b))
	require.False(t, bytes.Equal(a[:24], b[:24]))
}

func TestSessionCipher_WrongSecretFails(t *testing.T) {
	a := newSessionCipher(t)
	b := newSessionCipher(t)

	ct, err := a.Encrypt([]byte("private"))
	require.NoError(t, err)
	_, err = b.Decrypt(ct)
	require.ErrorIs(t, err, crypto.ErrDecryptionFailure)
}

func TestSessionCipher_TamperedBodyFails(t *testing.T) {
	c := newSessionCipher(t)
	ct, err := c.Encrypt([]byte("integrity matters"))
	require.NoError(t, err)

	for i := range ct {
		tampered := append([]byte(nil), ct...)
		tampered[i] ^= 0x80
		_, err := c.Decrypt(tampered)
		require.ErrorIs(t, err, crypto.ErrDecryptionFailure, "flipped byte %d", i)
	}
	_, err = c.Decrypt(ct[:crypto.SessionOverhead-1])
	require.ErrorIs(t, err, crypto.ErrDecryptionFailure)
}

func TestSessionCipher_KeyLength(t *testing.T) {
	_, err := crypto.NewSessionCipher(make([]byte, 16))
	require.ErrorIs(t, err, crypto.ErrInvalidKey)
}

func TestAddressFromPrivateKey(t *testing.T) {
	// Well-known test vector: private key 0x...01 owns
	// 0x7e5f4552091a69125d5dfcb7b8c2659029395bdf.
	priv := make([]byte, 32)
	priv[31] = 1

	addr, err := crypto.AddressFromPrivateKey(priv)
	require.NoError(t, err)
	require.Equal(t, "0x7e5f4552091a69125d5dfcb7b8c2659029395bdf", addr.String())

	_, err = crypto.AddressFromPrivateKey(make([]byte, 32))
	require.ErrorIs(t, err, crypto.ErrInvalidKey)
}

func TestFingerprint_Stable(t *testing.T) {
	k := newKeyPair(t)
	fp := crypto.Fingerprint(k.PublicKey())
	require.Equal(t, fp, crypto.Fingerprint(k.PublicKey()))
	require.Len(t, fp.String(), 24)
}
