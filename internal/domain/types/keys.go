package types

import "encoding/hex"

// CompressedPublicKeyLength is the size of a SEC1 compressed curve point.
const CompressedPublicKeyLength = 33

// SEC1 prefixes for compressed points.
const (
	prefixEvenY = 0x02
	prefixOddY  = 0x03
)

// CompressedPublicKey is a secp256k1 public key in compressed SEC1 form.
//
// The ledger stores it split into the 32-byte x-coordinate and a parity flag.
type CompressedPublicKey [CompressedPublicKeyLength]byte

// CompressedFromParts rebuilds a key from its stored x-coordinate and parity.
// yParity is true when the y-coordinate is even (prefix 0x02).
func CompressedFromParts(x [32]byte, yParity bool) CompressedPublicKey {
	var k CompressedPublicKey
	k[0] = prefixOddY
	if yParity {
		k[0] = prefixEvenY
	}
	copy(k[1:], x[:])
	return k
}

// X returns the x-coordinate.
func (k CompressedPublicKey) X() [32]byte {
	var x [32]byte
	copy(x[:], k[1:])
	return x
}

// YParity reports whether the y-coordinate is even.
func (k CompressedPublicKey) YParity() bool { return k[0] == prefixEvenY }

// Slice returns the key as a []byte.
func (k CompressedPublicKey) Slice() []byte { return k[:] }

// Hex returns the lowercase hex encoding without a 0x prefix.
func (k CompressedPublicKey) Hex() string { return hex.EncodeToString(k[:]) }

// SessionSecretLength is the size of a conversation key.
const SessionSecretLength = 32

// SessionSecret is the symmetric key shared by the two parties of a
// conversation. It is only ever held in memory.
type SessionSecret [SessionSecretLength]byte

// Slice returns the secret as a []byte.
func (s *SessionSecret) Slice() []byte { return s[:] }

// Wipe zeroes the secret in place.
func (s *SessionSecret) Wipe() {
	for i := range s {
		s[i] = 0
	}
}
