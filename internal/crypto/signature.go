package crypto

import (
	"errors"
	"strconv"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"

	"ledgerchat/internal/domain"
)

// SignatureLength is the size of an account signature: r (32) || s (32) || v (1).
const SignatureLength = 65

// ErrBadSignature is returned for signatures that are malformed or do not
// recover to a public key.
var ErrBadSignature = errors.New("crypto: bad signature")

const personalPrefix = "\x19Ethereum Signed Message:\n"

// MessageHash is the personal_sign digest of msg: Keccak-256 over the
// prefixed message and its decimal length.
func MessageHash(msg []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(personalPrefix + strconv.Itoa(len(msg))))
	h.Write(msg)
	return h.Sum(nil)
}

// SignMessage signs msg with an account key the way a wallet answers
// personal_sign. v is 27 or 28.
func SignMessage(accountKey, msg []byte) ([]byte, error) {
	priv, err := parsePrivateKey(accountKey)
	if err != nil {
		return nil, err
	}
	defer priv.Zero()

	// SignCompact returns v || r || s.
	compact := ecdsa.SignCompact(priv, MessageHash(msg), false)
	sig := make([]byte, SignatureLength)
	copy(sig, compact[1:])
	sig[64] = compact[0]
	return sig, nil
}

// RecoverAddress returns the account whose key produced sig over msg. Both
// 27/28 and 0/1 recovery ids are accepted.
func RecoverAddress(msg, sig []byte) (domain.Address, error) {
	if len(sig) != SignatureLength {
		return domain.Address{}, ErrBadSignature
	}
	v := sig[64]
	if v < 27 {
		v += 27
	}
	if v != 27 && v != 28 {
		return domain.Address{}, ErrBadSignature
	}
	compact := make([]byte, SignatureLength)
	compact[0] = v
	copy(compact[1:], sig[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, MessageHash(msg))
	if err != nil {
		return domain.Address{}, ErrBadSignature
	}
	return addressFromPublicKey(pub), nil
}
