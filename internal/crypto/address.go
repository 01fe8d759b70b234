package crypto

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"

	"ledgerchat/internal/domain"
)

// AddressFromPrivateKey derives the Ethereum-style account address of a
// secp256k1 private key: the last 20 bytes of Keccak-256 over the
// uncompressed public key without its 0x04 prefix.
func AddressFromPrivateKey(privateKey []byte) (domain.Address, error) {
	priv, err := parsePrivateKey(privateKey)
	if err != nil {
		return domain.Address{}, err
	}
	defer priv.Zero()
	return addressFromPublicKey(priv.PubKey()), nil
}

func parsePrivateKey(b []byte) (*secp256k1.PrivateKey, error) {
	if len(b) != PrivateKeyBytes {
		return nil, ErrInvalidKey
	}
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(b); overflow || scalar.IsZero() {
		return nil, ErrInvalidKey
	}
	return secp256k1.NewPrivateKey(&scalar), nil
}

func addressFromPublicKey(pub *secp256k1.PublicKey) domain.Address {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub.SerializeUncompressed()[1:])
	sum := h.Sum(nil)

	var a domain.Address
	copy(a[:], sum[len(sum)-domain.AddressLength:])
	return a
}
