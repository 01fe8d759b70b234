package types

// RegisteredAccount is the identity registry entry for one address.
//
// WrappedPrivateKey is the chat private key encrypted to the owner's wallet;
// only the wallet can unwrap it.
type RegisteredAccount struct {
	Address           Address
	WrappedPrivateKey []byte
	PublicKeyX        [32]byte
	PublicKeyYParity  bool
	Block             uint64
}

// PublicKey returns the compressed chat public key.
func (a RegisteredAccount) PublicKey() CompressedPublicKey {
	return CompressedFromParts(a.PublicKeyX, a.PublicKeyYParity)
}

// AccountProfile identifies a local account on a specific ledger node.
type AccountProfile struct {
	LedgerURL string  `json:"ledger_url"`
	Address   Address `json:"address"`
	PublicKey string  `json:"public_key,omitempty"`
}
