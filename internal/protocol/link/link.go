package link

import (
	"errors"
	"fmt"

	"ledgerchat/internal/crypto"
	"ledgerchat/internal/domain"
)

// ErrBadSecret means an opened link did not contain a 32-byte secret.
var ErrBadSecret = errors.New("link: bad session secret length")

// Seal encrypts secret for self and for the peer's public key.
func Seal(
	self domain.AsymmetricCipher,
	peer domain.CompressedPublicKey,
	secret domain.SessionSecret,
) (forSelf, forPeer []byte, err error) {
	forSelf, err = self.EncryptForSelf(secret[:])
	if err != nil {
		return nil, nil, fmt.Errorf("seal for self: %w", err)
	}
	forPeer, err = self.EncryptTo(peer.Hex(), secret[:])
	if err != nil {
		return nil, nil, fmt.Errorf("seal for peer: %w", err)
	}
	return forSelf, forPeer, nil
}

// Open decrypts one half of a link with our key pair.
func Open(self domain.AsymmetricCipher, sealed []byte) (domain.SessionSecret, error) {
	var secret domain.SessionSecret
	raw, err := self.DecryptOwn(sealed)
	if err != nil {
		return secret, err
	}
	defer crypto.Wipe(raw)
	if len(raw) != domain.SessionSecretLength {
		return secret, ErrBadSecret
	}
	copy(secret[:], raw)
	return secret, nil
}
