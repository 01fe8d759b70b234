package interfaces

import domaintypes "ledgerchat/internal/domain/types"

// AsymmetricCipher holds one chat key pair.
type AsymmetricCipher interface {
	EncryptTo(publicKeyHex string, plaintext []byte) ([]byte, error)
	EncryptForSelf(plaintext []byte) ([]byte, error)
	DecryptOwn(ciphertext []byte) ([]byte, error)
	PublicKeyHex() string
	PublicKey() domaintypes.CompressedPublicKey
	// Close wipes the private key.
	Close()
}

// SymmetricCipher encrypts under a fixed session secret.
type SymmetricCipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}
