package interfaces

import (
	"context"

	domaintypes "ledgerchat/internal/domain/types"
)

// WalletOracle encrypts to, and decrypts for, a wallet's intrinsic key
// without exposing it. Calls may wait on user interaction.
type WalletOracle interface {
	EncryptToWallet(ctx context.Context, who domaintypes.Address, plaintext []byte) ([]byte, error)
	DecryptAsWallet(ctx context.Context, who domaintypes.Address, ciphertext []byte) ([]byte, error)
}

// AccountSigner signs with a wallet's account key the way personal_sign
// does; the signer's address is recoverable from the signature.
type AccountSigner interface {
	SignMessage(ctx context.Context, who domaintypes.Address, msg []byte) ([]byte, error)
}

// WalletProvider is a WalletOracle and AccountSigner that can also report a
// wallet's encryption public key (eth_getEncryptionPublicKey).
type WalletProvider interface {
	WalletOracle
	AccountSigner
	EncryptionPublicKey(ctx context.Context, who domaintypes.Address) ([32]byte, error)
}
