package wallet

import (
	"context"
	"fmt"
	"unicode"

	"ledgerchat/internal/crypto"
	"ledgerchat/internal/domain"
)

const minPassphraseLength = 12

// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
var ErrWeakPassphrase = fmt.Errorf(
	"passphrase is too weak (must be at least %d characters and include upper, lower, "+
		"number, and symbol)",
	minPassphraseLength,
)

// Keystore is a local software wallet. Each account is a secp256k1 key
// sealed in a domain.WalletKeyStore under one passphrase.
type Keystore struct {
	store      domain.WalletKeyStore
	passphrase string
}

// NewKeystore returns a keystore that unlocks keys with passphrase.
func NewKeystore(store domain.WalletKeyStore, passphrase string) *Keystore {
	return &Keystore{store: store, passphrase: passphrase}
}

// Create generates a new account key, stores it and returns its address.
func (k *Keystore) Create() (domain.Address, error) {
	if !isSecurePassphrase(k.passphrase) {
		return domain.Address{}, ErrWeakPassphrase
	}
	e, err := crypto.GenerateECIES()
	if err != nil {
		return domain.Address{}, err
	}
	defer e.Close()
	key := e.ExportPrivateKey()
	defer crypto.Wipe(key)

	addr, err := crypto.AddressFromPrivateKey(key)
	if err != nil {
		return domain.Address{}, err
	}
	if err := k.store.SaveWalletKey(k.passphrase, addr, key); err != nil {
		return domain.Address{}, err
	}
	return addr, nil
}

// Accounts lists the addresses this keystore holds keys for.
func (k *Keystore) Accounts() ([]domain.Address, error) {
	return k.store.ListWalletAddresses()
}

// EncryptionPublicKey returns the wallet encryption key of who.
func (k *Keystore) EncryptionPublicKey(ctx context.Context, who domain.Address) ([32]byte, error) {
	pub, priv, err := k.keyPair(ctx, who)
	if err != nil {
		return [32]byte{}, err
	}
	crypto.Wipe(priv[:])
	return *pub, nil
}

// EncryptToWallet encrypts plaintext to who's wallet key.
func (k *Keystore) EncryptToWallet(ctx context.Context, who domain.Address, plaintext []byte) ([]byte, error) {
	pub, err := k.EncryptionPublicKey(ctx, who)
	if err != nil {
		return nil, err
	}
	p, err := SealPayload(&pub, plaintext)
	if err != nil {
		return nil, err
	}
	return p.Pack()
}

// DecryptAsWallet opens a blob produced by EncryptToWallet for who.
func (k *Keystore) DecryptAsWallet(ctx context.Context, who domain.Address, ciphertext []byte) ([]byte, error) {
	p, err := UnpackPayload(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthorizationDenied, err)
	}
	_, priv, err := k.keyPair(ctx, who)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(priv[:])
	text, err := OpenPayload(p, priv)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthorizationDenied, err)
	}
	return DecodeData(text)
}

// SignMessage signs msg with who's account key, as personal_sign does.
func (k *Keystore) SignMessage(ctx context.Context, who domain.Address, msg []byte) ([]byte, error) {
	key, err := k.accountKey(ctx, who)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(key)
	return crypto.SignMessage(key, msg)
}

func (k *Keystore) keyPair(ctx context.Context, who domain.Address) (pub, priv *[32]byte, err error) {
	key, err := k.accountKey(ctx, who)
	if err != nil {
		return nil, nil, err
	}
	defer crypto.Wipe(key)
	return EncryptionKeyPair(key)
}

// accountKey unseals who's account key. Callers must Wipe it.
func (k *Keystore) accountKey(ctx context.Context, who domain.Address) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, ok, err := k.store.LoadWalletKey(k.passphrase, who)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthorizationDenied, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no key for %s", domain.ErrAuthorizationDenied, who)
	}
	return key, nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Keystore implements domain.WalletProvider.
var _ domain.WalletProvider = (*Keystore)(nil)
