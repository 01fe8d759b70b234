package interfaces

import domaintypes "ledgerchat/internal/domain/types"

// WalletKeyStore persists the local software wallet's account keys.
type WalletKeyStore interface {
	SaveWalletKey(passphrase string, who domaintypes.Address, key []byte) error
	LoadWalletKey(passphrase string, who domaintypes.Address) ([]byte, bool, error)
	ListWalletAddresses() ([]domaintypes.Address, error)
}

// AccountStore persists per-ledger account profiles.
type AccountStore interface {
	SaveAccountProfile(profile domaintypes.AccountProfile) error
	LoadAccountProfile(
		ledgerURL string,
		who domaintypes.Address,
	) (domaintypes.AccountProfile, bool, error)
}

// ContactStore caches discovered contacts and how far the link events were
// scanned, so discovery can resume.
type ContactStore interface {
	SaveContacts(self domaintypes.Address, contacts []domaintypes.Address, scannedTo uint64) error
	LoadContacts(self domaintypes.Address) ([]domaintypes.Address, uint64, bool, error)
}
