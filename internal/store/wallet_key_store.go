package store

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"ledgerchat/internal/domain"
)

const (
	walletDir    = "wallet"
	walletKeyExt = ".key.enc"
)

// WalletKeyFileStore keeps one passphrase-sealed account key per address
// under <home>/wallet.
type WalletKeyFileStore struct {
	dir    string
	params scryptParams
	mu     sync.Mutex
}

// NewWalletKeyFileStore returns a WalletKeyFileStore rooted at home.
func NewWalletKeyFileStore(home string) *WalletKeyFileStore {
	return &WalletKeyFileStore{
		dir:    filepath.Join(home, walletDir),
		params: defaultScryptParams(),
	}
}

// SaveWalletKey seals key for who and writes it to disk, replacing any
// previous file.
func (s *WalletKeyFileStore) SaveWalletKey(passphrase string, who domain.Address, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ct, err := seal(passphrase, key, who.Slice(), s.params)
	if err != nil {
		return err
	}
	return writeFile(s.path(who), ct, 0o600)
}

// LoadWalletKey reads and opens the key for who. The bool is false when no
// key file exists.
func (s *WalletKeyFileStore) LoadWalletKey(passphrase string, who domain.Address) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := readFile(s.path(who))
	if err != nil || b == nil {
		return nil, false, err
	}
	key, err := open(passphrase, b, who.Slice())
	if err != nil {
		return nil, true, err
	}
	return key, true, nil
}

// ListWalletAddresses returns the addresses with a key file, sorted.
func (s *WalletKeyFileStore) ListWalletAddresses() ([]domain.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []domain.Address
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), walletKeyExt)
		if !ok || e.IsDir() {
			continue
		}
		addr, err := domain.ParseAddress(name)
		if err != nil {
			continue
		}
		out = append(out, addr)
	}
	slices.SortFunc(out, func(a, b domain.Address) int { return strings.Compare(a.String(), b.String()) })
	return out, nil
}

func (s *WalletKeyFileStore) path(who domain.Address) string {
	return filepath.Join(s.dir, who.String()+walletKeyExt)
}

// Compile-time assertion that WalletKeyFileStore implements domain.WalletKeyStore.
var _ domain.WalletKeyStore = (*WalletKeyFileStore)(nil)
