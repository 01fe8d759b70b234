package store

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"ledgerchat/internal/domain"
)

const accountsFile = "accounts.json"

// AccountFileStore persists per-ledger account profiles to disk.
type AccountFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewAccountFileStore returns an AccountFileStore rooted at dir.
func NewAccountFileStore(dir string) *AccountFileStore {
	return &AccountFileStore{dir: dir}
}

// SaveAccountProfile stores or updates the given profile.
func (s *AccountFileStore) SaveAccountProfile(profile domain.AccountProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, accountsFile)
	profiles := make(map[string]domain.AccountProfile)
	if err := readJSON(path, &profiles); err != nil {
		return err
	}
	profiles[accountKey(profile.LedgerURL, profile.Address)] = profile
	return writeJSON(path, profiles, 0o600)
}

// LoadAccountProfile retrieves the profile for (ledgerURL, who).
func (s *AccountFileStore) LoadAccountProfile(
	ledgerURL string,
	who domain.Address,
) (domain.AccountProfile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, accountsFile)
	profiles := make(map[string]domain.AccountProfile)
	if err := readJSON(path, &profiles); err != nil {
		return domain.AccountProfile{}, false, err
	}
	profile, ok := profiles[accountKey(ledgerURL, who)]
	return profile, ok, nil
}

func accountKey(ledgerURL string, who domain.Address) string {
	return fmt.Sprintf("%s|%s", strings.TrimRight(ledgerURL, "/"), who)
}

// Compile-time assertion that AccountFileStore implements domain.AccountStore.
var _ domain.AccountStore = (*AccountFileStore)(nil)
