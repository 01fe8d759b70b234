package store

import (
	"path/filepath"
	"sync"

	"ledgerchat/internal/domain"
)

const contactsFilename = "contacts.json"

type contactRecord struct {
	Contacts  []domain.Address `json:"contacts"`
	ScannedTo uint64           `json:"scanned_to"`
}

// ContactFileStore caches discovered contacts per ledger and local
// address. Scan checkpoints are block numbers of one ledger, so entries for
// another ledger are never read.
type ContactFileStore struct {
	dir       string
	ledgerURL string
	mu        sync.Mutex
}

// NewContactFileStore returns a ContactFileStore rooted at dir for the
// ledger at ledgerURL.
func NewContactFileStore(dir, ledgerURL string) *ContactFileStore {
	return &ContactFileStore{dir: dir, ledgerURL: ledgerURL}
}

// SaveContacts replaces the cached contacts for self.
func (s *ContactFileStore) SaveContacts(self domain.Address, contacts []domain.Address, scannedTo uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, contactsFilename)
	all := map[string]contactRecord{}
	if err := readJSON(path, &all); err != nil {
		return err
	}
	all[accountKey(s.ledgerURL, self)] = contactRecord{Contacts: contacts, ScannedTo: scannedTo}
	return writeJSON(path, all, 0o600)
}

// LoadContacts returns the cached contacts for self and the last block
// scanned.
func (s *ContactFileStore) LoadContacts(self domain.Address) ([]domain.Address, uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, contactsFilename)
	all := map[string]contactRecord{}
	if err := readJSON(path, &all); err != nil {
		return nil, 0, false, err
	}
	rec, ok := all[accountKey(s.ledgerURL, self)]
	return rec.Contacts, rec.ScannedTo, ok, nil
}

// Compile-time assertion that ContactFileStore implements domain.ContactStore.
var _ domain.ContactStore = (*ContactFileStore)(nil)
