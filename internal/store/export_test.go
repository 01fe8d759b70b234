package store

// UseFastScrypt lowers the KDF cost so tests do not spend seconds per seal.
func (s *WalletKeyFileStore) UseFastScrypt() { s.params = scryptParams{N: 1 << 10, R: 8, P: 1} }
