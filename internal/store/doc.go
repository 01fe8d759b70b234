// Package store provides file-based persistence for a ledgerchat client.
//
// It holds concrete implementations of the domain storage interfaces,
// serialising data as JSON under the configured home directory. Writes go
// through a temp file and an atomic rename. All stores are safe for
// concurrent use.
//
// The package includes stores for:
//   - Local software-wallet account keys, sealed with a passphrase (WalletKeyFileStore)
//   - Per-ledger account profiles (AccountFileStore)
//   - Discovered contacts and the scan checkpoint (ContactFileStore)
//
// Nothing here ever holds a session secret or a message plaintext.
package store
