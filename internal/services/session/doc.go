// Package session establishes and resolves conversation secrets.
//
// Launch publishes a fresh secret sealed for both parties; Resolve reads our
// half back and opens it. Resolved sessions are kept in memory only and are
// wiped by Close.
//
// Launching over an existing link is refused. A peer that has already
// resolved the old secret is not told about a new one, so messages sent
// under different secrets would be unreadable to one side. Rotate exists for
// deliberate replacement; the ledger records an incremented epoch on the link.
//
// Contacts discovers conversation partners by scanning link events in block
// chunks, resuming from the last scanned block recorded in a ContactStore.
package session
