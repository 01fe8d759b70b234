// Package history turns raw message log entries into an ordered, decrypted
// conversation.
//
// The log returns entries in append order and the two directions of a
// conversation come from separate queries. Merge combines them and sorts
// by client timestamp, falling back to log position for ties. Decrypt opens
// every entry with the session cipher; an entry that fails to open is kept
// in place and flagged Corrupt rather than aborting the whole view.
package history
