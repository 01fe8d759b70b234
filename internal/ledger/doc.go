// Package ledger is an embedded, single-node stand-in for the chat contract:
// an append-only log plus key-value registries, stored in bbolt.
//
// Every successful write is one block. The block counter lives in the
// metadata bucket and is advanced inside the same transaction as the write,
// so block numbers are dense and strictly increasing.
//
// Buckets:
//   - accounts     address -> account record
//   - links        owner||peer -> link record
//   - link_events  block -> link event
//   - messages     block -> message event
//
// Records are CBOR encoded. The package does not execute contracts, charge
// gas or run consensus.
package ledger
