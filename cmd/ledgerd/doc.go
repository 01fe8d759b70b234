// Package main runs ledgerd, the single-node ledger that ledgerchat clients
// talk to. It stores the identity registry, session links and the message log
// in a bbolt file and serves them over HTTP.
//
// HTTP API
//
//	POST /accounts                          Register a chat key (write-once).
//	GET  /accounts/{address}                Look up a registered account.
//	POST /links                             Publish both halves of a session link;
//	                                        refused over an existing link unless
//	                                        "rotate" is true.
//	GET  /links/{owner}/{peer}              Read one directed half.
//	GET  /links/events?initializer=&peer=   Link events in a block range.
//	POST /messages                          Append an encrypted message.
//	GET  /messages?sender=&recipient=       Messages in a block range.
//	GET  /block                             Current block number.
//	GET  /metrics                           Prometheus metrics.
//
// Writes carry the acting address in X-Ledger-Sender, the client time in
// milliseconds in X-Ledger-Time and a personal_sign signature by that
// address in X-Ledger-Signature. A write whose signer differs from the
// sender, whose time is more than five minutes off, or that repeats an
// accepted write is rejected with 401. Range queries take from and to block
// numbers; to=0 means the latest block.
//
// Behaviour
//
//   - Every write is one block; blocks are numbered from 1.
//   - Responses are JSON. Rejected writes return 409 with an error code.
//   - Each request gets an X-Request-Id and an access log line.
//   - SIGHUP reopens the log file; SIGINT and SIGTERM shut down gracefully.
//
// The node never sees plaintext or private keys; it only stores ciphertext
// and public keys.
package main
