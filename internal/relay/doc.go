// Package relay carries the ledger interfaces over HTTP.
//
// Server exposes any domain.Ledger as a small JSON API; HTTP is the client
// that implements domain.Ledger against it. ledgerd runs the server in front
// of the bbolt ledger and the CLI talks to it through the client.
//
// API
//
//	POST /accounts                 register the sender's account
//	GET  /accounts/{addr}          look up an account
//	POST /links                    publish a session link from the sender
//	GET  /links/{owner}/{peer}     read owner's half of a link
//	GET  /links/events             link events (?initializer&peer&from&to)
//	POST /messages                 append a message from the sender
//	GET  /messages                 query messages (?sender&recipient&from&to)
//	GET  /block                    latest block number
//
// The writing account is named by the X-Ledger-Sender header and proven by
// X-Ledger-Signature, the account's personal_sign signature over the method,
// path, sender, X-Ledger-Time and a SHA-256 of the body. The node recovers
// the signer, bounds the clock skew and refuses replays. Links published
// without "rotate" are refused if the pair is already linked. Byte fields
// travel as 0x-prefixed hex. Errors are returned as {"error","code"} and the
// client maps known codes back to the domain sentinel errors. Every response
// that fails to decode or validate is reported as domain.ErrMalformedResponse.
package relay
