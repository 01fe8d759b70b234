// Package link seals and opens the session secret published for a pair of
// accounts.
//
// # Overview
//
// A conversation between two accounts is keyed by one random 32-byte
// secret. The initiator encrypts that secret twice with its chat key pair:
//   - once to itself, so it can recover the secret on any later login
//   - once to the peer's registered public key
//
// Both ciphertexts are published together as one link record. Either side
// later reads its own half and opens it with its private key.
//
// # Errors
//
// ErrBadSecret is returned when an opened link does not hold exactly one
// secret. Decryption errors from the cipher are passed through unchanged.
package link
