// Package identity provisions and unlocks an account's chat key.
//
// Registration generates a secp256k1 chat key pair, wraps the private key
// with the account's wallet and publishes the wrapped key and public key to
// the identity registry. Login reverses this: the wallet unwraps the key and
// the rebuilt public key must match the registered one.
package identity
