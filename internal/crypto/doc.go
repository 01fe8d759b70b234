// Package crypto exposes the primitives used by ledgerchat.
//
// Contents
//
//   - ECIES over secp256k1: the per-user chat key pair that session secrets
//     are encrypted to (NewECIES, GenerateECIES)
//   - SessionCipher: XChaCha20-Poly1305 under a shared session secret, one
//     random nonce per message (NewSessionCipher, NewSessionSecret)
//   - Ethereum-style account addresses derived from secp256k1 keys
//     (AddressFromPrivateKey)
//   - personal_sign style account signatures and signer recovery
//     (SignMessage, RecoverAddress)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Errors
//
// ErrInvalidKey is returned for key material that does not decode to a valid
// scalar or curve point. ErrDecryptionFailure covers every way a ciphertext
// can fail to open (truncated, wrong key, tampered body) so callers cannot
// distinguish them. ErrBadSignature covers signatures that do not recover to
// any key.
package crypto
