// Package wallet provides the wallet oracle: encryption to an account's
// wallet key and decryption by the wallet, without the chat code ever
// seeing the wallet's private key.
//
// Two providers implement domain.WalletProvider:
//   - Keystore, a local software wallet holding passphrase-sealed account keys
//   - RPC, a JSON-RPC 2.0 client for an external provider that supports
//     eth_getEncryptionPublicKey, eth_decrypt and personal_sign
//
// Both also sign ledger writes with the account key (SignMessage), so the
// ledger node can recover who made a write.
//
// Both use the x25519-xsalsa20-poly1305 scheme. A wrapped blob is stored as
//
//	ephemeral public key (32) || nonce (24) || box
//
// and is handed to eth_decrypt as the 0x-hex of a JSON payload with base64
// fields. The boxed data is ASCII85 text, as browser wallets only decrypt
// to strings.
//
// Connection is the handle the rest of the client holds. It has an explicit
// Connect and Disconnect lifecycle and refuses to act for any account other
// than the connected one.
package wallet
