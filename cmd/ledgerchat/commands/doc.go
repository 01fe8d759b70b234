// Package commands defines the ledgerchat CLI and wires dependencies for subcommands.
//
// Commands
//
//   - wallet-init    Create a local keystore account
//   - register       Create and publish your chat key
//   - fingerprint    Print your address and chat key fingerprint
//   - launch         Publish a session link with a peer
//   - contacts       List peers you share a session link with
//   - send           Encrypt and send a message
//   - history        Print a conversation
//   - watch          Follow a conversation live
//   - version        Print the build version
//
// # Implementation
//
// The root command loads the TOML config, applies flag overrides and builds
// the app.Wire before any subcommand runs. Commands that act for an account
// log in first, which unwraps the chat key through the wallet.
package commands
