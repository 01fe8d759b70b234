// Package app wires application dependencies for the CLI.
//
// Config is read from a TOML file. NewWire builds the log backend, the
// ledger client, the local stores and the wallet connection; Register and
// Login then unlock a chat key and return an App holding the session and
// message services for that account.
package app
