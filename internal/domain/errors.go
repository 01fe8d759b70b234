package domain

import (
	"errors"

	types "ledgerchat/internal/domain/types"
)

var (
	// ErrInvalidAddress is returned for malformed account addresses.
	ErrInvalidAddress = types.ErrInvalidAddress

	// ErrNotRegistered means our own address has no registry entry.
	ErrNotRegistered = errors.New("account is not registered")
	// ErrPeerNotRegistered means the peer has no registry entry yet; the
	// caller may retry once the peer registers.
	ErrPeerNotRegistered = errors.New("peer is not registered")
	// ErrAlreadyRegistered is returned on a second registration for an address.
	ErrAlreadyRegistered = errors.New("account is already registered")

	// ErrNotLinked means no session link exists for the pair.
	ErrNotLinked = errors.New("no session link with peer")
	// ErrAlreadyLinked is returned when launching over an existing link.
	ErrAlreadyLinked = errors.New("session link already exists; rotate explicitly")

	// ErrWriteUnauthorized means the ledger node could not verify that the
	// named sender signed the write.
	ErrWriteUnauthorized = errors.New("ledger write not signed by sender")
	// ErrSubmissionFailed wraps any rejection of a ledger write.
	ErrSubmissionFailed = errors.New("ledger submission failed")
	// ErrMalformedResponse is returned when a ledger reply does not have the
	// expected shape.
	ErrMalformedResponse = errors.New("malformed ledger response")

	// ErrUserRejected means the wallet user declined the request.
	ErrUserRejected = errors.New("wallet: user rejected the request")
	// ErrProviderUnavailable means the wallet provider could not be reached.
	ErrProviderUnavailable = errors.New("wallet: provider unavailable")
	// ErrAuthorizationDenied means the wallet refused to act for the account,
	// or the ciphertext was not addressed to it.
	ErrAuthorizationDenied = errors.New("wallet: authorization denied")
)
