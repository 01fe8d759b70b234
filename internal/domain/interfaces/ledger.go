package interfaces

import (
	"context"

	domaintypes "ledgerchat/internal/domain/types"
)

// IdentityRegistry maps an address to its registered chat key material.
// Entries are write-once.
type IdentityRegistry interface {
	Register(
		ctx context.Context,
		self domaintypes.Address,
		wrappedPrivateKey []byte,
		publicKeyX [32]byte,
		publicKeyYParity bool,
	) error
	Lookup(
		ctx context.Context,
		who domaintypes.Address,
	) (domaintypes.RegisteredAccount, bool, error)
}

// SessionLinkRegistry stores the two encrypted copies of a session secret.
// PublishLink always writes and bumps the epoch; LaunchLink refuses with
// ErrAlreadyLinked when the initializer already holds a half for the peer.
type SessionLinkRegistry interface {
	LaunchLink(
		ctx context.Context,
		self domaintypes.Address,
		peer domaintypes.Address,
		secretForSelf []byte,
		secretForPeer []byte,
	) (domaintypes.LinkEvent, error)
	PublishLink(
		ctx context.Context,
		self domaintypes.Address,
		peer domaintypes.Address,
		secretForSelf []byte,
		secretForPeer []byte,
	) (domaintypes.LinkEvent, error)
	ReadLink(
		ctx context.Context,
		owner domaintypes.Address,
		peer domaintypes.Address,
	) (domaintypes.SessionLink, bool, error)
	LinkEvents(ctx context.Context, filter domaintypes.LinkFilter) ([]domaintypes.LinkEvent, error)
}

// BlockSource reports the current head of the ledger.
type BlockSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// MessageLog is the append-only log of encrypted messages. Query returns
// entries in log order, not timestamp order.
type MessageLog interface {
	BlockSource
	Append(
		ctx context.Context,
		sender domaintypes.Address,
		recipient domaintypes.Address,
		ciphertext []byte,
		timestamp int64,
	) (domaintypes.Receipt, error)
	Query(ctx context.Context, filter domaintypes.MessageFilter) ([]domaintypes.MessageEvent, error)
}

// Ledger is everything a chat client needs from a ledger node.
type Ledger interface {
	IdentityRegistry
	SessionLinkRegistry
	MessageLog
}
