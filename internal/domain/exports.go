package domain

import (
	interfaces "ledgerchat/internal/domain/interfaces"
	types "ledgerchat/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Address             = types.Address
	Fingerprint         = types.Fingerprint
	CompressedPublicKey = types.CompressedPublicKey
	SessionSecret       = types.SessionSecret
	RegisteredAccount   = types.RegisteredAccount
	AccountProfile      = types.AccountProfile
	SessionLink         = types.SessionLink
	LinkEvent           = types.LinkEvent
	LinkFilter          = types.LinkFilter
	Session             = types.Session
	SessionState        = types.SessionState
	MessageEvent        = types.MessageEvent
	MessageFilter       = types.MessageFilter
	Receipt             = types.Receipt
	ConversationEntry   = types.ConversationEntry
	Conversation        = types.Conversation
)

// Sizes and session states.
const (
	AddressLength       = types.AddressLength
	SessionSecretLength = types.SessionSecretLength

	Unlinked = types.Unlinked
	Linked   = types.Linked
	Resolved = types.Resolved
)

// Constructors re-exported for callers that only import domain.
var (
	ParseAddress        = types.ParseAddress
	MustAddress         = types.MustAddress
	CompressedFromParts = types.CompressedFromParts
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	IdentityRegistry    = interfaces.IdentityRegistry
	SessionLinkRegistry = interfaces.SessionLinkRegistry
	BlockSource         = interfaces.BlockSource
	MessageLog          = interfaces.MessageLog
	Ledger              = interfaces.Ledger
	WalletOracle        = interfaces.WalletOracle
	WalletProvider      = interfaces.WalletProvider
	AccountSigner       = interfaces.AccountSigner
	AsymmetricCipher    = interfaces.AsymmetricCipher
	SymmetricCipher     = interfaces.SymmetricCipher
	WalletKeyStore      = interfaces.WalletKeyStore
	AccountStore        = interfaces.AccountStore
	ContactStore        = interfaces.ContactStore
	IdentityService     = interfaces.IdentityService
	SessionService      = interfaces.SessionService
	MessageService      = interfaces.MessageService
	Subscription        = interfaces.Subscription
)
