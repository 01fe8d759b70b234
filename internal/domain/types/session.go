package types

// SessionLink is one directed half of a published link: the session secret
// encrypted to Owner's chat key for the conversation with Peer.
type SessionLink struct {
	Owner  Address
	Peer   Address
	Secret []byte
	Epoch  uint64
	Block  uint64
}

// LinkEvent is emitted whenever a link is published.
type LinkEvent struct {
	Initializer Address
	Peer        Address
	Epoch       uint64
	Block       uint64
}

// LinkFilter selects link events. Nil fields match anything; ToBlock zero
// means the latest block.
type LinkFilter struct {
	Initializer *Address
	Peer        *Address
	FromBlock   uint64
	ToBlock     uint64
}

// Matches reports whether ev is selected by f.
func (f LinkFilter) Matches(ev LinkEvent) bool {
	if f.Initializer != nil && *f.Initializer != ev.Initializer {
		return false
	}
	if f.Peer != nil && *f.Peer != ev.Peer {
		return false
	}
	return inRange(ev.Block, f.FromBlock, f.ToBlock)
}

// Session is a resolved conversation key for (Self, Peer).
type Session struct {
	Self   Address
	Peer   Address
	Epoch  uint64
	Secret SessionSecret
}

// IsSelfChat reports whether the conversation is with oneself.
func (s Session) IsSelfChat() bool { return s.Self == s.Peer }

// SessionState is the protocol state of a (self, peer) pair.
type SessionState int

const (
	// Unlinked means no link has been published for the pair.
	Unlinked SessionState = iota
	// Linked means a link exists on the ledger but has not been decrypted.
	Linked
	// Resolved means the session secret is held in memory.
	Resolved
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case Unlinked:
		return "unlinked"
	case Linked:
		return "linked"
	case Resolved:
		return "resolved"
	default:
		return "unknown"
	}
}

func inRange(block, from, to uint64) bool {
	if block < from {
		return false
	}
	return to == 0 || block <= to
}
