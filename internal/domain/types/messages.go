package types

// MessageEvent is one entry of the public message log.
//
// Timestamp is client supplied (milliseconds since the epoch) and is the
// display order. Index is the position in the log and is the tie-breaker.
type MessageEvent struct {
	Sender     Address
	Recipient  Address
	Ciphertext []byte
	Timestamp  int64
	Block      uint64
	Index      uint64
}

// MessageFilter selects log entries. Nil fields match anything; ToBlock zero
// means the latest block.
type MessageFilter struct {
	Sender    *Address
	Recipient *Address
	FromBlock uint64
	ToBlock   uint64
}

// Matches reports whether ev is selected by f.
func (f MessageFilter) Matches(ev MessageEvent) bool {
	if f.Sender != nil && *f.Sender != ev.Sender {
		return false
	}
	if f.Recipient != nil && *f.Recipient != ev.Recipient {
		return false
	}
	return inRange(ev.Block, f.FromBlock, f.ToBlock)
}

// Receipt confirms a durable append.
type Receipt struct {
	Block uint64 `json:"block"`
	Index uint64 `json:"index"`
}

// ConversationEntry is one decrypted line of a conversation.
//
// Corrupt entries keep their position and metadata; Err says why the
// ciphertext could not be opened.
type ConversationEntry struct {
	Own     bool
	Text    string
	Time    int64
	Sender  Address
	Block   uint64
	Index   uint64
	Corrupt bool
	Err     error
}

// Conversation is a view ordered by timestamp. It is derived and never stored.
type Conversation []ConversationEntry
