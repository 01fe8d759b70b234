package history

import (
	"cmp"
	"fmt"
	"slices"

	"ledgerchat/internal/crypto"
	"ledgerchat/internal/domain"
)

// Merge combines the two directions of a conversation into one slice
// ordered by timestamp. For a self-chat the received set is the same log
// entries as sent and is ignored.
func Merge(self, peer domain.Address, sent, received []domain.MessageEvent) []domain.MessageEvent {
	out := make([]domain.MessageEvent, 0, len(sent)+len(received))
	out = append(out, sent...)
	if self != peer {
		out = append(out, received...)
	}
	slices.SortStableFunc(out, compare)
	return out
}

func compare(a, b domain.MessageEvent) int {
	if c := cmp.Compare(a.Timestamp, b.Timestamp); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Block, b.Block); c != 0 {
		return c
	}
	return cmp.Compare(a.Index, b.Index)
}

// Decrypt opens each event with c. Order is preserved.
func Decrypt(self domain.Address, events []domain.MessageEvent, c domain.SymmetricCipher) domain.Conversation {
	conv := make(domain.Conversation, 0, len(events))
	for _, ev := range events {
		conv = append(conv, Entry(self, ev, c))
	}
	return conv
}

// Entry opens a single event.
func Entry(self domain.Address, ev domain.MessageEvent, c domain.SymmetricCipher) domain.ConversationEntry {
	e := domain.ConversationEntry{
		Own:    ev.Sender == self,
		Time:   ev.Timestamp,
		Sender: ev.Sender,
		Block:  ev.Block,
		Index:  ev.Index,
	}
	pt, err := c.Decrypt(ev.Ciphertext)
	if err != nil {
		e.Corrupt = true
		e.Err = fmt.Errorf("entry %d/%d: %w", ev.Block, ev.Index, crypto.ErrDecryptionFailure)
		return e
	}
	e.Text = string(pt)
	return e
}
