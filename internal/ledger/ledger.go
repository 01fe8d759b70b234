package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"gopkg.in/op/go-logging.v1"
	bolt "go.etcd.io/bbolt"

	"ledgerchat/internal/domain"
)

const (
	metadataBucket   = "metadata"
	accountsBucket   = "accounts"
	linksBucket      = "links"
	linkEventsBucket = "link_events"
	messagesBucket   = "messages"

	versionKey = "version"
	blockKeyID = "block"

	schemaVersion = 1
)

// ErrEmptyCiphertext is returned for writes that carry no payload.
var ErrEmptyCiphertext = errors.New("ledger: empty ciphertext")

// Ledger implements domain.Ledger on a bbolt file.
type Ledger struct {
	db  *bolt.DB
	log *logging.Logger
}

// Open creates or loads the ledger stored at path.
func Open(path string, log *logging.Logger) (*Ledger, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		for _, name := range []string{accountsBucket, linksBucket, linkEventsBucket, messagesBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		if v := meta.Get([]byte(versionKey)); v != nil {
			if len(v) != 1 || v[0] != schemaVersion {
				return fmt.Errorf("ledger: incompatible version: %v", v)
			}
			return nil
		}
		return meta.Put([]byte(versionKey), []byte{schemaVersion})
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	if log == nil {
		log = logging.MustGetLogger("ledger")
	}
	return &Ledger{db: db, log: log}, nil
}

// Close flushes and closes the database.
func (l *Ledger) Close() error {
	_ = l.db.Sync()
	return l.db.Close()
}

// BlockNumber returns the latest block.
func (l *Ledger) BlockNumber(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n uint64
	err := l.db.View(func(tx *bolt.Tx) error {
		n = currentBlock(tx)
		return nil
	})
	return n, err
}

// Register stores the account for self. A second registration for the same
// address fails with domain.ErrAlreadyRegistered and changes nothing.
func (l *Ledger) Register(ctx context.Context, self domain.Address, wrapped []byte, pubX [32]byte, parity bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(wrapped) == 0 {
		return ErrEmptyCiphertext
	}
	err := l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(accountsBucket))
		if b.Get(self[:]) != nil {
			return domain.ErrAlreadyRegistered
		}
		block, err := nextBlock(tx)
		if err != nil {
			return err
		}
		raw, err := encMode.Marshal(accountRecord{Wrapped: wrapped, PubX: pubX, Parity: parity, Block: block})
		if err != nil {
			return err
		}
		return b.Put(self[:], raw)
	})
	if err == nil {
		l.log.Infof("registered %s", self.Short())
	}
	return err
}

// Lookup returns the account for who.
func (l *Ledger) Lookup(ctx context.Context, who domain.Address) (domain.RegisteredAccount, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.RegisteredAccount{}, false, err
	}
	var (
		rec accountRecord
		ok  bool
	)
	err := l.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(accountsBucket)).Get(who[:])
		if raw == nil {
			return nil
		}
		ok = true
		return decMode.Unmarshal(raw, &rec)
	})
	if err != nil || !ok {
		return domain.RegisteredAccount{}, false, err
	}
	return domain.RegisteredAccount{
		Address:           who,
		WrappedPrivateKey: rec.Wrapped,
		PublicKeyX:        rec.PubX,
		PublicKeyYParity:  rec.Parity,
		Block:             rec.Block,
	}, true, nil
}

// PublishLink stores both halves of a session link in one block and emits a
// link event. The epoch is one past the newest epoch already stored for the
// pair, so a publish over an existing link is recorded as a rotation.
func (l *Ledger) PublishLink(ctx context.Context, self, peer domain.Address, forSelf, forPeer []byte) (domain.LinkEvent, error) {
	return l.publishLink(ctx, self, peer, forSelf, forPeer, false)
}

// LaunchLink is PublishLink for a first link only: it fails with
// domain.ErrAlreadyLinked, inside the same transaction, when self already
// holds a half for peer.
func (l *Ledger) LaunchLink(ctx context.Context, self, peer domain.Address, forSelf, forPeer []byte) (domain.LinkEvent, error) {
	return l.publishLink(ctx, self, peer, forSelf, forPeer, true)
}

func (l *Ledger) publishLink(ctx context.Context, self, peer domain.Address, forSelf, forPeer []byte, first bool) (domain.LinkEvent, error) {
	if err := ctx.Err(); err != nil {
		return domain.LinkEvent{}, err
	}
	if len(forSelf) == 0 || len(forPeer) == 0 {
		return domain.LinkEvent{}, ErrEmptyCiphertext
	}
	var ev domain.LinkEvent
	err := l.db.Update(func(tx *bolt.Tx) error {
		links := tx.Bucket([]byte(linksBucket))
		if first && links.Get(linkKey(self, peer)) != nil {
			return domain.ErrAlreadyLinked
		}
		epoch := uint64(0)
		for _, k := range [][]byte{linkKey(self, peer), linkKey(peer, self)} {
			if raw := links.Get(k); raw != nil {
				var rec linkRecord
				if err := decMode.Unmarshal(raw, &rec); err != nil {
					return err
				}
				epoch = max(epoch, rec.Epoch)
			}
		}
		epoch++

		block, err := nextBlock(tx)
		if err != nil {
			return err
		}
		// Peer half first: for a self-chat both keys are equal and our own
		// half must be the one that remains.
		for _, half := range []struct {
			key    []byte
			secret []byte
		}{
			{linkKey(peer, self), forPeer},
			{linkKey(self, peer), forSelf},
		} {
			raw, err := encMode.Marshal(linkRecord{Secret: half.secret, Epoch: epoch, Block: block})
			if err != nil {
				return err
			}
			if err := links.Put(half.key, raw); err != nil {
				return err
			}
		}

		raw, err := encMode.Marshal(linkEventRecord{Initializer: self, Peer: peer, Epoch: epoch})
		if err != nil {
			return err
		}
		ev = domain.LinkEvent{Initializer: self, Peer: peer, Epoch: epoch, Block: block}
		return tx.Bucket([]byte(linkEventsBucket)).Put(blockKey(block), raw)
	})
	if err != nil {
		return domain.LinkEvent{}, err
	}
	l.log.Infof("link %s -> %s epoch %d at block %d", self.Short(), peer.Short(), ev.Epoch, ev.Block)
	return ev, nil
}

// ReadLink returns owner's half of the link with peer.
func (l *Ledger) ReadLink(ctx context.Context, owner, peer domain.Address) (domain.SessionLink, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionLink{}, false, err
	}
	var (
		rec linkRecord
		ok  bool
	)
	err := l.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(linksBucket)).Get(linkKey(owner, peer))
		if raw == nil {
			return nil
		}
		ok = true
		return decMode.Unmarshal(raw, &rec)
	})
	if err != nil || !ok {
		return domain.SessionLink{}, false, err
	}
	return domain.SessionLink{Owner: owner, Peer: peer, Secret: rec.Secret, Epoch: rec.Epoch, Block: rec.Block}, true, nil
}

// LinkEvents returns link events matching f in block order.
func (l *Ledger) LinkEvents(ctx context.Context, f domain.LinkFilter) ([]domain.LinkEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []domain.LinkEvent
	err := l.scan(linkEventsBucket, f.FromBlock, f.ToBlock, func(block uint64, raw []byte) error {
		var rec linkEventRecord
		if err := decMode.Unmarshal(raw, &rec); err != nil {
			return err
		}
		ev := domain.LinkEvent{Initializer: rec.Initializer, Peer: rec.Peer, Epoch: rec.Epoch, Block: block}
		if f.Matches(ev) {
			out = append(out, ev)
		}
		return nil
	})
	return out, err
}

// Append adds a message to the log.
func (l *Ledger) Append(ctx context.Context, sender, recipient domain.Address, ciphertext []byte, ts int64) (domain.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return domain.Receipt{}, err
	}
	if len(ciphertext) == 0 {
		return domain.Receipt{}, ErrEmptyCiphertext
	}
	var rcpt domain.Receipt
	err := l.db.Update(func(tx *bolt.Tx) error {
		msgs := tx.Bucket([]byte(messagesBucket))
		seq, err := msgs.NextSequence()
		if err != nil {
			return err
		}
		block, err := nextBlock(tx)
		if err != nil {
			return err
		}
		rec := messageRecord{
			Sender:     sender,
			Recipient:  recipient,
			Ciphertext: slices.Clone(ciphertext),
			Timestamp:  ts,
			Index:      seq - 1,
		}
		raw, err := encMode.Marshal(rec)
		if err != nil {
			return err
		}
		rcpt = domain.Receipt{Block: block, Index: rec.Index}
		return msgs.Put(blockKey(block), raw)
	})
	if err != nil {
		return domain.Receipt{}, err
	}
	l.log.Debugf("message %d %s -> %s at block %d", rcpt.Index, sender.Short(), recipient.Short(), rcpt.Block)
	return rcpt, nil
}

// Query returns messages matching f in log order.
func (l *Ledger) Query(ctx context.Context, f domain.MessageFilter) ([]domain.MessageEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []domain.MessageEvent
	err := l.scan(messagesBucket, f.FromBlock, f.ToBlock, func(block uint64, raw []byte) error {
		var rec messageRecord
		if err := decMode.Unmarshal(raw, &rec); err != nil {
			return err
		}
		ev := domain.MessageEvent{
			Sender:     rec.Sender,
			Recipient:  rec.Recipient,
			Ciphertext: rec.Ciphertext,
			Timestamp:  rec.Timestamp,
			Block:      block,
			Index:      rec.Index,
		}
		if f.Matches(ev) {
			out = append(out, ev)
		}
		return nil
	})
	return out, err
}

// scan walks a block-keyed bucket from..to inclusive; to zero means latest.
func (l *Ledger) scan(bucket string, from, to uint64, fn func(block uint64, raw []byte) error) error {
	return l.db.View(func(tx *bolt.Tx) error {
		cur := tx.Bucket([]byte(bucket)).Cursor()
		for k, v := cur.Seek(blockKey(from)); k != nil; k, v = cur.Next() {
			block := binary.BigEndian.Uint64(k)
			if to != 0 && block > to {
				break
			}
			// Values are only valid for the life of the transaction.
			if err := fn(block, slices.Clone(v)); err != nil {
				return err
			}
		}
		return nil
	})
}

func currentBlock(tx *bolt.Tx) uint64 {
	raw := tx.Bucket([]byte(metadataBucket)).Get([]byte(blockKeyID))
	if len(raw) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(raw)
}

func nextBlock(tx *bolt.Tx) (uint64, error) {
	n := currentBlock(tx) + 1
	return n, tx.Bucket([]byte(metadataBucket)).Put([]byte(blockKeyID), blockKey(n))
}

// Compile-time assertion that Ledger implements domain.Ledger.
var _ domain.Ledger = (*Ledger)(nil)
