package relay

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"ledgerchat/internal/domain"
)

// Write authentication headers. The sender signs writeDigest with its
// account key; the node recovers the signer and compares it to the sender.
const (
	SenderHeader    = "X-Ledger-Sender"
	TimeHeader      = "X-Ledger-Time"
	SignatureHeader = "X-Ledger-Signature"
)

// writeDigest is the message signed for one write. It binds the route, the
// sender, the client time in milliseconds and the body.
func writeDigest(method, path string, sender domain.Address, ts int64, body []byte) []byte {
	sum := sha256.Sum256(body)
	return fmt.Appendf(nil, "ledgerchat write v1\n%s %s\nsender %s\ntime %d\nbody 0x%x",
		method, path, sender, ts, sum)
}

// hexBytes is a byte slice that marshals as 0x-prefixed hex.
type hexBytes []byte

func (h hexBytes) MarshalText() ([]byte, error) {
	return []byte("0x" + hex.EncodeToString(h)), nil
}

func (h *hexBytes) UnmarshalText(b []byte) error {
	s, ok := strings.CutPrefix(string(b), "0x")
	if !ok {
		return errors.New("hex value must start with 0x")
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*h = raw
	return nil
}

type registerRequest struct {
	WrappedKey hexBytes `json:"wrapped_key"`
	PubX       hexBytes `json:"pub_x"`
	Parity     bool     `json:"parity"`
}

func (r registerRequest) validate() error {
	if len(r.WrappedKey) == 0 {
		return errors.New("wrapped_key is required")
	}
	if len(r.PubX) != 32 {
		return fmt.Errorf("pub_x must be 32 bytes, got %d", len(r.PubX))
	}
	return nil
}

type accountResponse struct {
	Address    domain.Address `json:"address"`
	WrappedKey hexBytes       `json:"wrapped_key"`
	PubX       hexBytes       `json:"pub_x"`
	Parity     bool           `json:"parity"`
	Block      uint64         `json:"block"`
}

func accountToWire(a domain.RegisteredAccount) accountResponse {
	return accountResponse{
		Address:    a.Address,
		WrappedKey: a.WrappedPrivateKey,
		PubX:       a.PublicKeyX[:],
		Parity:     a.PublicKeyYParity,
		Block:      a.Block,
	}
}

func (r accountResponse) toDomain() (domain.RegisteredAccount, error) {
	if len(r.PubX) != 32 || len(r.WrappedKey) == 0 || r.Address.IsZero() {
		return domain.RegisteredAccount{}, domain.ErrMalformedResponse
	}
	a := domain.RegisteredAccount{
		Address:           r.Address,
		WrappedPrivateKey: r.WrappedKey,
		PublicKeyYParity:  r.Parity,
		Block:             r.Block,
	}
	copy(a.PublicKeyX[:], r.PubX)
	return a, nil
}

type linkRequest struct {
	Peer    domain.Address `json:"peer"`
	ForSelf hexBytes       `json:"for_self"`
	ForPeer hexBytes       `json:"for_peer"`
	// Rotate allows replacing an existing link; without it the node refuses
	// with already_linked.
	Rotate bool `json:"rotate"`
}

type linkResponse struct {
	Owner  domain.Address `json:"owner"`
	Peer   domain.Address `json:"peer"`
	Secret hexBytes       `json:"secret"`
	Epoch  uint64         `json:"epoch"`
	Block  uint64         `json:"block"`
}

func (r linkResponse) toDomain(owner, peer domain.Address) (domain.SessionLink, error) {
	if len(r.Secret) == 0 || r.Epoch == 0 {
		return domain.SessionLink{}, domain.ErrMalformedResponse
	}
	if r.Owner != owner || r.Peer != peer {
		return domain.SessionLink{}, fmt.Errorf("%w: link %s/%s, asked for %s/%s",
			domain.ErrMalformedResponse, r.Owner, r.Peer, owner, peer)
	}
	return domain.SessionLink{Owner: r.Owner, Peer: r.Peer, Secret: r.Secret, Epoch: r.Epoch, Block: r.Block}, nil
}

type linkEvent struct {
	Initializer domain.Address `json:"initializer"`
	Peer        domain.Address `json:"peer"`
	Epoch       uint64         `json:"epoch"`
	Block       uint64         `json:"block"`
}

func (e linkEvent) toDomain() (domain.LinkEvent, error) {
	if e.Block == 0 || e.Epoch == 0 {
		return domain.LinkEvent{}, domain.ErrMalformedResponse
	}
	return domain.LinkEvent(e), nil
}

type appendRequest struct {
	Recipient  domain.Address `json:"recipient"`
	Ciphertext hexBytes       `json:"ciphertext"`
	Timestamp  int64          `json:"timestamp"`
}

type message struct {
	Sender     domain.Address `json:"sender"`
	Recipient  domain.Address `json:"recipient"`
	Ciphertext hexBytes       `json:"ciphertext"`
	Timestamp  int64          `json:"timestamp"`
	Block      uint64         `json:"block"`
	Index      uint64         `json:"index"`
}

func messageToWire(m domain.MessageEvent) message {
	return message{
		Sender:     m.Sender,
		Recipient:  m.Recipient,
		Ciphertext: m.Ciphertext,
		Timestamp:  m.Timestamp,
		Block:      m.Block,
		Index:      m.Index,
	}
}

func (m message) toDomain() (domain.MessageEvent, error) {
	if len(m.Ciphertext) == 0 || m.Block == 0 {
		return domain.MessageEvent{}, domain.ErrMalformedResponse
	}
	return domain.MessageEvent{
		Sender:     m.Sender,
		Recipient:  m.Recipient,
		Ciphertext: m.Ciphertext,
		Timestamp:  m.Timestamp,
		Block:      m.Block,
		Index:      m.Index,
	}, nil
}

type blockResponse struct {
	Block uint64 `json:"block"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Error codes shared by server and client.
const (
	codeBadRequest        = "bad_request"
	codeNotFound          = "not_found"
	codeAlreadyRegistered = "already_registered"
	codeAlreadyLinked     = "already_linked"
	codeNotRegistered     = "not_registered"
	codePeerNotRegistered = "peer_not_registered"
	codeUnauthorized      = "unauthorized"
	codeInternal          = "internal"
)

var codeErrors = map[string]error{
	codeAlreadyRegistered: domain.ErrAlreadyRegistered,
	codeAlreadyLinked:     domain.ErrAlreadyLinked,
	codeNotRegistered:     domain.ErrNotRegistered,
	codePeerNotRegistered: domain.ErrPeerNotRegistered,
	codeUnauthorized:      domain.ErrWriteUnauthorized,
}
