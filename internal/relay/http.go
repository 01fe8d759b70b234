package relay

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ledgerchat/internal/domain"
)

// ErrNoSigner is returned for writes on a client without an AccountSigner.
var ErrNoSigner = errors.New("relay: no signer for ledger writes")

// HTTP is a domain.Ledger backed by a remote ledgerd. Writes are signed by
// Signer for the sending account; reads need no signer.
type HTTP struct {
	Base   string
	HTTP   *http.Client
	Signer domain.AccountSigner

	now func() time.Time
}

// NewHTTP returns a client for the ledgerd at base. signer may be nil for a
// read-only client.
func NewHTTP(base string, signer domain.AccountSigner) *HTTP {
	return &HTTP{
		Base:   strings.TrimRight(base, "/"),
		HTTP:   http.DefaultClient,
		Signer: signer,
		now:    time.Now,
	}
}

// Register publishes the account of self.
func (c *HTTP) Register(ctx context.Context, self domain.Address, wrapped []byte, pubX [32]byte, parity bool) error {
	return c.post(ctx, "/accounts", self, registerRequest{WrappedKey: wrapped, PubX: pubX[:], Parity: parity}, nil)
}

// Lookup fetches the account of who.
func (c *HTTP) Lookup(ctx context.Context, who domain.Address) (domain.RegisteredAccount, bool, error) {
	var out accountResponse
	found, err := c.getJSON(ctx, "/accounts/"+who.String(), nil, &out)
	if err != nil || !found {
		return domain.RegisteredAccount{}, false, err
	}
	acct, err := out.toDomain()
	if err != nil {
		return domain.RegisteredAccount{}, false, err
	}
	if acct.Address != who {
		return domain.RegisteredAccount{}, false, fmt.Errorf("%w: account for %s, asked for %s", domain.ErrMalformedResponse, acct.Address, who)
	}
	return acct, true, nil
}

// LaunchLink publishes a first link from self; the node refuses with
// domain.ErrAlreadyLinked if one exists.
func (c *HTTP) LaunchLink(ctx context.Context, self, peer domain.Address, forSelf, forPeer []byte) (domain.LinkEvent, error) {
	return c.publishLink(ctx, self, linkRequest{Peer: peer, ForSelf: forSelf, ForPeer: forPeer})
}

// PublishLink publishes both halves of a session link from self, replacing
// any existing link.
func (c *HTTP) PublishLink(ctx context.Context, self, peer domain.Address, forSelf, forPeer []byte) (domain.LinkEvent, error) {
	return c.publishLink(ctx, self, linkRequest{Peer: peer, ForSelf: forSelf, ForPeer: forPeer, Rotate: true})
}

func (c *HTTP) publishLink(ctx context.Context, self domain.Address, req linkRequest) (domain.LinkEvent, error) {
	var out linkEvent
	if err := c.post(ctx, "/links", self, req, &out); err != nil {
		return domain.LinkEvent{}, err
	}
	ev, err := out.toDomain()
	if err != nil {
		return domain.LinkEvent{}, err
	}
	if ev.Initializer != self || ev.Peer != req.Peer {
		return domain.LinkEvent{}, fmt.Errorf("%w: link event for another pair", domain.ErrMalformedResponse)
	}
	return ev, nil
}

// ReadLink fetches owner's half of the link with peer.
func (c *HTTP) ReadLink(ctx context.Context, owner, peer domain.Address) (domain.SessionLink, bool, error) {
	var out linkResponse
	found, err := c.getJSON(ctx, "/links/"+owner.String()+"/"+peer.String(), nil, &out)
	if err != nil || !found {
		return domain.SessionLink{}, false, err
	}
	link, err := out.toDomain(owner, peer)
	if err != nil {
		return domain.SessionLink{}, false, err
	}
	return link, true, nil
}

// LinkEvents queries link events.
func (c *HTTP) LinkEvents(ctx context.Context, f domain.LinkFilter) ([]domain.LinkEvent, error) {
	q := rangeQuery(f.FromBlock, f.ToBlock)
	setAddress(q, "initializer", f.Initializer)
	setAddress(q, "peer", f.Peer)

	var out []linkEvent
	if _, err := c.getJSON(ctx, "/links/events", q, &out); err != nil {
		return nil, err
	}
	evs := make([]domain.LinkEvent, 0, len(out))
	for _, e := range out {
		ev, err := e.toDomain()
		if err != nil {
			return nil, err
		}
		evs = append(evs, ev)
	}
	return evs, nil
}

// Append adds a message from sender to the log.
func (c *HTTP) Append(ctx context.Context, sender, recipient domain.Address, ciphertext []byte, ts int64) (domain.Receipt, error) {
	var out domain.Receipt
	req := appendRequest{Recipient: recipient, Ciphertext: ciphertext, Timestamp: ts}
	if err := c.post(ctx, "/messages", sender, req, &out); err != nil {
		return domain.Receipt{}, err
	}
	if out.Block == 0 {
		return domain.Receipt{}, domain.ErrMalformedResponse
	}
	return out, nil
}

// Query fetches messages matching f in log order.
func (c *HTTP) Query(ctx context.Context, f domain.MessageFilter) ([]domain.MessageEvent, error) {
	q := rangeQuery(f.FromBlock, f.ToBlock)
	setAddress(q, "sender", f.Sender)
	setAddress(q, "recipient", f.Recipient)

	var out []message
	if _, err := c.getJSON(ctx, "/messages", q, &out); err != nil {
		return nil, err
	}
	evs := make([]domain.MessageEvent, 0, len(out))
	for _, m := range out {
		ev, err := m.toDomain()
		if err != nil {
			return nil, err
		}
		evs = append(evs, ev)
	}
	return evs, nil
}

// BlockNumber returns the latest block.
func (c *HTTP) BlockNumber(ctx context.Context) (uint64, error) {
	var out blockResponse
	if _, err := c.getJSON(ctx, "/block", nil, &out); err != nil {
		return 0, err
	}
	return out.Block, nil
}

// post sends a write signed by sender.
func (c *HTTP) post(ctx context.Context, path string, sender domain.Address, in any, out any) error {
	if c.Signer == nil {
		return ErrNoSigner
	}
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	ts := c.now().UnixMilli()
	sig, err := c.Signer.SignMessage(ctx, sender, writeDigest(http.MethodPost, path, sender, ts, body))
	if err != nil {
		return fmt.Errorf("sign %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SenderHeader, sender.String())
	req.Header.Set(TimeHeader, strconv.FormatInt(ts, 10))
	req.Header.Set(SignatureHeader, "0x"+hex.EncodeToString(sig))
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return responseError(http.MethodPost, path, resp)
	}
	if out != nil {
		return decodeBody(resp.Body, out)
	}
	return nil
}

// getJSON returns false without error on 404.
func (c *HTTP) getJSON(ctx context.Context, path string, q url.Values, out any) (bool, error) {
	u := c.Base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode/100 != 2 {
		return false, responseError(http.MethodGet, path, resp)
	}
	return true, decodeBody(resp.Body, out)
}

func decodeBody(r io.Reader, out any) error {
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}
	return nil
}

// responseError maps a ledgerd error body back to a domain error when the
// code is known.
func responseError(method, path string, resp *http.Response) error {
	var body errorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &body); err == nil {
		if sentinel, ok := codeErrors[body.Code]; ok {
			return sentinel
		}
		if body.Error != "" {
			return fmt.Errorf("ledger %s %s: %s: %s", method, path, resp.Status, body.Error)
		}
	}
	return errors.New("ledger " + method + " " + path + ": " + resp.Status)
}

func rangeQuery(from, to uint64) url.Values {
	q := url.Values{}
	if from != 0 {
		q.Set("from", strconv.FormatUint(from, 10))
	}
	if to != 0 {
		q.Set("to", strconv.FormatUint(to, 10))
	}
	return q
}

func setAddress(q url.Values, key string, a *domain.Address) {
	if a != nil {
		q.Set(key, a.String())
	}
}

// Compile-time assertion that HTTP implements domain.Ledger.
var _ domain.Ledger = (*HTTP)(nil)
