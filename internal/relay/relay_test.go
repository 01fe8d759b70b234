package relay_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"ledgerchat/internal/crypto"
	"ledgerchat/internal/domain"
	"ledgerchat/internal/ledger"
	"ledgerchat/internal/log"
	"ledgerchat/internal/relay"
)

// keyring signs for the accounts whose keys it holds.
type keyring map[domain.Address][]byte

func (k keyring) SignMessage(_ context.Context, who domain.Address, msg []byte) ([]byte, error) {
	key, ok := k[who]
	if !ok {
		return nil, domain.ErrAuthorizationDenied
	}
	return crypto.SignMessage(key, msg)
}

// newAccount adds a fresh account key to k and returns its address.
func (k keyring) newAccount(t *testing.T) domain.Address {
	t.Helper()
	kp, err := crypto.GenerateECIES()
	require.NoError(t, err)
	key := kp.ExportPrivateKey()
	kp.Close()
	who, err := crypto.AddressFromPrivateKey(key)
	require.NoError(t, err)
	k[who] = key
	return who
}

// forger signs every write with one key whatever sender it is asked for.
type forger []byte

func (f forger) SignMessage(_ context.Context, _ domain.Address, msg []byte) ([]byte, error) {
	return crypto.SignMessage(f, msg)
}

type fixture struct {
	srv    *httptest.Server
	node   *relay.Server
	client *relay.HTTP
	keys   keyring

	alice, bob, carol domain.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := log.Discard()
	l, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"), backend.GetLogger("ledger"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	node := relay.NewServer(l, backend.GetLogger("http"), prometheus.NewRegistry())
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)

	keys := keyring{}
	f := &fixture{srv: srv, node: node, keys: keys}
	f.alice, f.bob, f.carol = keys.newAccount(t), keys.newAccount(t), keys.newAccount(t)
	f.client = relay.NewHTTP(srv.URL+"/", keys)
	return f
}

func (f *fixture) register(t *testing.T, who domain.Address) {
	t.Helper()
	require.NoError(t, f.client.Register(context.Background(), who, []byte("wrapped-"+who.Short()), [32]byte{who[0]}, true))
}

func TestHTTP_RegisterLookup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.client

	_, ok, err := c.Lookup(ctx, f.alice)
	require.NoError(t, err)
	require.False(t, ok)

	f.register(t, f.alice)
	err = c.Register(ctx, f.alice, []byte("again"), [32]byte{}, false)
	require.ErrorIs(t, err, domain.ErrAlreadyRegistered)

	acct, ok, err := c.Lookup(ctx, f.alice)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, f.alice, acct.Address)
	require.Equal(t, f.alice[0], acct.PublicKeyX[0])
	require.True(t, acct.PublicKeyYParity)
}

func TestHTTP_LinksAndEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.client
	f.register(t, f.alice)

	_, err := c.LaunchLink(ctx, f.alice, f.bob, []byte{1}, []byte{2})
	require.ErrorIs(t, err, domain.ErrPeerNotRegistered)

	f.register(t, f.bob)
	ev, err := c.LaunchLink(ctx, f.alice, f.bob, []byte{1}, []byte{2})
	require.NoError(t, err)
	require.EqualValues(t, 1, ev.Epoch)
	require.Equal(t, f.alice, ev.Initializer)

	link, ok, err := c.ReadLink(ctx, f.bob, f.alice)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{2}, link.Secret)

	_, ok, err = c.ReadLink(ctx, f.alice, f.carol)
	require.NoError(t, err)
	require.False(t, ok)

	evs, err := c.LinkEvents(ctx, domain.LinkFilter{Peer: &f.bob})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	evs, err = c.LinkEvents(ctx, domain.LinkFilter{Initializer: &f.bob})
	require.NoError(t, err)
	require.Empty(t, evs)
}

func TestHTTP_LaunchRefusedOverExistingLinkRotateAllowed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.client
	f.register(t, f.alice)
	f.register(t, f.bob)

	_, err := c.LaunchLink(ctx, f.alice, f.bob, []byte("a1"), []byte("b1"))
	require.NoError(t, err)

	// Both sides race to launch; the node refuses the second.
	_, err = c.LaunchLink(ctx, f.bob, f.alice, []byte("b2"), []byte("a2"))
	require.ErrorIs(t, err, domain.ErrAlreadyLinked)
	link, _, err := c.ReadLink(ctx, f.alice, f.bob)
	require.NoError(t, err)
	require.Equal(t, []byte("a1"), link.Secret)

	ev, err := c.PublishLink(ctx, f.bob, f.alice, []byte("b3"), []byte("a3"))
	require.NoError(t, err)
	require.EqualValues(t, 2, ev.Epoch)
}

func TestHTTP_MessagesAndBlock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.client

	_, err := c.Append(ctx, f.alice, f.bob, []byte("ct"), 1)
	require.ErrorIs(t, err, domain.ErrNotRegistered)

	f.register(t, f.alice)
	r1, err := c.Append(ctx, f.alice, f.bob, []byte("one"), 10)
	require.NoError(t, err)
	r2, err := c.Append(ctx, f.alice, f.carol, []byte("two"), 20)
	require.NoError(t, err)
	require.Greater(t, r2.Block, r1.Block)

	evs, err := c.Query(ctx, domain.MessageFilter{Sender: &f.alice, Recipient: &f.bob})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	require.Equal(t, []byte("one"), evs[0].Ciphertext)
	require.EqualValues(t, 10, evs[0].Timestamp)

	evs, err = c.Query(ctx, domain.MessageFilter{FromBlock: r2.Block})
	require.NoError(t, err)
	require.Len(t, evs, 1)

	n, err := c.BlockNumber(ctx)
	require.NoError(t, err)
	require.Equal(t, r2.Block, n)
}

func TestServer_RejectsForgedSender(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, f.alice)
	f.register(t, f.bob)

	mallory := keyring{}
	m := mallory.newAccount(t)
	forged := relay.NewHTTP(f.srv.URL, forger(mallory[m]))

	_, err := forged.Append(ctx, f.alice, f.bob, []byte("from mallory"), 1)
	require.ErrorIs(t, err, domain.ErrWriteUnauthorized)
	_, err = forged.LaunchLink(ctx, f.alice, f.bob, []byte("x"), []byte("y"))
	require.ErrorIs(t, err, domain.ErrWriteUnauthorized)
	err = forged.Register(ctx, f.carol, []byte("wrapped"), [32]byte{1}, false)
	require.ErrorIs(t, err, domain.ErrWriteUnauthorized)

	evs, err := f.client.Query(ctx, domain.MessageFilter{Sender: &f.alice})
	require.NoError(t, err)
	require.Empty(t, evs)
	_, ok, err := f.client.ReadLink(ctx, f.bob, f.alice)
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = f.client.Lookup(ctx, f.carol)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestServer_RejectsStaleWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, f.alice)

	f.client.SetClock(func() time.Time { return time.Now().Add(-10 * time.Minute) })
	_, err := f.client.Append(ctx, f.alice, f.bob, []byte("late"), 1)
	require.ErrorIs(t, err, domain.ErrWriteUnauthorized)

	f.client.SetClock(time.Now)
	f.node.SetClock(func() time.Time { return time.Now().Add(-10 * time.Minute) })
	_, err = f.client.Append(ctx, f.alice, f.bob, []byte("early"), 1)
	require.ErrorIs(t, err, domain.ErrWriteUnauthorized)
}

// signedPost builds a write the way the client does, so tests can tamper
// with or resend it.
func signedPost(t *testing.T, f *fixture, path string, who domain.Address, body string) *http.Request {
	t.Helper()
	ts := time.Now().UnixMilli()
	sig, err := f.keys.SignMessage(context.Background(), who, relay.WriteDigest(http.MethodPost, path, who, ts, []byte(body)))
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set(relay.SenderHeader, who.String())
	req.Header.Set(relay.TimeHeader, strconv.FormatInt(ts, 10))
	req.Header.Set(relay.SignatureHeader, "0x"+hex.EncodeToString(sig))
	return req
}

func do(t *testing.T, req *http.Request) int {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode
}

func TestServer_RejectsReplayedWrite(t *testing.T) {
	f := newFixture(t)
	f.register(t, f.alice)

	body := `{"recipient":"` + f.bob.String() + `","ciphertext":"0x01","timestamp":1}`
	req := signedPost(t, f, "/messages", f.alice, body)
	again := req.Clone(context.Background())
	again.Body = io.NopCloser(strings.NewReader(body))

	require.Equal(t, http.StatusCreated, do(t, req))
	require.Equal(t, http.StatusUnauthorized, do(t, again))

	evs, err := f.client.Query(context.Background(), domain.MessageFilter{Sender: &f.alice})
	require.NoError(t, err)
	require.Len(t, evs, 1)
}

func TestServer_RejectsTamperedBody(t *testing.T) {
	f := newFixture(t)
	f.register(t, f.alice)

	req := signedPost(t, f, "/messages", f.alice, `{"recipient":"`+f.bob.String()+`","ciphertext":"0x01","timestamp":1}`)
	tampered := `{"recipient":"` + f.carol.String() + `","ciphertext":"0x01","timestamp":1}`
	req.Body = io.NopCloser(strings.NewReader(tampered))
	req.ContentLength = int64(len(tampered))
	require.Equal(t, http.StatusUnauthorized, do(t, req))
}

func TestServer_RejectsUnsignedWritesAndServesMetrics(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Post(f.srv.URL+"/messages", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/messages", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	req.Header.Set(relay.SenderHeader, f.alice.String())
	require.Equal(t, http.StatusUnauthorized, do(t, req))

	resp, err = http.Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTP_WritesNeedSigner(t *testing.T) {
	f := newFixture(t)
	c := relay.NewHTTP(f.srv.URL, nil)

	err := c.Register(context.Background(), f.alice, []byte("w"), [32]byte{1}, false)
	require.ErrorIs(t, err, relay.ErrNoSigner)

	denied := relay.NewHTTP(f.srv.URL, keyring{})
	err = denied.Register(context.Background(), f.alice, []byte("w"), [32]byte{1}, false)
	require.True(t, errors.Is(err, domain.ErrAuthorizationDenied))
}

func TestHTTP_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"block": "not a number"}`))
	}))
	defer srv.Close()

	_, err := relay.NewHTTP(srv.URL, nil).BlockNumber(context.Background())
	require.ErrorIs(t, err, domain.ErrMalformedResponse)

	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"sender":"0x1111111111111111111111111111111111111111","ciphertext":"nohex","block":1}]`))
	}))
	defer srv2.Close()
	_, err = relay.NewHTTP(srv2.URL, nil).Query(context.Background(), domain.MessageFilter{})
	require.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestHTTP_ReadLinkRejectsOtherPair(t *testing.T) {
	alice := domain.MustAddress("0x1111111111111111111111111111111111111111")
	bob := domain.MustAddress("0x2222222222222222222222222222222222222222")
	carol := domain.MustAddress("0x3333333333333333333333333333333333333333")

	// A node that answers every link read with carol's half.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"owner":"` + carol.String() + `","peer":"` + bob.String() + `","secret":"0x01","epoch":1,"block":1}`))
	}))
	defer srv.Close()

	_, _, err := relay.NewHTTP(srv.URL, nil).ReadLink(context.Background(), alice, bob)
	require.ErrorIs(t, err, domain.ErrMalformedResponse)

	_, ok, err := relay.NewHTTP(srv.URL, nil).ReadLink(context.Background(), carol, bob)
	require.NoError(t, err)
	require.True(t, ok)
}
