package wallet_test

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"ledgerchat/internal/crypto"
	"ledgerchat/internal/domain"
	"ledgerchat/internal/wallet"
)

const strongPass = "Correct-Horse-9-Battery"

var errWrongPass = errors.New("wrong passphrase")

// memKeys is an in-memory domain.WalletKeyStore.
type memKeys struct {
	mu   sync.Mutex
	pass string
	keys map[domain.Address][]byte
}

func newMemKeys() *memKeys { return &memKeys{keys: map[domain.Address][]byte{}} }

func (m *memKeys) SaveWalletKey(pass string, who domain.Address, key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pass = pass
	m.keys[who] = append([]byte(nil), key...)
	return nil
}

func (m *memKeys) LoadWalletKey(pass string, who domain.Address) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[who]
	if !ok {
		return nil, false, nil
	}
	if pass != m.pass {
		return nil, true, errWrongPass
	}
	return append([]byte(nil), k...), true, nil
}

func (m *memKeys) ListWalletAddresses() ([]domain.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Address
	for a := range m.keys {
		out = append(out, a)
	}
	return out, nil
}

func newKeystore(t *testing.T) (*wallet.Keystore, domain.Address, *memKeys) {
	t.Helper()
	keys := newMemKeys()
	ks := wallet.NewKeystore(keys, strongPass)
	addr, err := ks.Create()
	require.NoError(t, err)
	return ks, addr, keys
}

func TestKeystore_CreateDerivesAddress(t *testing.T) {
	ks, addr, keys := newKeystore(t)

	want, err := crypto.AddressFromPrivateKey(keys.keys[addr])
	require.NoError(t, err)
	require.Equal(t, want, addr)

	accts, err := ks.Accounts()
	require.NoError(t, err)
	require.Equal(t, []domain.Address{addr}, accts)
}

func TestKeystore_WeakPassphrase(t *testing.T) {
	_, err := wallet.NewKeystore(newMemKeys(), "short").Create()
	require.ErrorIs(t, err, wallet.ErrWeakPassphrase)
}

func TestKeystore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	ks, addr, _ := newKeystore(t)
	secret := []byte{0, 1, 2, 3, 0xfe, 0xff, 0, 0, 0, 0}

	blob, err := ks.EncryptToWallet(ctx, addr, secret)
	require.NoError(t, err)

	got, err := ks.DecryptAsWallet(ctx, addr, blob)
	require.NoError(t, err)
	require.Equal(t, secret, got)
}

func TestKeystore_OtherAccountDenied(t *testing.T) {
	ctx := context.Background()
	keys := newMemKeys()
	ks := wallet.NewKeystore(keys, strongPass)
	a, err := ks.Create()
	require.NoError(t, err)
	b, err := ks.Create()
	require.NoError(t, err)

	blob, err := ks.EncryptToWallet(ctx, a, []byte("for a"))
	require.NoError(t, err)
	_, err = ks.DecryptAsWallet(ctx, b, blob)
	require.ErrorIs(t, err, domain.ErrAuthorizationDenied)

	_, err = ks.DecryptAsWallet(ctx, a, blob[:40])
	require.ErrorIs(t, err, domain.ErrAuthorizationDenied)

	unknown := domain.MustAddress("0x9999999999999999999999999999999999999999")
	_, err = ks.EncryptToWallet(ctx, unknown, []byte("x"))
	require.ErrorIs(t, err, domain.ErrAuthorizationDenied)

	_, err = wallet.NewKeystore(keys, "another-Pass-123").EncryptionPublicKey(ctx, a)
	require.ErrorIs(t, err, domain.ErrAuthorizationDenied)
}

func TestPayload_RequestParamRoundTrip(t *testing.T) {
	pub, priv, err := wallet.EncryptionKeyPair(make32(7))
	require.NoError(t, err)

	p, err := wallet.SealPayload(pub, []byte("hello wallet"))
	require.NoError(t, err)
	require.Equal(t, wallet.SchemeVersion, p.Version)

	param, err := p.RequestParam()
	require.NoError(t, err)
	require.Equal(t, "0x", param[:2])

	parsed, err := wallet.ParseRequestParam(param)
	require.NoError(t, err)
	require.Equal(t, p, parsed)

	blob, err := p.Pack()
	require.NoError(t, err)
	unpacked, err := wallet.UnpackPayload(blob)
	require.NoError(t, err)
	require.Equal(t, p, unpacked)

	text, err := wallet.OpenPayload(unpacked, priv)
	require.NoError(t, err)
	data, err := wallet.DecodeData(text)
	require.NoError(t, err)
	require.Equal(t, "hello wallet", string(data))

	_, err = wallet.ParseRequestParam("0xzz")
	require.ErrorIs(t, err, wallet.ErrMalformedPayload)
	_, err = wallet.UnpackPayload(make([]byte, 10))
	require.ErrorIs(t, err, wallet.ErrMalformedPayload)
}

func make32(b byte) []byte {
	k := make([]byte, 32)
	for i := range k {
		k[i] = b
	}
	return k
}

// fakeProvider answers the wallet JSON-RPC methods from an account key.
func fakeProvider(t *testing.T, who domain.Address, accountKey []byte, failCode int) *httptest.Server {
	t.Helper()
	pub, priv, err := wallet.EncryptionKeyPair(accountKey)
	require.NoError(t, err)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     string            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		reply := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		fail := func(code int, msg string) {
			reply["error"] = map[string]any{"code": code, "message": msg}
		}

		var params []string
		for _, p := range req.Params {
			var s string
			require.NoError(t, json.Unmarshal(p, &s))
			params = append(params, s)
		}

		switch {
		case failCode != 0:
			fail(failCode, "refused")
		case req.Method == "eth_getEncryptionPublicKey" && params[0] == who.String():
			reply["result"] = base64.StdEncoding.EncodeToString(pub[:])
		case req.Method == "personal_sign" && params[1] == who.String():
			msg, err := hex.DecodeString(strings.TrimPrefix(params[0], "0x"))
			if err != nil {
				fail(-32602, err.Error())
				break
			}
			sig, err := crypto.SignMessage(accountKey, msg)
			require.NoError(t, err)
			reply["result"] = "0x" + hex.EncodeToString(sig)
		case req.Method == "eth_decrypt" && params[1] == who.String():
			p, err := wallet.ParseRequestParam(params[0])
			if err != nil {
				fail(-32602, err.Error())
				break
			}
			text, err := wallet.OpenPayload(p, priv)
			if err != nil {
				fail(-32603, "decryption failed")
				break
			}
			reply["result"] = text
		default:
			fail(codeUnauthorizedForTest, "unknown account")
		}
		_ = json.NewEncoder(w).Encode(reply)
	}))
}

const codeUnauthorizedForTest = 4100

func TestRPC_RoundTrip(t *testing.T) {
	ctx := context.Background()
	key := make32(3)
	who, err := crypto.AddressFromPrivateKey(key)
	require.NoError(t, err)
	srv := fakeProvider(t, who, key, 0)
	defer srv.Close()

	rpc := wallet.NewRPC(srv.URL)
	blob, err := rpc.EncryptToWallet(ctx, who, []byte("chat private key"))
	require.NoError(t, err)
	got, err := rpc.DecryptAsWallet(ctx, who, blob)
	require.NoError(t, err)
	require.Equal(t, "chat private key", string(got))

	// A blob for another wallet key is refused by eth_decrypt.
	otherPub, _, err := wallet.EncryptionKeyPair(make32(4))
	require.NoError(t, err)
	p, err := wallet.SealPayload(otherPub, []byte("not yours"))
	require.NoError(t, err)
	foreign, err := p.Pack()
	require.NoError(t, err)
	_, err = rpc.DecryptAsWallet(ctx, who, foreign)
	require.ErrorIs(t, err, domain.ErrAuthorizationDenied)

	stranger := domain.MustAddress("0x9999999999999999999999999999999999999999")
	_, err = rpc.EncryptionPublicKey(ctx, stranger)
	require.ErrorIs(t, err, domain.ErrAuthorizationDenied)
}

func TestRPC_PersonalSign(t *testing.T) {
	ctx := context.Background()
	key := make32(6)
	who, err := crypto.AddressFromPrivateKey(key)
	require.NoError(t, err)
	srv := fakeProvider(t, who, key, 0)
	defer srv.Close()

	sig, err := wallet.NewRPC(srv.URL).SignMessage(ctx, who, []byte("write"))
	require.NoError(t, err)
	signer, err := crypto.RecoverAddress([]byte("write"), sig)
	require.NoError(t, err)
	require.Equal(t, who, signer)

	stranger := domain.MustAddress("0x9999999999999999999999999999999999999999")
	_, err = wallet.NewRPC(srv.URL).SignMessage(ctx, stranger, []byte("write"))
	require.ErrorIs(t, err, domain.ErrAuthorizationDenied)
}

func TestRPC_ErrorMapping(t *testing.T) {
	ctx := context.Background()
	key := make32(5)
	who, err := crypto.AddressFromPrivateKey(key)
	require.NoError(t, err)

	for code, want := range map[int]error{
		4001: domain.ErrUserRejected,
		4100: domain.ErrAuthorizationDenied,
		4900: domain.ErrProviderUnavailable,
		4901: domain.ErrProviderUnavailable,
	} {
		srv := fakeProvider(t, who, key, code)
		_, err := wallet.NewRPC(srv.URL).EncryptionPublicKey(ctx, who)
		require.ErrorIs(t, err, want, "code %d", code)
		srv.Close()
	}

	_, err = wallet.NewRPC("http://127.0.0.1:1").EncryptionPublicKey(ctx, who)
	require.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestConnection_Lifecycle(t *testing.T) {
	ctx := context.Background()
	ks, addr, _ := newKeystore(t)
	conn := wallet.NewConnection(ks)

	_, err := conn.EncryptToWallet(ctx, addr, []byte("x"))
	require.ErrorIs(t, err, wallet.ErrNotConnected)

	stranger := domain.MustAddress("0x9999999999999999999999999999999999999999")
	require.Error(t, conn.Connect(ctx, stranger))
	_, ok := conn.Address()
	require.False(t, ok)

	require.NoError(t, conn.Connect(ctx, addr))
	got, ok := conn.Address()
	require.True(t, ok)
	require.Equal(t, addr, got)

	blob, err := conn.EncryptToWallet(ctx, addr, []byte("x"))
	require.NoError(t, err)
	_, err = conn.DecryptAsWallet(ctx, stranger, blob)
	require.ErrorIs(t, err, domain.ErrAuthorizationDenied)

	sig, err := conn.SignMessage(ctx, addr, []byte("write"))
	require.NoError(t, err)
	signer, err := crypto.RecoverAddress([]byte("write"), sig)
	require.NoError(t, err)
	require.Equal(t, addr, signer)
	_, err = conn.SignMessage(ctx, stranger, []byte("write"))
	require.ErrorIs(t, err, domain.ErrAuthorizationDenied)

	conn.Disconnect()
	conn.Disconnect()
	_, err = conn.SignMessage(ctx, addr, []byte("write"))
	require.ErrorIs(t, err, wallet.ErrNotConnected)
	_, err = conn.DecryptAsWallet(ctx, addr, blob)
	require.ErrorIs(t, err, wallet.ErrNotConnected)
}
