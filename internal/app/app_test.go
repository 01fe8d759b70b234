package app_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"ledgerchat/internal/app"
	"ledgerchat/internal/domain"
	"ledgerchat/internal/ledger"
	"ledgerchat/internal/log"
	"ledgerchat/internal/relay"
)

const passphrase = "Correct-Horse-9-Battery"

func startLedgerd(t *testing.T) string {
	t.Helper()
	backend := log.Discard()
	l, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"), backend.GetLogger("ledger"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	srv := httptest.NewServer(relay.NewServer(l, backend.GetLogger("http"), prometheus.NewRegistry()))
	t.Cleanup(srv.Close)
	return srv.URL
}

func newWire(t *testing.T, ledgerURL string) *app.Wire {
	t.Helper()
	cfg := &app.Config{
		Home:       t.TempDir(),
		LedgerURL:  ledgerURL,
		Passphrase: passphrase,
		Logging:    &app.Logging{Disable: true},
		History:    &app.History{PollInterval: "10ms"},
	}
	require.NoError(t, cfg.FixupAndValidate())
	w, err := app.NewWire(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestWire_RegisterLaunchSendFetch(t *testing.T) {
	ctx := context.Background()
	url := startLedgerd(t)

	aw := newWire(t, url)
	bw := newWire(t, url)
	aliceAddr, err := aw.Keystore.Create()
	require.NoError(t, err)
	bobAddr, err := bw.Keystore.Create()
	require.NoError(t, err)

	alice, err := aw.Register(ctx, aliceAddr)
	require.NoError(t, err)
	defer alice.Logout()

	_, err = alice.Sessions.Launch(ctx, bobAddr)
	require.ErrorIs(t, err, domain.ErrPeerNotRegistered)

	bob, err := bw.Register(ctx, bobAddr)
	require.NoError(t, err)
	bob.Logout()

	sess, err := alice.Sessions.Launch(ctx, bobAddr)
	require.NoError(t, err)
	_, err = alice.Messages.Send(ctx, sess, "hello bob")
	require.NoError(t, err)

	// A fresh login unwraps the chat key through the wallet again.
	bob, err = bw.Login(ctx, bobAddr)
	require.NoError(t, err)
	defer bob.Logout()

	contacts, err := bob.Sessions.Contacts(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.Address{aliceAddr}, contacts)

	_, conv, err := bob.Conversation(ctx, aliceAddr)
	require.NoError(t, err)
	require.Len(t, conv, 1)
	require.Equal(t, "hello bob", conv[0].Text)
	require.False(t, conv[0].Own)

	profile, ok, err := bw.Accounts.LoadAccountProfile(url, bobAddr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, bob.Keys.PublicKeyHex(), profile.PublicKey)
}

func TestWire_LoginUnregistered(t *testing.T) {
	w := newWire(t, startLedgerd(t))
	addr, err := w.Keystore.Create()
	require.NoError(t, err)

	_, err = w.Login(context.Background(), addr)
	require.ErrorIs(t, err, domain.ErrNotRegistered)
	_, connected := w.Wallet.Address()
	require.False(t, connected)
}

func TestWire_RegisterTwiceRefused(t *testing.T) {
	ctx := context.Background()
	w := newWire(t, startLedgerd(t))
	addr, err := w.Keystore.Create()
	require.NoError(t, err)

	a, err := w.Register(ctx, addr)
	require.NoError(t, err)
	a.Logout()

	_, err = w.Register(ctx, addr)
	require.ErrorIs(t, err, domain.ErrAlreadyRegistered)
}

func TestWire_UnknownAccountDenied(t *testing.T) {
	w := newWire(t, startLedgerd(t))
	_, err := w.Login(context.Background(), domain.MustAddress("0x9999999999999999999999999999999999999999"))
	require.ErrorIs(t, err, domain.ErrAuthorizationDenied)
}
