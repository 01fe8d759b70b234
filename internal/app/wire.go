package app

import (
	"context"
	"net/http"

	"ledgerchat/internal/domain"
	"ledgerchat/internal/log"
	"ledgerchat/internal/relay"
	identitysvc "ledgerchat/internal/services/identity"
	messagesvc "ledgerchat/internal/services/message"
	sessionsvc "ledgerchat/internal/services/session"
	"ledgerchat/internal/store"
	"ledgerchat/internal/wallet"
)

// Wire bundles the stores, clients and services that exist before login.
type Wire struct {
	Config   *Config
	Log      *log.Backend
	Ledger   *relay.HTTP
	Accounts domain.AccountStore
	Contacts domain.ContactStore
	// Keystore is nil when an external wallet is configured.
	Keystore *wallet.Keystore
	Wallet   *wallet.Connection
	Identity *identitysvc.Service
	HTTP     *http.Client
}

// NewWire constructs the dependency graph from cfg. cfg must have been
// through FixupAndValidate.
func NewWire(cfg *Config) (*Wire, error) {
	backend, err := log.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable)
	if err != nil {
		return nil, err
	}

	// Ensure an HTTP client is available for outbound calls
	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	w := &Wire{
		Config:   cfg,
		Log:      backend,
		Accounts: store.NewAccountFileStore(cfg.Home),
		Contacts: store.NewContactFileStore(cfg.Home, cfg.LedgerURL),
		HTTP:     httpClient,
	}

	var provider domain.WalletProvider
	switch cfg.Wallet.Mode {
	case WalletRPC:
		rpc := wallet.NewRPC(cfg.Wallet.RPCURL)
		rpc.HTTP = httpClient
		provider = rpc
	default:
		w.Keystore = wallet.NewKeystore(store.NewWalletKeyFileStore(cfg.Home), cfg.passphrase())
		provider = w.Keystore
	}
	w.Wallet = wallet.NewConnection(provider)

	// Ledger writes are signed by the connected wallet account.
	lc := relay.NewHTTP(cfg.LedgerURL, w.Wallet)
	lc.HTTP = httpClient
	w.Ledger = lc
	w.Identity = identitysvc.New(w.Wallet, lc, backend.GetLogger("identity"))
	return w, nil
}

// Register connects the wallet for self, creates and publishes its chat key
// and returns the logged-in account.
func (w *Wire) Register(ctx context.Context, self domain.Address) (*App, error) {
	if err := w.Wallet.Connect(ctx, self); err != nil {
		return nil, err
	}
	keys, err := w.Identity.Register(ctx, self)
	if err != nil {
		w.Wallet.Disconnect()
		return nil, err
	}
	return w.start(self, keys)
}

// Login connects the wallet for self and unlocks its registered chat key.
func (w *Wire) Login(ctx context.Context, self domain.Address) (*App, error) {
	if err := w.Wallet.Connect(ctx, self); err != nil {
		return nil, err
	}
	keys, err := w.Identity.Login(ctx, self)
	if err != nil {
		w.Wallet.Disconnect()
		return nil, err
	}
	return w.start(self, keys)
}

func (w *Wire) start(self domain.Address, keys domain.AsymmetricCipher) (*App, error) {
	profile := domain.AccountProfile{
		LedgerURL: w.Config.LedgerURL,
		Address:   self,
		PublicKey: keys.PublicKeyHex(),
	}
	if err := w.Accounts.SaveAccountProfile(profile); err != nil {
		keys.Close()
		w.Wallet.Disconnect()
		return nil, err
	}

	h := w.Config.History
	sessions := sessionsvc.New(self, keys, w.Ledger, w.Contacts, sessionsvc.Config{
		ScanFromBlock: h.ScanFromBlock,
		ScanChunk:     h.ScanChunk,
	}, w.Log.GetLogger("session"))
	messages := messagesvc.New(w.Ledger, messagesvc.Config{
		PollInterval: h.Poll(),
	}, w.Log.GetLogger("message"))
	return New(self, keys, sessions, messages, w.Wallet), nil
}

// Close releases the log backend.
func (w *Wire) Close() error {
	return w.Log.Close()
}
