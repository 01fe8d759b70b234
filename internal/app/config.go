package app

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"ledgerchat/internal/domain"
	"ledgerchat/internal/log"
)

const (
	defaultLedgerURL     = "http://127.0.0.1:8080"
	defaultPassphraseEnv = "LEDGERCHAT_PASSPHRASE"
	defaultLogLevel      = "NOTICE"
	defaultPollInterval  = 2 * time.Second

	// WalletKeystore uses the local passphrase-sealed keystore.
	WalletKeystore = "keystore"
	// WalletRPC uses an external wallet over JSON-RPC.
	WalletRPC = "rpc"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	// Home is the config directory, e.g. $HOME/.ledgerchat.
	Home string
	// LedgerURL is the ledgerd base URL.
	LedgerURL string
	// Address is the default account; commands may override it.
	Address string
	// PassphraseEnv names the environment variable holding the keystore
	// passphrase.
	PassphraseEnv string

	Logging *Logging
	Wallet  *Wallet
	History *History

	// Passphrase overrides PassphraseEnv when set.
	Passphrase string `toml:"-"`
	// HTTP is used for every outbound call; nil means http.DefaultClient.
	HTTP *http.Client `toml:"-"`
}

// Logging is the logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool
	// File is the log file; empty means stderr.
	File string
	// Level is one of ERROR, WARNING, NOTICE, INFO or DEBUG.
	Level string
}

// Wallet selects the wallet provider.
type Wallet struct {
	// Mode is "keystore" or "rpc".
	Mode string
	// RPCURL is the JSON-RPC endpoint used in rpc mode.
	RPCURL string
}

// History tunes message following and contact discovery.
type History struct {
	// PollInterval is a duration string such as "2s".
	PollInterval string
	// ScanFromBlock is the first block searched for contacts.
	ScanFromBlock uint64
	// ScanChunk is the block span of one contact query.
	ScanChunk uint64

	pollInterval time.Duration
}

// Poll returns the parsed poll interval.
func (h *History) Poll() time.Duration { return h.pollInterval }

// FixupAndValidate applies defaults to unset fields and rejects invalid ones.
func (c *Config) FixupAndValidate() error {
	if c.Home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("config: no Home and no user home directory: %w", err)
		}
		c.Home = filepath.Join(dir, ".ledgerchat")
	}
	if c.LedgerURL == "" {
		c.LedgerURL = defaultLedgerURL
	}
	c.LedgerURL = strings.TrimRight(c.LedgerURL, "/")
	if c.Address != "" {
		if _, err := domain.ParseAddress(c.Address); err != nil {
			return fmt.Errorf("config: Address: %w", err)
		}
	}
	if c.PassphraseEnv == "" {
		c.PassphraseEnv = defaultPassphraseEnv
	}

	if c.Logging == nil {
		c.Logging = &Logging{}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Level = strings.ToUpper(c.Logging.Level)
	if !log.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("config: Logging: Level %q is invalid", c.Logging.Level)
	}
	if !c.Logging.Disable && c.Logging.File != "" && !filepath.IsAbs(c.Logging.File) {
		return errors.New("config: Logging: File must be an absolute path")
	}

	if c.Wallet == nil {
		c.Wallet = &Wallet{}
	}
	switch c.Wallet.Mode {
	case "":
		c.Wallet.Mode = WalletKeystore
	case WalletKeystore:
	case WalletRPC:
		if c.Wallet.RPCURL == "" {
			return errors.New("config: Wallet: rpc mode requires RPCURL")
		}
	default:
		return fmt.Errorf("config: Wallet: unknown Mode %q", c.Wallet.Mode)
	}

	if c.History == nil {
		c.History = &History{}
	}
	c.History.pollInterval = defaultPollInterval
	if c.History.PollInterval != "" {
		d, err := time.ParseDuration(c.History.PollInterval)
		if err != nil {
			return fmt.Errorf("config: History: PollInterval: %w", err)
		}
		if d <= 0 {
			return errors.New("config: History: PollInterval must be positive")
		}
		c.History.pollInterval = d
	}
	return nil
}

// passphrase returns the keystore passphrase from the override or the
// environment.
func (c *Config) passphrase() string {
	if c.Passphrase != "" {
		return c.Passphrase
	}
	return os.Getenv(c.PassphraseEnv)
}

// Load parses and validates the provided buffer b as a config file body and
// returns the Config.
func Load(b []byte) (*Config, error) {
	cfg := new(Config)
	md, err := toml.Decode(string(b), cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("config: undecoded keys in config file: %v", undecoded)
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses, and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}
