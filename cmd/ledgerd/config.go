package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"ledgerchat/internal/log"
)

const (
	defaultListen  = "127.0.0.1:8080"
	defaultDataDir = "/var/lib/ledgerd"
	ledgerFile     = "ledger.db"
)

// Config is the top level ledgerd configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string
	// DataDir holds the ledger database.
	DataDir string
	// MaxHeaderBytes caps request header size; zero keeps the net/http default.
	MaxHeaderBytes int

	Logging *Logging
}

// Logging is the ledgerd logging configuration.
type Logging struct {
	Disable bool
	File    string
	Level   string
}

// LedgerPath returns the database file path.
func (c *Config) LedgerPath() string { return filepath.Join(c.DataDir, ledgerFile) }

// FixupAndValidate applies defaults to unset fields and rejects invalid ones.
func (c *Config) FixupAndValidate() error {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	if !filepath.IsAbs(c.DataDir) {
		return errors.New("config: DataDir must be an absolute path")
	}
	if c.MaxHeaderBytes < 0 {
		return errors.New("config: MaxHeaderBytes must not be negative")
	}
	if c.Logging == nil {
		c.Logging = &Logging{}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "NOTICE"
	}
	c.Logging.Level = strings.ToUpper(c.Logging.Level)
	if !log.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("config: Logging: Level %q is invalid", c.Logging.Level)
	}
	if !c.Logging.Disable && c.Logging.File != "" && !filepath.IsAbs(c.Logging.File) {
		return errors.New("config: Logging: File must be an absolute path")
	}
	return nil
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
