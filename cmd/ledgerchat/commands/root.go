package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ledgerchat/internal/app"
	"ledgerchat/internal/domain"
)

const configFile = "ledgerchat.toml"

var (
	home       string
	configPath string
	ledgerURL  string
	address    string
	passphrase string

	wire *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:          "ledgerchat",
		Short:        "End-to-end encrypted chat over a public ledger",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
				return err
			}
			wire, err = app.NewWire(cfg)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if wire == nil {
				return nil
			}
			return wire.Close()
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.ledgerchat)")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default <home>/"+configFile+")")
	root.PersistentFlags().StringVar(&ledgerURL, "ledger", "", "ledgerd base URL (e.g. http://127.0.0.1:8080)")
	root.PersistentFlags().StringVarP(&address, "address", "a", "", "account address to act as")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "keystore passphrase (default from $LEDGERCHAT_PASSPHRASE)")

	root.AddCommand(
		walletInitCmd(),
		registerCmd(),
		fingerprintCmd(),
		launchCmd(),
		contactsCmd(),
		sendCmd(),
		historyCmd(),
		watchCmd(),
		versionCmd(),
	)
	return root.Execute()
}

// loadConfig reads the config file if there is one and applies flag
// overrides on top.
func loadConfig() (*app.Config, error) {
	path := configPath
	if path == "" && home != "" {
		path = filepath.Join(home, configFile)
	}
	if path == "" {
		if dir, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(dir, ".ledgerchat", configFile)
		}
	}

	cfg := new(app.Config)
	if path != "" {
		loaded, err := app.LoadFile(path)
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, os.ErrNotExist) && configPath == "":
		default:
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if home != "" {
		cfg.Home = home
	}
	if ledgerURL != "" {
		cfg.LedgerURL = ledgerURL
	}
	if address != "" {
		cfg.Address = address
	}
	cfg.Passphrase = passphrase
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// self returns the account the command acts as.
func self() (domain.Address, error) {
	if wire.Config.Address == "" {
		return domain.Address{}, errors.New("no account selected; use --address or set Address in the config")
	}
	return domain.ParseAddress(wire.Config.Address)
}

// login unlocks the selected account.
func login(ctx context.Context) (*app.App, error) {
	who, err := self()
	if err != nil {
		return nil, err
	}
	return wire.Login(ctx, who)
}

// peerArg parses a peer address argument.
func peerArg(s string) (domain.Address, error) {
	peer, err := domain.ParseAddress(s)
	if err != nil {
		return domain.Address{}, fmt.Errorf("peer %q: %w", s, err)
	}
	return peer, nil
}
