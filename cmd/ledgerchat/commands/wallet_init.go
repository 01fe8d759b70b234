package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func walletInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wallet-init",
		Short: "Generate a local wallet account and store it securely",
		RunE: func(cmd *cobra.Command, args []string) error {
			if wire.Keystore == nil {
				return errors.New("an external wallet is configured; create the account there")
			}
			addr, err := wire.Keystore.Create()
			if err != nil {
				return err
			}
			fmt.Printf("Account created.\nAddress: %s\n", addr)
			return nil
		},
	}
}
