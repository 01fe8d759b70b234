package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledgerchat/internal/crypto"
)

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create a chat key and publish it to the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := self()
			if err != nil {
				return err
			}
			a, err := wire.Register(cmd.Context(), who)
			if err != nil {
				return err
			}
			defer a.Logout()

			fmt.Printf("Registered %s\nFingerprint: %s\n", who, crypto.Fingerprint(a.Keys.PublicKey()))
			return nil
		},
	}
}
