package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledgerchat/internal/crypto"
)

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint [peer]",
		Short: "Print the chat key fingerprint of your account or a peer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := self()
			if len(args) == 1 {
				who, err = peerArg(args[0])
			}
			if err != nil {
				return err
			}

			// Only the public key is needed, so no wallet unlock here.
			acct, ok, err := wire.Ledger.Lookup(cmd.Context(), who)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s is not registered", who)
			}
			fmt.Printf("Address:     %s\nPublic key:  %s\nFingerprint: %s\nBlock:       %d\n",
				who, acct.PublicKey().Hex(), crypto.Fingerprint(acct.PublicKey()), acct.Block)
			return nil
		},
	}
}
