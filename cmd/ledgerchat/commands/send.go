package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// send <peer> <message>: encrypt and send a message to <peer>.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <peer> <message>",
		Short: "Encrypt and send a message to a peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer, err := peerArg(args[0])
			if err != nil {
				return err
			}
			a, err := login(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Logout()

			sess, err := a.Sessions.Resolve(cmd.Context(), peer)
			if err != nil {
				return err
			}
			rcpt, err := a.Messages.Send(cmd.Context(), sess, args[1])
			if err != nil {
				return err
			}
			fmt.Printf("sent (block %d, index %d)\n", rcpt.Block, rcpt.Index)
			return nil
		},
	}
}
