package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// launchCmd publishes a session link with a peer so both sides can derive the
// same conversation key.
func launchCmd() *cobra.Command {
	var rotate bool
	cmd := &cobra.Command{
		Use:   "launch <peer>",
		Short: "Establish a secure session with a peer",
		Args:  cobra.ExactArgs(1),
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

			launch := a.Sessions.Launch
			if rotate {
				launch = a.Sessions.Rotate
			}
			sess, err := launch(cmd.Context(), peer)
			if err != nil {
				return fmt.Errorf("launching session with %s: %w", peer, err)
			}
			fmt.Printf("Session with %s at epoch %d\n", peer, sess.Epoch)
			return nil
		},
	}
	cmd.Flags().BoolVar(&rotate, "rotate", false, "replace an existing session key; older messages stay unreadable with the new key")
	return cmd
}
