package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// watch <peer>: print new messages with <peer> until interrupted.
func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <peer>",
		Short: "Follow the conversation with a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer, err := peerArg(args[0])
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := login(ctx)
			if err != nil {
				return err
			}
			defer a.Logout()

			sess, err := a.Sessions.Resolve(ctx, peer)
			if err != nil {
				return err
			}
			sub, err := a.Messages.Subscribe(ctx, sess, printEntry)
			if err != nil {
				return err
			}
			fmt.Printf("watching %s, Ctrl-C to stop\n", peer)

			select {
			case <-ctx.Done():
			case <-sub.Done():
			}
			sub.Cancel()
			if err := sub.Err(); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
}
