package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ledgerchat/internal/domain"
)

// history <peer>: print the whole conversation with <peer>.
func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <peer>",
		Short: "Fetch and decrypt the conversation with a peer",
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

			_, conv, err := a.Conversation(cmd.Context(), peer)
			if err != nil {
				return err
			}
			for _, e := range conv {
				printEntry(e)
			}
			return nil
		},
	}
}

func printEntry(e domain.ConversationEntry) {
	who := e.Sender.Short()
	if e.Own {
		who = "me"
	}
	text := e.Text
	if e.Corrupt {
		text = "[undecryptable]"
	}
	ts := time.UnixMilli(e.Time).Format(time.DateTime)
	fmt.Printf("%s [%s] %s\n", ts, who, text)
}
