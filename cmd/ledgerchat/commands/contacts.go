package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func contactsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contacts",
		Short: "List peers you share a session with",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := login(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Logout()

			contacts, err := a.Sessions.Contacts(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range contacts {
				fmt.Println(c)
			}
			return nil
		},
	}
}
