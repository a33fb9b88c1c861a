package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newSendCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "send <message>",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := newRenderer(cmd.OutOrStdout())
			client, err := opts.newClient(r)
			if err != nil {
				return err
			}
			defer client.Close()

			_, err = client.SendMessage(cmd.Context(), strings.Join(args, " "))
			return err
		},
	}
}
