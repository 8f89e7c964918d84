package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Send a single prompt and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ag, err := a.newAgent(cmd)
			if err != nil {
				return err
			}
			defer ag.Close()

			cc := a.context()
			resp, err := ag.Chat(cmd.Context(), strings.Join(args, " "), cc)
			if err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).response(resp)
			return nil
		},
	}
}

func newImageCmd(a *app) *cobra.Command {
	var images []string
	cmd := &cobra.Command{
		Use:   "image --image PATH... [query]",
		Short: "Ask a vision model about one or more images",
		RunE: func(cmd *cobra.Command, args []string) error {
			ag, err := a.newAgent(cmd)
			if err != nil {
				return err
			}
			defer ag.Close()

			resp, err := ag.QueryImage(cmd.Context(), images, strings.Join(args, " "))
			if err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).response(resp)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&images, "image", "i", nil, "image file (repeatable)")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}
