package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var exitWords = map[string]bool{"exit": true, "quit": true, "q": true}

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long: "Start an interactive conversation. Type exit, quit or q to leave, /reset to forget " +
			"the conversation, and tool:<name> {json} to call a tool directly.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ag, err := a.newAgent(cmd)
			if err != nil {
				return err
			}
			defer ag.Close()

			p := newPrinter(cmd.OutOrStdout())
			p.separator()
			p.system("Chatting with %s. Type 'exit' to quit the conversation", ag.Config().Model)
			if id := ag.SessionID(); id != "" {
				p.system("Session %s (%d earlier messages)", id, len(ag.History()))
			}
			p.separator()

			cc := a.context()

			out := cmd.OutOrStdout()
			for {
				fmt.Fprint(out, userStyle.Render("User: "))
				line, readErr := a.in.ReadString('\n')
				if readErr != nil && !errors.Is(readErr, io.EOF) {
					return readErr
				}
				input := strings.TrimSpace(line)

				switch {
				case input == "":
				case exitWords[strings.ToLower(input)]:
					p.system("Exiting conversation...")
					return nil
				case input == "/reset":
					if err := ag.Reset(cmd.Context()); err != nil {
						p.fail(err)
						break
					}
					p.system("Conversation cleared")
				default:
					resp, err := ag.Chat(cmd.Context(), input, cc)
					if err != nil {
						p.fail(err)
						break
					}
					p.response(resp)
					fmt.Fprintln(out)
				}

				if readErr != nil {
					fmt.Fprintln(out)
					return nil
				}
			}
		},
	}
}
