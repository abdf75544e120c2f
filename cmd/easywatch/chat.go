package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ChamsBouzaiene/easywatch/internal/engine"
	"github.com/ChamsBouzaiene/easywatch/internal/session"
)

func newChatCmd(opts *rootOptions) *cobra.Command {
	var sessionID, tag, user string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant from the terminal",
		Long: `Runs turns against the configured model, tools and store.

Every line is one turn in the same session. Empty lines are skipped;
"exit" or EOF ends the chat.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			a, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "session %s (tag %s)\n", sessionID, tag)

			s := bufio.NewScanner(cmd.InOrStdin())
			s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for {
				fmt.Fprint(out, "you> ")
				if !s.Scan() {
					break
				}
				line := strings.TrimSpace(s.Text())
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					break
				}

				res, err := a.orch.RunTurn(ctx, engine.TurnInput{
					SessionID: sessionID,
					OwnerID:   user,
					Tag:       tag,
					Query:     line,
				})
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
					continue
				}
				fmt.Fprintf(out, "assistant> %s\n", res.Reply)
				if len(res.ToolsUsed) > 0 {
					fmt.Fprintf(out, "  (tools: %s, summarized: %v)\n", strings.Join(res.ToolsUsed, ", "), res.Summarized)
				}
			}
			fmt.Fprintln(out)
			return s.Err()
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session id (default: a new one)")
	cmd.Flags().StringVarP(&tag, "tag", "t", session.DefaultTag, "Session tag")
	cmd.Flags().StringVarP(&user, "user", "u", session.GuestOwner, "Principal that owns the session")
	return cmd
}
