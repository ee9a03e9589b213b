package client

import (
	"fmt"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/api/handlers"
	"github.com/spf13/cobra"
)

type historyOutput struct {
	Session *handlers.SessionResponse `json:"session"`
	History *handlers.HistoryResponse `json:"history"`
}

// HistoryCmd creates the history command.
func HistoryCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "history [session-id]",
		Short: "Show the messages of a chat session",
		Long:  `Show session statistics and one page of messages, oldest first. Defaults to the saved session.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			sessionID := ""
			if len(args) == 1 {
				sessionID = args[0]
			} else {
				cfg, err := LoadGlobalConfig()
				if err != nil {
					return err
				}
				sessionID = cfg.SessionID
			}
			if sessionID == "" {
				return fmt.Errorf("no session id given and no saved session, run 'bookrag chat' first")
			}
			if limit < 1 {
				return fmt.Errorf("--limit must be at least 1")
			}

			client, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			session, err := client.Session(cmd.Context(), sessionID)
			if err != nil {
				return err
			}
			history, err := client.History(cmd.Context(), sessionID, cursor, limit)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if outputJSON {
				return printJSON(w, historyOutput{Session: session, History: history})
			}

			fmt.Fprintf(w, "Session %s\n", session.SessionID)
			faintColor.Fprintf(w, "%d messages · created %s · last activity %s\n\n",
				session.MessageCount, session.CreatedAt, session.LastActivity)

			for _, m := range history.Messages {
				switch {
				case m.Role == "user":
					fmt.Fprintf(w, "you: %s\n", m.Content)
				case m.Refused:
					refusalColor.Fprintf(w, "book: %s\n", m.Content)
				default:
					answerColor.Fprintf(w, "book: %s\n", m.Content)
				}
			}

			if history.HasMore {
				faintColor.Fprintf(w, "\nmore messages: --cursor %s\n", history.NextCursor)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Messages per page")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Cursor from a previous page")

	return cmd
}
