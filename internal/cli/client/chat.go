package client

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// ChatCmd creates the chat command.
func ChatCmd() *cobra.Command {
	var (
		retrieval  retrievalFlags
		sessionID  string
		newSession bool
	)

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat about the book in a session",
		Long: `Send a message in a chat session. With a message argument the command sends it and
exits; without one it reads messages from stdin until "exit" or EOF.

The session id is remembered in config.toml so later invocations continue the
same conversation. Use --new to start over.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			cfg, err := LoadGlobalConfig()
			if err != nil {
				return err
			}
			topK, threshold, err := retrieval.resolve(cmd, cfg)
			if err != nil {
				return err
			}

			client, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			session := sessionID
			if session == "" && !newSession {
				session = cfg.SessionID
			}

			send := func(message string) error {
				resp, err := client.Chat(cmd.Context(), ChatRequest{
					Message:   message,
					SessionID: session,
					TopK:      topK,
					Threshold: threshold,
				})
				if err != nil {
					return err
				}

				if resp.SessionID != session {
					session = resp.SessionID
					cfg.SessionID = session
					if err := SaveGlobalConfig(cfg); err != nil {
						return err
					}
				}

				if outputJSON {
					return printJSON(cmd.OutOrStdout(), resp)
				}
				if resp.AnswerResponse != nil {
					printAnswer(cmd.OutOrStdout(), resp.AnswerResponse, false)
				}
				return nil
			}

			if len(args) > 0 {
				return send(strings.Join(args, " "))
			}
			return chatLoop(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), outputJSON, send)
		},
	}

	retrieval.register(cmd)
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session id to continue")
	cmd.Flags().BoolVar(&newSession, "new", false, "Start a new session instead of the saved one")

	return cmd
}

func chatLoop(in io.Reader, out, errOut io.Writer, quiet bool, send func(string) error) error {
	scanner := bufio.NewScanner(in)
	for {
		if !quiet {
			fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if err := send(line); err != nil {
			PrintFailure(errOut, err)
		}
		if !quiet {
			fmt.Fprintln(out)
		}
	}
	return scanner.Err()
}
