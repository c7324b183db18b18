package cli

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guiperry/moneymanager/advisor"
)

// maxTopicBytes caps one chat line; longer input ends the session with bufio.ErrTooLong.
const maxTopicBytes = 1 << 20

func newChatCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Ask about one topic per line; history accumulates across lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := root.advisor(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, advisor.Prompt)
			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxTopicBytes)
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					fmt.Fprintln(out)
					return scanner.Err()
				}
				topic := scanner.Text()
				if topic == "" {
					continue
				}

				resp, err := a.Ask(cmd.Context(), topic)
				if err != nil {
					if ctxErr := cmd.Context().Err(); ctxErr != nil {
						return ctxErr
					}
					printError(cmd.ErrOrStderr(), err)
					continue
				}
				printResponse(out, resp)
				printHistory(out, a.History())
			}
		},
	}
}
