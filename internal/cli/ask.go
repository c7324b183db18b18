package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(root *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "ask <topic...>",
		Short: "Ask MoneyManager about one topic",
		Long: `Runs the three prompts once for the topic and prints the best investments,
the advice and the financial institutions, followed by each prompt's history.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.Join(args, " ")
			if topic == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No topic given; nothing to ask.")
				return nil
			}

			a, _, err := root.advisor(cmd)
			if err != nil {
				return err
			}

			resp, err := a.Ask(cmd.Context(), topic)
			if err != nil {
				return err
			}

			if jsonOutput {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(struct {
					Response any `json:"response"`
					History  any `json:"history"`
				}{resp, a.History()})
			}
			printResponse(cmd.OutOrStdout(), resp)
			printHistory(cmd.OutOrStdout(), a.History())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the response and history as JSON")
	return cmd
}
