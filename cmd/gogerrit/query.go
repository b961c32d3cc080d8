package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sonyxperiadev/gogerrit/internal/terminal"
)

func newQueryCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "query <term>",
		Short: "Query changes matching a term",
		Long: `Query open changes on the server. The term is any Gerrit query
expression: a change number, a commit SHA-1, or an operator expression
like status:open.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := terminal.NewLogger()
			ctx, cancel := signalContext(logger)
			defer cancel()

			session, client, err := connect(cmd, logger)
			if err != nil {
				return err
			}
			defer session.Close()

			term := strings.Join(args, " ")
			changes, err := client.Query(ctx, term)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(changes)
			}

			if len(changes) == 0 {
				logger.Log("No changes found", terminal.StyleDim)
				return nil
			}

			for _, change := range changes {
				fmt.Printf("%s%s%s %s (%s) %s\n",
					terminal.Color(terminal.Bold), change.Number, terminal.Color(terminal.Reset),
					change.Project, change.Branch, change.Subject)
				if change.URL != "" {
					fmt.Printf("  %s%s%s\n",
						terminal.Color(terminal.Dim), change.URL, terminal.Color(terminal.Reset))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false,
		"Print results as JSON")

	return cmd
}
