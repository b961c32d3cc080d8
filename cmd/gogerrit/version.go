package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sonyxperiadev/gogerrit/internal/terminal"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the remote Gerrit version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := terminal.NewLogger()
			ctx, cancel := signalContext(logger)
			defer cancel()

			session, client, err := connect(cmd, logger)
			if err != nil {
				return err
			}
			defer session.Close()

			version, err := client.Version(ctx)
			if err != nil {
				return err
			}
			fmt.Println(version)
			return nil
		},
	}
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the remote Gerrit version and the connected username",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := terminal.NewLogger()
			ctx, cancel := signalContext(logger)
			defer cancel()

			session, client, err := connect(cmd, logger)
			if err != nil {
				return err
			}
			defer session.Close()

			username, version, err := client.Info(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("gerrit version %s\n", version)
			fmt.Printf("connected as %s\n", username)
			return nil
		},
	}
}
