package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sonyxperiadev/gogerrit/internal/terminal"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <command> [args...]",
		Short: "Run a raw gerrit command on the server",
		Long: `Run a gerrit command and print its output. The "gerrit " prefix is
added automatically, so "gogerrit run ls-projects" executes
"gerrit ls-projects" on the server.`,
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

			out, err := client.RunCommand(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}

			if _, err := io.Copy(os.Stdout, out); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
			return commandError(out)
		},
	}
}

// exitStatus is the post-Close status surface of a command handle.
type exitStatus interface {
	ExitCode() int
	Stderr() string
}

// commandError converts a nonzero remote exit into an error carrying the
// captured stderr. The handle must already be closed.
func commandError(out io.ReadCloser) error {
	status, ok := out.(exitStatus)
	if !ok || status.ExitCode() == 0 {
		return nil
	}
	if msg := strings.TrimSpace(status.Stderr()); msg != "" {
		return fmt.Errorf("remote command failed (exit %d): %s", status.ExitCode(), msg)
	}
	return fmt.Errorf("remote command failed (exit %d)", status.ExitCode())
}
