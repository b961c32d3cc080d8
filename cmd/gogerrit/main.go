// Package main provides the CLI entry point for gogerrit.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sonyxperiadev/gogerrit/internal/terminal"
)

var (
	host            string
	username        string
	port            int
	keepalive       time.Duration
	queueCapacity   int
	identityFile    string
	knownHostsFile  string
	autoAddHostKeys bool
	noConfig        bool
	noColor         bool
	verbose         bool
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := &cobra.Command{
		Use:   "gogerrit",
		Short: "Gerrit remote control - run commands and watch events over SSH",
		Long: `Talk to a Gerrit code review server over its SSH command interface:
run server commands, query changes, and stream review events.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       buildVersionString(),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor || !terminal.IsStdoutTTY() {
				terminal.DisableColors()
			}
		},
	}

	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Configuration flags (defaults are resolved via config.Resolve with precedence: flag > env > config > default)
	rootCmd.PersistentFlags().StringVarP(&host, "host", "H", "",
		"Gerrit server hostname (env: GOGERRIT_HOST)")
	rootCmd.PersistentFlags().StringVarP(&username, "username", "u", "",
		"SSH username (default: ssh config or $USER, env: GOGERRIT_USERNAME)")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", 0,
		"SSH port (default: 29418, env: GOGERRIT_PORT)")
	rootCmd.PersistentFlags().DurationVar(&keepalive, "keepalive", 0,
		"Interval between SSH keepalive probes, 0 disables (env: GOGERRIT_KEEPALIVE)")
	rootCmd.PersistentFlags().IntVar(&queueCapacity, "queue-capacity", 0,
		"Event queue capacity for watch (default: 1024, env: GOGERRIT_QUEUE_CAPACITY)")
	rootCmd.PersistentFlags().StringVarP(&identityFile, "identity-file", "i", "",
		"SSH private key file (env: GOGERRIT_IDENTITY_FILE)")
	rootCmd.PersistentFlags().StringVar(&knownHostsFile, "known-hosts", "",
		"known_hosts file (default: ~/.ssh/known_hosts, env: GOGERRIT_KNOWN_HOSTS)")
	rootCmd.PersistentFlags().BoolVar(&autoAddHostKeys, "auto-add-host-keys", false,
		"Accept and record unknown host keys (env: GOGERRIT_AUTO_ADD_HOST_KEYS)")
	rootCmd.PersistentFlags().BoolVar(&noConfig, "no-config", false,
		"Skip loading .gogerrit.yaml config file")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Print connection details as they happen")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newWatchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *terminal.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr)
		logger.Log("Interrupted, shutting down...", terminal.StyleWarning)
		cancel()
	}()

	return ctx, cancel
}

func buildVersionString() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}
