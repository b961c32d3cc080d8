package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sonyxperiadev/gogerrit/internal/config"
	"github.com/sonyxperiadev/gogerrit/internal/gerrit"
	"github.com/sonyxperiadev/gogerrit/internal/ssh"
	"github.com/sonyxperiadev/gogerrit/internal/terminal"
)

// resolveConfig merges the config file, environment, and flags into the
// final settings for this invocation.
func resolveConfig(cmd *cobra.Command, logger *terminal.Logger) (config.ResolvedConfig, error) {
	var cfg *config.Config
	if !noConfig {
		result, err := config.LoadWithWarnings()
		if err != nil {
			return config.ResolvedConfig{}, fmt.Errorf("config error: %w", err)
		}
		cfg = result.Config
		for _, warning := range result.Warnings {
			logger.Logf(terminal.StyleWarning, "Warning: %s", warning)
		}
	}

	flagState := config.FlagState{
		HostSet:            cmd.Flags().Changed("host"),
		UsernameSet:        cmd.Flags().Changed("username"),
		PortSet:            cmd.Flags().Changed("port"),
		KeepaliveSet:       cmd.Flags().Changed("keepalive"),
		QueueCapacitySet:   cmd.Flags().Changed("queue-capacity"),
		IdentityFileSet:    cmd.Flags().Changed("identity-file"),
		KnownHostsFileSet:  cmd.Flags().Changed("known-hosts"),
		AutoAddHostKeysSet: cmd.Flags().Changed("auto-add-host-keys"),
	}

	envState := config.LoadEnvState()

	flagValues := config.ResolvedConfig{
		Host:            host,
		Username:        username,
		Port:            port,
		Keepalive:       keepalive,
		QueueCapacity:   queueCapacity,
		IdentityFile:    identityFile,
		KnownHostsFile:  knownHostsFile,
		AutoAddHostKeys: autoAddHostKeys,
	}

	resolved := config.Resolve(cfg, envState, flagState, flagValues)
	if resolved.Host == "" {
		return config.ResolvedConfig{}, fmt.Errorf("no Gerrit host given (use --host, GOGERRIT_HOST, or %s)", config.ConfigFileName)
	}

	return resolved, nil
}

// connect dials the Gerrit server and wraps the session in a client.
// The caller owns the returned session and must Close it.
func connect(cmd *cobra.Command, logger *terminal.Logger) (*ssh.Session, *gerrit.Client, error) {
	resolved, err := resolveConfig(cmd, logger)
	if err != nil {
		return nil, nil, err
	}

	if verbose {
		logger.Logf(terminal.StyleDim, "Connecting to %s:%d", resolved.Host, resolved.Port)
	}

	session, err := ssh.Connect(ssh.Config{
		Host:            resolved.Host,
		Username:        resolved.Username,
		Port:            resolved.Port,
		Keepalive:       resolved.Keepalive,
		AutoAddHostKeys: resolved.AutoAddHostKeys,
		IdentityFile:    resolved.IdentityFile,
		KnownHostsFile:  resolved.KnownHostsFile,
		ConfigFile:      resolved.SSHConfigFile,
	})
	if err != nil {
		return nil, nil, err
	}

	opts := []gerrit.Option{
		gerrit.WithQueueCapacity(resolved.QueueCapacity),
	}
	if verbose {
		opts = append(opts, gerrit.WithLogf(func(format string, args ...any) {
			logger.Logf(terminal.StyleDim, format, args...)
		}))
	}

	return session, gerrit.New(session, opts...), nil
}
