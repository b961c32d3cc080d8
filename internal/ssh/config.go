package ssh

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sshconfig "github.com/kevinburke/ssh_config"
)

// DefaultPort is the standard Gerrit SSH port.
const DefaultPort = 29418

// Validation failures from Connect, before any network activity.
var (
	ErrMissingHost  = errors.New("host is required")
	ErrBadKeepalive = errors.New("keepalive interval must not be negative")
)

// Config holds the connection parameters for a Gerrit SSH session.
// Host is required; everything else falls back to the user's ssh client
// configuration and sensible defaults.
type Config struct {
	// Host is the server to connect to. It may be an alias defined in
	// the ssh config file.
	Host string

	// Username overrides the ssh config User for the host.
	Username string

	// Port overrides the ssh config Port. Zero means "resolve", falling
	// back to DefaultPort.
	Port int

	// Keepalive, when positive, sends an SSH keepalive request at this
	// interval for the lifetime of the connection.
	Keepalive time.Duration

	// AutoAddHostKeys appends unknown host keys to the known hosts file
	// instead of rejecting the connection. Key mismatches for known
	// hosts are still rejected.
	AutoAddHostKeys bool

	// IdentityFile is the private key used for public key auth. When
	// empty the ssh config IdentityFile for the host is used, and the
	// SSH agent (if running) is tried either way.
	IdentityFile string

	// KnownHostsFile defaults to ~/.ssh/known_hosts.
	KnownHostsFile string

	// ConfigFile is the ssh client config consulted for unset fields.
	// Defaults to ~/.ssh/config; a missing file is not an error.
	ConfigFile string

	// DialTimeout bounds connection establishment. Zero means no bound.
	DialTimeout time.Duration
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return ErrMissingHost
	}
	if c.Keepalive < 0 {
		return ErrBadKeepalive
	}
	return nil
}

// resolved is the fully-determined form of Config after consulting the
// ssh client configuration.
type resolved struct {
	hostname     string
	username     string
	port         int
	identityFile string
	knownHosts   string
}

// resolve fills the gaps in cfg from the ssh config file. Explicit Config
// fields always win over file settings.
func resolve(cfg Config) (resolved, error) {
	r := resolved{
		hostname:     cfg.Host,
		username:     cfg.Username,
		port:         cfg.Port,
		identityFile: cfg.IdentityFile,
		knownHosts:   cfg.KnownHostsFile,
	}

	settings, err := loadSSHConfig(cfg.ConfigFile)
	if err != nil {
		return resolved{}, err
	}
	if settings != nil {
		if hostname, _ := settings.Get(cfg.Host, "HostName"); hostname != "" {
			r.hostname = hostname
		}
		if r.username == "" {
			r.username, _ = settings.Get(cfg.Host, "User")
		}
		if r.port == 0 {
			portValue, _ := settings.Get(cfg.Host, "Port")
			if portValue != "" {
				port, err := strconv.Atoi(portValue)
				if err != nil {
					return resolved{}, fmt.Errorf("invalid port %q for host %s", portValue, cfg.Host)
				}
				r.port = port
			}
		}
		if r.identityFile == "" {
			identity, _ := settings.Get(cfg.Host, "IdentityFile")
			identity = expandHome(identity)
			// The ssh_config default identity may simply not exist.
			if identity != "" {
				if _, err := os.Stat(identity); err == nil {
					r.identityFile = identity
				}
			}
		}
	}

	if r.username == "" {
		r.username = os.Getenv("USER")
	}
	if r.port == 0 {
		r.port = DefaultPort
	}
	if r.knownHosts == "" {
		r.knownHosts = expandHome("~/.ssh/known_hosts")
	}
	return r, nil
}

// loadSSHConfig parses the ssh client config at path, or ~/.ssh/config
// when path is empty. A missing file yields nil settings, not an error.
func loadSSHConfig(path string) (*sshconfig.Config, error) {
	if path == "" {
		path = expandHome("~/.ssh/config")
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ssh config: %w", err)
	}
	defer f.Close()

	settings, err := sshconfig.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("parsing ssh config %s: %w", path, err)
	}
	return settings, nil
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
