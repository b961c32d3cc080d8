// Package config provides configuration file support for gogerrit.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sonyxperiadev/gogerrit/internal/gerrit"
	sshcfg "github.com/sonyxperiadev/gogerrit/internal/ssh"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = ".gogerrit.yaml"

// Duration is a custom type that handles YAML duration parsing.
// Supports both Go duration format ("30s", "5m") and numeric seconds.
type Duration time.Duration

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(time.Duration(v) * time.Second)
	case float64:
		*d = Duration(time.Duration(v) * time.Second)
	default:
		return fmt.Errorf("invalid duration type: %T", v)
	}
	return nil
}

// AsDuration returns the underlying time.Duration.
func (d Duration) AsDuration() time.Duration {
	return time.Duration(d)
}

// Config represents the gogerrit configuration file.
type Config struct {
	Host          *string   `yaml:"host"`
	Username      *string   `yaml:"username"`
	Port          *int      `yaml:"port"`
	Keepalive     *Duration `yaml:"keepalive"`
	QueueCapacity *int      `yaml:"queue_capacity"`
	SSH           SSHConfig `yaml:"ssh"`
}

// SSHConfig holds transport-related configuration.
type SSHConfig struct {
	IdentityFile    *string `yaml:"identity_file"`
	KnownHostsFile  *string `yaml:"known_hosts_file"`
	ConfigFile      *string `yaml:"config_file"`
	AutoAddHostKeys *bool   `yaml:"auto_add_host_keys"`
}

// LoadWithWarnings reads .gogerrit.yaml from the user's home directory and
// returns warnings. Returns an empty config (not error) if the file doesn't
// exist or the home directory cannot be determined.
func LoadWithWarnings() (*LoadResult, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return &LoadResult{Config: &Config{}}, nil
	}
	return LoadFromDirWithWarnings(home)
}

// LoadFromDirWithWarnings reads .gogerrit.yaml from the specified directory
// and returns warnings.
func LoadFromDirWithWarnings(dir string) (*LoadResult, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	return LoadFromPathWithWarnings(configPath)
}

// LoadResult contains the loaded config and any warnings encountered.
type LoadResult struct {
	Config   *Config
	Warnings []string
}

// LoadFromPathWithWarnings reads a config file and returns warnings for
// unknown keys. Returns an empty config (not error) if the file doesn't
// exist. Returns an error if the file exists but is invalid.
func LoadFromPathWithWarnings(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &LoadResult{Config: &Config{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	warnings := checkUnknownKeys(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ConfigFileName, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", ConfigFileName, err)
	}

	return &LoadResult{Config: &cfg, Warnings: warnings}, nil
}

// Validate checks that all config values are valid.
func (c *Config) Validate() error {
	if c.Port != nil && (*c.Port < 1 || *c.Port > 65535) {
		return fmt.Errorf("port must be 1-65535, got %d", *c.Port)
	}
	if c.Keepalive != nil && *c.Keepalive < 0 {
		return fmt.Errorf("keepalive must be >= 0, got %s", time.Duration(*c.Keepalive))
	}
	if c.QueueCapacity != nil && *c.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be >= 1, got %d", *c.QueueCapacity)
	}
	return nil
}

// knownTopLevelKeys are the valid top-level keys in the config file.
var knownTopLevelKeys = []string{"host", "username", "port", "keepalive", "queue_capacity", "ssh"}

// knownSSHKeys are the valid keys under the "ssh" section.
var knownSSHKeys = []string{"identity_file", "known_hosts_file", "config_file", "auto_add_host_keys"}

// checkUnknownKeys checks for unknown keys in the YAML data and returns warnings.
func checkUnknownKeys(data []byte) []string {
	var warnings []string

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		// If we can't parse, let the main parser handle the error
		return nil
	}

	for key := range raw {
		if !slices.Contains(knownTopLevelKeys, key) {
			warning := fmt.Sprintf("unknown key %q in %s", key, ConfigFileName)
			if suggestion := findSimilar(key, knownTopLevelKeys); suggestion != "" {
				warning += fmt.Sprintf(" (did you mean %q?)", suggestion)
			}
			warnings = append(warnings, warning)
		}
	}

	if ssh, ok := raw["ssh"].(map[string]any); ok {
		for key := range ssh {
			if !slices.Contains(knownSSHKeys, key) {
				warning := fmt.Sprintf("unknown key %q in ssh section of %s", key, ConfigFileName)
				if suggestion := findSimilar(key, knownSSHKeys); suggestion != "" {
					warning += fmt.Sprintf(" (did you mean %q?)", suggestion)
				}
				warnings = append(warnings, warning)
			}
		}
	}

	return warnings
}

// findSimilar finds the most similar string from candidates using Levenshtein distance.
// Returns empty string if no candidate is similar enough (threshold: 3 edits).
func findSimilar(input string, candidates []string) string {
	const maxDistance = 3
	bestMatch := ""
	bestDistance := maxDistance + 1

	for _, candidate := range candidates {
		dist := levenshtein(input, candidate)
		if dist < bestDistance {
			bestDistance = dist
			bestMatch = candidate
		}
	}

	if bestDistance <= maxDistance {
		return bestMatch
	}
	return ""
}

// levenshtein calculates the Levenshtein distance between two strings.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	matrix := make([][]int, len(ra)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(rb)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(ra)][len(rb)]
}

// Defaults holds the built-in default values.
var Defaults = ResolvedConfig{
	Port:          sshcfg.DefaultPort,
	Keepalive:     0, // disabled
	QueueCapacity: gerrit.DefaultQueueCapacity,
}

// ResolvedConfig holds the final resolved configuration values.
type ResolvedConfig struct {
	Host            string
	Username        string
	Port            int
	Keepalive       time.Duration
	QueueCapacity   int
	IdentityFile    string
	KnownHostsFile  string
	SSHConfigFile   string
	AutoAddHostKeys bool
}

// FlagState tracks whether a flag was explicitly set.
type FlagState struct {
	HostSet            bool
	UsernameSet        bool
	PortSet            bool
	KeepaliveSet       bool
	QueueCapacitySet   bool
	IdentityFileSet    bool
	KnownHostsFileSet  bool
	AutoAddHostKeysSet bool
}

// EnvState captures env var values and whether they were set.
type EnvState struct {
	Host               string
	HostSet            bool
	Username           string
	UsernameSet        bool
	Port               int
	PortSet            bool
	Keepalive          time.Duration
	KeepaliveSet       bool
	QueueCapacity      int
	QueueCapacitySet   bool
	IdentityFile       string
	IdentityFileSet    bool
	KnownHostsFile     string
	KnownHostsFileSet  bool
	AutoAddHostKeys    bool
	AutoAddHostKeysSet bool
}

// LoadEnvState reads environment variables and returns their state.
func LoadEnvState() EnvState {
	var state EnvState

	if v := os.Getenv("GOGERRIT_HOST"); v != "" {
		state.Host = v
		state.HostSet = true
	}
	if v := os.Getenv("GOGERRIT_USERNAME"); v != "" {
		state.Username = v
		state.UsernameSet = true
	}
	if v := os.Getenv("GOGERRIT_PORT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			state.Port = i
			state.PortSet = true
		}
	}
	if v := os.Getenv("GOGERRIT_KEEPALIVE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			state.Keepalive = d
			state.KeepaliveSet = true
		} else if secs, err := strconv.Atoi(v); err == nil {
			state.Keepalive = time.Duration(secs) * time.Second
			state.KeepaliveSet = true
		}
	}
	if v := os.Getenv("GOGERRIT_QUEUE_CAPACITY"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			state.QueueCapacity = i
			state.QueueCapacitySet = true
		}
	}
	if v := os.Getenv("GOGERRIT_IDENTITY_FILE"); v != "" {
		state.IdentityFile = v
		state.IdentityFileSet = true
	}
	if v := os.Getenv("GOGERRIT_KNOWN_HOSTS"); v != "" {
		state.KnownHostsFile = v
		state.KnownHostsFileSet = true
	}
	if v := os.Getenv("GOGERRIT_AUTO_ADD_HOST_KEYS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			state.AutoAddHostKeys = b
			state.AutoAddHostKeysSet = true
		}
	}

	return state
}

// Resolve merges config file values with env vars and flags.
// Precedence: flags > env vars > config file > defaults
func Resolve(cfg *Config, envState EnvState, flagState FlagState, flagValues ResolvedConfig) ResolvedConfig {
	result := Defaults

	if cfg != nil {
		if cfg.Host != nil {
			result.Host = *cfg.Host
		}
		if cfg.Username != nil {
			result.Username = *cfg.Username
		}
		if cfg.Port != nil {
			result.Port = *cfg.Port
		}
		if cfg.Keepalive != nil {
			result.Keepalive = cfg.Keepalive.AsDuration()
		}
		if cfg.QueueCapacity != nil {
			result.QueueCapacity = *cfg.QueueCapacity
		}
		if cfg.SSH.IdentityFile != nil {
			result.IdentityFile = *cfg.SSH.IdentityFile
		}
		if cfg.SSH.KnownHostsFile != nil {
			result.KnownHostsFile = *cfg.SSH.KnownHostsFile
		}
		if cfg.SSH.ConfigFile != nil {
			result.SSHConfigFile = *cfg.SSH.ConfigFile
		}
		if cfg.SSH.AutoAddHostKeys != nil {
			result.AutoAddHostKeys = *cfg.SSH.AutoAddHostKeys
		}
	}

	if envState.HostSet {
		result.Host = envState.Host
	}
	if envState.UsernameSet {
		result.Username = envState.Username
	}
	if envState.PortSet {
		result.Port = envState.Port
	}
	if envState.KeepaliveSet {
		result.Keepalive = envState.Keepalive
	}
	if envState.QueueCapacitySet {
		result.QueueCapacity = envState.QueueCapacity
	}
	if envState.IdentityFileSet {
		result.IdentityFile = envState.IdentityFile
	}
	if envState.KnownHostsFileSet {
		result.KnownHostsFile = envState.KnownHostsFile
	}
	if envState.AutoAddHostKeysSet {
		result.AutoAddHostKeys = envState.AutoAddHostKeys
	}

	if flagState.HostSet {
		result.Host = flagValues.Host
	}
	if flagState.UsernameSet {
		result.Username = flagValues.Username
	}
	if flagState.PortSet {
		result.Port = flagValues.Port
	}
	if flagState.KeepaliveSet {
		result.Keepalive = flagValues.Keepalive
	}
	if flagState.QueueCapacitySet {
		result.QueueCapacity = flagValues.QueueCapacity
	}
	if flagState.IdentityFileSet {
		result.IdentityFile = flagValues.IdentityFile
	}
	if flagState.KnownHostsFileSet {
		result.KnownHostsFile = flagValues.KnownHostsFile
	}
	if flagState.AutoAddHostKeysSet {
		result.AutoAddHostKeys = flagValues.AutoAddHostKeys
	}

	return result
}
