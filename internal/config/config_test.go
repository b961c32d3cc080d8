package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	sshcfg "github.com/sonyxperiadev/gogerrit/internal/ssh"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return configPath
}

func TestLoadFromPath_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `host: review.example.com
username: jenkins
port: 29419
keepalive: 30s
queue_capacity: 64
ssh:
  identity_file: ~/.ssh/id_gerrit
  auto_add_host_keys: true
`)

	result, err := LoadFromPathWithWarnings(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("expected no warnings, got: %v", result.Warnings)
	}

	cfg := result.Config
	if cfg.Host == nil || *cfg.Host != "review.example.com" {
		t.Errorf("host not loaded: %v", cfg.Host)
	}
	if cfg.Username == nil || *cfg.Username != "jenkins" {
		t.Errorf("username not loaded: %v", cfg.Username)
	}
	if cfg.Port == nil || *cfg.Port != 29419 {
		t.Errorf("port not loaded: %v", cfg.Port)
	}
	if cfg.Keepalive == nil || cfg.Keepalive.AsDuration() != 30*time.Second {
		t.Errorf("keepalive not loaded: %v", cfg.Keepalive)
	}
	if cfg.QueueCapacity == nil || *cfg.QueueCapacity != 64 {
		t.Errorf("queue_capacity not loaded: %v", cfg.QueueCapacity)
	}
	if cfg.SSH.IdentityFile == nil || *cfg.SSH.IdentityFile != "~/.ssh/id_gerrit" {
		t.Errorf("ssh.identity_file not loaded: %v", cfg.SSH.IdentityFile)
	}
	if cfg.SSH.AutoAddHostKeys == nil || !*cfg.SSH.AutoAddHostKeys {
		t.Errorf("ssh.auto_add_host_keys not loaded: %v", cfg.SSH.AutoAddHostKeys)
	}
}

func TestLoadFromPath_FileNotFound(t *testing.T) {
	result, err := LoadFromPathWithWarnings("/nonexistent/path/.gogerrit.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if result.Config == nil {
		t.Fatal("expected non-nil config")
	}
	if result.Config.Host != nil {
		t.Errorf("expected empty config, got host %q", *result.Config.Host)
	}
}

func TestLoadFromPath_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "host: [unclosed\n")

	if _, err := LoadFromPathWithWarnings(configPath); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadFromPath_UnknownKeyWarning(t *testing.T) {
	configPath := writeConfig(t, `hostt: review.example.com
ssh:
  identityfile: ~/.ssh/id_rsa
`)

	result, err := LoadFromPathWithWarnings(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d: %v", len(result.Warnings), result.Warnings)
	}
	joined := strings.Join(result.Warnings, "\n")
	if !strings.Contains(joined, `did you mean "host"?`) {
		t.Errorf("expected suggestion for hostt, got: %v", result.Warnings)
	}
	if !strings.Contains(joined, `did you mean "identity_file"?`) {
		t.Errorf("expected suggestion for identityfile, got: %v", result.Warnings)
	}
}

func TestLoadFromPath_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"port too small", "port: 0\n"},
		{"port too large", "port: 70000\n"},
		{"negative keepalive", "keepalive: -5s\n"},
		{"zero queue capacity", "queue_capacity: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, tt.content)
			if _, err := LoadFromPathWithWarnings(configPath); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		expected time.Duration
		wantErr  bool
	}{
		{"go format seconds", `"45s"`, 45 * time.Second, false},
		{"go format minutes", `"2m"`, 2 * time.Minute, false},
		{"numeric seconds", `60`, 60 * time.Second, false},
		{"invalid string", `"not-a-duration"`, 0, true},
		{"invalid type", `[1, 2]`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := yaml.Unmarshal([]byte(tt.yaml), &d)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.AsDuration() != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, d.AsDuration())
			}
		})
	}
}

func TestResolve_Precedence(t *testing.T) {
	host := "file.example.com"
	port := 2222
	cfg := &Config{Host: &host, Port: &port}

	env := EnvState{Host: "env.example.com", HostSet: true}
	flags := FlagState{HostSet: true}
	flagValues := ResolvedConfig{Host: "flag.example.com"}

	resolved := Resolve(cfg, env, flags, flagValues)

	if resolved.Host != "flag.example.com" {
		t.Errorf("flag should win, got %q", resolved.Host)
	}
	if resolved.Port != 2222 {
		t.Errorf("file port should apply, got %d", resolved.Port)
	}
	if resolved.QueueCapacity != Defaults.QueueCapacity {
		t.Errorf("default queue capacity should apply, got %d", resolved.QueueCapacity)
	}
}

func TestResolve_EnvOverFile(t *testing.T) {
	username := "fileuser"
	cfg := &Config{Username: &username}
	env := EnvState{Username: "envuser", UsernameSet: true}

	resolved := Resolve(cfg, env, FlagState{}, ResolvedConfig{})

	if resolved.Username != "envuser" {
		t.Errorf("env should win over file, got %q", resolved.Username)
	}
}

func TestResolve_Defaults(t *testing.T) {
	resolved := Resolve(&Config{}, EnvState{}, FlagState{}, ResolvedConfig{})

	if resolved.Port != sshcfg.DefaultPort {
		t.Errorf("expected default port %d, got %d", sshcfg.DefaultPort, resolved.Port)
	}
	if resolved.Keepalive != 0 {
		t.Errorf("expected keepalive disabled by default, got %v", resolved.Keepalive)
	}
}

func TestLoadEnvState(t *testing.T) {
	t.Setenv("GOGERRIT_HOST", "env.example.com")
	t.Setenv("GOGERRIT_PORT", "29418")
	t.Setenv("GOGERRIT_KEEPALIVE", "90")
	t.Setenv("GOGERRIT_AUTO_ADD_HOST_KEYS", "true")

	state := LoadEnvState()

	if !state.HostSet || state.Host != "env.example.com" {
		t.Errorf("host not read from env: %+v", state)
	}
	if !state.PortSet || state.Port != 29418 {
		t.Errorf("port not read from env: %+v", state)
	}
	if !state.KeepaliveSet || state.Keepalive != 90*time.Second {
		t.Errorf("numeric keepalive not read as seconds: %+v", state)
	}
	if !state.AutoAddHostKeysSet || !state.AutoAddHostKeys {
		t.Errorf("auto add host keys not read from env: %+v", state)
	}
}

func TestLoadEnvState_InvalidValuesIgnored(t *testing.T) {
	t.Setenv("GOGERRIT_PORT", "not-a-number")
	t.Setenv("GOGERRIT_KEEPALIVE", "bogus")

	state := LoadEnvState()

	if state.PortSet {
		t.Error("invalid port should be ignored")
	}
	if state.KeepaliveSet {
		t.Error("invalid keepalive should be ignored")
	}
}
