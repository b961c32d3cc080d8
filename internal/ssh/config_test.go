package ssh

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeSSHConfig writes an ssh client config and returns its path.
func writeSSHConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolve_FromConfigFile(t *testing.T) {
	identity := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(identity, []byte("fake key material"), 0o600); err != nil {
		t.Fatal(err)
	}

	configPath := writeSSHConfig(t, `
Host review
    HostName review.example.com
    User jdoe
    Port 2222
    IdentityFile `+identity+`
`)

	r, err := resolve(Config{Host: "review", ConfigFile: configPath})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if r.hostname != "review.example.com" {
		t.Errorf("hostname = %q", r.hostname)
	}
	if r.username != "jdoe" {
		t.Errorf("username = %q", r.username)
	}
	if r.port != 2222 {
		t.Errorf("port = %d", r.port)
	}
	if r.identityFile != identity {
		t.Errorf("identityFile = %q", r.identityFile)
	}
}

func TestResolve_ExplicitFieldsWin(t *testing.T) {
	configPath := writeSSHConfig(t, `
Host review
    HostName review.example.com
    User jdoe
    Port 2222
`)

	r, err := resolve(Config{
		Host:       "review",
		Username:   "operator",
		Port:       29419,
		ConfigFile: configPath,
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if r.username != "operator" {
		t.Errorf("username = %q, explicit value should win", r.username)
	}
	if r.port != 29419 {
		t.Errorf("port = %d, explicit value should win", r.port)
	}
	// HostName still comes from the file: the alias is not a real host.
	if r.hostname != "review.example.com" {
		t.Errorf("hostname = %q", r.hostname)
	}
}

func TestResolve_MissingConfigFileUsesDefaults(t *testing.T) {
	r, err := resolve(Config{
		Host:       "gerrit.example.com",
		Username:   "jdoe",
		ConfigFile: filepath.Join(t.TempDir(), "does-not-exist"),
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if r.hostname != "gerrit.example.com" {
		t.Errorf("hostname = %q", r.hostname)
	}
	if r.port != DefaultPort {
		t.Errorf("port = %d, want default %d", r.port, DefaultPort)
	}
}

func TestResolve_InvalidPort(t *testing.T) {
	configPath := writeSSHConfig(t, `
Host review
    Port notaport
`)

	if _, err := resolve(Config{Host: "review", ConfigFile: configPath}); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestResolve_SkipsMissingIdentityFile(t *testing.T) {
	configPath := writeSSHConfig(t, `
Host review
    IdentityFile /nonexistent/id_ed25519
`)

	r, err := resolve(Config{Host: "review", Username: "jdoe", ConfigFile: configPath})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if r.identityFile != "" {
		t.Errorf("identityFile = %q, want empty for missing file", r.identityFile)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (&Config{}).validate(); !errors.Is(err, ErrMissingHost) {
		t.Errorf("empty host: got %v", err)
	}
	if err := (&Config{Host: "   "}).validate(); !errors.Is(err, ErrMissingHost) {
		t.Errorf("blank host: got %v", err)
	}
	if err := (&Config{Host: "h", Keepalive: -1}).validate(); !errors.Is(err, ErrBadKeepalive) {
		t.Errorf("negative keepalive: got %v", err)
	}
	if err := (&Config{Host: "h"}).validate(); err != nil {
		t.Errorf("valid config: got %v", err)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/.ssh/config"); got != filepath.Join(home, ".ssh/config") {
		t.Errorf("expandHome = %q", got)
	}
	if got := expandHome("/absolute/path"); got != "/absolute/path" {
		t.Errorf("expandHome modified absolute path: %q", got)
	}
	if got := expandHome("relative/~path"); got != "relative/~path" {
		t.Errorf("expandHome modified interior tilde: %q", got)
	}
}
