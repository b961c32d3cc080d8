// Package ssh implements the transport session to a Gerrit server: a
// persistent authenticated connection over which one-shot gerrit commands
// and the long-running stream-events invocation are multiplexed.
package ssh

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/sonyxperiadev/gogerrit/internal/gerrit"
)

// Gerrit advertises itself both in the SSH banner and in the output of
// the version command.
var (
	bannerVersionPattern  = regexp.MustCompile(`GerritCodeReview_([a-zA-Z0-9-.]+)`)
	commandVersionPattern = regexp.MustCompile(`^gerrit version (.+)$`)
)

// ConnectionError wraps a transport establishment or runtime failure.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Session is a live connection to one Gerrit server. It implements
// gerrit.Session. One-shot commands each run on their own SSH channel, so
// concurrent commands and an active event stream do not interfere.
type Session struct {
	client   *ssh.Client
	username string

	mu            sync.Mutex
	remoteVersion string

	closeOnce     sync.Once
	keepaliveDone chan struct{}
}

// compile-time conformance check
var _ gerrit.Session = (*Session)(nil)

// Connect establishes the SSH connection described by cfg. Unset fields
// are resolved from the user's ssh client configuration.
func Connect(cfg Config) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	r, err := resolve(cfg)
	if err != nil {
		return nil, &ConnectionError{Host: cfg.Host, Err: err}
	}

	auth, err := authMethods(r.identityFile)
	if err != nil {
		return nil, &ConnectionError{Host: cfg.Host, Err: err}
	}
	hostKeys, err := hostKeyCallback(r.knownHosts, cfg.AutoAddHostKeys)
	if err != nil {
		return nil, &ConnectionError{Host: cfg.Host, Err: err}
	}

	clientConfig := &ssh.ClientConfig{
		User:            r.username,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         cfg.DialTimeout,
	}
	addr := fmt.Sprintf("%s:%d", r.hostname, r.port)
	client, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		return nil, &ConnectionError{Host: cfg.Host, Err: err}
	}

	s := &Session{
		client:        client,
		username:      r.username,
		keepaliveDone: make(chan struct{}),
	}

	// Most Gerrit servers announce their version in the SSH banner,
	// saving a round trip later.
	if match := bannerVersionPattern.FindSubmatch(client.ServerVersion()); match != nil {
		s.remoteVersion = string(match[1])
	}

	if cfg.Keepalive > 0 {
		go s.keepalive(cfg.Keepalive)
	}
	return s, nil
}

// keepalive sends periodic keepalive requests until the session closes.
func (s *Session) keepalive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, _, err := s.client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				return
			}
		case <-s.keepaliveDone:
			return
		}
	}
}

// RunCommand executes one gerrit command on a fresh channel and returns
// its output handle. Closing the handle waits for the remote command; the
// concrete *CommandResult additionally exposes the exit status and any
// stderr output.
func (s *Session) RunCommand(ctx context.Context, command string) (io.ReadCloser, error) {
	result, err := s.runCommand(ctx, command)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Session) runCommand(ctx context.Context, command string) (*CommandResult, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return nil, &ConnectionError{Host: s.client.RemoteAddr().String(), Err: err}
	}
	return startCommand(ctx, sess, "gerrit "+command)
}

// OpenStream starts a long-running gerrit command on a dedicated channel.
// Closing the returned handle tears down the channel, which unblocks any
// in-flight ReadLine.
func (s *Session) OpenStream(ctx context.Context, command string) (gerrit.StreamHandle, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return nil, &ConnectionError{Host: s.client.RemoteAddr().String(), Err: err}
	}
	return openStream(ctx, sess, "gerrit "+command)
}

// RemoteVersion returns the server version, from the SSH banner when the
// server advertised one, otherwise by running the version command once.
// The result is cached for the lifetime of the session.
func (s *Session) RemoteVersion(ctx context.Context) (string, error) {
	s.mu.Lock()
	cached := s.remoteVersion
	s.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	version, err := s.probeVersion(ctx)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.remoteVersion = version
	s.mu.Unlock()
	return version, nil
}

func (s *Session) probeVersion(ctx context.Context) (string, error) {
	out, err := s.runCommand(ctx, "version")
	if err != nil {
		return "", err
	}
	defer out.Close()

	data, err := io.ReadAll(out)
	if err != nil {
		return "", &ConnectionError{Host: s.client.RemoteAddr().String(), Err: err}
	}
	match := commandVersionPattern.FindStringSubmatch(strings.TrimSpace(string(data)))
	if match == nil {
		return "", fmt.Errorf("unexpected version output %q", strings.TrimSpace(string(data)))
	}
	return strings.TrimSpace(match[1]), nil
}

// RemoteInfo returns the connected username and the server version.
func (s *Session) RemoteInfo(ctx context.Context) (string, string, error) {
	version, err := s.RemoteVersion(ctx)
	if err != nil {
		return "", "", err
	}
	return s.username, version, nil
}

// Username returns the name the session authenticated as.
func (s *Session) Username() string {
	return s.username
}

// Close tears down the connection. Outstanding command handles fail.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.keepaliveDone)
		err = s.client.Close()
	})
	return err
}

// authMethods assembles public key auth from the SSH agent and, when
// configured, an identity file. The agent is optional; a configured
// identity file that cannot be read is an error.
func authMethods(identityFile string) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := dialAgent(sock); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	if identityFile != "" {
		data, err := os.ReadFile(identityFile)
		if err != nil {
			return nil, fmt.Errorf("reading identity file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			return nil, fmt.Errorf("parsing identity file %s: %w", identityFile, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no usable auth: no SSH agent and no identity file")
	}
	return methods, nil
}

func dialAgent(sock string) (net.Conn, error) {
	return net.DialTimeout("unix", sock, 5*time.Second)
}
