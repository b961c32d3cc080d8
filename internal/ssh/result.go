package ssh

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/ssh"
)

// CommandResult wraps the output stream of one remote command invocation
// and ties the channel's lifecycle to Close. After Close returns,
// ExitCode and Stderr report how the remote command ended.
// Close is safe for concurrent calls; only the first performs cleanup.
type CommandResult struct {
	io.Reader
	session   *ssh.Session
	stderr    *bytes.Buffer
	exitCode  int
	closeOnce sync.Once
	released  chan struct{}
}

// watchCancel force-closes sess when ctx is cancelled before released,
// unblocking any reader on the channel.
func watchCancel(ctx context.Context, sess *ssh.Session, released <-chan struct{}) {
	select {
	case <-ctx.Done():
		_ = sess.Close()
	case <-released:
	}
}

// startCommand starts command on sess and returns its managed result.
func startCommand(ctx context.Context, sess *ssh.Session, command string) (*CommandResult, error) {
	stderr := &bytes.Buffer{}
	sess.Stderr = stderr

	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	if err := sess.Start(command); err != nil {
		sess.Close()
		return nil, fmt.Errorf("starting %q: %w", command, err)
	}

	r := &CommandResult{
		Reader:   stdout,
		session:  sess,
		stderr:   stderr,
		released: make(chan struct{}),
	}
	go watchCancel(ctx, sess, r.released)
	return r, nil
}

// Close waits for the remote command to finish and releases the channel.
func (r *CommandResult) Close() error {
	r.closeOnce.Do(func() {
		err := r.session.Wait()
		if exitErr, ok := err.(*ssh.ExitError); ok {
			r.exitCode = exitErr.ExitStatus()
		} else if err != nil {
			r.exitCode = -1
		}
		close(r.released)
		_ = r.session.Close()
	})
	return nil
}

// ExitCode returns the remote exit status. Valid only after Close.
// Returns -1 if the command could not be waited on.
func (r *CommandResult) ExitCode() int {
	return r.exitCode
}

// Stderr returns the captured stderr output. Valid only after Close.
func (r *CommandResult) Stderr() string {
	return r.stderr.String()
}

// streamHandle is the line-oriented handle for a long-running invocation.
type streamHandle struct {
	reader    *bufio.Reader
	session   *ssh.Session
	closeOnce sync.Once
	released  chan struct{}
}

// openStream starts command on sess and returns a handle whose ReadLine
// blocks until a full line arrives or the channel dies. Close and ctx
// cancellation both tear down the channel, unblocking ReadLine.
func openStream(ctx context.Context, sess *ssh.Session, command string) (*streamHandle, error) {
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	if err := sess.Start(command); err != nil {
		sess.Close()
		return nil, fmt.Errorf("starting %q: %w", command, err)
	}

	h := &streamHandle{
		reader:   bufio.NewReader(stdout),
		session:  sess,
		released: make(chan struct{}),
	}
	go watchCancel(ctx, sess, h.released)
	return h, nil
}

// ReadLine returns the next line, including its line break.
func (h *streamHandle) ReadLine() (string, error) {
	line, err := h.reader.ReadString('\n')
	if err != nil {
		// A partial line before EOF is still data.
		if len(line) > 0 {
			return line, nil
		}
		return "", err
	}
	return line, nil
}

// Close requests termination of the remote invocation and releases the
// channel. Any blocked ReadLine fails promptly.
func (h *streamHandle) Close() error {
	var err error
	h.closeOnce.Do(func() {
		close(h.released)
		err = h.session.Close()
	})
	return err
}
