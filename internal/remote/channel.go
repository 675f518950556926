// Package remote runs commands on, and copies files from, a remote host.
//
// The backup workflow only depends on the Channel and Dialer interfaces;
// SSHDialer is the production implementation.
package remote

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// DefaultTimeout bounds connection establishment and command execution.
const DefaultTimeout = 120 * time.Second

// DefaultPort is the SSH port used when Credentials.Port is zero.
const DefaultPort = 22

// Credentials describe how to authenticate against a remote host.
type Credentials struct {
	User     string
	KeyPath  string
	Password string
	Port     int

	// KnownHostsPath enables host key verification when set.
	KnownHostsPath string
}

// ExecResult is the outcome of a finished remote command.
type ExecResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Channel is an established session to a remote host.
type Channel interface {
	// Exec runs command and waits for it to exit or for timeout to elapse.
	// A non-zero exit status is reported in ExecResult, not as an error.
	Exec(ctx context.Context, command string, timeout time.Duration) (*ExecResult, error)

	// Fetch copies remotePath to localPath byte for byte.
	Fetch(ctx context.Context, remotePath, localPath string) error

	// Close releases the session. It is safe to call Close multiple times.
	Close() error
}

// Dialer opens Channels.
type Dialer interface {
	Dial(ctx context.Context, host string, creds Credentials, timeout time.Duration) (Channel, error)
}

var safeShellWord = regexp.MustCompile(`^[A-Za-z0-9@%+=:,./_-]+$`)

// Quote returns s quoted for a POSIX shell. Words made only of safe
// characters are returned unchanged.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if safeShellWord.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
