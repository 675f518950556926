package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// defaultKeyFiles are tried, in order, when no key path is configured.
var defaultKeyFiles = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

// SSHChannel is a Channel backed by an SSH connection.
type SSHChannel struct {
	mu     sync.Mutex
	client *ssh.Client
	host   string
}

// Connect establishes an SSH connection to host.
// If timeout is zero, defaults to DefaultTimeout.
func Connect(host string, creds Credentials, timeout time.Duration) (*SSHChannel, error) {
	if host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	cfg, err := clientConfig(creds, timeout)
	if err != nil {
		return nil, err
	}

	port := creds.Port
	if port == 0 {
		port = DefaultPort
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s as %s: %w", addr, cfg.User, err)
	}

	return &SSHChannel{client: client, host: host}, nil
}

// ConnectWithContext establishes a connection with context support for cancellation.
func ConnectWithContext(ctx context.Context, host string, creds Credentials, timeout time.Duration) (*SSHChannel, error) {
	type result struct {
		channel *SSHChannel
		err     error
	}
	resultCh := make(chan result, 1)

	go func() {
		c, err := Connect(host, creds, timeout)
		resultCh <- result{channel: c, err: err}
	}()

	select {
	case <-ctx.Done():
		// Close a connection that completes after the caller gave up.
		go func() {
			if res := <-resultCh; res.channel != nil {
				_ = res.channel.Close()
			}
		}()
		return nil, fmt.Errorf("connection cancelled: %w", ctx.Err())
	case res := <-resultCh:
		return res.channel, res.err
	}
}

// SSHDialer is the production Dialer.
type SSHDialer struct{}

// Dial implements Dialer.
func (SSHDialer) Dial(ctx context.Context, host string, creds Credentials, timeout time.Duration) (Channel, error) {
	c, err := ConnectWithContext(ctx, host, creds, timeout)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func clientConfig(creds Credentials, timeout time.Duration) (*ssh.ClientConfig, error) {
	user := creds.User
	if user == "" {
		user = "root"
	}

	auth, err := authMethods(creds)
	if err != nil {
		return nil, err
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if creds.KnownHostsPath != "" {
		hostKeyCallback, err = knownhosts.New(expandHome(creds.KnownHostsPath))
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts: %w", err)
		}
	}

	return &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}, nil
}

// authMethods builds the auth chain: explicit key, then default keys, then password.
func authMethods(creds Credentials) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if creds.KeyPath != "" {
		signer, err := loadSigner(expandHome(creds.KeyPath), creds.Password)
		if err != nil {
			return nil, err
		}
		methods = append(methods, ssh.PublicKeys(signer))
	} else {
		home, _ := os.UserHomeDir()
		for _, name := range defaultKeyFiles {
			if home == "" {
				break
			}
			signer, err := loadSigner(filepath.Join(home, ".ssh", name), "")
			if err != nil {
				continue
			}
			methods = append(methods, ssh.PublicKeys(signer))
		}
	}

	if creds.Password != "" {
		password := creds.Password
		methods = append(methods,
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		)
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no SSH credentials available: set a key path or password")
	}
	return methods, nil
}

func loadSigner(path, passphrase string) (ssh.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key %s: %w", path, err)
	}

	signer, err := ssh.ParsePrivateKey(data)
	if err == nil {
		return signer, nil
	}

	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) && passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(data, []byte(passphrase))
		if err == nil {
			return signer, nil
		}
	}
	return nil, fmt.Errorf("failed to parse SSH key %s: %w", path, err)
}

func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func (c *SSHChannel) sshClient() (*ssh.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil, fmt.Errorf("channel is closed")
	}
	return c.client, nil
}

// Exec implements Channel.
func (c *SSHChannel) Exec(ctx context.Context, command string, timeout time.Duration) (*ExecResult, error) {
	client, err := c.sshClient()
	if err != nil {
		return nil, err
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open session on %s: %w", c.host, err)
	}
	defer func() { _ = session.Close() }()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	if err := session.Start(command); err != nil {
		return nil, fmt.Errorf("failed to start remote command: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return nil, fmt.Errorf("remote command cancelled: %w", ctx.Err())
	case <-timer.C:
		_ = session.Signal(ssh.SIGKILL)
		return nil, fmt.Errorf("remote command timed out after %v", timeout)
	case err := <-done:
		result := &ExecResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
		if err == nil {
			return result, nil
		}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitStatus()
			return result, nil
		}
		return nil, fmt.Errorf("remote command failed: %w", err)
	}
}

// Fetch implements Channel using SFTP.
func (c *SSHChannel) Fetch(ctx context.Context, remotePath, localPath string) error {
	client, err := c.sshClient()
	if err != nil {
		return err
	}

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return fmt.Errorf("failed to start SFTP: %w", err)
	}
	defer func() { _ = sftpClient.Close() }()

	src, err := sftpClient.Open(remotePath)
	if err != nil {
		return fmt.Errorf("failed to open remote file %s: %w", remotePath, err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.OpenFile(localPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}

	n, err := io.Copy(dst, contextReader{ctx: ctx, r: src})
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to copy %s: %w", remotePath, err)
	}

	log.Debug().Str("host", c.host).Str("remote_path", remotePath).Int64("bytes", n).Msg("Fetched remote file")
	return nil
}

// Close implements Channel. It is safe to call Close multiple times.
func (c *SSHChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}

	err := c.client.Close()
	c.client = nil
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("failed to close SSH connection: %w", err)
	}
	return nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
