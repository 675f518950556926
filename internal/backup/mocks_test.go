package backup

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jbweber/ephetzner/internal/objectstore"
	"github.com/jbweber/ephetzner/internal/remote"
)

// fakeHost is an in-memory remote filesystem shared by the channels it hands out.
type fakeHost struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeHost() *fakeHost {
	return &fakeHost{files: make(map[string][]byte)}
}

func (h *fakeHost) put(path string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.files[path] = data
}

func (h *fakeHost) exists(path string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.files[path]
	return ok
}

// tarDir builds a tar.gz of every file below dir.
func (h *fakeHost) tarDir(dir string) ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	prefix := strings.TrimRight(dir, "/") + "/"
	var names []string
	for name := range h.files {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, false
	}
	sort.Strings(names)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, name := range names {
		data := h.files[name]
		_ = tw.WriteHeader(&tar.Header{Name: "./" + strings.TrimPrefix(name, prefix), Mode: 0o644, Size: int64(len(data))})
		_, _ = tw.Write(data)
	}
	_ = tw.Close()
	_ = gz.Close()
	return buf.Bytes(), true
}

// mockChannel is a mock implementation of remote.Channel backed by a fakeHost.
// By default it understands the archive and remove commands issued by Service.
type mockChannel struct {
	mu   sync.Mutex
	host *fakeHost

	// Configurable behavior
	execFunc  func(command string) (*remote.ExecResult, error)
	fetchFunc func(remotePath, localPath string) error
	closeFunc func() error

	// Call tracking
	execCalls  []string
	fetchCalls []string
	closeCalls int
}

func newMockChannel(host *fakeHost) *mockChannel {
	m := &mockChannel{host: host}

	m.execFunc = func(command string) (*remote.ExecResult, error) {
		fields := strings.Fields(command)
		switch {
		case len(fields) == 7 && fields[0] == "sudo" && fields[1] == "tar" && fields[2] == "czf" && fields[4] == "-C" && fields[6] == ".":
			archive, dir := fields[3], fields[5]
			data, ok := host.tarDir(dir)
			if !ok {
				return &remote.ExecResult{ExitCode: 2, Stderr: []byte(fmt.Sprintf("tar: %s: Cannot open: No such file or directory\n", dir))}, nil
			}
			host.put(archive, data)
			return &remote.ExecResult{}, nil
		case len(fields) == 4 && fields[0] == "sudo" && fields[1] == "rm" && fields[2] == "-f":
			host.mu.Lock()
			delete(host.files, fields[3])
			host.mu.Unlock()
			return &remote.ExecResult{}, nil
		default:
			return &remote.ExecResult{ExitCode: 127, Stderr: []byte("command not found")}, nil
		}
	}

	m.fetchFunc = func(remotePath, localPath string) error {
		host.mu.Lock()
		data, ok := host.files[remotePath]
		host.mu.Unlock()
		if !ok {
			return fmt.Errorf("open %s: file does not exist", remotePath)
		}
		return os.WriteFile(localPath, data, 0o600)
	}

	m.closeFunc = func() error {
		return nil
	}

	return m
}

func (m *mockChannel) Exec(ctx context.Context, command string, timeout time.Duration) (*remote.ExecResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execCalls = append(m.execCalls, command)
	return m.execFunc(command)
}

func (m *mockChannel) Fetch(ctx context.Context, remotePath, localPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCalls = append(m.fetchCalls, remotePath)
	return m.fetchFunc(remotePath, localPath)
}

func (m *mockChannel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	return m.closeFunc()
}

// mockDialer is a mock implementation of remote.Dialer.
type mockDialer struct {
	mu sync.Mutex

	dialFunc func(host string, creds remote.Credentials) (remote.Channel, error)

	dialHosts []string
	dialCreds []remote.Credentials
}

func newMockDialer(channel remote.Channel) *mockDialer {
	return &mockDialer{
		dialFunc: func(host string, creds remote.Credentials) (remote.Channel, error) {
			return channel, nil
		},
	}
}

func (m *mockDialer) Dial(ctx context.Context, host string, creds remote.Credentials, timeout time.Duration) (remote.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dialHosts = append(m.dialHosts, host)
	m.dialCreds = append(m.dialCreds, creds)
	return m.dialFunc(host, creds)
}

// mockStore is an in-memory objectstore.Store.
type mockStore struct {
	mu sync.Mutex

	objects map[string][]byte

	// Configurable behavior
	uploadFunc func(localPath, bucket, key string) error
	fetchFunc  func(bucket, key string) (*objectstore.Object, error)

	// Call tracking
	uploadCalls []string
	uploadMeta  []map[string]string
	fetchCalls  []string
}

func newMockStore() *mockStore {
	m := &mockStore{objects: make(map[string][]byte)}

	m.uploadFunc = func(localPath, bucket, key string) error {
		data, err := os.ReadFile(localPath)
		if err != nil {
			return err
		}
		m.objects[bucket+"/"+key] = data
		return nil
	}

	m.fetchFunc = func(bucket, key string) (*objectstore.Object, error) {
		data, ok := m.objects[bucket+"/"+key]
		if !ok {
			return nil, fmt.Errorf("s3://%s/%s: %w", bucket, key, objectstore.ErrNotFound)
		}
		return &objectstore.Object{
			Body:          io.NopCloser(bytes.NewReader(data)),
			ContentLength: int64(len(data)),
		}, nil
	}

	return m
}

func (m *mockStore) Upload(ctx context.Context, localPath, bucket, key string, metadata map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadCalls = append(m.uploadCalls, bucket+"/"+key)
	m.uploadMeta = append(m.uploadMeta, metadata)
	return m.uploadFunc(localPath, bucket, key)
}

func (m *mockStore) FetchObject(ctx context.Context, bucket, key string) (*objectstore.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCalls = append(m.fetchCalls, bucket+"/"+key)
	return m.fetchFunc(bucket, key)
}
