package vm

import (
	"context"
	"fmt"
	"sync"

	"github.com/jbweber/ephetzner/internal/backup"
	"github.com/jbweber/ephetzner/internal/cloud"
)

// mockServerProvider is a mock implementation of serverProvider and
// catalogProvider for testing.
type mockServerProvider struct {
	mu sync.Mutex

	// Configurable behavior
	listServersFunc     func(selector string) ([]*cloud.Server, error)
	getServerFunc       func(idOrName string) (*cloud.Server, error)
	createServerFunc    func(req cloud.CreateServerRequest) (*cloud.Server, error)
	assignLabelsFunc    func(id int64, labels map[string]string) error
	deleteServerFunc    func(id int64) error
	ensureSSHKeyFunc    func(publicKey string) (*cloud.SSHKey, error)
	listServerTypesFunc func() ([]cloud.ServerType, error)
	listImagesFunc      func() ([]cloud.Image, error)

	// Call tracking
	listServersCalls     []string
	getServerCalls       []string
	createServerCalls    []cloud.CreateServerRequest
	assignLabelsCalls    []map[string]string
	deleteServerCalls    []int64
	ensureSSHKeyCalls    []string
	listServerTypesCalls int
	listImagesCalls      int
}

// newMockServerProvider creates a new mock provider with default behavior.
func newMockServerProvider() *mockServerProvider {
	m := &mockServerProvider{}

	// Default: no servers
	m.listServersFunc = func(selector string) ([]*cloud.Server, error) {
		return nil, nil
	}

	// Default: server not found
	m.getServerFunc = func(idOrName string) (*cloud.Server, error) {
		return nil, fmt.Errorf("%w: %s", cloud.ErrServerNotFound, idOrName)
	}

	// Default: create succeeds and echoes the request
	m.createServerFunc = func(req cloud.CreateServerRequest) (*cloud.Server, error) {
		return &cloud.Server{
			ID:         42,
			Name:       req.Name,
			ServerType: req.ServerType,
			Image:      req.Image,
			IPv4:       "192.0.2.10",
			Labels:     req.Labels,
		}, nil
	}

	m.assignLabelsFunc = func(id int64, labels map[string]string) error {
		return nil
	}

	m.deleteServerFunc = func(id int64) error {
		return nil
	}

	m.ensureSSHKeyFunc = func(publicKey string) (*cloud.SSHKey, error) {
		return &cloud.SSHKey{ID: 7, Name: "ephetzner-key", PublicKey: publicKey}, nil
	}

	m.listServerTypesFunc = func() ([]cloud.ServerType, error) {
		return []cloud.ServerType{{Name: "cx22", Cores: 2}}, nil
	}

	m.listImagesFunc = func() ([]cloud.Image, error) {
		return []cloud.Image{{ID: 1, Name: "debian-12"}}, nil
	}

	return m
}

func (m *mockServerProvider) ListServers(ctx context.Context, selector string) ([]*cloud.Server, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listServersCalls = append(m.listServersCalls, selector)
	return m.listServersFunc(selector)
}

func (m *mockServerProvider) GetServer(ctx context.Context, idOrName string) (*cloud.Server, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getServerCalls = append(m.getServerCalls, idOrName)
	return m.getServerFunc(idOrName)
}

func (m *mockServerProvider) CreateServer(ctx context.Context, req cloud.CreateServerRequest) (*cloud.Server, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createServerCalls = append(m.createServerCalls, req)
	return m.createServerFunc(req)
}

func (m *mockServerProvider) AssignLabels(ctx context.Context, id int64, labels map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignLabelsCalls = append(m.assignLabelsCalls, labels)
	return m.assignLabelsFunc(id, labels)
}

func (m *mockServerProvider) DeleteServer(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteServerCalls = append(m.deleteServerCalls, id)
	return m.deleteServerFunc(id)
}

func (m *mockServerProvider) EnsureSSHKey(ctx context.Context, publicKey string) (*cloud.SSHKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureSSHKeyCalls = append(m.ensureSSHKeyCalls, publicKey)
	return m.ensureSSHKeyFunc(publicKey)
}

func (m *mockServerProvider) ListServerTypes(ctx context.Context) ([]cloud.ServerType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listServerTypesCalls++
	return m.listServerTypesFunc()
}

func (m *mockServerProvider) ListImages(ctx context.Context) ([]cloud.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listImagesCalls++
	return m.listImagesFunc()
}

// mockDNSUpdater is a mock implementation of dnsUpdater for testing.
type mockDNSUpdater struct {
	mu sync.Mutex

	err   error
	calls [][2]string // host, ipv4
}

func (m *mockDNSUpdater) UpdateRecord(ctx context.Context, host, ipv4 string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, [2]string{host, ipv4})
	return m.err
}

// mockBackupRunner is a mock implementation of backupRunner for testing.
type mockBackupRunner struct {
	mu sync.Mutex

	// Configurable behavior
	createBackupFunc func(req backup.Request) (*backup.Result, error)
	verifyBackupFunc func(result backup.Result) (bool, error)

	// Call tracking
	createBackupCalls []backup.Request
	verifyBackupCalls []backup.Result
}

// newMockBackupRunner creates a backup runner whose backups succeed and verify.
func newMockBackupRunner() *mockBackupRunner {
	return &mockBackupRunner{
		createBackupFunc: func(req backup.Request) (*backup.Result, error) {
			return &backup.Result{
				BackupID:  "b-1",
				Location:  "s3://bucket/prefix/" + req.ArchiveName,
				Checksum:  "abc123",
				SizeBytes: 1024,
			}, nil
		},
		verifyBackupFunc: func(result backup.Result) (bool, error) {
			return true, nil
		},
	}
}

func (m *mockBackupRunner) CreateBackup(ctx context.Context, req backup.Request) (*backup.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createBackupCalls = append(m.createBackupCalls, req)
	return m.createBackupFunc(req)
}

func (m *mockBackupRunner) VerifyBackup(ctx context.Context, result backup.Result) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifyBackupCalls = append(m.verifyBackupCalls, result)
	return m.verifyBackupFunc(result)
}

// mockCache is an in-memory catalogCache.
type mockCache struct {
	mu sync.Mutex

	entries  map[string]any
	writeErr error
	writes   []string
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string]any)}
}

func (m *mockCache) Read(key string, dst any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.entries[key]
	if !ok {
		return false, nil
	}

	switch d := dst.(type) {
	case *[]cloud.ServerType:
		*d = v.([]cloud.ServerType)
	case *[]cloud.Image:
		*d = v.([]cloud.Image)
	default:
		return false, fmt.Errorf("unsupported cache type %T", dst)
	}
	return true, nil
}

func (m *mockCache) Write(key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, key)
	if m.writeErr != nil {
		return m.writeErr
	}
	m.entries[key] = value
	return nil
}
