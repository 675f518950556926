package cloud

import (
	"context"
	"sync"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// mockServerAPI is a mock implementation of serverAPI for testing.
type mockServerAPI struct {
	mu sync.Mutex

	// Configurable behavior
	allWithOptsFunc      func(opts hcloud.ServerListOpts) ([]*hcloud.Server, error)
	getFunc              func(idOrName string) (*hcloud.Server, error)
	getByIDFunc          func(id int64) (*hcloud.Server, error)
	createFunc           func(opts hcloud.ServerCreateOpts) (hcloud.ServerCreateResult, error)
	updateFunc           func(server *hcloud.Server, opts hcloud.ServerUpdateOpts) (*hcloud.Server, error)
	deleteWithResultFunc func(server *hcloud.Server) (*hcloud.ServerDeleteResult, error)

	// Call tracking
	listSelectors []string
	getCalls      []string
	getByIDCalls  []int64
	createCalls   []hcloud.ServerCreateOpts
	updateCalls   []hcloud.ServerUpdateOpts
	deleteCalls   []int64
}

func newMockServerAPI() *mockServerAPI {
	return &mockServerAPI{
		allWithOptsFunc: func(opts hcloud.ServerListOpts) ([]*hcloud.Server, error) {
			return nil, nil
		},
		getFunc: func(idOrName string) (*hcloud.Server, error) {
			return nil, nil
		},
		getByIDFunc: func(id int64) (*hcloud.Server, error) {
			return nil, nil
		},
		createFunc: func(opts hcloud.ServerCreateOpts) (hcloud.ServerCreateResult, error) {
			return hcloud.ServerCreateResult{
				Server: &hcloud.Server{ID: 42, Name: opts.Name, Labels: opts.Labels},
				Action: &hcloud.Action{ID: 1},
			}, nil
		},
		updateFunc: func(server *hcloud.Server, opts hcloud.ServerUpdateOpts) (*hcloud.Server, error) {
			return server, nil
		},
		deleteWithResultFunc: func(server *hcloud.Server) (*hcloud.ServerDeleteResult, error) {
			return &hcloud.ServerDeleteResult{Action: &hcloud.Action{ID: 2}}, nil
		},
	}
}

func (m *mockServerAPI) AllWithOpts(ctx context.Context, opts hcloud.ServerListOpts) ([]*hcloud.Server, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listSelectors = append(m.listSelectors, opts.LabelSelector)
	return m.allWithOptsFunc(opts)
}

func (m *mockServerAPI) Get(ctx context.Context, idOrName string) (*hcloud.Server, *hcloud.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls = append(m.getCalls, idOrName)
	s, err := m.getFunc(idOrName)
	return s, nil, err
}

func (m *mockServerAPI) GetByID(ctx context.Context, id int64) (*hcloud.Server, *hcloud.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getByIDCalls = append(m.getByIDCalls, id)
	s, err := m.getByIDFunc(id)
	return s, nil, err
}

func (m *mockServerAPI) Create(ctx context.Context, opts hcloud.ServerCreateOpts) (hcloud.ServerCreateResult, *hcloud.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls = append(m.createCalls, opts)
	r, err := m.createFunc(opts)
	return r, nil, err
}

func (m *mockServerAPI) Update(ctx context.Context, server *hcloud.Server, opts hcloud.ServerUpdateOpts) (*hcloud.Server, *hcloud.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls = append(m.updateCalls, opts)
	s, err := m.updateFunc(server, opts)
	return s, nil, err
}

func (m *mockServerAPI) DeleteWithResult(ctx context.Context, server *hcloud.Server) (*hcloud.ServerDeleteResult, *hcloud.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls = append(m.deleteCalls, server.ID)
	r, err := m.deleteWithResultFunc(server)
	return r, nil, err
}

// mockCatalogAPI serves server types and images.
type mockCatalogAPI struct {
	serverTypes []*hcloud.ServerType
	images      []*hcloud.Image
	err         error

	imageOpts []hcloud.ImageListOpts
}

func (m *mockCatalogAPI) All(ctx context.Context) ([]*hcloud.ServerType, error) {
	return m.serverTypes, m.err
}

func (m *mockCatalogAPI) AllWithOpts(ctx context.Context, opts hcloud.ImageListOpts) ([]*hcloud.Image, error) {
	m.imageOpts = append(m.imageOpts, opts)
	return m.images, m.err
}

// mockSSHKeyAPI is a mock implementation of sshKeyAPI for testing.
type mockSSHKeyAPI struct {
	mu sync.Mutex

	keys      []*hcloud.SSHKey
	createErr error

	createCalls []hcloud.SSHKeyCreateOpts
}

func (m *mockSSHKeyAPI) All(ctx context.Context) ([]*hcloud.SSHKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys, nil
}

func (m *mockSSHKeyAPI) Create(ctx context.Context, opts hcloud.SSHKeyCreateOpts) (*hcloud.SSHKey, *hcloud.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls = append(m.createCalls, opts)
	if m.createErr != nil {
		return nil, nil, m.createErr
	}
	key := &hcloud.SSHKey{ID: int64(100 + len(m.createCalls)), Name: opts.Name, PublicKey: opts.PublicKey}
	m.keys = append(m.keys, key)
	return key, nil, nil
}

// mockActionWaiter records awaited actions.
type mockActionWaiter struct {
	mu sync.Mutex

	err     error
	awaited []int64
}

func (m *mockActionWaiter) WaitFor(ctx context.Context, actions ...*hcloud.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range actions {
		m.awaited = append(m.awaited, a.ID)
	}
	return m.err
}
