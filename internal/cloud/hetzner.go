package cloud

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"

	"github.com/jbweber/ephetzner/internal/naming"
)

// LabelManagedBy marks SSH keys registered by ephetzner.
const LabelManagedBy = "managed-by"

// serverAPI is the subset of *hcloud.ServerClient used by Hetzner.
type serverAPI interface {
	AllWithOpts(ctx context.Context, opts hcloud.ServerListOpts) ([]*hcloud.Server, error)
	Get(ctx context.Context, idOrName string) (*hcloud.Server, *hcloud.Response, error)
	GetByID(ctx context.Context, id int64) (*hcloud.Server, *hcloud.Response, error)
	Create(ctx context.Context, opts hcloud.ServerCreateOpts) (hcloud.ServerCreateResult, *hcloud.Response, error)
	Update(ctx context.Context, server *hcloud.Server, opts hcloud.ServerUpdateOpts) (*hcloud.Server, *hcloud.Response, error)
	DeleteWithResult(ctx context.Context, server *hcloud.Server) (*hcloud.ServerDeleteResult, *hcloud.Response, error)
}

// serverTypeAPI is the subset of *hcloud.ServerTypeClient used by Hetzner.
type serverTypeAPI interface {
	All(ctx context.Context) ([]*hcloud.ServerType, error)
}

// imageAPI is the subset of *hcloud.ImageClient used by Hetzner.
type imageAPI interface {
	AllWithOpts(ctx context.Context, opts hcloud.ImageListOpts) ([]*hcloud.Image, error)
}

// sshKeyAPI is the subset of *hcloud.SSHKeyClient used by Hetzner.
type sshKeyAPI interface {
	All(ctx context.Context) ([]*hcloud.SSHKey, error)
	Create(ctx context.Context, opts hcloud.SSHKeyCreateOpts) (*hcloud.SSHKey, *hcloud.Response, error)
}

// actionWaiter is the subset of *hcloud.ActionClient used by Hetzner.
type actionWaiter interface {
	WaitFor(ctx context.Context, actions ...*hcloud.Action) error
}

// Hetzner implements Provider against the Hetzner Cloud API.
type Hetzner struct {
	servers     serverAPI
	serverTypes serverTypeAPI
	images      imageAPI
	sshKeys     sshKeyAPI
	actions     actionWaiter
}

// NewHetzner creates a provider authenticated with token.
func NewHetzner(token, version string) (*Hetzner, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("hetzner API token is required")
	}

	client := hcloud.NewClient(
		hcloud.WithToken(token),
		hcloud.WithApplication("ephetzner", version),
	)

	return &Hetzner{
		servers:     &client.Server,
		serverTypes: &client.ServerType,
		images:      &client.Image,
		sshKeys:     &client.SSHKey,
		actions:     &client.Action,
	}, nil
}

// ListServerTypes implements Provider.
func (h *Hetzner) ListServerTypes(ctx context.Context) ([]ServerType, error) {
	types, err := h.serverTypes.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list server types: %w", err)
	}

	result := make([]ServerType, 0, len(types))
	for _, st := range types {
		if st.IsDeprecated() {
			continue
		}
		result = append(result, ServerType{
			Name:         st.Name,
			Description:  st.Description,
			Cores:        st.Cores,
			MemoryGB:     st.Memory,
			DiskGB:       st.Disk,
			Architecture: string(st.Architecture),
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ListImages implements Provider. Only non-deprecated system images are returned,
// one entry per name.
func (h *Hetzner) ListImages(ctx context.Context) ([]Image, error) {
	images, err := h.images.AllWithOpts(ctx, hcloud.ImageListOpts{
		Type: []hcloud.ImageType{hcloud.ImageTypeSystem},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	seen := make(map[string]bool)
	result := make([]Image, 0, len(images))
	for _, img := range images {
		if img.IsDeprecated() || img.Name == "" || seen[img.Name] {
			continue
		}
		seen[img.Name] = true
		result = append(result, Image{
			ID:          img.ID,
			Name:        img.Name,
			Description: img.Description,
			OSFlavor:    img.OSFlavor,
			OSVersion:   img.OSVersion,
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ListServers implements Provider.
func (h *Hetzner) ListServers(ctx context.Context, labelSelector string) ([]*Server, error) {
	servers, err := h.servers.AllWithOpts(ctx, hcloud.ServerListOpts{
		ListOpts: hcloud.ListOpts{LabelSelector: labelSelector},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}

	result := make([]*Server, 0, len(servers))
	for _, s := range servers {
		result = append(result, toServer(s))
	}
	return result, nil
}

// GetServer implements Provider.
func (h *Hetzner) GetServer(ctx context.Context, idOrName string) (*Server, error) {
	idOrName = strings.TrimSpace(idOrName)
	if idOrName == "" {
		return nil, fmt.Errorf("server identifier is required")
	}

	var (
		server *hcloud.Server
		err    error
	)
	if id, parseErr := strconv.ParseInt(idOrName, 10, 64); parseErr == nil {
		server, _, err = h.servers.GetByID(ctx, id)
	} else {
		server, _, err = h.servers.Get(ctx, idOrName)
	}
	if err != nil {
		if hcloud.IsError(err, hcloud.ErrorCodeNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrServerNotFound, idOrName)
		}
		return nil, fmt.Errorf("failed to get server %s: %w", idOrName, err)
	}
	if server == nil {
		return nil, fmt.Errorf("%w: %s", ErrServerNotFound, idOrName)
	}

	return toServer(server), nil
}

// CreateServer implements Provider. It waits for the create action to finish.
func (h *Hetzner) CreateServer(ctx context.Context, req CreateServerRequest) (*Server, error) {
	opts := hcloud.ServerCreateOpts{
		Name:       req.Name,
		ServerType: &hcloud.ServerType{Name: req.ServerType},
		Image:      &hcloud.Image{Name: req.Image},
		UserData:   req.UserData,
		Labels:     req.Labels,
	}
	for _, id := range req.SSHKeyIDs {
		opts.SSHKeys = append(opts.SSHKeys, &hcloud.SSHKey{ID: id})
	}

	result, _, err := h.servers.Create(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create server %s: %w", req.Name, err)
	}

	actions := append([]*hcloud.Action{}, result.NextActions...)
	if result.Action != nil {
		actions = append(actions, result.Action)
	}
	if len(actions) > 0 {
		log.Debug().Str("server", req.Name).Int("actions", len(actions)).Msg("Waiting for server actions")
		if err := h.actions.WaitFor(ctx, actions...); err != nil {
			return nil, fmt.Errorf("server %s did not become ready: %w", req.Name, err)
		}
	}

	if result.Server == nil {
		return nil, fmt.Errorf("failed to create server %s: empty response", req.Name)
	}
	return toServer(result.Server), nil
}

// AssignLabels implements Provider. It replaces the server's label set.
func (h *Hetzner) AssignLabels(ctx context.Context, serverID int64, labels map[string]string) error {
	_, _, err := h.servers.Update(ctx, &hcloud.Server{ID: serverID}, hcloud.ServerUpdateOpts{Labels: labels})
	if err != nil {
		return fmt.Errorf("failed to assign labels to server %d: %w", serverID, err)
	}
	return nil
}

// DeleteServer implements Provider. It waits for the delete action to finish.
func (h *Hetzner) DeleteServer(ctx context.Context, serverID int64) error {
	result, _, err := h.servers.DeleteWithResult(ctx, &hcloud.Server{ID: serverID})
	if err != nil {
		return fmt.Errorf("failed to delete server %d: %w", serverID, err)
	}

	if result != nil && result.Action != nil {
		if err := h.actions.WaitFor(ctx, result.Action); err != nil {
			return fmt.Errorf("failed waiting for deletion of server %d: %w", serverID, err)
		}
	}
	return nil
}

// EnsureSSHKey implements Provider. Keys are matched by MD5 fingerprint,
// the format Hetzner reports.
func (h *Hetzner) EnsureSSHKey(ctx context.Context, publicKey string) (*SSHKey, error) {
	publicKey = strings.TrimSpace(publicKey)
	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(publicKey))
	if err != nil {
		return nil, fmt.Errorf("invalid SSH public key: %w", err)
	}
	fingerprint := ssh.FingerprintLegacyMD5(pub)

	keys, err := h.sshKeys.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list SSH keys: %w", err)
	}
	for _, key := range keys {
		if key.Fingerprint == fingerprint {
			log.Debug().Str("name", key.Name).Str("fingerprint", fingerprint).Msg("Reusing registered SSH key")
			return toSSHKey(key), nil
		}
	}

	name, err := naming.SSHKeyName(publicKey)
	if err != nil {
		return nil, err
	}

	created, _, err := h.sshKeys.Create(ctx, hcloud.SSHKeyCreateOpts{
		Name:      name,
		PublicKey: publicKey,
		Labels:    map[string]string{LabelManagedBy: "ephetzner"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register SSH key %s: %w", name, err)
	}

	log.Info().Str("name", name).Str("fingerprint", fingerprint).Msg("Registered SSH key")
	return toSSHKey(created), nil
}

func toServer(s *hcloud.Server) *Server {
	server := &Server{
		ID:      s.ID,
		Name:    s.Name,
		Status:  string(s.Status),
		Created: s.Created,
		Labels:  s.Labels,
		IPv4:    ipString(s.PublicNet.IPv4.IP),
		IPv6:    ipString(s.PublicNet.IPv6.IP),
	}
	if s.ServerType != nil {
		server.ServerType = s.ServerType.Name
	}
	if s.Image != nil {
		server.Image = s.Image.Name
		if server.Image == "" {
			server.Image = s.Image.Description
		}
	}
	return server
}

func toSSHKey(k *hcloud.SSHKey) *SSHKey {
	return &SSHKey{ID: k.ID, Name: k.Name, Fingerprint: k.Fingerprint, PublicKey: k.PublicKey}
}

func ipString(ip net.IP) string {
	if ip == nil || ip.IsUnspecified() {
		return ""
	}
	return ip.String()
}
