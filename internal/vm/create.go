package vm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jbweber/ephetzner/internal/cloud"
	"github.com/jbweber/ephetzner/internal/cloudinit"
	"github.com/jbweber/ephetzner/internal/config"
	"github.com/jbweber/ephetzner/internal/naming"
)

// CreateOptions describes a server to provision.
type CreateOptions struct {
	Name       string
	Project    string
	ServerType string
	Image      string

	// SSHPublicKey is an authorized_keys line registered with Hetzner and
	// installed for root through user-data.
	SSHPublicKey string

	// Script is an optional first-boot script.
	Script *cloudinit.Script

	// DuckDNS requests a DNS update once the server has an address.
	DuckDNS bool
	// DuckDNSHost is the subdomain to update. Empty means the server name.
	DuckDNSHost string
}

// Create provisions a server labeled as ephemeral.
//
// This orchestrates the entire creation process:
//  1. Register the SSH key (if given)
//  2. Compose user-data from the key and script
//  3. Create the server with Type/Project labels and wait for it
//  4. Update DuckDNS (if requested)
//
// A failed DuckDNS update is logged and does not fail the call.
func Create(ctx context.Context, cfg *config.AppConfig, opts CreateOptions) (*cloud.Server, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	return createWithDeps(ctx, opts, provider, newDNSUpdater(cfg))
}

// createWithDeps creates a server with injected dependencies.
// A nil dnsUpdater means DuckDNS is not configured.
func createWithDeps(ctx context.Context, opts CreateOptions, sp serverProvider, du dnsUpdater) (*cloud.Server, error) {
	opts.Name = strings.TrimSpace(opts.Name)
	if opts.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if opts.ServerType == "" {
		return nil, fmt.Errorf("server type is required")
	}
	if opts.Image == "" {
		return nil, fmt.Errorf("image is required")
	}

	project := strings.TrimSpace(opts.Project)
	if project == "" {
		project = cloud.DefaultProject
	}

	logger := log.With().
		Str("request_id", uuid.NewString()).
		Str("server", opts.Name).
		Logger()

	// Step 1: Register SSH key
	var keyIDs []int64
	if opts.SSHPublicKey != "" {
		logger.Info().Msg("Ensuring SSH key is registered")
		key, err := sp.EnsureSSHKey(ctx, opts.SSHPublicKey)
		if err != nil {
			return nil, fmt.Errorf("failed to register SSH key: %w", err)
		}
		keyIDs = append(keyIDs, key.ID)
	}

	// Step 2: Compose user-data
	userData := cloudinit.ComposeUserData(opts.Script, opts.SSHPublicKey)

	// Step 3: Create server
	logger.Info().
		Str("server_type", opts.ServerType).
		Str("image", opts.Image).
		Str("project", project).
		Msg("Creating server")

	server, err := sp.CreateServer(ctx, cloud.CreateServerRequest{
		Name:       opts.Name,
		ServerType: opts.ServerType,
		Image:      opts.Image,
		SSHKeyIDs:  keyIDs,
		Labels:     cloud.EphemeralLabels(project),
		UserData:   userData,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info().Int64("server_id", server.ID).Str("ipv4", server.IPv4).Msg("Server created")

	// Step 4: DuckDNS (best effort)
	if opts.DuckDNS {
		updateDNS(ctx, du, naming.DNSHost(opts.DuckDNSHost, server.Name), server)
	}

	return server, nil
}

func updateDNS(ctx context.Context, du dnsUpdater, host string, server *cloud.Server) {
	if du == nil {
		log.Warn().Str("server", server.Name).Msg("DuckDNS requested but no token is configured, skipping")
		return
	}
	if host == "" {
		log.Warn().Str("server", server.Name).Msg("DuckDNS host is empty, skipping")
		return
	}

	if err := du.UpdateRecord(ctx, host, server.IPv4); err != nil {
		log.Warn().Err(err).Str("host", host).Msg("DuckDNS update failed")
	}
}
