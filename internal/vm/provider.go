package vm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jbweber/ephetzner/internal/backup"
	"github.com/jbweber/ephetzner/internal/cloud"
	"github.com/jbweber/ephetzner/internal/config"
	"github.com/jbweber/ephetzner/internal/dns"
	"github.com/jbweber/ephetzner/internal/objectstore"
	"github.com/jbweber/ephetzner/internal/remote"
)

// Version is reported to the Hetzner API as the client version.
var Version = "dev"

// ErrMissingToken is returned when no Hetzner API token is configured.
var ErrMissingToken = errors.New("hetzner API token is not configured (set secrets.hetzner_api_token or HETZNER_API_TOKEN)")

func newProvider(cfg *config.AppConfig) (*cloud.Hetzner, error) {
	if cfg.Secrets.HetznerAPIToken == "" {
		return nil, ErrMissingToken
	}
	return cloud.NewHetzner(cfg.Secrets.HetznerAPIToken, Version)
}

// newDNSUpdater returns nil when no DuckDNS token is configured.
func newDNSUpdater(cfg *config.AppConfig) dnsUpdater {
	if cfg.Secrets.DuckDNSToken == "" {
		return nil
	}
	d, err := dns.NewDuckDNS(cfg.Secrets.DuckDNSToken)
	if err != nil {
		log.Warn().Err(err).Msg("DuckDNS disabled")
		return nil
	}
	return d
}

// newBackupService wires SSH and S3 from cfg. Without storage credentials
// the service has no store and every backup fails its preconditions.
func newBackupService(ctx context.Context, cfg *config.AppConfig) (*backup.Service, error) {
	var store objectstore.Store
	if cfg.HasStorageCredentials() {
		s3Store, err := objectstore.NewS3Store(ctx, objectstore.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.Secrets.S3AccessKey,
			SecretKey: cfg.Secrets.S3SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create object storage client: %w", err)
		}
		store = s3Store
	}

	return backup.NewService(remote.SSHDialer{}, store, backup.Options{
		Connection: backup.ConnectionDefaults{
			User:           cfg.SSH.User,
			KeyPath:        cfg.SSH.KeyPath,
			Password:       cfg.SSH.Password,
			KnownHostsPath: cfg.SSH.KnownHosts,
		},
		Timeout: time.Duration(cfg.SSH.TimeoutSeconds) * time.Second,
	}), nil
}
