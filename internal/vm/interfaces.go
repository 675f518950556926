package vm

import (
	"context"

	"github.com/jbweber/ephetzner/internal/backup"
	"github.com/jbweber/ephetzner/internal/cloud"
)

// serverProvider defines the cloud operations needed for server management.
//
// In production, this is satisfied by *cloud.Hetzner.
// In tests, this is satisfied by mock implementations.
type serverProvider interface {
	// ListServers lists servers matching a label selector
	ListServers(ctx context.Context, labelSelector string) ([]*cloud.Server, error)

	// GetServer looks up a server by numeric ID or name
	GetServer(ctx context.Context, idOrName string) (*cloud.Server, error)

	// CreateServer creates a server and waits until it is ready
	CreateServer(ctx context.Context, req cloud.CreateServerRequest) (*cloud.Server, error)

	// AssignLabels replaces the labels of a server
	AssignLabels(ctx context.Context, serverID int64, labels map[string]string) error

	// DeleteServer deletes a server and waits until it is gone
	DeleteServer(ctx context.Context, serverID int64) error

	// EnsureSSHKey returns the registered key matching publicKey, creating it if needed
	EnsureSSHKey(ctx context.Context, publicKey string) (*cloud.SSHKey, error)
}

// catalogProvider lists what can be provisioned.
//
// In production, this is satisfied by *cloud.Hetzner.
type catalogProvider interface {
	ListServerTypes(ctx context.Context) ([]cloud.ServerType, error)
	ListImages(ctx context.Context) ([]cloud.Image, error)
}

// dnsUpdater points a DNS name at a server.
//
// In production, this is satisfied by *dns.DuckDNS.
type dnsUpdater interface {
	UpdateRecord(ctx context.Context, host, ipv4 string) error
}

// backupRunner archives a server directory and checks the stored copy.
//
// In production, this is satisfied by *backup.Service.
type backupRunner interface {
	CreateBackup(ctx context.Context, req backup.Request) (*backup.Result, error)
	VerifyBackup(ctx context.Context, result backup.Result) (bool, error)
}

// catalogCache stores catalog listings between runs.
//
// In production, this is satisfied by *cache.Store.
type catalogCache interface {
	Read(key string, dst any) (bool, error)
	Write(key string, value any) error
}
