// Package cloud describes the servers ephetzner manages and the provider
// operations it needs. Hetzner is the only implementation.
package cloud

import (
	"context"
	"errors"
	"time"
)

const (
	// LabelType marks servers created by ephetzner.
	LabelType = "Type"
	// LabelProject groups servers by project.
	LabelProject = "Project"

	// TypeEphemeral is the LabelType value of every managed server.
	TypeEphemeral = "Ephemeral"
	// DefaultProject is used when no project is given.
	DefaultProject = "default"

	// EphemeralSelector selects every managed server.
	EphemeralSelector = LabelType + "=" + TypeEphemeral
)

// ErrServerNotFound is returned by GetServer when no server matches.
var ErrServerNotFound = errors.New("server not found")

// Server is a provisioned virtual machine.
type Server struct {
	ID         int64             `json:"id" yaml:"id"`
	Name       string            `json:"name" yaml:"name"`
	Status     string            `json:"status,omitempty" yaml:"status,omitempty"`
	ServerType string            `json:"serverType" yaml:"serverType"`
	Image      string            `json:"image,omitempty" yaml:"image,omitempty"`
	IPv4       string            `json:"ipv4,omitempty" yaml:"ipv4,omitempty"`
	IPv6       string            `json:"ipv6,omitempty" yaml:"ipv6,omitempty"`
	Created    time.Time         `json:"created" yaml:"created"`
	Labels     map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// Age returns how long the server has existed, or zero if unknown.
func (s *Server) Age(now time.Time) time.Duration {
	if s.Created.IsZero() || now.Before(s.Created) {
		return 0
	}
	return now.Sub(s.Created)
}

// ServerType is a purchasable machine size.
type ServerType struct {
	Name         string  `json:"name" yaml:"name"`
	Description  string  `json:"description,omitempty" yaml:"description,omitempty"`
	Cores        int     `json:"cores" yaml:"cores"`
	MemoryGB     float32 `json:"memoryGB" yaml:"memoryGB"`
	DiskGB       int     `json:"diskGB" yaml:"diskGB"`
	Architecture string  `json:"architecture,omitempty" yaml:"architecture,omitempty"`
}

// Image is an operating system image.
type Image struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	OSFlavor    string `json:"osFlavor,omitempty" yaml:"osFlavor,omitempty"`
	OSVersion   string `json:"osVersion,omitempty" yaml:"osVersion,omitempty"`
}

// SSHKey is a public key registered with the provider.
type SSHKey struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
	PublicKey   string `json:"publicKey" yaml:"publicKey"`
}

// CreateServerRequest holds everything needed to create a server.
type CreateServerRequest struct {
	Name       string
	ServerType string
	Image      string
	SSHKeyIDs  []int64
	Labels     map[string]string
	UserData   string
}

// EphemeralLabels returns the labels applied to every managed server.
func EphemeralLabels(project string) map[string]string {
	if project == "" {
		project = DefaultProject
	}
	return map[string]string{
		LabelType:    TypeEphemeral,
		LabelProject: project,
	}
}

// Provider is the cloud API surface used by ephetzner.
type Provider interface {
	ListServerTypes(ctx context.Context) ([]ServerType, error)
	ListImages(ctx context.Context) ([]Image, error)
	ListServers(ctx context.Context, labelSelector string) ([]*Server, error)

	// GetServer looks a server up by numeric ID, or by name otherwise.
	GetServer(ctx context.Context, idOrName string) (*Server, error)

	CreateServer(ctx context.Context, req CreateServerRequest) (*Server, error)
	AssignLabels(ctx context.Context, serverID int64, labels map[string]string) error
	DeleteServer(ctx context.Context, serverID int64) error

	// EnsureSSHKey returns the registered key matching publicKey, creating it if needed.
	EnsureSSHKey(ctx context.Context, publicKey string) (*SSHKey, error)
}
