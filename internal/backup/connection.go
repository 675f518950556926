package backup

import (
	"strings"

	"github.com/jbweber/ephetzner/internal/cloud"
	"github.com/jbweber/ephetzner/internal/remote"
)

// Server labels that override connection defaults.
const (
	LabelSSHUser    = "ssh_user"
	LabelSSHKeyPath = "ssh_key_path"
)

// ConnectionDefaults are used when server labels do not say otherwise.
type ConnectionDefaults struct {
	User           string
	KeyPath        string
	Password       string
	KnownHostsPath string
}

// credentialsFor resolves credentials: server label, then default, then "root" for the user.
func (d ConnectionDefaults) credentialsFor(server *cloud.Server) remote.Credentials {
	creds := remote.Credentials{
		User:           strings.TrimSpace(d.User),
		KeyPath:        strings.TrimSpace(d.KeyPath),
		Password:       d.Password,
		KnownHostsPath: d.KnownHostsPath,
	}

	if server != nil {
		if v := strings.TrimSpace(server.Labels[LabelSSHUser]); v != "" {
			creds.User = v
		}
		if v := strings.TrimSpace(server.Labels[LabelSSHKeyPath]); v != "" {
			creds.KeyPath = v
		}
	}

	if creds.User == "" {
		creds.User = "root"
	}
	return creds
}
