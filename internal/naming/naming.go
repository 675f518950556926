// Package naming holds the naming conventions shared by the provisioning
// and deletion flows: backup archive names, remote staging paths, SSH key
// names and DNS host names.
package naming

import (
	"fmt"
	"hash/fnv"
	"path"
	"regexp"
	"strings"

	"golang.org/x/crypto/ssh"
)

// RemoteStagingDir is where archives are written on the server before transfer.
const RemoteStagingDir = "/tmp"

// SSHKeyPrefix prefixes the names of SSH keys registered by ephetzner.
const SSHKeyPrefix = "ephetzner"

// ArchiveName returns the backup archive file name for a server.
// Format: {serverName}-backup.tar.gz
//
// Example: "srv-1" → "srv-1-backup.tar.gz"
func ArchiveName(serverName string) string {
	return fmt.Sprintf("%s-backup.tar.gz", serverName)
}

// RemoteArchivePath returns the path of the archive on the remote host.
// Format: /tmp/{archiveName}
func RemoteArchivePath(archiveName string) string {
	return path.Join(RemoteStagingDir, path.Base(archiveName))
}

// SSHKeyName derives a stable key name from an authorized_keys line.
// Format: ephetzner-{16 hex chars}
//
// The suffix is an FNV-64a hash of the decoded key blob. It only keeps
// names unique and stable; it is not a fingerprint and must not be used
// to decide whether two keys are the same.
func SSHKeyName(authorizedKey string) (string, error) {
	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(authorizedKey))
	if err != nil {
		return "", fmt.Errorf("invalid SSH public key: %w", err)
	}

	h := fnv.New64a()
	_, _ = h.Write(pub.Marshal())
	return fmt.Sprintf("%s-%016x", SSHKeyPrefix, h.Sum64()), nil
}

var dnsLabelInvalid = regexp.MustCompile(`[^a-z0-9-]+`)

// DNSHost returns the DuckDNS subdomain for a server.
// An explicit host wins; otherwise the server name is lowercased and
// reduced to DNS label characters.
//
// Example: ("", "Lab_42") → "lab-42"
func DNSHost(explicit, serverName string) string {
	host := strings.TrimSpace(explicit)
	if host == "" {
		host = serverName
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".duckdns.org")
	host = dnsLabelInvalid.ReplaceAllString(host, "-")
	return strings.Trim(host, "-")
}
