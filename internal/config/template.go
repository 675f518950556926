package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// ErrExists is returned by WriteTemplate when the target already exists.
var ErrExists = errors.New("configuration file already exists")

const template = `# ephetzner configuration
#
# Environment variables override values in this file:
#   HETZNER_API_TOKEN, DUCKDNS_TOKEN, S3_ENDPOINT, S3_ACCESS_KEY, S3_SECRET_KEY
#   EPHETZNER_SSH_USER, EPHETZNER_SSH_KEY_PATH, EPHETZNER_SSH_PASSWORD

# DuckDNS subdomain used when none is given on the command line.
duckdns_subdomain: ""

# S3-compatible endpoint for backups. Leave empty for AWS.
s3_endpoint: ""
s3_region: us-east-1

ssh:
  user: root
  key_path: ""
  # authorized_keys line installed on new servers
  public_key: ""
  # Verify host keys against this file. Empty accepts any host key.
  known_hosts: ""
  timeout_seconds: 120

secrets:
  hetzner_api_token: ""
  duckdns_token: ""
  s3_access_key: ""
  s3_secret_key: ""
`

// Template returns a commented configuration skeleton.
func Template() string {
	return template
}

// WriteTemplate writes Template to path with 0600 permissions.
// An existing file is only replaced when overwrite is set.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to check %s: %w", path, err)
		}
	}
	return writePrivate(path, []byte(template))
}

// Masked returns a copy with secrets replaced by a short hint.
func (c *AppConfig) Masked() *AppConfig {
	out := *c
	out.SSH.Password = ""
	out.Secrets = SecretsConfig{
		HetznerAPIToken: mask(c.Secrets.HetznerAPIToken),
		DuckDNSToken:    mask(c.Secrets.DuckDNSToken),
		S3AccessKey:     mask(c.Secrets.S3AccessKey),
		S3SecretKey:     mask(c.Secrets.S3SecretKey),
	}
	return &out
}

// mask keeps the last four characters of long secrets.
func mask(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "****"
	default:
		return "****" + secret[len(secret)-4:]
	}
}
