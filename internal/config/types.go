// Package config loads and saves the ephetzner configuration file and
// applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigPath overrides the configuration file location.
	EnvConfigPath = "EPHETZNER_CONFIG_PATH"

	// DefaultSSHUser is used when nothing else names a remote user.
	DefaultSSHUser = "root"
	// DefaultSSHTimeoutSeconds bounds SSH connection and command execution.
	DefaultSSHTimeoutSeconds = 120
	// DefaultS3Region is used for request signing when no region is set.
	DefaultS3Region = "us-east-1"
)

// Environment variables that override file values. Blank values are ignored.
const (
	EnvHetznerToken = "HETZNER_API_TOKEN"
	EnvDuckDNSToken = "DUCKDNS_TOKEN"
	EnvS3Endpoint   = "S3_ENDPOINT"
	EnvS3AccessKey  = "S3_ACCESS_KEY"
	EnvS3SecretKey  = "S3_SECRET_KEY"
	EnvSSHUser      = "EPHETZNER_SSH_USER"
	EnvSSHKeyPath   = "EPHETZNER_SSH_KEY_PATH"
	EnvSSHPassword  = "EPHETZNER_SSH_PASSWORD"
)

// AppConfig is the complete ephetzner configuration.
type AppConfig struct {
	DuckDNSSubdomain string        `yaml:"duckdns_subdomain,omitempty"`
	S3Endpoint       string        `yaml:"s3_endpoint,omitempty"`
	S3Region         string        `yaml:"s3_region,omitempty"`
	SSH              SSHConfig     `yaml:"ssh"`
	Secrets          SecretsConfig `yaml:"secrets"`
}

// SSHConfig holds defaults for remote connections and new servers.
type SSHConfig struct {
	User           string `yaml:"user,omitempty"`
	KeyPath        string `yaml:"key_path,omitempty"`
	PublicKey      string `yaml:"public_key,omitempty"` // authorized_keys line installed on new servers
	KnownHosts     string `yaml:"known_hosts,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`

	// Password is only read from the environment, never from or to the file.
	Password string `yaml:"-"`
}

// SecretsConfig holds credentials. The file is written with 0600 permissions.
type SecretsConfig struct {
	HetznerAPIToken string `yaml:"hetzner_api_token,omitempty"`
	DuckDNSToken    string `yaml:"duckdns_token,omitempty"`
	S3AccessKey     string `yaml:"s3_access_key,omitempty"`
	S3SecretKey     string `yaml:"s3_secret_key,omitempty"`
}

// Normalize trims user input and fills defaults.
// This is called automatically by LoadFromFile before validation.
func (c *AppConfig) Normalize() {
	c.DuckDNSSubdomain = strings.TrimSpace(c.DuckDNSSubdomain)
	c.S3Endpoint = strings.TrimSpace(c.S3Endpoint)
	c.S3Region = strings.TrimSpace(c.S3Region)
	c.SSH.User = strings.TrimSpace(c.SSH.User)
	c.SSH.KeyPath = strings.TrimSpace(c.SSH.KeyPath)
	c.SSH.PublicKey = strings.TrimSpace(c.SSH.PublicKey)
	c.SSH.KnownHosts = strings.TrimSpace(c.SSH.KnownHosts)
	c.Secrets.HetznerAPIToken = strings.TrimSpace(c.Secrets.HetznerAPIToken)
	c.Secrets.DuckDNSToken = strings.TrimSpace(c.Secrets.DuckDNSToken)
	c.Secrets.S3AccessKey = strings.TrimSpace(c.Secrets.S3AccessKey)
	c.Secrets.S3SecretKey = strings.TrimSpace(c.Secrets.S3SecretKey)

	if c.SSH.User == "" {
		c.SSH.User = DefaultSSHUser
	}
	if c.SSH.TimeoutSeconds <= 0 {
		c.SSH.TimeoutSeconds = DefaultSSHTimeoutSeconds
	}
	if c.S3Region == "" {
		c.S3Region = DefaultS3Region
	}
}

// Validate checks the configuration for errors.
// Missing credentials are not errors here; each command checks what it needs.
func (c *AppConfig) Validate() error {
	if c.S3Endpoint != "" {
		u, err := url.Parse(c.S3Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("s3_endpoint must be an http(s) URL, got %q", c.S3Endpoint)
		}
	}

	// ParseAuthorizedKey validates the key format and can parse all standard SSH key types
	if c.SSH.PublicKey != "" {
		if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(c.SSH.PublicKey)); err != nil {
			return fmt.Errorf("ssh.public_key is not a valid SSH public key: %w", err)
		}
	}

	if c.SSH.TimeoutSeconds < 0 {
		return fmt.Errorf("ssh.timeout_seconds must be >= 0, got %d", c.SSH.TimeoutSeconds)
	}

	return nil
}

// ApplyEnv overrides file values with non-blank environment variables.
func (c *AppConfig) ApplyEnv() {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	override(&c.Secrets.HetznerAPIToken, EnvHetznerToken)
	override(&c.Secrets.DuckDNSToken, EnvDuckDNSToken)
	override(&c.S3Endpoint, EnvS3Endpoint)
	override(&c.Secrets.S3AccessKey, EnvS3AccessKey)
	override(&c.Secrets.S3SecretKey, EnvS3SecretKey)
	override(&c.SSH.User, EnvSSHUser)
	override(&c.SSH.KeyPath, EnvSSHKeyPath)

	// Passwords may legitimately carry surrounding spaces.
	if v := os.Getenv(EnvSSHPassword); v != "" {
		c.SSH.Password = v
	}
}

// HasStorageCredentials reports whether both S3 keys are set.
func (c *AppConfig) HasStorageCredentials() bool {
	return c.Secrets.S3AccessKey != "" && c.Secrets.S3SecretKey != ""
}

// DefaultPath returns $EPHETZNER_CONFIG_PATH or ~/.config/ephetzner/config.yaml.
func DefaultPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return filepath.Join(dir, "ephetzner", "config.yaml"), nil
}

// LoadFromFile loads a configuration from a YAML file without env overrides.
func LoadFromFile(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config AppConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Normalize user input before validation
	config.Normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Load reads the file at path (or DefaultPath when empty) and applies env
// overrides. A missing file yields a config built from the environment alone.
func Load(path string) (*AppConfig, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	config, err := LoadFromFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		config = &AppConfig{}
	}

	config.ApplyEnv()
	config.Normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// Save writes the configuration to path with 0600 permissions,
// creating parent directories as needed.
func Save(config *AppConfig, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}
	return writePrivate(path, data)
}

func writePrivate(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	// WriteFile keeps the mode of an existing file
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	return nil
}
