// Package cache persists provider catalog data between runs.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	// EnvCacheDir overrides the cache directory.
	EnvCacheDir = "EPHETZNER_CACHE_DIR"

	// DefaultTTL is how long catalog entries stay fresh.
	DefaultTTL = time.Hour

	dirName = "hetzner-ephemeral"
	fileExt = ".yaml"
)

// entry is the on-disk form of a cached value.
type entry struct {
	StoredAt time.Time `yaml:"stored_at"`
	Value    yaml.Node `yaml:"value"`
}

// Store is a directory of YAML cache files.
type Store struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// New returns a store rooted at dir. A non-positive ttl means DefaultTTL.
func New(dir string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{dir: dir, ttl: ttl, now: time.Now}
}

// DefaultDir returns $EPHETZNER_CACHE_DIR or ~/.cache/hetzner-ephemeral.
func DefaultDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(EnvCacheDir)); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".cache", dirName), nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// Read decodes the value stored under key into dst. It returns false when
// the entry is missing, expired or unreadable.
func (s *Store) Read(key string, dst any) (bool, error) {
	path, err := s.path(key)
	if err != nil {
		return false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}

	var e entry
	if err := yaml.Unmarshal(data, &e); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("Ignoring corrupt cache entry")
		return false, nil
	}

	if s.now().Sub(e.StoredAt) > s.ttl {
		log.Debug().Str("key", key).Time("stored_at", e.StoredAt).Msg("Cache entry expired")
		return false, nil
	}

	if err := e.Value.Decode(dst); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("Ignoring undecodable cache entry")
		return false, nil
	}

	return true, nil
}

// Write stores value under key.
func (s *Store) Write(key string, value any) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	var e entry
	e.StoredAt = s.now().UTC()
	if err := e.Value.Encode(value); err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}

	data, err := yaml.Marshal(&e)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry %s: %w", key, err)
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	return nil
}

// Clear removes every cache file. A missing directory is not an error.
func (s *Store) Clear() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			log.Warn().Err(err).Str("file", e.Name()).Msg("Failed to remove cache file")
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *Store) path(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	return filepath.Join(s.dir, key+fileExt), nil
}
