package vm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jbweber/ephetzner/internal/cloud"
	"github.com/jbweber/ephetzner/internal/config"
)

// Cache keys for catalog listings.
const (
	cacheKeyServerTypes = "server_types"
	cacheKeyImages      = "images"
)

// List lists servers labeled Type=Ephemeral, sorted by name.
func List(ctx context.Context, cfg *config.AppConfig) ([]*cloud.Server, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	return listWithDeps(ctx, provider)
}

// listWithDeps lists servers with injected dependencies.
func listWithDeps(ctx context.Context, sp serverProvider) ([]*cloud.Server, error) {
	servers, err := sp.ListServers(ctx, cloud.EphemeralSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}

	sort.Slice(servers, func(i, j int) bool { return servers[i].Name < servers[j].Name })
	return servers, nil
}

// Adopt labels an existing server as ephemeral so List and Delete see it.
// Existing labels are kept; Type and Project are overwritten.
func Adopt(ctx context.Context, cfg *config.AppConfig, idOrName, project string) (*cloud.Server, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	return adoptWithDeps(ctx, idOrName, project, provider)
}

func adoptWithDeps(ctx context.Context, idOrName, project string, sp serverProvider) (*cloud.Server, error) {
	server, err := sp.GetServer(ctx, idOrName)
	if err != nil {
		return nil, err
	}

	labels := make(map[string]string, len(server.Labels)+2)
	for k, v := range server.Labels {
		labels[k] = v
	}
	for k, v := range cloud.EphemeralLabels(strings.TrimSpace(project)) {
		labels[k] = v
	}

	if err := sp.AssignLabels(ctx, server.ID, labels); err != nil {
		return nil, err
	}

	log.Info().Str("server", server.Name).Int64("server_id", server.ID).Msg("Server labeled as ephemeral")
	server.Labels = labels
	return server, nil
}

// ServerTypes lists purchasable server types. Results are served from c
// while fresh; c may be nil.
func ServerTypes(ctx context.Context, cfg *config.AppConfig, c catalogCache) ([]cloud.ServerType, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	return serverTypesWithDeps(ctx, provider, c)
}

func serverTypesWithDeps(ctx context.Context, cp catalogProvider, c catalogCache) ([]cloud.ServerType, error) {
	return cachedList(c, cacheKeyServerTypes, func() ([]cloud.ServerType, error) {
		return cp.ListServerTypes(ctx)
	})
}

// Images lists system images. Results are served from c while fresh; c may be nil.
func Images(ctx context.Context, cfg *config.AppConfig, c catalogCache) ([]cloud.Image, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	return imagesWithDeps(ctx, provider, c)
}

func imagesWithDeps(ctx context.Context, cp catalogProvider, c catalogCache) ([]cloud.Image, error) {
	return cachedList(c, cacheKeyImages, func() ([]cloud.Image, error) {
		return cp.ListImages(ctx)
	})
}

// cachedList returns the cached value under key, or calls fetch and caches
// its result. Cache failures are logged and never returned.
func cachedList[T any](c catalogCache, key string, fetch func() ([]T, error)) ([]T, error) {
	if c != nil {
		var cached []T
		ok, err := c.Read(key, &cached)
		if err != nil {
			log.Debug().Err(err).Str("key", key).Msg("Cache read failed")
		}
		if ok && len(cached) > 0 {
			log.Debug().Str("key", key).Int("count", len(cached)).Msg("Using cached catalog")
			return cached, nil
		}
	}

	items, err := fetch()
	if err != nil {
		return nil, err
	}

	if c != nil && len(items) > 0 {
		if err := c.Write(key, items); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to write cache")
		}
	}
	return items, nil
}
