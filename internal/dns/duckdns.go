// Package dns updates dynamic DNS records for provisioned servers.
package dns

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DuckDNSEndpoint is the DuckDNS update API.
	DuckDNSEndpoint = "https://www.duckdns.org/update"

	// DefaultTimeout bounds a single update request.
	DefaultTimeout = 15 * time.Second

	userAgent = "ephetzner/0.1"
)

// Provider updates an A record for host.
type Provider interface {
	UpdateRecord(ctx context.Context, host, ipv4 string) error
}

// httpDoer is the subset of *http.Client used by DuckDNS.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DuckDNS updates records through the DuckDNS HTTP API.
type DuckDNS struct {
	token    string
	endpoint string
	client   httpDoer
}

// NewDuckDNS returns a DuckDNS client using token.
func NewDuckDNS(token string) (*DuckDNS, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("duckdns token is required")
	}

	return &DuckDNS{
		token:    token,
		endpoint: DuckDNSEndpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}, nil
}

// UpdateRecord points host at ipv4. An empty ipv4 clears the record.
func (d *DuckDNS) UpdateRecord(ctx context.Context, host, ipv4 string) error {
	host = strings.TrimSpace(host)
	if host == "" {
		return fmt.Errorf("duckdns host is required")
	}

	params := url.Values{}
	params.Set("domains", host)
	params.Set("token", d.token)
	params.Set("ip", ipv4)
	if ipv4 == "" {
		params.Set("clear", "true")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build duckdns request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	log.Info().Str("host", host).Msg("Updating DuckDNS record")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("duckdns request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return fmt.Errorf("failed to read duckdns response: %w", err)
	}

	payload := strings.TrimSpace(string(body))
	if !strings.EqualFold(payload, "OK") {
		return fmt.Errorf("duckdns update failed: %s", payload)
	}

	log.Info().Str("host", host).Msg("DuckDNS record updated")
	return nil
}
