package output

import (
	"encoding/json"
	"fmt"

	"github.com/jbweber/ephetzner/internal/cloud"
)

// JSONFormatter formats servers as JSON.
type JSONFormatter struct{}

// FormatServer formats a single server as JSON.
func (f *JSONFormatter) FormatServer(s *cloud.Server) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal server to JSON: %w", err)
	}

	return string(data) + "\n", nil
}

// FormatServerList formats a list of servers as a JSON array.
func (f *JSONFormatter) FormatServerList(servers []*cloud.Server) (string, error) {
	if len(servers) == 0 {
		return "[]\n", nil
	}

	data, err := json.MarshalIndent(servers, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal servers to JSON: %w", err)
	}

	return string(data) + "\n", nil
}
