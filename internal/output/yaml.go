package output

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/ephetzner/internal/cloud"
)

// YAMLFormatter formats servers as YAML.
type YAMLFormatter struct{}

// FormatServer formats a single server as YAML.
func (f *YAMLFormatter) FormatServer(s *cloud.Server) (string, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal server to YAML: %w", err)
	}

	return string(data), nil
}

// FormatServerList formats a list of servers as YAML.
// Outputs as a YAML stream (multiple documents separated by ---).
func (f *YAMLFormatter) FormatServerList(servers []*cloud.Server) (string, error) {
	if len(servers) == 0 {
		return "", nil
	}

	var buf bytes.Buffer

	for i, s := range servers {
		data, err := yaml.Marshal(s)
		if err != nil {
			return "", fmt.Errorf("failed to marshal server %s to YAML: %w", s.Name, err)
		}

		if i > 0 {
			buf.WriteString("---\n")
		}

		buf.Write(data)
	}

	return buf.String(), nil
}
