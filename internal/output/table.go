package output

import (
	"bytes"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/jbweber/ephetzner/internal/cloud"
)

// TableFormatter formats servers as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatServer formats a single server as a table row.
func (f *TableFormatter) FormatServer(s *cloud.Server) (string, error) {
	return f.FormatServerList([]*cloud.Server{s})
}

// FormatServerList formats a list of servers as a table.
func (f *TableFormatter) FormatServerList(servers []*cloud.Server) (string, error) {
	if len(servers) == 0 {
		return "No servers found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tID\tTYPE\tIPV4\tSTATUS\tPROJECT\tAGE")
	}

	now := time.Now()
	for _, s := range servers {
		age := "-"
		if !s.Created.IsZero() {
			age = formatAge(now.Sub(s.Created))
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Name,
			strconv.FormatInt(s.ID, 10),
			dash(s.ServerType),
			dash(s.IPv4),
			dash(s.Status),
			dash(s.Labels[cloud.LabelProject]),
			age)
	}

	_ = w.Flush()
	return buf.String(), nil
}

// Row is one line of a key/value summary.
type Row struct {
	Key   string
	Value string
}

// RenderSummary renders rows as an aligned two-column table under title.
func RenderSummary(title string, rows []Row) string {
	var buf bytes.Buffer
	if title != "" {
		buf.WriteString(title + "\n")
	}

	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "  %s\t%s\n", r.Key, dash(r.Value))
	}
	_ = w.Flush()

	return buf.String()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatAge formats a duration as a human-readable age string.
// Examples: "5s", "2m", "3h", "4d", "2w", "1y"
func formatAge(d time.Duration) string {
	if d < 0 {
		return "unknown"
	}

	seconds := int(d.Seconds())

	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}

	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}

	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh", hours)
	}

	days := hours / 24
	if days < 7 {
		return fmt.Sprintf("%dd", days)
	}

	weeks := days / 7
	// Less than ~2 months (8 weeks)
	if weeks < 8 {
		return fmt.Sprintf("%dw", weeks)
	}

	years := days / 365
	if years > 0 {
		return fmt.Sprintf("%dy", years)
	}

	return fmt.Sprintf("%dd", days)
}
