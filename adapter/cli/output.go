package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// TimeLayouts are the accepted --start/--end formats. Values without a zone are UTC.
var TimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseTime parses a timestamp flag in one of TimeLayouts.
func ParseTime(flag, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range TimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --%s %q: use RFC3339 or YYYY-MM-DDTHH:MM", flag, value)
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatTime renders t for table output.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}

// Rule prints a separator line.
func Rule(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("-", 40))
}
