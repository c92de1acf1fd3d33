package cli

import "time"

// formatExpiry печатает время истечения в UTC
func formatExpiry(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.UTC().Format(time.RFC3339)
}
