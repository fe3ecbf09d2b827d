package parser

import "time"

// FormatRFC3339 renders t as a second-precision UTC RFC3339 timestamp, the
// format the embedded client parses.
func FormatRFC3339(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
