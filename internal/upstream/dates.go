package upstream

import "time"

// dateLayouts are the timestamp formats the provider has been observed
// emitting, in rough order of frequency.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"Mon Jan 02 15:04:05 -0700 2006",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
}

// NormalizeDate converts a provider date string to RFC3339 UTC. When no
// known layout matches, the raw string is returned untouched: a date is
// never fabricated for unparseable input.
func NormalizeDate(s string) string {
	if s == "" {
		return s
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return s
}

// ParseDate parses a provider date string into a time.Time. The zero
// time signals an unparseable value; the validator treats that as a
// missing timestamp.
func ParseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
