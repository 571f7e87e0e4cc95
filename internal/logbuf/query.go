package logbuf

import (
	"strings"
	"time"
)

// Query selects entries from a Buffer. Zero fields do not filter.
type Query struct {
	// Type keeps only one stream unless it is All or empty.
	Type StreamType
	// After keeps entries whose timestamp is strictly greater.
	After string
	// Filter keeps entries whose data contains it, ignoring case.
	Filter string
	// Count keeps only the last Count matches when positive.
	Count int
}

// Match reports whether e passes the type, After and substring stages of q.
// Count is not considered.
func (q Query) Match(e Entry) bool {
	if q.Type != "" && q.Type != All && e.Type != q.Type {
		return false
	}
	if q.After != "" && e.Timestamp <= q.After {
		return false
	}
	if q.Filter != "" && !strings.Contains(strings.ToLower(e.Data), strings.ToLower(q.Filter)) {
		return false
	}
	return true
}

// Filter applies q to entries in a fixed order: stream type, then the
// After bound, then the substring filter, then the trailing count.
// The input slice is not modified.
func Filter(entries []Entry, q Query) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if q.Match(e) {
			out = append(out, e)
		}
	}
	if q.Count > 0 && len(out) > q.Count {
		out = out[len(out)-q.Count:]
	}
	return out
}

// NormalizeAfter rewrites an RFC 3339 bound into TimestampFormat so the
// lexicographic comparison in Query.After stays chronological. Anything
// else is returned trimmed and compared verbatim.
func NormalizeAfter(after string) string {
	after = strings.TrimSpace(after)
	if after == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339Nano, after)
	if err != nil {
		return after
	}
	return t.UTC().Truncate(time.Millisecond).Format(TimestampFormat)
}
