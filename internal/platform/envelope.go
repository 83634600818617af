package platform

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Providers nest the real payload one or two levels deep, and the path varies
// across endpoint versions. Unwrapping is table-driven: each endpoint declares
// an ordered list of field paths and the first path that resolves to a
// non-null value wins.

// unwrapEnvelope walks the ordered candidate paths through the JSON envelope.
func unwrapEnvelope(body []byte, paths [][]string) (json.RawMessage, bool) {
	for _, path := range paths {
		if raw, ok := digPath(body, path); ok {
			return raw, true
		}
	}
	return nil, false
}

// digPath descends one field path, level by level.
func digPath(body []byte, path []string) (json.RawMessage, bool) {
	current := json.RawMessage(body)
	for _, field := range path {
		var level map[string]json.RawMessage
		if err := json.Unmarshal(current, &level); err != nil {
			return nil, false
		}
		next, ok := level[field]
		if !ok || isJSONNull(next) {
			return nil, false
		}
		current = next
	}
	return current, true
}

func isJSONNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// firstString returns the first non-empty value of an ordered fallback chain
// (preferred, legacy, default).
func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// firstInt64 returns the first non-zero value of an ordered fallback chain.
func firstInt64(vals ...int64) int64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

// looseString tolerates providers that switch a field between JSON string and
// number across endpoint versions (cursors and counters both do this).
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = ""
		return nil
	}
	if trimmed[0] == '"' {
		var v string
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*s = looseString(n.String())
	return nil
}

func (s looseString) String() string { return string(s) }

// Int64 parses the value as an integer, returning 0 when absent or invalid.
func (s looseString) Int64() int64 {
	n, err := strconv.ParseInt(string(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
