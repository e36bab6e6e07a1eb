package params

import (
	"slices"
	"strconv"
	"strings"
)

// Values is a generic key-value store. Each key holds one or more string
// fields; a key with several fields is a vector variable.
//
// Reads never fail: a missing key or an unparsable field yields the caller's
// default.
type Values struct {
	entries map[string][]string
}

// NewValues creates an empty store.
func NewValues() *Values {
	return &Values{entries: make(map[string][]string)}
}

// Set replaces the fields stored under key.
func (v *Values) Set(key string, fields ...string) {
	v.entries[key] = slices.Clone(fields)
}

// Has reports whether key is present.
func (v *Values) Has(key string) bool {
	_, ok := v.entries[key]
	return ok
}

// Keys returns all keys in sorted order.
func (v *Values) Keys() []string {
	keys := make([]string, 0, len(v.entries))
	for k := range v.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of keys.
func (v *Values) Len() int {
	return len(v.entries)
}

// VectorSize returns the number of fields stored under key (0 if missing).
func (v *Values) VectorSize(key string) int {
	return len(v.entries[key])
}

// Strings returns a copy of all fields stored under key.
func (v *Values) Strings(key string) []string {
	return slices.Clone(v.entries[key])
}

// String returns the first field of key.
func (v *Values) String(key, def string) string {
	return v.VectorString(key, 0, def)
}

// Float returns the first field of key parsed as a float.
func (v *Values) Float(key string, def float64) float64 {
	return v.VectorFloat(key, 0, def)
}

// Int returns the first field of key parsed as an integer. Integral floats
// such as "20.0" are accepted.
func (v *Values) Int(key string, def int) int {
	s, ok := v.field(key, 0)
	if !ok {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return def
	}
	return int(f)
}

// Bool returns the first field of key parsed as a boolean. Accepts
// true/false, yes/no, on/off and 1/0 in any case.
func (v *Values) Bool(key string, def bool) bool {
	s, ok := v.field(key, 0)
	if !ok {
		return def
	}
	switch strings.ToLower(s) {
	case "true", "yes", "on", "1":
		return true
	case "false", "no", "off", "0":
		return false
	}
	return def
}

// VectorString returns field i of key.
func (v *Values) VectorString(key string, i int, def string) string {
	s, ok := v.field(key, i)
	if !ok {
		return def
	}
	return s
}

// VectorFloat returns field i of key parsed as a float.
func (v *Values) VectorFloat(key string, i int, def float64) float64 {
	s, ok := v.field(key, i)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

// Clone returns a deep copy.
func (v *Values) Clone() *Values {
	out := NewValues()
	for k, fields := range v.entries {
		out.entries[k] = slices.Clone(fields)
	}
	return out
}

// Merge returns a new store holding v's entries overridden by other's.
func (v *Values) Merge(other *Values) *Values {
	out := v.Clone()
	for k, fields := range other.entries {
		out.entries[k] = slices.Clone(fields)
	}
	return out
}

func (v *Values) field(key string, i int) (string, bool) {
	fields, ok := v.entries[key]
	if !ok || i < 0 || i >= len(fields) {
		return "", false
	}
	return fields[i], true
}
