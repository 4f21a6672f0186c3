package buildsys

import (
	"bytes"
	"encoding/hex"
	"maps"
	"sort"
	"strconv"

	"github.com/zeebo/blake3"
)

// ValueKind is the type of a definition value.
type ValueKind int

const (
	BoolValue ValueKind = iota
	StringValue
)

// Value is a definition value: a bool or a string.
type Value struct {
	kind ValueKind
	b    bool
	s    string
}

// Bool returns a boolean definition value.
func Bool(b bool) Value { return Value{kind: BoolValue, b: b} }

// String returns a string definition value.
func String(s string) Value { return Value{kind: StringValue, s: s} }

func (v Value) Kind() ValueKind { return v.kind }

// AsBool returns the boolean held by v; false for string values.
func (v Value) AsBool() bool { return v.b }

// AsString returns the string held by v, or "true"/"false" for booleans.
func (v Value) AsString() string {
	if v.kind == BoolValue {
		return strconv.FormatBool(v.b)
	}
	return v.s
}

// TypeName returns the CMake cache type of v.
func (v Value) TypeName() string {
	if v.kind == BoolValue {
		return "BOOL"
	}
	return "STRING"
}

// Render returns v as CMake writes it: ON/OFF for booleans.
func (v Value) Render() string {
	if v.kind == BoolValue {
		if v.b {
			return "ON"
		}
		return "OFF"
	}
	return v.s
}

// -----------------------------------------------------------------------------

// Definitions maps definition keys to values in the toolchain's own
// configuration language.
type Definitions map[string]Value

// Keys returns the keys in sorted order.
func (d Definitions) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of d.
func (d Definitions) Clone() Definitions {
	return maps.Clone(d)
}

// Equal reports whether d and other hold the same definitions.
func (d Definitions) Equal(other Definitions) bool {
	return maps.Equal(d, other)
}

// Bytes returns the canonical encoding: one "KEY:TYPE=VALUE" line per
// definition, sorted by key.
func (d Definitions) Bytes() []byte {
	var buf bytes.Buffer
	for _, k := range d.Keys() {
		v := d[k]
		buf.WriteString(k)
		buf.WriteByte(':')
		buf.WriteString(v.TypeName())
		buf.WriteByte('=')
		buf.WriteString(v.Render())
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Fingerprint returns the hex BLAKE3 digest of Bytes.
func (d Definitions) Fingerprint() string {
	sum := blake3.Sum256(d.Bytes())
	return hex.EncodeToString(sum[:])
}
