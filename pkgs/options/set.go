package options

import (
	"fmt"
	"maps"
	"sort"
	"strconv"
	"strings"
)

// Set holds one concrete value per option of its schema.
//
// A Set is only produced by Validate, so every key exists in the schema and
// every Enum value is one of the option's members.
type Set struct {
	schema *Schema
	values map[string]any
}

// Validate merges overrides onto the schema defaults.
//
// Bool options take a Go bool or the strings "true"/"false" (any case);
// Enum options take one of their member strings. Overrides are checked in
// sorted key order and the first violation is returned; no Set is produced
// in that case.
func Validate(schema *Schema, overrides map[string]any) (*Set, error) {
	values := make(map[string]any, schema.Len())
	for _, o := range schema.opts {
		values[o.Name] = o.Default
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		o, ok := schema.Lookup(k)
		if !ok {
			return nil, &UnknownOptionError{Name: k}
		}
		v, err := coerce(o, overrides[k])
		if err != nil {
			return nil, err
		}
		values[k] = v
	}
	return &Set{schema: schema, values: values}, nil
}

func coerce(o Option, raw any) (any, error) {
	switch o.Kind {
	case Bool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(v) {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
		}
		return nil, &InvalidValueError{Name: o.Name, Value: raw, Allowed: []string{"true", "false"}}
	default:
		if v, ok := raw.(string); ok && o.Allows(v) {
			return v, nil
		}
		return nil, &InvalidValueError{Name: o.Name, Value: raw, Allowed: o.Values}
	}
}

// Schema returns the schema the set was validated against.
func (s *Set) Schema() *Schema {
	return s.schema
}

// Value returns the value of the named option, or nil if the schema lacks it.
func (s *Set) Value(name string) any {
	return s.values[name]
}

// Bool returns the value of a Bool option.
func (s *Set) Bool(name string) bool {
	b, _ := s.values[name].(bool)
	return b
}

// Enum returns the selected member of an Enum option.
func (s *Set) Enum(name string) string {
	v, _ := s.values[name].(string)
	return v
}

// Map returns a copy of the values keyed by option name.
func (s *Set) Map() map[string]any {
	return maps.Clone(s.values)
}

// Equal reports whether both sets share a schema and hold the same values.
func (s *Set) Equal(other *Set) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.schema == other.schema && maps.Equal(s.values, other.values)
}

// Canonical renders the set as "name=value" pairs in schema order.
func (s *Set) Canonical() string {
	var b strings.Builder
	for i, o := range s.schema.opts {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(o.Name)
		b.WriteByte('=')
		b.WriteString(formatValue(s.values[o.Name]))
	}
	return b.String()
}

func formatValue(v any) string {
	switch v := v.(type) {
	case bool:
		return strconv.FormatBool(v)
	case string:
		return v
	}
	return fmt.Sprint(v)
}

// -----------------------------------------------------------------------------

// ParseOverrides parses "name=value" pairs as given on a command line.
// Values stay strings; Validate interprets them per option kind. Naming an
// option twice is an error.
func ParseOverrides(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("malformed option %q, want name=value", p)
		}
		if _, dup := out[k]; dup {
			return nil, fmt.Errorf("option %q given more than once", k)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}
