// Package options defines the configurable build axes of a recipe and
// validates requested option sets against them.
package options

import (
	"fmt"
	"slices"
)

// Kind is the value kind of an option axis.
type Kind int

const (
	Bool Kind = iota
	Enum
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Enum:
		return "enum"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind parses the textual form produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "bool", "boolean":
		return Bool, nil
	case "enum":
		return Enum, nil
	}
	return 0, fmt.Errorf("options: unknown kind %q", s)
}

// Option describes one named build axis.
type Option struct {
	Name    string
	Kind    Kind
	Values  []string // allowed members, Enum only
	Default any      // bool for Bool, string for Enum
	Help    string
}

// Allows reports whether v is a legal member of an Enum option.
func (o Option) Allows(v string) bool {
	return slices.Contains(o.Values, v)
}

// -----------------------------------------------------------------------------

// Schema is the immutable, ordered set of options a recipe recognizes.
type Schema struct {
	opts  []Option
	index map[string]int
}

// NewSchema builds a Schema from opts, keeping their declaration order.
func NewSchema(opts ...Option) (*Schema, error) {
	s := &Schema{
		opts:  make([]Option, 0, len(opts)),
		index: make(map[string]int, len(opts)),
	}
	for _, o := range opts {
		if o.Name == "" {
			return nil, fmt.Errorf("options: option without a name")
		}
		if _, dup := s.index[o.Name]; dup {
			return nil, fmt.Errorf("options: duplicate option %q", o.Name)
		}
		if err := checkOption(o); err != nil {
			return nil, err
		}
		o.Values = slices.Clone(o.Values)
		s.index[o.Name] = len(s.opts)
		s.opts = append(s.opts, o)
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error.
func MustSchema(opts ...Option) *Schema {
	s, err := NewSchema(opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func checkOption(o Option) error {
	switch o.Kind {
	case Bool:
		if len(o.Values) != 0 {
			return fmt.Errorf("options: bool option %q must not list values", o.Name)
		}
		if _, ok := o.Default.(bool); !ok {
			return fmt.Errorf("options: default of %q must be a bool, got %T", o.Name, o.Default)
		}
	case Enum:
		if len(o.Values) == 0 {
			return fmt.Errorf("options: enum option %q has no values", o.Name)
		}
		seen := make(map[string]bool, len(o.Values))
		for _, v := range o.Values {
			if seen[v] {
				return fmt.Errorf("options: enum option %q lists %q twice", o.Name, v)
			}
			seen[v] = true
		}
		def, ok := o.Default.(string)
		if !ok {
			return fmt.Errorf("options: default of %q must be a string, got %T", o.Name, o.Default)
		}
		if !seen[def] {
			return fmt.Errorf("options: default %q of %q is not one of %v", def, o.Name, o.Values)
		}
	default:
		return fmt.Errorf("options: option %q has unknown kind %v", o.Name, o.Kind)
	}
	return nil
}

// Lookup returns the option named name.
func (s *Schema) Lookup(name string) (Option, bool) {
	i, ok := s.index[name]
	if !ok {
		return Option{}, false
	}
	return s.opts[i], true
}

// Options returns a copy of the options in declaration order.
func (s *Schema) Options() []Option {
	out := make([]Option, len(s.opts))
	for i, o := range s.opts {
		o.Values = slices.Clone(o.Values)
		out[i] = o
	}
	return out
}

// Names returns the option names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.opts))
	for i, o := range s.opts {
		names[i] = o.Name
	}
	return names
}

// Len returns the number of options.
func (s *Schema) Len() int {
	return len(s.opts)
}

// Defaults returns the option set made only of default values.
func (s *Schema) Defaults() *Set {
	set, err := Validate(s, nil)
	if err != nil {
		// defaults are checked by NewSchema
		panic(err)
	}
	return set
}
