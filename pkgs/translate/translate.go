// Package translate maps a validated option set to the definitions of a
// build-system generator.
//
// A Table is built once per recipe and checked against the recipe's schema,
// so Translate itself cannot fail: every rule refers to an existing option
// of the right kind, and one-hot rules cover every enum member exactly once.
package translate

import (
	"fmt"

	"github.com/goplus/llpack/pkgs/buildsys"
	"github.com/goplus/llpack/pkgs/options"
)

// Mode selects how a rule turns an option value into definitions.
type Mode int

const (
	// Pass emits the bool option unchanged.
	Pass Mode = iota
	// Negate emits the inverse of the bool option, for definitions whose
	// meaning is the opposite of the option's (DISABLE_X for option x).
	Negate
	// OneHot emits one bool definition per enum member, true only for the
	// selected member.
	OneHot
	// Verbatim emits the selected enum member as a string definition.
	Verbatim
	// Const emits a fixed definition that no option controls.
	Const
)

var modeNames = [...]string{"pass", "negate", "onehot", "verbatim", "const"}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses the textual form produced by Mode.String.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if s == name {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("translate: unknown mode %q", s)
}

// Member binds one enum member to the definition key it switches on.
type Member struct {
	Value string
	Key   string
}

// Rule is one entry of a translation table.
type Rule struct {
	Option  string // empty for Const
	Key     string // unused for OneHot
	Mode    Mode
	Members []Member       // OneHot only
	Value   buildsys.Value // Const only
}

// OneHotRule returns a one-hot rule for opt, naming each member's key with keyFn.
func OneHotRule(opt options.Option, keyFn func(member string) string) Rule {
	members := make([]Member, len(opt.Values))
	for i, v := range opt.Values {
		members[i] = Member{Value: v, Key: keyFn(v)}
	}
	return Rule{Option: opt.Name, Mode: OneHot, Members: members}
}

// -----------------------------------------------------------------------------

// Table is a checked, immutable list of rules bound to one schema.
type Table struct {
	schema *options.Schema
	rules  []Rule
}

// NewTable checks rules against schema.
func NewTable(schema *options.Schema, rules ...Rule) (*Table, error) {
	keys := make(map[string]bool)
	claim := func(key string) error {
		if key == "" {
			return fmt.Errorf("translate: empty definition key")
		}
		if keys[key] {
			return fmt.Errorf("translate: definition %q produced twice", key)
		}
		keys[key] = true
		return nil
	}

	t := &Table{schema: schema, rules: make([]Rule, 0, len(rules))}
	for _, r := range rules {
		if r.Mode == Const {
			if r.Option != "" {
				return nil, fmt.Errorf("translate: const rule %q must not name option %q", r.Key, r.Option)
			}
			if err := claim(r.Key); err != nil {
				return nil, err
			}
			t.rules = append(t.rules, r)
			continue
		}

		opt, ok := schema.Lookup(r.Option)
		if !ok {
			return nil, fmt.Errorf("translate: rule for unknown option %q", r.Option)
		}
		switch r.Mode {
		case Pass, Negate:
			if opt.Kind != options.Bool {
				return nil, fmt.Errorf("translate: %s rule needs a bool option, %q is %v", r.Mode, r.Option, opt.Kind)
			}
			if err := claim(r.Key); err != nil {
				return nil, err
			}
		case Verbatim:
			if opt.Kind != options.Enum {
				return nil, fmt.Errorf("translate: verbatim rule needs an enum option, %q is %v", r.Option, opt.Kind)
			}
			if err := claim(r.Key); err != nil {
				return nil, err
			}
		case OneHot:
			if err := checkOneHot(opt, r.Members); err != nil {
				return nil, err
			}
			for _, m := range r.Members {
				if err := claim(m.Key); err != nil {
					return nil, err
				}
			}
			r.Members = append([]Member(nil), r.Members...)
		default:
			return nil, fmt.Errorf("translate: rule for %q has unknown mode %v", r.Option, r.Mode)
		}
		t.rules = append(t.rules, r)
	}
	return t, nil
}

// MustTable is like NewTable but panics on error.
func MustTable(schema *options.Schema, rules ...Rule) *Table {
	t, err := NewTable(schema, rules...)
	if err != nil {
		panic(err)
	}
	return t
}

func checkOneHot(opt options.Option, members []Member) error {
	if opt.Kind != options.Enum {
		return fmt.Errorf("translate: onehot rule needs an enum option, %q is %v", opt.Name, opt.Kind)
	}
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if !opt.Allows(m.Value) {
			return fmt.Errorf("translate: %q is not a member of %q", m.Value, opt.Name)
		}
		if seen[m.Value] {
			return fmt.Errorf("translate: member %q of %q mapped twice", m.Value, opt.Name)
		}
		seen[m.Value] = true
	}
	for _, v := range opt.Values {
		if !seen[v] {
			return fmt.Errorf("translate: member %q of %q has no definition", v, opt.Name)
		}
	}
	return nil
}

// Schema returns the schema the table was checked against.
func (t *Table) Schema() *options.Schema {
	return t.schema
}

// Rules returns a copy of the rules in declaration order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	for i, r := range t.rules {
		r.Members = append([]Member(nil), r.Members...)
		out[i] = r
	}
	return out
}

// Translate returns the definitions for set. set must have been validated
// against the table's schema; anything else is a programming error.
func (t *Table) Translate(set *options.Set) buildsys.Definitions {
	if set.Schema() != t.schema {
		panic("translate: option set was validated against a different schema")
	}
	defs := make(buildsys.Definitions)
	for _, r := range t.rules {
		switch r.Mode {
		case Pass:
			defs[r.Key] = buildsys.Bool(set.Bool(r.Option))
		case Negate:
			defs[r.Key] = buildsys.Bool(!set.Bool(r.Option))
		case Verbatim:
			defs[r.Key] = buildsys.String(set.Enum(r.Option))
		case OneHot:
			selected := set.Enum(r.Option)
			for _, m := range r.Members {
				defs[m.Key] = buildsys.Bool(m.Value == selected)
			}
		case Const:
			defs[r.Key] = r.Value
		}
	}
	return defs
}
