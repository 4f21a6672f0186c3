// Package recipe loads the declarative description of a package: its
// metadata, option schema, translation rules and packaging selectors.
package recipe

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goplus/llpack/internal/stage"
	"github.com/goplus/llpack/pkgs/buildsys"
	"github.com/goplus/llpack/pkgs/options"
	"github.com/goplus/llpack/pkgs/translate"
	"github.com/tidwall/jsonc"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// Recipe is a loaded, checked package description.
type Recipe struct {
	Name        string
	Version     string
	License     string
	Homepage    string
	Description string
	BuildSystem string // "cmake" or "autotools"

	Schema    *options.Schema
	Table     *translate.Table
	Selectors []stage.Selector
}

// Format is the encoding of a recipe file.
type Format int

const (
	YAML Format = iota
	JSONC
)

//go:embed fftw3.yaml
var fftw3Recipe []byte

var builtins = map[string][]byte{
	"fftw3": fftw3Recipe,
}

// Builtin returns the recipe shipped under name.
func Builtin(name string) (*Recipe, error) {
	data, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("recipe: no builtin recipe %q", name)
	}
	return Parse(data, YAML)
}

// Builtins returns the names of the shipped recipes.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load reads a recipe file; .json and .jsonc files are parsed as JSON with
// comments, everything else as YAML.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	format := YAML
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		format = JSONC
	}
	r, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Parse decodes and checks a recipe.
func Parse(data []byte, format Format) (*Recipe, error) {
	var f file
	switch format {
	case JSONC:
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("recipe: %w", err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("recipe: %w", err)
		}
	}
	return f.build()
}

// -----------------------------------------------------------------------------

type file struct {
	Name        string         `yaml:"name" json:"name"`
	Version     string         `yaml:"version" json:"version"`
	License     string         `yaml:"license" json:"license"`
	Homepage    string         `yaml:"homepage" json:"homepage"`
	Description string         `yaml:"description" json:"description"`
	BuildSystem string         `yaml:"buildsystem" json:"buildsystem"`
	Options     []optionSpec   `yaml:"options" json:"options"`
	Definitions []ruleSpec     `yaml:"definitions" json:"definitions"`
	Package     []selectorSpec `yaml:"package" json:"package"`
}

type optionSpec struct {
	Name    string   `yaml:"name" json:"name"`
	Kind    string   `yaml:"kind" json:"kind"`
	Values  []string `yaml:"values" json:"values"`
	Default any      `yaml:"default" json:"default"`
	Help    string   `yaml:"help" json:"help"`
}

type ruleSpec struct {
	Option  string            `yaml:"option" json:"option"`
	Key     string            `yaml:"key" json:"key"`
	Mode    string            `yaml:"mode" json:"mode"`
	Members map[string]string `yaml:"members" json:"members"`
	Value   any               `yaml:"value" json:"value"`
}

type selectorSpec struct {
	Category string `yaml:"category" json:"category"`
	Pattern  string `yaml:"pattern" json:"pattern"`
	From     string `yaml:"from" json:"from"`
	Dest     string `yaml:"dest" json:"dest"`
	Required bool   `yaml:"required" json:"required"`
}

func (f *file) build() (*Recipe, error) {
	if f.Name == "" {
		return nil, fmt.Errorf("recipe: missing name")
	}
	if f.Version != "" && !semver.IsValid("v"+strings.TrimPrefix(f.Version, "v")) {
		return nil, fmt.Errorf("recipe: version %q is not a semantic version", f.Version)
	}
	switch f.BuildSystem {
	case "":
		f.BuildSystem = "cmake"
	case "cmake", "autotools":
	default:
		return nil, fmt.Errorf("recipe: unknown build system %q", f.BuildSystem)
	}

	opts := make([]options.Option, 0, len(f.Options))
	for _, o := range f.Options {
		kind, err := options.ParseKind(o.Kind)
		if err != nil {
			return nil, fmt.Errorf("recipe: option %q: %w", o.Name, err)
		}
		opts = append(opts, options.Option{
			Name:    o.Name,
			Kind:    kind,
			Values:  o.Values,
			Default: o.Default,
			Help:    o.Help,
		})
	}
	schema, err := options.NewSchema(opts...)
	if err != nil {
		return nil, fmt.Errorf("recipe: %w", err)
	}

	rules := make([]translate.Rule, 0, len(f.Definitions))
	for _, rs := range f.Definitions {
		r, err := rs.rule(schema)
		if err != nil {
			return nil, fmt.Errorf("recipe: %w", err)
		}
		rules = append(rules, r)
	}
	table, err := translate.NewTable(schema, rules...)
	if err != nil {
		return nil, fmt.Errorf("recipe: %w", err)
	}

	selectors := make([]stage.Selector, 0, len(f.Package))
	for _, ss := range f.Package {
		s, err := ss.selector()
		if err != nil {
			return nil, fmt.Errorf("recipe: %w", err)
		}
		selectors = append(selectors, s)
	}

	return &Recipe{
		Name:        f.Name,
		Version:     f.Version,
		License:     f.License,
		Homepage:    f.Homepage,
		Description: f.Description,
		BuildSystem: f.BuildSystem,
		Schema:      schema,
		Table:       table,
		Selectors:   selectors,
	}, nil
}

func (rs ruleSpec) rule(schema *options.Schema) (translate.Rule, error) {
	mode := translate.Pass
	switch {
	case rs.Mode != "":
		m, err := translate.ParseMode(rs.Mode)
		if err != nil {
			return translate.Rule{}, err
		}
		mode = m
	case rs.Option == "":
		mode = translate.Const
	}

	r := translate.Rule{Option: rs.Option, Key: rs.Key, Mode: mode}
	switch mode {
	case translate.Const:
		switch v := rs.Value.(type) {
		case bool:
			r.Value = buildsys.Bool(v)
		case string:
			r.Value = buildsys.String(v)
		default:
			return translate.Rule{}, fmt.Errorf("const %q needs a bool or string value, got %T", rs.Key, rs.Value)
		}
	case translate.OneHot:
		opt, ok := schema.Lookup(rs.Option)
		if !ok {
			return translate.Rule{}, fmt.Errorf("rule for unknown option %q", rs.Option)
		}
		// schema order first, then leftovers so NewTable can name them
		for _, v := range opt.Values {
			if key, ok := rs.Members[v]; ok {
				r.Members = append(r.Members, translate.Member{Value: v, Key: key})
			}
		}
		var extra []string
		for v := range rs.Members {
			if !opt.Allows(v) {
				extra = append(extra, v)
			}
		}
		sort.Strings(extra)
		for _, v := range extra {
			r.Members = append(r.Members, translate.Member{Value: v, Key: rs.Members[v]})
		}
	}
	return r, nil
}

func (ss selectorSpec) selector() (stage.Selector, error) {
	cat, err := stage.ParseCategory(ss.Category)
	if err != nil {
		return stage.Selector{}, err
	}
	s := stage.Selector{Category: cat, Pattern: ss.Pattern, Dest: ss.Dest, Required: ss.Required}
	switch ss.From {
	case "", "staging":
		s.From = stage.Staging
	case "source":
		s.From = stage.Source
	default:
		return stage.Selector{}, fmt.Errorf("selector %q: unknown root %q", ss.Pattern, ss.From)
	}
	return s, nil
}

// Validate checks overrides against the recipe's schema.
func (r *Recipe) Validate(overrides map[string]any) (*options.Set, error) {
	return options.Validate(r.Schema, overrides)
}

// Translate returns the definitions for set.
func (r *Recipe) Translate(set *options.Set) buildsys.Definitions {
	return r.Table.Translate(set)
}
