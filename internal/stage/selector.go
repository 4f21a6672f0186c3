package stage

import (
	"fmt"
	"path"
	"strings"
)

// Category tags an artifact by what it is.
type Category int

const (
	Other Category = iota
	License
	Binary
	Header
)

var categoryNames = [...]string{"other", "license", "binary", "header"}

func (c Category) String() string {
	if c >= 0 && int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// ParseCategory parses the textual form produced by Category.String.
func ParseCategory(s string) (Category, error) {
	for i, name := range categoryNames {
		if s == name {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("stage: unknown category %q", s)
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	v, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Root tells a selector which tree to match in.
type Root int

const (
	// Staging is the install output of the build.
	Staging Root = iota
	// Source is the unpacked source tree, for files the install step
	// does not copy (license texts, mostly).
	Source
)

func (r Root) String() string {
	if r == Source {
		return "source"
	}
	return "staging"
}

// Selector picks files of one category for the package.
//
// Pattern is a slash-separated glob relative to the selected root. Each
// segment follows path.Match; a "**" segment matches any number of
// segments. Matched files land under Dest, keeping their path below the
// pattern's literal leading directories.
type Selector struct {
	Category Category
	Pattern  string
	From     Root
	Dest     string
	Required bool
}

func (s Selector) validate() error {
	if s.Pattern == "" {
		return fmt.Errorf("stage: %s selector without a pattern", s.Category)
	}
	if strings.HasPrefix(s.Pattern, "/") || hasDotDot(s.Pattern) {
		return fmt.Errorf("stage: pattern %q escapes its root", s.Pattern)
	}
	if strings.HasPrefix(s.Dest, "/") || hasDotDot(s.Dest) {
		return fmt.Errorf("stage: destination %q escapes the package root", s.Dest)
	}
	for _, seg := range strings.Split(s.Pattern, "/") {
		if seg == "**" {
			continue
		}
		if _, err := path.Match(seg, ""); err != nil {
			return fmt.Errorf("stage: bad pattern %q: %w", s.Pattern, err)
		}
	}
	return nil
}

func hasDotDot(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// Match reports whether the slash-separated relative path rel matches the
// selector's pattern.
func (s Selector) Match(rel string) bool {
	return matchSegments(strings.Split(s.Pattern, "/"), strings.Split(rel, "/"))
}

func matchSegments(pat, name []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			rest := pat[1:]
			for i := 0; i <= len(name); i++ {
				if matchSegments(rest, name[i:]) {
					return true
				}
			}
			return false
		}
		if len(name) == 0 {
			return false
		}
		if ok, _ := path.Match(pat[0], name[0]); !ok {
			return false
		}
		pat, name = pat[1:], name[1:]
	}
	return len(name) == 0
}

// literalPrefix returns the leading pattern directories free of glob
// metacharacters. The last segment never counts, so "COPYING" and "lib/*"
// give "" and "lib".
func (s Selector) literalPrefix() string {
	segs := strings.Split(s.Pattern, "/")
	n := 0
	for n < len(segs)-1 && !hasMeta(segs[n]) {
		n++
	}
	return strings.Join(segs[:n], "/")
}

func hasMeta(seg string) bool {
	return seg == "**" || strings.ContainsAny(seg, `*?[\`)
}

// destination maps a matched path to its place in the package.
func (s Selector) destination(rel string) string {
	if s.Dest == "" {
		return rel
	}
	trimmed := rel
	if prefix := s.literalPrefix(); prefix != "" {
		trimmed = strings.TrimPrefix(rel, prefix+"/")
	} else if !strings.Contains(s.Pattern, "/") {
		trimmed = path.Base(rel)
	}
	return path.Join(s.Dest, trimmed)
}
