// Package snippet holds the collaborators that sit at the engine's
// boundary: a template binder that substitutes named arguments into
// {{name}} placeholders before the engine ever sees the source, and a
// result coercer that turns the engine's textual output into a typed
// value. The engine itself knows nothing about placeholders or types.
package snippet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{([A-Za-z_][A-Za-z0-9_]*)\}\}`)

// Template is source text containing {{name}} placeholders.
type Template struct {
	text string
}

// NewTemplate wraps source text for binding. Text without placeholders is a
// valid template that binds against an empty argument set.
func NewTemplate(text string) Template {
	return Template{text: text}
}

// Placeholders returns the distinct placeholder names in order of first
// appearance.
func (t Template) Placeholders() []string {
	var names []string
	seen := make(map[string]bool)

	for _, m := range placeholderRe.FindAllStringSubmatch(t.text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}

	return names
}

// Bind replaces every placeholder with its value and returns the resulting
// source text. Binding is strict in both directions: a placeholder without
// a value and a value without a placeholder are both errors, so typos
// surface here instead of as compiler diagnostics.
func (t Template) Bind(values map[string]string) (string, error) {
	for _, name := range t.Placeholders() {
		if _, ok := values[name]; !ok {
			return "", fmt.Errorf("no value bound for placeholder {{%s}}", name)
		}
	}

	used := placeholderSet(t.Placeholders())
	for name := range values {
		if !used[name] {
			return "", fmt.Errorf("argument %q matches no placeholder in the template", name)
		}
	}

	return placeholderRe.ReplaceAllStringFunc(t.text, func(m string) string {
		name := m[2 : len(m)-2]
		return values[name]
	}), nil
}

func placeholderSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}

	return set
}

// ParseBindings parses name=value pairs, as given on the command line, into
// a binding map. Values may contain '='; only the first one splits.
func ParseBindings(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid binding %q, expected name=value", pair)
		}

		name = strings.TrimSpace(name)
		if _, dup := values[name]; dup {
			return nil, fmt.Errorf("binding %q given more than once", name)
		}

		values[name] = value
	}

	return values, nil
}

// Coerce converts the engine's output into a typed value by attempted
// parsing: Mojo's boolean spellings first, then integer, then decimal,
// falling back to the raw string. "1" stays an integer because only the
// exact words True and False coerce to booleans.
func Coerce(raw string) any {
	s := strings.TrimSpace(raw)

	switch s {
	case "True":
		return true
	case "False":
		return false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}

	return raw
}
