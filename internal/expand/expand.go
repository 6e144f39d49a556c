// Package expand substitutes $name and leading ~ tokens inside strings.
//
// Expansion is a single left-to-right pass: a value substituted for a token
// is not scanned again, so cycles between values cannot occur. Tokens that
// do not resolve are kept verbatim, which makes a second application over
// partially expanded output safe.
package expand

import (
	"path/filepath"
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\$[A-Za-z0-9_]+`)

// ResolveFunc returns the replacement for a token name (without the $).
type ResolveFunc func(name string) (string, bool)

// Chain tries each resolver in order; the first hit wins.
func Chain(resolvers ...ResolveFunc) ResolveFunc {
	return func(name string) (string, bool) {
		for _, resolve := range resolvers {
			if resolve == nil {
				continue
			}
			if v, ok := resolve(name); ok {
				return v, true
			}
		}
		return "", false
	}
}

// Map resolves names from a fixed mapping.
func Map(values map[string]string) ResolveFunc {
	return func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	}
}

// Expander expands tokens using Resolve and replaces a leading ~ with Home.
// A nil Resolve leaves $ tokens alone; an empty Home leaves ~ alone.
type Expander struct {
	Resolve ResolveFunc
	Home    string
}

// Expand returns non-string values unchanged.
func (e Expander) Expand(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	return e.ExpandString(s)
}

// ExpandString performs one expansion pass over s.
func (e Expander) ExpandString(s string) string {
	prefix, rest := e.splitHome(s)
	if e.Resolve == nil || !strings.Contains(rest, "$") {
		return prefix + rest
	}

	return prefix + tokenPattern.ReplaceAllStringFunc(rest, func(token string) string {
		if v, ok := e.Resolve(token[1:]); ok {
			return v
		}
		return token
	})
}

// ExpandPasses applies ExpandString up to passes times and stops as soon as a
// pass changes nothing. converged is false when another pass would still
// change the result, which happens for cyclic references.
func (e Expander) ExpandPasses(s string, passes int) (result string, converged bool) {
	if passes < 1 {
		passes = 1
	}
	current := s
	for range passes {
		next := e.ExpandString(current)
		if next == current {
			return current, true
		}
		current = next
	}
	return current, e.ExpandString(current) == current
}

// splitHome replaces ~ when it is the whole string or followed by a path
// separator.
func (e Expander) splitHome(s string) (string, string) {
	if e.Home == "" || !strings.HasPrefix(s, "~") {
		return "", s
	}
	rest := s[1:]
	if rest == "" || rest[0] == '/' || rest[0] == filepath.Separator {
		return e.Home, rest
	}
	return "", s
}

// Tokens lists the token names in s in order of appearance.
func Tokens(s string) []string {
	matches := tokenPattern.FindAllString(s, -1)
	if len(matches) == 0 {
		return nil
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m[1:]
	}
	return names
}
