package transform

import (
	"strings"

	"github.com/chazu/procss/compiler"
)

// Binding is a variable declaration `@name: value;`.
type Binding struct {
	Name  string
	Value string
	Span  compiler.Span
}

// ParseBinding reports whether at-rule text declares a variable and returns
// the binding. The name must be a whole identifier directly followed by `:`.
func ParseBinding(text string) (Binding, bool) {
	if !strings.HasPrefix(text, "@") {
		return Binding{}, false
	}
	name, rest, ok := compiler.ScanIdentifier(text[1:])
	if !ok {
		return Binding{}, false
	}
	rest = compiler.SkipComments(rest)
	if !strings.HasPrefix(rest, ":") {
		return Binding{}, false
	}
	return Binding{Name: name, Value: strings.TrimSpace(rest[1:])}, true
}

// Bindings collects every variable declaration in tree, at any depth, in
// source order. Values refer to earlier bindings already substituted.
func Bindings(tree compiler.Tree) []Binding {
	var out []Binding
	env := make(map[string]string)
	walkTree(tree, func(r compiler.TreeRule) {
		q, ok := r.(*compiler.QualRule)
		if !ok {
			return
		}
		b, ok := ParseBinding(q.Text)
		if !ok {
			return
		}
		b.Value = Substitute(b.Value, env)
		b.Span = q.SpanVal
		env[b.Name] = b.Value
		out = append(out, b)
	})
	return out
}

// ApplyVar substitutes `@name` references in declaration values and at-rule
// qualifiers with the values bound by `@name: value;` declarations, then
// removes the declarations. References match whole identifiers only, never
// inside quoted strings. Unbound references are left as written.
func ApplyVar(tree *compiler.Tree) {
	bindings := Bindings(*tree)
	if len(bindings) == 0 {
		return
	}
	env := make(map[string]string, len(bindings))
	for _, b := range bindings {
		env[b.Name] = b.Value
	}

	filterTree(tree, func(r compiler.TreeRule) bool {
		q, ok := r.(*compiler.QualRule)
		if !ok {
			return false
		}
		_, ok = ParseBinding(q.Text)
		return ok
	})

	walkTree(*tree, func(r compiler.TreeRule) {
		switch n := r.(type) {
		case *compiler.Rule:
			n.Value = Substitute(n.Value, env)
		case *compiler.QualRuleset:
			n.Qualifier = Substitute(n.Qualifier, env)
		}
	})
}

// Substitute replaces each `@name` in s that is bound in env. Text inside
// double-quoted strings is copied unchanged.
func Substitute(s string, env map[string]string) string {
	if !strings.Contains(s, "@") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		switch s[i] {
		case '"':
			if lit, _, ok := compiler.ScanStringLiteral(s[i:]); ok {
				b.WriteString(lit)
				i += len(lit)
				continue
			}
		case '@':
			if name, _, ok := compiler.ScanIdentifier(s[i+1:]); ok {
				if v, bound := env[name]; bound {
					b.WriteString(v)
				} else {
					b.WriteString(s[i : i+1+len(name)])
				}
				i += 1 + len(name)
				continue
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}
