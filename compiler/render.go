package compiler

import (
	"fmt"
	"io"
	"strings"
)

// ---------------------------------------------------------------------------
// Rendering: minified CSS text
// ---------------------------------------------------------------------------

// Render writes the minified CSS form of v to w. v may be a Tree, a Css, a
// rule or ruleset node, a SelectorList, a Selector or a SelectorTerm.
func Render(w io.Writer, v interface{}) error {
	var b strings.Builder
	if !render(&b, v) {
		return fmt.Errorf("render: unsupported type %T", v)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func render(b *strings.Builder, v interface{}) bool {
	switch n := v.(type) {
	case Tree:
		for _, rs := range n {
			render(b, rs)
		}
	case Css:
		for _, rs := range n {
			render(b, rs)
		}
	case []TreeRule:
		for _, r := range n {
			render(b, r)
		}

	case *Rule:
		writeRule(b, n)
	case *QualRule:
		writeQualifier(b, n.Text)
		b.WriteByte(';')
	case *QualRuleset:
		writeQualifier(b, n.Qualifier)
		b.WriteByte('{')
		render(b, n.Body)
		b.WriteByte('}')
	case *SelectorRuleset:
		writeSelectorList(b, n.Selectors)
		b.WriteByte('{')
		render(b, n.Body)
		b.WriteByte('}')
	case *FlatQualRuleset:
		writeQualifier(b, n.Qualifier)
		writeRules(b, n.Rules)
	case *QualNestedRuleset:
		writeQualifier(b, n.Qualifier)
		b.WriteByte('{')
		render(b, n.Body)
		b.WriteByte('}')
	case *FlatSelectorRuleset:
		writeSelectorList(b, n.Selectors)
		writeRules(b, n.Rules)

	case SelectorList:
		writeSelectorList(b, n)
	case Selector:
		writeSelector(b, n)
	case SelectorTerm:
		writeTerm(b, n)

	default:
		return false
	}
	return true
}

func renderString(v interface{}) string {
	var b strings.Builder
	render(&b, v)
	return b.String()
}

func (t Tree) String() string         { return renderString(t) }
func (css Css) String() string        { return renderString(css) }
func (l SelectorList) String() string { return renderString(l) }
func (s Selector) String() string     { return renderString(s) }
func (t SelectorTerm) String() string { return renderString(t) }
func (n *Rule) String() string        { return renderString(n) }

// ---------------------------------------------------------------------------
// Selectors
// ---------------------------------------------------------------------------

func writeSelectorList(b *strings.Builder, l SelectorList) {
	for i, s := range l {
		if i > 0 {
			b.WriteByte(',')
		}
		writeSelector(b, s)
	}
}

func writeSelector(b *strings.Builder, s Selector) {
	if s.Self != nil {
		b.WriteByte('&')
		writeQualifiers(b, s.Self.Qualifiers)
	}
	for i, st := range s.Steps {
		if i > 0 || s.Self != nil {
			b.WriteString(st.Combinator.String())
		}
		writeTerm(b, st.Term)
	}
}

func writeTerm(b *strings.Builder, t SelectorTerm) {
	b.WriteString(t.Tag)
	writeQualifiers(b, t.Qualifiers)
}

func writeQualifiers(b *strings.Builder, q Qualifiers) {
	if q.ID != "" {
		b.WriteByte('#')
		b.WriteString(q.ID)
	}
	for _, c := range q.Classes {
		b.WriteByte('.')
		b.WriteString(c)
	}
	for _, a := range q.Attrs {
		b.WriteByte('[')
		b.WriteString(a.Name)
		b.WriteString(a.Op)
		b.WriteString(a.Value)
		b.WriteByte(']')
	}
	for _, p := range q.Pseudos {
		b.WriteByte(':')
		if p.Mode == PseudoElement {
			b.WriteByte(':')
		}
		b.WriteString(p.Property)
		if p.Arg != nil {
			b.WriteByte('(')
			writeTerm(b, *p.Arg)
			b.WriteByte(')')
		}
	}
}

// ---------------------------------------------------------------------------
// Declarations and qualifiers
// ---------------------------------------------------------------------------

func writeRules(b *strings.Builder, rules []Rule) {
	b.WriteByte('{')
	for i := range rules {
		writeRule(b, &rules[i])
	}
	b.WriteByte('}')
}

func writeRule(b *strings.Builder, r *Rule) {
	b.WriteString(r.Property)
	b.WriteByte(':')
	if strings.HasPrefix(r.Property, "--") {
		b.WriteString(collapseSpace(r.Value))
	} else {
		b.WriteString(MinifyValue(r.Value))
	}
	b.WriteByte(';')
}

// writeQualifier writes at-rule text with whitespace runs outside strings
// collapsed to one space.
func writeQualifier(b *strings.Builder, text string) {
	b.WriteString(collapseSpace(text))
}

// MinifyValue removes whitespace from a declaration value wherever doing so
// cannot merge two words. A space survives only between a fragment ending in
// a word character, `)` or `"` and one starting with a word character or
// `"`, which keeps `calc(100% - 24px)` intact. Quoted strings are copied
// verbatim.
func MinifyValue(value string) string {
	var b strings.Builder
	prevWord := false
	for _, frag := range fragments(value) {
		if prevWord && needsSpaceBefore(frag[0]) {
			b.WriteByte(' ')
		}
		b.WriteString(frag)
		prevWord = needsSpaceAfter(frag[len(frag)-1])
	}
	return b.String()
}

func isWordByte(b byte) bool {
	return isAlnum(b) || b == '-' || b == '_' || b == '%' || b == '+'
}

func needsSpaceBefore(b byte) bool {
	return isWordByte(b) || b == '"'
}

func needsSpaceAfter(b byte) bool {
	return isWordByte(b) || b == ')' || b == '"'
}

// collapseSpace trims s and reduces each whitespace run outside strings to a
// single space.
func collapseSpace(s string) string {
	return strings.Join(fragments(s), " ")
}

// fragments splits s on whitespace outside double-quoted strings.
func fragments(s string) []string {
	var out []string
	start := -1
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '"':
			if start < 0 {
				start = i
			}
			i = skipString(s, i)
		case isSpace(s[i]) || s[i] == '\f':
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

// skipString returns the index of the quote closing the string opened at
// s[i], or len(s)-1 when it is unterminated.
func skipString(s string, i int) int {
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '"':
			return j
		}
	}
	return len(s) - 1
}
