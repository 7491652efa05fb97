package server

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/procss/compiler"
	"github.com/chazu/procss/transform"
)

// atKeywords are offered when completing a bare `@`.
var atKeywords = []string{
	"charset", "font-face", "import", "include", "keyframes",
	"media", "mixin", "page", "supports",
}

// Document is the analysis of one open stylesheet.
type Document struct {
	Text string
	// Tree is the last tree that parsed. When Text has a syntax error it
	// belongs to an earlier version of the document.
	Tree     compiler.Tree
	Err      error
	Mixins   map[string]*compiler.QualRuleset
	Bindings []transform.Binding

	lines []int // byte offset of each line start in Text
}

// Analyze parses text and indexes its mixins and variables. prev, when not
// nil, supplies the tree to keep if text does not parse.
func Analyze(text string, prev *Document) *Document {
	d := &Document{Text: text, lines: lineStarts(text)}
	tree, err := compiler.Parse(text)
	switch {
	case err == nil:
		d.Tree = tree
	case prev != nil:
		d.Tree = prev.Tree
	}
	d.Err = err
	d.Mixins = transform.Mixins(d.Tree)
	d.Bindings = transform.Bindings(d.Tree)
	return d
}

func lineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// lineEnd returns the byte offset of the end of line, before its newline.
func (d *Document) lineEnd(line int) int {
	if line+1 < len(d.lines) {
		return d.lines[line+1] - 1
	}
	return len(d.Text)
}

// offset converts an editor position, whose character counts UTF-16 code
// units, to a byte offset clamped to the line.
func (d *Document) offset(pos protocol.Position) (int, bool) {
	if int(pos.Line) >= len(d.lines) {
		return 0, false
	}
	off, end := d.lines[pos.Line], d.lineEnd(int(pos.Line))
	for units := 0; off < end && units < int(pos.Character); {
		r, size := utf8.DecodeRuneInString(d.Text[off:end])
		units += utf16.RuneLen(r)
		off += size
	}
	return off, true
}

// toProtocol converts a parser position to an editor position.
func (d *Document) toProtocol(p compiler.Position) protocol.Position {
	line := max(p.Line-1, 0)
	if line >= len(d.lines) {
		return protocol.Position{Line: protocol.UInteger(line)}
	}
	start := d.lines[line]
	off := min(max(p.Offset, start), d.lineEnd(line))
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(utf16Len(d.Text[start:off]))}
}

func (d *Document) toRange(s compiler.Span) protocol.Range {
	return protocol.Range{Start: d.toProtocol(s.Start), End: d.toProtocol(s.End)}
}

// utf16Len counts the UTF-16 code units of s.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// Diagnostics reports the syntax error of the document, if any, at the
// position the parser stopped.
func (d *Document) Diagnostics() []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}
	if d.Err == nil {
		return diagnostics
	}

	severity := protocol.DiagnosticSeverityError
	source := lspName
	message := d.Err.Error()
	var rng protocol.Range

	var serr *compiler.SyntaxError
	if errors.As(d.Err, &serr) {
		start := d.toProtocol(serr.Pos)
		end := start
		end.Character++
		rng = protocol.Range{Start: start, End: end}
		// The editor draws its own marker; keep only the first line.
		message, _, _ = strings.Cut(message, "\n")
	}

	return append(diagnostics, protocol.Diagnostic{
		Range:    rng,
		Severity: &severity,
		Source:   &source,
		Message:  message,
	})
}

// isWordByte reports whether c can appear in an identifier.
func isWordByte(c byte) bool {
	return c == '-' || c == '_' || c >= 0x80 ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// wordAt returns the identifier around off and whether it is directly
// preceded by `@`.
func (d *Document) wordAt(off int) (word string, at bool, start int) {
	start, end := off, off
	for start > 0 && isWordByte(d.Text[start-1]) {
		start--
	}
	for end < len(d.Text) && isWordByte(d.Text[end]) {
		end++
	}
	at = start > 0 && d.Text[start-1] == '@'
	return d.Text[start:end], at, start
}

// Complete offers mixin names after `@include` and variable names and
// at-keywords after `@`.
func (d *Document) Complete(pos protocol.Position) []protocol.CompletionItem {
	off, ok := d.offset(pos)
	if !ok {
		return nil
	}
	start := off
	for start > 0 && isWordByte(d.Text[start-1]) {
		start--
	}
	prefix := d.Text[start:off]
	before := d.Text[d.lines[pos.Line]:start]

	var items []protocol.CompletionItem
	switch {
	case strings.HasSuffix(strings.TrimRight(before, " \t"), "@include") && strings.TrimRight(before, " \t") != before:
		names := make([]string, 0, len(d.Mixins))
		for name := range d.Mixins {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if strings.HasPrefix(name, prefix) {
				items = append(items, completionItem(name, protocol.CompletionItemKindFunction, "mixin"))
			}
		}

	case strings.HasSuffix(before, "@"):
		seen := make(map[string]bool)
		for _, b := range d.Bindings {
			if seen[b.Name] || !strings.HasPrefix(b.Name, prefix) {
				continue
			}
			seen[b.Name] = true
			items = append(items, completionItem(b.Name, protocol.CompletionItemKindVariable, b.Value))
		}
		for _, kw := range atKeywords {
			if strings.HasPrefix(kw, prefix) && !seen[kw] {
				items = append(items, completionItem(kw, protocol.CompletionItemKindKeyword, "at-rule"))
			}
		}
	}
	return items
}

func completionItem(label string, kind protocol.CompletionItemKind, detail string) protocol.CompletionItem {
	return protocol.CompletionItem{
		Label:      label,
		Kind:       &kind,
		Detail:     &detail,
		InsertText: &label,
	}
}

// binding returns the last declaration of name, which is the one whose
// value substitution uses.
func (d *Document) binding(name string) (transform.Binding, bool) {
	for i := len(d.Bindings) - 1; i >= 0; i-- {
		if d.Bindings[i].Name == name {
			return d.Bindings[i], true
		}
	}
	return transform.Binding{}, false
}

// Hover describes the symbol under the cursor: a variable's value, a
// mixin's body, or else the flattened CSS of the top-level ruleset there.
func (d *Document) Hover(pos protocol.Position) *protocol.Hover {
	off, ok := d.offset(pos)
	if !ok {
		return nil
	}

	word, at, start := d.wordAt(off)
	if word != "" {
		if at {
			if b, ok := d.binding(word); ok {
				return markdown(fmt.Sprintf("**@%s**: `%s`", b.Name, b.Value))
			}
		}
		if m, ok := d.Mixins[word]; ok && d.afterInclude(start) {
			return markdown(fmt.Sprintf("**@mixin %s**\n\n```css\n%s\n```", word, compiler.Tree{m}))
		}
	}

	rs := d.rulesetAt(off)
	if rs == nil {
		return nil
	}
	css := d.Preview(rs)
	if css == "" {
		return nil
	}
	return markdown(fmt.Sprintf("```css\n%s\n```", css))
}

// afterInclude reports whether the identifier starting at start is the
// argument of an @include.
func (d *Document) afterInclude(start int) bool {
	before := strings.TrimRight(d.Text[:start], " \t")
	return before != d.Text[:start] && strings.HasSuffix(before, "@include")
}

func markdown(value string) *protocol.Hover {
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: value,
		},
	}
}

// rulesetAt returns the top-level ruleset whose span contains off.
func (d *Document) rulesetAt(off int) compiler.TreeRuleset {
	for _, rs := range d.Tree {
		s := rs.Span()
		if s.Start.Offset <= off && off < s.End.Offset {
			return rs
		}
	}
	return nil
}

// isDeclaration reports whether top-level rs declares a mixin or variable.
func (d *Document) isDeclaration(rs compiler.TreeRuleset) bool {
	switch n := rs.(type) {
	case *compiler.QualRule:
		_, ok := transform.ParseBinding(n.Text)
		return ok
	case *compiler.QualRuleset:
		for _, m := range d.Mixins {
			if m == n {
				return true
			}
		}
	}
	return false
}

// Preview renders rs as it compiles in this document: with the document's
// top-level mixins and variables applied, flattened and deduplicated.
// Declarations themselves have no preview.
func (d *Document) Preview(rs compiler.TreeRuleset) string {
	if d.isDeclaration(rs) {
		return ""
	}
	var tree compiler.Tree
	for _, top := range d.Tree {
		if d.isDeclaration(top) {
			tree = append(tree, top)
		}
	}
	tree = append(tree, rs).Clone()

	transform.ApplyMixin(&tree)
	transform.ApplyVar(&tree)
	css := tree.Flatten()
	transform.Dedupe(&css)
	return css.String()
}

// Definition locates the declaration of the mixin or variable under the
// cursor.
func (d *Document) Definition(pos protocol.Position) (protocol.Range, bool) {
	off, ok := d.offset(pos)
	if !ok {
		return protocol.Range{}, false
	}
	word, at, start := d.wordAt(off)
	if word == "" {
		return protocol.Range{}, false
	}
	if at {
		for _, b := range d.Bindings {
			if b.Name == word {
				return d.toRange(b.Span), true
			}
		}
	}
	if m, ok := d.Mixins[word]; ok && d.afterInclude(start) {
		return d.toRange(m.SpanVal), true
	}
	return protocol.Range{}, false
}
