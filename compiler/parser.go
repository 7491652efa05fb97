package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// Parser: recursive descent over CSS+ source
// ---------------------------------------------------------------------------

// Parse parses CSS+ source into a Tree. It is the strict entry point: on
// failure it returns a *SyntaxError locating the farthest point the grammar
// reached and listing what it expected there. The whole input must be
// consumed.
func Parse(src string) (Tree, error) {
	c := newCursor(src, true)
	tree := c.tree()
	if c.eof() {
		return tree, nil
	}
	return nil, c.syntaxError()
}

// ParseFast parses like Parse but skips diagnostic bookkeeping. Failures are
// reported as ErrSyntax; unconsumed trailing input additionally matches
// ErrTrailingInput.
func ParseFast(src string) (Tree, error) {
	c := newCursor(src, false)
	tree := c.tree()
	if c.eof() {
		return tree, nil
	}
	if c.trailing() {
		return nil, fmt.Errorf("%w: %w", ErrSyntax, ErrTrailingInput)
	}
	return nil, ErrSyntax
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level fixtures.
func MustParse(src string) Tree {
	tree, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return tree
}

// trailing reports whether parsing stopped on input no production started to
// consume, as opposed to failing partway through a ruleset.
func (c *cursor) trailing() bool {
	return c.farthest <= c.pos
}

// syntaxError builds the strict-mode diagnostic for a failed parse.
func (c *cursor) syntaxError() *SyntaxError {
	off := c.pos
	var err error
	if c.trailing() {
		err = ErrTrailingInput
	} else {
		off = c.farthest
	}
	pos := c.position(off)

	lineStart := off - (pos.Column - 1)
	lineEnd := strings.IndexAny(c.input[lineStart:], "\r\n")
	if lineEnd < 0 {
		lineEnd = len(c.input)
	} else {
		lineEnd += lineStart
	}

	var expected []string
	if c.farthest == off {
		expected = append(expected, c.expected...)
		sort.Strings(expected)
	}
	return &SyntaxError{
		Pos:      pos,
		Line:     c.input[lineStart:lineEnd],
		Expected: expected,
		Err:      err,
	}
}

// ---------------------------------------------------------------------------
// Positions
// ---------------------------------------------------------------------------

// position converts a byte offset to a line/column position.
func (c *cursor) position(offset int) Position {
	if c.lines == nil {
		c.lines = []int{0}
		for i := 0; i < len(c.input); i++ {
			if c.input[i] == '\n' {
				c.lines = append(c.lines, i+1)
			}
		}
	}
	line := sort.Search(len(c.lines), func(i int) bool { return c.lines[i] > offset }) - 1
	return Position{Offset: offset, Line: line + 1, Column: offset - c.lines[line] + 1}
}

func (c *cursor) span(start int) Span {
	return Span{Start: c.position(start), End: c.position(c.pos)}
}

// ---------------------------------------------------------------------------
// Rules
// ---------------------------------------------------------------------------

// text consumes runs of bytes not in stop, interleaved with double-quoted
// string literals, so that punctuation inside quotes never ends the scan.
func (c *cursor) text(stop string) string {
	start := c.pos
	for !c.eof() {
		if c.peek() == '"' {
			if _, ok := c.stringLiteral(); !ok {
				break
			}
			continue
		}
		if strings.IndexByte(stop, c.peek()) >= 0 {
			break
		}
		c.pos++
	}
	return c.input[start:c.pos]
}

// rule parses a `property: value` declaration.
func (c *cursor) rule() (*Rule, bool) {
	start := c.pos
	prop, ok := c.symbol()
	if !ok {
		return nil, false
	}
	c.comment0()
	if !c.literal(":") {
		c.pos = start
		return nil, false
	}
	c.comment0()
	value := c.text(`";}`)
	return &Rule{
		SpanVal:  c.span(start),
		Property: prop,
		Value:    strings.TrimRight(value, " \t\r\n"),
	}, true
}

// treeRule parses a nested ruleset or, failing that, a declaration. Either is
// followed by separators.
func (c *cursor) treeRule() (TreeRule, bool) {
	if rs, ok := c.treeRuleset(); ok {
		c.sep0()
		return rs, true
	}
	if r, ok := c.rule(); ok {
		c.sep0()
		return r, true
	}
	return nil, false
}

// body parses `{` followed by TreeRules and a closing `}`. At least min
// entries are required.
func (c *cursor) body(min int) ([]TreeRule, bool) {
	start := c.pos
	if !c.literal("{") {
		return nil, false
	}
	c.sep0()
	var rules []TreeRule
	for {
		r, ok := c.treeRule()
		if !ok {
			break
		}
		rules = append(rules, r)
	}
	if len(rules) < min {
		c.pos = start
		return nil, false
	}
	c.comment0()
	if !c.literal("}") {
		c.pos = start
		return nil, false
	}
	return rules, true
}

// ---------------------------------------------------------------------------
// Rulesets
// ---------------------------------------------------------------------------

// treeRuleset parses an at-rule (bodiless or with a body) or a selector
// ruleset.
func (c *cursor) treeRuleset() (TreeRuleset, bool) {
	if c.peek() == '@' {
		return c.qualRuleset()
	}
	return c.selectorRuleset()
}

// qualRuleset parses `@qualifier;` or `@qualifier { rules }`.
func (c *cursor) qualRuleset() (TreeRuleset, bool) {
	start := c.pos
	c.pos++ // consume '@'
	if c.text(`";{}`) == "" {
		c.expect("at-rule")
		c.pos = start
		return nil, false
	}
	qual := strings.TrimRight(c.input[start:c.pos], " \t\r\n")

	if c.literal(";") {
		return &QualRule{SpanVal: c.span(start), Text: qual}, true
	}
	body, ok := c.body(1)
	if !ok {
		c.pos = start
		return nil, false
	}
	return &QualRuleset{SpanVal: c.span(start), Qualifier: qual, Body: body}, true
}

// selectorRuleset parses `selector, ... { rules }`. The body may be empty.
func (c *cursor) selectorRuleset() (TreeRuleset, bool) {
	start := c.pos
	list, ok := c.selectorList()
	if !ok {
		return nil, false
	}
	c.comment0()
	body, ok := c.body(0)
	if !ok {
		c.pos = start
		return nil, false
	}
	return &SelectorRuleset{SpanVal: c.span(start), Selectors: list, Body: body}, true
}

// tree parses as many top-level rulesets as possible. The caller checks for
// leftover input.
func (c *cursor) tree() Tree {
	tree := Tree{}
	c.sep0()
	for !c.eof() {
		rs, ok := c.treeRuleset()
		if !ok {
			break
		}
		tree = append(tree, rs)
		c.sep0()
	}
	return tree
}
