package compiler

import (
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexical primitives shared by every grammar production
// ---------------------------------------------------------------------------

// cursor is a backtracking read position over CSS+ source. Productions save
// pos before trying an alternative and restore it when the alternative does
// not match.
type cursor struct {
	input string
	pos   int

	// Farthest failure. Expected alternatives are collected only in verbose
	// (strict) mode.
	verbose  bool
	farthest int
	expected []string

	lines []int // offsets of line starts, built on first use
}

func newCursor(input string, verbose bool) *cursor {
	return &cursor{input: input, verbose: verbose, farthest: -1}
}

func (c *cursor) eof() bool {
	return c.pos >= len(c.input)
}

// peek returns the current byte, or 0 at end of input.
func (c *cursor) peek() byte {
	if c.pos >= len(c.input) {
		return 0
	}
	return c.input[c.pos]
}

func (c *cursor) hasPrefix(s string) bool {
	return len(c.input)-c.pos >= len(s) && c.input[c.pos:c.pos+len(s)] == s
}

// expect records that what was expected at the current position.
func (c *cursor) expect(what string) {
	if !c.verbose {
		if c.pos > c.farthest {
			c.farthest = c.pos
		}
		return
	}
	switch {
	case c.pos > c.farthest:
		c.farthest = c.pos
		c.expected = append(c.expected[:0], what)
	case c.pos == c.farthest:
		for _, e := range c.expected {
			if e == what {
				return
			}
		}
		c.expected = append(c.expected, what)
	}
}

// literal consumes s if the input continues with it.
func (c *cursor) literal(s string) bool {
	if c.hasPrefix(s) {
		c.pos += len(s)
		return true
	}
	c.expect(`"` + s + `"`)
	return false
}

// ---------------------------------------------------------------------------
// Symbols and identifiers
// ---------------------------------------------------------------------------

func isSymbolByte(b byte) bool {
	return isAlnum(b) || b == '-' || b == '_' || b == '*' || b == '%'
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

func isHexDigit(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'f' || b >= 'A' && b <= 'F'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// symbol consumes one or more of alphanumerics, `-`, `_`, `*` and `%`.
func (c *cursor) symbol() (string, bool) {
	start := c.pos
	for c.pos < len(c.input) && isSymbolByte(c.input[c.pos]) {
		c.pos++
	}
	if c.pos == start {
		c.expect("symbol")
		return "", false
	}
	return c.input[start:c.pos], true
}

func isIdentStart(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '_' || r >= utf8.RuneSelf
}

func isIdentRune(r rune) bool {
	return isIdentStart(r) || r >= '0' && r <= '9' || r == '-'
}

// identifier consumes a CSS identifier: `--`, `-` followed by a start char,
// or a start char, then any run of identifier chars and escapes.
func (c *cursor) identifier() (string, bool) {
	start := c.pos
	switch {
	case c.hasPrefix("--"):
		c.pos += 2
	case c.peek() == '-':
		r, size := utf8.DecodeRuneInString(c.input[c.pos+1:])
		if size == 0 || !isIdentStart(r) {
			c.expect("identifier")
			return "", false
		}
		c.pos += 1 + size
	default:
		if c.eof() {
			c.expect("identifier")
			return "", false
		}
		r, size := utf8.DecodeRuneInString(c.input[c.pos:])
		if !isIdentStart(r) {
			c.expect("identifier")
			return "", false
		}
		c.pos += size
	}

	for !c.eof() {
		if c.peek() == '\\' {
			if !c.escape() {
				break
			}
			continue
		}
		r, size := utf8.DecodeRuneInString(c.input[c.pos:])
		if !isIdentRune(r) {
			break
		}
		c.pos += size
	}
	return c.input[start:c.pos], true
}

// escape consumes `\` followed by 1-6 hex digits and an optional space, or
// by a single non-whitespace character.
func (c *cursor) escape() bool {
	start := c.pos
	c.pos++ // consume backslash
	n := 0
	for n < 6 && c.pos < len(c.input) && isHexDigit(c.input[c.pos]) {
		c.pos++
		n++
	}
	if n > 0 {
		if c.peek() == ' ' {
			c.pos++
		}
		return true
	}
	if c.eof() || isSpace(c.peek()) {
		c.pos = start
		return false
	}
	_, size := utf8.DecodeRuneInString(c.input[c.pos:])
	c.pos += size
	return true
}

// ---------------------------------------------------------------------------
// String literals
// ---------------------------------------------------------------------------

// stringLiteral consumes a double-quoted string and returns it with both
// quote marks.
func (c *cursor) stringLiteral() (string, bool) {
	start := c.pos
	if c.peek() != '"' {
		c.expect("string")
		return "", false
	}
	c.pos++
	for c.pos < len(c.input) {
		switch b := c.input[c.pos]; {
		case b == '"':
			c.pos++
			return c.input[start:c.pos], true
		case b == '\\':
			if c.pos+1 >= len(c.input) {
				c.pos = len(c.input)
				break
			}
			next := c.input[c.pos+1]
			if isSpace(next) || next == '"' {
				c.expect("escape sequence")
				c.pos = start
				return "", false
			}
			_, size := utf8.DecodeRuneInString(c.input[c.pos+1:])
			c.pos += 1 + size
		default:
			c.pos++
		}
	}
	c.expect(`closing '"'`)
	c.pos = start
	return "", false
}

// ---------------------------------------------------------------------------
// Whitespace and comments
// ---------------------------------------------------------------------------

// comment consumes one whitespace run, `//` line comment or `/* */` block
// comment. An unterminated block comment does not match.
func (c *cursor) comment() bool {
	switch {
	case isSpace(c.peek()):
		for c.pos < len(c.input) && isSpace(c.input[c.pos]) {
			c.pos++
		}
		return true
	case c.hasPrefix("//"):
		c.pos += 2
		for c.pos < len(c.input) && c.input[c.pos] != '\n' && c.input[c.pos] != '\r' {
			c.pos++
		}
		return true
	case c.hasPrefix("/*"):
		for i := c.pos + 2; i+1 < len(c.input); i++ {
			if c.input[i] == '*' && c.input[i+1] == '/' {
				c.pos = i + 2
				return true
			}
		}
		c.expect(`"*/"`)
	}
	return false
}

// comment0 consumes zero or more whitespace runs and comments.
func (c *cursor) comment0() {
	for c.comment() {
	}
}

// comment1 consumes one or more whitespace runs and comments.
func (c *cursor) comment1() bool {
	if !c.comment() {
		return false
	}
	c.comment0()
	return true
}

// sep0 consumes whitespace, comments and stray semicolons between sibling
// rules.
func (c *cursor) sep0() {
	for {
		if c.comment1() {
			continue
		}
		if c.peek() == ';' {
			c.pos++
			continue
		}
		return
	}
}

// ---------------------------------------------------------------------------
// Standalone scanners
// ---------------------------------------------------------------------------

// ScanSymbol reads a symbol from the start of s and returns it with the
// remaining text.
func ScanSymbol(s string) (symbol, rest string, ok bool) {
	c := newCursor(s, false)
	symbol, ok = c.symbol()
	return symbol, s[c.pos:], ok
}

// ScanIdentifier reads a CSS identifier from the start of s and returns it
// with the remaining text.
func ScanIdentifier(s string) (ident, rest string, ok bool) {
	c := newCursor(s, false)
	ident, ok = c.identifier()
	return ident, s[c.pos:], ok
}

// ScanStringLiteral reads a double-quoted string literal, quotes included,
// from the start of s and returns it with the remaining text.
func ScanStringLiteral(s string) (literal, rest string, ok bool) {
	c := newCursor(s, false)
	literal, ok = c.stringLiteral()
	return literal, s[c.pos:], ok
}

// SkipComments strips leading whitespace and comments from s.
func SkipComments(s string) string {
	c := newCursor(s, false)
	c.comment0()
	return s[c.pos:]
}
