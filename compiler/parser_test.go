package compiler

import (
	"errors"
	"strings"
	"testing"
)

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"div{color:red}", "div{color:red;}"},
		{"div{color:red;font:sans}", "div{color:red;font:sans;}"},
		{"div{color:red}a{color:green}", "div{color:red;}a{color:green;}"},
		{" div { color : red } a { color : green } ", "div{color:red;}a{color:green;}"},
		{"\n div {\n  color: red;\n }\n\n a {\n  color: green\n }\n", "div{color:red;}a{color:green;}"},
		{"div{div{color:red}}", "div{div{color:red;}}"},
		{"div{}", "div{}"},
		{"div{;;color:red;;}", "div{color:red;}"},
		{"@import \"test\";div{color:green}", "@import \"test\";div{color:green;}"},
		{"@meta { div { color: red; } }", "@meta{div{color:red;}}"},
		{"// comment\ndiv{/* x */color:red}", "div{color:red;}"},
		{"div, span{color:red}", "div,span{color:red;}"},
		{"div{width:calc(100% - 24px)}", "div{width:calc(100% - 24px);}"},
		{"", ""},
	}

	for _, tc := range tests {
		tree, err := Parse(tc.input)
		if err != nil {
			t.Errorf("Parse(%q): %v", tc.input, err)
			continue
		}
		if got := tree.String(); got != tc.want {
			t.Errorf("Parse(%q) renders %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParseTreeShape(t *testing.T) {
	tree := MustParse(`
		@mixin test { color: green; }
		div.open {
			color: red;
			@include test;
			span { opacity: 0 }
		}
	`)

	if len(tree) != 2 {
		t.Fatalf("len(tree) = %d, want 2", len(tree))
	}
	mixin, ok := tree[0].(*QualRuleset)
	if !ok {
		t.Fatalf("tree[0] = %T, want *QualRuleset", tree[0])
	}
	if mixin.Qualifier != "@mixin test" {
		t.Errorf("Qualifier = %q", mixin.Qualifier)
	}

	rs, ok := tree[1].(*SelectorRuleset)
	if !ok {
		t.Fatalf("tree[1] = %T, want *SelectorRuleset", tree[1])
	}
	if len(rs.Body) != 3 {
		t.Fatalf("len(body) = %d, want 3", len(rs.Body))
	}
	if r, ok := rs.Body[0].(*Rule); !ok || r.Property != "color" || r.Value != "red" {
		t.Errorf("body[0] = %#v", rs.Body[0])
	}
	if q, ok := rs.Body[1].(*QualRule); !ok || q.Text != "@include test" {
		t.Errorf("body[1] = %#v", rs.Body[1])
	}
	if _, ok := rs.Body[2].(*SelectorRuleset); !ok {
		t.Errorf("body[2] = %T, want *SelectorRuleset", rs.Body[2])
	}
}

func TestParseRuleValues(t *testing.T) {
	tests := []struct {
		input    string
		property string
		value    string
	}{
		{`--column-selector--background: url("test")`, "--column-selector--background", `url("test")`},
		{`test: "\1234"`, "test", `"\1234"`},
		{`test: ": test ; alpha"`, "test", `": test ; alpha"`},
		{`test: "a } b" x`, "test", `"a } b" x`},
		{`color :   red  `, "color", "red"},
		{`content:`, "content", ""},
	}

	for _, tc := range tests {
		c := newCursor(tc.input, false)
		r, ok := c.rule()
		if !ok {
			t.Errorf("rule(%q) failed", tc.input)
			continue
		}
		if !c.eof() {
			t.Errorf("rule(%q) left %q", tc.input, c.input[c.pos:])
		}
		if r.Property != tc.property || r.Value != tc.value {
			t.Errorf("rule(%q) = (%q, %q), want (%q, %q)", tc.input, r.Property, r.Value, tc.property, tc.value)
		}
	}
}

func TestParseQualifiers(t *testing.T) {
	tree := MustParse(`@media (max-width: 1250px) { div { color: red; } }
@evilred: #FF1111;
@import url("ref://test");`)

	if len(tree) != 3 {
		t.Fatalf("len(tree) = %d, want 3", len(tree))
	}
	if q := tree[0].(*QualRuleset).Qualifier; q != "@media (max-width: 1250px)" {
		t.Errorf("qualifier = %q", q)
	}
	if q := tree[1].(*QualRule).Text; q != "@evilred: #FF1111" {
		t.Errorf("var text = %q", q)
	}
	if q := tree[2].(*QualRule).Text; q != `@import url("ref://test")` {
		t.Errorf("import text = %q", q)
	}
}

func TestParseSpans(t *testing.T) {
	tree := MustParse("a{color:red}\n\nspan {\n  color: blue;\n}")
	rs := tree[1].(*SelectorRuleset)
	if rs.SpanVal.Start.Line != 3 || rs.SpanVal.Start.Column != 1 {
		t.Errorf("ruleset start = %+v, want line 3 column 1", rs.SpanVal.Start)
	}
	if rs.SpanVal.End.Line != 5 {
		t.Errorf("ruleset end line = %d, want 5", rs.SpanVal.End.Line)
	}
	r := rs.Body[0].(*Rule)
	if r.SpanVal.Start.Line != 4 || r.SpanVal.Start.Column != 3 {
		t.Errorf("rule start = %+v, want line 4 column 3", r.SpanVal.Start)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input    string
		trailing bool
		line     int
	}{
		{"div{color:red", false, 1},
		{"div{color:red}}", true, 1},
		{"div{\n  color: red;\n  span {\n}", false, 4},
		{"@media screen {}", false, 1},
		{"{color:red}", true, 1},
		{"div{color:\"red}", false, 1},
	}

	for _, tc := range tests {
		_, err := Parse(tc.input)
		if err == nil {
			t.Errorf("Parse(%q) succeeded, want error", tc.input)
			continue
		}
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Errorf("Parse(%q) error %T, want *SyntaxError", tc.input, err)
			continue
		}
		if se.Pos.Line != tc.line {
			t.Errorf("Parse(%q) error line = %d, want %d", tc.input, se.Pos.Line, tc.line)
		}
		if got := errors.Is(err, ErrTrailingInput); got != tc.trailing {
			t.Errorf("Parse(%q) trailing = %v, want %v", tc.input, got, tc.trailing)
		}

		_, fastErr := ParseFast(tc.input)
		if !errors.Is(fastErr, ErrSyntax) {
			t.Errorf("ParseFast(%q) = %v, want ErrSyntax", tc.input, fastErr)
		}
		if got := errors.Is(fastErr, ErrTrailingInput); got != tc.trailing {
			t.Errorf("ParseFast(%q) trailing = %v, want %v", tc.input, got, tc.trailing)
		}
	}
}

func TestSyntaxErrorMessage(t *testing.T) {
	_, err := Parse("div {\n  color: red\n")
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "line 3, column 1: expected ") {
		t.Errorf("message = %q", msg)
	}
	if !strings.Contains(msg, `"}"`) {
		t.Errorf("message %q does not mention the closing brace", msg)
	}
}

func TestParseFastMatchesParse(t *testing.T) {
	inputs := []string{
		"div{color:red}",
		"div{&:hover{color:red}}",
		"@media (min-width:50px){div{color:red}div span{color:blue}}",
		"div{color:red",
		"}",
	}
	for _, input := range inputs {
		strict, err1 := Parse(input)
		fast, err2 := ParseFast(input)
		if (err1 == nil) != (err2 == nil) {
			t.Errorf("%q: Parse err = %v, ParseFast err = %v", input, err1, err2)
			continue
		}
		if err1 == nil && strict.String() != fast.String() {
			t.Errorf("%q: Parse = %q, ParseFast = %q", input, strict.String(), fast.String())
		}
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse did not panic")
		}
	}()
	MustParse("div{")
}
