package transform

import (
	"testing"

	"github.com/chazu/procss/compiler"
)

func TestApplyVar(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			"simple",
			"@evilred: #FF1111; div.open { color: @evilred; }",
			"div.open{color:#FF1111;}",
		},
		{
			"overlapping name",
			"@blue: #CCCCFF; @bluemore: #0000FF; div.open { color: @bluemore; }",
			"div.open{color:#0000FF;}",
		},
		{
			"several references",
			"@w: 1px; @c: red; div { border: @w solid @c; }",
			"div{border:1px solid red;}",
		},
		{
			"earlier binding in later value",
			"@base: 4px; @pad: @base; div { padding: @pad; }",
			"div{padding:4px;}",
		},
		{
			"unbound reference left",
			"@a: 1; div { width: @b; }",
			"div{width:@b;}",
		},
		{
			"strings untouched",
			`@a: 1; div { content: "@a"; width: @a; }`,
			`div{content:"@a";width:1;}`,
		},
		{
			"nested declaration",
			"div { @gap: 2px; margin: @gap; }",
			"div{margin:2px;}",
		},
		{
			"qualifier substitution",
			"@bp: 600px; @media (min-width: @bp) { div { color: red; } }",
			"@media (min-width: 600px){div{color:red;}}",
		},
		{
			"at-rules are not bindings",
			"@import \"x\"; @a: red; div { color: @a; }",
			"@import \"x\";div{color:red;}",
		},
	}

	for _, tc := range tests {
		tree, err := compiler.Parse(tc.input)
		if err != nil {
			t.Errorf("%s: Parse: %v", tc.name, err)
			continue
		}
		ApplyVar(&tree)
		if got := tree.Flatten().String(); got != tc.want {
			t.Errorf("%s:\n got: %s\nwant: %s", tc.name, got, tc.want)
		}
	}
}

func TestParseBinding(t *testing.T) {
	tests := []struct {
		text  string
		name  string
		value string
		ok    bool
	}{
		{"@evilred: #FF1111", "evilred", "#FF1111", true},
		{"@x :  1px  2px", "x", "1px  2px", true},
		{"@--custom: a", "--custom", "a", true},
		{"@media screen", "", "", false},
		{`@import "x"`, "", "", false},
		{"@1x: 2", "", "", false},
	}

	for _, tc := range tests {
		b, ok := ParseBinding(tc.text)
		if ok != tc.ok || b.Name != tc.name || b.Value != tc.value {
			t.Errorf("ParseBinding(%q) = (%+v, %v), want (%q, %q, %v)", tc.text, b, ok, tc.name, tc.value, tc.ok)
		}
	}
}

func TestSubstitute(t *testing.T) {
	env := map[string]string{"a": "1", "ab": "2"}
	tests := []struct {
		input string
		want  string
	}{
		{"@a", "1"},
		{"@ab", "2"},
		{"@abc", "@abc"},
		{"@a,@ab", "1,2"},
		{`"@a" @a`, `"@a" 1`},
		{"a@", "a@"},
		{"no refs", "no refs"},
	}

	for _, tc := range tests {
		if got := Substitute(tc.input, env); got != tc.want {
			t.Errorf("Substitute(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
