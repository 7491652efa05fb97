package transform

import (
	"testing"

	"github.com/chazu/procss/compiler"
)

func TestDedupe(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"adjacent equal selectors", "a{x:1}a{y:2}", "a{x:1;y:2;}"},
		{"non-adjacent kept apart", "a{x:1}b{y:2}a{z:3}", "a{x:1;}b{y:2;}a{z:3;}"},
		{"three in a row", "a{x:1}a{y:2}a{z:3}", "a{x:1;y:2;z:3;}"},
		{"selector lists compared whole", "a,b{x:1}a,b{y:2}a{z:3}", "a,b{x:1;y:2;}a{z:3;}"},
		{"equal qualified rules", `@import "x";@import "x";@import "y";`, `@import "x";@import "y";`},
		{"at-rule with body not merged", "@font-face{a:b}@font-face{c:d}", "@font-face{a:b;}@font-face{c:d;}"},
		{"inside wrappers", "@media print{a{x:1}a{y:2}}", "@media print{a{x:1;y:2;}}"},
		{"split by nesting", "a{x:1;b{y:2}z:3}", "a{x:1;}a b{y:2;}a{z:3;}"},
		{"rejoined after nesting", "a{x:1;&{y:2}z:3}", "a{x:1;y:2;z:3;}"},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		css := compiler.MustParse(tc.input).Flatten()
		Dedupe(&css)
		if got := css.String(); got != tc.want {
			t.Errorf("%s:\n got: %s\nwant: %s", tc.name, got, tc.want)
		}
	}
}
