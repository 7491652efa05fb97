// Package transform implements the tree rewrites applied around flattening:
// import splicing, mixin expansion, variable substitution, URL inlining and
// de-duplication.
//
// Passes never fail on unresolved references. An @import, @include or @name
// that cannot be resolved is left in the tree as written.
package transform

import (
	"strings"

	"github.com/chazu/procss/compiler"
)

// bodyOf returns the body of a ruleset that has one, or nil.
func bodyOf(rs compiler.TreeRule) *[]compiler.TreeRule {
	switch n := rs.(type) {
	case *compiler.QualRuleset:
		return &n.Body
	case *compiler.SelectorRuleset:
		return &n.Body
	}
	return nil
}

// walk calls fn for every entry of body, depth first, parents before their
// children.
func walk(body []compiler.TreeRule, fn func(compiler.TreeRule)) {
	for _, r := range body {
		fn(r)
		if b := bodyOf(r); b != nil {
			walk(*b, fn)
		}
	}
}

// walkTree is walk over a whole tree.
func walkTree(tree compiler.Tree, fn func(compiler.TreeRule)) {
	for _, rs := range tree {
		fn(rs)
		if b := bodyOf(rs); b != nil {
			walk(*b, fn)
		}
	}
}

// filterBody removes every entry for which drop reports true, at any depth.
func filterBody(body []compiler.TreeRule, drop func(compiler.TreeRule) bool) []compiler.TreeRule {
	out := body[:0]
	for _, r := range body {
		if drop(r) {
			continue
		}
		if b := bodyOf(r); b != nil {
			*b = filterBody(*b, drop)
		}
		out = append(out, r)
	}
	return out
}

// filterTree is filterBody over a whole tree.
func filterTree(tree *compiler.Tree, drop func(compiler.TreeRule) bool) {
	out := (*tree)[:0]
	for _, rs := range *tree {
		if drop(rs) {
			continue
		}
		if b := bodyOf(rs); b != nil {
			*b = filterBody(*b, drop)
		}
		out = append(out, rs)
	}
	*tree = out
}

// atKeyword splits at-rule text into its keyword and the trimmed remainder:
// "@include  name" yields ("include", "name").
func atKeyword(text string) (keyword, rest string) {
	text = strings.TrimPrefix(text, "@")
	i := strings.IndexFunc(text, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '(' || r == '"'
	})
	if i < 0 {
		return text, ""
	}
	return text[:i], strings.TrimSpace(text[i:])
}
