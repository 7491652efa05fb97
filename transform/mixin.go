package transform

import (
	"github.com/chazu/procss/compiler"
)

// Mixins collects the `@mixin name { ... }` declarations of tree, at any
// depth, keyed by name. A later declaration replaces an earlier one.
func Mixins(tree compiler.Tree) map[string]*compiler.QualRuleset {
	mixins := make(map[string]*compiler.QualRuleset)
	walkTree(tree, func(r compiler.TreeRule) {
		if name, ok := mixinName(r); ok {
			mixins[name] = r.(*compiler.QualRuleset)
		}
	})
	return mixins
}

func mixinName(r compiler.TreeRule) (string, bool) {
	q, ok := r.(*compiler.QualRuleset)
	if !ok {
		return "", false
	}
	kw, name := atKeyword(q.Qualifier)
	return name, kw == "mixin" && name != ""
}

func includeName(r compiler.TreeRule) (string, bool) {
	q, ok := r.(*compiler.QualRule)
	if !ok {
		return "", false
	}
	kw, name := atKeyword(q.Text)
	return name, kw == "include" && name != ""
}

// ApplyMixin removes every @mixin declaration from tree and expands
// `@include name;` statements with a copy of the named body.
//
// Inside a selector ruleset the copy becomes a nested `&{...}` block, so its
// declarations flatten into a group of their own right where the include
// stood. Inside an at-rule body the copied entries are spliced in directly.
// Includes found in an inserted body are expanded in turn; an include that
// names a mixin already being expanded, or no known mixin, is left as
// written. Top-level includes have no selector to attach to and are left too.
func ApplyMixin(tree *compiler.Tree) {
	mixins := Mixins(*tree)
	if len(mixins) == 0 {
		return
	}
	filterTree(tree, func(r compiler.TreeRule) bool {
		_, ok := mixinName(r)
		return ok
	})

	ex := &expander{mixins: mixins}
	for _, rs := range *tree {
		ex.expandRuleset(rs)
	}
}

type expander struct {
	mixins map[string]*compiler.QualRuleset
	stack  []string
}

func (ex *expander) active(name string) bool {
	for _, n := range ex.stack {
		if n == name {
			return true
		}
	}
	return false
}

func (ex *expander) expandRuleset(rs compiler.TreeRule) {
	switch n := rs.(type) {
	case *compiler.SelectorRuleset:
		n.Body = ex.expandBody(n.Body, true)
	case *compiler.QualRuleset:
		n.Body = ex.expandBody(n.Body, false)
	}
}

func (ex *expander) expandBody(body []compiler.TreeRule, underSelector bool) []compiler.TreeRule {
	out := make([]compiler.TreeRule, 0, len(body))
	for _, r := range body {
		name, ok := includeName(r)
		if !ok {
			ex.expandRuleset(r)
			out = append(out, r)
			continue
		}
		mixin, found := ex.mixins[name]
		if !found || ex.active(name) {
			out = append(out, r)
			continue
		}

		ex.stack = append(ex.stack, name)
		inserted := ex.expandBody(compiler.CloneBody(mixin.Body), underSelector)
		ex.stack = ex.stack[:len(ex.stack)-1]

		if underSelector {
			out = append(out, &compiler.SelectorRuleset{
				SpanVal:   mixin.SpanVal,
				Selectors: compiler.SelfSelector(),
				Body:      inserted,
			})
		} else {
			out = append(out, inserted...)
		}
	}
	return out
}
