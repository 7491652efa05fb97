package transform

import (
	"github.com/chazu/procss/compiler"
)

// Dedupe merges neighbouring rulesets of a flat stylesheet: consecutive
// identical bodiless at-rules collapse to one, and consecutive selector
// rulesets with the same selector list have their declarations
// concatenated. Only adjacent entries merge, so cascade order is unchanged.
// At-rule wrappers are deduplicated recursively.
func Dedupe(css *compiler.Css) {
	*css = dedupe(*css)
}

func dedupe(css compiler.Css) compiler.Css {
	out := make(compiler.Css, 0, len(css))
	var prevSel string
	for _, rs := range css {
		if nested, ok := rs.(*compiler.QualNestedRuleset); ok {
			nested.Body = dedupe(nested.Body)
		}
		if len(out) == 0 {
			out = append(out, rs)
			prevSel = selectorKey(rs)
			continue
		}

		last := out[len(out)-1]
		switch n := rs.(type) {
		case *compiler.QualRule:
			if q, ok := last.(*compiler.QualRule); ok && q.Text == n.Text {
				continue
			}
		case *compiler.FlatSelectorRuleset:
			if s, ok := last.(*compiler.FlatSelectorRuleset); ok && prevSel == selectorKey(n) {
				merged := &compiler.FlatSelectorRuleset{
					Selectors: s.Selectors,
					Rules:     append(append([]compiler.Rule(nil), s.Rules...), n.Rules...),
				}
				out[len(out)-1] = merged
				continue
			}
		}
		out = append(out, rs)
		prevSel = selectorKey(rs)
	}
	return out
}

// selectorKey is the rendered selector list of a selector ruleset, or empty.
func selectorKey(rs compiler.FlatRuleset) string {
	if n, ok := rs.(*compiler.FlatSelectorRuleset); ok {
		return n.Selectors.String()
	}
	return ""
}
