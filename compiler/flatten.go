package compiler

import (
	"strings"
	"unicode"
)

// ---------------------------------------------------------------------------
// Flattening: nested Tree -> flat Css
// ---------------------------------------------------------------------------

// Flatten expands every nested selector ruleset of t into a flat sequence of
// rulesets. Declaration order is preserved: a run of declarations interrupted
// by a nested block is emitted as two rulesets on either side of the block's
// output. At-rule wrappers such as @media stay nested around their flattened
// content.
func (t Tree) Flatten() Css {
	out := Css{}
	for _, rs := range t {
		out = append(out, flattenRuleset(rs)...)
	}
	return out
}

func flattenRuleset(rs TreeRuleset) Css {
	switch n := rs.(type) {
	case *QualRule:
		c := *n
		return Css{&c}
	case *QualRuleset:
		return flattenQualified(n.Qualifier, n.Body)
	case *SelectorRuleset:
		return flattenSelector(n.Selectors, n.Body)
	}
	return nil
}

// flattenQualified splits an at-rule body into its declarations, emitted
// first, and one wrapper holding every flattened nested ruleset.
func flattenQualified(qual string, body []TreeRule) Css {
	var rules []Rule
	var nested Css
	for _, r := range body {
		switch n := r.(type) {
		case *Rule:
			rules = append(rules, *n)
		case TreeRuleset:
			nested = append(nested, flattenRuleset(n)...)
		}
	}

	var out Css
	if len(rules) > 0 {
		out = append(out, &FlatQualRuleset{Qualifier: qual, Rules: rules})
	}
	if len(nested) > 0 {
		out = append(out, &QualNestedRuleset{Qualifier: qual, Body: nested})
	}
	return out
}

// flattenSelector walks a selector body in order. Consecutive declarations
// form a group; each nested ruleset flushes the pending group and is
// flattened recursively, its selectors joined onto sel.
func flattenSelector(sel SelectorList, body []TreeRule) Css {
	var out Css
	var group []Rule
	flush := func() {
		if len(group) > 0 {
			out = append(out, &FlatSelectorRuleset{Selectors: sel.Clone(), Rules: group})
			group = nil
		}
	}

	for _, r := range body {
		switch n := r.(type) {
		case *Rule:
			group = append(group, *n)
		case TreeRuleset:
			flush()
			for _, child := range flattenRuleset(n) {
				out = append(out, joinFlat(sel, child))
			}
		}
	}
	flush()
	return out
}

// joinFlat composes a flattened child ruleset with its enclosing selector.
// Conditional group at-rules (@media, @supports, ...) bubble up to the top
// level with the parent selector pushed inside them. Any other at-rule, such
// as @font-face or @keyframes, does not select elements and passes through
// unchanged.
func joinFlat(parent SelectorList, rs FlatRuleset) FlatRuleset {
	switch n := rs.(type) {
	case *FlatSelectorRuleset:
		return &FlatSelectorRuleset{Selectors: parent.Join(n.Selectors), Rules: n.Rules}
	case *FlatQualRuleset:
		if !conditionalAtRule(n.Qualifier) {
			return n
		}
		return &QualNestedRuleset{
			Qualifier: n.Qualifier,
			Body:      Css{&FlatSelectorRuleset{Selectors: parent.Clone(), Rules: n.Rules}},
		}
	case *QualNestedRuleset:
		if !conditionalAtRule(n.Qualifier) {
			return n
		}
		body := make(Css, len(n.Body))
		for i, inner := range n.Body {
			body[i] = joinFlat(parent, inner)
		}
		return &QualNestedRuleset{Qualifier: n.Qualifier, Body: body}
	}
	return rs
}

// conditionalAt are the at-rules whose body applies to the enclosing rules
// under a condition.
var conditionalAt = map[string]bool{
	"media":     true,
	"supports":  true,
	"container": true,
	"layer":     true,
	"document":  true,
	"scope":     true,
}

// conditionalAtRule reports whether qual, an at-rule header, opens a
// conditional group.
func conditionalAtRule(qual string) bool {
	name, ok := strings.CutPrefix(strings.TrimSpace(qual), "@")
	if !ok {
		return false
	}
	end := strings.IndexFunc(name, func(r rune) bool {
		return !(r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r))
	})
	if end >= 0 {
		name = name[:end]
	}
	return conditionalAt[strings.ToLower(name)]
}

// Tree converts flat rulesets back into tree form. Flattening the result
// yields css again.
func (css Css) Tree() Tree {
	out := make(Tree, 0, len(css))
	for _, rs := range css {
		out = append(out, unflatten(rs))
	}
	return out
}

func unflatten(rs FlatRuleset) TreeRuleset {
	switch n := rs.(type) {
	case *QualRule:
		c := *n
		return &c
	case *FlatQualRuleset:
		return &QualRuleset{Qualifier: n.Qualifier, Body: ruleBody(n.Rules)}
	case *QualNestedRuleset:
		body := make([]TreeRule, 0, len(n.Body))
		for _, inner := range n.Body {
			body = append(body, unflatten(inner))
		}
		return &QualRuleset{Qualifier: n.Qualifier, Body: body}
	case *FlatSelectorRuleset:
		return &SelectorRuleset{Selectors: n.Selectors.Clone(), Body: ruleBody(n.Rules)}
	}
	return nil
}

func ruleBody(rules []Rule) []TreeRule {
	body := make([]TreeRule, len(rules))
	for i := range rules {
		r := rules[i]
		body[i] = &r
	}
	return body
}
