package compiler

// ---------------------------------------------------------------------------
// AST: nested CSS+ trees and flat CSS
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// ---------------------------------------------------------------------------
// Selectors
// ---------------------------------------------------------------------------

// AttrSelector matches an attribute, optionally against a value. Value keeps
// its surrounding quotes when the source quoted it.
type AttrSelector struct {
	Name  string
	Op    string // "=", "~=", "|=", "^=", "$=", "*=", or "" when Value is empty
	Value string
}

// PseudoMode distinguishes `:class` from `::element`.
type PseudoMode int

const (
	PseudoClass PseudoMode = iota
	PseudoElement
)

// Pseudo is a pseudo-class or pseudo-element qualifier, with an optional
// parenthesized argument such as `:not(.x)` or `:nth-child(2)`.
type Pseudo struct {
	Property string
	Arg      *SelectorTerm
	Mode     PseudoMode
}

// Qualifiers is the part of a compound selector shared by ordinary terms and
// self-references.
type Qualifiers struct {
	ID      string
	Classes []string
	Attrs   []AttrSelector
	Pseudos []Pseudo
}

// empty reports whether no qualifier is present.
func (q Qualifiers) empty() bool {
	return q.ID == "" && len(q.Classes) == 0 && len(q.Attrs) == 0 && len(q.Pseudos) == 0
}

// join appends other's qualifiers after q's. The id of other replaces q's
// id when both are set.
func (q Qualifiers) join(other Qualifiers) Qualifiers {
	out := Qualifiers{ID: q.ID}
	if other.ID != "" {
		out.ID = other.ID
	}
	out.Classes = append(append([]string(nil), q.Classes...), other.Classes...)
	out.Attrs = append(append([]AttrSelector(nil), q.Attrs...), other.Attrs...)
	out.Pseudos = append(append([]Pseudo(nil), q.Pseudos...), other.Pseudos...)
	return out
}

func (q Qualifiers) clone() Qualifiers {
	out := Qualifiers{ID: q.ID}
	out.Classes = append([]string(nil), q.Classes...)
	out.Attrs = append([]AttrSelector(nil), q.Attrs...)
	if q.Pseudos != nil {
		out.Pseudos = make([]Pseudo, len(q.Pseudos))
		for i, p := range q.Pseudos {
			out.Pseudos[i] = p
			if p.Arg != nil {
				arg := p.Arg.Clone()
				out.Pseudos[i].Arg = &arg
			}
		}
	}
	return out
}

// SelectorTerm is a compound selector: an optional tag plus qualifiers.
type SelectorTerm struct {
	Tag string
	Qualifiers
}

// Join merges a self-reference (`&...`) into this term.
func (t SelectorTerm) Join(self SelfTerm) SelectorTerm {
	return SelectorTerm{Tag: t.Tag, Qualifiers: t.Qualifiers.join(self.Qualifiers)}
}

// Clone returns a deep copy of t.
func (t SelectorTerm) Clone() SelectorTerm {
	return SelectorTerm{Tag: t.Tag, Qualifiers: t.Qualifiers.clone()}
}

// SelfTerm is a self-referencing compound selector (`&.open:hover`). It has
// no tag slot.
type SelfTerm struct {
	Qualifiers
}

// Combinator relates two selector terms.
type Combinator int

const (
	CombinatorNone     Combinator = iota // descendant, rendered as a space
	CombinatorChild                      // >
	CombinatorSibling                    // ~
	CombinatorAdjacent                   // +
)

func (c Combinator) String() string {
	switch c {
	case CombinatorChild:
		return ">"
	case CombinatorSibling:
		return "~"
	case CombinatorAdjacent:
		return "+"
	}
	return " "
}

// Step is one (combinator, term) pair of a selector.
type Step struct {
	Combinator Combinator
	Term       SelectorTerm
}

// Selector is a complex selector. When Self is nil, Steps holds at least one
// element and Steps[0].Combinator is CombinatorNone. When Self is set the
// selector begins with `&` and every step hangs off it.
type Selector struct {
	Self  *SelfTerm
	Steps []Step
}

// Join composes s with a child selector found nested inside it.
func (s Selector) Join(child Selector) Selector {
	out := s.Clone()
	if child.Self == nil {
		return Selector{Self: out.Self, Steps: append(out.Steps, cloneSteps(child.Steps)...)}
	}
	if n := len(out.Steps); n > 0 {
		out.Steps[n-1].Term = out.Steps[n-1].Term.Join(*child.Self)
	} else if out.Self != nil {
		out.Self = &SelfTerm{Qualifiers: out.Self.Qualifiers.join(child.Self.Qualifiers)}
	} else {
		self := SelfTerm{Qualifiers: child.Self.Qualifiers.clone()}
		out.Self = &self
	}
	out.Steps = append(out.Steps, cloneSteps(child.Steps)...)
	return out
}

// Clone returns a deep copy of s.
func (s Selector) Clone() Selector {
	var out Selector
	if s.Self != nil {
		self := SelfTerm{Qualifiers: s.Self.Qualifiers.clone()}
		out.Self = &self
	}
	out.Steps = cloneSteps(s.Steps)
	return out
}

func cloneSteps(steps []Step) []Step {
	if steps == nil {
		return nil
	}
	out := make([]Step, len(steps))
	for i, st := range steps {
		out[i] = Step{Combinator: st.Combinator, Term: st.Term.Clone()}
	}
	return out
}

// SelectorList is a comma-separated list of selectors; it always holds at
// least one selector.
type SelectorList []Selector

// Join composes every parent selector with every child selector, parent-major.
func (l SelectorList) Join(child SelectorList) SelectorList {
	out := make(SelectorList, 0, len(l)*len(child))
	for _, p := range l {
		for _, c := range child {
			out = append(out, p.Join(c))
		}
	}
	return out
}

// Clone returns a deep copy of l.
func (l SelectorList) Clone() SelectorList {
	out := make(SelectorList, len(l))
	for i, s := range l {
		out[i] = s.Clone()
	}
	return out
}

// SelfSelector returns the bare `&` selector list.
func SelfSelector() SelectorList {
	return SelectorList{{Self: &SelfTerm{}}}
}

// ---------------------------------------------------------------------------
// Rules and rulesets
// ---------------------------------------------------------------------------

// Node is the interface implemented by all rule and ruleset nodes.
type Node interface {
	node() // marker method
}

// TreeRule is an entry of a nested ruleset body: a *Rule or a nested
// TreeRuleset.
type TreeRule interface {
	Node
	Span() Span
	treeRule() // marker method
}

// TreeRuleset is a ruleset as produced by the parser: *QualRule,
// *QualRuleset or *SelectorRuleset.
type TreeRuleset interface {
	TreeRule
	treeRuleset() // marker method
}

// FlatRuleset is a ruleset of a flattened stylesheet: *QualRule,
// *FlatQualRuleset, *QualNestedRuleset or *FlatSelectorRuleset.
type FlatRuleset interface {
	Node
	flatRuleset() // marker method
}

// Rule is a single `property: value` declaration. Value is the raw source
// text.
type Rule struct {
	SpanVal  Span
	Property string
	Value    string
}

func (n *Rule) Span() Span { return n.SpanVal }
func (n *Rule) node()      {}
func (n *Rule) treeRule()  {}

// QualRule is a bodiless at-rule terminated by `;`, e.g. `@import "x";`.
// Text holds the qualifier including the leading `@`.
type QualRule struct {
	SpanVal Span
	Text    string
}

func (n *QualRule) Span() Span   { return n.SpanVal }
func (n *QualRule) node()        {}
func (n *QualRule) treeRule()    {}
func (n *QualRule) treeRuleset() {}
func (n *QualRule) flatRuleset() {}

// QualRuleset is an at-rule with a body, e.g. `@media (...) { ... }`.
type QualRuleset struct {
	SpanVal   Span
	Qualifier string
	Body      []TreeRule
}

func (n *QualRuleset) Span() Span   { return n.SpanVal }
func (n *QualRuleset) node()        {}
func (n *QualRuleset) treeRule()    {}
func (n *QualRuleset) treeRuleset() {}

// SelectorRuleset is a selector list with a body.
type SelectorRuleset struct {
	SpanVal   Span
	Selectors SelectorList
	Body      []TreeRule
}

func (n *SelectorRuleset) Span() Span   { return n.SpanVal }
func (n *SelectorRuleset) node()        {}
func (n *SelectorRuleset) treeRule()    {}
func (n *SelectorRuleset) treeRuleset() {}

// FlatQualRuleset is an at-rule whose body holds only declarations.
type FlatQualRuleset struct {
	Qualifier string
	Rules     []Rule
}

func (n *FlatQualRuleset) node()        {}
func (n *FlatQualRuleset) flatRuleset() {}

// QualNestedRuleset is an at-rule wrapping already flattened rulesets. Only
// flattening constructs it.
type QualNestedRuleset struct {
	Qualifier string
	Body      Css
}

func (n *QualNestedRuleset) node()        {}
func (n *QualNestedRuleset) flatRuleset() {}

// FlatSelectorRuleset is a selector list with a body of declarations only.
type FlatSelectorRuleset struct {
	Selectors SelectorList
	Rules     []Rule
}

func (n *FlatSelectorRuleset) node()        {}
func (n *FlatSelectorRuleset) flatRuleset() {}

// Tree is a parsed CSS+ stylesheet with arbitrary nesting.
type Tree []TreeRuleset

// Css is a flattened stylesheet, ready for rendering.
type Css []FlatRuleset

// ---------------------------------------------------------------------------
// Deep copies
// ---------------------------------------------------------------------------

// Clone returns a deep copy of t. Imports splice copies, never shared nodes.
func (t Tree) Clone() Tree {
	if t == nil {
		return nil
	}
	out := make(Tree, len(t))
	for i, rs := range t {
		out[i] = CloneTreeRule(rs).(TreeRuleset)
	}
	return out
}

// CloneBody returns a deep copy of a ruleset body.
func CloneBody(body []TreeRule) []TreeRule {
	if body == nil {
		return nil
	}
	out := make([]TreeRule, len(body))
	for i, r := range body {
		out[i] = CloneTreeRule(r)
	}
	return out
}

// CloneTreeRule returns a deep copy of r.
func CloneTreeRule(r TreeRule) TreeRule {
	switch n := r.(type) {
	case *Rule:
		c := *n
		return &c
	case *QualRule:
		c := *n
		return &c
	case *QualRuleset:
		return &QualRuleset{SpanVal: n.SpanVal, Qualifier: n.Qualifier, Body: CloneBody(n.Body)}
	case *SelectorRuleset:
		return &SelectorRuleset{SpanVal: n.SpanVal, Selectors: n.Selectors.Clone(), Body: CloneBody(n.Body)}
	}
	return r
}
