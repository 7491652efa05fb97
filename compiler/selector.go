package compiler

// ---------------------------------------------------------------------------
// Selector grammar
// ---------------------------------------------------------------------------

// attrOps lists attribute matcher operators, longest first.
var attrOps = []string{"~=", "|=", "^=", "$=", "*=", "="}

// selectorTerm parses a compound selector: an optional tag followed by any
// mixture of classes, ids, attributes and pseudos. An empty term does not
// match.
func (c *cursor) selectorTerm() (SelectorTerm, bool) {
	start := c.pos
	var t SelectorTerm
	if tag, ok := c.symbol(); ok {
		t.Tag = tag
	}
	t.Qualifiers = c.qualifiers()
	if t.Tag == "" && t.Qualifiers.empty() {
		c.pos = start
		c.expect("selector")
		return SelectorTerm{}, false
	}
	return t, true
}

// selfTerm parses `&` followed by qualifiers.
func (c *cursor) selfTerm() (SelfTerm, bool) {
	if !c.literal("&") {
		return SelfTerm{}, false
	}
	return SelfTerm{Qualifiers: c.qualifiers()}, true
}

// qualifiers consumes zero or more `.class`, `#id`, `[attr]` and `:pseudo`
// qualifiers. When several ids appear the last one wins.
func (c *cursor) qualifiers() Qualifiers {
	var q Qualifiers
	for {
		start := c.pos
		switch c.peek() {
		case '.':
			c.pos++
			if name, ok := c.symbol(); ok {
				q.Classes = append(q.Classes, name)
				continue
			}
		case '#':
			c.pos++
			if name, ok := c.symbol(); ok {
				q.ID = name
				continue
			}
		case ':':
			if p, ok := c.pseudo(); ok {
				q.Pseudos = append(q.Pseudos, p)
				continue
			}
		case '[':
			if a, ok := c.attr(); ok {
				q.Attrs = append(q.Attrs, a)
				continue
			}
		}
		c.pos = start
		return q
	}
}

// pseudo parses `:name`, `::name` and an optional `(term)` argument.
func (c *cursor) pseudo() (Pseudo, bool) {
	start := c.pos
	if !c.literal(":") {
		return Pseudo{}, false
	}
	mode := PseudoClass
	if c.peek() == ':' {
		c.pos++
		mode = PseudoElement
	}
	prop, ok := c.symbol()
	if !ok {
		c.pos = start
		return Pseudo{}, false
	}
	p := Pseudo{Property: prop, Mode: mode}

	save := c.pos
	if c.literal("(") {
		arg, ok := c.selectorTerm()
		if ok && c.literal(")") {
			p.Arg = &arg
		} else {
			c.pos = save
		}
	}
	return p, true
}

// attrName reads a symbol that stops short of a `*=` operator, since `*` is
// otherwise a symbol byte.
func (c *cursor) attrName() (string, bool) {
	start := c.pos
	for c.pos < len(c.input) && isSymbolByte(c.input[c.pos]) && !c.hasPrefix("*=") {
		c.pos++
	}
	if c.pos == start {
		c.expect("symbol")
		return "", false
	}
	return c.input[start:c.pos], true
}

// attr parses `[name]` or `[name<op>value]`.
func (c *cursor) attr() (AttrSelector, bool) {
	start := c.pos
	if !c.literal("[") {
		return AttrSelector{}, false
	}
	name, ok := c.attrName()
	if !ok {
		c.pos = start
		return AttrSelector{}, false
	}
	a := AttrSelector{Name: name}

	for _, op := range attrOps {
		if !c.hasPrefix(op) {
			continue
		}
		c.pos += len(op)
		a.Op = op
		if lit, ok := c.stringLiteral(); ok {
			a.Value = lit
		} else {
			valStart := c.pos
			for c.pos < len(c.input) && c.input[c.pos] != ']' {
				c.pos++
			}
			a.Value = c.input[valStart:c.pos]
		}
		if a.Value == "" {
			c.expect("attribute value")
			c.pos = start
			return AttrSelector{}, false
		}
		break
	}

	if !c.literal("]") {
		c.pos = start
		return AttrSelector{}, false
	}
	return a, true
}

// combinator parses an optional `>`, `~` or `+` surrounded by comments. No
// explicit combinator means descendant.
func (c *cursor) combinator() Combinator {
	c.comment0()
	comb := CombinatorNone
	switch c.peek() {
	case '>':
		comb = CombinatorChild
		c.pos++
	case '~':
		comb = CombinatorSibling
		c.pos++
	case '+':
		comb = CombinatorAdjacent
		c.pos++
	}
	c.comment0()
	return comb
}

// selector parses a leading term (or `&` self-reference) followed by any
// number of (combinator, term) pairs.
func (c *cursor) selector() (Selector, bool) {
	var sel Selector
	if c.peek() == '&' {
		self, _ := c.selfTerm()
		sel.Self = &self
	} else {
		term, ok := c.selectorTerm()
		if !ok {
			return Selector{}, false
		}
		sel.Steps = append(sel.Steps, Step{Combinator: CombinatorNone, Term: term})
	}

	for {
		save := c.pos
		comb := c.combinator()
		term, ok := c.selectorTerm()
		if !ok {
			c.pos = save
			return sel, true
		}
		sel.Steps = append(sel.Steps, Step{Combinator: comb, Term: term})
	}
}

// selectorList parses one or more comma-separated selectors.
func (c *cursor) selectorList() (SelectorList, bool) {
	first, ok := c.selector()
	if !ok {
		return nil, false
	}
	list := SelectorList{first}
	for {
		save := c.pos
		c.comment0()
		if !c.literal(",") {
			c.pos = save
			return list, true
		}
		c.comment0()
		next, ok := c.selector()
		if !ok {
			c.pos = save
			return list, true
		}
		list = append(list, next)
	}
}
