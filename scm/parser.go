/*
Copyright (C) 2023  Carl-Philip Hänsch
Copyright (C) 2013  Pieter Kelchtermans (originally licensed unter WTFPL 2.0)

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package scm

import (
	"strconv"
)

var reserved = map[string]bool{"if": true, "let": true, "def": true, "true": true, "false": true}
var separators = map[string]bool{"(": true, ")": true, "[": true, "]": true, ";": true, "$": true, "->": true, ">>": true}

func ValidIdentifier(s string) error {
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return newError(StructuralError, "Invalid identifier - '%s' is a number.", s)
	}
	if separators[s] {
		return newError(StructuralError, "Invalid identifier - '%s'", s)
	}
	if reserved[s] {
		return newError(StructuralError, "Invalid identifier - '%s' is a reserved keyword.", s)
	}
	return nil
}

type parser struct {
	tree   *Tree
	tokens []Token
	idx    int
}

// Read parses source text into one root node per ';' separated statement.
func Read(source, s string) ([]Ref, error) {
	tokens, err := Tokenize(source, s)
	if err != nil {
		return nil, err
	}
	p := &parser{tree: NewTree(s), tokens: tokens}
	var roots []Ref
	for p.idx < len(p.tokens) {
		id, ok, err := p.statement()
		if err != nil {
			return nil, err
		}
		if ok {
			roots = append(roots, p.tree.Root(id))
		}
	}
	if len(roots) == 0 {
		return nil, newError(ParseError, "Can't parse empty expression:'%s'", s)
	}
	return roots, nil
}

// ReadOne parses text that must hold exactly one statement.
func ReadOne(source, s string) (Ref, error) {
	roots, err := Read(source, s)
	if err != nil {
		return Ref{}, err
	}
	if len(roots) != 1 {
		return Ref{}, newError(ParseError, "expected one statement but got %d", len(roots))
	}
	return roots[0], nil
}

func (p *parser) peek() (Token, bool) {
	if p.idx >= len(p.tokens) {
		return Token{}, false
	}
	return p.tokens[p.idx], true
}

func (p *parser) next() Token {
	t := p.tokens[p.idx]
	p.idx++
	return t
}

// statement reads forms up to the next ';'. Several unbracketed forms
// build one expression whose let is global.
func (p *parser) statement() (NodeID, bool, error) {
	var nodes []NodeID
	for {
		t, ok := p.peek()
		if !ok {
			break
		}
		if t.Text == ";" {
			p.next()
			if len(nodes) > 0 {
				break
			}
			continue
		}
		id, err := p.expression()
		if err != nil {
			return noNode, false, err
		}
		nodes = append(nodes, id)
	}
	switch len(nodes) {
	case 0:
		return noNode, false, nil
	case 1:
		return nodes[0], true, nil
	}
	id, err := p.combine(nodes, "(", true)
	return id, err == nil, err
}

func (p *parser) expression() (NodeID, error) {
	t := p.next()
	switch t.Text {
	case ")", "]":
		return noNode, newError(ParseError, "%s: Found '%s' at index: %d", t.Pos, t.Text, p.idx-1)
	case "(", "[":
		return p.list(t)
	}
	if t.Text == "true" || t.Text == "false" {
		return p.tree.add(nodeData{kind: BooleanNode, flag: t.Text == "true"}), nil
	}
	if n, err := strconv.ParseInt(t.Text, 10, 64); err == nil {
		return p.tree.add(nodeData{kind: NumberNode, num: n}), nil
	}
	return p.tree.add(nodeData{kind: SymbolNode, name: t.Text}), nil
}

func (p *parser) list(open Token) (NodeID, error) {
	var children []NodeID
	var close Token
	closed := false
	for {
		t, ok := p.peek()
		if !ok {
			break
		}
		if t.Text == ")" || t.Text == "]" || t.Text == ";" {
			close, closed = t, true
			break
		}
		id, err := p.expression()
		if err != nil {
			return noNode, err
		}
		children = append(children, id)
	}
	if len(children) == 0 {
		empty := "()"
		if open.Text == "[" {
			empty = "[]"
		}
		return noNode, newError(ParseError, "Can't parse empty expression: '%s'", empty)
	}
	if !closed {
		return noNode, p.bracketsError(open.Text)
	}
	if close.Text == ";" {
		return noNode, newError(ParseError, "%s: ';' can't be used inside an expression.", close.Pos)
	}
	if (open.Text == "(") != (close.Text == ")") {
		return noNode, newError(ParseError, "Mismatched brackets: '%s' for '%s' at index %d.", close.Text, open.Text, p.idx)
	}
	p.next()
	// (2) is 2, but [2] stays a list
	if len(children) == 1 && open.Text == "(" {
		return children[0], nil
	}
	return p.combine(children, open.Text, false)
}

func (p *parser) bracketsError(open string) error {
	closing := ")"
	if open == "[" {
		closing = "]"
	}
	opened, closed := 0, 0
	for _, t := range p.tokens {
		switch t.Text {
		case open:
			opened++
		case closing:
			closed++
		}
	}
	return newError(ParseError, "Excess of %d opening brackets: '%s'.", opened-closed, open)
}

func (p *parser) combine(children []NodeID, open string, global bool) (NodeID, error) {
	if open == "[" {
		return p.tree.add(nodeData{kind: ListNode, children: children}), nil
	}
	first := p.tree.node(children[0])
	if first.kind == SymbolNode {
		switch first.name {
		case "if":
			return p.ifForm(children)
		case "let":
			return p.letForm(children, global)
		case "def":
			return p.defForm(children)
		}
	}
	first.head = true
	return p.tree.add(nodeData{kind: CombinationNode, children: children}), nil
}

func (p *parser) ifForm(children []NodeID) (NodeID, error) {
	if len(children) != 4 {
		return noNode, newError(ParseError, "'if' expected 3 expressions but got %d.", len(children)-1)
	}
	return p.tree.add(nodeData{kind: IfNode, children: children[1:]}), nil
}

func (p *parser) letForm(children []NodeID, global bool) (NodeID, error) {
	if len(children) == 1 {
		return noNode, newError(ParseError, "'let' received 0 expressions or symbols")
	}
	return p.tree.add(nodeData{kind: LetNode, flag: global, children: children[1:]}), nil
}

func (p *parser) defForm(children []NodeID) (NodeID, error) {
	if len(children) < 4 {
		return noNode, newError(ParseError, "Function definitions should have at least 3 parts: a name, parameters and a body.")
	}
	name := p.tree.node(children[1])
	if name.kind != SymbolNode {
		return noNode, newError(ParseError, "Function name should be a symbol.")
	}
	if err := ValidIdentifier(name.name); err != nil {
		return noNode, err
	}
	var params []string
	switch pn := p.tree.node(children[2]); pn.kind {
	case SymbolNode:
		params = []string{pn.name}
	case CombinationNode:
		for _, c := range pn.children {
			cn := p.tree.node(c)
			if cn.kind != SymbolNode {
				return noNode, newError(ParseError, "Function parameters should contain only symbols")
			}
			params = append(params, cn.name)
		}
	default:
		return noNode, newError(ParseError, "Parameters for '%s' should be a symbol or in an expression.", name.name)
	}
	for _, param := range params {
		if err := ValidIdentifier(param); err != nil {
			return noNode, err
		}
	}
	if len(children) > 4 {
		return noNode, newError(ParseError, "'%s' should have a single body expression but got %d; chain them with (> ...).", name.name, len(children)-3)
	}
	return p.tree.add(nodeData{kind: DefNode, name: name.name, params: params, children: children[3:]}), nil
}
