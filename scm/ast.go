/*
Copyright (C) 2024  Carl-Philip Hänsch

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

import "sync/atomic"

type NodeKind uint8

const (
	NumberNode NodeKind = iota
	BooleanNode
	SymbolNode
	CombinationNode
	ListNode
	IfNode
	LetNode
	DefNode
)

func (k NodeKind) String() string {
	return [...]string{"Number", "Boolean", "Symbol", "Combination", "List", "If", "Let", "FunctionDef"}[k]
}

// NodeID addresses a node inside its Tree.
type NodeID int32

const noNode NodeID = -1

type nodeData struct {
	kind     NodeKind
	num      int64
	flag     bool     // boolean literal or global let
	head     bool     // first child of a combination
	name     string   // symbol or function name
	params   []string // function parameters
	children []NodeID // combination, list, if, let items, function body
	parent   NodeID
}

/*
Tree is an arena of parsed nodes.

Nodes never change after parsing. The engine sees them through Ref values,
which add an activation number on top of the arena index: a node that is
instantiated several times at once (a function body in nested calls) is told
apart by its activation. Children share the activation of their parent.
*/
type Tree struct {
	Source string
	nodes  []nodeData
}

func NewTree(source string) *Tree {
	return &Tree{Source: source}
}

func (t *Tree) add(n nodeData) NodeID {
	n.parent = noNode
	t.nodes = append(t.nodes, n)
	id := NodeID(len(t.nodes) - 1)
	for _, c := range n.children {
		t.nodes[c].parent = id
	}
	return id
}

func (t *Tree) node(id NodeID) *nodeData {
	return &t.nodes[id]
}

func (t *Tree) Len() int {
	return len(t.nodes)
}

var activations atomic.Uint64

func nextActivation() uint64 {
	return activations.Add(1)
}

// Ref is the identity of one node in one activation. Refs compare with ==.
// The zero Ref is "no node" and is used as the parent of roots.
type Ref struct {
	tree *Tree
	id   NodeID
	act  uint64
}

// Root returns a fresh activation of the node.
func (t *Tree) Root(id NodeID) Ref {
	return Ref{t, id, nextActivation()}
}

func (r Ref) IsZero() bool {
	return r.tree == nil
}

func (r Ref) data() *nodeData {
	return r.tree.node(r.id)
}

// Clone returns the same node under a new activation.
func (r Ref) Clone() Ref {
	return Ref{r.tree, r.id, nextActivation()}
}

func (r Ref) Tree() *Tree {
	return r.tree
}

func (r Ref) Kind() NodeKind {
	return r.data().kind
}

func (r Ref) Number() int64 {
	return r.data().num
}

func (r Ref) Bool() bool {
	return r.data().flag
}

// Name is the symbol name or the name of a function definition.
func (r Ref) Name() string {
	return r.data().name
}

func (r Ref) Params() []string {
	return r.data().params
}

func (r Ref) IsGlobal() bool {
	return r.data().flag
}

// IsHead tells whether the node sits in function position of a combination.
func (r Ref) IsHead() bool {
	return r.data().head
}

func (r Ref) NumChildren() int {
	return len(r.data().children)
}

func (r Ref) Child(i int) Ref {
	return Ref{r.tree, r.data().children[i], r.act}
}

func (r Ref) Children() []Ref {
	ids := r.data().children
	result := make([]Ref, len(ids))
	for i, id := range ids {
		result[i] = Ref{r.tree, id, r.act}
	}
	return result
}

// Parent is the enclosing container in the same activation, zero for roots.
func (r Ref) Parent() Ref {
	p := r.data().parent
	if p == noNode {
		return Ref{}
	}
	return Ref{r.tree, p, r.act}
}

func (r Ref) String() string {
	if r.IsZero() {
		return "<none>"
	}
	return renderNode(r)
}
