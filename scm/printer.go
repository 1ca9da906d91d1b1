/*
Copyright (C) 2023  Carl-Philip Hänsch

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
	"bytes"
	"strconv"
	"strings"
)

func renderNode(r Ref) string {
	var b bytes.Buffer
	Serialize(&b, r)
	return b.String()
}

// Serialize writes a node back in source form.
func Serialize(b *bytes.Buffer, r Ref) {
	switch r.Kind() {
	case NumberNode:
		b.WriteString(strconv.FormatInt(r.Number(), 10))
	case BooleanNode:
		if r.Bool() {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case SymbolNode:
		b.WriteString(r.Name())
	case CombinationNode:
		b.WriteByte('(')
		serializeList(b, r.Children(), " ")
		b.WriteByte(')')
	case ListNode:
		b.WriteByte('[')
		serializeList(b, r.Children(), ",")
		b.WriteByte(']')
	case IfNode:
		b.WriteString("(if ")
		serializeList(b, r.Children(), " ")
		b.WriteByte(')')
	case LetNode:
		b.WriteString("(let ")
		serializeList(b, r.Children(), " ")
		b.WriteByte(')')
	case DefNode:
		serializeDef(b, r.Name(), r.Params(), r.Children())
	}
}

func serializeList(b *bytes.Buffer, l []Ref, sep string) {
	for i, x := range l {
		if i > 0 {
			b.WriteString(sep)
		}
		Serialize(b, x)
	}
}

func serializeDef(b *bytes.Buffer, name string, params []string, body []Ref) {
	b.WriteString("(def ")
	b.WriteString(name)
	b.WriteString(" (")
	b.WriteString(strings.Join(params, " "))
	b.WriteString(") ")
	serializeList(b, body, " ")
	b.WriteByte(')')
}

// SerializeDefinition renders a lambda as a def form that parses back to
// the same function. Curried arguments are lost, only the signature stays.
func SerializeDefinition(b *bytes.Buffer, l *Lambda) {
	serializeDef(b, l.name, l.params.Names(), l.body)
}

func DefinitionString(l *Lambda) string {
	var b bytes.Buffer
	SerializeDefinition(&b, l)
	return b.String()
}
