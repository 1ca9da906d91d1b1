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

import "strconv"

type ValueKind uint8

const (
	NilKind ValueKind = iota
	NumberKind
	BoolKind
	FuncKind
	PersistVarKind  // result of a global let: child env + value
	PersistFuncKind // result of a top level def
)

// Value is the tagged result of evaluation.
type Value struct {
	kind ValueKind
	num  int64 // numbers; bools as 0/1
	fn   Callable
	env  Env
	v    *Value
}

func NewNil() Value {
	return Value{}
}

func NewNumber(n int64) Value {
	return Value{kind: NumberKind, num: n}
}

func NewBool(b bool) Value {
	if b {
		return Value{kind: BoolKind, num: 1}
	}
	return Value{kind: BoolKind}
}

func NewFunc(fn Callable) Value {
	return Value{kind: FuncKind, fn: fn}
}

func NewPersistVar(env Env, v Value) Value {
	return Value{kind: PersistVarKind, env: env, v: &v}
}

func NewPersistFunc(fn Callable) Value {
	return Value{kind: PersistFuncKind, fn: fn}
}

func (v Value) Kind() ValueKind {
	return v.kind
}

func (v Value) IsNil() bool {
	return v.kind == NilKind
}

func (v Value) IsFunc() bool {
	return v.kind == FuncKind
}

// ExpectNumber returns the integer payload. Booleans count as 1 and 0.
func (v Value) ExpectNumber() (int64, error) {
	switch v.kind {
	case NumberKind, BoolKind:
		return v.num, nil
	}
	return 0, newError(TypeError, "Expected a number but got '%s'", v.String())
}

func (v Value) ExpectBool() (bool, error) {
	if v.kind == BoolKind {
		return v.num != 0, nil
	}
	return false, newError(TypeError, "Expected a boolean but got '%s'", v.String())
}

func (v Value) ExpectFunc() (Callable, error) {
	switch v.kind {
	case FuncKind, PersistFuncKind:
		return v.fn, nil
	}
	return nil, newError(TypeError, "Expected a function but got '%s'", v.String())
}

// Truthy: zero and false are false, everything else is true.
func (v Value) Truthy() bool {
	switch v.kind {
	case NumberKind, BoolKind:
		return v.num != 0
	}
	return true
}

// Equal compares numbers and booleans by value; nothing else is ever equal.
func (v Value) Equal(o Value) bool {
	switch v.kind {
	case NumberKind, BoolKind:
		if o.kind != NumberKind && o.kind != BoolKind {
			return false
		}
		return v.num == o.num
	}
	return false
}

// Persisted splits a persist marker. For plain values env is the zero Env.
func (v Value) Persisted() (env Env, inner Value) {
	switch v.kind {
	case PersistVarKind:
		return v.env, *v.v
	case PersistFuncKind:
		return Env{}, NewFunc(v.fn)
	}
	return Env{}, v
}

func (v Value) String() string {
	switch v.kind {
	case NumberKind:
		return strconv.FormatInt(v.num, 10)
	case BoolKind:
		if v.num != 0 {
			return "true"
		}
		return "false"
	case FuncKind, PersistFuncKind:
		return v.fn.String()
	case PersistVarKind:
		return v.v.String()
	}
	return ""
}

// Arg is a call argument: either an evaluated value or a raw node.
type Arg struct {
	evaluated bool
	value     Value
	raw       Ref
}

func ValueArg(v Value) Arg {
	return Arg{evaluated: true, value: v}
}

func RawArg(r Ref) Arg {
	return Arg{raw: r}
}

func (a Arg) IsEvaluated() bool {
	return a.evaluated
}

func (a Arg) Value() Value {
	return a.value
}

func (a Arg) Raw() Ref {
	return a.raw
}

func (a Arg) String() string {
	if a.evaluated {
		return a.value.String()
	}
	return a.raw.String()
}
