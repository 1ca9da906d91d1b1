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

import "sort"
import "strings"

type Vars map[string]Value

/*
Env is a handle to a flat name table. Functions and variables share one
namespace; a name is a function when its value is callable.

Handles alias: copying an Env value (or calling Alias) shares the table,
Copy makes an independent one.
*/
type Env struct {
	vars *Vars
}

func NewEnv() Env {
	vars := make(Vars)
	return Env{&vars}
}

// NewGlobalEnv returns a fresh environment holding all builtins.
func NewGlobalEnv() Env {
	env := NewEnv()
	for _, d := range Declarations() {
		env.Define(d.Name, NewFunc(d.builtin()))
	}
	return env
}

func (e Env) IsZero() bool {
	return e.vars == nil
}

func (e Env) Alias() Env {
	return e
}

func (e Env) Copy() Env {
	result := NewEnv()
	if e.vars != nil {
		for k, v := range *e.vars {
			(*result.vars)[k] = v
		}
	}
	return result
}

// Merge returns a new env: the receiver plus every name of other it lacks.
func (e Env) Merge(other Env) Env {
	result := e.Copy()
	if other.vars != nil {
		for k, v := range *other.vars {
			if _, ok := (*result.vars)[k]; !ok {
				(*result.vars)[k] = v
			}
		}
	}
	return result
}

// WriteBack stores every binding of other into the receiver, overwriting.
func (e Env) WriteBack(other Env) {
	if other.vars == nil {
		return
	}
	for k, v := range *other.vars {
		(*e.vars)[k] = v
	}
}

func (e Env) Define(name string, v Value) {
	(*e.vars)[name] = v
}

func (e Env) Delete(name string) bool {
	if e.vars == nil {
		return false
	}
	_, ok := (*e.vars)[name]
	delete(*e.vars, name)
	return ok
}

func (e Env) Lookup(name string) (Value, bool) {
	if e.vars == nil {
		return Value{}, false
	}
	v, ok := (*e.vars)[name]
	return v, ok
}

func (e Env) Function(name string) (Callable, bool) {
	v, ok := e.Lookup(name)
	if !ok || v.kind != FuncKind {
		return nil, false
	}
	return v.fn, true
}

func (e Env) Variable(name string) (Value, bool) {
	v, ok := e.Lookup(name)
	if !ok || v.kind == FuncKind {
		return Value{}, false
	}
	return v, true
}

func (e Env) Len() int {
	if e.vars == nil {
		return 0
	}
	return len(*e.vars)
}

// Names returns all bound names in sorted order.
func (e Env) Names() []string {
	if e.vars == nil {
		return nil
	}
	names := make([]string, 0, len(*e.vars))
	for k := range *e.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// String lists functions first, then variables, each block sorted.
func (e Env) String() string {
	var fns, vars []string
	for _, k := range e.Names() {
		v := (*e.vars)[k]
		if v.kind == FuncKind {
			fns = append(fns, "Function: "+k+" => "+v.String())
		} else {
			vars = append(vars, "Variable: "+k+" => "+v.String())
		}
	}
	return strings.Join(fns, "\n") + "\n\n" + strings.Join(vars, "\n")
}
