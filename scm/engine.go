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

import "io"
import "os"

/*
The engine evaluates a tree without recursing on the host stack for
function calls. It keeps three structures:

  - call stack: nodes waiting to be resolved, each with the node of the
    combination it is an argument of (its dynamic parent)
  - function stack: calls waiting for their arguments, keyed by the
    identity of their combination node
  - results: evaluated values tagged with their dynamic parent

A function body in tail position replaces the call on the call stack, so
tail recursion runs in constant function stack depth. Only if conditions,
combination heads, let bindings and chain arguments use a nested engine.
*/
type Engine struct {
	Out   io.Writer // puts writes here
	Stats *Stats
}

func NewEngine(out io.Writer) *Engine {
	return &Engine{Out: out, Stats: new(Stats)}
}

var DefaultEngine = NewEngine(os.Stdout)

// Evaluate evaluates ref in env using the default engine.
func Evaluate(env Env, ref Ref) (Value, error) {
	return DefaultEngine.Evaluate(env, ref)
}

// Evaluate runs ref as a top level expression: a global let yields a
// persist-variable marker, a def at the root a persist-function marker.
func (en *Engine) Evaluate(env Env, ref Ref) (result Value, err error) {
	if t := trace.Load(); t != nil {
		t.Duration(ref.String(), "eval", func() {
			result, err = en.eval(env, ref, true)
		})
		return
	}
	return en.eval(env, ref, true)
}

type callEntry struct {
	env    Env
	ref    Ref
	parent Ref
}

type fnEntry struct {
	fn     Callable
	ident  Ref
	parent Ref
	env    Env
}

type resultEntry struct {
	value  Value
	parent Ref
}

type machine struct {
	en      *Engine
	root    Ref
	top     bool
	calls   []callEntry
	fns     []fnEntry
	results []resultEntry
	usage   Usage
}

func (en *Engine) eval(env Env, root Ref, top bool) (Value, error) {
	m := &machine{en: en, root: root, top: top}
	m.calls = append(m.calls, callEntry{env, root, Ref{}})
	defer func() {
		if en.Stats != nil {
			en.Stats.add(m.usage)
		}
	}()
	for {
		var err error
		nc, nf := len(m.calls), len(m.fns)
		if nc == 0 && nf == 0 {
			break
		}
		if nc > 0 && (nf == 0 || m.fns[nf-1].ident == m.calls[nc-1].parent) {
			err = m.resolve()
		} else {
			err = m.invoke()
		}
		if err != nil {
			return Value{}, err
		}
		m.track()
	}
	if len(m.results) == 0 {
		return Value{}, newError(EngineExhaustionError, "could not evaluate expression: %s", root.String())
	}
	return m.results[len(m.results)-1].value, nil
}

func (m *machine) track() {
	m.usage.Iterations++
	if len(m.calls) > m.usage.MaxCallStack {
		m.usage.MaxCallStack = len(m.calls)
	}
	if len(m.fns) > m.usage.MaxFnStack {
		m.usage.MaxFnStack = len(m.fns)
	}
	if len(m.results) > m.usage.MaxResults {
		m.usage.MaxResults = len(m.results)
	}
}

func (m *machine) pushResult(v Value, parent Ref) {
	m.results = append(m.results, resultEntry{v, parent})
}

func (m *machine) route(out Outcome, parent Ref) {
	if out.deferred {
		m.calls = append(m.calls, callEntry{out.env, out.ref, parent})
	} else {
		m.pushResult(out.value, parent)
	}
}

func (m *machine) resolve() error {
	c := m.calls[len(m.calls)-1]
	m.calls = m.calls[:len(m.calls)-1]

	switch c.ref.Kind() {
	case NumberNode:
		m.pushResult(NewNumber(c.ref.Number()), c.parent)
	case BooleanNode:
		m.pushResult(NewBool(c.ref.Bool()), c.parent)
	case SymbolNode:
		v, ok := c.env.Lookup(c.ref.Name())
		if !ok {
			return newError(LookupError, "unrecognized symbol '%s'", c.ref.Name())
		}
		m.pushResult(v, c.parent)
	case IfNode:
		cond, err := m.en.eval(c.env, c.ref.Child(0), false)
		if err != nil {
			return err
		}
		branch := c.ref.Child(2)
		if cond.Truthy() {
			branch = c.ref.Child(1)
		}
		m.calls = append(m.calls, callEntry{c.env, branch, c.parent})
	case CombinationNode:
		return m.resolveCombination(c)
	case LetNode:
		v, err := m.en.evalLet(c.env, c.ref)
		if err != nil {
			return err
		}
		m.pushResult(v, c.parent)
	case DefNode:
		fn := NewLambda(c.ref.Name(), c.ref.Params(), c.env, c.ref.Children())
		if m.top && c.ref == m.root {
			m.pushResult(NewPersistFunc(fn), c.parent)
		} else {
			m.pushResult(NewFunc(fn), c.parent)
		}
	case ListNode:
		return newError(StructuralError, "list literals are not supported yet: %s", c.ref.String())
	}
	return nil
}

func (m *machine) resolveCombination(c callEntry) error {
	children := c.ref.Children()
	if len(children) == 0 {
		return newError(StructuralError, "Received empty expression.")
	}
	head, err := m.en.eval(c.env, children[0], false)
	if err != nil {
		return err
	}
	fn, err := head.ExpectFunc()
	if err != nil {
		return err
	}
	if fn.Mode() == UnevaluatedArgs {
		args := make([]Arg, len(children)-1)
		for i, child := range children[1:] {
			args[i] = RawArg(child)
		}
		out, err := Resolve(m.en, ApplyPartial(fn, args), c.env)
		if err != nil {
			return err
		}
		m.route(out, c.parent)
		return nil
	}
	m.fns = append(m.fns, fnEntry{fn, c.ref, c.parent, c.env})
	for i := len(children) - 1; i >= 1; i-- {
		m.calls = append(m.calls, callEntry{c.env, children[i], c.ref})
	}
	return nil
}

func (m *machine) invoke() error {
	f := m.fns[len(m.fns)-1]
	m.fns = m.fns[:len(m.fns)-1]

	i := len(m.results)
	for i > 0 && m.results[i-1].parent == f.ident {
		i--
	}
	args := make([]Arg, len(m.results)-i)
	for j, r := range m.results[i:] {
		args[j] = ValueArg(r.value)
	}
	m.results = m.results[:i]

	fn := ApplyPartial(f.fn, args)
	// a ready variadic call in function position stays a function
	// value, so ((mul 1 2) 3) keeps collecting arguments
	if f.ident.IsHead() && fn.Params().IsVariadic() && fn.Params().Readiness() == Ready {
		m.pushResult(NewFunc(fn), f.parent)
		return nil
	}
	out, err := Resolve(m.en, fn, f.env)
	if err != nil {
		return err
	}
	m.route(out, f.parent)
	return nil
}

func (en *Engine) evalLet(env Env, ref Ref) (Value, error) {
	scope := env.Copy()
	items := ref.Children()
	var pending string
	var result Value
	have := false
	for i, item := range items {
		if i == len(items)-1 || pending != "" {
			v, err := en.eval(scope, item, false)
			if err != nil {
				return Value{}, err
			}
			if pending != "" {
				scope.Define(pending, v)
				pending = ""
			}
			result, have = v, true
			continue
		}
		if item.Kind() != SymbolNode {
			return Value{}, newError(StructuralError, "'let' expected a symbol but got '%s'", item.String())
		}
		if err := ValidIdentifier(item.Name()); err != nil {
			return Value{}, err
		}
		pending = item.Name()
	}
	if !have {
		return Value{}, newError(StructuralError, "'let' received nothing to evaluate.")
	}
	if ref.IsGlobal() {
		return NewPersistVar(scope, result), nil
	}
	return result, nil
}
