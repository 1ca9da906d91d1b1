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

import "strings"

type ArgMode int

const (
	EvaluatedArgs ArgMode = iota
	UnevaluatedArgs
)

// Callable is either a *Builtin or a *Lambda.
type Callable interface {
	Name() string
	Params() Params
	Mode() ArgMode
	String() string
	isCallable()
}

// Outcome is what executing a callable yields: a finished value or a node
// the engine still has to evaluate (tail position).
type Outcome struct {
	deferred bool
	env      Env
	ref      Ref
	value    Value
}

func Deferred(env Env, ref Ref) Outcome {
	return Outcome{deferred: true, env: env, ref: ref}
}

func Evaluated(v Value) Outcome {
	return Outcome{value: v}
}

func (o Outcome) IsDeferred() bool {
	return o.deferred
}

func (o Outcome) Value() Value {
	return o.value
}

func (o Outcome) Ref() Ref {
	return o.ref
}

func (o Outcome) Env() Env {
	return o.env
}

type BuiltinFn func(en *Engine, args []Arg, env Env) (Outcome, error)

type Builtin struct {
	name   string
	params Params
	mode   ArgMode
	fn     BuiltinFn
}

func NewBuiltin(name string, params Params, mode ArgMode, fn BuiltinFn) *Builtin {
	return &Builtin{name, params, mode, fn}
}

func (b *Builtin) Name() string   { return b.name }
func (b *Builtin) Params() Params { return b.params }
func (b *Builtin) Mode() ArgMode  { return b.mode }
func (b *Builtin) String() string { return "<function '" + b.name + "'>" }
func (b *Builtin) isCallable()    {}

// Lambda is a user defined function.
type Lambda struct {
	name     string
	params   Params
	captured Env
	body     []Ref
}

// NewLambda captures a copy of env without the function's own name.
func NewLambda(name string, params []string, env Env, body []Ref) *Lambda {
	captured := env.Copy()
	captured.Delete(name)
	return &Lambda{name, Fixed(params...), captured, body}
}

func (l *Lambda) Name() string   { return l.name }
func (l *Lambda) Params() Params { return l.params }
func (l *Lambda) Mode() ArgMode  { return EvaluatedArgs }
func (l *Lambda) Body() []Ref    { return l.body }
func (l *Lambda) isCallable()    {}

func (l *Lambda) String() string {
	expected := l.params.Expected()
	if expected == nil {
		expected = []string{"*args"}
	}
	body := make([]string, len(l.body))
	for i, b := range l.body {
		body[i] = b.String()
	}
	return l.name + "(" + strings.Join(expected, ",") + ") => " + strings.Join(body, " ")
}

// ApplyPartial returns c with args appended; c itself is unchanged.
func ApplyPartial(c Callable, args []Arg) Callable {
	switch f := c.(type) {
	case *Builtin:
		g := *f
		g.params = f.params.Apply(args)
		return &g
	case *Lambda:
		g := *f
		g.params = f.params.Apply(args)
		return &g
	}
	panic("unknown callable")
}

// Resolve runs c if it has exactly the arguments it needs, returns it as a
// function value if it needs more and fails if it got too many.
func Resolve(en *Engine, c Callable, env Env) (Outcome, error) {
	switch c.Params().Readiness() {
	case NeedMore:
		return Evaluated(NewFunc(c)), nil
	case TooMany:
		return Outcome{}, c.Params().Check(c.Name())
	}
	return Execute(en, c, env)
}

// Execute runs c with the arguments it has collected in the caller's env.
func Execute(en *Engine, c Callable, env Env) (Outcome, error) {
	if err := c.Params().Check(c.Name()); err != nil {
		return Outcome{}, err
	}
	switch f := c.(type) {
	case *Builtin:
		return f.fn(en, f.params.Received(), env)
	case *Lambda:
		return f.execute(en, env)
	}
	panic("unknown callable")
}

func (l *Lambda) execute(en *Engine, env Env) (Outcome, error) {
	bound := NewEnv()
	for i, arg := range l.params.Received() {
		bound.Define(l.params.Names()[i], arg.Value())
	}
	scope := bound.Merge(l.captured).Merge(env)
	if len(l.body) == 0 {
		return Outcome{}, newError(StructuralError, "'%s' has no body", l.name)
	}
	return Deferred(scope, l.body[0].Clone()), nil
}
