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

import "io"
import "sort"
import "sync"
import "github.com/google/uuid"

type ResultKind int

const (
	ValueResult ResultKind = iota
	VariableResult // a global let was folded into the session
	FunctionResult // a def was stored in the session
)

type Result struct {
	Text string
	Kind ResultKind
	Name string // defined function
}

/*
Session is one interactive user: a persistent global environment and an
engine writing to the user's output. A session is not safe for concurrent
use; independent sessions are.
*/
type Session struct {
	ID         string
	Env        Env
	Engine     *Engine
	Out        io.Writer
	Dir        string // base directory for relative imports
	Restricted bool   // only commands marked Remote may run
	mu         sync.Mutex
}

func NewSession(out io.Writer) *Session {
	return &Session{
		ID:     uuid.NewString(),
		Env:    NewGlobalEnv(),
		Engine: NewEngine(out),
		Out:    out,
	}
}

// EvalAll parses text and evaluates every statement in order. It stops at
// the first error and returns the results produced so far.
func (s *Session) EvalAll(source, text string) ([]Result, error) {
	roots, err := Read(source, text)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(roots))
	for _, root := range roots {
		r, err := s.Eval(root)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

// Eval evaluates one statement and folds persist markers into s.Env.
func (s *Session) Eval(root Ref) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.Engine.Evaluate(s.Env, root)
	if err != nil {
		return Result{}, err
	}
	switch v.Kind() {
	case PersistVarKind:
		env, inner := v.Persisted()
		s.Env.WriteBack(env)
		return Result{Text: inner.String(), Kind: VariableResult}, nil
	case PersistFuncKind:
		fn, _ := v.ExpectFunc()
		s.Env.Define(fn.Name(), NewFunc(fn))
		return Result{Text: fn.String(), Kind: FunctionResult, Name: fn.Name()}, nil
	}
	return Result{Text: v.String()}, nil
}

// Import evaluates a file of definitions; every balanced top level form is
// its own statement.
func (s *Session) Import(source, text string) ([]Result, error) {
	return s.EvalAll(source, SeparateExpressions(text))
}

func (s *Session) Reset() {
	s.mu.Lock()
	s.Env = NewGlobalEnv()
	s.mu.Unlock()
	s.Engine.Stats.Reset()
}

func (s *Session) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Env.Delete(name)
}

// UserFunctions returns the session's lambdas sorted by name.
func (s *Session) UserFunctions() []*Lambda {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*Lambda
	for _, name := range s.Env.Names() {
		if fn, ok := s.Env.Function(name); ok {
			if l, ok := fn.(*Lambda); ok && l.Name() == name {
				result = append(result, l)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}
