/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

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
package storage

import "fmt"
import "errors"
import "context"
import "io/fs"
import "strings"
import "path/filepath"
import "github.com/google/btree"
import "github.com/jtolds/gls"
import "github.com/launix-de/nova/scm"

// Definition is one stored function: its name and its def form.
type Definition struct {
	Name   string
	Source string
}

func definitionLess(a, b Definition) bool {
	return a.Name < b.Name
}

// Library is a set of definitions ordered by name.
type Library struct {
	defs *btree.BTreeG[Definition]
}

func NewLibrary() *Library {
	return &Library{btree.NewG[Definition](8, definitionLess)}
}

// LibraryFromSession collects the user defined functions of a session.
// Partially applied functions are skipped since their arguments have no
// textual form.
func LibraryFromSession(s *scm.Session) *Library {
	l := NewLibrary()
	for _, fn := range s.UserFunctions() {
		if len(fn.Params().Received()) > 0 {
			continue
		}
		l.Put(Definition{fn.Name(), scm.DefinitionString(fn)})
	}
	return l
}

// ParseLibrary splits library text into its def forms.
func ParseLibrary(source string, data []byte) (*Library, error) {
	l := NewLibrary()
	for _, stmt := range strings.Split(scm.SeparateExpressions(string(data)), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		root, err := scm.ReadOne(source, stmt)
		if err != nil {
			return nil, err
		}
		if root.Kind() != scm.DefNode {
			return nil, fmt.Errorf("%s: expected a function definition but got %s", source, root.String())
		}
		l.Put(Definition{root.Name(), stmt})
	}
	return l, nil
}

// Put adds or replaces a definition.
func (l *Library) Put(d Definition) {
	l.defs.ReplaceOrInsert(d)
}

func (l *Library) Get(name string) (Definition, bool) {
	return l.defs.Get(Definition{Name: name})
}

func (l *Library) Remove(name string) bool {
	_, ok := l.defs.Delete(Definition{Name: name})
	return ok
}

func (l *Library) Len() int {
	return l.defs.Len()
}

// Merge puts every definition of other into l; other wins on conflicts.
func (l *Library) Merge(other *Library) {
	other.defs.Ascend(func(d Definition) bool {
		l.Put(d)
		return true
	})
}

func (l *Library) Definitions() []Definition {
	result := make([]Definition, 0, l.defs.Len())
	l.defs.Ascend(func(d Definition) bool {
		result = append(result, d)
		return true
	})
	return result
}

func (l *Library) Bytes() []byte {
	var b strings.Builder
	l.defs.Ascend(func(d Definition) bool {
		b.WriteString(d.Source)
		b.WriteString("\n")
		return true
	})
	return []byte(b.String())
}

// LoadLibrary reads a library; a missing one is empty.
func LoadLibrary(ctx context.Context, target string) (*Library, error) {
	backend, err := Open(ResolveTarget(target))
	if err != nil {
		return nil, err
	}
	defer backend.Close()
	data, err := backend.Load(ctx)
	if errors.Is(err, fs.ErrNotExist) {
		return NewLibrary(), nil
	} else if err != nil {
		return nil, err
	}
	return ParseLibrary(backend.String(), data)
}

// Save writes the session's functions to target, keeping definitions
// already stored there under other names.
func Save(ctx context.Context, target string, s *scm.Session) (*Library, error) {
	lib, err := LoadLibrary(ctx, target)
	if err != nil {
		return nil, err
	}
	lib.Merge(LibraryFromSession(s))
	backend, err := Open(ResolveTarget(target))
	if err != nil {
		return nil, err
	}
	defer backend.Close()
	if err := backend.Store(ctx, lib.Bytes()); err != nil {
		return nil, err
	}
	return lib, nil
}

var importContext = gls.NewContextManager()

type importDirKey struct{}

// ImportDir is the directory relative imports resolve against on this
// goroutine, or "" outside of an import.
func ImportDir() string {
	if dir, ok := importContext.GetValue(importDirKey{}); ok {
		return dir.(string)
	}
	return ""
}

// WithImportDir runs f with dir as the base of relative imports. Goroutines
// started by f through gls.Go inherit it.
func WithImportDir(dir string, f func()) {
	importContext.SetValues(gls.Values{importDirKey{}: dir}, f)
}

// ResolveTarget makes a relative file target relative to the file that is
// currently being imported.
func ResolveTarget(target string) string {
	if strings.Contains(target, "://") || filepath.IsAbs(target) {
		return target
	}
	if dir := ImportDir(); dir != "" {
		return filepath.Join(dir, target)
	}
	return target
}

// Import evaluates everything stored at target in the session. Lines
// starting with ':' run as commands, so a file can import further files.
func Import(ctx context.Context, target string, s *scm.Session) ([]scm.Result, error) {
	target = ResolveTarget(target)
	backend, err := Open(target)
	if err != nil {
		return nil, err
	}
	defer backend.Close()
	data, err := backend.Load(ctx)
	if err != nil {
		return nil, err
	}

	dir := ImportDir()
	if f, ok := backend.(*FileStorage); ok {
		dir = filepath.Dir(f.Path())
	}
	var results []scm.Result
	WithImportDir(dir, func() {
		results, err = importText(ctx, backend.String(), string(data), s)
	})
	return results, err
}

func importText(ctx context.Context, source, text string, s *scm.Session) ([]scm.Result, error) {
	var results []scm.Result
	var chunk strings.Builder
	flush := func() error {
		if strings.TrimSpace(chunk.String()) == "" {
			return nil
		}
		r, err := s.Import(source, chunk.String())
		results = append(results, r...)
		chunk.Reset()
		return err
	}
	for _, line := range strings.Split(text, "\n") {
		if scm.IsCommand(line) {
			if err := flush(); err != nil {
				return results, err
			}
			if err := s.RunCommand(ctx, line); err != nil {
				return results, fmt.Errorf("%s: %w", source, err)
			}
			continue
		}
		chunk.WriteString(line)
		chunk.WriteString("\n")
	}
	return results, flush()
}

func init() {
	scm.DeclareCommand(&scm.Command{Name: "save", Args: "<target>", Desc: "store all user functions (file, *.lz4, *.xz, s3://, ceph://, mysql://, postgres://, bolt://)", Run: func(ctx context.Context, s *scm.Session, args string) error {
		if args == "" {
			args = Settings.Library
		}
		if args == "" {
			return errors.New("usage: :save <target>")
		}
		lib, err := Save(ctx, args, s)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.Out, "saved %d functions to %s\n", lib.Len(), args)
		return nil
	}})
	scm.DeclareCommand(&scm.Command{Name: "import", Args: "<target>", Desc: "evaluate a file or stored library", Run: func(ctx context.Context, s *scm.Session, args string) error {
		if args == "" {
			return errors.New("usage: :import <target>")
		}
		results, err := Import(ctx, args, s)
		defined := 0
		for _, r := range results {
			if r.Kind == scm.FunctionResult {
				defined++
			}
		}
		fmt.Fprintf(s.Out, "imported %d functions from %s\n", defined, args)
		return err
	}})
}
