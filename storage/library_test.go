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

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/launix-de/nova/scm"
)

func newSession(t *testing.T, src string) (*scm.Session, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	s := scm.NewSession(&out)
	if src != "" {
		if _, err := s.EvalAll("test", src); err != nil {
			t.Fatal(err)
		}
	}
	return s, &out
}

func evalString(t *testing.T, s *scm.Session, src string) string {
	t.Helper()
	results, err := s.EvalAll("test", src)
	if err != nil {
		t.Fatalf("%s: %v", src, err)
	}
	return results[len(results)-1].Text
}

func names(l *Library) []string {
	var result []string
	for _, d := range l.Definitions() {
		result = append(result, d.Name)
	}
	return result
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0640); err != nil {
		t.Fatal(err)
	}
}

func TestParseLibrary(t *testing.T) {
	lib, err := ParseLibrary("test", []byte("#helpers#\n(def b (x)\n  (a x))\n(def a (x) x)\n"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, names(lib)); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if d, ok := lib.Get("b"); !ok || d.Source != "(def b (x)\n  (a x))" {
		t.Errorf("unexpected definition %+v", d)
	}
	if got := string(lib.Bytes()); got != "(def a (x) x)\n(def b (x)\n  (a x))\n" {
		t.Errorf("unexpected bytes %q", got)
	}
	if !lib.Remove("a") || lib.Remove("a") || lib.Len() != 1 {
		t.Errorf("remove should drop a exactly once")
	}

	if _, err := ParseLibrary("test", []byte("(def a (x) x)\n(add 1 2)\n")); err == nil || !strings.Contains(err.Error(), "expected a function definition") {
		t.Errorf("expressions are not definitions, got %v", err)
	}
	if _, err := ParseLibrary("test", []byte("(def a (x) x")); err == nil {
		t.Errorf("broken text should fail")
	}
}

func TestLibraryMerge(t *testing.T) {
	a, _ := ParseLibrary("a", []byte("(def f (x) x)\n(def g (x) x)"))
	b, _ := ParseLibrary("b", []byte("(def g (x) (succ x))\n(def h (x) x)"))
	a.Merge(b)
	if diff := cmp.Diff([]string{"f", "g", "h"}, names(a)); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if d, _ := a.Get("g"); d.Source != "(def g (x) (succ x))" {
		t.Errorf("the merged library should win, got %q", d.Source)
	}
}

func TestLibraryFromSession(t *testing.T) {
	s, _ := newSession(t, "(def twice (x) (add x x));(def inc (x) (succ x));let two (twice 1);let add1 (add 1)")
	lib := LibraryFromSession(s)
	if diff := cmp.Diff([]string{"inc", "twice"}, names(lib)); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if d, _ := lib.Get("twice"); d.Source != "(def twice (x) (add x x))" {
		t.Errorf("unexpected source %q", d.Source)
	}
}

func TestSaveAndImport(t *testing.T) {
	ctx := context.Background()
	for _, name := range []string{"lib.nova", "lib.nova.lz4", "lib.nova.xz"} {
		target := filepath.Join(t.TempDir(), name)
		OpenFile(target).Store(ctx, []byte("(def old (x) x)\n(def inc (x) x)\n"))

		s, _ := newSession(t, "(def inc (x) (succ x));(def twice (x) (add x x))")
		lib, err := Save(ctx, target, s)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if diff := cmp.Diff([]string{"inc", "old", "twice"}, names(lib)); diff != "" {
			t.Errorf("%s: names mismatch (-want +got):\n%s", name, diff)
		}

		fresh, _ := newSession(t, "")
		results, err := Import(ctx, target, fresh)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(results) != 3 {
			t.Errorf("%s: expected 3 results, got %d", name, len(results))
		}
		if got := evalString(t, fresh, "(twice (inc 1))"); got != "4" {
			t.Errorf("%s: expected 4, got %s", name, got)
		}
	}
}

func TestSaveBolt(t *testing.T) {
	ctx := context.Background()
	target := "bolt://" + filepath.Join(t.TempDir(), "lib.db")
	s, _ := newSession(t, "(def inc (x) (succ x))")
	if _, err := Save(ctx, target, s); err != nil {
		t.Fatal(err)
	}
	fresh, _ := newSession(t, "")
	if _, err := Import(ctx, target, fresh); err != nil {
		t.Fatal(err)
	}
	if got := evalString(t, fresh, "(inc 41)"); got != "42" {
		t.Fatalf("expected 42, got %s", got)
	}
}

func TestLoadMissingLibrary(t *testing.T) {
	lib, err := LoadLibrary(context.Background(), filepath.Join(t.TempDir(), "none.nova"))
	if err != nil || lib.Len() != 0 {
		t.Fatalf("a missing library is empty, got %v %v", lib, err)
	}
	s, _ := newSession(t, "")
	if _, err := Import(context.Background(), filepath.Join(t.TempDir(), "none.nova"), s); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("importing a missing file should fail with ErrNotExist, got %v", err)
	}
}

func TestNestedImport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sub", "main.nova"), ":import helper.nova\n(def g (x)\n  (h x))\n")
	writeFile(t, filepath.Join(dir, "sub", "helper.nova"), "(def h (x) (succ x))\n")

	s, out := newSession(t, "")
	var results []scm.Result
	var err error
	WithImportDir(dir, func() {
		results, err = Import(context.Background(), filepath.Join("sub", "main.nova"), s)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Name != "g" {
		t.Errorf("unexpected results %+v", results)
	}
	if out.String() != "imported 1 functions from helper.nova\n" {
		t.Errorf("unexpected output %q", out.String())
	}
	if got := evalString(t, s, "(g 1)"); got != "2" {
		t.Errorf("expected 2, got %s", got)
	}
	if ImportDir() != "" {
		t.Errorf("the import dir must not leak out of WithImportDir")
	}
}

func TestImportStopsAtError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.nova")
	writeFile(t, path, "(def a (x) x)\n(a 1 2)\n(def b (x) x)\n")
	s, _ := newSession(t, "")
	results, err := Import(context.Background(), path, s)
	if !scm.IsKind(err, scm.ArityError) {
		t.Fatalf("expected an arity error, got %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected the results before the error, got %+v", results)
	}
}

func TestResolveTarget(t *testing.T) {
	if got := ResolveTarget("x.nova"); got != "x.nova" {
		t.Errorf("outside of an import: got %s", got)
	}
	base := filepath.Join(string(filepath.Separator), "base")
	WithImportDir(base, func() {
		cases := map[string]string{
			"x.nova":      filepath.Join(base, "x.nova"),
			"../y.nova":   filepath.Join(string(filepath.Separator), "y.nova"),
			"s3://b/k":    "s3://b/k",
			"bolt://a.db": "bolt://a.db",
			"/abs/lib.xz": "/abs/lib.xz",
		}
		for in, want := range cases {
			if got := ResolveTarget(in); got != want {
				t.Errorf("%s: expected %s, got %s", in, want, got)
			}
		}
	})
}

func TestSaveCommand(t *testing.T) {
	ctx := context.Background()
	s, out := newSession(t, "(def inc (x) (succ x))")
	old := Settings.Library
	Settings.Library = ""
	defer func() { Settings.Library = old }()

	if err := s.RunCommand(ctx, ":save"); err == nil {
		t.Fatalf(":save without target and library should fail")
	}
	target := filepath.Join(t.TempDir(), "lib.nova")
	if err := s.RunCommand(ctx, ":save "+target); err != nil {
		t.Fatal(err)
	}
	if out.String() != "saved 1 functions to "+target+"\n" {
		t.Errorf("unexpected output %q", out.String())
	}
	data, _ := os.ReadFile(target)
	if string(data) != "(def inc (x) (succ x))\n" {
		t.Errorf("unexpected file %q", data)
	}
}
