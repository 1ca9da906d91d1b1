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
package scm

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func tokenTexts(t *testing.T, s string) []string {
	t.Helper()
	tokens, err := Tokenize("test", s)
	if err != nil {
		t.Fatalf("tokenize %q: %v", s, err)
	}
	result := make([]string, len(tokens))
	for i, tok := range tokens {
		result[i] = tok.Text
	}
	return result
}

func TestTokenize(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"(add 1 2)", []string{"(", "add", "1", "2", ")"}},
		{"(def fn (a,b) (add a b))", []string{"(", "def", "fn", "(", "a", "b", ")", "(", "add", "a", "b", ")", ")"}},
		{"let x 2;\nlet y 3", []string{"let", "x", "2", ";", "let", "y", "3"}},
		{"[1 2]", []string{"[", "1", "2", "]"}},
		{"a->b >> c $d", []string{"a", "->", "b", ">>", "c", "$", "d"}},
		{"(> a b)", []string{"(", ">", "a", "b", ")"}},
		{"(add 1 #one more# 2)", []string{"(", "add", "1", "2", ")"}},
		{"(sub -5 3)", []string{"(", "sub", "-5", "3", ")"}},
		{"h(x)", []string{"h", "(", "x", ")"}},
	}
	for _, c := range cases {
		if diff := cmp.Diff(c.want, tokenTexts(t, c.in)); diff != "" {
			t.Errorf("%q: tokens mismatch (-want +got):\n%s", c.in, diff)
		}
	}
}

func TestTokenizeErrors(t *testing.T) {
	if _, err := Tokenize("test", "  \n "); !IsKind(err, ParseError) || err.Error() != "Can't parse an empty string" {
		t.Errorf("empty input: got %v", err)
	}
	if _, err := Tokenize("test", "(add 1 # open"); !IsKind(err, ParseError) || !strings.Contains(err.Error(), "unterminated comment") {
		t.Errorf("open comment: got %v", err)
	}
}

func TestTokenPositions(t *testing.T) {
	tokens, err := Tokenize("file.nova", "(add\n  x)")
	if err != nil {
		t.Fatal(err)
	}
	if got := tokens[2].Pos.String(); got != "file.nova:2:3" {
		t.Fatalf("expected file.nova:2:3, got %s", got)
	}
}

func TestParseShapes(t *testing.T) {
	cases := []struct {
		in   string
		kind NodeKind
	}{
		{"42", NumberNode},
		{"(42)", NumberNode},
		{"true", BooleanNode},
		{"x", SymbolNode},
		{"(add 1 2)", CombinationNode},
		{"add 1 2", CombinationNode},
		{"[1]", ListNode},
		{"(if true 1 2)", IfNode},
		{"let x 2", LetNode},
		{"(def f (x) x)", DefNode},
		{"(def f x x)", DefNode},
	}
	for _, c := range cases {
		r, err := ReadOne("test", c.in)
		if err != nil {
			t.Errorf("%q: %v", c.in, err)
			continue
		}
		if r.Kind() != c.kind {
			t.Errorf("%q: expected %v, got %v", c.in, c.kind, r.Kind())
		}
	}
}

func TestGlobalLet(t *testing.T) {
	global, err := ReadOne("test", "let x 2")
	if err != nil {
		t.Fatal(err)
	}
	local, err := ReadOne("test", "(let x 2)")
	if err != nil {
		t.Fatal(err)
	}
	if !global.IsGlobal() || local.IsGlobal() {
		t.Fatalf("only the unbracketed let is global")
	}
}

func TestParseStatements(t *testing.T) {
	roots, err := Read("test", "let x 2;\nlet y 3;;\n (add x y);")
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, r := range roots {
		got = append(got, r.String())
	}
	want := []string{"(let x 2)", "(let y 3)", "(add x y)"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		in   string
		kind ErrorKind
		msg  string
	}{
		{"()", ParseError, "Can't parse empty expression: '()'"},
		{"(add 1 2", ParseError, "Excess of 1 opening brackets: '('."},
		{"(add 1 2]", ParseError, "Mismatched brackets"},
		{"add 1)", ParseError, "Found ')'"},
		{"(add 1; 2)", ParseError, "can't be used inside an expression"},
		{"(if 1 2)", ParseError, "'if' expected 3 expressions but got 2."},
		{"(def f (x))", ParseError, "at least 3 parts"},
		{"(def 1 (x) x)", ParseError, "Function name should be a symbol."},
		{"(def if (x) x)", StructuralError, "reserved keyword"},
		{"(def f (x 1) x)", ParseError, "only symbols"},
		{"(def first (x) x 5)", ParseError, "'first' should have a single body expression but got 2"},
	}
	for _, c := range cases {
		_, err := Read("test", c.in)
		if err == nil {
			t.Errorf("%q: expected an error", c.in)
			continue
		}
		if !IsKind(err, c.kind) || !strings.Contains(err.Error(), c.msg) {
			t.Errorf("%q: expected %v containing %q, got %v", c.in, c.kind, c.msg, err)
		}
	}
}

func TestIncompleteInput(t *testing.T) {
	_, err := Read("test", "(def f (x)\n  (add x")
	if !incomplete(err) {
		t.Fatalf("unclosed brackets should ask for more input, got %v", err)
	}
	_, err = Read("test", "(add 1 2))")
	if incomplete(err) {
		t.Fatalf("excess closing brackets can't be completed")
	}
}

func TestValidIdentifier(t *testing.T) {
	for _, ok := range []string{"x", "add", "my-fn", "x1"} {
		if err := ValidIdentifier(ok); err != nil {
			t.Errorf("%q: %v", ok, err)
		}
	}
	for _, bad := range []string{"12", "-3", "let", "true", "->", ";"} {
		if err := ValidIdentifier(bad); !IsKind(err, StructuralError) {
			t.Errorf("%q should be rejected, got %v", bad, err)
		}
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	for _, src := range []string{
		"(add 1 (sub 2 3))",
		"(if (eq n 0) true false)",
		"(let x 2 (add x 1))",
		"(def f (a b) (add a b))",
		"[1,2,3]",
	} {
		r, err := ReadOne("test", src)
		if err != nil {
			t.Fatal(err)
		}
		if got := r.String(); got != src {
			t.Errorf("expected %q, got %q", src, got)
		}
	}
}

func TestSeparateExpressions(t *testing.T) {
	src := "#library#\n(def a (x) x)\n(def b (x)\n  (a x))\n"
	got := SeparateExpressions(src)
	want := "\n(def a (x) x);\n(def b (x)\n  (a x));\n"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	roots, err := Read("test", got)
	if err != nil {
		t.Fatal(err)
	}
	if len(roots) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(roots))
	}
}
