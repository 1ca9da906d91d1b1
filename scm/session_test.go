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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
)

func bufferSession() (*Session, *bytes.Buffer) {
	var out bytes.Buffer
	return NewSession(&out), &out
}

func TestCommands(t *testing.T) {
	ctx := context.Background()
	s, out := bufferSession()
	if err := s.Line(ctx, "test", "(def f (x) (succ x))"); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "f(x) => (succ x)\n" {
		t.Fatalf("unexpected def output %q", got)
	}

	out.Reset()
	if err := s.RunCommand(ctx, ":env"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Function: f => f(x) => (succ x)") {
		t.Errorf(":env should list f, got %q", out.String())
	}

	if err := s.RunCommand(ctx, ":del f"); err != nil {
		t.Fatal(err)
	}
	if err := s.RunCommand(ctx, ":del f"); !IsKind(err, LookupError) {
		t.Errorf("deleting twice should fail, got %v", err)
	}

	s.Line(ctx, "test", "let x 3")
	if err := s.RunCommand(ctx, ":clear"); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Env.Lookup("x"); ok {
		t.Errorf(":clear should drop variables")
	}
	if _, ok := s.Env.Function("add"); !ok {
		t.Errorf(":clear should keep the builtins")
	}

	out.Reset()
	if err := s.RunCommand(ctx, ":help add"); err != nil || !strings.Contains(out.String(), "Help for: add") {
		t.Errorf(":help add: %v %q", err, out.String())
	}
	if err := s.RunCommand(ctx, ":help nope"); !IsKind(err, LookupError) {
		t.Errorf(":help nope: expected a lookup error, got %v", err)
	}
	if err := s.RunCommand(ctx, ":frobnicate"); err == nil || err.Error() != "unknown command :frobnicate (try :commands)" {
		t.Errorf("unexpected error %v", err)
	}
	if err := s.RunCommand(ctx, ":quit"); err != ErrQuit {
		t.Errorf(":quit should return ErrQuit, got %v", err)
	}

	out.Reset()
	if err := s.RunCommand(ctx, ":bench 3 (add 1 2)"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "result: 3") {
		t.Errorf("unexpected bench output %q", out.String())
	}
	if err := s.RunCommand(ctx, ":bench x (add 1 2)"); err == nil {
		t.Errorf("bench needs a count")
	}
}

func TestBatch(t *testing.T) {
	s, out := bufferSession()
	err := Batch(context.Background(), s, "stdin", strings.NewReader("(add 1\n 2)\n\n(puts 7 8)\n(succ 1 2)\n:quit\n(add 5 5)\n"))
	if err != nil {
		t.Fatal(err)
	}
	got := out.String()
	if !strings.HasPrefix(got, "3\n7\n8\n") {
		t.Errorf("unexpected output %q", got)
	}
	if !strings.Contains(got, "Error: ") {
		t.Errorf("errors should be printed, got %q", got)
	}
	if strings.Contains(got, "10") {
		t.Errorf("input after :quit must not run, got %q", got)
	}
}

func TestUserFunctions(t *testing.T) {
	s, _ := bufferSession()
	if _, err := s.EvalAll("test", "(def b (x) x);(def a (x y) (add x y));let c 1;let d (a 1)"); err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, fn := range s.UserFunctions() {
		names = append(names, fn.Name())
	}
	if diff := cmp.Diff([]string{"a", "b"}, names); diff != "" {
		t.Errorf("user functions mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	a, _ := bufferSession()
	b, _ := bufferSession()
	if a.ID == b.ID {
		t.Fatalf("sessions need distinct ids")
	}
	a.EvalAll("test", "let x 1")
	if _, ok := b.Env.Lookup("x"); ok {
		t.Fatalf("a global let leaked into another session")
	}
}

func TestEvalEndpoint(t *testing.T) {
	server := httptest.NewServer(NewReplServer(nil).Handler())
	defer server.Close()

	res, err := http.Post(server.URL+"/eval", "text/plain", strings.NewReader("(add 1 2)"))
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if string(body) != "3\n" {
		t.Fatalf("expected 3, got %q", body)
	}

	res, err = http.Get(server.URL + "/eval")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET should be rejected, got %d", res.StatusCode)
	}
}

func TestWebsocketRepl(t *testing.T) {
	var setups atomic.Int32
	server := httptest.NewServer(NewReplServer(func(s *Session) error {
		setups.Add(1)
		return nil
	}).Handler())
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/repl"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	exchange := func(msg string) string {
		t.Helper()
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatal(err)
		}
		_, reply, err := conn.ReadMessage()
		if err != nil {
			t.Fatal(err)
		}
		return string(reply)
	}
	if got := exchange("(def f (x) (succ x))"); got != "f(x) => (succ x)\n" {
		t.Errorf("unexpected def reply %q", got)
	}
	if got := exchange("(f 41)"); got != "42\n" {
		t.Errorf("unexpected call reply %q", got)
	}
	if got := exchange("(g 1)"); !strings.HasPrefix(got, "Error: ") {
		t.Errorf("unexpected error reply %q", got)
	}
	if n := setups.Load(); n != 1 {
		t.Errorf("expected one session setup, got %d", n)
	}
}

func TestTraceFile(t *testing.T) {
	TraceDir = t.TempDir()
	defer func() { TraceDir = "" }()
	if err := SetTrace(true); err != nil {
		t.Fatal(err)
	}
	s, _ := bufferSession()
	if _, err := s.EvalAll("test", "(add 1 2)"); err != nil {
		t.Fatal(err)
	}
	if err := SetTrace(false); err != nil {
		t.Fatal(err)
	}

	files, _ := filepath.Glob(filepath.Join(TraceDir, "trace_*.json"))
	if len(files) != 1 {
		t.Fatalf("expected one trace file, got %v", files)
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatal(err)
	}
	var events []traceEvent
	if err := json.Unmarshal(data, &events); err != nil {
		t.Fatalf("trace is not a json array: %v\n%s", err, data)
	}
	var phases []string
	for _, e := range events {
		phases = append(phases, e.Ph)
	}
	if diff := cmp.Diff([]string{"B", "E"}, phases); diff != "" {
		t.Errorf("trace phases mismatch (-want +got):\n%s", diff)
	}
}

func postEval(t *testing.T, req *http.Request) (int, string) {
	t.Helper()
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	return res.StatusCode, string(body)
}

func TestNetworkSessionsAreRestricted(t *testing.T) {
	server := httptest.NewServer(NewReplServer(nil).Handler())
	defer server.Close()
	eval := func(src string) string {
		req, _ := http.NewRequest(http.MethodPost, server.URL+"/eval", strings.NewReader(src))
		_, body := postEval(t, req)
		return body
	}
	if got := eval(":trace on"); got != "Error: command :trace is not available in network sessions\n" {
		t.Errorf("unexpected reply %q", got)
	}
	if CurrentTrace() != nil {
		t.Fatalf("a network session switched tracing on")
	}
	if got := eval(":help add"); !strings.Contains(got, "Help for: add") {
		t.Errorf("harmless commands stay available, got %q", got)
	}
	if got := eval(":commands"); strings.Contains(got, ":trace") || strings.Contains(got, ":bench") {
		t.Errorf("restricted commands should not be listed, got %q", got)
	}

	// local sessions keep every command
	s, _ := bufferSession()
	if err := s.RunCommand(context.Background(), ":bench 1 (add 1 2)"); err != nil {
		t.Errorf("local session: %v", err)
	}
}

func TestBasicAuth(t *testing.T) {
	rs := NewReplServer(nil)
	rs.User = "root"
	rs.Password = "admin"
	server := httptest.NewServer(rs.Handler())
	defer server.Close()

	request := func(user, pass string) *http.Request {
		req, _ := http.NewRequest(http.MethodPost, server.URL+"/eval", strings.NewReader("(add 1 2)"))
		if user != "" {
			req.SetBasicAuth(user, pass)
		}
		return req
	}
	if code, _ := postEval(t, request("", "")); code != http.StatusUnauthorized {
		t.Errorf("missing credentials: got %d", code)
	}
	if code, _ := postEval(t, request("root", "wrong")); code != http.StatusUnauthorized {
		t.Errorf("wrong password: got %d", code)
	}
	if code, body := postEval(t, request("root", "admin")); code != http.StatusOK || body != "3\n" {
		t.Errorf("valid credentials: got %d %q", code, body)
	}

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/repl"
	if _, res, err := websocket.DefaultDialer.Dial(url, nil); err == nil || res == nil || res.StatusCode != http.StatusUnauthorized {
		t.Errorf("websocket without credentials should be refused, got %v", err)
	}
	header := http.Header{}
	header.Set("Authorization", request("root", "admin").Header.Get("Authorization"))
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatal(err)
	}
	conn.Close()
}

func TestTraceToggleDuringEvaluation(t *testing.T) {
	TraceDir = t.TempDir()
	defer func() {
		SetTrace(false)
		TraceDir = ""
	}()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			SetTrace(i%2 == 0)
		}
	}()
	s, _ := bufferSession()
	for i := 0; i < 200; i++ {
		if got := run(t, s, "(add 1 2)"); got != "3" {
			t.Fatalf("expected 3, got %s", got)
		}
	}
	<-done
	if CurrentTrace() != nil {
		t.Fatalf("the last toggle switched tracing off")
	}
}
