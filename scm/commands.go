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

import "fmt"
import "sort"
import "time"
import "errors"
import "context"
import "strconv"
import "strings"

// ErrQuit is returned by the :quit command.
var ErrQuit = errors.New("quit")

// Command is a driver command typed as :name args...
type Command struct {
	Name   string
	Args   string
	Desc   string
	Remote bool // allowed in network sessions
	Run    func(ctx context.Context, s *Session, args string) error
}

var commands = map[string]*Command{}

func DeclareCommand(c *Command) {
	commands[c.Name] = c
}

func IsCommand(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), ":")
}

// RunCommand executes a ':' line.
func (s *Session) RunCommand(ctx context.Context, line string) error {
	line = strings.TrimPrefix(strings.TrimSpace(line), ":")
	name, args, _ := strings.Cut(line, " ")
	c, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command :%s (try :commands)", name)
	}
	if s.Restricted && !c.Remote {
		return fmt.Errorf("command :%s is not available in network sessions", name)
	}
	return c.Run(ctx, s, strings.TrimSpace(args))
}

// Line runs a command or evaluates source text and prints the results.
func (s *Session) Line(ctx context.Context, source, line string) error {
	if IsCommand(line) {
		return s.RunCommand(ctx, line)
	}
	results, err := s.EvalAll(source, line)
	for _, r := range results {
		fmt.Fprintln(s.Out, r.Text)
	}
	return err
}

func bench(s *Session, args string) error {
	countStr, expr, ok := strings.Cut(args, " ")
	count, err := strconv.Atoi(countStr)
	if !ok || err != nil || count < 1 {
		return fmt.Errorf("usage: :bench <count> <expression>")
	}
	roots, err := Read("bench", expr)
	if err != nil {
		return err
	}
	engine := NewEngine(s.Out)
	var last Value
	start := time.Now()
	for i := 0; i < count; i++ {
		for _, root := range roots {
			if last, err = engine.Evaluate(s.Env, root.Clone()); err != nil {
				return err
			}
		}
	}
	elapsed := time.Since(start)
	fmt.Fprintln(s.Out, "result:", last.String())
	fmt.Fprint(s.Out, numberPrinter.Sprintf("runs:            %d\n", count))
	fmt.Fprintln(s.Out, "total time:     ", elapsed)
	fmt.Fprintln(s.Out, "time per run:   ", elapsed/time.Duration(count))
	fmt.Fprintln(s.Out, engine.Stats.Snapshot().String())
	return nil
}

func init() {
	DeclareCommand(&Command{Name: "quit", Desc: "leave the session", Remote: true, Run: func(ctx context.Context, s *Session, args string) error {
		return ErrQuit
	}})
	DeclareCommand(&Command{Name: "clear", Desc: "forget all definitions", Remote: true, Run: func(ctx context.Context, s *Session, args string) error {
		s.Reset()
		return nil
	}})
	envCommand := func(ctx context.Context, s *Session, args string) error {
		fmt.Fprintln(s.Out, s.Env.String())
		return nil
	}
	DeclareCommand(&Command{Name: "env", Desc: "list all bindings", Remote: true, Run: envCommand})
	DeclareCommand(&Command{Name: "list", Desc: "list all bindings", Remote: true, Run: envCommand})
	DeclareCommand(&Command{Name: "del", Args: "<name>", Desc: "remove a binding", Remote: true, Run: func(ctx context.Context, s *Session, args string) error {
		if !s.Delete(args) {
			return newError(LookupError, "unrecognized symbol '%s'", args)
		}
		return nil
	}})
	DeclareCommand(&Command{Name: "help", Args: "[name]", Desc: "list builtins or describe one", Remote: true, Run: func(ctx context.Context, s *Session, args string) error {
		return Help(s.Out, args)
	}})
	DeclareCommand(&Command{Name: "commands", Desc: "list driver commands", Remote: true, Run: func(ctx context.Context, s *Session, args string) error {
		names := make([]string, 0, len(commands))
		for name, c := range commands {
			if c.Remote || !s.Restricted {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			c := commands[name]
			fmt.Fprintf(s.Out, "  :%s %s\t%s\n", c.Name, c.Args, c.Desc)
		}
		return nil
	}})
	DeclareCommand(&Command{Name: "stats", Desc: "show engine statistics", Remote: true, Run: func(ctx context.Context, s *Session, args string) error {
		fmt.Fprintln(s.Out, s.Engine.Stats.Snapshot().String())
		fmt.Fprintln(s.Out, ReadProcessMemory().String())
		return nil
	}})
	DeclareCommand(&Command{Name: "bench", Args: "<count> <expression>", Desc: "evaluate an expression repeatedly and time it", Run: func(ctx context.Context, s *Session, args string) error {
		return bench(s, args)
	}})
	DeclareCommand(&Command{Name: "trace", Args: "on|off", Desc: "write a chrome trace file of all evaluations", Run: func(ctx context.Context, s *Session, args string) error {
		switch args {
		case "on":
			return SetTrace(true)
		case "off":
			return SetTrace(false)
		}
		return fmt.Errorf("usage: :trace on|off")
	}})
}
