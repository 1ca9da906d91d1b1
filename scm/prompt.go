/*
Copyright (C) 2023  Carl-Philip Hänsch
Copyright (C) 2013  Pieter Kelchtermans (originally licensed unter WTFPL 2.0)

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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"strings"

	"github.com/chzyer/readline"
)

const newprompt = "\033[32m>\033[0m "
const contprompt = "\033[32m.\033[0m "
const resultprompt = "\033[31m=\033[0m "

var ReplInstance *readline.Instance

// incomplete reports whether more input could fix the parse error.
func incomplete(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == ParseError && strings.HasPrefix(e.Message, "Excess of")
}

// step handles one complete input. It returns the text to keep for the
// next line when the input is still open.
func step(ctx context.Context, s *Session, source, line string, w io.Writer, prompt string) (keep string, err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(w, "panic:", r, string(debug.Stack()))
			keep, err = "", nil
		}
	}()
	if IsCommand(line) {
		return "", s.RunCommand(ctx, line)
	}
	results, err := s.EvalAll(source, line)
	if incomplete(err) {
		return line + "\n", nil
	}
	for _, r := range results {
		fmt.Fprint(w, prompt)
		fmt.Fprintln(w, r.Text)
	}
	return "", err
}

func Repl(ctx context.Context, s *Session, historyFile string) error {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            newprompt,
		HistoryFile:       historyFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return err
	}
	ReplInstance = l
	defer l.Close()
	l.CaptureExitSignal()

	oldline := ""
	for {
		line, err := l.Readline()
		line = oldline + line
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				return nil
			}
			oldline = ""
			l.SetPrompt(newprompt)
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		oldline, err = step(ctx, s, "user prompt", line, s.Out, resultprompt)
		if err == ErrQuit {
			return nil
		} else if err != nil {
			fmt.Fprintln(s.Out, Render(err))
		}
		if oldline != "" {
			l.SetPrompt(contprompt)
		} else {
			l.SetPrompt(newprompt)
		}
	}
}

// Batch reads statements from r line by line, as if typed at the prompt.
func Batch(ctx context.Context, s *Session, source string, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	oldline := ""
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := oldline + scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var err error
		oldline, err = step(ctx, s, fmt.Sprintf("%s:%d", source, lineno), line, s.Out, "")
		if err == ErrQuit {
			return nil
		} else if err != nil {
			fmt.Fprintln(s.Out, Render(err))
		}
	}
	if oldline != "" {
		_, err := s.EvalAll(source, oldline)
		if err != nil {
			fmt.Fprintln(s.Out, Render(err))
		}
	}
	return scanner.Err()
}
