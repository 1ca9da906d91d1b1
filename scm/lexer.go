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
	"fmt"
	"strings"
)

type SourceInfo struct {
	source string
	line   int
	col    int
}

func (source_info SourceInfo) String() string {
	return fmt.Sprintf("%s:%d:%d", source_info.source, source_info.line, source_info.col)
}

type Token struct {
	Text string
	Pos  SourceInfo
}

func (t Token) String() string {
	return t.Text
}

// Lexical Analysis
func Tokenize(source, s string) ([]Token, error) {
	/* tokenizer state machine:
		0 = expecting next item
		2 = inside Symbol (numbers are symbols until the parser looks at them)
		5 = inside comment #...#

	separators: whitespace and ','
	single tokens: ( ) [ ] ; $ -> >>
	*/
	if strings.TrimSpace(s) == "" {
		return nil, newError(ParseError, "Can't parse an empty string")
	}
	line := 1
	col := 0

	state := 0
	startToken := 0
	var start SourceInfo
	commentStart := SourceInfo{source, 1, 1}
	result := make([]Token, 0)
	finishSymbol := func(end int) {
		if state == 2 {
			result = append(result, Token{s[startToken:end], start})
		}
		state = 0
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		// line counting
		if ch == '\n' {
			line++
			col = 0
		} else {
			col++
		}

		if state == 5 {
			if ch == '#' {
				state = 0
			}
			continue
		}
		switch {
		case ch == '#':
			finishSymbol(i)
			commentStart = SourceInfo{source, line, col}
			state = 5
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' || ch == ',':
			finishSymbol(i)
		case ch == '(' || ch == ')' || ch == '[' || ch == ']' || ch == ';' || ch == '$':
			finishSymbol(i)
			result = append(result, Token{s[i : i+1], SourceInfo{source, line, col}})
		case (ch == '-' || ch == '>') && i+1 < len(s) && s[i+1] == '>':
			// -> and >> split even inside symbols
			finishSymbol(i)
			result = append(result, Token{s[i : i+2], SourceInfo{source, line, col}})
			i++
			col++
		default:
			if state != 2 {
				startToken = i
				start = SourceInfo{source, line, col}
				state = 2
			}
		}
	}
	if state == 5 {
		return nil, newError(ParseError, "%s: unterminated comment", commentStart)
	}
	finishSymbol(len(s))
	return result, nil
}

// StripComments removes #...# comments from source text.
func StripComments(s string) string {
	var b strings.Builder
	inComment := false
	for _, ch := range s {
		if ch == '#' {
			inComment = !inComment
			continue
		}
		if !inComment {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// SeparateExpressions puts a ';' after every balanced top level form so a
// file of bracketed definitions reads as separate statements.
func SeparateExpressions(s string) string {
	var b strings.Builder
	depth := 0
	for _, ch := range StripComments(s) {
		b.WriteRune(ch)
		switch ch {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
			if depth == 0 {
				b.WriteRune(';')
			}
		}
	}
	return b.String()
}
