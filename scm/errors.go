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
import "errors"

type ErrorKind int

const (
	LookupError ErrorKind = iota
	TypeError
	ArityError
	StructuralError
	EngineExhaustionError
	ParseError
)

func (k ErrorKind) String() string {
	switch k {
	case LookupError:
		return "lookup error"
	case TypeError:
		return "type error"
	case ArityError:
		return "arity error"
	case StructuralError:
		return "structural error"
	case EngineExhaustionError:
		return "engine exhaustion"
	case ParseError:
		return "parse error"
	}
	return "error"
}

// Error is the only error type the core returns.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{kind, fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is (or wraps) a core error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Render formats an error the way the driver prints it.
func Render(err error) string {
	return "Error: " + err.Error()
}
