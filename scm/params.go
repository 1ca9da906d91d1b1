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

type Readiness int

const (
	NeedMore Readiness = iota
	Ready
	TooMany
)

/*
Params tracks the arity of a callable and the arguments it has collected
so far. A fixed signature lists parameter names, a variadic one only has a
minimum count. Params values are immutable: Apply returns a new value.
*/
type Params struct {
	names    []string
	min      int
	variadic bool
	received []Arg
}

func Fixed(names ...string) Params {
	return Params{names: names}
}

func Variadic(min int) Params {
	return Params{min: min, variadic: true}
}

func (p Params) IsVariadic() bool {
	return p.variadic
}

// Apply appends args in order.
func (p Params) Apply(args []Arg) Params {
	if len(args) == 0 {
		return p
	}
	received := make([]Arg, 0, len(p.received)+len(args))
	received = append(received, p.received...)
	received = append(received, args...)
	p.received = received
	return p
}

func (p Params) Received() []Arg {
	return p.received
}

func (p Params) Readiness() Readiness {
	n := len(p.received)
	if p.variadic {
		if n < p.min {
			return NeedMore
		}
		return Ready
	}
	switch {
	case n < len(p.names):
		return NeedMore
	case n > len(p.names):
		return TooMany
	}
	return Ready
}

// Check fails unless the signature is exactly satisfied.
func (p Params) Check(name string) error {
	n := len(p.received)
	if p.variadic {
		if n < p.min {
			return newError(ArityError, "'%s' expected at least %d arguments but received %d.", name, p.min, n)
		}
		return nil
	}
	if n != len(p.names) {
		return newError(ArityError, "'%s' expected %d arguments but received %d.", name, len(p.names), n)
	}
	return nil
}

// Expected lists the parameter names still missing, nil for variadic.
func (p Params) Expected() []string {
	if p.variadic {
		return nil
	}
	if len(p.received) >= len(p.names) {
		return []string{}
	}
	return p.names[len(p.received):]
}

func (p Params) Names() []string {
	return p.names
}
