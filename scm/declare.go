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

import "io"
import "fmt"
import "strings"
import "unsafe"
import "github.com/launix-de/NonLockingReadMap"

type Declaration struct {
	Name    string
	Desc    string
	Params  Params
	Mode    ArgMode
	Args    []DeclarationParameter
	Returns string // any | number | bool | func | nil
	Fn      BuiltinFn
}

type DeclarationParameter struct {
	Name string
	Type string // any | number | bool | func | node
	Desc string
}

/* implement NonLockingReadMap */
func (d Declaration) GetKey() string {
	return d.Name
}

func (d Declaration) ComputeSize() uint {
	sz := uint(unsafe.Sizeof(d)) + uint(len(d.Name)+len(d.Desc))
	for _, p := range d.Args {
		sz += uint(unsafe.Sizeof(p)) + uint(len(p.Name)+len(p.Type)+len(p.Desc))
	}
	return sz
}

func (d *Declaration) builtin() *Builtin {
	return NewBuiltin(d.Name, d.Params, d.Mode, d.Fn)
}

var declaration_titles []string
var declarations NonLockingReadMap.NonLockingReadMap[Declaration, string] = NonLockingReadMap.New[Declaration, string]()

func DeclareTitle(title string) {
	declaration_titles = append(declaration_titles, "#"+title)
}

// Declare registers a builtin; NewGlobalEnv binds every declared builtin.
func Declare(def *Declaration) {
	declaration_titles = append(declaration_titles, def.Name)
	declarations.Set(def)
}

// Declarations returns all builtins sorted by name.
func Declarations() []*Declaration {
	return declarations.GetAll()
}

func GetDeclaration(name string) *Declaration {
	return declarations.Get(name)
}

func arity(p Params) string {
	if p.IsVariadic() {
		return fmt.Sprintf("at least %d", p.min)
	}
	return fmt.Sprint(len(p.names))
}

// Help lists all builtins or describes one of them.
func Help(w io.Writer, name string) error {
	if name == "" {
		fmt.Fprintln(w, "Available functions:")
		for _, title := range declaration_titles {
			if title[0] == '#' {
				fmt.Fprintln(w, "")
				fmt.Fprintln(w, "-- "+title[1:]+" --")
			} else {
				fmt.Fprintln(w, "  "+title+": "+strings.Split(declarations.Get(title).Desc, "\n")[0])
			}
		}
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "get further information by typing :help functionname")
		return nil
	}
	def := declarations.Get(name)
	if def == nil {
		return newError(LookupError, "function not found: %s", name)
	}
	fmt.Fprintln(w, "Help for: "+def.Name)
	fmt.Fprintln(w, "===")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, def.Desc)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Number of parameters:", arity(def.Params))
	fmt.Fprintln(w, "")
	for _, p := range def.Args {
		fmt.Fprintln(w, " - "+p.Name+" ("+p.Type+"): "+p.Desc)
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Returns:", def.Returns)
	return nil
}
