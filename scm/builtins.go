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

func numbers(args []Arg) ([]int64, error) {
	result := make([]int64, len(args))
	for i, a := range args {
		n, err := a.Value().ExpectNumber()
		if err != nil {
			return nil, err
		}
		result[i] = n
	}
	return result, nil
}

// fold builds a variadic arithmetic builtin
func fold(op func(acc, n int64) (int64, error)) BuiltinFn {
	return func(en *Engine, args []Arg, env Env) (Outcome, error) {
		nums, err := numbers(args)
		if err != nil {
			return Outcome{}, err
		}
		acc := nums[0]
		for _, n := range nums[1:] {
			if acc, err = op(acc, n); err != nil {
				return Outcome{}, err
			}
		}
		return Evaluated(NewNumber(acc)), nil
	}
}

func compare(cmp func(a, b int64) bool) BuiltinFn {
	return func(en *Engine, args []Arg, env Env) (Outcome, error) {
		nums, err := numbers(args)
		if err != nil {
			return Outcome{}, err
		}
		return Evaluated(NewBool(cmp(nums[0], nums[1]))), nil
	}
}

func stepBy(delta int64) BuiltinFn {
	return func(en *Engine, args []Arg, env Env) (Outcome, error) {
		n, err := args[0].Value().ExpectNumber()
		if err != nil {
			return Outcome{}, err
		}
		return Evaluated(NewNumber(n + delta)), nil
	}
}

var numberParams = []DeclarationParameter{
	DeclarationParameter{"value...", "number", "values to combine"},
}
var pairParams = []DeclarationParameter{
	DeclarationParameter{"left", "number", "left operand"},
	DeclarationParameter{"right", "number", "right operand"},
}

func init_arithmetic() {
	DeclareTitle("Arithmetic")
	Declare(&Declaration{
		"add", "adds two or more numbers; booleans count as 1 and 0",
		Variadic(2), EvaluatedArgs, numberParams, "number",
		fold(func(a, b int64) (int64, error) { return a + b, nil }),
	})
	Declare(&Declaration{
		"sub", "subtracts all following numbers from the first",
		Variadic(2), EvaluatedArgs, numberParams, "number",
		fold(func(a, b int64) (int64, error) { return a - b, nil }),
	})
	Declare(&Declaration{
		"mul", "multiplies two or more numbers",
		Variadic(2), EvaluatedArgs, numberParams, "number",
		fold(func(a, b int64) (int64, error) { return a * b, nil }),
	})
	Declare(&Declaration{
		"div", "integer division",
		Fixed("left", "right"), EvaluatedArgs, pairParams, "number",
		fold(func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, newError(TypeError, "division by zero")
			}
			return a / b, nil
		}),
	})
	Declare(&Declaration{
		"mod", "remainder of the integer division",
		Fixed("left", "right"), EvaluatedArgs, pairParams, "number",
		fold(func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, newError(TypeError, "division by zero")
			}
			return a % b, nil
		}),
	})
	Declare(&Declaration{
		"succ", "returns n + 1",
		Fixed("n"), EvaluatedArgs,
		[]DeclarationParameter{DeclarationParameter{"n", "number", "value to increment"}}, "number",
		stepBy(1),
	})
	Declare(&Declaration{
		"pred", "returns n - 1",
		Fixed("n"), EvaluatedArgs,
		[]DeclarationParameter{DeclarationParameter{"n", "number", "value to decrement"}}, "number",
		stepBy(-1),
	})
}

func init_logic() {
	DeclareTitle("Logic")
	Declare(&Declaration{
		"eq", "compares two numbers or booleans",
		Fixed("left", "right"), EvaluatedArgs,
		[]DeclarationParameter{
			DeclarationParameter{"left", "any", "left operand"},
			DeclarationParameter{"right", "any", "right operand"},
		}, "bool",
		func(en *Engine, args []Arg, env Env) (Outcome, error) {
			return Evaluated(NewBool(args[0].Value().Equal(args[1].Value()))), nil
		},
	})
	Declare(&Declaration{
		"lt", "true if left is smaller than right",
		Fixed("left", "right"), EvaluatedArgs, pairParams, "bool",
		compare(func(a, b int64) bool { return a < b }),
	})
	Declare(&Declaration{
		"gt", "true if left is bigger than right",
		Fixed("left", "right"), EvaluatedArgs, pairParams, "bool",
		compare(func(a, b int64) bool { return a > b }),
	})
	Declare(&Declaration{
		"and", "true if all values are truthy",
		Variadic(2), EvaluatedArgs,
		[]DeclarationParameter{DeclarationParameter{"value...", "any", "values to test"}}, "bool",
		func(en *Engine, args []Arg, env Env) (Outcome, error) {
			for _, a := range args {
				if !a.Value().Truthy() {
					return Evaluated(NewBool(false)), nil
				}
			}
			return Evaluated(NewBool(true)), nil
		},
	})
	Declare(&Declaration{
		"or", "true if any value is truthy",
		Variadic(2), EvaluatedArgs,
		[]DeclarationParameter{DeclarationParameter{"value...", "any", "values to test"}}, "bool",
		func(en *Engine, args []Arg, env Env) (Outcome, error) {
			for _, a := range args {
				if a.Value().Truthy() {
					return Evaluated(NewBool(true)), nil
				}
			}
			return Evaluated(NewBool(false)), nil
		},
	})
}

func init_control() {
	DeclareTitle("Control")
	Declare(&Declaration{
		"puts", "prints each value on its own line",
		Variadic(1), EvaluatedArgs,
		[]DeclarationParameter{DeclarationParameter{"value...", "any", "values to print"}}, "nil",
		func(en *Engine, args []Arg, env Env) (Outcome, error) {
			for _, a := range args {
				fmt.Fprintln(en.Out, a.Value().String())
			}
			return Evaluated(NewNil()), nil
		},
	})
	Declare(&Declaration{
		">", "evaluates the expressions in order and returns the last one",
		Variadic(1), UnevaluatedArgs,
		[]DeclarationParameter{DeclarationParameter{"expression...", "node", "expressions to run"}}, "any",
		func(en *Engine, args []Arg, env Env) (Outcome, error) {
			// values arrive already evaluated when > is applied indirectly
			last := len(args) - 1
			for _, a := range args[:last] {
				if a.IsEvaluated() {
					continue
				}
				if _, err := en.eval(env, a.Raw(), false); err != nil {
					return Outcome{}, err
				}
			}
			if args[last].IsEvaluated() {
				return Evaluated(args[last].Value()), nil
			}
			return Deferred(env, args[last].Raw().Clone()), nil
		},
	})
}

func init() {
	init_arithmetic()
	init_logic()
	init_control()
}
