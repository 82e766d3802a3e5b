package funcs

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/roach88/slotreason/internal/ir"
)

// Std returns the builtin namespace.
//
//	concat a b ...     string concatenation of the text forms
//	upper s, lower s   case mapping
//	add a b ...        sum; integer when every argument is an integer
//	inc n              n + 1
//	max a b ...        largest number
//	min a b ...        smallest number
//	len v ...          rune count of a single string, else argument count
//	join sep a b ...   text forms joined by sep
//	split s sep        list of substrings
//	list a b ...       the arguments as a list
//	not b              boolean negation
func Std() Namespace {
	return Namespace{
		"concat": concat,
		"upper":  stringFunc("upper", strings.ToUpper),
		"lower":  stringFunc("lower", strings.ToLower),
		"add":    add,
		"inc":    inc,
		"max":    extreme("max", func(a, b float64) bool { return a > b }),
		"min":    extreme("min", func(a, b float64) bool { return a < b }),
		"len":    length,
		"join":   join,
		"split":  split,
		"list":   list,
		"not":    not,
	}
}

// Text renders a scalar the way a user would write it in a message.
func Text(v ir.IRValue) string {
	switch val := v.(type) {
	case ir.IRString:
		return string(val)
	case ir.IRInt:
		return strconv.FormatInt(int64(val), 10)
	case ir.IRFloat:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case ir.IRBool:
		if val {
			return "True"
		}
		return "False"
	case ir.IRArray:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = Text(elem)
		}
		return strings.Join(parts, " ")
	}
	return ""
}

func arity(name string, args []ir.IRValue, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s: expected %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func concat(_ context.Context, args []ir.IRValue) (ir.IRValue, error) {
	var b strings.Builder
	for _, a := range args {
		b.WriteString(Text(a))
	}
	return ir.IRString(b.String()), nil
}

func stringFunc(name string, fn func(string) string) Func {
	return func(_ context.Context, args []ir.IRValue) (ir.IRValue, error) {
		if err := arity(name, args, 1); err != nil {
			return nil, err
		}
		s, ok := args[0].(ir.IRString)
		if !ok {
			return nil, fmt.Errorf("%s: expected a string, got %T", name, args[0])
		}
		return ir.IRString(fn(string(s))), nil
	}
}

func number(name string, v ir.IRValue) (float64, bool, error) {
	switch val := v.(type) {
	case ir.IRInt:
		return float64(val), true, nil
	case ir.IRFloat:
		return float64(val), false, nil
	}
	return 0, false, fmt.Errorf("%s: expected a number, got %T", name, v)
}

func add(_ context.Context, args []ir.IRValue) (ir.IRValue, error) {
	var isum int64
	var fsum float64
	allInts := true
	for _, a := range args {
		f, isInt, err := number("add", a)
		if err != nil {
			return nil, err
		}
		if isInt {
			isum += int64(a.(ir.IRInt))
		}
		allInts = allInts && isInt
		fsum += f
	}
	if allInts {
		return ir.IRInt(isum), nil
	}
	return ir.IRFloat(fsum), nil
}

func inc(_ context.Context, args []ir.IRValue) (ir.IRValue, error) {
	if err := arity("inc", args, 1); err != nil {
		return nil, err
	}
	switch val := args[0].(type) {
	case ir.IRInt:
		return val + 1, nil
	case ir.IRFloat:
		return val + 1, nil
	}
	return nil, fmt.Errorf("inc: expected a number, got %T", args[0])
}

func extreme(name string, better func(a, b float64) bool) Func {
	return func(_ context.Context, args []ir.IRValue) (ir.IRValue, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("%s: expected at least one argument", name)
		}
		best := args[0]
		bestVal, _, err := number(name, best)
		if err != nil {
			return nil, err
		}
		for _, a := range args[1:] {
			f, _, err := number(name, a)
			if err != nil {
				return nil, err
			}
			if better(f, bestVal) {
				best, bestVal = a, f
			}
		}
		return best, nil
	}
}

func length(_ context.Context, args []ir.IRValue) (ir.IRValue, error) {
	if len(args) == 1 {
		if s, ok := args[0].(ir.IRString); ok {
			return ir.IRInt(utf8.RuneCountInString(string(s))), nil
		}
	}
	return ir.IRInt(len(args)), nil
}

func join(_ context.Context, args []ir.IRValue) (ir.IRValue, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("join: expected a separator")
	}
	parts := make([]string, 0, len(args)-1)
	for _, a := range args[1:] {
		parts = append(parts, Text(a))
	}
	return ir.IRString(strings.Join(parts, Text(args[0]))), nil
}

func split(_ context.Context, args []ir.IRValue) (ir.IRValue, error) {
	if err := arity("split", args, 2); err != nil {
		return nil, err
	}
	parts := strings.Split(Text(args[0]), Text(args[1]))
	out := make(ir.IRArray, len(parts))
	for i, p := range parts {
		out[i] = ir.IRString(p)
	}
	return out, nil
}

func list(_ context.Context, args []ir.IRValue) (ir.IRValue, error) {
	return append(ir.IRArray{}, args...), nil
}

func not(_ context.Context, args []ir.IRValue) (ir.IRValue, error) {
	if err := arity("not", args, 1); err != nil {
		return nil, err
	}
	b, ok := args[0].(ir.IRBool)
	if !ok {
		return nil, fmt.Errorf("not: expected a boolean, got %T", args[0])
	}
	return !b, nil
}
