package registry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"reflect"
	"time"
)

// Builtins returns a table with the standard math, operator, random and iteration
// functions registered. The random functions use a source seeded for this table.
func Builtins() *Functions {
	seed := uint64(time.Now().UnixNano())
	return BuiltinsWithSource(rand.New(rand.NewPCG(seed, seed>>1|1)))
}

// BuiltinsWithSource is Builtins with a caller-provided random source.
func BuiltinsWithSource(rng *rand.Rand) *Functions {
	f := NewFunctions()
	registerMath(f)
	registerOperators(f)
	registerRandom(f, rng)
	registerIteration(f)
	return f
}

// Truthy reports whether v counts as true.
// nil, false, zero numbers, empty strings and empty collections are false.
func Truthy(v any) bool {
	if v == nil {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x != ""
	case *Range:
		return x.Len() > 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Slice, reflect.Map, reflect.Array, reflect.Chan:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface, reflect.Func:
		return !rv.IsNil()
	}
	return true
}

func arity(name string, args []any, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		switch {
		case min == max:
			return fmt.Errorf("%s: expected %d arguments, got %d", name, min, len(args))
		case max < 0:
			return fmt.Errorf("%s: expected at least %d arguments, got %d", name, min, len(args))
		}
		return fmt.Errorf("%s: expected %d to %d arguments, got %d", name, min, max, len(args))
	}
	return nil
}

// toInt reports v as an int64 when it is an integer of any width.
func toInt(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), true
	case reflect.Bool:
		if rv.Bool() {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	if i, ok := toInt(v); ok {
		return float64(i), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func number(name string, v any) (float64, error) {
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("%s: %T is not a number", name, v)
	}
	return f, nil
}

func integer(name string, v any) (int64, error) {
	i, ok := toInt(v)
	if !ok {
		return 0, fmt.Errorf("%s: %T is not an integer", name, v)
	}
	return i, nil
}

func unary(name string, fn func(float64) float64) Function {
	return func(_ context.Context, args []any) (any, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		x, err := number(name, args[0])
		if err != nil {
			return nil, err
		}
		return fn(x), nil
	}
}

func binary(name string, fn func(float64, float64) float64) Function {
	return func(_ context.Context, args []any) (any, error) {
		if err := arity(name, args, 2, 2); err != nil {
			return nil, err
		}
		x, err := number(name, args[0])
		if err != nil {
			return nil, err
		}
		y, err := number(name, args[1])
		if err != nil {
			return nil, err
		}
		return fn(x, y), nil
	}
}
